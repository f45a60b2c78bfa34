package domain

// EventKind identifies a table event.
type EventKind string

const (
	EventSeatTaken      EventKind = "seat_taken"
	EventSeatVacated    EventKind = "seat_vacated"
	EventRoundOpened    EventKind = "round_opened"
	EventBetPlaced      EventKind = "bet_placed"
	EventBetRefunded    EventKind = "bet_refunded"
	EventHandUpdated    EventKind = "hand_updated"
	EventPhaseChanged   EventKind = "phase_changed"
	EventShoeReshuffled EventKind = "shoe_reshuffled"
	EventHandSettled    EventKind = "hand_settled"
)

// Event is emitted by every table mutation, in the order things happened.
type Event struct {
	Kind    EventKind
	Payload any
}

type SeatTakenPayload struct {
	SeatID   int
	PlayerID string
}

type SeatVacatedPayload struct {
	SeatID   int
	PlayerID string
}

type RoundOpenedPayload struct {
	RoundID string
}

// BetKind distinguishes the stake that a bet event adds.
type BetKind string

const (
	BetInitial BetKind = "bet"
	BetDouble  BetKind = "double"
	BetSplit   BetKind = "split"
)

type BetPlacedPayload struct {
	RoundID   string
	SeatID    int
	HandIndex int
	PlayerID  string
	Amount    int64
	Kind      BetKind
}

type BetRefundedPayload struct {
	RoundID  string
	SeatID   int
	PlayerID string
	Amount   int64
}

// HandUpdatedPayload carries a hand's full card list. SeatID is DealerSeat
// for the dealer.
type HandUpdatedPayload struct {
	RoundID   string
	SeatID    int
	HandIndex int
	PlayerID  string
	Cards     []Card
	Status    HandStatus
	Bet       int64
}

type PhaseChangedPayload struct {
	RoundID string
	From    Phase
	To      Phase
}

type ShoeReshuffledPayload struct {
	RoundID  string
	MidRound bool
}

type HandSettledPayload struct {
	RoundID   string
	SeatID    int
	HandIndex int
	PlayerID  string
	Outcome   Outcome
	Bet       int64
	Payout    int64
	Forfeit   bool
}
