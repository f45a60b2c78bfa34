package domain

import "fmt"

// Phase represents the lifecycle stage of a table round.
type Phase string

const (
	// PhaseBetting accepts joins, leaves and bets.
	PhaseBetting Phase = "betting"
	// PhaseDealing is transient: every seated player has bet and cards are due.
	PhaseDealing Phase = "dealing"
	// PhasePlaying accepts hit, stand, double and split from the current seat.
	PhasePlaying Phase = "playing"
	// PhaseDealerTurn is transient: the dealer draws to its stand rule.
	PhaseDealerTurn Phase = "dealer_turn"
	// PhaseCompleting is transient: hands are settled and the table resets.
	PhaseCompleting Phase = "completing"
)

// Transient reports whether the phase is advanced by the server rather than
// by player intents.
func (p Phase) Transient() bool {
	return p == PhaseDealing || p == PhaseDealerTurn || p == PhaseCompleting
}

// SeatStatus is the lifecycle of one seat within a round.
type SeatStatus string

const (
	SeatEmpty     SeatStatus = "empty"
	SeatBetting   SeatStatus = "betting"
	SeatReady     SeatStatus = "ready"
	SeatPlaying   SeatStatus = "playing"
	SeatStanding  SeatStatus = "standing"
	SeatBusted    SeatStatus = "busted"
	SeatBlackjack SeatStatus = "blackjack"
)

// HandStatus is the state of a single hand.
type HandStatus string

const (
	HandPending   HandStatus = "pending"
	HandPlaying   HandStatus = "playing"
	HandStanding  HandStatus = "standing"
	HandBusted    HandStatus = "busted"
	HandBlackjack HandStatus = "blackjack"
)

// Resolved reports whether the hand takes no further actions.
func (s HandStatus) Resolved() bool {
	return s == HandStanding || s == HandBusted || s == HandBlackjack
}

// Action is a player decision on the active hand.
type Action string

const (
	ActionHit    Action = "hit"
	ActionStand  Action = "stand"
	ActionDouble Action = "double"
	ActionSplit  Action = "split"
)

// ParseAction validates a wire action name.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionHit, ActionStand, ActionDouble, ActionSplit:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Outcome is the settlement result of one hand.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLose Outcome = "lose"
	OutcomePush Outcome = "push"
)

// NoSeat marks the absence of a current turn.
const NoSeat = -1

// DealerSeat identifies the dealer hand in hand records.
const DealerSeat = -1

// Hand is one set of cards played against the dealer with its own stake.
type Hand struct {
	Cards   []Card     `json:"cards"`
	Bet     int64      `json:"bet"`
	Status  HandStatus `json:"status"`
	Doubled bool       `json:"doubled,omitempty"`
}

// Seat is a position at the table.
type Seat struct {
	ID         int        `json:"id"`
	PlayerID   string     `json:"playerId,omitempty"`
	Status     SeatStatus `json:"status"`
	Hands      []Hand     `json:"hands,omitempty"`
	ActiveHand int        `json:"activeHand"`
}

// Occupied reports whether a player sits in the seat.
func (s Seat) Occupied() bool {
	return s.PlayerID != ""
}

// Bet returns the total stake across the seat's hands.
func (s Seat) Bet() int64 {
	var total int64
	for _, h := range s.Hands {
		total += h.Bet
	}
	return total
}

// Dealer is the house hand. HoleHidden is set while the second card is
// face down.
type Dealer struct {
	Cards      []Card `json:"cards"`
	HoleHidden bool   `json:"holeHidden"`
}

// HandResult is the settled outcome of one player hand.
type HandResult struct {
	SeatID    int     `json:"seatId"`
	HandIndex int     `json:"handIndex"`
	PlayerID  string  `json:"playerId"`
	Cards     []Card  `json:"cards"`
	Total     int     `json:"total"`
	Bet       int64   `json:"bet"`
	Outcome   Outcome `json:"outcome"`
	Payout    int64   `json:"payout"`
}

// RoundSummary records how the previous round ended.
type RoundSummary struct {
	RoundID     string       `json:"roundId"`
	DealerCards []Card       `json:"dealerCards"`
	DealerTotal int          `json:"dealerTotal"`
	Results     []HandResult `json:"results"`
}

func cloneHands(hands []Hand) []Hand {
	if hands == nil {
		return nil
	}
	out := make([]Hand, len(hands))
	for i, h := range hands {
		h.Cards = cloneCards(h.Cards)
		out[i] = h
	}
	return out
}

func cloneSeats(seats []Seat) []Seat {
	out := make([]Seat, len(seats))
	for i, s := range seats {
		s.Hands = cloneHands(s.Hands)
		out[i] = s
	}
	return out
}

func (r *RoundSummary) clone() *RoundSummary {
	if r == nil {
		return nil
	}
	out := *r
	out.DealerCards = cloneCards(r.DealerCards)
	out.Results = make([]HandResult, len(r.Results))
	for i, res := range r.Results {
		res.Cards = cloneCards(res.Cards)
		out.Results[i] = res
	}
	return &out
}
