package domain

import "math/rand"

// dealerStandTotal is the total at which the dealer stops drawing.
const dealerStandTotal = 17

// Table is the authoritative state of one blackjack table. It is not safe for
// concurrent use; callers serialize access per table.
//
// Every mutating method validates before it changes anything, so a returned
// error means the table is untouched.
type Table struct {
	id      string
	cfg     Config
	phase   Phase
	roundID string
	seats   []Seat
	dealer  Dealer
	current int
	shoe    *Shoe

	version uint64
	turnSeq uint64
	last    *RoundSummary
}

// NewTable creates an empty table in the betting phase. A nil shoe is
// replaced by a shuffled shoe of cfg.Decks decks.
func NewTable(id string, cfg Config, shoe *Shoe) (*Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if shoe == nil {
		shoe = NewShoe(cfg.Decks, nil)
	}
	seats := make([]Seat, cfg.Seats)
	for i := range seats {
		seats[i] = Seat{ID: i, Status: SeatEmpty}
	}
	return &Table{
		id:      id,
		cfg:     cfg,
		phase:   PhaseBetting,
		seats:   seats,
		current: NoSeat,
		shoe:    shoe,
	}, nil
}

// NewTableWithRand is NewTable with a shoe shuffled by rng.
func NewTableWithRand(id string, cfg Config, rng *rand.Rand) (*Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return NewTable(id, cfg, NewShoe(cfg.Decks, rng))
}

func (t *Table) ID() string { return t.id }
func (t *Table) Config() Config { return t.cfg }
func (t *Table) Phase() Phase { return t.phase }
func (t *Table) RoundID() string { return t.roundID }
func (t *Table) CurrentSeat() int { return t.current }
func (t *Table) Version() uint64 { return t.version }
func (t *Table) TurnSeq() uint64 { return t.turnSeq }
func (t *Table) Capacity() int { return len(t.seats) }
func (t *Table) ShoeRemaining() int { return t.shoe.Remaining() }

// Occupied returns the number of seated players.
func (t *Table) Occupied() int {
	n := 0
	for _, s := range t.seats {
		if s.Occupied() {
			n++
		}
	}
	return n
}

// SeatOf returns the seat held by the player.
func (t *Table) SeatOf(playerID string) (int, bool) {
	if playerID == "" {
		return NoSeat, false
	}
	for _, s := range t.seats {
		if s.PlayerID == playerID {
			return s.ID, true
		}
	}
	return NoSeat, false
}

// Clone returns a deep copy that shares only the shoe's random source.
func (t *Table) Clone() *Table {
	out := *t
	out.seats = cloneSeats(t.seats)
	out.dealer = Dealer{Cards: cloneCards(t.dealer.Cards), HoleHidden: t.dealer.HoleHidden}
	out.shoe = t.shoe.clone()
	out.last = t.last.clone()
	return &out
}

// OpenRound starts a new round identified by roundID.
func (t *Table) OpenRound(roundID string) ([]Event, error) {
	if t.phase != PhaseBetting || t.roundID != "" || roundID == "" {
		return nil, ErrInvalidPhase
	}
	t.roundID = roundID
	return t.commit(Event{Kind: EventRoundOpened, Payload: RoundOpenedPayload{RoundID: roundID}}), nil
}

// Join seats the player in the lowest empty seat.
func (t *Table) Join(playerID string) (int, []Event, error) {
	if _, ok := t.SeatOf(playerID); ok {
		return NoSeat, nil, ErrAlreadySeated
	}
	for i := range t.seats {
		if t.seats[i].Occupied() {
			continue
		}
		t.seats[i] = Seat{ID: i, PlayerID: playerID, Status: SeatBetting}
		return i, t.commit(Event{Kind: EventSeatTaken, Payload: SeatTakenPayload{SeatID: i, PlayerID: playerID}}), nil
	}
	return NoSeat, nil, ErrTableFull
}

// Leave vacates the player's seat. Hands still in play are forfeited and a
// stake placed during betting is refunded.
func (t *Table) Leave(playerID string) ([]Event, error) {
	id, ok := t.SeatOf(playerID)
	if !ok {
		return nil, ErrPlayerNotSeated
	}
	seat := &t.seats[id]
	var events []Event

	switch {
	case seat.Status == SeatReady:
		// Cards were never dealt, so the stake goes back.
		events = append(events, Event{Kind: EventBetRefunded, Payload: BetRefundedPayload{
			RoundID: t.roundID, SeatID: id, PlayerID: playerID, Amount: seat.Bet(),
		}})
	case t.phase != PhaseBetting && len(seat.Hands) > 0:
		for i, h := range seat.Hands {
			events = append(events, Event{Kind: EventHandSettled, Payload: HandSettledPayload{
				RoundID: t.roundID, SeatID: id, HandIndex: i, PlayerID: playerID,
				Outcome: OutcomeLose, Bet: h.Bet, Forfeit: true,
			}})
		}
	}

	*seat = Seat{ID: id, Status: SeatEmpty}
	events = append(events, Event{Kind: EventSeatVacated, Payload: SeatVacatedPayload{SeatID: id, PlayerID: playerID}})

	switch {
	case t.Occupied() == 0:
		if t.phase != PhaseBetting {
			events = append(events, t.setPhase(PhaseBetting))
		}
		t.dealer = Dealer{}
		if t.current != NoSeat {
			t.current = NoSeat
			t.turnSeq++
		}
	case t.phase == PhaseBetting && t.allReady():
		events = append(events, t.setPhase(PhaseDealing))
	case t.phase == PhasePlaying && t.current == id:
		events = append(events, t.advanceTurn()...)
	}
	return t.commit(events...), nil
}

// PlaceBet records the seat's stake and marks it ready. When every seated
// player is ready the table moves to dealing.
func (t *Table) PlaceBet(seatID int, amount int64) ([]Event, error) {
	if t.phase != PhaseBetting || t.roundID == "" {
		return nil, ErrInvalidPhase
	}
	seat, err := t.occupiedSeat(seatID)
	if err != nil {
		return nil, err
	}
	if seat.Status != SeatBetting {
		return nil, ErrInvalidPhase
	}
	if amount < t.cfg.MinBet || amount > t.cfg.MaxBet {
		return nil, ErrBetOutOfRange
	}

	seat.Hands = []Hand{{Bet: amount, Status: HandPending}}
	seat.ActiveHand = 0
	seat.Status = SeatReady
	events := []Event{{Kind: EventBetPlaced, Payload: BetPlacedPayload{
		RoundID: t.roundID, SeatID: seatID, PlayerID: seat.PlayerID, Amount: amount, Kind: BetInitial,
	}}}
	if t.allReady() {
		events = append(events, t.setPhase(PhaseDealing))
	}
	return t.commit(events...), nil
}

// Deal gives two cards to every ready seat and the dealer, then hands the
// turn to the first playing seat. A dealer natural showing an ace or ten is
// revealed at once and the round goes straight to settlement.
func (t *Table) Deal() ([]Event, error) {
	if t.phase != PhaseDealing {
		return nil, ErrInvalidPhase
	}
	var events []Event
	if t.shoe.NeedsReshuffle() {
		t.shoe.Reset()
		events = append(events, Event{Kind: EventShoeReshuffled, Payload: ShoeReshuffledPayload{RoundID: t.roundID}})
	}
	forced := t.shoe.ForcedResets()

	t.dealer = Dealer{}
	for pass := 0; pass < 2; pass++ {
		for i := range t.seats {
			if t.seats[i].Status != SeatReady {
				continue
			}
			h := &t.seats[i].Hands[0]
			h.Cards = append(h.Cards, t.shoe.Draw())
		}
		t.dealer.Cards = append(t.dealer.Cards, t.shoe.Draw())
	}
	t.dealer.HoleHidden = true
	if t.shoe.ForcedResets() != forced {
		events = append(events, Event{Kind: EventShoeReshuffled, Payload: ShoeReshuffledPayload{RoundID: t.roundID, MidRound: true}})
	}

	for i := range t.seats {
		seat := &t.seats[i]
		if seat.Status != SeatReady {
			continue
		}
		h := &seat.Hands[0]
		if IsBlackjack(h.Cards) {
			h.Status = HandBlackjack
			seat.Status = SeatBlackjack
		} else {
			h.Status = HandPlaying
			seat.Status = SeatPlaying
		}
		events = append(events, t.handUpdated(i, 0))
	}

	up := t.dealer.Cards[0]
	if (up.Rank == Ace || up.IsTenValue()) && IsBlackjack(t.dealer.Cards) {
		t.dealer.HoleHidden = false
		events = append(events, t.dealerUpdated(HandBlackjack))
		events = append(events, t.setPhase(PhaseCompleting))
		return t.commit(events...), nil
	}
	events = append(events, t.dealerUpdated(HandPlaying))

	t.current = NoSeat
	t.turnSeq++
	for i := range t.seats {
		if t.seats[i].Status == SeatPlaying {
			t.current = i
			break
		}
	}
	if t.current == NoSeat {
		events = append(events, t.setPhase(PhaseDealerTurn))
	} else {
		events = append(events, t.setPhase(PhasePlaying))
	}
	return t.commit(events...), nil
}

// Act applies a player decision to the active hand of the current seat.
func (t *Table) Act(seatID int, action Action) ([]Event, error) {
	if t.phase != PhasePlaying {
		return nil, ErrInvalidPhase
	}
	seat, err := t.occupiedSeat(seatID)
	if err != nil {
		return nil, err
	}
	if seatID != t.current {
		return nil, ErrNotYourTurn
	}
	hand := &seat.Hands[seat.ActiveHand]

	var events []Event
	switch action {
	case ActionHit:
		hand.Cards = append(hand.Cards, t.drawCard(&events))
		if IsBust(hand.Cards) {
			hand.Status = HandBusted
		}
		events = append(events, t.handUpdated(seatID, seat.ActiveHand))

	case ActionStand:
		hand.Status = HandStanding
		events = append(events, t.handUpdated(seatID, seat.ActiveHand))

	case ActionDouble:
		if len(hand.Cards) != 2 || hand.Doubled || (len(seat.Hands) > 1 && !t.cfg.DoubleAfterSplit) {
			return nil, ErrIllegalDouble
		}
		events = append(events, Event{Kind: EventBetPlaced, Payload: BetPlacedPayload{
			RoundID: t.roundID, SeatID: seatID, HandIndex: seat.ActiveHand, PlayerID: seat.PlayerID,
			Amount: hand.Bet, Kind: BetDouble,
		}})
		hand.Bet *= 2
		hand.Doubled = true
		hand.Cards = append(hand.Cards, t.drawCard(&events))
		if IsBust(hand.Cards) {
			hand.Status = HandBusted
		} else {
			hand.Status = HandStanding
		}
		events = append(events, t.handUpdated(seatID, seat.ActiveHand))

	case ActionSplit:
		if len(seat.Hands) != 1 || len(hand.Cards) != 2 || hand.Cards[0].Rank != hand.Cards[1].Rank {
			return nil, ErrIllegalSplit
		}
		second := Hand{Cards: []Card{hand.Cards[1]}, Bet: hand.Bet, Status: HandPlaying}
		hand.Cards = hand.Cards[:1]
		events = append(events, Event{Kind: EventBetPlaced, Payload: BetPlacedPayload{
			RoundID: t.roundID, SeatID: seatID, HandIndex: 1, PlayerID: seat.PlayerID,
			Amount: second.Bet, Kind: BetSplit,
		}})
		hand.Cards = append(hand.Cards, t.drawCard(&events))
		second.Cards = append(second.Cards, t.drawCard(&events))
		seat.Hands = append(seat.Hands, second)
		seat.ActiveHand = 0
		events = append(events, t.handUpdated(seatID, 0), t.handUpdated(seatID, 1))

	default:
		return nil, ErrUnknownAction
	}

	if seat.Hands[seat.ActiveHand].Status.Resolved() {
		events = append(events, t.resolveActiveHand(seatID)...)
	}
	return t.commit(events...), nil
}

// ForceStand stands the current seat's active hand on the server's behalf.
func (t *Table) ForceStand(seatID int) ([]Event, error) {
	return t.Act(seatID, ActionStand)
}

// DealerPlay reveals the hole card and draws until the dealer stands.
func (t *Table) DealerPlay() ([]Event, error) {
	if t.phase != PhaseDealerTurn {
		return nil, ErrInvalidPhase
	}
	var events []Event
	t.dealer.HoleHidden = false
	for t.dealerDraws() {
		t.dealer.Cards = append(t.dealer.Cards, t.drawCard(&events))
	}
	status := HandStanding
	if IsBust(t.dealer.Cards) {
		status = HandBusted
	}
	events = append(events, t.dealerUpdated(status))
	events = append(events, t.setPhase(PhaseCompleting))
	return t.commit(events...), nil
}

// Settle pays every hand in the round, then resets the seats for the next
// round of betting.
func (t *Table) Settle() ([]Event, error) {
	if t.phase != PhaseCompleting {
		return nil, ErrInvalidPhase
	}
	dealerTotal := Total(t.dealer.Cards)
	dealerBust := dealerTotal > BlackjackTotal

	summary := &RoundSummary{
		RoundID:     t.roundID,
		DealerCards: cloneCards(t.dealer.Cards),
		DealerTotal: dealerTotal,
	}
	var events []Event
	for i := range t.seats {
		seat := &t.seats[i]
		if !seat.Occupied() {
			continue
		}
		for hi, h := range seat.Hands {
			if len(h.Cards) == 0 {
				continue
			}
			outcome := settleHand(h, dealerTotal, dealerBust)
			payout := Payout(outcome, h.Bet)
			summary.Results = append(summary.Results, HandResult{
				SeatID: i, HandIndex: hi, PlayerID: seat.PlayerID, Cards: cloneCards(h.Cards),
				Total: Total(h.Cards), Bet: h.Bet, Outcome: outcome, Payout: payout,
			})
			events = append(events, Event{Kind: EventHandSettled, Payload: HandSettledPayload{
				RoundID: t.roundID, SeatID: i, HandIndex: hi, PlayerID: seat.PlayerID,
				Outcome: outcome, Bet: h.Bet, Payout: payout,
			}})
		}
		seat.Hands = nil
		seat.ActiveHand = 0
		seat.Status = SeatBetting
	}

	t.last = summary
	t.dealer = Dealer{}
	t.current = NoSeat
	events = append(events, t.setPhase(PhaseBetting))
	t.roundID = ""
	return t.commit(events...), nil
}

// Payout returns the amount credited back for a settled stake.
func Payout(outcome Outcome, bet int64) int64 {
	switch outcome {
	case OutcomeWin:
		return bet * 2
	case OutcomePush:
		return bet
	default:
		return 0
	}
}

func settleHand(h Hand, dealerTotal int, dealerBust bool) Outcome {
	total := Total(h.Cards)
	switch {
	case total > BlackjackTotal:
		return OutcomeLose
	case dealerBust:
		return OutcomeWin
	case total > dealerTotal:
		return OutcomeWin
	case total < dealerTotal:
		return OutcomeLose
	default:
		return OutcomePush
	}
}

// Snapshot returns an immutable deep copy of the table state.
func (t *Table) Snapshot() Snapshot {
	return Snapshot{
		TableID:       t.id,
		RoundID:       t.roundID,
		Version:       t.version,
		TurnSeq:       t.turnSeq,
		Phase:         t.phase,
		Config:        t.cfg,
		CurrentSeat:   t.current,
		Dealer:        Dealer{Cards: cloneCards(t.dealer.Cards), HoleHidden: t.dealer.HoleHidden},
		Seats:         cloneSeats(t.seats),
		LastRound:     t.last.clone(),
		ShoeRemaining: t.shoe.Remaining(),
	}
}

func (t *Table) occupiedSeat(seatID int) (*Seat, error) {
	if seatID < 0 || seatID >= len(t.seats) || !t.seats[seatID].Occupied() {
		return nil, ErrPlayerNotSeated
	}
	return &t.seats[seatID], nil
}

func (t *Table) allReady() bool {
	n := 0
	for _, s := range t.seats {
		if !s.Occupied() {
			continue
		}
		if s.Status != SeatReady {
			return false
		}
		n++
	}
	return n > 0
}

func (t *Table) dealerDraws() bool {
	total, soft := evaluate(t.dealer.Cards)
	if total < dealerStandTotal {
		return true
	}
	return total == dealerStandTotal && soft && t.cfg.DealerHitSoft17
}

// drawCard draws from the shoe and records a forced mid-round reshuffle.
func (t *Table) drawCard(events *[]Event) Card {
	forced := t.shoe.ForcedResets()
	c := t.shoe.Draw()
	if t.shoe.ForcedResets() != forced {
		*events = append(*events, Event{Kind: EventShoeReshuffled, Payload: ShoeReshuffledPayload{RoundID: t.roundID, MidRound: true}})
	}
	return c
}

// resolveActiveHand moves to the seat's next unresolved hand, or finishes the
// seat and passes the turn.
func (t *Table) resolveActiveHand(seatID int) []Event {
	seat := &t.seats[seatID]
	for i := seat.ActiveHand + 1; i < len(seat.Hands); i++ {
		if !seat.Hands[i].Status.Resolved() {
			seat.ActiveHand = i
			return nil
		}
	}
	seat.Status = SeatBusted
	for _, h := range seat.Hands {
		if h.Status != HandBusted {
			seat.Status = SeatStanding
			break
		}
	}
	return t.advanceTurn()
}

// advanceTurn gives the turn to the next playing seat after the current one,
// or hands over to the dealer.
func (t *Table) advanceTurn() []Event {
	t.turnSeq++
	for i := t.current + 1; i < len(t.seats); i++ {
		if t.seats[i].Status == SeatPlaying {
			t.current = i
			return nil
		}
	}
	t.current = NoSeat
	return []Event{t.setPhase(PhaseDealerTurn)}
}

func (t *Table) setPhase(p Phase) Event {
	from := t.phase
	t.phase = p
	return Event{Kind: EventPhaseChanged, Payload: PhaseChangedPayload{RoundID: t.roundID, From: from, To: p}}
}

func (t *Table) handUpdated(seatID, handIndex int) Event {
	seat := t.seats[seatID]
	h := seat.Hands[handIndex]
	return Event{Kind: EventHandUpdated, Payload: HandUpdatedPayload{
		RoundID: t.roundID, SeatID: seatID, HandIndex: handIndex, PlayerID: seat.PlayerID,
		Cards: cloneCards(h.Cards), Status: h.Status, Bet: h.Bet,
	}}
}

func (t *Table) dealerUpdated(status HandStatus) Event {
	return Event{Kind: EventHandUpdated, Payload: HandUpdatedPayload{
		RoundID: t.roundID, SeatID: DealerSeat, Cards: cloneCards(t.dealer.Cards), Status: status,
	}}
}

func (t *Table) commit(events ...Event) []Event {
	t.version++
	return events
}
