package domain

// Snapshot is a point-in-time copy of a table. It shares no memory with the
// live table and is safe to read from any goroutine.
type Snapshot struct {
	TableID       string
	RoundID       string
	Version       uint64
	TurnSeq       uint64
	Phase         Phase
	Config        Config
	CurrentSeat   int
	Dealer        Dealer
	Seats         []Seat
	LastRound     *RoundSummary
	ShoeRemaining int
}

// SeatOf returns the seat held by the player.
func (s Snapshot) SeatOf(playerID string) (Seat, bool) {
	if playerID == "" {
		return Seat{}, false
	}
	for _, seat := range s.Seats {
		if seat.PlayerID == playerID {
			return seat, true
		}
	}
	return Seat{}, false
}

// Occupied returns the number of seated players.
func (s Snapshot) Occupied() int {
	n := 0
	for _, seat := range s.Seats {
		if seat.Occupied() {
			n++
		}
	}
	return n
}

// PlayerIDs lists seated players in seat order.
func (s Snapshot) PlayerIDs() []string {
	var ids []string
	for _, seat := range s.Seats {
		if seat.Occupied() {
			ids = append(ids, seat.PlayerID)
		}
	}
	return ids
}
