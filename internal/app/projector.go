package app

import "blackjack/internal/domain"

// HandView is a hand as shown to clients.
type HandView struct {
	Cards   []domain.Card     `json:"cards"`
	Total   int               `json:"total"`
	Soft    bool              `json:"soft"`
	Bet     int64             `json:"bet"`
	Status  domain.HandStatus `json:"status"`
	Doubled bool              `json:"doubled,omitempty"`
}

// SeatView is a seat as shown to clients. IsCurrentTurn is only ever set on
// the viewer's own seat.
type SeatView struct {
	SeatID        int               `json:"seatId"`
	PlayerID      string            `json:"playerId,omitempty"`
	Status        domain.SeatStatus `json:"status"`
	Bet           int64             `json:"bet"`
	Hands         []HandView        `json:"hands"`
	ActiveHand    int               `json:"activeHand"`
	IsViewer      bool              `json:"isViewer,omitempty"`
	IsCurrentTurn bool              `json:"isCurrentTurn,omitempty"`
}

// DealerView carries only the dealer cards a player may see. Hidden counts
// the cards withheld.
type DealerView struct {
	Cards  []domain.Card `json:"cards"`
	Total  int           `json:"total"`
	Hidden int           `json:"hidden"`
}

// Projection is the per-viewer view of a table.
type Projection struct {
	TableID     string               `json:"tableId"`
	RoundID     string               `json:"roundId,omitempty"`
	Version     uint64               `json:"version"`
	Phase       domain.Phase         `json:"phase"`
	MinBet      int64                `json:"minBet"`
	MaxBet      int64                `json:"maxBet"`
	CurrentSeat int                  `json:"currentSeat"`
	Dealer      DealerView           `json:"dealer"`
	Seats       []SeatView           `json:"seats"`
	LastRound   *domain.RoundSummary `json:"lastRound,omitempty"`
}

// Project builds the view of snap for viewerID. The snapshot is not
// modified.
func Project(snap domain.Snapshot, viewerID string) Projection {
	p := Projection{
		TableID:     snap.TableID,
		RoundID:     snap.RoundID,
		Version:     snap.Version,
		Phase:       snap.Phase,
		MinBet:      snap.Config.MinBet,
		MaxBet:      snap.Config.MaxBet,
		CurrentSeat: snap.CurrentSeat,
		Dealer:      projectDealer(snap),
		Seats:       make([]SeatView, 0, len(snap.Seats)),
		LastRound:   snap.LastRound,
	}
	for _, seat := range snap.Seats {
		sv := SeatView{
			SeatID:     seat.ID,
			PlayerID:   seat.PlayerID,
			Status:     seat.Status,
			Bet:        seat.Bet(),
			Hands:      make([]HandView, 0, len(seat.Hands)),
			ActiveHand: seat.ActiveHand,
		}
		for _, h := range seat.Hands {
			total, soft := domain.Total(h.Cards), domain.IsSoft(h.Cards)
			sv.Hands = append(sv.Hands, HandView{
				Cards:   append([]domain.Card(nil), h.Cards...),
				Total:   total,
				Soft:    soft,
				Bet:     h.Bet,
				Status:  h.Status,
				Doubled: h.Doubled,
			})
		}
		if viewerID != "" && seat.PlayerID == viewerID {
			sv.IsViewer = true
			sv.IsCurrentTurn = snap.Phase == domain.PhasePlaying && snap.CurrentSeat == seat.ID
		}
		p.Seats = append(p.Seats, sv)
	}
	return p
}

func projectDealer(snap domain.Snapshot) DealerView {
	cards := snap.Dealer.Cards
	if concealed(snap) && len(cards) > 1 {
		visible := append([]domain.Card(nil), cards[:1]...)
		return DealerView{Cards: visible, Total: domain.Total(visible), Hidden: len(cards) - 1}
	}
	visible := append([]domain.Card{}, cards...)
	return DealerView{Cards: visible, Total: domain.Total(visible)}
}

func concealed(snap domain.Snapshot) bool {
	switch snap.Phase {
	case domain.PhaseBetting, domain.PhaseDealing, domain.PhasePlaying:
		return true
	}
	return snap.Dealer.HoleHidden
}
