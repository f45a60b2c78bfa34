package app

import (
	"context"
	"time"

	"blackjack/internal/domain"

	"go.uber.org/zap"
)

// armTimer starts the turn clock when the turn changes hands. The caller
// holds e.mu.
func (m *Manager) armTimer(e *tableEntry) {
	if m.turnTimeout <= 0 {
		return
	}
	t := e.table
	if t.Phase() != domain.PhasePlaying || t.CurrentSeat() == domain.NoSeat {
		e.stopTimer()
		return
	}
	seq := t.TurnSeq()
	if e.timer != nil && e.timerSeq == seq {
		return
	}
	e.stopTimer()

	tableID, seat := e.id, t.CurrentSeat()
	e.timerSeq = seq
	e.timer = time.AfterFunc(m.turnTimeout, func() { m.expireTurn(tableID, seat, seq) })
}

// expireTurn stands the seat if it still holds the same turn.
func (m *Manager) expireTurn(tableID string, seatID int, seq uint64) {
	e, err := m.entry(tableID)
	if err != nil {
		return
	}
	ctx := context.Background()
	err = m.withTable(ctx, e, func(r *run) error {
		// This timer has fired; a failed stand below must be able to re-arm.
		if r.e.timerSeq == seq {
			r.e.timer = nil
		}
		t := r.table()
		if t.Phase() != domain.PhasePlaying || t.TurnSeq() != seq || t.CurrentSeat() != seatID {
			return nil
		}
		m.logger.Info("turn timed out", zap.String("table_id", tableID), zap.Int("seat", seatID))
		return r.apply(func(t *domain.Table) ([]domain.Event, error) {
			return t.ForceStand(seatID)
		})
	})
	if err != nil {
		m.logger.Warn("force stand on timeout", zap.String("table_id", tableID), zap.Int("seat", seatID), zap.Error(err))
	}
}

func (e *tableEntry) stopTimer() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.timerSeq = 0
}
