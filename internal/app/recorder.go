package app

import (
	"context"
	"fmt"

	"blackjack/internal/domain"
	"blackjack/internal/ports"

	"go.uber.org/zap"
)

// record writes a step's events to the round store in order, then applies
// the step's wallet changes in one call.
func (m *Manager) record(ctx context.Context, tableID string, events []domain.Event) error {
	var wallet []ports.WalletUpdate
	for _, ev := range events {
		switch p := ev.Payload.(type) {
		case domain.BetPlacedPayload:
			if err := m.store.RecordBet(ctx, ports.BetRecord{
				RoundID: p.RoundID, TableID: tableID, SeatID: p.SeatID, HandIndex: p.HandIndex,
				PlayerID: p.PlayerID, Amount: p.Amount, Kind: string(p.Kind),
			}); err != nil {
				return fmt.Errorf("record bet: %w", err)
			}
			wallet = append(wallet, walletUpdate(p.PlayerID, -p.Amount, tableID, p.RoundID, string(p.Kind)))

		case domain.BetRefundedPayload:
			if err := m.store.RecordBet(ctx, ports.BetRecord{
				RoundID: p.RoundID, TableID: tableID, SeatID: p.SeatID,
				PlayerID: p.PlayerID, Amount: -p.Amount, Kind: ports.BetRefund,
			}); err != nil {
				return fmt.Errorf("record refund: %w", err)
			}
			wallet = append(wallet, walletUpdate(p.PlayerID, p.Amount, tableID, p.RoundID, ports.BetRefund))

		case domain.HandUpdatedPayload:
			if err := m.store.RecordHandUpdate(ctx, ports.HandRecord{
				RoundID: p.RoundID, TableID: tableID, SeatID: p.SeatID, HandIndex: p.HandIndex,
				PlayerID: p.PlayerID, Cards: p.Cards, Status: p.Status, Bet: p.Bet,
			}); err != nil {
				return fmt.Errorf("record hand: %w", err)
			}

		case domain.HandSettledPayload:
			if err := m.store.RecordSettlement(ctx, ports.SettlementRecord{
				RoundID: p.RoundID, TableID: tableID, SeatID: p.SeatID, HandIndex: p.HandIndex,
				PlayerID: p.PlayerID, Outcome: p.Outcome, Bet: p.Bet, Payout: p.Payout, Forfeit: p.Forfeit,
			}); err != nil {
				return fmt.Errorf("record settlement: %w", err)
			}
			if p.Payout > 0 {
				wallet = append(wallet, walletUpdate(p.PlayerID, p.Payout, tableID, p.RoundID, string(p.Outcome)))
			}

		case domain.PhaseChangedPayload:
			if err := m.store.RecordPhase(ctx, tableID, p.RoundID, p.To); err != nil {
				return fmt.Errorf("record phase: %w", err)
			}

		case domain.ShoeReshuffledPayload:
			if p.MidRound {
				m.logger.Warn("shoe exhausted mid-round", zap.String("table_id", tableID), zap.String("round_id", p.RoundID))
			} else {
				m.logger.Debug("shoe reshuffled", zap.String("table_id", tableID))
			}
		}
	}

	if m.economy == nil || len(wallet) == 0 {
		return nil
	}
	if err := m.economy.UpdateBalances(ctx, wallet); err != nil {
		return fmt.Errorf("update wallets: %w", err)
	}
	return nil
}

// checkFunds rejects a step whose stakes exceed a player's balance.
func (m *Manager) checkFunds(ctx context.Context, events []domain.Event) error {
	if m.economy == nil {
		return nil
	}
	stakes := make(map[string]int64)
	var order []string
	for _, ev := range events {
		p, ok := ev.Payload.(domain.BetPlacedPayload)
		if !ok {
			continue
		}
		if _, seen := stakes[p.PlayerID]; !seen {
			order = append(order, p.PlayerID)
		}
		stakes[p.PlayerID] += p.Amount
	}
	for _, playerID := range order {
		balance, err := m.economy.GetBalance(ctx, playerID)
		if err != nil {
			return fmt.Errorf("%w: balance for %s: %w", ErrPersistence, playerID, err)
		}
		if balance < stakes[playerID] {
			return ErrInsufficientFunds
		}
	}
	return nil
}

func walletUpdate(playerID string, amount int64, tableID, roundID, reason string) ports.WalletUpdate {
	return ports.WalletUpdate{
		UserID: playerID,
		Amount: amount,
		Metadata: map[string]interface{}{
			"table_id": tableID,
			"round_id": roundID,
			"reason":   reason,
		},
	}
}
