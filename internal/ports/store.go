package ports

import (
	"context"

	"blackjack/internal/domain"
)

// BetRecord is one stake added to a hand. Refunds carry a negative amount.
type BetRecord struct {
	RoundID   string `json:"round_id"`
	TableID   string `json:"table_id"`
	SeatID    int    `json:"seat_id"`
	HandIndex int    `json:"hand_index"`
	PlayerID  string `json:"player_id"`
	Amount    int64  `json:"amount"`
	Kind      string `json:"kind"`
}

// BetRefund is the record kind used when a stake is returned.
const BetRefund = "refund"

// HandRecord is the latest state of a hand. SeatID is domain.DealerSeat for
// the dealer.
type HandRecord struct {
	RoundID   string            `json:"round_id"`
	TableID   string            `json:"table_id"`
	SeatID    int               `json:"seat_id"`
	HandIndex int               `json:"hand_index"`
	PlayerID  string            `json:"player_id"`
	Cards     []domain.Card     `json:"cards"`
	Status    domain.HandStatus `json:"status"`
	Bet       int64             `json:"bet"`
}

// SettlementRecord is the final result of one hand.
type SettlementRecord struct {
	RoundID   string         `json:"round_id"`
	TableID   string         `json:"table_id"`
	SeatID    int            `json:"seat_id"`
	HandIndex int            `json:"hand_index"`
	PlayerID  string         `json:"player_id"`
	Outcome   domain.Outcome `json:"outcome"`
	Bet       int64          `json:"bet"`
	Payout    int64          `json:"payout"`
	Forfeit   bool           `json:"forfeit"`
}

// RoundStore is the durable audit trail of tables, rounds, bets and results.
// Every write is keyed by its natural key so a retried write overwrites
// rather than duplicates.
type RoundStore interface {
	RecordTableOpened(ctx context.Context, tableID string, cfg domain.Config) error
	RecordTableClosed(ctx context.Context, tableID string) error
	RecordRoundStart(ctx context.Context, tableID string) (string, error)
	RecordBet(ctx context.Context, rec BetRecord) error
	RecordHandUpdate(ctx context.Context, rec HandRecord) error
	RecordSettlement(ctx context.Context, rec SettlementRecord) error
	RecordPhase(ctx context.Context, tableID, roundID string, phase domain.Phase) error

	// AbandonOpenRounds voids rounds left unsettled by a previous process and
	// closes their tables. It returns the number of rounds voided.
	AbandonOpenRounds(ctx context.Context) (int, error)
}
