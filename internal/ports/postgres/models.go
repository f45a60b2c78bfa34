package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"blackjack/internal/domain"
	"blackjack/internal/ports"

	"gorm.io/datatypes"
)

type TableRow struct {
	ID       string         `gorm:"primaryKey" json:"id"`
	Config   datatypes.JSON `json:"config"`
	Status   string         `gorm:"index" json:"status"`
	OpenedAt time.Time      `json:"opened_at"`
	ClosedAt *time.Time     `json:"closed_at"`
}

func (TableRow) TableName() string { return "blackjack_tables" }

type RoundRow struct {
	ID        string     `gorm:"primaryKey" json:"id"`
	TableID   string     `gorm:"index" json:"table_id"`
	Status    string     `gorm:"index" json:"status"`
	Phase     string     `json:"phase"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`
}

func (RoundRow) TableName() string { return "blackjack_rounds" }

type BetRow struct {
	RoundID   string    `gorm:"primaryKey" json:"round_id"`
	SeatID    int       `gorm:"primaryKey;autoIncrement:false" json:"seat_id"`
	HandIndex int       `gorm:"primaryKey;autoIncrement:false" json:"hand_index"`
	Kind      string    `gorm:"primaryKey" json:"kind"`
	TableID   string    `json:"table_id"`
	PlayerID  string    `gorm:"index" json:"player_id"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

func (BetRow) TableName() string { return "blackjack_bets" }

type HandRow struct {
	RoundID   string         `gorm:"primaryKey" json:"round_id"`
	SeatID    int            `gorm:"primaryKey;autoIncrement:false" json:"seat_id"`
	HandIndex int            `gorm:"primaryKey;autoIncrement:false" json:"hand_index"`
	TableID   string         `json:"table_id"`
	PlayerID  string         `json:"player_id"`
	Cards     datatypes.JSON `json:"cards"`
	Status    string         `json:"status"`
	Bet       int64          `json:"bet"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (HandRow) TableName() string { return "blackjack_hands" }

type SettlementRow struct {
	RoundID   string    `gorm:"primaryKey" json:"round_id"`
	SeatID    int       `gorm:"primaryKey;autoIncrement:false" json:"seat_id"`
	HandIndex int       `gorm:"primaryKey;autoIncrement:false" json:"hand_index"`
	TableID   string    `json:"table_id"`
	PlayerID  string    `gorm:"index" json:"player_id"`
	Outcome   string    `json:"outcome"`
	Bet       int64     `json:"bet"`
	Payout    int64     `json:"payout"`
	Forfeit   bool      `json:"forfeit"`
	SettledAt time.Time `json:"settled_at"`
}

func (SettlementRow) TableName() string { return "blackjack_settlements" }

// models lists every row type for AutoMigrate.
func models() []interface{} {
	return []interface{}{&TableRow{}, &RoundRow{}, &BetRow{}, &HandRow{}, &SettlementRow{}}
}

func newTableRow(tableID string, cfg domain.Config, now time.Time) (TableRow, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return TableRow{}, fmt.Errorf("encode table config: %w", err)
	}
	return TableRow{ID: tableID, Config: datatypes.JSON(raw), Status: statusOpen, OpenedAt: now}, nil
}

func newBetRow(rec ports.BetRecord, now time.Time) BetRow {
	return BetRow{
		RoundID: rec.RoundID, SeatID: rec.SeatID, HandIndex: rec.HandIndex, Kind: rec.Kind,
		TableID: rec.TableID, PlayerID: rec.PlayerID, Amount: rec.Amount, CreatedAt: now,
	}
}

func newHandRow(rec ports.HandRecord, now time.Time) (HandRow, error) {
	cards := rec.Cards
	if cards == nil {
		cards = []domain.Card{}
	}
	raw, err := json.Marshal(cards)
	if err != nil {
		return HandRow{}, fmt.Errorf("encode cards: %w", err)
	}
	return HandRow{
		RoundID: rec.RoundID, SeatID: rec.SeatID, HandIndex: rec.HandIndex,
		TableID: rec.TableID, PlayerID: rec.PlayerID, Cards: datatypes.JSON(raw),
		Status: string(rec.Status), Bet: rec.Bet, UpdatedAt: now,
	}, nil
}

func newSettlementRow(rec ports.SettlementRecord, now time.Time) SettlementRow {
	return SettlementRow{
		RoundID: rec.RoundID, SeatID: rec.SeatID, HandIndex: rec.HandIndex,
		TableID: rec.TableID, PlayerID: rec.PlayerID, Outcome: string(rec.Outcome),
		Bet: rec.Bet, Payout: rec.Payout, Forfeit: rec.Forfeit, SettledAt: now,
	}
}

// DecodeCards reads a stored hand back into cards.
func (r HandRow) DecodeCards() ([]domain.Card, error) {
	var cards []domain.Card
	if err := json.Unmarshal(r.Cards, &cards); err != nil {
		return nil, fmt.Errorf("decode cards: %w", err)
	}
	return cards, nil
}
