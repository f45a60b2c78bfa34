// Package postgres implements the round store with gorm. It runs either on
// its own connection or over a database handle owned by the host server.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"blackjack/internal/domain"
	"blackjack/internal/ports"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const (
	statusOpen      = "open"
	statusClosed    = "closed"
	statusSettled   = "settled"
	statusAbandoned = "abandoned"
)

type Store struct {
	db       *gorm.DB
	ownsConn bool
	now      func() time.Time
	newID    func() string
}

var _ ports.RoundStore = (*Store)(nil)

// Open connects with a DSN and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	s, err := newStore(db)
	if err != nil {
		return nil, err
	}
	s.ownsConn = true
	return s, nil
}

// New wraps an existing connection pool, such as the one Nakama hands to
// its plugins, and migrates the schema.
func New(sqlDB *sql.DB) (*Store, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm over existing db: %w", err)
	}
	return newStore(db)
}

func gormConfig() *gorm.Config {
	return &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
}

func newStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(models()...); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}
	return &Store{db: db, now: time.Now, newID: uuid.NewString}, nil
}

// Close releases the connection pool. A pool handed in through New belongs
// to its owner and is left open.
func (s *Store) Close() error {
	if !s.ownsConn {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) RecordTableOpened(ctx context.Context, tableID string, cfg domain.Config) error {
	row, err := newTableRow(tableID, cfg, s.now().UTC())
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"config": row.Config, "status": statusOpen, "closed_at": nil}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("record table opened: %w", err)
	}
	return nil
}

// RecordTableClosed closes a table and abandons any round it left open.
func (s *Store) RecordTableClosed(ctx context.Context, tableID string) error {
	now := s.now().UTC()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&RoundRow{}).
			Where("table_id = ? AND status = ?", tableID, statusOpen).
			Updates(map[string]interface{}{"status": statusAbandoned, "ended_at": now}).Error; err != nil {
			return err
		}
		return tx.Model(&TableRow{}).
			Where("id = ?", tableID).
			Updates(map[string]interface{}{"status": statusClosed, "closed_at": now}).Error
	})
	if err != nil {
		return fmt.Errorf("record table closed: %w", err)
	}
	return nil
}

func (s *Store) RecordRoundStart(ctx context.Context, tableID string) (string, error) {
	row := RoundRow{
		ID:        s.newID(),
		TableID:   tableID,
		Status:    statusOpen,
		Phase:     string(domain.PhaseBetting),
		StartedAt: s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("record round start: %w", err)
	}
	return row.ID, nil
}

func (s *Store) RecordBet(ctx context.Context, rec ports.BetRecord) error {
	row := newBetRow(rec, s.now().UTC())
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "round_id"}, {Name: "seat_id"}, {Name: "hand_index"}, {Name: "kind"}},
		DoUpdates: clause.AssignmentColumns([]string{"player_id", "amount"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("record bet: %w", err)
	}
	return nil
}

func (s *Store) RecordHandUpdate(ctx context.Context, rec ports.HandRecord) error {
	row, err := newHandRow(rec, s.now().UTC())
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "round_id"}, {Name: "seat_id"}, {Name: "hand_index"}},
		DoUpdates: clause.AssignmentColumns([]string{"player_id", "cards", "status", "bet", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("record hand update: %w", err)
	}
	return nil
}

func (s *Store) RecordSettlement(ctx context.Context, rec ports.SettlementRecord) error {
	row := newSettlementRow(rec, s.now().UTC())
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "round_id"}, {Name: "seat_id"}, {Name: "hand_index"}},
		DoUpdates: clause.AssignmentColumns([]string{"player_id", "outcome", "bet", "payout", "forfeit"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("record settlement: %w", err)
	}
	return nil
}

// RecordPhase tracks a round's phase. Returning to betting settles it.
func (s *Store) RecordPhase(ctx context.Context, tableID, roundID string, phase domain.Phase) error {
	if roundID == "" {
		return nil
	}
	updates := map[string]interface{}{"phase": string(phase)}
	if phase == domain.PhaseBetting {
		updates["status"] = statusSettled
		updates["ended_at"] = s.now().UTC()
	}
	err := s.db.WithContext(ctx).Model(&RoundRow{}).
		Where("id = ? AND table_id = ?", roundID, tableID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("record phase: %w", err)
	}
	return nil
}

// AbandonOpenRounds voids every open round and closes every open table.
func (s *Store) AbandonOpenRounds(ctx context.Context) (int, error) {
	now := s.now().UTC()
	var n int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&RoundRow{}).
			Where("status = ?", statusOpen).
			Updates(map[string]interface{}{"status": statusAbandoned, "ended_at": now})
		if res.Error != nil {
			return res.Error
		}
		n = res.RowsAffected
		return tx.Model(&TableRow{}).
			Where("status = ?", statusOpen).
			Updates(map[string]interface{}{"status": statusClosed, "closed_at": now}).Error
	})
	if err != nil {
		return 0, fmt.Errorf("abandon open rounds: %w", err)
	}
	return int(n), nil
}
