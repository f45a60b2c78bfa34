// Package sqlite provides a SQLite-backed round store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"blackjack/internal/domain"
	"blackjack/internal/ports"
	"blackjack/internal/ports/sqlite/migrations"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Row states.
const (
	tableOpen      = "open"
	tableClosed    = "closed"
	roundOpen      = "open"
	roundSettled   = "settled"
	roundAbandoned = "abandoned"
)

const errNotConfigured = "storage is not configured"

// Store persists tables, rounds, bets, hands and settlements in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
	newID func() string
}

var _ ports.RoundStore = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// Open opens a SQLite round store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now, newID: uuid.NewString}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return errors.New(errNotConfigured)
	}
	return nil
}

// RecordTableOpened inserts a table row with its rule set.
func (s *Store) RecordTableOpened(ctx context.Context, tableID string, cfg domain.Config) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if tableID == "" {
		return fmt.Errorf("table id is required")
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode table config: %w", err)
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO tables (id, config, status, opened_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET config = excluded.config, status = excluded.status, closed_at = NULL`,
		tableID, string(raw), tableOpen, toMillis(s.now()),
	)
	if err != nil {
		return fmt.Errorf("record table opened: %w", err)
	}
	return nil
}

// RecordTableClosed closes a table and abandons any round it left open.
func (s *Store) RecordTableClosed(ctx context.Context, tableID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	now := toMillis(s.now())
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin close table: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE rounds SET status = ?, ended_at = ? WHERE table_id = ? AND status = ?`,
		roundAbandoned, now, tableID, roundOpen,
	); err != nil {
		return fmt.Errorf("abandon table rounds: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE tables SET status = ?, closed_at = ? WHERE id = ?`,
		tableClosed, now, tableID,
	); err != nil {
		return fmt.Errorf("record table closed: %w", err)
	}
	return tx.Commit()
}

// RecordRoundStart creates an open round and returns its ID.
func (s *Store) RecordRoundStart(ctx context.Context, tableID string) (string, error) {
	if err := s.ready(ctx); err != nil {
		return "", err
	}
	roundID := s.newID()
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO rounds (id, table_id, status, phase, started_at) VALUES (?, ?, ?, ?, ?)`,
		roundID, tableID, roundOpen, string(domain.PhaseBetting), toMillis(s.now()),
	)
	if err != nil {
		return "", fmt.Errorf("record round start: %w", err)
	}
	return roundID, nil
}

// RecordBet stores a stake, keyed by seat, hand and kind.
func (s *Store) RecordBet(ctx context.Context, rec ports.BetRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO bets (round_id, seat_id, hand_index, kind, player_id, amount, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(round_id, seat_id, hand_index, kind) DO UPDATE SET
		   player_id = excluded.player_id, amount = excluded.amount`,
		rec.RoundID, rec.SeatID, rec.HandIndex, rec.Kind, rec.PlayerID, rec.Amount, toMillis(s.now()),
	)
	if err != nil {
		return fmt.Errorf("record bet: %w", err)
	}
	return nil
}

// RecordHandUpdate overwrites the latest state of a hand.
func (s *Store) RecordHandUpdate(ctx context.Context, rec ports.HandRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	cards, err := json.Marshal(rec.Cards)
	if err != nil {
		return fmt.Errorf("encode cards: %w", err)
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO hands (round_id, seat_id, hand_index, player_id, cards, status, bet, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(round_id, seat_id, hand_index) DO UPDATE SET
		   player_id = excluded.player_id, cards = excluded.cards, status = excluded.status,
		   bet = excluded.bet, updated_at = excluded.updated_at`,
		rec.RoundID, rec.SeatID, rec.HandIndex, rec.PlayerID, string(cards), string(rec.Status), rec.Bet, toMillis(s.now()),
	)
	if err != nil {
		return fmt.Errorf("record hand update: %w", err)
	}
	return nil
}

// RecordSettlement stores the result of one hand.
func (s *Store) RecordSettlement(ctx context.Context, rec ports.SettlementRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	forfeit := 0
	if rec.Forfeit {
		forfeit = 1
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO settlements (round_id, seat_id, hand_index, player_id, outcome, bet, payout, forfeit, settled_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(round_id, seat_id, hand_index) DO UPDATE SET
		   player_id = excluded.player_id, outcome = excluded.outcome, bet = excluded.bet,
		   payout = excluded.payout, forfeit = excluded.forfeit`,
		rec.RoundID, rec.SeatID, rec.HandIndex, rec.PlayerID, string(rec.Outcome), rec.Bet, rec.Payout, forfeit, toMillis(s.now()),
	)
	if err != nil {
		return fmt.Errorf("record settlement: %w", err)
	}
	return nil
}

// RecordPhase tracks a round's phase. Returning to betting settles it.
func (s *Store) RecordPhase(ctx context.Context, tableID, roundID string, phase domain.Phase) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if roundID == "" {
		return nil
	}
	var err error
	if phase == domain.PhaseBetting {
		_, err = s.sqlDB.ExecContext(ctx,
			`UPDATE rounds SET phase = ?, status = ?, ended_at = ? WHERE id = ? AND table_id = ?`,
			string(phase), roundSettled, toMillis(s.now()), roundID, tableID,
		)
	} else {
		_, err = s.sqlDB.ExecContext(ctx,
			`UPDATE rounds SET phase = ? WHERE id = ? AND table_id = ?`,
			string(phase), roundID, tableID,
		)
	}
	if err != nil {
		return fmt.Errorf("record phase: %w", err)
	}
	return nil
}

// AbandonOpenRounds voids every open round and closes every open table.
func (s *Store) AbandonOpenRounds(ctx context.Context) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	now := toMillis(s.now())
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin abandon: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE rounds SET status = ?, ended_at = ? WHERE status = ?`,
		roundAbandoned, now, roundOpen,
	)
	if err != nil {
		return 0, fmt.Errorf("abandon rounds: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count abandoned rounds: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE tables SET status = ?, closed_at = ? WHERE status = ?`,
		tableClosed, now, tableOpen,
	); err != nil {
		return 0, fmt.Errorf("close tables: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit abandon: %w", err)
	}
	return int(n), nil
}
