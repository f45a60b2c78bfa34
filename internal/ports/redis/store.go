// Package redis stores the round audit trail in Redis hashes and publishes
// each write on a per-table channel.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"blackjack/internal/domain"
	"blackjack/internal/ports"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const (
	statusOpen      = "open"
	statusClosed    = "closed"
	statusSettled   = "settled"
	statusAbandoned = "abandoned"
)

// AuditEvent is the message published for every write.
type AuditEvent struct {
	Type    string          `json:"type"`
	TableID string          `json:"table_id"`
	RoundID string          `json:"round_id,omitempty"`
	At      time.Time       `json:"at"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Store is a ports.RoundStore over Redis. Keys are namespaced so several
// deployments can share one server.
type Store struct {
	rdb   *goredis.Client
	ns    string
	now   func() time.Time
	newID func() string
}

var _ ports.RoundStore = (*Store)(nil)

// NewStore wraps an existing client.
func NewStore(rdb *goredis.Client, namespace string) (*Store, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}
	return &Store{rdb: rdb, ns: namespace, now: time.Now, newID: uuid.NewString}, nil
}

// Open connects to the server at url and checks connectivity.
func Open(ctx context.Context, url, namespace string) (*Store, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewStore(rdb, namespace)
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) RecordTableOpened(ctx context.Context, tableID string, cfg domain.Config) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode table config: %w", err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.HSet(ctx, tableKey(s.ns, tableID), map[string]interface{}{
			"config":    string(raw),
			"status":    statusOpen,
			"opened_at": s.now().UTC().Format(time.RFC3339Nano),
		})
		p.HDel(ctx, tableKey(s.ns, tableID), "closed_at")
		p.SAdd(ctx, openTablesKey(s.ns), tableID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record table opened: %w", err)
	}
	return s.publish(ctx, "table_opened", tableID, "", cfg)
}

func (s *Store) RecordTableClosed(ctx context.Context, tableID string) error {
	open, err := s.rdb.SMembers(ctx, tableOpenRoundsKey(s.ns, tableID)).Result()
	if err != nil {
		return fmt.Errorf("failed to read open rounds: %w", err)
	}
	now := s.now().UTC().Format(time.RFC3339Nano)
	_, err = s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		for _, roundID := range open {
			s.endRound(ctx, p, tableID, roundID, statusAbandoned, now)
		}
		p.HSet(ctx, tableKey(s.ns, tableID), "status", statusClosed, "closed_at", now)
		p.SRem(ctx, openTablesKey(s.ns), tableID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record table closed: %w", err)
	}
	return s.publish(ctx, "table_closed", tableID, "", nil)
}

func (s *Store) RecordRoundStart(ctx context.Context, tableID string) (string, error) {
	roundID := s.newID()
	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.HSet(ctx, roundKey(s.ns, roundID), map[string]interface{}{
			"table_id":   tableID,
			"status":     statusOpen,
			"phase":      string(domain.PhaseBetting),
			"started_at": s.now().UTC().Format(time.RFC3339Nano),
		})
		p.SAdd(ctx, openRoundsKey(s.ns), roundID)
		p.SAdd(ctx, tableOpenRoundsKey(s.ns, tableID), roundID)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to record round start: %w", err)
	}
	if err := s.publish(ctx, "round_started", tableID, roundID, nil); err != nil {
		return "", err
	}
	return roundID, nil
}

func (s *Store) RecordBet(ctx context.Context, rec ports.BetRecord) error {
	return s.writeRecord(ctx, "bet", rec.TableID, rec.RoundID,
		betsKey(s.ns, rec.RoundID), betField(rec.SeatID, rec.HandIndex, rec.Kind), rec)
}

func (s *Store) RecordHandUpdate(ctx context.Context, rec ports.HandRecord) error {
	return s.writeRecord(ctx, "hand", rec.TableID, rec.RoundID,
		handsKey(s.ns, rec.RoundID), handField(rec.SeatID, rec.HandIndex), rec)
}

func (s *Store) RecordSettlement(ctx context.Context, rec ports.SettlementRecord) error {
	return s.writeRecord(ctx, "settlement", rec.TableID, rec.RoundID,
		settlementsKey(s.ns, rec.RoundID), handField(rec.SeatID, rec.HandIndex), rec)
}

// RecordPhase tracks a round's phase. Returning to betting settles it.
func (s *Store) RecordPhase(ctx context.Context, tableID, roundID string, phase domain.Phase) error {
	if roundID == "" {
		return nil
	}
	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.HSet(ctx, roundKey(s.ns, roundID), "phase", string(phase))
		if phase == domain.PhaseBetting {
			s.endRound(ctx, p, tableID, roundID, statusSettled, s.now().UTC().Format(time.RFC3339Nano))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record phase: %w", err)
	}
	return s.publish(ctx, "phase", tableID, roundID, phase)
}

// AbandonOpenRounds voids every open round and closes every open table.
func (s *Store) AbandonOpenRounds(ctx context.Context) (int, error) {
	rounds, err := s.rdb.SMembers(ctx, openRoundsKey(s.ns)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read open rounds: %w", err)
	}
	tables, err := s.rdb.SMembers(ctx, openTablesKey(s.ns)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read open tables: %w", err)
	}

	owners := make(map[string]string, len(rounds))
	for _, roundID := range rounds {
		tableID, err := s.rdb.HGet(ctx, roundKey(s.ns, roundID), "table_id").Result()
		if err != nil && err != goredis.Nil {
			return 0, fmt.Errorf("failed to read round %s: %w", roundID, err)
		}
		owners[roundID] = tableID
	}

	now := s.now().UTC().Format(time.RFC3339Nano)
	_, err = s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		for roundID, tableID := range owners {
			s.endRound(ctx, p, tableID, roundID, statusAbandoned, now)
		}
		for _, tableID := range tables {
			p.HSet(ctx, tableKey(s.ns, tableID), "status", statusClosed, "closed_at", now)
		}
		p.Del(ctx, openTablesKey(s.ns))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to abandon open rounds: %w", err)
	}
	return len(rounds), nil
}

func (s *Store) endRound(ctx context.Context, p goredis.Pipeliner, tableID, roundID, status, at string) {
	p.HSet(ctx, roundKey(s.ns, roundID), "status", status, "ended_at", at)
	p.SRem(ctx, openRoundsKey(s.ns), roundID)
	if tableID != "" {
		p.SRem(ctx, tableOpenRoundsKey(s.ns, tableID), roundID)
	}
}

// writeRecord stores rec as JSON under field, overwriting a retried write,
// and publishes it.
func (s *Store) writeRecord(ctx context.Context, kind, tableID, roundID, key, field string, rec any) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", kind, err)
	}
	if err := s.rdb.HSet(ctx, key, field, raw).Err(); err != nil {
		return fmt.Errorf("failed to write %s to Redis: %w", kind, err)
	}
	return s.publishRaw(ctx, kind, tableID, roundID, raw)
}

func (s *Store) publish(ctx context.Context, kind, tableID, roundID string, data any) error {
	var raw []byte
	if data != nil {
		var err error
		if raw, err = json.Marshal(data); err != nil {
			return fmt.Errorf("failed to encode %s event: %w", kind, err)
		}
	}
	return s.publishRaw(ctx, kind, tableID, roundID, raw)
}

func (s *Store) publishRaw(ctx context.Context, kind, tableID, roundID string, raw []byte) error {
	msg, err := json.Marshal(AuditEvent{Type: kind, TableID: tableID, RoundID: roundID, At: s.now().UTC(), Data: raw})
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", kind, err)
	}
	if err := s.rdb.Publish(ctx, EventsChannel(s.ns, tableID), msg).Err(); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", kind, err)
	}
	return nil
}
