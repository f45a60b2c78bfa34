package app

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"blackjack/internal/domain"
	"blackjack/internal/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxCascadeSteps bounds the automatic phase advance after one operation.
// A full round needs four steps: open, deal, dealer play, settle.
const maxCascadeSteps = 8

// joinAttempts bounds retries when an auto-matched table fills or retires
// between lookup and seating. The last attempt always opens a new table.
const joinAttempts = 4

// Manager owns every live table. Operations on one table are serialized by
// that table's lock; operations on different tables never share a lock
// beyond short registry lookups.
type Manager struct {
	store       ports.RoundStore
	economy     ports.EconomyPort
	broadcaster *Broadcaster
	logger      *zap.Logger
	cfg         domain.Config
	turnTimeout time.Duration
	newID       func() string
	newShoe     func(domain.Config) *domain.Shoe

	mu      sync.RWMutex
	tables  map[string]*tableEntry
	players map[string]string // playerID -> tableID

	playerLocks keyedMutex
}

type tableEntry struct {
	id       string
	capacity int

	// occupied mirrors the table's seat count for lock-free matchmaking.
	occupied atomic.Int32

	mu       sync.Mutex
	table    *domain.Table
	retired  bool
	timer    *time.Timer
	timerSeq uint64
}

// Option configures a Manager.
type Option func(*Manager)

// WithEconomy debits stakes and credits payouts through the wallet.
func WithEconomy(e ports.EconomyPort) Option {
	return func(m *Manager) { m.economy = e }
}

// WithBroadcaster pushes state to viewers after every committed change.
func WithBroadcaster(b *Broadcaster) Option {
	return func(m *Manager) { m.broadcaster = b }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithTableConfig sets the rules used for new tables.
func WithTableConfig(cfg domain.Config) Option {
	return func(m *Manager) { m.cfg = cfg }
}

// WithTurnTimeout force-stands a seat that has held the turn for d.
// Zero disables the timer.
func WithTurnTimeout(d time.Duration) Option {
	return func(m *Manager) { m.turnTimeout = d }
}

// WithIDGenerator overrides table id generation.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) { m.newID = fn }
}

// WithShoeFactory overrides how new tables get their shoe.
func WithShoeFactory(fn func(domain.Config) *domain.Shoe) Option {
	return func(m *Manager) { m.newShoe = fn }
}

// NewManager creates a Manager that records to store.
func NewManager(store ports.RoundStore, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("round store is required")
	}
	m := &Manager{
		store:   store,
		logger:  zap.NewNop(),
		cfg:     domain.DefaultConfig(),
		newID:   uuid.NewString,
		newShoe: func(cfg domain.Config) *domain.Shoe { return domain.NewShoe(cfg.Decks, newRand()) },
		tables:  make(map[string]*tableEntry),
		players: make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.cfg.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// newRand returns a math/rand source seeded from the OS entropy pool.
func newRand() *rand.Rand {
	var b [8]byte
	seed := time.Now().UnixNano()
	if _, err := crand.Read(b[:]); err == nil {
		seed = int64(binary.LittleEndian.Uint64(b[:]))
	}
	return rand.New(rand.NewSource(seed))
}

// JoinRequest asks for a seat. An empty TableID joins any table with a free
// seat, creating one if needed. OnSeated, when set, runs while the table is
// still locked so the transport can bind the connection before the first
// broadcast.
type JoinRequest struct {
	PlayerID string
	TableID  string
	OnSeated func(tableID string, seatID int)
}

// JoinResult identifies the seat taken.
type JoinResult struct {
	TableID string
	SeatID  int
}

// TableSummary is the lobby view of a table.
type TableSummary struct {
	ID       string       `json:"id"`
	Occupied int          `json:"occupied"`
	Capacity int          `json:"capacity"`
	Phase    domain.Phase `json:"phase"`
	MinBet   int64        `json:"minBet"`
	MaxBet   int64        `json:"maxBet"`
}

// Join seats the player, leaving any table the player sits at first.
func (m *Manager) Join(ctx context.Context, req JoinRequest) (JoinResult, error) {
	if req.PlayerID == "" {
		return JoinResult{}, fmt.Errorf("%w: empty player id", domain.ErrPlayerNotSeated)
	}
	unlock := m.playerLocks.Lock(req.PlayerID)
	defer unlock()

	if req.TableID != "" {
		if _, err := m.entry(req.TableID); err != nil {
			return JoinResult{}, err
		}
	}
	if cur, ok := m.TableOf(req.PlayerID); ok {
		if req.TableID == "" || cur == req.TableID {
			req.TableID = cur
			return m.rejoin(ctx, req)
		}
		if err := m.leave(ctx, req.PlayerID, cur); err != nil && !errors.Is(err, domain.ErrTableNotFound) {
			return JoinResult{}, err
		}
	}

	var lastErr error
	for attempt := 0; attempt < joinAttempts; attempt++ {
		var (
			e   *tableEntry
			err error
		)
		switch {
		case req.TableID != "":
			e, err = m.entry(req.TableID)
		case attempt == joinAttempts-1:
			e, err = m.createTable(ctx)
		default:
			e, err = m.findOrCreate(ctx)
		}
		if err != nil {
			return JoinResult{}, err
		}

		res, err := m.joinEntry(ctx, e, req)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if req.TableID != "" || !(errors.Is(err, domain.ErrTableFull) || errors.Is(err, domain.ErrTableNotFound)) {
			return JoinResult{}, err
		}
	}
	return JoinResult{}, lastErr
}

func (m *Manager) joinEntry(ctx context.Context, e *tableEntry, req JoinRequest) (JoinResult, error) {
	res := JoinResult{TableID: e.id, SeatID: domain.NoSeat}
	err := m.withTable(ctx, e, func(r *run) error {
		err := r.apply(func(t *domain.Table) ([]domain.Event, error) {
			seat, events, err := t.Join(req.PlayerID)
			res.SeatID = seat
			return events, err
		})
		if err != nil {
			return err
		}
		m.setPlayer(req.PlayerID, e.id)
		if req.OnSeated != nil {
			req.OnSeated(e.id, res.SeatID)
		}
		m.logger.Info("player joined table",
			zap.String("table_id", e.id), zap.String("player_id", req.PlayerID), zap.Int("seat", res.SeatID))
		return nil
	})
	if err != nil {
		return JoinResult{}, err
	}
	return res, nil
}

// rejoin answers a join for a table the player already sits at.
func (m *Manager) rejoin(ctx context.Context, req JoinRequest) (JoinResult, error) {
	e, err := m.entry(req.TableID)
	if err != nil {
		return JoinResult{}, err
	}
	res := JoinResult{TableID: e.id}
	err = m.withTable(ctx, e, func(r *run) error {
		seat, ok := r.table().SeatOf(req.PlayerID)
		if !ok {
			return domain.ErrPlayerNotSeated
		}
		res.SeatID = seat
		if req.OnSeated != nil {
			req.OnSeated(e.id, seat)
		}
		// Resend state so a rebound connection catches up.
		r.committed = true
		return nil
	})
	return res, err
}

// Leave vacates the player's seat. An empty tableID means wherever the
// player sits.
func (m *Manager) Leave(ctx context.Context, playerID, tableID string) error {
	unlock := m.playerLocks.Lock(playerID)
	defer unlock()

	cur, ok := m.TableOf(playerID)
	if !ok || (tableID != "" && tableID != cur) {
		return domain.ErrPlayerNotSeated
	}
	return m.leave(ctx, playerID, cur)
}

func (m *Manager) leave(ctx context.Context, playerID, tableID string) error {
	e, err := m.entry(tableID)
	if err != nil {
		m.clearPlayer(playerID, tableID)
		return err
	}
	return m.withTable(ctx, e, func(r *run) error {
		err := r.apply(func(t *domain.Table) ([]domain.Event, error) {
			return t.Leave(playerID)
		})
		if err != nil && !errors.Is(err, domain.ErrPlayerNotSeated) {
			return err
		}
		m.clearPlayer(playerID, tableID)
		if err == nil {
			m.logger.Info("player left table", zap.String("table_id", tableID), zap.String("player_id", playerID))
		}
		return err
	})
}

// PlaceBet stakes amount on the player's seat.
func (m *Manager) PlaceBet(ctx context.Context, playerID string, amount int64) error {
	return m.seatOp(ctx, playerID, func(t *domain.Table, seat int) ([]domain.Event, error) {
		return t.PlaceBet(seat, amount)
	})
}

// Act applies a decision to the player's active hand.
func (m *Manager) Act(ctx context.Context, playerID string, action domain.Action) error {
	return m.seatOp(ctx, playerID, func(t *domain.Table, seat int) ([]domain.Event, error) {
		return t.Act(seat, action)
	})
}

// ForceStand stands the seat's active hand on the server's behalf. It is
// legal exactly where the seat could stand itself.
func (m *Manager) ForceStand(ctx context.Context, tableID string, seatID int) error {
	e, err := m.entry(tableID)
	if err != nil {
		return err
	}
	return m.withTable(ctx, e, func(r *run) error {
		return r.apply(func(t *domain.Table) ([]domain.Event, error) {
			return t.ForceStand(seatID)
		})
	})
}

func (m *Manager) seatOp(ctx context.Context, playerID string, step func(*domain.Table, int) ([]domain.Event, error)) error {
	tableID, ok := m.TableOf(playerID)
	if !ok {
		return domain.ErrPlayerNotSeated
	}
	e, err := m.entry(tableID)
	if err != nil {
		return err
	}
	return m.withTable(ctx, e, func(r *run) error {
		seat, ok := r.table().SeatOf(playerID)
		if !ok {
			return domain.ErrPlayerNotSeated
		}
		return r.apply(func(t *domain.Table) ([]domain.Event, error) {
			return step(t, seat)
		})
	})
}

// FindOrCreateTable returns the id of the fullest table with a free seat,
// creating a new table when every table is full.
func (m *Manager) FindOrCreateTable(ctx context.Context) (string, error) {
	e, err := m.findOrCreate(ctx)
	if err != nil {
		return "", err
	}
	return e.id, nil
}

func (m *Manager) findOrCreate(ctx context.Context) (*tableEntry, error) {
	m.mu.RLock()
	var best *tableEntry
	var bestOcc int32 = -1
	for _, e := range m.tables {
		occ := e.occupied.Load()
		if int(occ) >= e.capacity {
			continue
		}
		if occ > bestOcc || (occ == bestOcc && e.id < best.id) {
			best, bestOcc = e, occ
		}
	}
	m.mu.RUnlock()
	if best != nil {
		return best, nil
	}
	return m.createTable(ctx)
}

func (m *Manager) createTable(ctx context.Context) (*tableEntry, error) {
	id := m.newID()
	table, err := domain.NewTable(id, m.cfg, m.newShoe(m.cfg))
	if err != nil {
		return nil, err
	}
	if err := m.store.RecordTableOpened(ctx, id, m.cfg); err != nil {
		m.logger.Error("record table opened", zap.String("table_id", id), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	e := &tableEntry{id: id, capacity: table.Capacity(), table: table}

	m.mu.Lock()
	m.tables[id] = e
	m.mu.Unlock()

	m.logger.Info("table created", zap.String("table_id", id), zap.Int("seats", e.capacity))
	return e, nil
}

// Snapshot returns the current state of a table.
func (m *Manager) Snapshot(tableID string) (domain.Snapshot, error) {
	e, err := m.entry(tableID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.retired {
		return domain.Snapshot{}, domain.ErrTableNotFound
	}
	return e.table.Snapshot(), nil
}

// Tables lists live tables ordered by id.
func (m *Manager) Tables() []TableSummary {
	entries := m.entries()
	out := make([]TableSummary, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.retired {
			cfg := e.table.Config()
			out = append(out, TableSummary{
				ID:       e.id,
				Occupied: e.table.Occupied(),
				Capacity: e.capacity,
				Phase:    e.table.Phase(),
				MinBet:   cfg.MinBet,
				MaxBet:   cfg.MaxBet,
			})
		}
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TableOf returns the table the player sits at.
func (m *Manager) TableOf(playerID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.players[playerID]
	return id, ok
}

// Recover voids rounds a previous process left unsettled.
func (m *Manager) Recover(ctx context.Context) error {
	n, err := m.store.AbandonOpenRounds(ctx)
	if err != nil {
		return fmt.Errorf("abandon open rounds: %w", err)
	}
	if n > 0 {
		m.logger.Warn("voided unsettled rounds from previous run", zap.Int("rounds", n))
	}
	return nil
}

// Close stops every turn timer.
func (m *Manager) Close() {
	for _, e := range m.entries() {
		e.mu.Lock()
		e.stopTimer()
		e.mu.Unlock()
	}
}

func (m *Manager) entry(tableID string) (*tableEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.tables[tableID]
	if !ok {
		return nil, domain.ErrTableNotFound
	}
	return e, nil
}

func (m *Manager) entries() []*tableEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*tableEntry, 0, len(m.tables))
	for _, e := range m.tables {
		out = append(out, e)
	}
	return out
}

func (m *Manager) setPlayer(playerID, tableID string) {
	m.mu.Lock()
	m.players[playerID] = tableID
	m.mu.Unlock()
}

func (m *Manager) clearPlayer(playerID, tableID string) {
	m.mu.Lock()
	if m.players[playerID] == tableID {
		delete(m.players, playerID)
	}
	m.mu.Unlock()
}

// retire removes an empty table from the registry. The caller holds e.mu.
func (m *Manager) retire(ctx context.Context, e *tableEntry) {
	e.retired = true
	e.stopTimer()
	m.mu.Lock()
	delete(m.tables, e.id)
	m.mu.Unlock()
	if err := m.store.RecordTableClosed(ctx, e.id); err != nil {
		m.logger.Warn("record table closed", zap.String("table_id", e.id), zap.Error(err))
	}
	m.logger.Info("table retired", zap.String("table_id", e.id))
}

// withTable runs op under the table lock. Pending phase steps run before op,
// so a table recovers from an earlier failed step, and again after it. The
// new state is broadcast once the lock is released.
func (m *Manager) withTable(ctx context.Context, e *tableEntry, op func(*run) error) error {
	e.mu.Lock()
	if e.retired {
		e.mu.Unlock()
		return domain.ErrTableNotFound
	}

	r := &run{m: m, ctx: ctx, e: e}
	err := r.cascade()
	if err == nil {
		if err = op(r); err == nil {
			err = r.cascade()
		}
	}

	if e.table.Occupied() == 0 {
		m.retire(ctx, e)
	} else {
		m.armTimer(e)
	}
	e.occupied.Store(int32(e.table.Occupied()))
	snap := e.table.Snapshot()
	e.mu.Unlock()

	if r.committed && m.broadcaster != nil {
		m.broadcaster.Broadcast(ctx, snap)
	}
	return err
}

// run is one locked operation on a table.
type run struct {
	m         *Manager
	ctx       context.Context
	e         *tableEntry
	committed bool
}

func (r *run) table() *domain.Table { return r.e.table }

// apply runs step against a copy of the table, records its events and only
// then makes the copy live.
func (r *run) apply(step func(*domain.Table) ([]domain.Event, error)) error {
	next := r.e.table.Clone()
	events, err := step(next)
	if err != nil {
		return err
	}
	if err := r.m.checkFunds(r.ctx, events); err != nil {
		return err
	}
	if err := r.m.record(r.ctx, r.e.id, events); err != nil {
		r.m.logger.Error("record table step",
			zap.String("table_id", r.e.id), zap.String("round_id", next.RoundID()),
			zap.String("phase", string(next.Phase())), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	r.e.table = next
	r.committed = true
	return nil
}

// cascade advances the table through its server-driven steps.
func (r *run) cascade() error {
	for i := 0; i < maxCascadeSteps; i++ {
		t := r.e.table
		var err error
		switch {
		case t.Phase() == domain.PhaseBetting && t.RoundID() == "" && t.Occupied() > 0:
			roundID, rerr := r.m.store.RecordRoundStart(r.ctx, r.e.id)
			if rerr != nil {
				r.m.logger.Error("record round start", zap.String("table_id", r.e.id), zap.Error(rerr))
				return fmt.Errorf("%w: %w", ErrPersistence, rerr)
			}
			err = r.apply(func(t *domain.Table) ([]domain.Event, error) { return t.OpenRound(roundID) })
		case t.Phase() == domain.PhaseDealing:
			err = r.apply((*domain.Table).Deal)
		case t.Phase() == domain.PhaseDealerTurn:
			err = r.apply((*domain.Table).DealerPlay)
		case t.Phase() == domain.PhaseCompleting:
			err = r.apply((*domain.Table).Settle)
		default:
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}
