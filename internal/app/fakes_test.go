package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"blackjack/internal/domain"
	"blackjack/internal/ports"
)

// memStore is an in-memory ports.RoundStore with per-method failure
// injection.
type memStore struct {
	mu          sync.Mutex
	rounds      int
	opened      []string
	closed      []string
	bets        []ports.BetRecord
	hands       []ports.HandRecord
	settlements []ports.SettlementRecord
	phases      []domain.Phase
	fail        map[string]error
}

func newMemStore() *memStore {
	return &memStore{fail: make(map[string]error)}
}

func (s *memStore) failWith(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, method)
		return
	}
	s.fail[method] = err
}

func (s *memStore) RecordTableOpened(_ context.Context, tableID string, _ domain.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail["RecordTableOpened"]; err != nil {
		return err
	}
	s.opened = append(s.opened, tableID)
	return nil
}

func (s *memStore) RecordTableClosed(_ context.Context, tableID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = append(s.closed, tableID)
	return nil
}

func (s *memStore) RecordRoundStart(_ context.Context, tableID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail["RecordRoundStart"]; err != nil {
		return "", err
	}
	s.rounds++
	return fmt.Sprintf("%s-round-%d", tableID, s.rounds), nil
}

func (s *memStore) RecordBet(_ context.Context, rec ports.BetRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail["RecordBet"]; err != nil {
		return err
	}
	s.bets = append(s.bets, rec)
	return nil
}

func (s *memStore) RecordHandUpdate(_ context.Context, rec ports.HandRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail["RecordHandUpdate"]; err != nil {
		return err
	}
	s.hands = append(s.hands, rec)
	return nil
}

func (s *memStore) RecordSettlement(_ context.Context, rec ports.SettlementRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail["RecordSettlement"]; err != nil {
		return err
	}
	s.settlements = append(s.settlements, rec)
	return nil
}

func (s *memStore) RecordPhase(_ context.Context, _, _ string, phase domain.Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail["RecordPhase"]; err != nil {
		return err
	}
	s.phases = append(s.phases, phase)
	return nil
}

func (s *memStore) AbandonOpenRounds(context.Context) (int, error) {
	return 2, nil
}

func (s *memStore) settled() []ports.SettlementRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.SettlementRecord(nil), s.settlements...)
}

// fakeWallet is an in-memory ports.EconomyPort.
type fakeWallet struct {
	mu       sync.Mutex
	balances map[string]int64
	updates  int
}

func (w *fakeWallet) GetBalance(_ context.Context, userID string) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.balances[userID]
	if !ok {
		return 0, errors.New("no wallet")
	}
	return b, nil
}

func (w *fakeWallet) UpdateBalances(_ context.Context, updates []ports.WalletUpdate) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, u := range updates {
		w.balances[u.UserID] += u.Amount
	}
	w.updates++
	return nil
}

func (w *fakeWallet) balance(userID string) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[userID]
}

// directory is a ports.ViewerDirectory fed by OnSeated callbacks.
type directory struct {
	mu      sync.Mutex
	viewers map[string][]ports.Viewer
}

func newDirectory() *directory {
	return &directory{viewers: make(map[string][]ports.Viewer)}
}

func (d *directory) bind(playerID string) func(tableID string, seatID int) {
	return func(tableID string, _ int) {
		d.mu.Lock()
		defer d.mu.Unlock()
		for _, v := range d.viewers[tableID] {
			if v.PlayerID == playerID {
				return
			}
		}
		d.viewers[tableID] = append(d.viewers[tableID], ports.Viewer{
			ConnectionID: "conn-" + playerID, PlayerID: playerID, TableID: tableID,
		})
	}
}

func (d *directory) Viewers(tableID string) []ports.Viewer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]ports.Viewer(nil), d.viewers[tableID]...)
}

// recordingSender keeps every envelope per player and can fail for some.
type recordingSender struct {
	mu      sync.Mutex
	sent    map[string][]ports.Envelope
	failFor map[string]bool
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sent: make(map[string][]ports.Envelope), failFor: make(map[string]bool)}
}

func (s *recordingSender) Send(_ context.Context, v ports.Viewer, env ports.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[v.PlayerID] {
		return errors.New("connection closed")
	}
	s.sent[v.PlayerID] = append(s.sent[v.PlayerID], env)
	return nil
}

func (s *recordingSender) last(playerID string) (Projection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	envs := s.sent[playerID]
	if len(envs) == 0 {
		return Projection{}, false
	}
	p, ok := envs[len(envs)-1].Data.(Projection)
	return p, ok
}

func (s *recordingSender) count(playerID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent[playerID])
}
