package nakama

import (
	"context"
	"errors"
	"sync"

	"blackjack/internal/app"
	"blackjack/internal/domain"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

// fakeSessions seats every player at table-1 and records calls.
type fakeSessions struct {
	mu       sync.Mutex
	bets     map[string]int64
	actions  []domain.Action
	leaves   []string
	joinErr  error
	leaveErr error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{bets: make(map[string]int64)}
}

func (f *fakeSessions) Join(_ context.Context, req app.JoinRequest) (app.JoinResult, error) {
	if f.joinErr != nil {
		return app.JoinResult{}, f.joinErr
	}
	tableID := req.TableID
	if tableID == "" {
		tableID = "table-1"
	}
	if req.OnSeated != nil {
		req.OnSeated(tableID, 2)
	}
	return app.JoinResult{TableID: tableID, SeatID: 2}, nil
}

func (f *fakeSessions) Leave(_ context.Context, playerID, tableID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaves = append(f.leaves, playerID+"@"+tableID)
	return f.leaveErr
}

func (f *fakeSessions) PlaceBet(_ context.Context, playerID string, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if amount > 500 {
		return domain.ErrBetOutOfRange
	}
	f.bets[playerID] = amount
	return nil
}

func (f *fakeSessions) Act(_ context.Context, _ string, action domain.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
	return nil
}

func (f *fakeSessions) Tables() []app.TableSummary {
	return []app.TableSummary{{ID: "table-1", Occupied: 1, Capacity: 5, Phase: domain.PhaseBetting, MinBet: 1, MaxBet: 500}}
}

// mockWallet implements WalletBackend.
type mockWallet struct {
	accounts map[string]*api.Account
	batches  [][]*runtime.WalletUpdate
	fail     error
}

func (m *mockWallet) AccountGetId(_ context.Context, userID string) (*api.Account, error) {
	if acc, ok := m.accounts[userID]; ok {
		return acc, nil
	}
	return nil, errors.New("account not found")
}

func (m *mockWallet) WalletsUpdate(_ context.Context, updates []*runtime.WalletUpdate, _ bool) ([]*runtime.WalletUpdateResult, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	m.batches = append(m.batches, updates)
	return nil, nil
}

// mockNotifier records NotificationSend calls.
type mockNotifier struct {
	userID  string
	subject string
	content map[string]interface{}
	code    int
	persist bool
	fail    error
}

func (m *mockNotifier) NotificationSend(_ context.Context, userID, subject string, content map[string]interface{}, code int, _ string, persistent bool) error {
	if m.fail != nil {
		return m.fail
	}
	m.userID, m.subject, m.content, m.code, m.persist = userID, subject, content, code, persistent
	return nil
}

func userCtx(userID string) context.Context {
	return context.WithValue(context.Background(), runtime.RUNTIME_CTX_USER_ID, userID)
}
