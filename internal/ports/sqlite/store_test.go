package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"blackjack/internal/domain"
	"blackjack/internal/ports"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "blackjack.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func queryString(t *testing.T, s *Store, query string, args ...any) string {
	t.Helper()
	var v string
	if err := s.sqlDB.QueryRow(query, args...).Scan(&v); err != nil {
		t.Fatalf("query %q: %v", query, err)
	}
	return v
}

func queryInt(t *testing.T, s *Store, query string, args ...any) int64 {
	t.Helper()
	var v int64
	if err := s.sqlDB.QueryRow(query, args...).Scan(&v); err != nil {
		t.Fatalf("query %q: %v", query, err)
	}
	return v
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "blackjack.db")
	for i := 0; i < 2; i++ {
		store, err := Open(path)
		if err != nil {
			t.Fatalf("open #%d: %v", i, err)
		}
		_ = store.Close()
	}
}

func TestRoundLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTempStore(t)
	if err := store.RecordTableOpened(ctx, "t1", domain.DefaultConfig()); err != nil {
		t.Fatalf("open table: %v", err)
	}
	roundID, err := store.RecordRoundStart(ctx, "t1")
	if err != nil {
		t.Fatalf("round start: %v", err)
	}
	if roundID == "" {
		t.Fatal("empty round id")
	}

	bet := ports.BetRecord{RoundID: roundID, TableID: "t1", SeatID: 0, PlayerID: "alice", Amount: 10, Kind: "bet"}
	// A retried write overwrites its row.
	for i := 0; i < 2; i++ {
		if err := store.RecordBet(ctx, bet); err != nil {
			t.Fatalf("record bet: %v", err)
		}
	}
	if got := queryInt(t, store, `SELECT COUNT(*) FROM bets WHERE round_id = ?`, roundID); got != 1 {
		t.Fatalf("bets = %d, want 1", got)
	}

	hand := ports.HandRecord{
		RoundID: roundID, TableID: "t1", SeatID: 0, PlayerID: "alice",
		Cards:  []domain.Card{{Rank: 10, Suit: domain.Spades}, {Rank: 7, Suit: domain.Hearts}},
		Status: domain.HandPlaying, Bet: 10,
	}
	if err := store.RecordHandUpdate(ctx, hand); err != nil {
		t.Fatalf("record hand: %v", err)
	}
	hand.Status = domain.HandStanding
	if err := store.RecordHandUpdate(ctx, hand); err != nil {
		t.Fatalf("record hand again: %v", err)
	}
	if got := queryString(t, store, `SELECT status FROM hands WHERE round_id = ? AND seat_id = 0`, roundID); got != string(domain.HandStanding) {
		t.Fatalf("hand status = %q", got)
	}

	if err := store.RecordPhase(ctx, "t1", roundID, domain.PhaseDealerTurn); err != nil {
		t.Fatalf("record phase: %v", err)
	}
	if got := queryString(t, store, `SELECT phase FROM rounds WHERE id = ?`, roundID); got != string(domain.PhaseDealerTurn) {
		t.Fatalf("phase = %q", got)
	}

	if err := store.RecordSettlement(ctx, ports.SettlementRecord{
		RoundID: roundID, TableID: "t1", SeatID: 0, PlayerID: "alice",
		Outcome: domain.OutcomeWin, Bet: 10, Payout: 20,
	}); err != nil {
		t.Fatalf("record settlement: %v", err)
	}
	if err := store.RecordPhase(ctx, "t1", roundID, domain.PhaseBetting); err != nil {
		t.Fatalf("record betting: %v", err)
	}
	if got := queryString(t, store, `SELECT status FROM rounds WHERE id = ?`, roundID); got != roundSettled {
		t.Fatalf("round status = %q, want settled", got)
	}
	if got := queryInt(t, store, `SELECT payout FROM settlements WHERE round_id = ?`, roundID); got != 20 {
		t.Fatalf("payout = %d, want 20", got)
	}
}

func TestRecordPhaseWithoutRoundIsNoop(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if err := store.RecordPhase(context.Background(), "t1", "", domain.PhaseBetting); err != nil {
		t.Fatalf("record phase: %v", err)
	}
}

func TestRecordTableClosedAbandonsOpenRound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTempStore(t)
	if err := store.RecordTableOpened(ctx, "t1", domain.DefaultConfig()); err != nil {
		t.Fatalf("open table: %v", err)
	}
	roundID, err := store.RecordRoundStart(ctx, "t1")
	if err != nil {
		t.Fatalf("round start: %v", err)
	}
	if err := store.RecordTableClosed(ctx, "t1"); err != nil {
		t.Fatalf("close table: %v", err)
	}
	if got := queryString(t, store, `SELECT status FROM rounds WHERE id = ?`, roundID); got != roundAbandoned {
		t.Fatalf("round status = %q, want abandoned", got)
	}
	if got := queryString(t, store, `SELECT status FROM tables WHERE id = ?`, "t1"); got != tableClosed {
		t.Fatalf("table status = %q, want closed", got)
	}
}

func TestAbandonOpenRounds(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTempStore(t)
	for _, id := range []string{"t1", "t2"} {
		if err := store.RecordTableOpened(ctx, id, domain.DefaultConfig()); err != nil {
			t.Fatalf("open table: %v", err)
		}
	}
	settled, err := store.RecordRoundStart(ctx, "t1")
	if err != nil {
		t.Fatalf("round start: %v", err)
	}
	if err := store.RecordPhase(ctx, "t1", settled, domain.PhaseBetting); err != nil {
		t.Fatalf("settle round: %v", err)
	}
	for _, id := range []string{"t1", "t2"} {
		if _, err := store.RecordRoundStart(ctx, id); err != nil {
			t.Fatalf("round start: %v", err)
		}
	}

	n, err := store.AbandonOpenRounds(ctx)
	if err != nil {
		t.Fatalf("abandon: %v", err)
	}
	if n != 2 {
		t.Fatalf("abandoned = %d, want 2", n)
	}
	if got := queryString(t, store, `SELECT status FROM rounds WHERE id = ?`, settled); got != roundSettled {
		t.Fatalf("settled round became %q", got)
	}
	if got := queryInt(t, store, `SELECT COUNT(*) FROM tables WHERE status = ?`, tableOpen); got != 0 {
		t.Fatalf("open tables = %d, want 0", got)
	}
}

func TestCanceledContext(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.RecordRoundStart(ctx, "t1"); err == nil {
		t.Fatal("expected canceled context error")
	}
}
