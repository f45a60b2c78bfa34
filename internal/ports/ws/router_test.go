package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"blackjack/internal/app"
	"blackjack/internal/domain"
	"blackjack/internal/ports"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// fakeSessions seats every player at table-1.
type fakeSessions struct {
	mu      sync.Mutex
	joins   []app.JoinRequest
	actions []domain.Action
	betErr  error
	leaves  chan string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{leaves: make(chan string, 4)}
}

func (f *fakeSessions) Join(_ context.Context, req app.JoinRequest) (app.JoinResult, error) {
	f.mu.Lock()
	f.joins = append(f.joins, req)
	f.mu.Unlock()
	if req.OnSeated != nil {
		req.OnSeated("table-1", 0)
	}
	return app.JoinResult{TableID: "table-1"}, nil
}

func (f *fakeSessions) Leave(_ context.Context, playerID, tableID string) error {
	f.leaves <- playerID + "@" + tableID
	return nil
}

func (f *fakeSessions) PlaceBet(context.Context, string, int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.betErr
}

func (f *fakeSessions) Act(_ context.Context, _ string, action domain.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
	return nil
}

func (f *fakeSessions) Tables() []app.TableSummary {
	return []app.TableSummary{{ID: "table-1", Occupied: 1, Capacity: 5, Phase: domain.PhaseBetting}}
}

type testServer struct {
	srv      *httptest.Server
	hub      *Hub
	sessions *fakeSessions
	verifier *TokenVerifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	sessions := newFakeSessions()
	verifier, err := NewTokenVerifier("secret")
	if err != nil {
		t.Fatalf("NewTokenVerifier: %v", err)
	}
	router, err := NewRouter(RouterConfig{Hub: hub, Sessions: sessions, Verifier: verifier})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, hub: hub, sessions: sessions, verifier: verifier}
}

func (s *testServer) dial(t *testing.T, playerID string) *websocket.Conn {
	t.Helper()
	tok, err := s.verifier.Issue(playerID, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws?token=" + tok
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) ports.Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env ports.Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebsocketSession(t *testing.T) {
	s := newTestServer(t)
	conn := s.dial(t, "alice")

	if err := conn.WriteJSON(map[string]any{"type": MessageJoinTable, "data": map[string]any{}}); err != nil {
		t.Fatalf("write join: %v", err)
	}
	waitFor(t, "binding", func() bool { return len(s.hub.Viewers("table-1")) == 1 })

	viewer := s.hub.Viewers("table-1")[0]
	if viewer.PlayerID != "alice" {
		t.Fatalf("viewer = %+v", viewer)
	}
	if err := s.hub.Send(context.Background(), viewer, ports.Envelope{Type: ports.MessageStateUpdate, Data: map[string]any{"phase": "betting"}}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if env := readEnvelope(t, conn); env.Type != ports.MessageStateUpdate {
		t.Fatalf("envelope = %+v", env)
	}

	s.sessions.mu.Lock()
	s.sessions.betErr = domain.ErrBetOutOfRange
	s.sessions.mu.Unlock()
	if err := conn.WriteJSON(map[string]any{"type": MessagePlaceBet, "data": map[string]any{"amount": 9999}}); err != nil {
		t.Fatalf("write bet: %v", err)
	}
	if env := readEnvelope(t, conn); env.Type != ports.MessageError || env.Code != "bet_out_of_range" {
		t.Fatalf("envelope = %+v", env)
	}

	if err := conn.WriteJSON(map[string]any{"type": MessageAction, "data": map[string]any{"action": "fly"}}); err != nil {
		t.Fatalf("write action: %v", err)
	}
	if env := readEnvelope(t, conn); env.Code != "unknown_action" {
		t.Fatalf("envelope = %+v", env)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("nope")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	if env := readEnvelope(t, conn); env.Code != "bad_request" {
		t.Fatalf("envelope = %+v", env)
	}

	if err := conn.WriteJSON(map[string]any{"type": MessageAction, "data": map[string]any{"action": "stand"}}); err != nil {
		t.Fatalf("write stand: %v", err)
	}
	waitFor(t, "action", func() bool {
		s.sessions.mu.Lock()
		defer s.sessions.mu.Unlock()
		return len(s.sessions.actions) == 1 && s.sessions.actions[0] == domain.ActionStand
	})

	conn.Close()
	select {
	case got := <-s.sessions.leaves:
		if got != "alice@table-1" {
			t.Fatalf("leave = %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect did not leave the table")
	}
}

func TestLeaveTableUnbinds(t *testing.T) {
	s := newTestServer(t)
	conn := s.dial(t, "bob")

	if err := conn.WriteJSON(map[string]any{"type": MessageJoinTable}); err != nil {
		t.Fatalf("write join: %v", err)
	}
	waitFor(t, "binding", func() bool { return len(s.hub.Viewers("table-1")) == 1 })

	if err := conn.WriteJSON(map[string]any{"type": MessageLeaveTable}); err != nil {
		t.Fatalf("write leave: %v", err)
	}
	select {
	case got := <-s.sessions.leaves:
		if got != "bob@table-1" {
			t.Fatalf("leave = %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("leave_table was not applied")
	}
	waitFor(t, "unbind", func() bool { return len(s.hub.Viewers("table-1")) == 0 })
}

func TestHTTPRoutes(t *testing.T) {
	s := newTestServer(t)

	resp, err := http.Get(s.srv.URL + "/ws")
	if err != nil {
		t.Fatalf("GET /ws: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("/ws without token = %d", resp.StatusCode)
	}

	resp, err = http.Get(s.srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/health = %d", resp.StatusCode)
	}

	resp, err = http.Get(s.srv.URL + "/api/tables")
	if err != nil {
		t.Fatalf("GET /api/tables: %v", err)
	}
	defer resp.Body.Close()
	var body struct {
		Tables []app.TableSummary `json:"tables"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Tables) != 1 || body.Tables[0].Capacity != 5 {
		t.Fatalf("tables = %+v", body.Tables)
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://ok.example"})
	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Origin", "https://ok.example")
	if !check(r) {
		t.Fatal("allowed origin rejected")
	}
	r.Header.Set("Origin", "https://evil.example")
	if check(r) {
		t.Fatal("foreign origin accepted")
	}
	if !originChecker(nil)(r) {
		t.Fatal("empty list must allow all")
	}
}

func TestNewRouterRequiresDeps(t *testing.T) {
	if _, err := NewRouter(RouterConfig{}); err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}
