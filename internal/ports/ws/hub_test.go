package ws

import (
	"context"
	"errors"
	"testing"

	"blackjack/internal/ports"
)

func testClient(id, playerID string, buffer int) *Client {
	return &Client{id: id, playerID: playerID, send: make(chan []byte, buffer)}
}

func TestHubBindings(t *testing.T) {
	h := NewHub()
	a := testClient("c1", "alice", 4)
	b := testClient("c2", "bob", 4)
	h.register(a)
	h.register(b)

	h.bind(a, "t1")
	h.bind(b, "t1")
	if got := len(h.Viewers("t1")); got != 2 {
		t.Fatalf("viewers = %d, want 2", got)
	}

	// Rebinding moves the connection.
	h.bind(a, "t2")
	if got := len(h.Viewers("t1")); got != 1 {
		t.Fatalf("t1 viewers = %d, want 1", got)
	}
	if v := h.Viewers("t2"); len(v) != 1 || v[0].PlayerID != "alice" || v[0].ConnectionID != "c1" {
		t.Fatalf("t2 viewers = %+v", v)
	}

	h.unbind(b)
	if got := len(h.Viewers("t1")); got != 0 {
		t.Fatalf("t1 viewers after unbind = %d", got)
	}
	if h.tableOf(b) != "" {
		t.Fatalf("unbound client still has a table")
	}
}

func TestHubBindIgnoresUnregistered(t *testing.T) {
	h := NewHub()
	c := testClient("c1", "alice", 1)
	h.bind(c, "t1")
	if len(h.Viewers("t1")) != 0 {
		t.Fatal("unregistered connection was bound")
	}
}

func TestHubUnregisterReportsOtherConnections(t *testing.T) {
	h := NewHub()
	first := testClient("c1", "alice", 1)
	second := testClient("c2", "alice", 1)
	for _, c := range []*Client{first, second} {
		h.register(c)
		h.bind(c, "t1")
	}

	tableID, others := h.unregister(first)
	if tableID != "t1" || !others {
		t.Fatalf("unregister = %q, %v; want t1, true", tableID, others)
	}
	tableID, others = h.unregister(second)
	if tableID != "t1" || others {
		t.Fatalf("unregister = %q, %v; want t1, false", tableID, others)
	}
	if h.Count() != 0 {
		t.Fatalf("count = %d", h.Count())
	}
}

func TestHubSend(t *testing.T) {
	h := NewHub()
	c := testClient("c1", "alice", 1)
	h.register(c)
	v := ports.Viewer{ConnectionID: "c1", PlayerID: "alice", TableID: "t1"}
	env := ports.Envelope{Type: ports.MessageStateUpdate}

	if err := h.Send(context.Background(), v, env); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := h.Send(context.Background(), v, env); !errors.Is(err, ErrSendBufferFull) {
		t.Fatalf("Send on full buffer = %v", err)
	}
	if msg := <-c.send; string(msg) != `{"type":"state_update"}` {
		t.Fatalf("frame = %s", msg)
	}

	c.close()
	if err := c.enqueue(env); !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("enqueue after close = %v", err)
	}
	if err := h.Send(context.Background(), ports.Viewer{ConnectionID: "gone"}, env); !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("Send to unknown = %v", err)
	}
}
