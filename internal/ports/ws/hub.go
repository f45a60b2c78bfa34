package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"blackjack/internal/ports"
)

var (
	// ErrConnectionClosed is returned when sending to a connection that is gone.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrSendBufferFull is returned when a slow client's buffer is full.
	ErrSendBufferFull = errors.New("send buffer full")
)

// Hub tracks live connections and the table each one watches. It is the
// ports.ViewerDirectory and ports.Sender of the websocket transport.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client            // connection id -> client
	tables  map[string]map[string]*Client // table id -> connection id -> client
}

var (
	_ ports.ViewerDirectory = (*Hub)(nil)
	_ ports.Sender          = (*Hub)(nil)
)

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		tables:  make(map[string]map[string]*Client),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
}

// unregister drops a connection and reports the table it watched and
// whether another connection of the same player is still bound there.
func (h *Hub) unregister(c *Client) (tableID string, others bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c.id)
	tableID = c.tableID
	h.unbindLocked(c)
	for _, other := range h.tables[tableID] {
		if other.playerID == c.playerID {
			others = true
			break
		}
	}
	return tableID, others
}

// bind attaches a connection to a table, replacing any earlier binding.
func (h *Hub) bind(c *Client, tableID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	h.unbindLocked(c)
	conns, ok := h.tables[tableID]
	if !ok {
		conns = make(map[string]*Client)
		h.tables[tableID] = conns
	}
	conns[c.id] = c
	c.tableID = tableID
}

func (h *Hub) unbind(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unbindLocked(c)
}

func (h *Hub) unbindLocked(c *Client) {
	if c.tableID == "" {
		return
	}
	if conns, ok := h.tables[c.tableID]; ok {
		delete(conns, c.id)
		if len(conns) == 0 {
			delete(h.tables, c.tableID)
		}
	}
	c.tableID = ""
}

// tableOf returns the table a connection is bound to.
func (h *Hub) tableOf(c *Client) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return c.tableID
}

// Viewers returns the connections bound to a table.
func (h *Hub) Viewers(tableID string) []ports.Viewer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns := h.tables[tableID]
	out := make([]ports.Viewer, 0, len(conns))
	for _, c := range conns {
		out = append(out, ports.Viewer{ConnectionID: c.id, PlayerID: c.playerID, TableID: tableID})
	}
	return out
}

// Send queues an envelope on the viewer's connection without blocking.
func (h *Hub) Send(_ context.Context, v ports.Viewer, env ports.Envelope) error {
	h.mu.RLock()
	c, ok := h.clients[v.ConnectionID]
	h.mu.RUnlock()
	if !ok {
		return ErrConnectionClosed
	}
	return c.enqueue(env)
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func marshalEnvelope(env ports.Envelope) ([]byte, error) {
	msg, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s envelope: %w", env.Type, err)
	}
	return msg, nil
}
