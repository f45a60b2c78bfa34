package ws

import (
	"context"
	"sync"
	"time"

	"blackjack/internal/ports"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
	intentTimeout  = 10 * time.Second
)

// Client is one websocket connection of an authenticated player.
type Client struct {
	id       string
	playerID string
	conn     *websocket.Conn
	hub      *Hub
	sessions SessionManager
	logger   *zap.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool

	// tableID is guarded by hub.mu.
	tableID string
}

func newClient(conn *websocket.Conn, playerID string, hub *Hub, sessions SessionManager, logger *zap.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:       id,
		playerID: playerID,
		conn:     conn,
		hub:      hub,
		sessions: sessions,
		logger:   logger.With(zap.String("connection_id", id), zap.String("player_id", playerID)),
		send:     make(chan []byte, sendBuffer),
	}
}

// enqueue marshals env onto the send buffer, failing rather than blocking
// when the client is slow.
func (c *Client) enqueue(env ports.Envelope) error {
	msg, err := marshalEnvelope(env)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump applies inbound intents until the connection drops, then
// leaves the table unless another connection of the player still watches it.
func (c *Client) readPump() {
	defer func() {
		tableID, others := c.hub.unregister(c)
		c.close()
		_ = c.conn.Close()
		if tableID == "" || others {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), intentTimeout)
		defer cancel()
		if err := c.sessions.Leave(ctx, c.playerID, tableID); err != nil {
			c.logger.Warn("leave on disconnect failed", zap.String("table_id", tableID), zap.Error(err))
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info("read error", zap.Error(err))
			} else {
				c.logger.Debug("disconnected")
			}
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), intentTimeout)
		err = c.handle(ctx, raw)
		cancel()
		if err != nil {
			c.logger.Debug("intent rejected", zap.Error(err))
			if qerr := c.enqueue(errorEnvelope(err)); qerr != nil {
				c.logger.Warn("failed to queue error", zap.Error(qerr))
			}
		}
	}
}

// writePump drains the send buffer and keeps the connection alive.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Debug("write error", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
