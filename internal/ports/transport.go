package ports

import "context"

// Viewer is a connection bound to a player at a table.
type Viewer struct {
	ConnectionID string
	PlayerID     string
	TableID      string
}

// Envelope is the message frame exchanged with clients.
type Envelope struct {
	Type    string `json:"type"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Outbound message types.
const (
	MessageStateUpdate = "state_update"
	MessageError       = "error"
)

// ViewerDirectory resolves the connections currently bound to a table.
type ViewerDirectory interface {
	Viewers(tableID string) []Viewer
}

// Sender delivers an envelope to one viewer.
type Sender interface {
	Send(ctx context.Context, v Viewer, env Envelope) error
}
