package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"blackjack/internal/app"
	"blackjack/internal/domain"
	"blackjack/internal/ports"
)

// Inbound message types.
const (
	MessageJoinTable  = "join_table"
	MessagePlaceBet   = "place_bet"
	MessageAction     = "action"
	MessageLeaveTable = "leave_table"
)

// ErrMalformedMessage reports a frame that is not a known intent.
var ErrMalformedMessage = errors.New("malformed message")

// SessionManager is the part of the table manager the transport drives.
type SessionManager interface {
	Join(ctx context.Context, req app.JoinRequest) (app.JoinResult, error)
	Leave(ctx context.Context, playerID, tableID string) error
	PlaceBet(ctx context.Context, playerID string, amount int64) error
	Act(ctx context.Context, playerID string, action domain.Action) error
	Tables() []app.TableSummary
}

type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type joinTableData struct {
	TableID string `json:"tableId"`
}

type placeBetData struct {
	Amount int64 `json:"amount"`
}

type actionData struct {
	Action string `json:"action"`
}

// handle decodes one frame and applies it for the client's player.
func (c *Client) handle(ctx context.Context, raw []byte) error {
	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch msg.Type {
	case MessageJoinTable:
		var data joinTableData
		if err := decodeData(msg.Data, &data); err != nil {
			return err
		}
		_, err := c.sessions.Join(ctx, app.JoinRequest{
			PlayerID: c.playerID,
			TableID:  data.TableID,
			OnSeated: func(tableID string, _ int) { c.hub.bind(c, tableID) },
		})
		return err

	case MessagePlaceBet:
		var data placeBetData
		if err := decodeData(msg.Data, &data); err != nil {
			return err
		}
		return c.sessions.PlaceBet(ctx, c.playerID, data.Amount)

	case MessageAction:
		var data actionData
		if err := decodeData(msg.Data, &data); err != nil {
			return err
		}
		action, err := domain.ParseAction(data.Action)
		if err != nil {
			return err
		}
		return c.sessions.Act(ctx, c.playerID, action)

	case MessageLeaveTable:
		tableID := c.hub.tableOf(c)
		if err := c.sessions.Leave(ctx, c.playerID, tableID); err != nil {
			return err
		}
		c.hub.unbind(c)
		return nil

	default:
		return fmt.Errorf("%w: unknown type %q", ErrMalformedMessage, msg.Type)
	}
}

func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return nil
}

// errorEnvelope builds the error frame sent to the originating connection.
func errorEnvelope(err error) ports.Envelope {
	if errors.Is(err, ErrMalformedMessage) {
		return ports.Envelope{Type: ports.MessageError, Code: "bad_request", Message: err.Error()}
	}
	return ports.Envelope{Type: ports.MessageError, Code: app.Reason(err), Message: app.Message(err)}
}
