package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"blackjack/internal/ports"
)

// NotificationSender is the part of runtime.NakamaModule used to push state.
type NotificationSender interface {
	NotificationSend(ctx context.Context, userID, subject string, content map[string]interface{}, code int, sender string, persistent bool) error
}

// Notifier delivers envelopes as non-persistent in-app notifications.
type Notifier struct {
	nk NotificationSender
}

var _ ports.Sender = (*Notifier)(nil)

func NewNotifier(nk NotificationSender) *Notifier {
	return &Notifier{nk: nk}
}

func (n *Notifier) Send(ctx context.Context, v ports.Viewer, env ports.Envelope) error {
	content, err := envelopeContent(env)
	if err != nil {
		return err
	}
	// An empty sender marks a system notification.
	if err := n.nk.NotificationSend(ctx, v.PlayerID, env.Type, content, NotificationCodeState, "", false); err != nil {
		return fmt.Errorf("failed to send %s to %s: %w", env.Type, v.PlayerID, err)
	}
	return nil
}

// envelopeContent flattens an envelope into the map Nakama expects.
func envelopeContent(env ports.Envelope) (map[string]interface{}, error) {
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s envelope: %w", env.Type, err)
	}
	var content map[string]interface{}
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s envelope: %w", env.Type, err)
	}
	return content, nil
}
