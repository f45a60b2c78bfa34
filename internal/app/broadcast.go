package app

import (
	"context"

	"blackjack/internal/domain"
	"blackjack/internal/ports"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// defaultBroadcastConcurrency bounds concurrent sends per broadcast.
const defaultBroadcastConcurrency = 16

// Broadcaster pushes a projected table state to every viewer bound to the
// table. Delivery is best effort: failures are logged and never returned.
type Broadcaster struct {
	viewers ports.ViewerDirectory
	sender  ports.Sender
	logger  *zap.Logger
	limit   int
}

// NewBroadcaster creates a fan-out over the given directory and sender.
// A limit below one uses the default concurrency.
func NewBroadcaster(viewers ports.ViewerDirectory, sender ports.Sender, logger *zap.Logger, limit int) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limit < 1 {
		limit = defaultBroadcastConcurrency
	}
	return &Broadcaster{viewers: viewers, sender: sender, logger: logger, limit: limit}
}

// Broadcast sends each viewer of snap.TableID its own projection of snap and
// returns once every send has finished.
func (b *Broadcaster) Broadcast(ctx context.Context, snap domain.Snapshot) {
	viewers := b.viewers.Viewers(snap.TableID)
	if len(viewers) == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(b.limit)
	for _, v := range viewers {
		v := v
		g.Go(func() error {
			env := ports.Envelope{Type: ports.MessageStateUpdate, Data: Project(snap, v.PlayerID)}
			if err := b.sender.Send(ctx, v, env); err != nil {
				b.logger.Warn("state delivery failed",
					zap.String("table_id", snap.TableID),
					zap.String("player_id", v.PlayerID),
					zap.String("connection_id", v.ConnectionID),
					zap.Uint64("version", snap.Version),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()
}
