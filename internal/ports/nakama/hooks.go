package nakama

import (
	"context"
	"errors"

	"blackjack/internal/domain"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// SessionEnd leaves the table of a user whose session closed.
func (h *Handlers) SessionEnd(ctx context.Context, logger runtime.Logger, evt *api.Event) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return
	}
	tableID := h.directory.Unbind(userID)
	if tableID == "" {
		return
	}
	if err := h.sessions.Leave(ctx, userID, tableID); err != nil && !errors.Is(err, domain.ErrPlayerNotSeated) {
		logger.Warn("SessionEnd [User:%s]: failed to leave %s: %v", userID, tableID, err)
		return
	}
	logger.Info("SessionEnd [User:%s]: left %s", userID, tableID)
}
