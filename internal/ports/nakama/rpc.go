package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"blackjack/internal/app"
	"blackjack/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
)

// SessionManager is the part of the table manager the RPCs drive.
type SessionManager interface {
	Join(ctx context.Context, req app.JoinRequest) (app.JoinResult, error)
	Leave(ctx context.Context, playerID, tableID string) error
	PlaceBet(ctx context.Context, playerID string, amount int64) error
	Act(ctx context.Context, playerID string, action domain.Action) error
	Tables() []app.TableSummary
}

type rpcFunc = func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error)

// JoinTableRequest is the blackjack_join_table payload. An empty table id
// joins any table with a free seat.
type JoinTableRequest struct {
	TableID string `json:"tableId"`
}

type JoinTableResponse struct {
	TableID string `json:"tableId"`
	SeatID  int    `json:"seatId"`
}

type PlaceBetRequest struct {
	Amount int64 `json:"amount"`
}

type ActionRequest struct {
	Action string `json:"action"`
}

type ListTablesResponse struct {
	Tables []app.TableSummary `json:"tables"`
}

var errBadPayload = errors.New("invalid payload")

// Handlers exposes the table manager as Nakama RPCs.
type Handlers struct {
	sessions  SessionManager
	directory *Directory
}

func NewHandlers(sessions SessionManager, directory *Directory) *Handlers {
	return &Handlers{sessions: sessions, directory: directory}
}

// Register adds every RPC to the initializer.
func (h *Handlers) Register(initializer runtime.Initializer) error {
	rpcs := []struct {
		id string
		fn rpcFunc
	}{
		{RpcJoinTable, h.JoinTable},
		{RpcPlaceBet, h.PlaceBet},
		{RpcAction, h.Action},
		{RpcLeaveTable, h.LeaveTable},
		{RpcListTables, h.ListTables},
	}
	for _, rpc := range rpcs {
		if err := initializer.RegisterRpc(rpc.id, rpc.fn); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handlers) JoinTable(ctx context.Context, logger runtime.Logger, _ *sql.DB, _ runtime.NakamaModule, payload string) (string, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", err
	}
	var req JoinTableRequest
	if err := decodePayload(payload, &req); err != nil {
		return "", toRuntimeError(err)
	}

	res, err := h.sessions.Join(ctx, app.JoinRequest{
		PlayerID: userID,
		TableID:  req.TableID,
		OnSeated: func(tableID string, _ int) { h.directory.Bind(userID, tableID) },
	})
	if err != nil {
		logger.Warn("JoinTable [User:%s]: %v", userID, err)
		return "", toRuntimeError(err)
	}
	logger.Info("JoinTable [User:%s]: seated at %s seat %d", userID, res.TableID, res.SeatID)
	return encode(JoinTableResponse{TableID: res.TableID, SeatID: res.SeatID})
}

func (h *Handlers) PlaceBet(ctx context.Context, logger runtime.Logger, _ *sql.DB, _ runtime.NakamaModule, payload string) (string, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", err
	}
	var req PlaceBetRequest
	if err := decodePayload(payload, &req); err != nil {
		return "", toRuntimeError(err)
	}
	if err := h.sessions.PlaceBet(ctx, userID, req.Amount); err != nil {
		logger.Debug("PlaceBet [User:%s]: %v", userID, err)
		return "", toRuntimeError(err)
	}
	return "{}", nil
}

func (h *Handlers) Action(ctx context.Context, logger runtime.Logger, _ *sql.DB, _ runtime.NakamaModule, payload string) (string, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", err
	}
	var req ActionRequest
	if err := decodePayload(payload, &req); err != nil {
		return "", toRuntimeError(err)
	}
	action, err := domain.ParseAction(req.Action)
	if err != nil {
		return "", toRuntimeError(err)
	}
	if err := h.sessions.Act(ctx, userID, action); err != nil {
		logger.Debug("Action [User:%s] %s: %v", userID, action, err)
		return "", toRuntimeError(err)
	}
	return "{}", nil
}

func (h *Handlers) LeaveTable(ctx context.Context, logger runtime.Logger, _ *sql.DB, _ runtime.NakamaModule, _ string) (string, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", err
	}
	if err := h.sessions.Leave(ctx, userID, ""); err != nil {
		logger.Debug("LeaveTable [User:%s]: %v", userID, err)
		return "", toRuntimeError(err)
	}
	h.directory.Unbind(userID)
	return "{}", nil
}

func (h *Handlers) ListTables(_ context.Context, _ runtime.Logger, _ *sql.DB, _ runtime.NakamaModule, _ string) (string, error) {
	return encode(ListTablesResponse{Tables: h.sessions.Tables()})
}

func callerID(ctx context.Context) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return "", runtime.NewError("authentication required", codeUnauthenticated)
	}
	return userID, nil
}

func decodePayload(payload string, v any) error {
	if payload == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return errBadPayload
	}
	return nil
}

func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", runtime.NewError("internal error", codeInternal)
	}
	return string(b), nil
}

// toRuntimeError maps an engine error to a client-facing runtime error
// whose message is the stable reason code.
func toRuntimeError(err error) error {
	if errors.Is(err, errBadPayload) {
		return runtime.NewError("bad_request", codeInvalidArgument)
	}
	reason := app.Reason(err)
	code := codeInternal
	switch reason {
	case "bet_out_of_range", "unknown_action":
		code = codeInvalidArgument
	case "table_not_found", "player_not_seated":
		code = codeNotFound
	case "already_seated":
		code = codeAlreadyExists
	case "table_full":
		code = codeResourceExhausted
	case "invalid_phase", "not_your_turn", "illegal_double", "illegal_split", "insufficient_funds":
		code = codeFailedPrecondition
	}
	return runtime.NewError(reason, code)
}
