package domain

import "errors"

var (
	ErrInvalidPhase    = errors.New("operation not allowed in current phase")
	ErrNotYourTurn     = errors.New("not this seat's turn")
	ErrIllegalDouble   = errors.New("double not allowed on this hand")
	ErrIllegalSplit    = errors.New("split not allowed on this hand")
	ErrBetOutOfRange   = errors.New("bet outside table limits")
	ErrTableFull       = errors.New("table has no empty seat")
	ErrTableNotFound   = errors.New("table not found")
	ErrPlayerNotSeated = errors.New("player not seated")
	ErrAlreadySeated   = errors.New("player already seated at table")
	ErrUnknownAction   = errors.New("unknown action")
	ErrInvalidConfig   = errors.New("invalid table config")
)
