package app

import (
	"errors"

	"blackjack/internal/domain"
)

var (
	// ErrPersistence reports that the durable record or the wallet could not
	// be written. The table is left as it was before the failed step.
	ErrPersistence = errors.New("persistence failure")
	// ErrInsufficientFunds reports a wallet balance below the stake.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

var reasons = []struct {
	err    error
	reason string
}{
	{domain.ErrInvalidPhase, "invalid_phase"},
	{domain.ErrNotYourTurn, "not_your_turn"},
	{domain.ErrIllegalDouble, "illegal_double"},
	{domain.ErrIllegalSplit, "illegal_split"},
	{domain.ErrBetOutOfRange, "bet_out_of_range"},
	{domain.ErrTableFull, "table_full"},
	{domain.ErrTableNotFound, "table_not_found"},
	{domain.ErrPlayerNotSeated, "player_not_seated"},
	{domain.ErrAlreadySeated, "already_seated"},
	{domain.ErrUnknownAction, "unknown_action"},
	{ErrInsufficientFunds, "insufficient_funds"},
	{ErrPersistence, "persistence_error"},
}

// Reason maps an error to the stable code sent to clients.
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "internal_error"
}

// Message returns the client-facing text for an error. Persistence details
// stay server-side.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrPersistence):
		return ErrPersistence.Error()
	case Reason(err) == "internal_error":
		return "internal error"
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.err.Error()
		}
	}
	return err.Error()
}
