package ports

import "context"

// WalletUpdate represents a single chip change for a player.
type WalletUpdate struct {
	UserID   string
	Amount   int64
	Metadata map[string]interface{}
}

// EconomyPort defines the interface for managing table chips.
type EconomyPort interface {
	// GetBalance retrieves the current chip balance for a player.
	GetBalance(ctx context.Context, userID string) (int64, error)

	// UpdateBalances applies multiple wallet changes atomically.
	// Stakes are negative amounts, payouts and refunds positive.
	UpdateBalances(ctx context.Context, updates []WalletUpdate) error
}
