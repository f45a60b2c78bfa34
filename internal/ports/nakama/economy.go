package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"blackjack/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// WalletBackend is the part of runtime.NakamaModule the economy adapter uses.
type WalletBackend interface {
	AccountGetId(ctx context.Context, userID string) (*api.Account, error)
	WalletsUpdate(ctx context.Context, updates []*runtime.WalletUpdate, updateLedger bool) ([]*runtime.WalletUpdateResult, error)
}

// EconomyAdapter implements ports.EconomyPort using Nakama's wallet system.
type EconomyAdapter struct {
	nk WalletBackend
}

var _ ports.EconomyPort = (*EconomyAdapter)(nil)

func NewEconomyAdapter(nk WalletBackend) *EconomyAdapter {
	return &EconomyAdapter{nk: nk}
}

// GetBalance retrieves the current chip balance for a user.
func (a *EconomyAdapter) GetBalance(ctx context.Context, userID string) (int64, error) {
	account, err := a.nk.AccountGetId(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get account: %w", err)
	}
	if account.Wallet == "" {
		return 0, nil
	}

	var wallet map[string]int64
	if err := json.Unmarshal([]byte(account.Wallet), &wallet); err != nil {
		return 0, fmt.Errorf("failed to unmarshal wallet: %w", err)
	}
	return wallet[WalletCurrency], nil
}

// UpdateBalances applies every change in one ledgered wallet transaction.
func (a *EconomyAdapter) UpdateBalances(ctx context.Context, updates []ports.WalletUpdate) error {
	batch := make([]*runtime.WalletUpdate, 0, len(updates))
	for _, update := range updates {
		if update.Amount == 0 {
			continue
		}
		batch = append(batch, &runtime.WalletUpdate{
			UserID:    update.UserID,
			Changeset: map[string]int64{WalletCurrency: update.Amount},
			Metadata:  update.Metadata,
		})
	}
	if len(batch) == 0 {
		return nil
	}
	if _, err := a.nk.WalletsUpdate(ctx, batch, true); err != nil {
		return fmt.Errorf("failed to update %d wallets: %w", len(batch), err)
	}
	return nil
}
