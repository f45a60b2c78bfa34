package nakama

import (
	"context"
	"errors"
	"testing"

	"blackjack/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
)

func TestEconomyGetBalance(t *testing.T) {
	wallet := &mockWallet{accounts: map[string]*api.Account{
		"alice": {Wallet: `{"chips": 750, "gold": 3}`},
		"bob":   {Wallet: ""},
		"eve":   {Wallet: "not json"},
	}}
	econ := NewEconomyAdapter(wallet)

	if got, err := econ.GetBalance(context.Background(), "alice"); err != nil || got != 750 {
		t.Fatalf("alice = %d, %v", got, err)
	}
	if got, err := econ.GetBalance(context.Background(), "bob"); err != nil || got != 0 {
		t.Fatalf("bob = %d, %v", got, err)
	}
	if _, err := econ.GetBalance(context.Background(), "eve"); err == nil {
		t.Fatal("expected error for corrupt wallet")
	}
	if _, err := econ.GetBalance(context.Background(), "nobody"); err == nil {
		t.Fatal("expected error for missing account")
	}
}

func TestEconomyUpdateBalancesBatches(t *testing.T) {
	wallet := &mockWallet{}
	econ := NewEconomyAdapter(wallet)

	err := econ.UpdateBalances(context.Background(), []ports.WalletUpdate{
		{UserID: "alice", Amount: -10, Metadata: map[string]interface{}{"reason": "bet"}},
		{UserID: "bob", Amount: 0},
		{UserID: "carol", Amount: 40},
	})
	if err != nil {
		t.Fatalf("UpdateBalances: %v", err)
	}
	if len(wallet.batches) != 1 || len(wallet.batches[0]) != 2 {
		t.Fatalf("batches = %+v", wallet.batches)
	}
	first := wallet.batches[0][0]
	if first.UserID != "alice" || first.Changeset[WalletCurrency] != -10 || first.Metadata["reason"] != "bet" {
		t.Fatalf("first update = %+v", first)
	}

	if err := econ.UpdateBalances(context.Background(), []ports.WalletUpdate{{UserID: "bob"}}); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	if len(wallet.batches) != 1 {
		t.Fatal("empty batch reached the wallet")
	}

	wallet.fail = errors.New("ledger down")
	if err := econ.UpdateBalances(context.Background(), []ports.WalletUpdate{{UserID: "alice", Amount: 5}}); err == nil {
		t.Fatal("expected wallet failure")
	}
}

func TestNotifierSend(t *testing.T) {
	nk := &mockNotifier{}
	n := NewNotifier(nk)
	v := ports.Viewer{ConnectionID: "alice", PlayerID: "alice", TableID: "t1"}
	env := ports.Envelope{Type: ports.MessageStateUpdate, Data: map[string]int{"version": 3}}

	if err := n.Send(context.Background(), v, env); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if nk.userID != "alice" || nk.subject != ports.MessageStateUpdate || nk.code != NotificationCodeState || nk.persist {
		t.Fatalf("notification = %+v", nk)
	}
	data, ok := nk.content["data"].(map[string]interface{})
	if !ok || data["version"] != float64(3) {
		t.Fatalf("content = %+v", nk.content)
	}

	nk.fail = errors.New("offline")
	if err := n.Send(context.Background(), v, env); err == nil {
		t.Fatal("expected send failure")
	}
}

func TestDirectoryRebind(t *testing.T) {
	d := NewDirectory()
	d.Bind("alice", "t1")
	d.Bind("alice", "t2")
	if len(d.Viewers("t1")) != 0 || len(d.Viewers("t2")) != 1 {
		t.Fatalf("t1 = %v, t2 = %v", d.Viewers("t1"), d.Viewers("t2"))
	}
	if got := d.Unbind("alice"); got != "t2" {
		t.Fatalf("Unbind = %q", got)
	}
	if got := d.Unbind("alice"); got != "" {
		t.Fatalf("second Unbind = %q", got)
	}
}
