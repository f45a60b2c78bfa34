package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"blackjack/internal/config"
	"blackjack/internal/ports/ws"
)

func TestTokenCommand(t *testing.T) {
	t.Setenv("BLACKJACK_JWT_SECRET", "test-secret")
	t.Setenv("BLACKJACK_STORE", config.StoreSQLite)

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"token", "alice", "--env-file", filepath.Join(t.TempDir(), "none.env")})
	if err := root.Execute(); err != nil {
		t.Fatalf("token: %v", err)
	}

	verifier, err := ws.NewTokenVerifier("test-secret")
	if err != nil {
		t.Fatalf("NewTokenVerifier: %v", err)
	}
	id, err := verifier.Verify(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id != "alice" {
		t.Fatalf("player = %q", id)
	}
}

func TestTokenCommandRequiresSecret(t *testing.T) {
	t.Setenv("BLACKJACK_JWT_SECRET", "")
	root := newRootCmd()
	root.SetArgs([]string{"token", "alice", "--env-file", filepath.Join(t.TempDir(), "none.env")})
	if err := root.Execute(); err == nil {
		t.Fatal("expected error without a secret")
	}
}

func TestOpenStoreSQLite(t *testing.T) {
	env := config.ServerEnv{Store: config.StoreSQLite, SQLitePath: filepath.Join(t.TempDir(), "bj.db")}
	store, closer, err := openStore(context.Background(), env)
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	defer closer.Close()
	if _, err := store.AbandonOpenRounds(context.Background()); err != nil {
		t.Fatalf("AbandonOpenRounds: %v", err)
	}
}

func TestOpenStoreUnknown(t *testing.T) {
	if _, _, err := openStore(context.Background(), config.ServerEnv{Store: "mongo"}); err == nil {
		t.Fatal("expected error for unknown store")
	}
}
