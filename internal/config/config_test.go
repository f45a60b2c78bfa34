package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"blackjack/internal/domain"
)

const yamlConfig = `
default_tier: standard
turn_duration_seconds: 20
tiers:
  - id: standard
    min_bet: 5
    max_bet: 200
  - id: high
    decks: 8
    seats: 3
    min_bet: 100
    max_bet: 5000
    dealer_hit_soft17: false
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(writeFile(t, "game.yaml", yamlConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TurnDuration() != 20*time.Second {
		t.Fatalf("TurnDuration = %s", cfg.TurnDuration())
	}

	std := cfg.TableConfig("")
	if std.MinBet != 5 || std.MaxBet != 200 || std.Decks != 6 || !std.DealerHitSoft17 {
		t.Fatalf("standard = %+v", std)
	}
	high := cfg.TableConfig("high")
	if high.Decks != 8 || high.Seats != 3 || high.DealerHitSoft17 {
		t.Fatalf("high = %+v", high)
	}
	if got := cfg.TableConfig("missing"); got != std {
		t.Fatalf("unknown tier = %+v, want default tier", got)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "game.json", `{"default_tier":"low","tiers":[{"id":"low","min_bet":1,"max_bet":50}]}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.TableConfig("").MaxBet; got != 50 {
		t.Fatalf("MaxBet = %d, want 50", got)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "Missing default tier", data: `{"default_tier":"vip","tiers":[]}`},
		{name: "Duplicate tier", data: `{"tiers":[{"id":"a"},{"id":"a"}]}`},
		{name: "Tier without id", data: `{"tiers":[{"min_bet":1}]}`},
		{name: "Inverted limits", data: `{"tiers":[{"id":"a","min_bet":100,"max_bet":10}]}`},
		{name: "Negative turn", data: `{"turn_duration_seconds":-1}`},
		{name: "Malformed", data: `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data), ".json"); err == nil {
				t.Fatalf("Parse accepted %s", tt.data)
			}
		})
	}
}

func TestNilConfigDefaults(t *testing.T) {
	var cfg *GameConfig
	if got := cfg.TableConfig("any"); got != domain.DefaultConfig() {
		t.Fatalf("TableConfig = %+v", got)
	}
	if cfg.TurnDuration() != 0 {
		t.Fatalf("TurnDuration = %s", cfg.TurnDuration())
	}
}

func TestLoadServerEnv(t *testing.T) {
	dotenv := writeFile(t, ".env", "BLACKJACK_JWT_SECRET=from-file\n")
	t.Cleanup(func() { os.Unsetenv("BLACKJACK_JWT_SECRET") })
	t.Setenv("BLACKJACK_STORE", "redis")
	t.Setenv("BLACKJACK_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := LoadServerEnv(dotenv, filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("LoadServerEnv: %v", err)
	}
	if cfg.Store != StoreRedis || cfg.JWTSecret != "from-file" || cfg.ListenAddr != ":8080" {
		t.Fatalf("env = %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("origins = %v", cfg.AllowedOrigins)
	}
}

func TestServerEnvValidate(t *testing.T) {
	base := ServerEnv{Store: StoreSQLite, SQLitePath: "x.db", JWTSecret: "s"}
	if err := base.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	bad := base
	bad.Store = "mongo"
	if err := bad.Validate(); err == nil {
		t.Fatalf("unknown store accepted")
	}
	bad = base
	bad.Store = StorePostgres
	if err := bad.Validate(); err == nil {
		t.Fatalf("postgres without dsn accepted")
	}
	bad = base
	bad.JWTSecret = ""
	if err := bad.Validate(); err == nil {
		t.Fatalf("missing secret accepted")
	}
}
