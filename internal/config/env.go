package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage drivers understood by the daemon.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// ServerEnv is the standalone daemon's process configuration.
type ServerEnv struct {
	ListenAddr     string   `env:"BLACKJACK_LISTEN_ADDR" envDefault:":8080"`
	ConfigPath     string   `env:"BLACKJACK_CONFIG"`
	LogLevel       string   `env:"BLACKJACK_LOG_LEVEL" envDefault:"info"`
	LogEncoding    string   `env:"BLACKJACK_LOG_ENCODING" envDefault:"json"`
	Store          string   `env:"BLACKJACK_STORE" envDefault:"sqlite"`
	SQLitePath     string   `env:"BLACKJACK_SQLITE_PATH" envDefault:"blackjack.db"`
	PostgresDSN    string   `env:"BLACKJACK_POSTGRES_DSN"`
	RedisURL       string   `env:"BLACKJACK_REDIS_URL" envDefault:"redis://localhost:6379/0"`
	JWTSecret      string   `env:"BLACKJACK_JWT_SECRET"`
	AllowedOrigins []string `env:"BLACKJACK_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

// LoadServerEnv loads optional dotenv files, then parses the environment.
// Missing dotenv files are ignored.
func LoadServerEnv(dotenvFiles ...string) (ServerEnv, error) {
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return ServerEnv{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	var cfg ServerEnv
	if err := env.Parse(&cfg); err != nil {
		return ServerEnv{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return ServerEnv{}, err
	}
	return cfg, nil
}

// Validate checks driver-specific settings.
func (c ServerEnv) Validate() error {
	switch c.Store {
	case StoreSQLite:
		if c.SQLitePath == "" {
			return errors.New("BLACKJACK_SQLITE_PATH is required for the sqlite store")
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			return errors.New("BLACKJACK_POSTGRES_DSN is required for the postgres store")
		}
	case StoreRedis:
		if c.RedisURL == "" {
			return errors.New("BLACKJACK_REDIS_URL is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.JWTSecret == "" {
		return errors.New("BLACKJACK_JWT_SECRET is required")
	}
	return nil
}
