package nakama

import (
	"context"
	"database/sql"
	"fmt"

	"blackjack/internal/app"
	"blackjack/internal/config"
	"blackjack/internal/logging"
	"blackjack/internal/ports/postgres"

	"github.com/heroiclabs/nakama-common/runtime"
	"go.uber.org/zap"
)

// settings are the module options read from the runtime environment.
type settings struct {
	ConfigPath  string
	LogLevel    string
	LogEncoding string
}

func readSettings(ctx context.Context) settings {
	s := settings{LogLevel: "info", LogEncoding: "json"}
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	if v := env[EnvConfigPath]; v != "" {
		s.ConfigPath = v
	}
	if v := env[EnvLogLevel]; v != "" {
		s.LogLevel = v
	}
	if v := env[EnvLogEncoding]; v != "" {
		s.LogEncoding = v
	}
	return s
}

func loadGameConfig(path string) (*config.GameConfig, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// InitModule wires the table manager, its Nakama-backed ports and the RPCs.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	s := readSettings(ctx)

	gameCfg, err := loadGameConfig(s.ConfigPath)
	if err != nil {
		logger.Error("Failed to load game config: %v", err)
		return err
	}
	zl, err := logging.New(s.LogLevel, s.LogEncoding)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	store, err := postgres.New(db)
	if err != nil {
		logger.Error("Failed to prepare round store: %v", err)
		return err
	}

	directory := NewDirectory()
	broadcaster := app.NewBroadcaster(directory, NewNotifier(nk), zl, gameCfg.BroadcastConcurrency)
	manager, err := app.NewManager(store,
		app.WithEconomy(NewEconomyAdapter(nk)),
		app.WithBroadcaster(broadcaster),
		app.WithLogger(zl.With(zap.String("runtime", "nakama"))),
		app.WithTableConfig(gameCfg.TableConfig("")),
		app.WithTurnTimeout(gameCfg.TurnDuration()),
	)
	if err != nil {
		return err
	}
	if err := manager.Recover(ctx); err != nil {
		logger.Warn("Failed to void unsettled rounds: %v", err)
	}

	handlers := NewHandlers(manager, directory)
	if err := handlers.Register(initializer); err != nil {
		return err
	}
	if err := initializer.RegisterEventSessionEnd(handlers.SessionEnd); err != nil {
		return err
	}

	logger.Info("Blackjack Go module loaded.")
	return nil
}
