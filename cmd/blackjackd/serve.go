package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"blackjack/internal/app"
	"blackjack/internal/config"
	"blackjack/internal/logging"
	"blackjack/internal/ports"
	"blackjack/internal/ports/postgres"
	"blackjack/internal/ports/redis"
	"blackjack/internal/ports/sqlite"
	"blackjack/internal/ports/ws"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the websocket table server",
		RunE: func(cmd *cobra.Command, args []string) error {
			envFiles, _ := cmd.Flags().GetStringSlice("env-file")
			env, err := config.LoadServerEnv(envFiles...)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, env)
		},
	}
}

func serve(ctx context.Context, env config.ServerEnv) error {
	logger, err := logging.New(env.LogLevel, env.LogEncoding)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	gameCfg := config.Default()
	if env.ConfigPath != "" {
		if gameCfg, err = config.Load(env.ConfigPath); err != nil {
			return err
		}
	}

	store, closer, err := openStore(ctx, env)
	if err != nil {
		return err
	}
	defer closer.Close()

	hub := ws.NewHub()
	manager, err := app.NewManager(store,
		app.WithBroadcaster(app.NewBroadcaster(hub, hub, logger, gameCfg.BroadcastConcurrency)),
		app.WithLogger(logger),
		app.WithTableConfig(gameCfg.TableConfig("")),
		app.WithTurnTimeout(gameCfg.TurnDuration()),
	)
	if err != nil {
		return err
	}
	defer manager.Close()
	if err := manager.Recover(ctx); err != nil {
		return err
	}

	verifier, err := ws.NewTokenVerifier(env.JWTSecret)
	if err != nil {
		return err
	}
	if env.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router, err := ws.NewRouter(ws.RouterConfig{
		Hub:            hub,
		Sessions:       manager,
		Verifier:       verifier,
		AllowedOrigins: env.AllowedOrigins,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{Addr: env.ListenAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("blackjack server listening", zap.String("addr", env.ListenAddr), zap.String("store", env.Store))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore opens the configured round store.
func openStore(ctx context.Context, env config.ServerEnv) (ports.RoundStore, io.Closer, error) {
	switch env.Store {
	case config.StoreSQLite:
		s, err := sqlite.Open(env.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.StorePostgres:
		s, err := postgres.Open(env.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.StoreRedis:
		s, err := redis.Open(ctx, env.RedisURL, "default")
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", env.Store)
	}
}
