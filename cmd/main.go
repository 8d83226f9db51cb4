/*
Package main is the entry point for the LAN Chat Server.

It is responsible for loading configuration, initializing the global logging system,
choosing the account storage (Postgres when DATABASE_URL is set, memory otherwise),
starting the chat Manager and the HTTP server, and gracefully handling operating system
interrupt signals (SIGINT, SIGTERM) to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"lanchat/internal/app/account"
	"lanchat/internal/app/chat"
	"lanchat/internal/app/db"
	"lanchat/internal/configs"
	"lanchat/internal/handler"
	"lanchat/internal/pkg/limiter"
	"lanchat/internal/pkg/logx"
	"lanchat/internal/pkg/metrics"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment(), cfg.LogLevel)
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins()).
		Str("default_group", cfg.DefaultGroupName).
		Int64("max_file_bytes", cfg.MaxFileBytes).
		Bool("database", cfg.DatabaseDSN != "").
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := newAccountRepository(ctx, cfg)
	if err != nil {
		logx.Fatal(err, "Failed to initialize account storage")
	}
	defer closeRepo()

	m := metrics.New()
	accounts := account.NewStore(repo, cfg.PasswordHashCost)
	manager := chat.NewManager(cfg, accounts, m)

	connectLimiter := limiter.NewIPRateLimiter(rate.Limit(cfg.ConnectRate), cfg.ConnectBurst)
	defer connectLimiter.Stop()

	router := handler.Router(&handler.AppDeps{
		Manager:        manager,
		Config:         cfg,
		Metrics:        m,
		ConnectLimiter: connectLimiter,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     router,
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("LAN Chat Server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	// hijacked WebSocket connections are not tracked by the server; the manager closes them
	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	if !manager.Shutdown(shutdownTimeout) {
		logx.Warn("Some sessions did not finish before the shutdown timeout")
	}

	logx.Info("Server gracefully stopped.")
}

// newAccountRepository picks the Postgres repository when a DSN is configured.
func newAccountRepository(ctx context.Context, cfg *configs.AppConfig) (account.Repository, func(), error) {
	if cfg.DatabaseDSN == "" {
		logx.Info("DATABASE_URL not set, keeping accounts in memory")
		return account.NewMemoryRepository(), func() {}, nil
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}

	logx.Info("Accounts stored in Postgres")
	return account.NewPostgresRepository(pool), pool.Close, nil
}
