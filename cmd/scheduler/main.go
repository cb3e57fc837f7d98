// Command scheduler is the bosstrack respawn timer engine.
//
// Usage:
//
//	bosstrack-scheduler
//	API_PORT=8080 bosstrack-scheduler

// @title Bosstrack Ops API
// @version 1.0.0
// @description Operational API for the respawn timer engine: timer listings, kill and drift reports, roster and subscription administration.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
// @contact.name Bosstrack
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ravenguard/bosstrack/internal/announce"
	"github.com/ravenguard/bosstrack/internal/api"
	"github.com/ravenguard/bosstrack/internal/boss"
	"github.com/ravenguard/bosstrack/internal/clock"
	"github.com/ravenguard/bosstrack/internal/config"
	"github.com/ravenguard/bosstrack/internal/db"
	"github.com/ravenguard/bosstrack/internal/listener"
	"github.com/ravenguard/bosstrack/internal/maintenance"
	"github.com/ravenguard/bosstrack/internal/notify"
	"github.com/ravenguard/bosstrack/internal/procstate"
	"github.com/ravenguard/bosstrack/internal/reconcile"
	"github.com/ravenguard/bosstrack/internal/scheduler"
	"github.com/ravenguard/bosstrack/internal/seed"
	"github.com/ravenguard/bosstrack/internal/subscription"

	_ "github.com/ravenguard/bosstrack/docs" // swagger docs
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	clk := clock.Real{}

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	// Stores
	bossStore := boss.NewStore(pool.Pool)
	stateStore := procstate.NewStore(pool.Pool)
	outbox := announce.NewOutbox(pool.Pool)
	subs := subscription.NewIndex(pool.Pool)
	router := announce.NewRouter(pool.Pool)
	registry := boss.NewRegistry(bossStore, logger)

	// Enforce the built-in roster for every known guild whose marker for the
	// current roster version is missing.
	if err := enforceRoster(ctx, pool, bossStore, stateStore, outbox, clk, logger); err != nil {
		logger.Error("Roster enforcement failed", "error", err)
		os.Exit(1)
	}

	// Reconcile downtime before the first tick. A failure here means timer
	// state could not be brought forward; refusing to start is safer than
	// ticking against stale cycles.
	reconciler := reconcile.New(bossStore, stateStore, outbox, subs, router, clk, cfg.CatchupSilent, logger)
	result, err := reconciler.Run(ctx)
	if err != nil {
		logger.Error("Downtime reconciliation failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Downtime reconciled", "result", result.Summary())

	// Load the in-memory registry
	if err := registry.LoadAll(ctx); err != nil {
		logger.Error("Failed to load boss registry", "error", err)
		os.Exit(1)
	}
	logger.Info("Boss registry loaded", "guilds", len(registry.GuildIDs()))

	// Outbound sender: webhook when configured, log sink otherwise
	var sender notify.Sender
	if ds := notify.NewDiscordSender(cfg.WebhookURL, cfg.SendRatePerSec, cfg.SendBurst); ds != nil {
		sender = ds
		logger.Info("Webhook sender configured")
	} else {
		sender = notify.NewLogSender(logger)
		logger.Info("No webhook configured, announcements go to the log")
	}

	// Dispatch worker
	dispatcher := announce.NewDispatcher(outbox, sender, router, cfg.DispatchBatchSize, cfg.DeliveryTimeout, logger)
	go dispatcher.Run(ctx, cfg.DispatchInterval)

	// LISTEN/NOTIFY consumer keeps the registry fresh on admin writes
	go listener.Start(ctx, cfg.DatabaseURL, registry, logger)

	// Maintenance tickers (cleanup, heartbeat)
	go maintenance.Start(ctx, pool.Pool, outbox, clk, maintenance.Config{
		CleanupInterval:   cfg.CleanupInterval,
		HeartbeatInterval: cfg.HeartbeatInterval,
	}, logger)

	// Tick engine
	engine := scheduler.New(clk, registry, bossStore, outbox, subs, router,
		stateStore, cfg.SchedulerWorkers, logger)
	go engine.Run(ctx, cfg.TickInterval)

	// Ops API
	mux := api.NewRouter(pool.Pool, registry, cfg, clk)
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting bosstrack scheduler",
			"addr", addr,
			"environment", cfg.Environment,
			"tick", cfg.TickInterval,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}

	// Record when we went offline so the next boot can reconcile the gap.
	if err := stateStore.MarkOffline(shutdownCtx, clk.Unix()); err != nil {
		logger.Error("Failed to record offline timestamp", "error", err)
	}
	logger.Info("Scheduler stopped")
}

// enforceRoster runs seed enforcement for every guild already present in the
// bosses table when its marker for the current roster version is missing.
// New guilds are seeded explicitly via bossctl.
func enforceRoster(ctx context.Context, pool *db.Pool, bosses *boss.Store, state *procstate.Store, outbox *announce.Outbox, clk clock.Clock, logger *slog.Logger) error {
	guilds, err := bosses.GuildIDs(ctx)
	if err != nil {
		return fmt.Errorf("list guilds: %w", err)
	}
	now := clk.Unix()
	for _, gid := range guilds {
		marker := fmt.Sprintf("seed:%s:g%d", seed.Version, gid)
		if v, err := state.Get(ctx, marker); err == nil && v != "" {
			continue
		}
		if _, err := seed.EnsureGuild(ctx, pool.Pool, state, outbox, gid, now, logger); err != nil {
			return fmt.Errorf("seed guild %d: %w", gid, err)
		}
	}
	return nil
}
