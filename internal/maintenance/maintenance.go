// Package maintenance runs periodic background tasks as Go tickers.
// All scheduled work is driven from Go since the engine is already a
// persistent, long-running service (required for LISTEN/NOTIFY).
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ravenguard/bosstrack/internal/announce"
	"github.com/ravenguard/bosstrack/internal/clock"
)

// Retention for delivered/failed outbox rows.
const purgeKeep = 30 * 24 * time.Hour

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	CleanupInterval   time.Duration // Purge delivered outbox rows, expire stale intents
	HeartbeatInterval time.Duration // Per-guild "still alive" announcements
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig() Config {
	return Config{
		CleanupInterval:   30 * time.Minute,
		HeartbeatInterval: time.Minute,
	}
}

// Start launches all configured maintenance tickers. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, pool *pgxpool.Pool, outbox *announce.Outbox, clk clock.Clock, cfg Config, logger *slog.Logger) {
	logger.Info("Maintenance tickers started",
		"cleanup", cfg.CleanupInterval,
		"heartbeat", cfg.HeartbeatInterval)

	tickers := make([]*time.Ticker, 0, 2)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	if cfg.CleanupInterval > 0 {
		t := time.NewTicker(cfg.CleanupInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { cleanup(ctx, outbox, logger) })
	}

	if cfg.HeartbeatInterval > 0 {
		t := time.NewTicker(cfg.HeartbeatInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { heartbeat(ctx, pool, outbox, clk, logger) })
	}

	<-ctx.Done()
	logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// --------------------------------------------------------------------------
// Task implementations
// --------------------------------------------------------------------------

// cleanup expires scheduled intents past their useful lifetime and purges
// sent/failed outbox rows past retention.
func cleanup(ctx context.Context, outbox *announce.Outbox, logger *slog.Logger) {
	expired, err := outbox.ExpireStale(ctx)
	if err != nil {
		logger.Warn("Cleanup: failed to expire stale announcements", "error", err)
	} else if expired > 0 {
		logger.Info("Cleanup: expired stale announcements", "count", expired)
	}

	purged, err := outbox.PurgeDelivered(ctx, purgeKeep)
	if err != nil {
		logger.Warn("Cleanup: failed to purge delivered announcements", "error", err)
	} else if purged > 0 {
		logger.Info("Cleanup: purged delivered announcements", "count", purged)
	}
}

// heartbeat enqueues an "engine alive" announcement for every guild that
// configured a heartbeat channel and whose period has elapsed. The cycle
// timestamp is the start of the current heartbeat period, so a restart
// inside the same period never produces a second message.
func heartbeat(ctx context.Context, pool *pgxpool.Pool, outbox *announce.Outbox, clk clock.Clock, logger *slog.Logger) {
	rows, err := pool.Query(ctx, "heartbeat_guilds")
	if err != nil {
		logger.Warn("Heartbeat: failed to list guilds", "error", err)
		return
	}
	defer rows.Close()

	type target struct {
		guildID   int64
		channelID int64
		minutes   int
	}
	var targets []target
	for rows.Next() {
		var t target
		if err := rows.Scan(&t.guildID, &t.channelID, &t.minutes); err != nil {
			logger.Warn("Heartbeat: failed to scan guild row", "error", err)
			return
		}
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		logger.Warn("Heartbeat: failed to list guilds", "error", err)
		return
	}

	now := clk.Unix()
	for _, t := range targets {
		period := int64(t.minutes) * 60
		cycle := now - now%period

		channel := t.channelID
		inserted, err := outbox.Enqueue(ctx, announce.Intent{
			GuildID:     t.guildID,
			BossID:      0,
			Phase:       announce.PhaseHeartbeat,
			CycleTS:     cycle,
			BossName:    "heartbeat",
			Message:     fmt.Sprintf("Respawn tracker online. %s UTC.", time.Unix(now, 0).UTC().Format("15:04")),
			ChannelHint: &channel,
		})
		if err != nil {
			logger.Warn("Heartbeat: enqueue failed", "guild_id", t.guildID, "error", err)
			continue
		}
		if inserted {
			logger.Debug("Heartbeat enqueued", "guild_id", t.guildID, "cycle_ts", cycle)
		}
	}
}
