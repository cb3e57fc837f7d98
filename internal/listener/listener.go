// Package listener provides a Postgres LISTEN/NOTIFY consumer that keeps the
// in-memory boss registry in sync with writes made outside the scheduler
// process. It holds a dedicated pgx connection (not from the pool) listening
// on the `boss_changed` channel.
//
// Any insert, update, or delete on the bosses or boss_aliases tables fires
// pg_notify with the affected guild id, and this consumer reloads that
// guild's registry index.
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ravenguard/bosstrack/internal/boss"
)

const (
	channel          = "boss_changed"
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// ChangeEvent is the JSON payload from pg_notify('boss_changed', ...).
type ChangeEvent struct {
	GuildID int64 `json:"guild_id"`
}

// Start opens a dedicated connection and listens on the boss_changed channel.
// It reconnects automatically on connection loss. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, dbURL string, registry *boss.Registry, logger *slog.Logger) {
	backoff := reconnectBackoff

	for {
		err := listenLoop(ctx, dbURL, registry, logger)
		if ctx.Err() != nil {
			logger.Info("Boss change listener stopped (context cancelled)")
			return
		}

		logger.Error("Boss change listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection drops
// or the context is cancelled.
func listenLoop(ctx context.Context, dbURL string, registry *boss.Registry, logger *slog.Logger) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	_, err = conn.Exec(ctx, "LISTEN "+channel)
	if err != nil {
		return fmt.Errorf("LISTEN %s: %w", channel, err)
	}
	logger.Info("Boss change listener connected", "channel", channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		var event ChangeEvent
		if err := json.Unmarshal([]byte(notification.Payload), &event); err != nil {
			logger.Warn("Failed to parse boss change event",
				"payload", notification.Payload, "error", err)
			continue
		}
		if event.GuildID == 0 {
			continue
		}

		if err := registry.Load(ctx, event.GuildID); err != nil {
			logger.Warn("Failed to reload guild after change event",
				"guild_id", event.GuildID, "error", err)
			continue
		}
		logger.Debug("Guild registry reloaded", "guild_id", event.GuildID)
	}
}
