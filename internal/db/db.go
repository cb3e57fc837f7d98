// Package db provides a pgxpool-based connection pool with prepared statement
// registration and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ravenguard/bosstrack/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// bossColumns is the canonical select list for boss rows. Scan order must
// match internal/boss scanBoss.
const bossColumns = "id, guild_id, name, category, spawn_minutes, next_spawn_ts, " +
	"pre_announce_min, window_minutes, channel_id, trusted_role_id, sort_key, notes, version"

// registerPreparedStatements registers all statements the engine and admin
// layers use. Prepared statements eliminate parse overhead on every tick.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Bosses
		"boss_by_id":      "SELECT " + bossColumns + " FROM bosses WHERE id = $1",
		"bosses_by_guild": "SELECT " + bossColumns + " FROM bosses WHERE guild_id = $1 ORDER BY category, sort_key, name",
		"bosses_all":      "SELECT " + bossColumns + " FROM bosses ORDER BY guild_id, category, sort_key, name",

		// Aliases
		"aliases_by_guild": "SELECT boss_id, alias FROM boss_aliases WHERE guild_id = $1",
		"guild_ids":        "SELECT DISTINCT guild_id FROM bosses ORDER BY guild_id",

		// Subscriptions
		"subscription_audience": "SELECT user_id FROM subscriptions WHERE guild_id = $1 AND boss_id = $2 ORDER BY user_id",

		// Channel routing
		"guild_announce_channel": "SELECT announce_channel_id, sub_ping_channel_id FROM guild_config WHERE guild_id = $1",
		"category_channel":       "SELECT channel_id FROM category_channels WHERE guild_id = $1 AND category = $2",
		"heartbeat_guilds":       "SELECT guild_id, heartbeat_channel_id, heartbeat_minutes FROM guild_config WHERE heartbeat_channel_id IS NOT NULL AND heartbeat_minutes > 0",

		// Meta
		"meta_get": "SELECT value FROM meta WHERE key = $1",
		"meta_set": "INSERT INTO meta (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = excluded.value",
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
