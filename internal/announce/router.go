package announce

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ravenguard/bosstrack/internal/boss"
)

// Router resolves the channel hint carried on an intent: the boss's own
// channel wins, then the guild's per-category channel, then the guild
// default. The hint is opaque to the engine — the messaging collaborator
// decides what to do with it.
type Router struct {
	pool *pgxpool.Pool
}

// NewRouter creates a Router over an existing pool.
func NewRouter(pool *pgxpool.Pool) *Router {
	return &Router{pool: pool}
}

// ChannelHint resolves the announce target for a boss. Returns nil when no
// routing is configured anywhere; the sender then uses its default sink.
func (r *Router) ChannelHint(ctx context.Context, b boss.Boss) (*int64, error) {
	if b.ChannelID != nil {
		return b.ChannelID, nil
	}

	var catChannel int64
	err := r.pool.QueryRow(ctx, "category_channel", b.GuildID, b.Category).Scan(&catChannel)
	if err == nil {
		return &catChannel, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("category channel: %w", err)
	}

	var announceChannel, subPingChannel *int64
	err = r.pool.QueryRow(ctx, "guild_announce_channel", b.GuildID).Scan(&announceChannel, &subPingChannel)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("guild announce channel: %w", err)
	}
	return announceChannel, nil
}

// PingChannelHint resolves the subscriber-ping target: the dedicated ping
// channel when set, else the guild announce channel.
func (r *Router) PingChannelHint(ctx context.Context, guildID int64) (*int64, error) {
	var announceChannel, subPingChannel *int64
	err := r.pool.QueryRow(ctx, "guild_announce_channel", guildID).Scan(&announceChannel, &subPingChannel)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("guild announce channel: %w", err)
	}
	if subPingChannel != nil {
		return subPingChannel, nil
	}
	return announceChannel, nil
}
