// Package subscription maps bosses to the users who want to be pinged when
// they come up. The scheduler only reads it; membership changes arrive
// through the admin surface.
package subscription

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Index is the pgx-backed subscription lookup.
type Index struct {
	pool *pgxpool.Pool
}

// NewIndex creates an Index over an existing pool.
func NewIndex(pool *pgxpool.Pool) *Index {
	return &Index{pool: pool}
}

// Audience returns the user ids subscribed to a boss, in stable order.
func (i *Index) Audience(ctx context.Context, guildID, bossID int64) ([]int64, error) {
	rows, err := i.pool.Query(ctx, "subscription_audience", guildID, bossID)
	if err != nil {
		return nil, fmt.Errorf("subscription audience: %w", err)
	}
	defer rows.Close()

	var users []int64
	for rows.Next() {
		var uid int64
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		users = append(users, uid)
	}
	return users, rows.Err()
}

// Add subscribes a user to a boss. Idempotent.
func (i *Index) Add(ctx context.Context, guildID, bossID, userID int64) error {
	_, err := i.pool.Exec(ctx, `
		INSERT INTO subscriptions (guild_id, boss_id, user_id)
		VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		guildID, bossID, userID)
	if err != nil {
		return fmt.Errorf("add subscription: %w", err)
	}
	return nil
}

// Remove unsubscribes a user from a boss. Removing a missing row is not an
// error.
func (i *Index) Remove(ctx context.Context, guildID, bossID, userID int64) error {
	_, err := i.pool.Exec(ctx, `
		DELETE FROM subscriptions WHERE guild_id = $1 AND boss_id = $2 AND user_id = $3`,
		guildID, bossID, userID)
	if err != nil {
		return fmt.Errorf("remove subscription: %w", err)
	}
	return nil
}
