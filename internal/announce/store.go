package announce

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Outbox persists notification intents.
type Outbox struct {
	pool *pgxpool.Pool
}

// NewOutbox creates an Outbox over an existing pool.
func NewOutbox(pool *pgxpool.Pool) *Outbox {
	return &Outbox{pool: pool}
}

// Enqueue inserts an intent if none exists for its (guild, boss, phase,
// cycle) key. Returns false when the cycle was already recorded — the
// fire-once gate for the scheduler.
func (o *Outbox) Enqueue(ctx context.Context, in Intent) (bool, error) {
	tag, err := o.pool.Exec(ctx, `
		INSERT INTO announcements (guild_id, boss_id, phase, cycle_ts, boss_name,
			message, channel_hint, audience)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, '{}'::bigint[]))
		ON CONFLICT (guild_id, boss_id, phase, cycle_ts) DO NOTHING`,
		in.GuildID, in.BossID, in.Phase, in.CycleTS, in.BossName,
		in.Message, in.ChannelHint, in.Audience)
	if err != nil {
		return false, fmt.Errorf("enqueue announcement: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkCycleAnnounced records terminal rows for a boss cycle so later
// Enqueue calls for the same cycle dedupe away. Bosses that enter the
// schedule already overdue, like freshly seeded roster rows, get their
// backdated cycle recorded here so neither the tick loop nor startup
// reconciliation announces it.
func (o *Outbox) MarkCycleAnnounced(ctx context.Context, guildID, bossID, cycleTS int64, bossName string) error {
	for _, phase := range []string{PhaseSpawn, PhaseCatchup} {
		_, err := o.pool.Exec(ctx, `
			INSERT INTO announcements (guild_id, boss_id, phase, cycle_ts, boss_name,
				message, status, sent_at)
			VALUES ($1, $2, $3, $4, $5, '', 'sent', NOW())
			ON CONFLICT (guild_id, boss_id, phase, cycle_ts) DO NOTHING`,
			guildID, bossID, phase, cycleTS, bossName)
		if err != nil {
			return fmt.Errorf("mark cycle announced: %w", err)
		}
	}
	return nil
}

// ClaimDue atomically claims a batch of scheduled intents for sending.
// Uses FOR UPDATE SKIP LOCKED so a slow delivery never blocks the claim.
func (o *Outbox) ClaimDue(ctx context.Context, limit int) ([]Intent, error) {
	rows, err := o.pool.Query(ctx, `
		UPDATE announcements
		SET status = 'sending', updated_at = NOW()
		WHERE id IN (
			SELECT id FROM announcements
			WHERE status = 'scheduled' AND created_at > NOW() - make_interval(secs => $2)
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, guild_id, boss_id, phase, cycle_ts, boss_name,
			message, channel_hint, audience, attempts`,
		limit, StaleAfter.Seconds())
	if err != nil {
		return nil, fmt.Errorf("claim due announcements: %w", err)
	}
	defer rows.Close()

	var claimed []Intent
	for rows.Next() {
		var in Intent
		if err := rows.Scan(&in.ID, &in.GuildID, &in.BossID, &in.Phase, &in.CycleTS,
			&in.BossName, &in.Message, &in.ChannelHint, &in.Audience, &in.Attempts); err != nil {
			return nil, fmt.Errorf("scan claimed: %w", err)
		}
		claimed = append(claimed, in)
	}
	return claimed, rows.Err()
}

// MarkSent records confirmed delivery.
func (o *Outbox) MarkSent(ctx context.Context, id int64) error {
	_, err := o.pool.Exec(ctx, `
		UPDATE announcements SET status = 'sent', sent_at = NOW(), updated_at = NOW()
		WHERE id = $1`, id)
	return err
}

// MarkRetry returns an intent to the scheduled state after a failed
// attempt so the next dispatch pass picks it up again. The sent flag is
// deliberately left unset for non-retryable failures too — eventual
// delivery over silent loss.
func (o *Outbox) MarkRetry(ctx context.Context, id int64, reason string) error {
	_, err := o.pool.Exec(ctx, `
		UPDATE announcements
		SET status = 'scheduled', attempts = attempts + 1, last_error = $2, updated_at = NOW()
		WHERE id = $1`, id, reason)
	return err
}

// ExpireStale marks scheduled intents past their useful lifetime as
// failed. Returns the number of rows expired.
func (o *Outbox) ExpireStale(ctx context.Context) (int64, error) {
	tag, err := o.pool.Exec(ctx, `
		UPDATE announcements
		SET status = 'failed', last_error = 'expired before delivery', updated_at = NOW()
		WHERE status IN ('scheduled', 'sending') AND created_at <= NOW() - make_interval(secs => $1)`,
		StaleAfter.Seconds())
	if err != nil {
		return 0, fmt.Errorf("expire stale announcements: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PurgeDelivered removes sent/failed rows older than keep. Returns the
// number of rows purged.
func (o *Outbox) PurgeDelivered(ctx context.Context, keep time.Duration) (int64, error) {
	tag, err := o.pool.Exec(ctx, `
		DELETE FROM announcements
		WHERE status IN ('sent', 'failed') AND updated_at < NOW() - make_interval(secs => $1)`,
		keep.Seconds())
	if err != nil {
		return 0, fmt.Errorf("purge delivered announcements: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PendingForBoss reports whether any intent is recorded for a boss's
// cycle and phase. Used by bossctl find to show whether the current
// cycle has been announced.
func (o *Outbox) PendingForBoss(ctx context.Context, guildID, bossID int64, phase string, cycleTS int64) (bool, error) {
	var n int
	err := o.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM announcements
		WHERE guild_id = $1 AND boss_id = $2 AND phase = $3 AND cycle_ts = $4`,
		guildID, bossID, phase, cycleTS).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("pending for boss: %w", err)
	}
	return n > 0, nil
}
