// Package reconcile restores timer invariants after process downtime. It
// runs once at startup, before the first scheduled tick, and compresses
// however long the process was away into at most one rollover step per
// boss — a boss missed for ten cycles fires one catch-up notification,
// never ten.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ravenguard/bosstrack/internal/announce"
	"github.com/ravenguard/bosstrack/internal/boss"
	"github.com/ravenguard/bosstrack/internal/clock"
	"github.com/ravenguard/bosstrack/internal/procstate"
	"github.com/ravenguard/bosstrack/internal/respawn"
)

// BossStore is the storage surface the reconciler needs.
type BossStore interface {
	All(ctx context.Context) ([]boss.Boss, error)
	UpdateNextSpawn(ctx context.Context, id, version, nextTS int64) error
}

// StateStore loads and updates process run state.
type StateStore interface {
	Load(ctx context.Context) (procstate.State, error)
	MarkStartup(ctx context.Context, ts int64) error
}

// Enqueuer records catch-up intents through the same outbox the live
// scheduler uses, so delivery and dedup behave identically.
type Enqueuer interface {
	Enqueue(ctx context.Context, in announce.Intent) (bool, error)
}

// AudienceSource supplies the subscribers for a boss.
type AudienceSource interface {
	Audience(ctx context.Context, guildID, bossID int64) ([]int64, error)
}

// HintResolver resolves the channel hint carried on an intent.
type HintResolver interface {
	ChannelHint(ctx context.Context, b boss.Boss) (*int64, error)
}

// Reconciler rolls timers forward after a gap.
type Reconciler struct {
	bosses BossStore
	state  StateStore
	outbox Enqueuer
	subs   AudienceSource
	router HintResolver
	clock  clock.Clock
	silent bool // suppress catch-up notifications entirely
	logger *slog.Logger
}

// New creates a Reconciler.
func New(bosses BossStore, state StateStore, outbox Enqueuer, subs AudienceSource,
	router HintResolver, clk clock.Clock, silent bool, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		bosses: bosses,
		state:  state,
		outbox: outbox,
		subs:   subs,
		router: router,
		clock:  clk,
		silent: silent,
		logger: logger,
	}
}

// Result summarizes one reconciliation.
type Result struct {
	Bosses    int
	Resynced  int
	CatchUps  int
	Conflicts int
	Skipped   int
}

// Summary renders the result for logs.
func (r Result) Summary() string {
	return fmt.Sprintf("bosses=%d resynced=%d catchups=%d conflicts=%d skipped=%d",
		r.Bosses, r.Resynced, r.CatchUps, r.Conflicts, r.Skipped)
}

// Run performs startup reconciliation. Any storage failure here is
// returned to the caller and must abort process start — there is no safe
// partial state to schedule against.
func (r *Reconciler) Run(ctx context.Context) (Result, error) {
	now := r.clock.Unix()

	st, err := r.state.Load(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load process state: %w", err)
	}

	// Prefer the explicit clean-shutdown marker; fall back to the last
	// completed tick. Both zero means the gap start is unknown, which is
	// treated as "arbitrarily long": every overdue boss is resynced but no
	// catch-up notices fire, since there is no bound to attribute them to.
	gapStart := st.OfflineSince
	if gapStart == 0 {
		gapStart = st.LastTick
	}
	gapKnown := gapStart > 0 && gapStart <= now

	bosses, err := r.bosses.All(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load bosses: %w", err)
	}

	res := Result{Bosses: len(bosses)}
	for _, b := range bosses {
		if b.SpawnMinutes <= 0 {
			r.logger.Warn("boss excluded from reconciliation: non-positive spawn interval",
				"guild_id", b.GuildID, "boss_id", b.ID, "name", b.Name)
			res.Skipped++
			continue
		}

		// Only bosses more than one full cycle behind need resync; anything
		// merely overdue is handled by the first live tick with a single
		// spawn notification.
		if now-b.NextSpawnTS < b.IntervalSeconds() {
			continue
		}

		next := respawn.Rollover(now, b.NextSpawnTS, b.SpawnMinutes)
		switch err := r.bosses.UpdateNextSpawn(ctx, b.ID, b.Version, next); {
		case err == nil:
			res.Resynced++
		case errors.Is(err, boss.ErrConflict) || errors.Is(err, boss.ErrNotFound):
			res.Conflicts++
			continue
		default:
			return res, fmt.Errorf("resync boss %d: %w", b.ID, err)
		}

		if r.silent || !gapKnown || b.NextSpawnTS < gapStart {
			// silent resync: spawn predates the gap or cannot be attributed
			continue
		}
		// same routing and mentions as a live spawn notification; lookup
		// failures degrade to a channel-only announcement
		audience, err := r.subs.Audience(ctx, b.GuildID, b.ID)
		if err != nil {
			r.logger.Warn("audience lookup failed", "guild_id", b.GuildID, "boss_id", b.ID, "error", err)
			audience = nil
		}
		hint, err := r.router.ChannelHint(ctx, b)
		if err != nil {
			r.logger.Warn("channel routing failed", "guild_id", b.GuildID, "boss_id", b.ID, "error", err)
			hint = nil
		}

		queued, err := r.outbox.Enqueue(ctx, announce.Intent{
			GuildID:  b.GuildID,
			BossID:   b.ID,
			Phase:    announce.PhaseCatchup,
			CycleTS:  b.NextSpawnTS,
			BossName: b.Name,
			Message: fmt.Sprintf("%s spawned while the tracker was offline (%s).",
				b.Name, respawn.HumanAgo(now-b.NextSpawnTS)),
			ChannelHint: hint,
			Audience:    audience,
		})
		if err != nil {
			return res, fmt.Errorf("enqueue catch-up for boss %d: %w", b.ID, err)
		}
		if queued {
			res.CatchUps++
		}
	}

	if err := r.state.MarkStartup(ctx, now); err != nil {
		return res, fmt.Errorf("mark startup: %w", err)
	}

	r.logger.Info("Downtime reconciliation complete",
		"gap_known", gapKnown, "summary", res.Summary())
	return res, nil
}
