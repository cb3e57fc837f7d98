// Package scheduler drives the respawn timers: once per tick it classifies
// every boss, enqueues pre-announce and spawn intents exactly once per
// cycle, and rolls timers forward when a window closes unobserved.
//
// Bosses are independent units, so evaluation fans out across a bounded
// worker pool; all writes for one boss within a tick happen on one worker.
// last_tick_ts is written only after every worker has joined.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ravenguard/bosstrack/internal/announce"
	"github.com/ravenguard/bosstrack/internal/boss"
	"github.com/ravenguard/bosstrack/internal/clock"
	"github.com/ravenguard/bosstrack/internal/respawn"
)

// BossSource is the registry surface the engine reads.
type BossSource interface {
	Reload(ctx context.Context) error
	All() []boss.Boss
}

// TimerStore applies rollover writes with optimistic concurrency.
type TimerStore interface {
	UpdateNextSpawn(ctx context.Context, id, version, nextTS int64) error
}

// Enqueuer records notification intents. The bool result is false when the
// cycle was already recorded.
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

// TickRecorder persists tick completion for the downtime reconciler.
type TickRecorder interface {
	SaveTick(ctx context.Context, ts int64) error
}

// overdueGrace mirrors the timer-listing grace before an overdue boss
// shows as lost; only used for message formatting here.
const overdueGrace = 1800

// Engine is the tick-driven notification scheduler.
type Engine struct {
	clock    clock.Clock
	bosses   BossSource
	timers   TimerStore
	outbox   Enqueuer
	subs     AudienceSource
	router   HintResolver
	recorder TickRecorder
	workers  int
	logger   *slog.Logger

	mu        sync.Mutex
	badConfig map[int64]bool // bosses already reported for bad intervals
}

// New creates an Engine.
func New(clk clock.Clock, bosses BossSource, timers TimerStore, outbox Enqueuer,
	subs AudienceSource, router HintResolver, recorder TickRecorder,
	workers int, logger *slog.Logger) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		clock:     clk,
		bosses:    bosses,
		timers:    timers,
		outbox:    outbox,
		subs:      subs,
		router:    router,
		recorder:  recorder,
		workers:   workers,
		logger:    logger,
		badConfig: make(map[int64]bool),
	}
}

// TickResult summarizes one tick.
type TickResult struct {
	Evaluated   int
	PreQueued   int
	SpawnQueued int
	RolledOver  int
	Conflicts   int
	Skipped     int
	Errors      []string
	Duration    time.Duration
}

// Summary renders the result for logs.
func (r TickResult) Summary() string {
	return fmt.Sprintf("evaluated=%d pre=%d spawn=%d rolled=%d conflicts=%d skipped=%d errors=%d",
		r.Evaluated, r.PreQueued, r.SpawnQueued, r.RolledOver, r.Conflicts, r.Skipped, len(r.Errors))
}

// Run ticks on a fixed interval until ctx is cancelled. Intended to be
// called with `go`.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	e.logger.Info("Scheduler started", "interval", interval, "workers", e.workers)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			res := e.Tick(ctx)
			if res.PreQueued+res.SpawnQueued+res.RolledOver+len(res.Errors) > 0 {
				e.logger.Info("tick", "summary", res.Summary(), "duration", res.Duration.Round(time.Millisecond))
			}
		case <-ctx.Done():
			e.logger.Info("Scheduler stopped")
			return
		}
	}
}

// Tick evaluates every boss once. Per-boss failures are collected, never
// propagated — no boss can abort evaluation of any other.
func (e *Engine) Tick(ctx context.Context) TickResult {
	start := time.Now()
	now := e.clock.Unix()

	if err := e.bosses.Reload(ctx); err != nil {
		// keep the previous snapshot; stale by at most one tick
		e.logger.Warn("registry reload failed, using previous snapshot", "error", err)
	}
	list := e.bosses.All()

	var res TickResult
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, b := range list {
		g.Go(func() error {
			out := e.evaluate(gctx, now, b)
			mu.Lock()
			res.Evaluated++
			res.PreQueued += out.preQueued
			res.SpawnQueued += out.spawnQueued
			res.RolledOver += out.rolled
			res.Conflicts += out.conflicts
			res.Skipped += out.skipped
			if out.err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("boss %d: %v", b.ID, out.err))
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	// advanced only after all workers joined; the reconciler depends on it
	if err := e.recorder.SaveTick(ctx, now); err != nil {
		e.logger.Warn("persist last tick failed", "error", err)
	}

	res.Duration = time.Since(start)
	return res
}

type evalResult struct {
	preQueued   int
	spawnQueued int
	rolled      int
	conflicts   int
	skipped     int
	err         error
}

func (e *Engine) evaluate(ctx context.Context, now int64, b boss.Boss) evalResult {
	var out evalResult

	phase, err := respawn.Classify(now, b.NextSpawnTS, b.SpawnMinutes, b.PreAnnounceMin, b.WindowMinutes)
	if errors.Is(err, respawn.ErrBadInterval) {
		e.warnBadConfig(b)
		out.skipped++
		return out
	}
	if err != nil {
		out.err = err
		return out
	}

	switch phase {
	case respawn.Dormant:
		// nothing due

	case respawn.PreAnnounce:
		queued, err := e.enqueue(ctx, b, announce.PhasePre, preMessage(b, now))
		if err != nil {
			out.err = err
			return out
		}
		if queued {
			out.preQueued++
		}

	case respawn.SpawnWindowOpen:
		queued, err := e.enqueue(ctx, b, announce.PhaseSpawn, spawnMessage(b))
		if err != nil {
			out.err = err
			return out
		}
		if queued {
			out.spawnQueued++
		}

	case respawn.Overdue:
		// the spawn intent may already exist from the window-open tick;
		// Enqueue is the gate either way
		queued, err := e.enqueue(ctx, b, announce.PhaseSpawn, spawnMessage(b))
		if err != nil {
			out.err = err
			return out
		}
		if queued {
			out.spawnQueued++
		}

		next := respawn.Rollover(now, b.NextSpawnTS, b.SpawnMinutes)
		switch err := e.timers.UpdateNextSpawn(ctx, b.ID, b.Version, next); {
		case err == nil:
			out.rolled++
		case errors.Is(err, boss.ErrConflict) || errors.Is(err, boss.ErrNotFound):
			// lost to an administrative edit or deletion; re-evaluated next tick
			out.conflicts++
		default:
			out.err = err
		}
	}
	return out
}

// enqueue builds and records one intent. Audience or routing failures
// degrade to a channel-only announcement rather than dropping the event.
func (e *Engine) enqueue(ctx context.Context, b boss.Boss, phase, message string) (bool, error) {
	audience, err := e.subs.Audience(ctx, b.GuildID, b.ID)
	if err != nil {
		e.logger.Warn("audience lookup failed", "guild_id", b.GuildID, "boss_id", b.ID, "error", err)
		audience = nil
	}
	hint, err := e.router.ChannelHint(ctx, b)
	if err != nil {
		e.logger.Warn("channel routing failed", "guild_id", b.GuildID, "boss_id", b.ID, "error", err)
		hint = nil
	}

	return e.outbox.Enqueue(ctx, announce.Intent{
		GuildID:     b.GuildID,
		BossID:      b.ID,
		Phase:       phase,
		CycleTS:     b.NextSpawnTS,
		BossName:    b.Name,
		Message:     message,
		ChannelHint: hint,
		Audience:    audience,
	})
}

func (e *Engine) warnBadConfig(b boss.Boss) {
	e.mu.Lock()
	seen := e.badConfig[b.ID]
	e.badConfig[b.ID] = true
	e.mu.Unlock()
	if !seen {
		e.logger.Warn("boss excluded from scheduling: non-positive spawn interval",
			"guild_id", b.GuildID, "boss_id", b.ID, "name", b.Name, "spawn_minutes", b.SpawnMinutes)
	}
}

func preMessage(b boss.Boss, now int64) string {
	left := b.NextSpawnTS - now
	if left < 0 {
		left = 0
	}
	return fmt.Sprintf("%s — spawn in %s (almost up).", b.Name, respawn.FormatDelta(left, overdueGrace))
}

func spawnMessage(b boss.Boss) string {
	if b.WindowMinutes > 0 {
		return fmt.Sprintf("%s — spawn window has opened.", b.Name)
	}
	return fmt.Sprintf("%s — spawn time reached.", b.Name)
}
