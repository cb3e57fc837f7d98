package reconcile

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ravenguard/bosstrack/internal/announce"
	"github.com/ravenguard/bosstrack/internal/boss"
	"github.com/ravenguard/bosstrack/internal/clock"
	"github.com/ravenguard/bosstrack/internal/procstate"
)

const t0 = int64(1_700_000_000)

// --- fakes -----------------------------------------------------------------

type fakeBossStore struct {
	bosses  map[int64]boss.Boss
	failAll bool
}

func (f *fakeBossStore) All(context.Context) ([]boss.Boss, error) {
	if f.failAll {
		return nil, assert.AnError
	}
	out := make([]boss.Boss, 0, len(f.bosses))
	for _, b := range f.bosses {
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeBossStore) UpdateNextSpawn(_ context.Context, id, version, nextTS int64) error {
	b, ok := f.bosses[id]
	if !ok {
		return boss.ErrNotFound
	}
	if b.Version != version {
		return boss.ErrConflict
	}
	b.NextSpawnTS = nextTS
	b.Version++
	f.bosses[id] = b
	return nil
}

type fakeStateStore struct {
	st       procstate.State
	startups []int64
}

func (f *fakeStateStore) Load(context.Context) (procstate.State, error) { return f.st, nil }

func (f *fakeStateStore) MarkStartup(_ context.Context, ts int64) error {
	f.startups = append(f.startups, ts)
	return nil
}

type fakeOutbox struct {
	seen    map[[3]int64]bool
	intents []announce.Intent
}

func (f *fakeOutbox) Enqueue(_ context.Context, in announce.Intent) (bool, error) {
	if f.seen == nil {
		f.seen = make(map[[3]int64]bool)
	}
	key := [3]int64{in.GuildID, in.BossID, in.CycleTS}
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	f.intents = append(f.intents, in)
	return true, nil
}

func (f *fakeOutbox) markAnnounced(guildID, bossID, cycleTS int64) {
	if f.seen == nil {
		f.seen = make(map[[3]int64]bool)
	}
	f.seen[[3]int64{guildID, bossID, cycleTS}] = true
}

type fakeSubs struct{ users []int64 }

func (f *fakeSubs) Audience(context.Context, int64, int64) ([]int64, error) {
	return f.users, nil
}

type fakeRouter struct{ hint *int64 }

func (f *fakeRouter) ChannelHint(context.Context, boss.Boss) (*int64, error) {
	return f.hint, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newReconciler(store *fakeBossStore, state *fakeStateStore, outbox *fakeOutbox, silent bool) *Reconciler {
	channel := int64(777)
	return New(store, state, outbox, &fakeSubs{users: []int64{10, 11}}, &fakeRouter{hint: &channel},
		clock.NewFixed(time.Unix(t0, 0)), silent, testLogger())
}

func mkBoss(id int64, nextTS int64, spawnMin int) boss.Boss {
	return boss.Boss{
		ID: id, GuildID: 42, Name: "Mordris", Category: "Midraids",
		SpawnMinutes: spawnMin, NextSpawnTS: nextTS, PreAnnounceMin: 10,
		WindowMinutes: 5, Version: 1,
	}
}

// --- tests -----------------------------------------------------------------

func TestRun_LongGapOneRolloverOneCatchUp(t *testing.T) {
	// offline for 10 cycles of a 20m boss
	next := t0 - 10*20*60
	store := &fakeBossStore{bosses: map[int64]boss.Boss{1: mkBoss(1, next, 20)}}
	state := &fakeStateStore{st: procstate.State{OfflineSince: t0 - 11*20*60}}
	outbox := &fakeOutbox{}

	r := newReconciler(store, state, outbox, false)
	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Resynced)
	assert.Equal(t, 1, res.CatchUps, "one gap, one notice, never one per missed cycle")

	// rolled to the first on-cadence slot at or after now, in one step
	b := store.bosses[1]
	assert.GreaterOrEqual(t, b.NextSpawnTS, t0)
	assert.Zero(t, (b.NextSpawnTS-next)%(20*60))

	require.Len(t, outbox.intents, 1)
	assert.Equal(t, announce.PhaseCatchup, outbox.intents[0].Phase)
	assert.Equal(t, next, outbox.intents[0].CycleTS)
	assert.Contains(t, outbox.intents[0].Message, "offline")
}

func TestRun_SilentModeSuppressesCatchUps(t *testing.T) {
	store := &fakeBossStore{bosses: map[int64]boss.Boss{1: mkBoss(1, t0-5*20*60, 20)}}
	state := &fakeStateStore{st: procstate.State{OfflineSince: t0 - 6*20*60}}
	outbox := &fakeOutbox{}

	r := newReconciler(store, state, outbox, true)
	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Resynced, "timers still resync in silent mode")
	assert.Zero(t, res.CatchUps)
	assert.Empty(t, outbox.intents)
}

func TestRun_UnknownGapResyncsWithoutNotices(t *testing.T) {
	// no offline marker and no recorded tick: gap length unknowable
	store := &fakeBossStore{bosses: map[int64]boss.Boss{1: mkBoss(1, t0-5*20*60, 20)}}
	state := &fakeStateStore{st: procstate.State{}}
	outbox := &fakeOutbox{}

	r := newReconciler(store, state, outbox, false)
	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Resynced)
	assert.Zero(t, res.CatchUps)
	assert.Empty(t, outbox.intents)
}

func TestRun_FallsBackToLastTick(t *testing.T) {
	// crash without a clean shutdown: offline_since unknown, last tick known
	store := &fakeBossStore{bosses: map[int64]boss.Boss{1: mkBoss(1, t0-3*20*60, 20)}}
	state := &fakeStateStore{st: procstate.State{LastTick: t0 - 4*20*60}}
	outbox := &fakeOutbox{}

	r := newReconciler(store, state, outbox, false)
	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Resynced)
	assert.Equal(t, 1, res.CatchUps)
}

func TestRun_SpawnBeforeGapStaysSilent(t *testing.T) {
	// the missed spawn predates the gap: it was the live scheduler's to
	// announce, so reconciliation resyncs without a notice
	store := &fakeBossStore{bosses: map[int64]boss.Boss{1: mkBoss(1, t0-5*20*60, 20)}}
	state := &fakeStateStore{st: procstate.State{OfflineSince: t0 - 2*20*60}}
	outbox := &fakeOutbox{}

	r := newReconciler(store, state, outbox, false)
	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Resynced)
	assert.Zero(t, res.CatchUps)
}

func TestRun_RecentBossesUntouched(t *testing.T) {
	// less than one full cycle behind: the live tick handles it
	upcoming := mkBoss(1, t0+10*60, 20)
	justOverdue := mkBoss(2, t0-15*60, 20)
	store := &fakeBossStore{bosses: map[int64]boss.Boss{1: upcoming, 2: justOverdue}}
	state := &fakeStateStore{st: procstate.State{OfflineSince: t0 - 3600}}
	outbox := &fakeOutbox{}

	r := newReconciler(store, state, outbox, false)
	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, res.Resynced)
	assert.Equal(t, upcoming.NextSpawnTS, store.bosses[1].NextSpawnTS)
	assert.Equal(t, justOverdue.NextSpawnTS, store.bosses[2].NextSpawnTS)
	assert.Empty(t, outbox.intents)
}

func TestRun_NeverRewindsTimers(t *testing.T) {
	next := t0 - 7*33*60
	store := &fakeBossStore{bosses: map[int64]boss.Boss{1: mkBoss(1, next, 33)}}
	state := &fakeStateStore{st: procstate.State{OfflineSince: t0 - 8*33*60}}
	outbox := &fakeOutbox{}

	r := newReconciler(store, state, outbox, false)
	_, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Greater(t, store.bosses[1].NextSpawnTS, next)
	assert.GreaterOrEqual(t, store.bosses[1].NextSpawnTS, t0)
}

func TestRun_MarksStartup(t *testing.T) {
	store := &fakeBossStore{bosses: map[int64]boss.Boss{}}
	state := &fakeStateStore{st: procstate.State{OfflineSince: t0 - 60}}
	outbox := &fakeOutbox{}

	r := newReconciler(store, state, outbox, false)
	_, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, state.startups, 1)
	assert.Equal(t, t0, state.startups[0])
}

func TestRun_StorageFailureIsFatal(t *testing.T) {
	store := &fakeBossStore{failAll: true}
	state := &fakeStateStore{st: procstate.State{}}

	r := newReconciler(store, state, &fakeOutbox{}, false)
	_, err := r.Run(context.Background())
	assert.Error(t, err)
	assert.Empty(t, state.startups)
}

func TestRun_CatchUpCarriesAudienceAndRouting(t *testing.T) {
	next := t0 - 10*20*60
	store := &fakeBossStore{bosses: map[int64]boss.Boss{1: mkBoss(1, next, 20)}}
	state := &fakeStateStore{st: procstate.State{OfflineSince: t0 - 11*20*60}}
	outbox := &fakeOutbox{}

	r := newReconciler(store, state, outbox, false)
	_, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, outbox.intents, 1)
	in := outbox.intents[0]
	assert.Equal(t, []int64{10, 11}, in.Audience, "subscribers are mentioned like on a live spawn")
	require.NotNil(t, in.ChannelHint)
	assert.Equal(t, int64(777), *in.ChannelHint)
}

func TestRun_RecordedCycleGetsNoCatchUp(t *testing.T) {
	// the cycle was already announced (seeded rows arrive this way), so
	// reconciliation resyncs the timer without a notice
	next := t0 - 3*20*60
	store := &fakeBossStore{bosses: map[int64]boss.Boss{1: mkBoss(1, next, 20)}}
	state := &fakeStateStore{st: procstate.State{OfflineSince: t0 - 4*20*60}}
	outbox := &fakeOutbox{}
	outbox.markAnnounced(42, 1, next)

	r := newReconciler(store, state, outbox, false)
	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Resynced)
	assert.Zero(t, res.CatchUps)
	assert.Empty(t, outbox.intents)
}

func TestRun_BadIntervalSkipped(t *testing.T) {
	bad := mkBoss(1, t0-3600, 0)
	store := &fakeBossStore{bosses: map[int64]boss.Boss{1: bad}}
	state := &fakeStateStore{st: procstate.State{OfflineSince: t0 - 7200}}
	outbox := &fakeOutbox{}

	r := newReconciler(store, state, outbox, false)
	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, bad.NextSpawnTS, store.bosses[1].NextSpawnTS)
}
