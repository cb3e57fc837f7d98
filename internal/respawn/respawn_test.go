package respawn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// T0 is an arbitrary reference instant.
const t0 = int64(1_700_000_000)

func TestClassify_Phases(t *testing.T) {
	// 20m interval, 10m pre-announce, 5m window, next spawn at t0
	tests := []struct {
		name string
		now  int64
		want Phase
	}{
		{"far before spawn", t0 - 15*60, Dormant},
		{"exactly at pre-announce edge", t0 - 10*60, PreAnnounce},
		{"inside pre-announce band", t0 - 7*60, PreAnnounce},
		{"window opens", t0 - 5*60, SpawnWindowOpen},
		{"at next spawn", t0, SpawnWindowOpen},
		{"window closing edge", t0 + 5*60, SpawnWindowOpen},
		{"just past window", t0 + 5*60 + 1, Overdue},
		{"long overdue", t0 + 3600, Overdue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.now, t0, 20, 10, 5)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_ZeroWindow(t *testing.T) {
	// window 0: the "window" collapses to the single instant next_spawn_ts
	got, err := Classify(t0, t0, 20, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, SpawnWindowOpen, got)

	got, err = Classify(t0+1, t0, 20, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, Overdue, got)
}

func TestClassify_PreAnnounceExceedsInterval(t *testing.T) {
	// 7m interval with 10m pre-announce: the boss is never Dormant, but it
	// is still in exactly one phase at every instant.
	for offset := int64(-10 * 60); offset <= 6*60; offset += 30 {
		phase, err := Classify(t0+offset, t0, 7, 10, 5)
		require.NoError(t, err)
		switch {
		case offset < -5*60:
			assert.Equal(t, PreAnnounce, phase, "offset %d", offset)
		case offset <= 5*60:
			assert.Equal(t, SpawnWindowOpen, phase, "offset %d", offset)
		default:
			assert.Equal(t, Overdue, phase, "offset %d", offset)
		}
	}
}

func TestClassify_ZeroPreAnnounce(t *testing.T) {
	// pre_announce_min 0 disables the pre band entirely
	got, err := Classify(t0-60, t0, 20, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, Dormant, got)
}

func TestClassify_BadInterval(t *testing.T) {
	_, err := Classify(t0, t0, 0, 10, 5)
	assert.ErrorIs(t, err, ErrBadInterval)

	_, err = Classify(t0, t0, -3, 10, 5)
	assert.ErrorIs(t, err, ErrBadInterval)
}

func TestRollover_WholeMultiples(t *testing.T) {
	interval := 15 // minutes

	tests := []struct {
		name string
		now  int64
		want int64
	}{
		{"one second past", t0 + 1, t0 + 15*60},
		{"just under one cycle", t0 + 15*60 - 1, t0 + 15*60},
		{"exactly one cycle", t0 + 15*60, t0 + 15*60},
		{"mid third cycle", t0 + 47*60, t0 + 60*60},
		{"many cycles behind", t0 + 10*15*60 + 30, t0 + 11*15*60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rollover(tt.now, t0, interval)
			assert.Equal(t, tt.want, got)
			// the result lands on the original cadence
			assert.Zero(t, (got-t0)%int64(interval*60))
			// and strictly after the old timestamp
			assert.Greater(t, got, t0)
		})
	}
}

func TestRollover_NowEqualsNext(t *testing.T) {
	// elapsed 0 is clamped to 1 so the timer always moves forward
	got := Rollover(t0, t0, 20)
	assert.Equal(t, t0+20*60, got)
}

func TestRollover_BadInterval(t *testing.T) {
	assert.Equal(t, t0, Rollover(t0+500, t0, 0))
}

func TestFormatDelta(t *testing.T) {
	tests := []struct {
		name  string
		delta int64
		want  string
	}{
		{"hours and minutes", 83*60 + 10, "1h 23m"},
		{"exact hours", 2 * 3600, "2h"},
		{"minutes only", 7*60 + 59, "7m"},
		{"under a minute", 42, "42s"},
		{"recently overdue", -7 * 60, "-7m"},
		{"overdue at grace edge", -1800, "-30m"},
		{"lost track", -1801, "-Nada"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDelta(tt.delta, 1800))
		})
	}
}

func TestHumanAgo(t *testing.T) {
	assert.Equal(t, "just now", HumanAgo(45))
	assert.Equal(t, "5m ago", HumanAgo(5*60+12))
	assert.Equal(t, "2h 3m ago", HumanAgo(2*3600+3*60))
}
