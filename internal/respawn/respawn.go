// Package respawn holds the pure timer math: classifying a boss at an
// instant and advancing its timer after a spawn or a downtime gap.
// Everything here is deterministic over Unix-second integers; no I/O.
package respawn

import "errors"

// Phase is the scheduling classification of a boss at a given instant.
// A boss is in exactly one phase per tick.
type Phase int

const (
	// Dormant: more than pre_announce_min minutes remain before the window.
	Dormant Phase = iota
	// PreAnnounce: within pre_announce_min of the spawn, window not yet open.
	PreAnnounce
	// SpawnWindowOpen: now is within [next - window, next + window].
	SpawnWindowOpen
	// Overdue: now is past next + window; treat as spawned-and-rolled.
	Overdue
)

func (p Phase) String() string {
	switch p {
	case Dormant:
		return "dormant"
	case PreAnnounce:
		return "pre_announce"
	case SpawnWindowOpen:
		return "window_open"
	case Overdue:
		return "overdue"
	default:
		return "unknown"
	}
}

// ErrBadInterval marks a boss with a non-positive respawn interval. The
// boss is excluded from scheduling and reported once; it never aborts a
// tick.
var ErrBadInterval = errors.New("non-positive spawn interval")

// Classify buckets a boss at instant now (Unix seconds). Window
// containment takes precedence over the pre-announce band, so a boss whose
// pre_announce_min exceeds its interval is still in exactly one phase.
func Classify(now, nextTS int64, spawnMinutes, preAnnounceMin, windowMinutes int) (Phase, error) {
	if spawnMinutes <= 0 {
		return Dormant, ErrBadInterval
	}
	window := int64(windowMinutes) * 60
	switch {
	case now > nextTS+window:
		return Overdue, nil
	case now >= nextTS-window:
		return SpawnWindowOpen, nil
	case preAnnounceMin > 0 && now >= nextTS-int64(preAnnounceMin)*60:
		return PreAnnounce, nil
	default:
		return Dormant, nil
	}
}

// Rollover advances nextTS by whole multiples of the respawn cycle so the
// result is the first occurrence at or after now. Compressing the advance
// into one step is what keeps a long gap from firing one notification per
// missed interval.
func Rollover(now, nextTS int64, spawnMinutes int) int64 {
	interval := int64(spawnMinutes) * 60
	if interval <= 0 {
		return nextTS
	}
	elapsed := now - nextTS
	if elapsed < 1 {
		elapsed = 1
	}
	steps := (elapsed + interval - 1) / interval
	return nextTS + steps*interval
}
