// Package boss holds the domain model for tracked bosses, the pgx-backed
// store, and the in-memory registry with its alias index.
package boss

import (
	"errors"
	"time"
)

// Sentinel errors shared across the engine. Callers match with errors.Is.
var (
	// ErrNotFound is returned when a boss id or name resolves to nothing,
	// e.g. an administrative deletion raced with a scheduled tick.
	ErrNotFound = errors.New("boss not found")

	// ErrConflict is returned when an optimistic write loses to a
	// concurrent update. The caller retries on the next tick.
	ErrConflict = errors.New("concurrent boss modification")

	// ErrAmbiguous is returned when free-text input matches more than one
	// boss. The resolver reports it rather than picking arbitrarily.
	ErrAmbiguous = errors.New("ambiguous boss reference")
)

// Boss is a recurring timed entity scoped to a guild. Identity is
// (guild_id, name, category); the numeric id is a storage surrogate.
type Boss struct {
	ID             int64
	GuildID        int64
	Name           string
	Category       string
	SpawnMinutes   int
	NextSpawnTS    int64 // Unix seconds of the next expected spawn
	PreAnnounceMin int
	WindowMinutes  int
	ChannelID      *int64 // explicit announce channel, nil = route by category
	TrustedRoleID  *int64 // access-control hint, opaque to the engine
	SortKey        string
	Notes          string
	Version        int64 // optimistic concurrency token
}

// Interval returns the respawn cycle length.
func (b Boss) Interval() time.Duration {
	return time.Duration(b.SpawnMinutes) * time.Minute
}

// IntervalSeconds returns the respawn cycle length in Unix seconds.
func (b Boss) IntervalSeconds() int64 {
	return int64(b.SpawnMinutes) * 60
}

// WindowSeconds returns the uncertainty half-width in seconds.
func (b Boss) WindowSeconds() int64 {
	return int64(b.WindowMinutes) * 60
}

// Alias maps a free-text lookup key to a boss within a guild.
// (guild_id, alias) is unique; the alias is stored lowercased.
type Alias struct {
	GuildID int64
	BossID  int64
	Alias   string
}
