// Package announce is the notification outbox. The scheduler enqueues one
// intent per (boss, phase, cycle); the unique key on those columns is what
// makes notification delivery exactly-once per cycle — re-running the same
// tick against unchanged state inserts nothing. A dispatch worker claims
// due intents, hands them to the messaging boundary, and only marks them
// sent after confirmed delivery.
package announce

import "time"

// Phases an intent can carry. cycle_ts identifies the respawn cycle: it is
// the next_spawn_ts value that was current when the cycle was evaluated.
const (
	PhasePre       = "pre"
	PhaseSpawn     = "spawn"
	PhaseCatchup   = "catchup"
	PhaseHeartbeat = "heartbeat"
)

// Outbox row statuses.
const (
	StatusScheduled = "scheduled"
	StatusSending   = "sending"
	StatusSent      = "sent"
	StatusFailed    = "failed"
)

// Intent is a persisted notification intent.
type Intent struct {
	ID          int64
	GuildID     int64
	BossID      int64
	Phase       string
	CycleTS     int64
	Message     string
	BossName    string
	ChannelHint *int64
	Audience    []int64
	Attempts    int
}

// Intents that never got delivered stop being claimed after this long;
// the cleanup task marks them failed. Bounds how stale a retried
// announcement can be before it is no longer worth sending.
const StaleAfter = 24 * time.Hour
