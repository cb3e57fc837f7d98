// Package notify is the outbound messaging boundary. The engine hands it
// fully-built deliveries; rendering beyond the basic embed and all
// platform addressing concerns live here, not in the scheduler.
package notify

import (
	"context"
	"errors"
	"fmt"
)

// Phase labels carried on deliveries. Matches the outbox phases.
const (
	PhasePre       = "pre"
	PhaseSpawn     = "spawn"
	PhaseCatchup   = "catchup"
	PhaseHeartbeat = "heartbeat"
)

// Delivery is one outbound notification intent.
type Delivery struct {
	ID          string // per-attempt uuid, usable as an idempotency key downstream
	GuildID     int64
	ChannelHint *int64
	PingHint    *int64  // where subscriber mentions go when the guild routes pings separately
	Audience    []int64 // user ids to mention
	Phase       string
	BossName    string
	Message     string
}

// DeliveryError wraps a send failure with its retry classification.
// Retryable failures are re-attempted on the next dispatch pass.
type DeliveryError struct {
	Retryable bool
	Err       error
}

func (e *DeliveryError) Error() string {
	kind := "permanent"
	if e.Retryable {
		kind = "retryable"
	}
	return fmt.Sprintf("delivery failed (%s): %v", kind, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Retryable reports whether err is a retryable delivery failure. Unknown
// errors (timeouts, transport) count as retryable — favor eventual
// delivery over silent loss.
func Retryable(err error) bool {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Retryable
	}
	return true
}

// Sender delivers one notification. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, d Delivery) error
}
