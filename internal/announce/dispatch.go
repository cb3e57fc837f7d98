package announce

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ravenguard/bosstrack/internal/notify"
)

// ClaimStore is the outbox surface the dispatcher needs. *Outbox satisfies
// it; tests use an in-memory fake.
type ClaimStore interface {
	ClaimDue(ctx context.Context, limit int) ([]Intent, error)
	MarkSent(ctx context.Context, id int64) error
	MarkRetry(ctx context.Context, id int64, reason string) error
}

// PingResolver resolves the subscriber-ping target for a guild. *Router
// satisfies it. May be nil when ping routing is not wired.
type PingResolver interface {
	PingChannelHint(ctx context.Context, guildID int64) (*int64, error)
}

// Dispatcher drains the outbox on a fixed cadence and hands intents to the
// messaging collaborator. Each attempt is bounded by a timeout so one
// stuck delivery cannot stall the batch.
type Dispatcher struct {
	outbox    ClaimStore
	sender    notify.Sender
	pings     PingResolver
	batchSize int
	timeout   time.Duration
	logger    *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(outbox ClaimStore, sender notify.Sender, pings PingResolver,
	batchSize int, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if batchSize <= 0 {
		batchSize = 100
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		outbox:    outbox,
		sender:    sender,
		pings:     pings,
		batchSize: batchSize,
		timeout:   timeout,
		logger:    logger,
	}
}

// Run drains the outbox every interval. Blocks until ctx is cancelled.
// Intended to be called with `go`.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) {
	d.logger.Info("Announcement dispatch worker started", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sent, retried, err := d.DispatchBatch(ctx)
			if err != nil {
				d.logger.Error("dispatch error", "error", err)
			} else if sent+retried > 0 {
				d.logger.Info("dispatch batch", "sent", sent, "retried", retried)
			}
		case <-ctx.Done():
			d.logger.Info("Announcement dispatch worker stopped")
			return
		}
	}
}

// DispatchBatch claims and delivers one batch. A failure on one intent
// never aborts the rest of the batch.
func (d *Dispatcher) DispatchBatch(ctx context.Context) (sent, retried int, err error) {
	claimed, err := d.outbox.ClaimDue(ctx, d.batchSize)
	if err != nil {
		return 0, 0, err
	}

	for _, in := range claimed {
		sendErr := d.deliver(ctx, in)
		if sendErr == nil {
			if err := d.outbox.MarkSent(ctx, in.ID); err != nil {
				d.logger.Warn("mark sent failed", "announcement_id", in.ID, "error", err)
			}
			sent++
			continue
		}

		if notify.Retryable(sendErr) {
			d.logger.Warn("delivery failed, will retry",
				"announcement_id", in.ID, "phase", in.Phase, "attempts", in.Attempts+1, "error", sendErr)
		} else {
			// Permanent failures also stay unsent: eventual delivery over
			// silent loss, bounded by the intent's lifetime.
			d.logger.Warn("delivery rejected",
				"announcement_id", in.ID, "phase", in.Phase, "error", sendErr)
		}
		if err := d.outbox.MarkRetry(ctx, in.ID, sendErr.Error()); err != nil {
			d.logger.Warn("mark retry failed", "announcement_id", in.ID, "error", err)
		}
		retried++
	}
	return sent, retried, nil
}

func (d *Dispatcher) deliver(ctx context.Context, in Intent) error {
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	// only intents that mention someone need the ping target; a failed
	// lookup degrades to the main announcement channel
	var pingHint *int64
	if d.pings != nil && len(in.Audience) > 0 {
		h, err := d.pings.PingChannelHint(sendCtx, in.GuildID)
		if err != nil {
			d.logger.Warn("ping channel routing failed", "guild_id", in.GuildID, "error", err)
		} else {
			pingHint = h
		}
	}

	return d.sender.Send(sendCtx, notify.Delivery{
		ID:          uuid.NewString(),
		GuildID:     in.GuildID,
		ChannelHint: in.ChannelHint,
		PingHint:    pingHint,
		Audience:    in.Audience,
		Phase:       in.Phase,
		BossName:    in.BossName,
		Message:     in.Message,
	})
}
