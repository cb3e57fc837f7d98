package notify

import (
	"context"
	"log/slog"
)

// LogSender records deliveries to the log instead of a chat platform. Used
// when no webhook is configured, and in development.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, d Delivery) error {
	s.logger.Info("notification (log sink)",
		"delivery_id", d.ID,
		"guild_id", d.GuildID,
		"phase", d.Phase,
		"boss", d.BossName,
		"audience", len(d.Audience),
		"message", d.Message)
	return nil
}
