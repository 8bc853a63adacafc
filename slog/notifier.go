// Package slog provides logging decorators for the akiwatch interfaces.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/akiwatch"
)

// Ensure LoggingNotifier implements akiwatch.Notifier.
var _ akiwatch.Notifier = (*LoggingNotifier)(nil)

// LoggingNotifier wraps a Notifier with logging of delivery outcomes.
type LoggingNotifier struct {
	next   akiwatch.Notifier
	logger *slog.Logger
}

// NewLoggingNotifier creates a new LoggingNotifier.
func NewLoggingNotifier(next akiwatch.Notifier, logger *slog.Logger) *LoggingNotifier {
	return &LoggingNotifier{next: next, logger: logger}
}

// Send logs the slot count, whether a message went out, and any error.
func (n *LoggingNotifier) Send(ctx context.Context, slots []akiwatch.Slot) (sent bool, err error) {
	defer func(begin time.Time) {
		level := slog.LevelInfo
		if err != nil {
			level = slog.LevelError
		}
		n.logger.Log(ctx, level, "notify",
			"slots", len(slots),
			"sent", sent,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return n.next.Send(ctx, slots)
}
