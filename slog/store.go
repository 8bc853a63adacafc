package slog

import (
	"log/slog"
	"time"

	"github.com/fwojciec/akiwatch"
)

// Ensure LoggingSnapshotStore implements akiwatch.SnapshotStore.
var _ akiwatch.SnapshotStore = (*LoggingSnapshotStore)(nil)

// LoggingSnapshotStore wraps a SnapshotStore with logging.
type LoggingSnapshotStore struct {
	next   akiwatch.SnapshotStore
	logger *slog.Logger
}

// NewLoggingSnapshotStore creates a new LoggingSnapshotStore.
func NewLoggingSnapshotStore(next akiwatch.SnapshotStore, logger *slog.Logger) *LoggingSnapshotStore {
	return &LoggingSnapshotStore{next: next, logger: logger}
}

// Diff logs how many of the current slots are new.
func (s *LoggingSnapshotStore) Diff(current []akiwatch.Slot) []akiwatch.Slot {
	fresh := s.next.Diff(current)
	s.logger.Debug("snapshot diff",
		"current", len(current),
		"new", len(fresh),
	)
	return fresh
}

// Save logs the write with its mode and duration.
func (s *LoggingSnapshotStore) Save(current []akiwatch.Slot, mode akiwatch.SaveMode) (err error) {
	defer func(begin time.Time) {
		s.logger.Info("snapshot save",
			"slots", len(current),
			"mode", mode,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Save(current, mode)
}
