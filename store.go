package akiwatch

import (
	"context"
	"time"
)

// SnapshotStore remembers which slots were seen by earlier runs.
type SnapshotStore interface {
	// Diff returns every slot in current whose key is absent from the
	// prior snapshot, in input order.
	Diff(current []Slot) []Slot

	// Save persists current according to mode.
	Save(current []Slot, mode SaveMode) error
}

// ArtifactSink stores diagnostic dumps produced during a run.
type ArtifactSink interface {
	Save(name, content string) error
}

// Run is the history record of one process run.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Attempts   int       `json:"attempts"`
	Recoveries int       `json:"recoveries"`
	Pages      int       `json:"pages"`
	Extracted  int       `json:"extracted"`
	New        int       `json:"new"`
	Notified   bool      `json:"notified"`
	Error      string    `json:"error"`
}

// RunService records and lists run history.
type RunService interface {
	// CreateRun stores a finished run and assigns its ID.
	CreateRun(ctx context.Context, run *Run) error

	// FindRuns returns runs newest first.
	FindRuns(ctx context.Context, filter RunFilter) ([]*Run, error)
}

// RunFilter represents a filter for FindRuns.
type RunFilter struct {
	Failed *bool `json:"failed"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}
