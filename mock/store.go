package mock

import (
	"context"

	"github.com/fwojciec/akiwatch"
)

var (
	_ akiwatch.SnapshotStore = (*SnapshotStore)(nil)
	_ akiwatch.ArtifactSink  = (*ArtifactSink)(nil)
	_ akiwatch.RunService    = (*RunService)(nil)
)

// SnapshotStore is a mock implementation of akiwatch.SnapshotStore.
type SnapshotStore struct {
	DiffFn func(current []akiwatch.Slot) []akiwatch.Slot
	SaveFn func(current []akiwatch.Slot, mode akiwatch.SaveMode) error
}

func (s *SnapshotStore) Diff(current []akiwatch.Slot) []akiwatch.Slot {
	return s.DiffFn(current)
}

func (s *SnapshotStore) Save(current []akiwatch.Slot, mode akiwatch.SaveMode) error {
	return s.SaveFn(current, mode)
}

// ArtifactSink is a mock implementation of akiwatch.ArtifactSink.
type ArtifactSink struct {
	SaveFn func(name, content string) error
}

func (s *ArtifactSink) Save(name, content string) error {
	return s.SaveFn(name, content)
}

// RunService is a mock implementation of akiwatch.RunService.
type RunService struct {
	CreateRunFn func(ctx context.Context, run *akiwatch.Run) error
	FindRunsFn  func(ctx context.Context, filter akiwatch.RunFilter) ([]*akiwatch.Run, error)
}

func (s *RunService) CreateRun(ctx context.Context, run *akiwatch.Run) error {
	return s.CreateRunFn(ctx, run)
}

func (s *RunService) FindRuns(ctx context.Context, filter akiwatch.RunFilter) ([]*akiwatch.Run, error) {
	return s.FindRunsFn(ctx, filter)
}
