package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/fwojciec/akiwatch"
	"github.com/fwojciec/akiwatch/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db := sqlite.NewDB(":memory:")
	require.NoError(t, db.Open())
	t.Cleanup(func() { db.Close() })
	return db
}

func newRun(startedAt time.Time, errMsg string) *akiwatch.Run {
	return &akiwatch.Run{
		StartedAt:  startedAt,
		FinishedAt: startedAt.Add(90 * time.Second),
		Attempts:   1,
		Pages:      12,
		Extracted:  30,
		New:        2,
		Notified:   errMsg == "",
		Error:      errMsg,
	}
}

func TestRunService_CreateRun(t *testing.T) {
	t.Parallel()

	t.Run("assigns an ID and round-trips every field", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewRunService(setupTestDB(t))
		ctx := context.Background()
		started := time.Date(2025, 10, 4, 6, 0, 0, 0, time.UTC)
		run := newRun(started, "")
		run.Recoveries = 1

		require.NoError(t, svc.CreateRun(ctx, run))
		assert.NotEmpty(t, run.ID)

		runs, err := svc.FindRuns(ctx, akiwatch.RunFilter{})
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, run, runs[0])
	})

	t.Run("rejects a run without a start time", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewRunService(setupTestDB(t))

		err := svc.CreateRun(context.Background(), &akiwatch.Run{})

		assert.Equal(t, akiwatch.EINVALID, akiwatch.ErrorCode(err))
	})

	t.Run("rejects a run that finished before it started", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewRunService(setupTestDB(t))
		now := time.Now()

		err := svc.CreateRun(context.Background(), &akiwatch.Run{StartedAt: now, FinishedAt: now.Add(-time.Minute)})

		assert.Equal(t, akiwatch.EINVALID, akiwatch.ErrorCode(err))
	})
}

func TestRunService_FindRuns(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	svc := sqlite.NewRunService(db)
	ctx := context.Background()
	base := time.Date(2025, 10, 1, 6, 0, 0, 0, time.UTC)
	for i, errMsg := range []string{"", "search results not reached", "", ""} {
		require.NoError(t, svc.CreateRun(ctx, newRun(base.Add(time.Duration(i)*time.Hour), errMsg)))
	}

	t.Run("lists newest first", func(t *testing.T) {
		runs, err := svc.FindRuns(ctx, akiwatch.RunFilter{})
		require.NoError(t, err)
		require.Len(t, runs, 4)
		assert.Equal(t, base.Add(3*time.Hour), runs[0].StartedAt)
		assert.Equal(t, base, runs[3].StartedAt)
	})

	t.Run("filters failed runs", func(t *testing.T) {
		failed := true
		runs, err := svc.FindRuns(ctx, akiwatch.RunFilter{Failed: &failed})
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, "search results not reached", runs[0].Error)
	})

	t.Run("filters successful runs", func(t *testing.T) {
		failed := false
		runs, err := svc.FindRuns(ctx, akiwatch.RunFilter{Failed: &failed})
		require.NoError(t, err)
		assert.Len(t, runs, 3)
	})

	t.Run("paginates", func(t *testing.T) {
		runs, err := svc.FindRuns(ctx, akiwatch.RunFilter{Limit: 2, Offset: 1})
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, base.Add(2*time.Hour), runs[0].StartedAt)
	})
}
