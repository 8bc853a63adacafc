package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/fwojciec/akiwatch"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ akiwatch.RunService = (*RunService)(nil)

// RunService implements akiwatch.RunService using SQLite.
type RunService struct {
	db *DB
}

// NewRunService creates a new RunService.
func NewRunService(db *DB) *RunService {
	return &RunService{db: db}
}

// CreateRun stores a finished run and assigns its ID.
func (s *RunService) CreateRun(ctx context.Context, run *akiwatch.Run) error {
	if run.StartedAt.IsZero() {
		return akiwatch.Errorf(akiwatch.EINVALID, "run start time required")
	}
	if run.FinishedAt.Before(run.StartedAt) {
		return akiwatch.Errorf(akiwatch.EINVALID, "run finished before it started")
	}

	run.ID = uuid.New().String()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, attempts, recoveries, pages, extracted, new, notified, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt.UTC().Format(time.RFC3339), run.FinishedAt.UTC().Format(time.RFC3339),
		run.Attempts, run.Recoveries, run.Pages, run.Extracted, run.New, run.Notified, run.Error)

	return err
}

// FindRuns retrieves runs matching the filter, newest first.
func (s *RunService) FindRuns(ctx context.Context, filter akiwatch.RunFilter) ([]*akiwatch.Run, error) {
	var query strings.Builder
	var args []any

	query.WriteString(`SELECT id, started_at, finished_at, attempts, recoveries, pages, extracted, new, notified, error
		FROM runs WHERE 1=1`)

	if filter.Failed != nil {
		if *filter.Failed {
			query.WriteString(" AND error != ''")
		} else {
			query.WriteString(" AND error = ''")
		}
	}

	query.WriteString(" ORDER BY started_at DESC, rowid DESC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*akiwatch.Run
	for rows.Next() {
		var run akiwatch.Run
		var startedAt, finishedAt string

		if err := rows.Scan(&run.ID, &startedAt, &finishedAt, &run.Attempts, &run.Recoveries,
			&run.Pages, &run.Extracted, &run.New, &run.Notified, &run.Error); err != nil {
			return nil, err
		}

		if run.StartedAt, err = parseRFC3339(startedAt, "started_at"); err != nil {
			return nil, err
		}
		if run.FinishedAt, err = parseRFC3339(finishedAt, "finished_at"); err != nil {
			return nil, err
		}

		runs = append(runs, &run)
	}

	return runs, rows.Err()
}
