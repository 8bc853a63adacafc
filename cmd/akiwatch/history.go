package main

import (
	"fmt"
	"time"

	"github.com/fwojciec/akiwatch"
)

// Run executes the history command.
func (c *HistoryCmd) Run(deps *Dependencies) error {
	filter := akiwatch.RunFilter{Limit: c.Limit}
	if c.Failed {
		failed := true
		filter.Failed = &failed
	}

	runs, err := deps.Runs.FindRuns(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", akiwatch.ErrorMessage(err))
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(deps.Stdout, "No runs recorded. Use 'akiwatch run' to start one.")
		return nil
	}

	for _, r := range runs {
		status := "ok"
		if r.Error != "" {
			status = "failed"
		}
		fmt.Fprintf(deps.Stdout, "%s  %s  %-6s  attempts=%d pages=%d extracted=%d new=%d notified=%t\n",
			r.StartedAt.Local().Format(time.DateTime), r.ID, status,
			r.Attempts, r.Pages, r.Extracted, r.New, r.Notified)
		if r.Error != "" {
			fmt.Fprintf(deps.Stdout, "    %s\n", r.Error)
		}
	}
	return nil
}
