package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fwojciec/akiwatch"
)

// Runner sequences one process run: retried crawl attempts, then diffing,
// notification and persistence exactly once.
type Runner struct {
	Launcher  akiwatch.BrowserLauncher
	Checker   akiwatch.PortalChecker
	Navigator *Navigator
	Store     akiwatch.SnapshotStore
	Notifier  akiwatch.Notifier
	Runs      akiwatch.RunService
	Logger    *slog.Logger

	// RetryDelays are the pauses between failed attempts. Their count plus
	// one is the attempt cap.
	RetryDelays []time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Options toggles per-run behavior.
type Options struct {
	// DryRun leaves the snapshot untouched.
	DryRun bool

	// ForceSend notifies about every extracted slot instead of only new ones.
	ForceSend bool
}

// Report summarizes a run.
type Report struct {
	Attempts   int
	Recoveries int
	Pages      int
	Extracted  []akiwatch.Slot
	New        []akiwatch.Slot
	Notified   bool

	// NotifyErr and SaveErr are failures after a successful crawl. They do
	// not fail the run.
	NotifyErr error
	SaveErr   error
}

// Run crawls with retries, then diffs, notifies and saves. It returns an
// error only when every crawl attempt failed; the report is never nil.
func (r *Runner) Run(ctx context.Context, opts Options) (*Report, error) {
	run := &akiwatch.Run{StartedAt: r.now()}
	report := &Report{}

	attempt, attempts, err := RetryWithDelays(ctx, r.crawlOnce, r.logRetry, r.RetryDelays)
	report.Attempts = attempts
	if err != nil {
		r.logger().Error("all crawl attempts failed", "attempts", attempts, "err", err)
		r.record(ctx, run, report, err)
		return report, fmt.Errorf("crawl failed after %d attempts: %w", attempts, err)
	}

	report.Recoveries = attempt.Recoveries
	report.Pages = attempt.Pages
	report.Extracted = attempt.Slots
	report.New = r.Store.Diff(attempt.Slots)
	r.logger().Info("diff", "extracted", len(report.Extracted), "new", len(report.New))

	toSend := report.New
	if opts.ForceSend {
		toSend = report.Extracted
	}
	report.Notified, report.NotifyErr = r.Notifier.Send(ctx, toSend)
	if report.NotifyErr != nil {
		r.logger().Error("notification failed", "err", report.NotifyErr)
	}

	if opts.DryRun {
		r.logger().Info("dry run, snapshot not saved")
	} else if err := r.Store.Save(attempt.Slots, akiwatch.SaveUnion); err != nil {
		report.SaveErr = err
		r.logger().Error("saving snapshot", "err", err)
	}

	r.record(ctx, run, report, nil)
	return report, nil
}

// crawlOnce runs one attempt in a fresh browser.
func (r *Runner) crawlOnce(ctx context.Context, n int) (*Attempt, error) {
	r.logger().Info("crawl attempt", "n", n)

	if r.Checker != nil {
		if err := r.Checker.Check(ctx, r.Navigator.EntryURL); err != nil {
			return nil, fmt.Errorf("preflight: %w", err)
		}
	}

	b, err := r.Launcher.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening browser: %w", err)
	}
	defer func() {
		if err := b.Close(); err != nil {
			r.logger().Debug("closing browser", "err", err)
		}
	}()

	return r.Navigator.NewSession(b).Crawl(ctx)
}

func (r *Runner) record(ctx context.Context, run *akiwatch.Run, report *Report, err error) {
	if r.Runs == nil {
		return
	}
	run.FinishedAt = r.now()
	run.Attempts = report.Attempts
	run.Recoveries = report.Recoveries
	run.Pages = report.Pages
	run.Extracted = len(report.Extracted)
	run.New = len(report.New)
	run.Notified = report.Notified
	if err != nil {
		run.Error = err.Error()
	}
	if err := r.Runs.CreateRun(ctx, run); err != nil {
		r.logger().Warn("recording run", "err", err)
	}
}

func (r *Runner) logRetry(format string, args ...any) {
	r.logger().Warn(fmt.Sprintf(format, args...))
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}
