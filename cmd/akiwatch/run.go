package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fwojciec/akiwatch"
	"github.com/fwojciec/akiwatch/crawl"
	"github.com/fwojciec/akiwatch/email"
	"github.com/fwojciec/akiwatch/fs"
	"github.com/fwojciec/akiwatch/goquery"
	"github.com/fwojciec/akiwatch/http"
	"github.com/fwojciec/akiwatch/rod"
	akislog "github.com/fwojciec/akiwatch/slog"
)

// Run executes the run command. A lock held by another live process ends
// the command successfully without crawling.
func (c *RunCmd) Run(deps *Dependencies) error {
	cfg := deps.Config
	if c.ForceSend {
		cfg.ForceSend = true
	}

	lock, err := fs.NewLocker(filepath.Join(cfg.DataDir, lockName), cfg.LockTTL).Acquire()
	if akiwatch.ErrorCode(err) == akiwatch.ECONFLICT {
		fmt.Fprintf(deps.Stdout, "another instance is running, exiting (%s)\n", akiwatch.ErrorMessage(err))
		return nil
	} else if err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}
	defer func() { _ = lock.Release() }()

	runDir, err := fs.NewRunDir(cfg.DataDir, deps.now())
	if err != nil {
		return fmt.Errorf("creating run directory: %w", err)
	}
	logFile, err := runDir.OpenAppend(logName)
	if err != nil {
		return fmt.Errorf("opening run log: %w", err)
	}
	defer logFile.Close()

	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(akislog.NewTeeHandler(
		slog.NewTextHandler(deps.Stderr, &slog.HandlerOptions{Level: level}),
		slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug}),
	))
	logger.Info("run started", "dir", runDir.Path(), "owner", lock.OwnerID(), "dryRun", c.DryRun, "forceSend", cfg.ForceSend)

	store := fs.OpenSnapshotStore(filepath.Join(cfg.DataDir, snapshotName))
	if err := store.LoadErr(); err != nil {
		logger.Warn("discarding prior snapshot", "err", err)
	}

	launcher := deps.Launcher
	if launcher == nil {
		l, err := rod.NewLauncher(
			rod.WithShow(c.Show),
			rod.WithSlowMotion(c.SlowMo),
			rod.WithUserAgent(cfg.UserAgent),
			rod.WithTimezone(cfg.Timezone),
		)
		if err != nil {
			fmt.Fprintln(deps.Stderr, "Hint: Chrome or Chromium must be installed")
			return fmt.Errorf("failed to start browser: %w", err)
		}
		defer l.Close()
		launcher = l
	}

	notifier := deps.Notifier
	if notifier == nil {
		n := email.NewNotifier(cfg.SMTP, cfg.EntryURL)
		n.DryRun = c.DryRun
		n.Preview = deps.Stdout
		notifier = n
	}

	checker := deps.Checker
	if checker == nil && cfg.Preflight {
		checker = http.NewChecker(http.WithUserAgent(cfg.UserAgent), http.WithTimeout(cfg.StepTimeout))
	}

	nav := crawl.NewNavigator(goquery.NewParser(), goquery.NewDetector(), cfg)
	nav.Artifacts = runDir
	nav.Logger = logger

	runner := &crawl.Runner{
		Launcher:    rod.NewLoggingLauncher(launcher, logger),
		Checker:     checker,
		Navigator:   nav,
		Store:       akislog.NewLoggingSnapshotStore(store, logger),
		Notifier:    akislog.NewLoggingNotifier(notifier, logger),
		Runs:        deps.Runs,
		Logger:      logger,
		RetryDelays: crawl.DefaultRetryDelays(cfg.MaxRetries),
		Now:         deps.Now,
	}

	report, err := runner.Run(deps.Ctx, crawl.Options{DryRun: c.DryRun, ForceSend: cfg.ForceSend})
	if err != nil {
		return err
	}

	fmt.Fprintf(deps.Stdout, "extracted %d, new %d, notified %t (attempts %d, recoveries %d, pages %d)\n",
		len(report.Extracted), len(report.New), report.Notified,
		report.Attempts, report.Recoveries, report.Pages)
	if report.NotifyErr != nil {
		fmt.Fprintf(deps.Stderr, "notification failed: %v\n", report.NotifyErr)
	}
	return nil
}
