package main

import (
	"context"
	"io"
	"time"

	"github.com/fwojciec/akiwatch"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Config akiwatch.Config
	Runs   akiwatch.RunService
	Now    func() time.Time

	// Optional overrides of the Chrome launcher, the preflight check and
	// the e-mail notifier.
	Launcher akiwatch.BrowserLauncher
	Checker  akiwatch.PortalChecker
	Notifier akiwatch.Notifier
}

func (d *Dependencies) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Config string `short:"c" type:"path" env:"AKIWATCH_CONFIG" help:"YAML configuration file"`

	Run     RunCmd     `cmd:"" default:"withargs" help:"Crawl the portal once and notify about new slots"`
	History HistoryCmd `cmd:"" help:"List recorded runs"`
}

// RunCmd is the "run" subcommand.
type RunCmd struct {
	Show      bool          `help:"Show the browser window"`
	SlowMo    time.Duration `name:"slowmo" help:"Delay between browser actions (e.g. 250ms)"`
	DryRun    bool          `name:"dry-run" help:"Print the notification instead of sending it and keep the snapshot"`
	ForceSend bool          `name:"force-send" aliases:"force-mail" help:"Notify about every extracted slot, not only new ones"`
	Verbose   bool          `short:"v" help:"Log debug output to stderr"`
}

// HistoryCmd is the "history" subcommand.
type HistoryCmd struct {
	Limit  int  `short:"n" default:"20" help:"Maximum number of runs to list"`
	Failed bool `help:"List only failed runs"`
}
