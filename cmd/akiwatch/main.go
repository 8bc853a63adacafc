package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/akiwatch"
	"github.com/fwojciec/akiwatch/sqlite"
	"github.com/fwojciec/akiwatch/yaml"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	m := NewMain()

	err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Getenv looks up environment overrides. Defaults to os.Getenv.
	Getenv func(string) string

	// DotenvPaths are loaded into the process environment before the
	// configuration is resolved.
	DotenvPaths []string

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// SQLite database holding the run history.
	DB *sqlite.DB

	// Collaborators for end-to-end testing. When nil, Chrome, a plain
	// HTTP check and SMTP are used.
	Launcher akiwatch.BrowserLauncher
	Checker  akiwatch.PortalChecker
	Notifier akiwatch.Notifier
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		Getenv:      os.Getenv,
		DotenvPaths: []string{".env"},
		Now:         time.Now,
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:      ctx,
		Stdout:   stdout,
		Stderr:   stderr,
		Now:      m.Now,
		Launcher: m.Launcher,
		Checker:  m.Checker,
		Notifier: m.Notifier,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("akiwatch"),
		kong.Description("Watch the facility reservation portal for newly available slots."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) > 0 && (args[0] == "help" || args[0] == "--help" || args[0] == "-h") {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	// .env must be in the environment before kong resolves env-backed flags.
	if err := yaml.LoadDotenv(m.DotenvPaths...); err != nil {
		return err
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := yaml.LoadConfig(cli.Config, m.Getenv)
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", akiwatch.ErrorMessage(err))
		return err
	}
	deps.Config = cfg

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	m.DB = sqlite.NewDB(filepath.Join(cfg.DataDir, historyDBName))
	if err := m.DB.Open(); err != nil {
		fmt.Fprintf(stderr, "Hint: Set AKIWATCH_DATA_DIR to use a different data directory\n")
		return fmt.Errorf("failed to open run history: %w", err)
	}
	defer m.Close()
	deps.Runs = sqlite.NewRunService(m.DB)

	return kongCtx.Run(deps)
}

// Files kept in the data directory.
const (
	historyDBName = "history.db"
	snapshotName  = "prev.json"
	lockName      = "akiwatch.lock"
	logName       = "log.jsonl"
)
