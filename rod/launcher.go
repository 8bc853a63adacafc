package rod

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fwojciec/akiwatch"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Ensure Launcher implements akiwatch.BrowserLauncher at compile time.
var _ akiwatch.BrowserLauncher = (*Launcher)(nil)

// Launcher owns a Chrome process and opens tabs on it.
//
// Launcher is safe for concurrent use.
type Launcher struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	mu       sync.Mutex
	closed   atomic.Bool

	show       bool
	slowMotion time.Duration
	userAgent  string
	timezone   string
}

// LauncherOption configures a Launcher.
type LauncherOption func(*Launcher)

// WithShow runs Chrome with a visible window.
func WithShow(show bool) LauncherOption {
	return func(l *Launcher) {
		l.show = show
	}
}

// WithSlowMotion delays every browser input action by d.
func WithSlowMotion(d time.Duration) LauncherOption {
	return func(l *Launcher) {
		l.slowMotion = d
	}
}

// WithUserAgent overrides the user agent of every opened tab.
func WithUserAgent(ua string) LauncherOption {
	return func(l *Launcher) {
		l.userAgent = ua
	}
}

// WithTimezone overrides the timezone of every opened tab.
func WithTimezone(tz string) LauncherOption {
	return func(l *Launcher) {
		l.timezone = tz
	}
}

// NewLauncher starts Chrome. Close must be called when the Launcher is no
// longer needed.
//
// Returns an error if Chrome/Chromium cannot be found or launched.
func NewLauncher(opts ...LauncherOption) (*Launcher, error) {
	l := &Launcher{}
	for _, opt := range opts {
		opt(l)
	}

	if err := l.launchBrowser(); err != nil {
		return nil, err
	}
	return l, nil
}

// Open creates a new tab with the configured user agent and timezone.
func (l *Launcher) Open(ctx context.Context) (akiwatch.Browser, error) {
	if l.closed.Load() {
		return nil, akiwatch.Errorf(akiwatch.EINVALID, "launcher is closed")
	}

	l.mu.Lock()
	browser := l.browser
	l.mu.Unlock()

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("opening tab: %w", err)
	}
	// Detach from ctx so the tab outlives the call that opened it.
	page = page.Context(context.Background())

	if l.userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      l.userAgent,
			AcceptLanguage: "ja-JP,ja;q=0.9",
		}); err != nil {
			_ = page.Close()
			return nil, fmt.Errorf("setting user agent: %w", err)
		}
	}
	if l.timezone != "" {
		if err := (proto.EmulationSetTimezoneOverride{TimezoneID: l.timezone}).Call(page); err != nil {
			_ = page.Close()
			return nil, fmt.Errorf("setting timezone: %w", err)
		}
	}

	return newTab(page), nil
}

// Close releases browser resources. Close is safe to call multiple times.
func (l *Launcher) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.closeBrowser()
}

// launchBrowser starts a new browser instance with stability flags.
func (l *Launcher) launchBrowser() error {
	lnchr := launcher.New().
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Set("disable-hang-monitor").
		Leakless(true).
		Headless(!l.show)

	u, err := lnchr.Launch()
	if err != nil {
		return fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if l.slowMotion > 0 {
		browser = browser.SlowMotion(l.slowMotion).Trace(l.show)
	}
	if err := browser.Connect(); err != nil {
		lnchr.Kill()
		return fmt.Errorf("connecting to browser: %w", err)
	}

	l.browser = browser
	l.launcher = lnchr
	return nil
}

// closeBrowser shuts down the browser and launcher.
// Must be called with mu held.
func (l *Launcher) closeBrowser() error {
	var err error
	if l.browser != nil {
		err = l.browser.Close()
		l.browser = nil
	}
	if l.launcher != nil {
		l.launcher.Kill()
		l.launcher = nil
	}
	return err
}

// LauncherPID returns the process ID of the browser launcher.
// This method exists for testing purposes to verify proper cleanup.
func (l *Launcher) LauncherPID() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.launcher == nil {
		return 0
	}
	return l.launcher.PID()
}
