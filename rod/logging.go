package rod

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/akiwatch"
)

// Ensure the logging decorators implement their interfaces.
var (
	_ akiwatch.BrowserLauncher = (*LoggingLauncher)(nil)
	_ akiwatch.Browser         = (*LoggingBrowser)(nil)
)

// LoggingLauncher wraps a BrowserLauncher so every opened browser logs.
type LoggingLauncher struct {
	next   akiwatch.BrowserLauncher
	logger *slog.Logger
}

// NewLoggingLauncher creates a new LoggingLauncher.
func NewLoggingLauncher(next akiwatch.BrowserLauncher, logger *slog.Logger) *LoggingLauncher {
	return &LoggingLauncher{next: next, logger: logger}
}

// Open logs the launch and wraps the opened browser in a LoggingBrowser.
func (l *LoggingLauncher) Open(ctx context.Context) (_ akiwatch.Browser, err error) {
	defer func(begin time.Time) {
		l.logger.Debug("open browser",
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	b, err := l.next.Open(ctx)
	if err != nil {
		return nil, err
	}
	return NewLoggingBrowser(b, l.logger), nil
}

// LoggingBrowser wraps a Browser with logging of page loads.
type LoggingBrowser struct {
	next   akiwatch.Browser
	logger *slog.Logger
}

// NewLoggingBrowser creates a new LoggingBrowser.
func NewLoggingBrowser(next akiwatch.Browser, logger *slog.Logger) *LoggingBrowser {
	return &LoggingBrowser{next: next, logger: logger}
}

// Navigate logs the URL being loaded and delegates to the wrapped browser.
func (b *LoggingBrowser) Navigate(ctx context.Context, url string) (err error) {
	defer func(begin time.Time) {
		b.logger.Info("navigate",
			"url", url,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return b.next.Navigate(ctx, url)
}

// WaitLoad logs how long the current document took to settle.
func (b *LoggingBrowser) WaitLoad(timeout time.Duration) (err error) {
	defer func(begin time.Time) {
		b.logger.Debug("wait load",
			"url", b.next.URL(),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return b.next.WaitLoad(timeout)
}

// URL delegates to the wrapped browser.
func (b *LoggingBrowser) URL() string {
	return b.next.URL()
}

// Main delegates to the wrapped browser.
func (b *LoggingBrowser) Main() akiwatch.Frame {
	return b.next.Main()
}

// Frames logs the number of sub-frames found.
func (b *LoggingBrowser) Frames() []akiwatch.Frame {
	frames := b.next.Frames()
	b.logger.Debug("frames", "count", len(frames))
	return frames
}

// Close delegates to the wrapped browser.
func (b *LoggingBrowser) Close() error {
	return b.next.Close()
}
