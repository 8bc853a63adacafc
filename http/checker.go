// Package http checks that the portal answers plain HTTP requests before a
// browser is launched against it.
package http

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/fwojciec/akiwatch"
)

// DefaultCheckTimeout is the default timeout for a reachability check.
const DefaultCheckTimeout = 10 * time.Second

// Ensure Checker implements akiwatch.PortalChecker at compile time.
var _ akiwatch.PortalChecker = (*Checker)(nil)

// Checker issues a single GET against the entry page. It does not execute
// JavaScript. Any HTTP response, whatever its status, counts as reachable:
// the portal may refuse cookieless clients that a browser gets through.
type Checker struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

// Option configures a Checker.
type Option func(*Checker)

// WithTimeout sets the timeout for the check.
// Defaults to DefaultCheckTimeout if not specified.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		c.timeout = d
	}
}

// WithUserAgent sets the User-Agent header sent with the check.
func WithUserAgent(ua string) Option {
	return func(c *Checker) {
		c.userAgent = ua
	}
}

// NewChecker creates a new Checker.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		timeout: DefaultCheckTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.client = &http.Client{
		Timeout: c.timeout,
	}

	return c
}

// Check returns an EUNAVAILABLE error when no HTTP response arrives for url
// (DNS, connection or timeout failures). Redirects are followed.
func (c *Checker) Check(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return akiwatch.Errorf(akiwatch.EINVALID, "invalid portal URL %q: %v", url, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept-Language", "ja-JP,ja;q=0.9")

	resp, err := c.client.Do(req)
	if err != nil {
		return akiwatch.Errorf(akiwatch.EUNAVAILABLE, "portal unreachable: %v", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	return nil
}
