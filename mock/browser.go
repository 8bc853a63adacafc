package mock

import (
	"context"
	"time"

	"github.com/fwojciec/akiwatch"
)

var (
	_ akiwatch.Browser         = (*Browser)(nil)
	_ akiwatch.Frame           = (*Frame)(nil)
	_ akiwatch.Element         = (*Element)(nil)
	_ akiwatch.BrowserLauncher = (*BrowserLauncher)(nil)
	_ akiwatch.PortalChecker   = (*PortalChecker)(nil)
)

// Browser is a mock implementation of akiwatch.Browser.
type Browser struct {
	NavigateFn func(ctx context.Context, url string) error
	WaitLoadFn func(timeout time.Duration) error
	URLFn      func() string
	MainFn     func() akiwatch.Frame
	FramesFn   func() []akiwatch.Frame
	CloseFn    func() error
}

func (b *Browser) Navigate(ctx context.Context, url string) error {
	return b.NavigateFn(ctx, url)
}

func (b *Browser) WaitLoad(timeout time.Duration) error {
	return b.WaitLoadFn(timeout)
}

func (b *Browser) URL() string {
	return b.URLFn()
}

func (b *Browser) Main() akiwatch.Frame {
	return b.MainFn()
}

func (b *Browser) Frames() []akiwatch.Frame {
	return b.FramesFn()
}

func (b *Browser) Close() error {
	return b.CloseFn()
}

// Frame is a mock implementation of akiwatch.Frame.
type Frame struct {
	QueryFn    func(m akiwatch.Matcher, timeout time.Duration) (akiwatch.Element, error)
	QueryAllFn func(m akiwatch.Matcher) ([]akiwatch.Element, error)
	URLFn      func() string
	HTMLFn     func() (string, error)
}

func (f *Frame) Query(m akiwatch.Matcher, timeout time.Duration) (akiwatch.Element, error) {
	return f.QueryFn(m, timeout)
}

func (f *Frame) QueryAll(m akiwatch.Matcher) ([]akiwatch.Element, error) {
	return f.QueryAllFn(m)
}

func (f *Frame) URL() string {
	return f.URLFn()
}

func (f *Frame) HTML() (string, error) {
	return f.HTMLFn()
}

// Element is a mock implementation of akiwatch.Element.
type Element struct {
	QueryFn         func(m akiwatch.Matcher, timeout time.Duration) (akiwatch.Element, error)
	QueryAllFn      func(m akiwatch.Matcher) ([]akiwatch.Element, error)
	ClickFn         func(timeout time.Duration) error
	VisibleFn       func() bool
	EnabledFn       func() bool
	CheckedFn       func() bool
	SelectByLabelFn func(label string, timeout time.Duration) error
	ContainerFn     func() (akiwatch.Element, error)
}

func (e *Element) Query(m akiwatch.Matcher, timeout time.Duration) (akiwatch.Element, error) {
	return e.QueryFn(m, timeout)
}

func (e *Element) QueryAll(m akiwatch.Matcher) ([]akiwatch.Element, error) {
	return e.QueryAllFn(m)
}

func (e *Element) Click(timeout time.Duration) error {
	return e.ClickFn(timeout)
}

func (e *Element) Visible() bool {
	return e.VisibleFn()
}

func (e *Element) Enabled() bool {
	return e.EnabledFn()
}

func (e *Element) Checked() bool {
	return e.CheckedFn()
}

func (e *Element) SelectByLabel(label string, timeout time.Duration) error {
	return e.SelectByLabelFn(label, timeout)
}

func (e *Element) Container() (akiwatch.Element, error) {
	return e.ContainerFn()
}

// BrowserLauncher is a mock implementation of akiwatch.BrowserLauncher.
type BrowserLauncher struct {
	OpenFn func(ctx context.Context) (akiwatch.Browser, error)
}

func (l *BrowserLauncher) Open(ctx context.Context) (akiwatch.Browser, error) {
	return l.OpenFn(ctx)
}

// PortalChecker is a mock implementation of akiwatch.PortalChecker.
type PortalChecker struct {
	CheckFn func(ctx context.Context, url string) error
}

func (c *PortalChecker) Check(ctx context.Context, url string) error {
	return c.CheckFn(ctx, url)
}
