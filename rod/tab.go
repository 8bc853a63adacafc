package rod

import (
	"context"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/fwojciec/akiwatch"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Compile-time interface verification.
var (
	_ akiwatch.Browser = (*Tab)(nil)
	_ akiwatch.Frame   = (*frame)(nil)
	_ akiwatch.Element = (*element)(nil)
)

// maxFrameDepth bounds the recursion into nested framesets.
const maxFrameDepth = 4

// containerXPath selects the nearest enclosing form, table, section or div.
const containerXPath = "ancestor::*[self::form or self::table or self::section or self::div][1]"

// Tab is a browser tab driven through the DevTools protocol.
type Tab struct {
	page   *rod.Page
	closed atomic.Bool
}

func newTab(page *rod.Page) *Tab {
	return &Tab{page: page}
}

// Navigate loads url and waits for the load event. The context controls
// the timeout.
func (t *Tab) Navigate(ctx context.Context, url string) error {
	if t.closed.Load() {
		return akiwatch.Errorf(akiwatch.EINVALID, "tab is closed")
	}
	page := t.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return err
	}
	return page.WaitLoad()
}

// WaitLoad waits for the top-level document and then each sub-frame to
// finish loading, all within timeout. Sub-frame failures are ignored.
func (t *Tab) WaitLoad(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(t.page.GetContext(), timeout)
	defer cancel()

	if err := t.page.Context(ctx).WaitLoad(); err != nil {
		return err
	}
	for _, f := range t.Frames() {
		_ = f.(*frame).page.Context(ctx).WaitLoad()
	}
	return nil
}

// URL returns the top-level document's location.
func (t *Tab) URL() string {
	info, err := t.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Main returns the top-level document.
func (t *Tab) Main() akiwatch.Frame {
	return &frame{page: t.page}
}

// Frames returns every sub-frame in document order, depth first.
func (t *Tab) Frames() []akiwatch.Frame {
	var frames []akiwatch.Frame
	collectFrames(t.page, 0, &frames)
	return frames
}

func collectFrames(page *rod.Page, depth int, out *[]akiwatch.Frame) {
	if depth >= maxFrameDepth {
		return
	}
	els, err := page.Elements("frame, iframe")
	if err != nil {
		return
	}
	for _, el := range els {
		fp, err := el.Frame()
		if err != nil {
			continue
		}
		*out = append(*out, &frame{page: fp})
		collectFrames(fp, depth+1, out)
	}
}

// Close closes the tab. Close is safe to call multiple times.
func (t *Tab) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	return t.page.Close()
}

// frame is a document inside a tab.
type frame struct {
	page *rod.Page
}

func (f *frame) URL() string {
	res, err := f.page.Eval(`() => location.href`)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

func (f *frame) HTML() (string, error) {
	return f.page.HTML()
}

func (f *frame) Query(m akiwatch.Matcher, timeout time.Duration) (akiwatch.Element, error) {
	base := f.page.GetContext()
	ctx, cancel := context.WithTimeout(base, timeout)
	defer cancel()

	el, err := findOne(f.page.Context(ctx), m)
	if err != nil {
		return nil, notFound(m, err)
	}
	if err := el.WaitVisible(); err != nil {
		return nil, notFound(m, err)
	}
	return &element{el: el.Context(base)}, nil
}

func (f *frame) QueryAll(m akiwatch.Matcher) ([]akiwatch.Element, error) {
	return findAll(f.page, m)
}

// element is a DOM element inside a frame.
type element struct {
	el *rod.Element
}

func (e *element) Query(m akiwatch.Matcher, timeout time.Duration) (akiwatch.Element, error) {
	base := e.el.GetContext()
	ctx, cancel := context.WithTimeout(base, timeout)
	defer cancel()

	el, err := findOne(e.el.Context(ctx), m)
	if err != nil {
		return nil, notFound(m, err)
	}
	if err := el.WaitVisible(); err != nil {
		return nil, notFound(m, err)
	}
	return &element{el: el.Context(base)}, nil
}

func (e *element) QueryAll(m akiwatch.Matcher) ([]akiwatch.Element, error) {
	return findAll(e.el, m)
}

func (e *element) Click(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(e.el.GetContext(), timeout)
	defer cancel()
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (e *element) Visible() bool {
	visible, err := e.el.Visible()
	return err == nil && visible
}

func (e *element) Enabled() bool {
	res, err := e.el.Eval(`function () { return !this.disabled && this.getAttribute('aria-disabled') !== 'true' }`)
	if err != nil {
		return false
	}
	return res.Value.Bool()
}

func (e *element) Checked() bool {
	checked, err := e.el.Property("checked")
	if err != nil {
		return false
	}
	return checked.Bool()
}

func (e *element) SelectByLabel(label string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(e.el.GetContext(), timeout)
	defer cancel()
	return e.el.Context(ctx).Select([]string{LabelPattern(label)}, true, rod.SelectorTypeRegex)
}

// LabelPattern returns a regular expression matching an option whose whole
// text is label, ignoring surrounding whitespace.
func LabelPattern(label string) string {
	return `^\s*` + regexp.QuoteMeta(label) + `\s*$`
}

func (e *element) Container() (akiwatch.Element, error) {
	base := e.el.GetContext()
	ctx, cancel := context.WithTimeout(base, 500*time.Millisecond)
	defer cancel()

	el, err := e.el.Context(ctx).ElementX(containerXPath)
	if err != nil {
		return nil, akiwatch.Errorf(akiwatch.ENOTFOUND, "no enclosing container: %v", err)
	}
	return &element{el: el.Context(base)}, nil
}
