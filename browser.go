package akiwatch

import (
	"context"
	"time"
)

// Matcher describes one way of locating an element. Navigation code keeps
// ordered lists of matchers and takes the first one that yields a visible
// element, so new fallbacks are added as data rather than control flow.
type Matcher struct {
	// CSS selector. Ignored when XPath is set.
	CSS string

	// Text restricts CSS matches to elements whose text content matches
	// this regular expression.
	Text string

	// XPath expression used instead of CSS.
	XPath string
}

// CSS returns a Matcher for a CSS selector.
func CSS(selector string) Matcher {
	return Matcher{CSS: selector}
}

// CSSText returns a Matcher for a CSS selector restricted by text.
func CSSText(selector, text string) Matcher {
	return Matcher{CSS: selector, Text: text}
}

// XPath returns a Matcher for an XPath expression.
func XPath(expr string) Matcher {
	return Matcher{XPath: expr}
}

// String returns a human-readable description for logs.
func (m Matcher) String() string {
	switch {
	case m.XPath != "":
		return "xpath=" + m.XPath
	case m.Text != "":
		return m.CSS + " /" + m.Text + "/"
	default:
		return m.CSS
	}
}

// Scope is anything elements can be searched within: a frame or an element.
type Scope interface {
	// Query returns the first element matching m once it is visible, waiting
	// at most timeout. A miss returns an ENOTFOUND error.
	Query(m Matcher, timeout time.Duration) (Element, error)

	// QueryAll returns every element currently matching m, visible or not.
	// It does not wait.
	QueryAll(m Matcher) ([]Element, error)
}

// Frame is a document within the browser page: the top-level document or
// one of its sub-frames.
type Frame interface {
	Scope

	// URL returns the frame's current location.
	URL() string

	// HTML returns a snapshot of the frame's markup.
	HTML() (string, error)
}

// Element is a handle to a DOM element.
type Element interface {
	Scope

	// Click clicks the element, failing if the click does not complete
	// within timeout.
	Click(timeout time.Duration) error

	// Visible reports whether the element is currently rendered.
	Visible() bool

	// Enabled reports whether the element is not disabled.
	Enabled() bool

	// Checked reports whether a checkbox or radio element is checked.
	Checked() bool

	// SelectByLabel selects the option with the given visible text in a
	// select element.
	SelectByLabel(label string, timeout time.Duration) error

	// Container returns the nearest enclosing form, table, section or div.
	Container() (Element, error)
}

// Browser is a remote-controlled browser page.
type Browser interface {
	// Navigate loads url in the top-level document.
	Navigate(ctx context.Context, url string) error

	// WaitLoad waits for the current document to finish loading.
	WaitLoad(timeout time.Duration) error

	// URL returns the top-level document's location.
	URL() string

	// Main returns the top-level document.
	Main() Frame

	// Frames returns every sub-frame, excluding the top-level document.
	Frames() []Frame

	// Close releases browser resources.
	Close() error
}

// BrowserLauncher opens fresh browser pages. Each crawl attempt gets its
// own page so nothing leaks from a failed attempt into the next.
type BrowserLauncher interface {
	Open(ctx context.Context) (Browser, error)
}

// PortalChecker tells whether the portal answers at all, before a browser
// is spent on it.
type PortalChecker interface {
	Check(ctx context.Context, url string) error
}
