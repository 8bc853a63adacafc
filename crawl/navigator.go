// Package crawl drives the reservation portal from its entry page to the
// paginated search results and orchestrates retried crawl attempts.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/fwojciec/akiwatch"
)

// Default timeouts and bounds.
const (
	DefaultStepTimeout      = 30 * time.Second
	DefaultProbeTimeout     = 500 * time.Millisecond
	DefaultNextProbeTimeout = 200 * time.Millisecond
	DefaultNextClickTimeout = 500 * time.Millisecond
	DefaultSubmitTimeout    = time.Second
	DefaultMaxSteps         = 20
	DefaultMaxRecoveries    = 3
	DefaultMaxPages         = 120
)

// errInterstitial reports that an error screen replaced the result page.
var errInterstitial = errors.New("interstitial during pagination")

// Navigator holds the settings shared by every crawl attempt.
type Navigator struct {
	Parser    akiwatch.ResultParser
	Detector  akiwatch.StageDetector
	Artifacts akiwatch.ArtifactSink
	Pacer     *Pacer
	Logger    *slog.Logger

	EntryURL string
	Category string
	Purpose  string

	InitialDelay akiwatch.DelayRange

	StepTimeout      time.Duration
	ProbeTimeout     time.Duration
	NextProbeTimeout time.Duration
	NextClickTimeout time.Duration

	MaxSteps      int
	MaxRecoveries int
	MaxPages      int
}

// NewNavigator creates a Navigator with default timeouts and bounds.
func NewNavigator(parser akiwatch.ResultParser, detector akiwatch.StageDetector, cfg akiwatch.Config) *Navigator {
	return &Navigator{
		Parser:           parser,
		Detector:         detector,
		Pacer:            NewPacer(cfg.PageDelay),
		EntryURL:         cfg.EntryURL,
		Category:         cfg.Category,
		Purpose:          cfg.Purpose,
		InitialDelay:     cfg.InitialDelay,
		StepTimeout:      cfg.StepTimeout,
		ProbeTimeout:     DefaultProbeTimeout,
		NextProbeTimeout: DefaultNextProbeTimeout,
		NextClickTimeout: DefaultNextClickTimeout,
		MaxSteps:         DefaultMaxSteps,
		MaxRecoveries:    DefaultMaxRecoveries,
		MaxPages:         cfg.MaxPages,
	}
}

// Attempt is the outcome of one successful crawl attempt.
type Attempt struct {
	Slots      []akiwatch.Slot
	Pages      int
	Recoveries int
	Steps      int
}

// Session drives one browser through one crawl attempt. It holds no state
// besides the browser: progress is observed from page content each step.
type Session struct {
	nav     *Navigator
	browser akiwatch.Browser
}

// NewSession binds the navigator to a freshly opened browser.
func (n *Navigator) NewSession(b akiwatch.Browser) *Session {
	return &Session{nav: n, browser: b}
}

// Crawl runs one attempt: from the entry point through every result page.
// Interstitials restart navigation from the entry point and discard the
// slots gathered so far. It fails with EUNAVAILABLE when the results are
// not reached within the step or recovery bounds.
func (s *Session) Crawl(ctx context.Context) (*Attempt, error) {
	if err := SleepRandom(ctx, s.nav.InitialDelay); err != nil {
		return nil, err
	}
	if err := s.OpenEntryPoint(ctx); err != nil {
		return nil, err
	}
	s.dump("entry.html", s.browser.Main())

	att := &Attempt{}
	for att.Steps < s.maxSteps() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		att.Steps++

		stage := s.Observe()
		s.logger().Debug("observe", "step", att.Steps, "stage", stage, "url", s.browser.URL())

		switch stage {
		case akiwatch.StageInterstitial:
			if err := s.restart(ctx, att); err != nil {
				return nil, err
			}

		case akiwatch.StageEntry:
			if _, err := s.ActivateOperationsMenu(ctx); err != nil {
				s.logger().Warn("operations menu", "err", err)
				continue
			}
			s.dump("second-page.html", s.browser.Main())

		case akiwatch.StageSecondPage:
			if !s.FollowSideMenuLink() {
				s.logger().Warn("side menu link not followed")
			}

		case akiwatch.StageSearchForm:
			frame := s.LocateContentFrame()
			report := s.FillSearchForm(frame)
			if err := report.Err(); err != nil {
				s.logger().Warn("search form partially filled", "err", err)
			}
			s.dump("search-form.html", frame)
			s.SubmitSearch(frame)

		case akiwatch.StageResults:
			err := s.paginate(ctx, att)
			if errors.Is(err, errInterstitial) {
				continue
			} else if err != nil {
				return nil, err
			}
			return att, nil

		default:
			// Mid-transition; give the page a moment before probing again.
			_ = s.browser.WaitLoad(s.probeTimeout())
			if err := s.pace(ctx); err != nil {
				return nil, err
			}
		}
	}
	return nil, akiwatch.Errorf(akiwatch.EUNAVAILABLE, "search results not reached after %d steps", att.Steps)
}

// Observe classifies the current page from the content of every document.
// The most advanced stage found in any frame wins; an interstitial in any
// frame wins over everything.
func (s *Session) Observe() akiwatch.Stage {
	stage := akiwatch.StageUnknown
	for _, doc := range s.documents() {
		html, err := doc.HTML()
		if err != nil {
			continue
		}
		if st := s.nav.Detector.Detect(html); st > stage {
			stage = st
		}
	}
	if stage == akiwatch.StageUnknown && strings.Contains(s.browser.URL(), EntryURLMarker) {
		stage = akiwatch.StageEntry
	}
	return stage
}

// OpenEntryPoint navigates to the portal's entry page.
func (s *Session) OpenEntryPoint(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.stepTimeout())
	defer cancel()
	if err := s.browser.Navigate(ctx, s.nav.EntryURL); err != nil {
		return akiwatch.Errorf(akiwatch.EUNAVAILABLE, "opening entry point: %v", err)
	}
	return nil
}

// ActivateOperationsMenu clicks the operations menu control. It does nothing
// and returns false once the browser has left the entry page.
func (s *Session) ActivateOperationsMenu(ctx context.Context) (bool, error) {
	if !strings.Contains(s.browser.URL(), EntryURLMarker) {
		return false, nil
	}
	el, m, err := FirstVisible(s.browser.Main(), OperationsMenuCandidates, s.probeTimeout())
	if err != nil {
		return false, akiwatch.Errorf(akiwatch.EUNAVAILABLE, "operations menu not found")
	}
	if err := el.Click(s.stepTimeout()); err != nil {
		return false, fmt.Errorf("clicking %s: %w", m, err)
	}
	if err := s.browser.WaitLoad(s.stepTimeout()); err != nil {
		return true, fmt.Errorf("waiting for second page: %w", err)
	}
	return true, nil
}

// LocateContentFrame returns the sub-frame holding the search form, else
// the sub-frame holding the result navigation, else the top-level document.
func (s *Session) LocateContentFrame() akiwatch.Frame {
	frames := s.browser.Frames()
	for _, f := range frames {
		if hasVisible(f, FormCandidates) {
			return f
		}
	}
	for _, f := range frames {
		if hasVisible(f, NextCandidates) {
			return f
		}
	}
	return s.browser.Main()
}

// FollowSideMenuLink clicks the first visible side-menu link found in any
// document and reports whether a transition happened.
func (s *Session) FollowSideMenuLink() bool {
	for _, m := range SideMenuCandidates {
		for _, doc := range s.subFramesFirst() {
			el, err := doc.Query(m, s.probeTimeout())
			if err != nil {
				continue
			}
			if err := el.Click(s.stepTimeout()); err != nil {
				s.logger().Debug("side menu click", "matcher", m, "err", err)
				continue
			}
			_ = s.browser.WaitLoad(s.stepTimeout())
			return true
		}
	}
	return false
}

// FormReport collects the failures of the independent form-fill stages.
type FormReport struct {
	Category error
	Purpose  error
	Weekdays error
}

// Err joins the stage failures, or returns nil when every stage succeeded.
func (r FormReport) Err() error {
	var errs []error
	if r.Category != nil {
		errs = append(errs, fmt.Errorf("category: %w", r.Category))
	}
	if r.Purpose != nil {
		errs = append(errs, fmt.Errorf("purpose: %w", r.Purpose))
	}
	if r.Weekdays != nil {
		errs = append(errs, fmt.Errorf("weekdays: %w", r.Weekdays))
	}
	return errors.Join(errs...)
}

// FillSearchForm selects the category and purpose, confirming each with the
// control inside its own container, then checks Sunday, Saturday and
// holiday. Each stage runs even if an earlier one failed.
func (s *Session) FillSearchForm(frame akiwatch.Frame) FormReport {
	var r FormReport
	r.Category = s.selectAndConfirm(frame, s.nav.Category, ConfirmCandidates)
	r.Purpose = s.selectAndConfirm(frame, s.nav.Purpose, slices.Concat(ConfirmAllCandidates, ConfirmCandidates))
	r.Weekdays = s.checkWeekdays(frame)
	return r
}

func (s *Session) selectAndConfirm(frame akiwatch.Frame, label string, confirm []akiwatch.Matcher) error {
	if label == "" {
		return nil
	}
	sel, err := frame.Query(SelectWithOption(label), s.probeTimeout())
	if err != nil {
		return err
	}
	if err := sel.SelectByLabel(label, s.stepTimeout()); err != nil {
		return fmt.Errorf("selecting %q: %w", label, err)
	}
	container, err := sel.Container()
	if err != nil {
		return err
	}
	btn, m, err := FirstVisible(container, confirm, s.probeTimeout())
	if err != nil {
		return akiwatch.Errorf(akiwatch.ENOTFOUND, "no confirm control near %q", label)
	}
	if err := btn.Click(s.stepTimeout()); err != nil {
		return fmt.Errorf("clicking %s: %w", m, err)
	}
	_ = s.browser.WaitLoad(s.stepTimeout())
	return nil
}

func (s *Session) checkWeekdays(frame akiwatch.Frame) error {
	boxes, err := frame.QueryAll(WeekdayCheckboxes)
	if err != nil {
		return err
	}
	var errs []error
	for _, idx := range WeekdayIndices {
		if idx >= len(boxes) {
			errs = append(errs, akiwatch.Errorf(akiwatch.ENOTFOUND, "weekday checkbox %d of %d missing", idx, len(boxes)))
			continue
		}
		cb := boxes[idx]
		if !cb.Visible() || cb.Checked() {
			continue
		}
		if err := cb.Click(s.stepTimeout()); err != nil {
			errs = append(errs, fmt.Errorf("checkbox %d: %w", idx, err))
		}
	}
	return errors.Join(errs...)
}

// SubmitSearch clicks the search control if it becomes visible within the
// probe window. A missing or failing control is logged, not returned.
func (s *Session) SubmitSearch(frame akiwatch.Frame) bool {
	btn, m, err := FirstVisible(frame, SearchButtonCandidates, s.probeTimeout())
	if err != nil {
		s.logger().Warn("search button not visible, skipping")
		return false
	}
	if err := btn.Click(DefaultSubmitTimeout); err != nil {
		s.logger().Warn("search button click failed", "matcher", m, "err", err)
		return false
	}
	_ = s.browser.WaitLoad(s.stepTimeout())
	return true
}

// AdvancePage clicks the next-page control and reports whether it did.
// It returns false without retrying when the control is absent, not
// visible within the probe window, disabled, or the click fails.
func (s *Session) AdvancePage(frame akiwatch.Frame) bool {
	for _, m := range NextCandidates {
		found, err := frame.QueryAll(m)
		if err != nil || len(found) == 0 {
			continue
		}
		el, err := frame.Query(m, orDefault(s.nav.NextProbeTimeout, DefaultNextProbeTimeout))
		if err != nil {
			return false
		}
		if !el.Enabled() {
			return false
		}
		return el.Click(orDefault(s.nav.NextClickTimeout, DefaultNextClickTimeout)) == nil
	}
	return false
}

// DetectAndRecoverAccessDenied reopens the entry point when any document
// shows the access-denied marker. It reports whether it recovered.
func (s *Session) DetectAndRecoverAccessDenied(ctx context.Context) (bool, error) {
	for _, doc := range s.documents() {
		if _, err := doc.Query(AccessDeniedMarker, s.probeTimeout()); err != nil {
			continue
		}
		s.logger().Info("access denied screen detected, returning to entry point")
		return true, s.OpenEntryPoint(ctx)
	}
	return false, nil
}

// restart handles an interstitial by restarting from the entry point.
func (s *Session) restart(ctx context.Context, att *Attempt) error {
	if att.Recoveries >= s.maxRecoveries() {
		return akiwatch.Errorf(akiwatch.EUNAVAILABLE, "gave up after %d recoveries", att.Recoveries)
	}
	att.Recoveries++
	att.Slots = nil
	att.Pages = 0

	recovered, err := s.DetectAndRecoverAccessDenied(ctx)
	if err != nil {
		return err
	}
	if !recovered {
		s.logger().Info("error screen detected, returning to entry point")
		return s.OpenEntryPoint(ctx)
	}
	return nil
}

// paginate parses result pages until the next control gives out or the
// page ceiling is reached.
func (s *Session) paginate(ctx context.Context, att *Attempt) error {
	frame := s.LocateContentFrame()
	for {
		html, err := frame.HTML()
		if err != nil {
			return fmt.Errorf("reading result page: %w", err)
		}
		if s.nav.Detector.Detect(html) == akiwatch.StageInterstitial {
			return errInterstitial
		}

		att.Pages++
		s.save(fmt.Sprintf("result-page-%03d.html", att.Pages), html)
		slots := s.nav.Parser.Parse(html)
		att.Slots = append(att.Slots, slots...)
		s.logger().Info("page", "n", att.Pages, "slots", len(slots))

		if att.Pages >= s.maxPages() {
			s.logger().Info("page ceiling reached", "max", s.maxPages())
			return nil
		}
		if !s.AdvancePage(frame) {
			s.logger().Info("no next page")
			return nil
		}
		if err := s.browser.WaitLoad(s.stepTimeout()); err != nil {
			return fmt.Errorf("waiting for result page %d: %w", att.Pages+1, err)
		}
		if err := s.pace(ctx); err != nil {
			return err
		}
		frame = s.LocateContentFrame()
	}
}

// documents returns the top-level document followed by every sub-frame.
func (s *Session) documents() []akiwatch.Frame {
	return append([]akiwatch.Frame{s.browser.Main()}, s.browser.Frames()...)
}

// subFramesFirst returns every sub-frame followed by the top-level document.
func (s *Session) subFramesFirst() []akiwatch.Frame {
	return append(s.browser.Frames(), s.browser.Main())
}

func (s *Session) dump(name string, doc akiwatch.Frame) {
	if s.nav.Artifacts == nil {
		return
	}
	html, err := doc.HTML()
	if err != nil {
		s.logger().Debug("dump", "name", name, "err", err)
		return
	}
	s.save(name, html)
}

func (s *Session) save(name, content string) {
	if s.nav.Artifacts == nil {
		return
	}
	if err := s.nav.Artifacts.Save(name, content); err != nil {
		s.logger().Warn("saving artifact", "name", name, "err", err)
	}
}

func (s *Session) logger() *slog.Logger {
	if s.nav.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.nav.Logger
}

func (s *Session) pace(ctx context.Context) error {
	if s.nav.Pacer == nil {
		return ctx.Err()
	}
	return s.nav.Pacer.Wait(ctx)
}

func (s *Session) stepTimeout() time.Duration {
	return orDefault(s.nav.StepTimeout, DefaultStepTimeout)
}

func (s *Session) probeTimeout() time.Duration {
	return orDefault(s.nav.ProbeTimeout, DefaultProbeTimeout)
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func (s *Session) maxSteps() int {
	if s.nav.MaxSteps <= 0 {
		return DefaultMaxSteps
	}
	return s.nav.MaxSteps
}

func (s *Session) maxRecoveries() int {
	if s.nav.MaxRecoveries <= 0 {
		return DefaultMaxRecoveries
	}
	return s.nav.MaxRecoveries
}

func (s *Session) maxPages() int {
	if s.nav.MaxPages <= 0 {
		return DefaultMaxPages
	}
	return s.nav.MaxPages
}
