package crawl_test

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/akiwatch"
	"github.com/fwojciec/akiwatch/crawl"
	"github.com/fwojciec/akiwatch/mock"
)

const (
	entryURL = "https://portal.test/stagia/reserve/gin_menu"
	category = "屋内スポーツ施設"
	purpose  = "バレーボール"
)

// portal is a scripted reservation portal. Its single document shows one
// named page at a time; clicks move between pages.
type portal struct {
	page        string
	url         string
	resultPages int

	// deniedAt replaces the given result page with the access-denied
	// screen the first time it is reached.
	deniedAt int
	denied   bool

	navigations int
	clicks      []string
	checked     map[int]bool
}

func newPortal(resultPages int) *portal {
	return &portal{resultPages: resultPages, checked: map[int]bool{}}
}

func (p *portal) browser() *mock.Browser {
	main := &mock.Frame{
		QueryFn:    p.query,
		QueryAllFn: p.queryAll,
		URLFn:      func() string { return p.url },
		HTMLFn:     func() (string, error) { return p.page, nil },
	}
	return &mock.Browser{
		NavigateFn: func(_ context.Context, url string) error {
			p.navigations++
			p.url = url
			p.page = "entry"
			return nil
		},
		WaitLoadFn: func(time.Duration) error { return nil },
		URLFn:      func() string { return p.url },
		MainFn:     func() akiwatch.Frame { return main },
		FramesFn:   func() []akiwatch.Frame { return nil },
		CloseFn:    func() error { return nil },
	}
}

func (p *portal) goTo(page, url string) func(time.Duration) error {
	return func(time.Duration) error {
		p.clicks = append(p.clicks, page)
		p.page = page
		if url != "" {
			p.url = url
		}
		return nil
	}
}

func (p *portal) resultIndex() int {
	var n int
	if _, err := fmt.Sscanf(p.page, "results-%d", &n); err != nil {
		return 0
	}
	return n
}

func (p *portal) nextResult() func(time.Duration) error {
	return func(time.Duration) error {
		n := p.resultIndex() + 1
		p.clicks = append(p.clicks, fmt.Sprintf("results-%d", n))
		if n == p.deniedAt && !p.denied {
			p.denied = true
			p.page = "denied"
			return nil
		}
		p.page = fmt.Sprintf("results-%d", n)
		return nil
	}
}

func (p *portal) query(m akiwatch.Matcher, _ time.Duration) (akiwatch.Element, error) {
	switch {
	case p.page == "entry" && m == crawl.OperationsMenuCandidates[0]:
		return button(p.goTo("second", "https://portal.test/stagia/reserve/gml_init")), nil
	case p.page == "second" && m == crawl.SideMenuCandidates[0]:
		return button(p.goTo("form", "")), nil
	case p.page == "form" && (m == crawl.SelectWithOption(category) || m == crawl.SelectWithOption(purpose)):
		confirm := button(func(time.Duration) error { return nil })
		container := &mock.Element{
			QueryFn: func(cm akiwatch.Matcher, _ time.Duration) (akiwatch.Element, error) {
				if cm == crawl.ConfirmCandidates[0] || cm == crawl.ConfirmAllCandidates[0] {
					return confirm, nil
				}
				return nil, notFound()
			},
		}
		return &mock.Element{
			SelectByLabelFn: func(string, time.Duration) error { return nil },
			ContainerFn:     func() (akiwatch.Element, error) { return container, nil },
		}, nil
	case p.page == "form" && m == crawl.SearchButtonCandidates[0]:
		return button(p.goTo("results-1", "")), nil
	case p.page == "denied" && m == crawl.AccessDeniedMarker:
		return button(nil), nil
	case strings.HasPrefix(p.page, "results-") && m == crawl.NextCandidates[0] && p.resultIndex() < p.resultPages:
		return button(p.nextResult()), nil
	}
	return nil, notFound()
}

func (p *portal) queryAll(m akiwatch.Matcher) ([]akiwatch.Element, error) {
	switch {
	case p.page == "form" && m == crawl.WeekdayCheckboxes:
		boxes := make([]akiwatch.Element, 8)
		for i := range boxes {
			boxes[i] = &mock.Element{
				VisibleFn: func() bool { return true },
				CheckedFn: func() bool { return p.checked[i] },
				ClickFn: func(time.Duration) error {
					p.checked[i] = true
					return nil
				},
			}
		}
		return boxes, nil
	case strings.HasPrefix(p.page, "results-") && m == crawl.NextCandidates[0] && p.resultIndex() < p.resultPages:
		return []akiwatch.Element{button(nil)}, nil
	}
	return nil, nil
}

// detector classifies the portal's page names.
func detector() *mock.StageDetector {
	return &mock.StageDetector{
		DetectFn: func(markup string) akiwatch.Stage {
			switch {
			case markup == "entry":
				return akiwatch.StageEntry
			case markup == "second":
				return akiwatch.StageSecondPage
			case markup == "form":
				return akiwatch.StageSearchForm
			case strings.HasPrefix(markup, "results-"):
				return akiwatch.StageResults
			case markup == "denied":
				return akiwatch.StageInterstitial
			}
			return akiwatch.StageUnknown
		},
	}
}

// pageParser emits one slot per result page, dated by the page number.
func pageParser() *mock.ResultParser {
	return &mock.ResultParser{
		ParseFn: func(markup string) []akiwatch.Slot {
			var n int
			if _, err := fmt.Sscanf(markup, "results-%d", &n); err != nil {
				return nil
			}
			return []akiwatch.Slot{{
				DateISO:  fmt.Sprintf("2025-10-%02d", n),
				Start:    "09:00",
				End:      "11:00",
				Facility: "体育館 A",
			}}
		},
	}
}

func newNavigator() *crawl.Navigator {
	return &crawl.Navigator{
		Parser:           pageParser(),
		Detector:         detector(),
		EntryURL:         entryURL,
		Category:         category,
		Purpose:          purpose,
		StepTimeout:      time.Second,
		ProbeTimeout:     10 * time.Millisecond,
		NextProbeTimeout: 10 * time.Millisecond,
		NextClickTimeout: 10 * time.Millisecond,
		MaxSteps:         20,
		MaxRecoveries:    2,
		MaxPages:         120,
	}
}

func button(click func(time.Duration) error) *mock.Element {
	if click == nil {
		click = func(time.Duration) error { return nil }
	}
	return &mock.Element{
		VisibleFn: func() bool { return true },
		EnabledFn: func() bool { return true },
		ClickFn:   click,
	}
}

func notFound() error {
	return akiwatch.Errorf(akiwatch.ENOTFOUND, "not found")
}

func missing(akiwatch.Matcher, time.Duration) (akiwatch.Element, error) {
	return nil, notFound()
}

func noneAll(akiwatch.Matcher) ([]akiwatch.Element, error) {
	return nil, nil
}
