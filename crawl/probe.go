package crawl

import (
	"time"

	"github.com/fwojciec/akiwatch"
)

// FirstVisible returns the first element that becomes visible within probe,
// trying candidates in order, together with the matcher that found it.
// When no candidate matches it returns an ENOTFOUND error.
func FirstVisible(scope akiwatch.Scope, candidates []akiwatch.Matcher, probe time.Duration) (akiwatch.Element, akiwatch.Matcher, error) {
	for _, m := range candidates {
		el, err := scope.Query(m, probe)
		if err == nil {
			return el, m, nil
		}
	}
	return nil, akiwatch.Matcher{}, akiwatch.Errorf(akiwatch.ENOTFOUND, "none of %d candidates visible", len(candidates))
}

// hasVisible reports whether any candidate currently matches a visible
// element. It does not wait.
func hasVisible(scope akiwatch.Scope, candidates []akiwatch.Matcher) bool {
	for _, m := range candidates {
		els, err := scope.QueryAll(m)
		if err != nil {
			continue
		}
		for _, el := range els {
			if el.Visible() {
				return true
			}
		}
	}
	return false
}
