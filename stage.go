package akiwatch

// Stage is the navigation progress as observed from page content. It is
// recomputed at every step and never stored across attempts.
type Stage int

// Stage values.
const (
	StageUnknown Stage = iota
	StageEntry
	StageSecondPage
	StageSearchForm
	StageResults
	StageInterstitial
)

var stageNames = map[Stage]string{
	StageUnknown:      "unknown",
	StageEntry:        "entry",
	StageSecondPage:   "second-page",
	StageSearchForm:   "search-form",
	StageResults:      "results",
	StageInterstitial: "interstitial",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// StageDetector classifies a markup snapshot.
type StageDetector interface {
	Detect(markup string) Stage
}
