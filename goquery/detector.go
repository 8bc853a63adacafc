package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/akiwatch"
)

// Ensure Detector implements akiwatch.StageDetector at compile time.
var _ akiwatch.StageDetector = (*Detector)(nil)

// InterstitialMarkers are texts shown only on error and access-denied
// screens that interrupt the search sequence.
var InterstitialMarkers = []string{
	"アクセス権限がありません",
	"セッションがタイムアウトしました",
	"システムエラーが発生しました",
}

// Detector identifies which step of the portal a markup snapshot shows.
// It checks for step-specific form names, hidden fields, element ids and
// texts that are stable across the portal's page variants.
type Detector struct{}

// NewDetector creates a new Detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Detect analyzes markup and returns the observed stage.
// Returns StageUnknown if the stage cannot be determined.
func (d *Detector) Detect(markup string) akiwatch.Stage {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return akiwatch.StageUnknown
	}

	// Interstitials win over everything: error screens often keep the
	// surrounding chrome of the page they interrupted.
	if d.hasInterstitialText(doc) {
		return akiwatch.StageInterstitial
	}

	// Results carry the hidden date field and per-column header ids.
	if d.hasSelector(doc, "input[name='selectdate']") ||
		d.hasSelector(doc, "ul.time-navigation") ||
		d.hasSelector(doc, "th[id^='td']") {
		return akiwatch.StageResults
	}

	// The search form groups its weekday checkboxes in formDate.
	if d.hasSelector(doc, "form[name='formDate']") ||
		d.hasSelector(doc, "input[name='chkbox']") {
		return akiwatch.StageSearchForm
	}

	// The side menu link only exists on the page after the entry point.
	if d.hasSelector(doc, "a[href*='gml_z_group_sel_1']") {
		return akiwatch.StageSecondPage
	}

	if d.hasSelector(doc, "img[alt='多機能操作']") ||
		d.hasSelector(doc, "input[alt='多機能操作']") {
		return akiwatch.StageEntry
	}

	return akiwatch.StageUnknown
}

// IsInterstitial reports whether markup is an error or access-denied screen.
func (d *Detector) IsInterstitial(markup string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return false
	}
	return d.hasInterstitialText(doc)
}

func (d *Detector) hasInterstitialText(doc *goquery.Document) bool {
	text := doc.Find("body").Text()
	for _, marker := range InterstitialMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

func (d *Detector) hasSelector(doc *goquery.Document, selector string) bool {
	return doc.Find(selector).Length() > 0
}
