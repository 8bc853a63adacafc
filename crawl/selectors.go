package crawl

import (
	"strings"

	"github.com/fwojciec/akiwatch"
)

// Candidate lists are tried in order; the first visible match wins.
// Portal variants differ in markup, so new fallbacks go at the end of a list.
var (
	// OperationsMenuCandidates locate the 多機能操作 control on the entry page.
	OperationsMenuCandidates = []akiwatch.Matcher{
		akiwatch.XPath("//a[.//img[@alt='多機能操作']]"),
		akiwatch.CSS("input[type='image'][alt='多機能操作']"),
		akiwatch.CSS("img[alt='多機能操作']"),
		akiwatch.CSSText("button", "多機能操作"),
		akiwatch.CSSText("a", "多機能操作"),
	}

	// SideMenuCandidates locate the 空き状況の確認 link on the second page.
	SideMenuCandidates = []akiwatch.Matcher{
		akiwatch.CSS("a[href*='gml_z_group_sel_1']"),
		akiwatch.CSSText("a", "空き状況の確認"),
		akiwatch.XPath("//*[contains(normalize-space(text()), '空き状況の確認')]"),
	}

	// SearchButtonCandidates locate the search submit control.
	SearchButtonCandidates = []akiwatch.Matcher{
		akiwatch.CSS("input[type='image'][alt='検索']"),
		akiwatch.CSS("#btnOK"),
		akiwatch.CSS("input[type='submit'][value*='検索']"),
		akiwatch.CSSText("button", "検索"),
		akiwatch.CSS("img[alt='検索']"),
	}

	// NextCandidates locate the date navigation's 次へ link on result pages.
	NextCandidates = []akiwatch.Matcher{
		akiwatch.CSSText("ul.double.time-navigation li.right a", "次へ"),
		akiwatch.CSSText("a[href^='javaScript:changeDspDay']", "次へ"),
	}

	// ConfirmAllCandidates locate a combined 確定・全検索 control.
	ConfirmAllCandidates = []akiwatch.Matcher{
		akiwatch.CSSText("button", "確定・全検索"),
		akiwatch.CSS("input[type='submit'][value*='確定・全検索']"),
		akiwatch.CSS("input[type='button'][value*='確定・全検索']"),
	}

	// ConfirmCandidates locate a plain 確定 control.
	ConfirmCandidates = []akiwatch.Matcher{
		akiwatch.CSSText("button", "確定"),
		akiwatch.CSS("input[type='submit'][value*='確定']"),
		akiwatch.CSS("input[type='button'][value*='確定']"),
		akiwatch.CSS("img[alt='確定']"),
	}

	// FormCandidates identify a frame that holds the search form.
	FormCandidates = []akiwatch.Matcher{
		akiwatch.CSS("input[type='image'][alt='検索'], #btnOK, input[type='submit'][value*='検索']"),
		akiwatch.CSS("select"),
		akiwatch.CSS("input[type='checkbox']"),
		akiwatch.XPath("//*[contains(text(), '予約状況') or contains(text(), '複数日表示')]"),
	}

	// AccessDeniedMarker matches the access-denied interstitial.
	AccessDeniedMarker = akiwatch.XPath("//*[contains(text(), 'アクセス権限がありません')]")

	// WeekdayCheckboxes match the day-of-week checkboxes of the search form,
	// ordered 日 月 火 水 木 金 土 祝.
	WeekdayCheckboxes = akiwatch.CSS("form[name='formDate'] input[name='chkbox']")

	// WeekdayIndices are the positions of 日, 土 and 祝 in WeekdayCheckboxes.
	WeekdayIndices = []int{0, 6, 7}
)

// EntryURLMarker identifies the entry page by URL shape.
const EntryURLMarker = "gin_menu"

// SelectWithOption matches a select element offering an option whose
// whitespace-normalized text equals label.
func SelectWithOption(label string) akiwatch.Matcher {
	return akiwatch.XPath("//select[option[normalize-space(.)=" + xpathLiteral(label) + "]]")
}

// xpathLiteral quotes s as an XPath 1.0 string literal.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}
