package goquery

import (
	"fmt"
	"html"
	"iter"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/akiwatch"
	"golang.org/x/text/unicode/norm"
)

// Ensure Parser implements akiwatch.ResultParser at compile time.
var _ akiwatch.ResultParser = (*Parser)(nil)

// HeaderLookback is how far before a facility row the parser searches for
// the column headers that carry each column's time range.
const HeaderLookback = 8000

// eraBase maps an era name to the Gregorian year preceding its first year.
var eraBase = map[string]int{
	"令和": 2018,
	"平成": 1988,
	"昭和": 1925,
}

var (
	headerDateRe  = regexp.MustCompile(`<h3>\s*<span>\s*([^<]+?)\s*</span>\s*</h3>`)
	eraDateRe     = regexp.MustCompile(`(令和|平成|昭和)\s*(\d{1,2})年\s*(\d{1,2})月\s*(\d{1,2})日`)
	selectDateRe  = regexp.MustCompile(`name="selectdate"\s+value="(\d{8})"`)
	facilityRowRe = regexp.MustCompile(`(?s)<tr>\s*<th[^>]*>\s*<strong>([^<]+)</strong>\s*<br\s*/?>([^<]+)</th>(.*?)</tr>`)
	openCellRe    = regexp.MustCompile(`(?s)<td\s+id="td\d+_(\d+)"[^>]*class="ok"[^>]*>.*?alt="O"`)
	headerCellRe  = regexp.MustCompile(`(?s)<th[^>]+id="td\d+_(\d+)"[^>]*>(.*?)</th>`)
	clockRe       = regexp.MustCompile(`^\d{1,2}:\d{2}$`)
	waveReplacer  = strings.NewReplacer("～", "~", "〜", "~", "–", "~", "—", "~", "―", "~", "-", "~")
)

// Parser extracts open slots from result page markup.
type Parser struct{}

// NewParser creates a new Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse returns every slot on the page.
func (p *Parser) Parse(markup string) []akiwatch.Slot {
	return slices.Collect(ParseResultPage(markup))
}

// FacilityRow is a result table row headed by a facility name.
type FacilityRow struct {
	// Name is the facility's two-part display name.
	Name string

	// Markup is the row content after the facility header cell.
	Markup string

	// Offset is the byte offset of the row's start within the page.
	Offset int
}

// ParseResultPage yields one slot per merged open time range per facility.
// Nothing is yielded when the page carries no date.
func ParseResultPage(markup string) iter.Seq[akiwatch.Slot] {
	return func(yield func(akiwatch.Slot) bool) {
		date := ExtractDateISO(markup)
		if date == "" {
			return
		}
		for row := range FindFacilityRows(markup) {
			cols := FindOpenColumns(row.Markup)
			if len(cols) == 0 {
				continue
			}
			ranges := make([]akiwatch.TimeRange, 0, len(cols))
			for _, col := range cols {
				ranges = append(ranges, FindNearestHeaderTime(markup, row.Offset, col))
			}
			for _, r := range MergeContiguousRanges(ranges) {
				slot := akiwatch.Slot{
					DateISO:  date,
					Start:    r.Start,
					End:      r.End,
					Facility: row.Name,
				}
				if !yield(slot) {
					return
				}
			}
		}
	}
}

// ExtractDateISO returns the page's date as YYYY-MM-DD.
// The era-based date in the page header wins; the hidden selectdate field
// is the fallback. Returns "" when neither is present.
func ExtractDateISO(markup string) string {
	if iso := dateFromHeader(markup); iso != "" {
		return iso
	}
	return dateFromSelectDate(markup)
}

func dateFromHeader(markup string) string {
	m := headerDateRe.FindStringSubmatch(markup)
	if m == nil {
		return ""
	}
	return DecodeEraDate(m[1])
}

// DecodeEraDate converts text such as "令和07年10月04日(土)" to "2025-10-04".
// Full-width digits are accepted. Returns "" for unknown eras or formats.
func DecodeEraDate(text string) string {
	m := eraDateRe.FindStringSubmatch(norm.NFKC.String(text))
	if m == nil {
		return ""
	}
	base, ok := eraBase[m[1]]
	if !ok {
		return ""
	}
	year, _ := strconv.Atoi(m[2])
	month, _ := strconv.Atoi(m[3])
	day, _ := strconv.Atoi(m[4])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", base+year, month, day)
}

func dateFromSelectDate(markup string) string {
	m := selectDateRe.FindStringSubmatch(markup)
	if m == nil {
		return ""
	}
	ymd := m[1]
	return ymd[0:4] + "-" + ymd[4:6] + "-" + ymd[6:8]
}

// FindFacilityRows yields facility rows in document order.
func FindFacilityRows(markup string) iter.Seq[FacilityRow] {
	return func(yield func(FacilityRow) bool) {
		pos := 0
		for pos < len(markup) {
			loc := facilityRowRe.FindStringSubmatchIndex(markup[pos:])
			if loc == nil {
				return
			}
			primary := strings.TrimSpace(html.UnescapeString(markup[pos+loc[2] : pos+loc[3]]))
			secondary := strings.TrimSpace(html.UnescapeString(markup[pos+loc[4] : pos+loc[5]]))
			row := FacilityRow{
				Name:   strings.TrimSpace(primary + " " + secondary),
				Markup: markup[pos+loc[6] : pos+loc[7]],
				Offset: pos + loc[0],
			}
			if !yield(row) {
				return
			}
			pos += loc[1]
		}
	}
}

// FindOpenColumns returns the ascending column indices of cells marked open.
func FindOpenColumns(rowMarkup string) []int {
	var cols []int
	for _, m := range openCellRe.FindAllStringSubmatch(rowMarkup, -1) {
		col, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		cols = append(cols, col)
	}
	slices.Sort(cols)
	return slices.Compact(cols)
}

// FindNearestHeaderTime returns the time range of the header cell for col
// that most closely precedes offset within HeaderLookback bytes.
// A page can hold several date blocks, each with its own header row, so the
// closest preceding header is the one that belongs to the row.
// Returns the zero TimeRange when no usable header is found.
func FindNearestHeaderTime(markup string, offset, col int) akiwatch.TimeRange {
	if offset > len(markup) {
		offset = len(markup)
	}
	start := max(0, offset-HeaderLookback)
	window := markup[start:offset]

	want := strconv.Itoa(col)
	var last string
	found := false
	for _, m := range headerCellRe.FindAllStringSubmatch(window, -1) {
		if m[1] == want {
			last = m[2]
			found = true
		}
	}
	if !found {
		return akiwatch.TimeRange{}
	}
	return parseHeaderTime(last)
}

// parseHeaderTime reads "11:00<br>～<br>13:00" style header content.
func parseHeaderTime(fragment string) akiwatch.TimeRange {
	text := fragmentText(fragment)
	text = strings.Join(strings.Fields(norm.NFKC.String(text)), "")
	text = waveReplacer.Replace(text)

	start, end, ok := strings.Cut(text, "~")
	if !ok || !clockRe.MatchString(start) || !clockRe.MatchString(end) {
		return akiwatch.TimeRange{}
	}
	return akiwatch.TimeRange{Start: start, End: end}
}

func fragmentText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	return doc.Text()
}

// MergeContiguousRanges joins neighbouring ranges where one ends exactly
// where the next starts. Input must be in column order. Ranges with a
// missing bound are dropped first.
func MergeContiguousRanges(ranges []akiwatch.TimeRange) []akiwatch.TimeRange {
	var out []akiwatch.TimeRange
	var cur akiwatch.TimeRange
	for _, r := range ranges {
		if r.IsZero() {
			continue
		}
		switch {
		case cur.IsZero():
			cur = r
		case cur.End == r.Start:
			cur.End = r.End
		default:
			out = append(out, cur)
			cur = r
		}
	}
	if !cur.IsZero() {
		out = append(out, cur)
	}
	return out
}
