package akiwatch

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/unicode/norm"
)

// Slot is one open reservation slot for a facility on a given date.
// Slots are produced by a ResultParser and never modified afterwards.
type Slot struct {
	DateISO  string `json:"date_iso"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Facility string `json:"facility"`
}

// Range returns the slot's time range.
func (s Slot) Range() TimeRange {
	return TimeRange{Start: s.Start, End: s.End}
}

// Key returns the identity of the slot used for deduplication across runs.
func (s Slot) Key() Key {
	return Key{
		DateISO:    s.DateISO,
		Start:      s.Start,
		End:        s.End,
		FacilityID: FacilityID(s.Facility),
	}
}

// TimeRange is a half-open "HH:MM" to "HH:MM" interval as shown on the portal.
type TimeRange struct {
	Start string
	End   string
}

// IsZero reports whether either bound is missing.
func (r TimeRange) IsZero() bool {
	return r.Start == "" || r.End == ""
}

// String formats the range as "START–END".
func (r TimeRange) String() string {
	return r.Start + "–" + r.End
}

// Key identifies a slot. Two slots with equal keys are the same slot even if
// their facility text differs in width or whitespace.
type Key struct {
	DateISO    string
	Start      string
	End        string
	FacilityID string
}

// FacilityID returns a stable identifier for a facility display name.
func FacilityID(name string) string {
	return "xx:" + strconv.FormatUint(xxhash.Sum64String(NormalizeText(name)), 16)
}

// NormalizeText applies NFKC normalization and collapses runs of whitespace
// into single spaces.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

// SaveMode selects how a SnapshotStore persists the current slots.
type SaveMode int

const (
	// SaveUnion merges the current slots into the prior snapshot by key.
	SaveUnion SaveMode = iota
	// SaveOverwrite replaces the prior snapshot with the current slots.
	SaveOverwrite
)

func (m SaveMode) String() string {
	switch m {
	case SaveUnion:
		return "union"
	case SaveOverwrite:
		return "overwrite"
	default:
		return "SaveMode(" + strconv.Itoa(int(m)) + ")"
	}
}
