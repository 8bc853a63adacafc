package akiwatch

// ResultParser extracts open slots from one result page's markup.
// Implementations are pure: anomalies drop rows instead of failing.
type ResultParser interface {
	Parse(markup string) []Slot
}
