package mock

import "github.com/fwojciec/akiwatch"

var (
	_ akiwatch.ResultParser  = (*ResultParser)(nil)
	_ akiwatch.StageDetector = (*StageDetector)(nil)
)

// ResultParser is a mock implementation of akiwatch.ResultParser.
type ResultParser struct {
	ParseFn func(markup string) []akiwatch.Slot
}

func (p *ResultParser) Parse(markup string) []akiwatch.Slot {
	return p.ParseFn(markup)
}

// StageDetector is a mock implementation of akiwatch.StageDetector.
type StageDetector struct {
	DetectFn func(markup string) akiwatch.Stage
}

func (d *StageDetector) Detect(markup string) akiwatch.Stage {
	return d.DetectFn(markup)
}
