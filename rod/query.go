package rod

import (
	"regexp"

	"github.com/fwojciec/akiwatch"
	"github.com/go-rod/rod"
)

// finder is implemented by both *rod.Page and *rod.Element.
type finder interface {
	Element(selector string) (*rod.Element, error)
	ElementR(selector, jsRegex string) (*rod.Element, error)
	ElementX(xPath string) (*rod.Element, error)
	Elements(selector string) (rod.Elements, error)
	ElementsX(xpath string) (rod.Elements, error)
}

// findOne waits for the first element matching m. The caller bounds the wait
// through the finder's context.
func findOne(f finder, m akiwatch.Matcher) (*rod.Element, error) {
	switch {
	case m.XPath != "":
		return f.ElementX(m.XPath)
	case m.Text != "":
		return f.ElementR(m.CSS, m.Text)
	default:
		return f.Element(m.CSS)
	}
}

// findAll returns the elements currently matching m without waiting.
func findAll(f finder, m akiwatch.Matcher) ([]akiwatch.Element, error) {
	var (
		els rod.Elements
		err error
	)
	if m.XPath != "" {
		els, err = f.ElementsX(m.XPath)
	} else {
		els, err = f.Elements(m.CSS)
	}
	if err != nil {
		return nil, err
	}

	var re *regexp.Regexp
	if m.XPath == "" && m.Text != "" {
		if re, err = regexp.Compile(m.Text); err != nil {
			return nil, akiwatch.Errorf(akiwatch.EINVALID, "invalid text pattern %q: %v", m.Text, err)
		}
	}

	out := make([]akiwatch.Element, 0, len(els))
	for _, el := range els {
		if re != nil {
			text, err := el.Text()
			if err != nil || !re.MatchString(text) {
				continue
			}
		}
		out = append(out, &element{el: el})
	}
	return out, nil
}

func notFound(m akiwatch.Matcher, err error) error {
	return akiwatch.Errorf(akiwatch.ENOTFOUND, "%s: %v", m, err)
}
