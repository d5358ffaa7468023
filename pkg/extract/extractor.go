package extract

import (
	"fmt"

	"chronicler/pkg/logline"
)

// Extractor applies an ordered rule table to log lines. It is pure:
// the same line always yields the same result with no dependency on
// prior state, so a rule-set change allows re-extraction over retained
// lines.
type Extractor struct {
	rules []Rule
}

// NewExtractor compiles the rule table and returns an Extractor.
// An empty table is a configuration error.
func NewExtractor(rules []Rule) (*Extractor, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("no extraction rules configured")
	}
	compiled := make([]Rule, len(rules))
	copy(compiled, rules)
	for i := range compiled {
		if err := compiled[i].Compile(); err != nil {
			return nil, err
		}
	}
	return &Extractor{rules: compiled}, nil
}

// Rules returns the compiled rule table.
func (x *Extractor) Rules() []Rule {
	return x.rules
}

// Extract matches a line against the rule table; the first matching
// rule wins. An unmatched line returns (nil, nil): expected, not an
// error. A matched line whose numeric payload fails to parse returns
// an ExtractionError and no event, never a zero value.
func (x *Extractor) Extract(line logline.Line) (*Event, error) {
	for i := range x.rules {
		rule := &x.rules[i]
		m := rule.Regexp().FindStringSubmatch(line.Message)
		if m == nil {
			continue
		}

		ev := &Event{
			Kind:      rule.Kind,
			Name:      rule.Name,
			Actor:     "You",
			Seq:       line.Seq,
			Timestamp: line.Timestamp,
		}

		for gi, gname := range rule.Regexp().SubexpNames() {
			if gi == 0 || gname == "" || m[gi] == "" {
				continue
			}
			switch gname {
			case "amount":
				amount, err := ParseAmount(m[gi])
				if err != nil {
					return nil, &ExtractionError{
						Rule:  rule.Name,
						Field: gname,
						Value: m[gi],
						Err:   err,
					}
				}
				ev.Amount = amount
			case "actor":
				ev.Actor = m[gi]
			case "target":
				ev.Target = m[gi]
			case "element":
				ev.Element = m[gi]
			}
		}
		return ev, nil
	}
	return nil, nil
}
