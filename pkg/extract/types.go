// Package extract maps tokenized log lines to typed stat events using
// an ordered table of pattern rules.
package extract

import (
	"fmt"
	"time"
)

// Kind identifies what a stat event describes.
type Kind string

// Event kinds, one per rule in the built-in table. Custom rules from a
// user rules file carry KindCustom plus the rule's name.
const (
	KindDamageDealt Kind = "damage-dealt"
	KindDamageTaken Kind = "damage-taken"
	KindResistCheck Kind = "resist-check"
	KindXPGain      Kind = "xp-gain"
	KindHeal        Kind = "heal"
	KindDeath       Kind = "death"
	KindCustom      Kind = "custom"
)

// knownKinds is the closed set of accepted rule kinds.
var knownKinds = map[Kind]bool{
	KindDamageDealt: true,
	KindDamageTaken: true,
	KindResistCheck: true,
	KindXPGain:      true,
	KindHeal:        true,
	KindDeath:       true,
	KindCustom:      true,
}

// Event is a typed stat event derived from one log line.
// Events are never mutated after creation.
type Event struct {
	// Kind is the event kind.
	Kind Kind

	// Name is the matching rule's name (meaningful for custom rules).
	Name string

	// Actor is who performed the action ("You" when implicit).
	Actor string

	// Target is who the action was performed on, if captured.
	Target string

	// Amount is the numeric payload: damage points, resisted
	// percentage, experience delta, or health restored.
	Amount float64

	// Element is the damage school, if captured (e.g. "Fire").
	Element string

	// Seq is the source line's sequence index.
	Seq uint64

	// Timestamp is the source line's timestamp; nil events from
	// untimestamped lines are excluded from windowed aggregation.
	Timestamp *time.Time
}

// ExtractionError reports a line that matched a rule but carried a
// numeric payload that failed to parse. The event is dropped and
// counted; the pipeline continues.
type ExtractionError struct {
	// Rule is the name of the matching rule.
	Rule string

	// Field is the capture group that failed.
	Field string

	// Value is the raw captured text.
	Value string

	// Err is the underlying parse error.
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("rule %s: field %s: cannot parse %q: %v", e.Rule, e.Field, e.Value, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
