// Package aggregate maintains running and windowed numeric summaries
// over extracted stat events.
package aggregate

import (
	"sort"
	"sync"
	"time"

	"chronicler/pkg/extract"
)

// minWindow is the shortest window that produces a rate. Anything
// shorter reports insufficient data instead of an inflated figure.
const minWindow = time.Second

// Resist tallies resist checks for one damage school.
type Resist struct {
	// Element is the damage school.
	Element string

	// Resisted is the number of resist checks observed.
	Resisted int

	// Incoming is the number of incoming hits observed: damage taken
	// plus resisted checks.
	Incoming int

	// Rate is Resisted / Incoming as a percentage, recomputed from
	// the events in the window, never smoothed.
	Rate float64

	// MeanPercent is the mean resisted percentage across checks.
	MeanPercent float64
}

// Summary is a windowed numeric summary. A summary over a window
// equals the fold of exactly the events inside that window, so
// recomputation from retained history is idempotent.
type Summary struct {
	// WindowStart and WindowEnd bound the summarized window.
	WindowStart time.Time
	WindowEnd   time.Time

	// Seconds is the window duration used for rates. Negative
	// durations from clock anomalies clamp to zero.
	Seconds float64

	// Insufficient is set when the window is shorter than one second;
	// DPS and XPPerHour are zero in that case.
	Insufficient bool

	// DamageDealt is the damage-dealt sum over the window.
	DamageDealt float64

	// DPS is DamageDealt / Seconds.
	DPS float64

	// DamageTaken is the damage-taken sum over the window.
	DamageTaken float64

	// Healing is the heal sum over the window.
	Healing float64

	// XPGained is the xp-gain sum over the window.
	XPGained float64

	// XPPerHour is XPGained scaled to an hourly rate.
	XPPerHour float64

	// Deaths is the number of death events in the window.
	Deaths int

	// Resists holds the per-element resist tallies, sorted by element.
	Resists []Resist

	// Events is the number of events in the window; Kinds breaks the
	// count down per kind.
	Events int
	Kinds  map[extract.Kind]int

	// ExtractionErrors is the session-lifetime count of events dropped
	// because a numeric payload failed to parse.
	ExtractionErrors uint64
}

// Tally accumulates stat events and answers windowed summaries.
//
// Exactly one producer calls Add; readers may call Summary and
// SummaryRange concurrently and observe either the pre- or post-update
// state atomically.
type Tally struct {
	mu          sync.RWMutex
	events      []extract.Event
	windowMark  time.Time
	extractErrs uint64
}

// New creates an empty Tally. The event history lives for the whole
// session; Reset only moves the active window mark.
func New() *Tally {
	return &Tally{}
}

// Add appends one event to the history. Events are expected in
// timestamp order, ties broken by sequence index.
func (t *Tally) Add(ev extract.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, ev)
}

// NoteExtractionError counts a dropped event.
func (t *Tally) NoteExtractionError() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.extractErrs++
}

// Reset discards the active window (future summaries cover only events
// from now on) but keeps the full event history, so explicit windows
// can still be recomputed without re-ingesting the log.
func (t *Tally) Reset() {
	t.ResetAt(time.Now())
}

// ResetAt is Reset with an explicit mark, for callers replaying
// history.
func (t *Tally) ResetAt(mark time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.windowMark = mark
}

// Events returns a copy of the event history, for re-extraction or
// explicit recomputation by callers.
func (t *Tally) Events() []extract.Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]extract.Event, len(t.events))
	copy(out, t.events)
	return out
}

// Summary summarizes the active window: the events observed since the
// last Reset, bounded by their first and last timestamps. Both
// endpoint events count; the duration is last minus first, matching a
// tally over an observed span of lines.
func (t *Tally) Summary() Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var start, end time.Time
	in := make([]*extract.Event, 0, len(t.events))
	for i := range t.events {
		ev := &t.events[i]
		if ev.Timestamp == nil {
			continue
		}
		ts := *ev.Timestamp
		if !t.windowMark.IsZero() && ts.Before(t.windowMark) {
			continue
		}
		if start.IsZero() || ts.Before(start) {
			start = ts
		}
		if ts.After(end) {
			end = ts
		}
		in = append(in, ev)
	}

	return t.fold(in, start, end, end.Sub(start))
}

// SummaryRange summarizes the explicit half-open window [start, end).
// The duration is end minus start regardless of where events fall
// inside it.
func (t *Tally) SummaryRange(start, end time.Time) Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	in := make([]*extract.Event, 0, len(t.events))
	for i := range t.events {
		ev := &t.events[i]
		if ev.Timestamp == nil {
			continue
		}
		ts := *ev.Timestamp
		if ts.Before(start) || !ts.Before(end) {
			continue
		}
		in = append(in, ev)
	}

	return t.fold(in, start, end, end.Sub(start))
}

// fold computes a Summary from the window's events. Callers hold the
// read lock.
func (t *Tally) fold(in []*extract.Event, start, end time.Time, window time.Duration) Summary {
	if window < 0 {
		window = 0
	}

	s := Summary{
		WindowStart:      start,
		WindowEnd:        end,
		Seconds:          window.Seconds(),
		Kinds:            make(map[extract.Kind]int),
		ExtractionErrors: t.extractErrs,
	}

	type resistAcc struct {
		resisted, taken int
		percentSum      float64
	}
	resists := make(map[string]*resistAcc)
	acc := func(element string) *resistAcc {
		if element == "" {
			element = "Physical"
		}
		r := resists[element]
		if r == nil {
			r = &resistAcc{}
			resists[element] = r
		}
		return r
	}

	for _, ev := range in {
		s.Events++
		s.Kinds[ev.Kind]++

		switch ev.Kind {
		case extract.KindDamageDealt:
			s.DamageDealt += ev.Amount
		case extract.KindDamageTaken:
			s.DamageTaken += ev.Amount
			acc(ev.Element).taken++
		case extract.KindResistCheck:
			r := acc(ev.Element)
			r.resisted++
			r.percentSum += ev.Amount
		case extract.KindHeal:
			s.Healing += ev.Amount
		case extract.KindXPGain:
			s.XPGained += ev.Amount
		case extract.KindDeath:
			s.Deaths++
		}
	}

	for element, r := range resists {
		incoming := r.resisted + r.taken
		res := Resist{
			Element:  element,
			Resisted: r.resisted,
			Incoming: incoming,
		}
		if incoming > 0 {
			res.Rate = float64(r.resisted) / float64(incoming) * 100
		}
		if r.resisted > 0 {
			res.MeanPercent = r.percentSum / float64(r.resisted)
		}
		s.Resists = append(s.Resists, res)
	}
	sort.Slice(s.Resists, func(i, j int) bool { return s.Resists[i].Element < s.Resists[j].Element })

	if window < minWindow {
		s.Insufficient = true
		return s
	}
	s.DPS = s.DamageDealt / s.Seconds
	s.XPPerHour = s.XPGained / s.Seconds * 3600
	return s
}
