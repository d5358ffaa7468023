// Package stats collects the snapshots the in-game /stats command
// writes into the chat log and derives views over them.
package stats

import (
	"strings"
	"sync"
	"time"

	"chronicler/pkg/extract"
	"chronicler/pkg/logline"
)

// snapshotKey marks a /stats dump. The leading space matches the
// separator after the timestamp bracket, so ordinary chat mentioning
// the word does not trigger.
const snapshotKey = " AdventurerLevel: "

// Pair is one name/value stat.
type Pair struct {
	Name  string
	Value float64
}

// Snapshot is one /stats dump: the marker line plus the unbracketed
// continuation lines that follow it.
type Snapshot struct {
	Timestamp time.Time
	Text      string
}

// Pairs parses the snapshot into name/value pairs. The dump is a
// whitespace-separated stream of "Name: value" tokens; parsing stops
// at the first token pair that does not fit, matching the dump's
// trailing free-form text.
func (s *Snapshot) Pairs() []Pair {
	fields := strings.Fields(s.Text)
	var pairs []Pair
	for i := 0; i+1 < len(fields); i += 2 {
		name, ok := strings.CutSuffix(fields[i], ":")
		if !ok {
			break
		}
		value, err := extract.ParseAmount(fields[i+1])
		if err != nil {
			break
		}
		pairs = append(pairs, Pair{Name: name, Value: value})
	}
	return pairs
}

// Value returns a single named stat.
func (s *Snapshot) Value(name string) (float64, bool) {
	for _, p := range s.Pairs() {
		if p.Name == name {
			return p.Value, true
		}
	}
	return 0, false
}

// Filter returns the pairs whose names match the expression.
func Filter(pairs []Pair, match func(name string) bool) []Pair {
	var out []Pair
	for _, p := range pairs {
		if match(p.Name) {
			out = append(out, p)
		}
	}
	return out
}

// Reader accumulates snapshots from ingested lines. A dump can span
// poll boundaries, so the reader keeps the open snapshot until a
// bracketed line closes it. Feed and the read methods may be called
// from different goroutines.
type Reader struct {
	mu    sync.Mutex
	snaps []Snapshot
	open  bool
}

// NewReader returns an empty reader.
func NewReader() *Reader {
	return &Reader{}
}

// Feed consumes ingested lines in order.
func (r *Reader) Feed(lines ...logline.Line) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, line := range lines {
		if strings.HasPrefix(line.Raw, "[") {
			r.open = false
			if line.Timestamp != nil && strings.Contains(line.Raw, snapshotKey) {
				r.snaps = append(r.snaps, Snapshot{
					Timestamp: *line.Timestamp,
					Text:      line.Message,
				})
				r.open = true
			}
			continue
		}
		if r.open {
			s := &r.snaps[len(r.snaps)-1]
			s.Text += "\n" + line.Raw
		}
	}
}

// Snapshots returns all collected snapshots in log order.
func (r *Reader) Snapshots() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Snapshot(nil), r.snaps...)
}

// Latest returns the newest snapshot at or before the given time, or
// the newest overall when before is the zero time. Nil when none
// qualifies.
func (r *Reader) Latest(before time.Time) *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.snaps) - 1; i >= 0; i-- {
		if before.IsZero() || !r.snaps[i].Timestamp.After(before) {
			s := r.snaps[i]
			return &s
		}
	}
	return nil
}

// Parse collects the snapshots of a fully tokenized log slice.
func Parse(lines []logline.Line) []Snapshot {
	r := NewReader()
	r.Feed(lines...)
	return r.Snapshots()
}
