package savefile

import (
	"strconv"
	"strings"
)

// span is a half-open byte range into the arena.
type span struct {
	start, end int
}

func (s span) len() int {
	return s.end - s.start
}

// Tree is a decoded save. The arena holds the original file bytes;
// collections, records and JSON nodes reference it by span, so
// everything the layout does not recognize survives untouched. A tree
// belongs to one editing session; it is not safe for concurrent use.
type Tree struct {
	arena   []byte
	version int
	layout  *layout

	sizeSpan  span // digits of the header size attribute (version 2)
	bodyStart int  // first byte after the header line

	Collections []*Collection
}

// Collection groups the records of one `<collection>` block.
type Collection struct {
	Name    string
	Records []*Record
}

// Record is one `<record>` entry: an id and a JSON body.
type Record struct {
	ID   string
	Body span  // the JSON bytes between the record tags
	Root *Node // span tree over Body
}

// Version returns the decoded save version.
func (t *Tree) Version() int {
	return t.version
}

// Collection returns the first collection with the given name, or nil.
func (t *Tree) Collection(name string) *Collection {
	for _, c := range t.Collections {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Record returns the record with the given id, or nil.
func (c *Collection) Record(id string) *Record {
	if c == nil {
		return nil
	}
	for _, r := range c.Records {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// Lookup resolves a slash path of the form Collection/RecordId/key...
// to a JSON node. Array elements address by decimal index. It returns
// nil when any step is missing.
func (t *Tree) Lookup(path string) *Node {
	segs := strings.Split(path, "/")
	if len(segs) < 2 {
		return nil
	}
	rec := t.Collection(segs[0]).Record(segs[1])
	if rec == nil {
		return nil
	}
	return walk(rec.Root, segs[2:])
}

func walk(n *Node, segs []string) *Node {
	for _, seg := range segs {
		if n == nil {
			return nil
		}
		switch n.Kind {
		case KindObject:
			n = n.Member(seg)
		case KindArray:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(n.Elems) {
				return nil
			}
			n = n.Elems[idx]
		default:
			return nil
		}
	}
	return n
}

// Raw returns a node's exact bytes.
func (t *Tree) Raw(n *Node) []byte {
	return t.arena[n.Start:n.End]
}

// Str returns a string node's decoded value.
func (t *Tree) Str(n *Node) (string, bool) {
	if n == nil || n.Kind != KindString {
		return "", false
	}
	raw := t.arena[n.Start+1 : n.End-1]
	var out string
	if err := unquote(raw, &out); err != nil {
		return "", false
	}
	return out, true
}

// Int returns an integer value. The game stores some counters as
// numeric strings, so both forms are accepted.
func (t *Tree) Int(n *Node) (int64, bool) {
	if n == nil {
		return 0, false
	}
	switch n.Kind {
	case KindNumber:
		v, err := strconv.ParseInt(string(t.Raw(n)), 10, 64)
		if err != nil {
			// Integral floats like 1.23e4 still count.
			f, ferr := strconv.ParseFloat(string(t.Raw(n)), 64)
			if ferr != nil || f != float64(int64(f)) {
				return 0, false
			}
			return int64(f), true
		}
		return v, true
	case KindString:
		s, ok := t.Str(n)
		if !ok {
			return 0, false
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	return 0, false
}

// Float returns a numeric value as float64.
func (t *Tree) Float(n *Node) (float64, bool) {
	if n == nil || n.Kind != KindNumber {
		return 0, false
	}
	v, err := strconv.ParseFloat(string(t.Raw(n)), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
