package savefile

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type editOp uint8

const (
	opSet editOp = iota
	opInsert
	opRemove
)

type edit struct {
	op    editOp
	path  string
	value any    // Set: value to marshal
	raw   []byte // Insert: pre-rendered JSON
}

// EditTransaction is an ordered list of field edits. Build one with
// Set, Insert and Remove, then hand it to Tree.Apply. Transactions
// validate as a unit: one bad edit rejects them all.
type EditTransaction struct {
	edits []edit
}

// NewTransaction returns an empty transaction.
func NewTransaction() *EditTransaction {
	return &EditTransaction{}
}

// Set replaces the value at a slash path (Collection/RecordId/key...).
// The value is rendered as JSON and validated against the layout's
// declared kind and range.
func (tx *EditTransaction) Set(path string, value any) {
	tx.edits = append(tx.edits, edit{op: opSet, path: path, value: value})
}

// Insert adds a new object member at a path whose final segment does
// not exist yet, with rawJSON as its value.
func (tx *EditTransaction) Insert(path string, rawJSON []byte) {
	tx.edits = append(tx.edits, edit{op: opInsert, path: path, raw: rawJSON})
}

// Remove deletes the object member at a path.
func (tx *EditTransaction) Remove(path string) {
	tx.edits = append(tx.edits, edit{op: opRemove, path: path})
}

// Len returns the number of queued edits.
func (tx *EditTransaction) Len() int {
	return len(tx.edits)
}

// splice is one byte replacement, computed during validation and
// applied only after every edit passed.
type splice struct {
	start, end int
	data       []byte
	order      int
}

// Apply validates the whole transaction against the current tree and
// then splices all edits into a fresh arena. On any ValidationError
// the tree is unchanged. Version 2 trees get their header size
// recomputed, and the span tree is re-derived from the new bytes.
func (t *Tree) Apply(tx *EditTransaction) error {
	var splices []splice
	for i, e := range tx.edits {
		sp, err := t.planEdit(e)
		if err != nil {
			return err
		}
		sp.order = i
		splices = append(splices, sp)
	}

	sort.SliceStable(splices, func(i, j int) bool {
		if splices[i].start != splices[j].start {
			return splices[i].start < splices[j].start
		}
		return splices[i].order < splices[j].order
	})
	for i := 1; i < len(splices); i++ {
		if splices[i-1].end > splices[i].start {
			return &ValidationError{
				Path:   tx.edits[splices[i].order].path,
				Reason: "conflicts with another edit in the same transaction",
			}
		}
	}

	arena := spliceAll(t.arena, splices)
	if t.layout.sizeAttr {
		size := strconv.Itoa(len(arena) - t.bodyStart)
		arena = spliceAll(arena, []splice{{start: t.sizeSpan.start, end: t.sizeSpan.end, data: []byte(size)}})
	}

	nt, err := Decode(arena)
	if err != nil {
		return fmt.Errorf("re-decode after edit: %w", err)
	}
	*t = *nt
	return nil
}

// planEdit validates one edit and computes its splice.
func (t *Tree) planEdit(e edit) (splice, error) {
	segs := strings.Split(e.path, "/")
	if len(segs) < 3 {
		return splice{}, &ValidationError{Path: e.path, Reason: "path must address a field inside a record"}
	}

	switch e.op {
	case opSet:
		node := t.resolve(segs)
		if node == nil {
			return splice{}, &ValidationError{Path: e.path, Reason: "no such field"}
		}
		data, err := json.Marshal(e.value)
		if err != nil {
			return splice{}, &ValidationError{Path: e.path, Reason: fmt.Sprintf("unencodable value: %v", err)}
		}
		if err := t.validateNew(e.path, segs, data); err != nil {
			return splice{}, err
		}
		return splice{start: node.Start, end: node.End, data: data}, nil

	case opInsert:
		parent := t.resolve(segs[:len(segs)-1])
		key := segs[len(segs)-1]
		if parent == nil {
			return splice{}, &ValidationError{Path: e.path, Reason: "no such parent object"}
		}
		if parent.Kind != KindObject {
			return splice{}, &ValidationError{Path: e.path, Reason: "parent is not an object"}
		}
		if parent.Member(key) != nil {
			return splice{}, &ValidationError{Path: e.path, Reason: "field already exists"}
		}
		if strings.ContainsAny(key, "\"\\") {
			return splice{}, &ValidationError{Path: e.path, Reason: "invalid characters in key"}
		}
		if err := t.validateNew(e.path, segs, e.raw); err != nil {
			return splice{}, err
		}
		rendered := append([]byte(nil), '"')
		rendered = append(rendered, []byte(key)...)
		rendered = append(rendered, '"', ':')
		rendered = append(rendered, e.raw...)
		if n := len(parent.Members); n > 0 {
			at := parent.Members[n-1].Val.End
			return splice{start: at, end: at, data: append([]byte{','}, rendered...)}, nil
		}
		at := parent.End - 1
		return splice{start: at, end: at, data: rendered}, nil

	case opRemove:
		parent := t.resolve(segs[:len(segs)-1])
		if parent == nil || parent.Kind != KindObject {
			return splice{}, &ValidationError{Path: e.path, Reason: "no such field"}
		}
		if t.layout.field(segs) == nil {
			return splice{}, &ValidationError{
				Path:   e.path,
				Reason: fmt.Sprintf("not recognized by the version %d layout", t.version),
			}
		}
		key := segs[len(segs)-1]
		idx := -1
		for i := range parent.Members {
			if parent.Members[i].Key == key {
				idx = i
				break
			}
		}
		if idx < 0 {
			return splice{}, &ValidationError{Path: e.path, Reason: "no such field"}
		}
		m := parent.Members[idx]
		switch {
		case len(parent.Members) == 1:
			return splice{start: m.KeyStart, end: m.Val.End}, nil
		case idx == 0:
			// Take the following comma and whitespace instead.
			return splice{start: m.KeyStart, end: parent.Members[1].KeyStart}, nil
		default:
			// Take the preceding comma and whitespace.
			return splice{start: parent.Members[idx-1].Val.End, end: m.Val.End}, nil
		}
	}
	return splice{}, &ValidationError{Path: e.path, Reason: "unknown edit operation"}
}

// resolve looks up a node by pre-split path segments.
func (t *Tree) resolve(segs []string) *Node {
	if len(segs) < 2 {
		return nil
	}
	rec := t.Collection(segs[0]).Record(segs[1])
	if rec == nil {
		return nil
	}
	return walk(rec.Root, segs[2:])
}

// validateNew checks rendered value bytes against the layout: the
// path must be a recognized field and the value must satisfy its
// declared kind, integrality and range. Object values recurse so an
// inserted skill row is checked member by member.
func (t *Tree) validateNew(path string, segs []string, data []byte) error {
	s := &jsonScanner{data: data}
	n, err := s.scanValue()
	if err != nil {
		return &ValidationError{Path: path, Reason: "value is not valid JSON"}
	}
	s.skipSpace()
	if s.pos != len(data) {
		return &ValidationError{Path: path, Reason: "trailing data after value"}
	}
	return t.validateNode(path, segs, n, data)
}

func (t *Tree) validateNode(path string, segs []string, n *Node, data []byte) error {
	spec := t.layout.field(segs)
	if spec == nil {
		return &ValidationError{
			Path:   strings.Join(segs, "/"),
			Reason: fmt.Sprintf("not recognized by the version %d layout", t.version),
		}
	}
	if n.Kind != spec.Kind {
		return &ValidationError{
			Path:   strings.Join(segs, "/"),
			Reason: fmt.Sprintf("expected %s, got %s", spec.Kind, n.Kind),
		}
	}

	switch n.Kind {
	case KindNumber:
		raw := string(data[n.Start:n.End])
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return &ValidationError{Path: path, Reason: "unparseable number"}
		}
		if spec.Integer && f != float64(int64(f)) {
			return &ValidationError{
				Path:   strings.Join(segs, "/"),
				Reason: fmt.Sprintf("%s must be an integer", raw),
			}
		}
		if f < spec.Min || f > spec.Max {
			return &ValidationError{
				Path:   strings.Join(segs, "/"),
				Reason: fmt.Sprintf("%s out of range [%v, %v]", raw, spec.Min, spec.Max),
			}
		}
	case KindObject:
		for _, m := range n.Members {
			if err := t.validateNode(path, append(segs[:len(segs):len(segs)], m.Key), m.Val, data); err != nil {
				return err
			}
		}
	}
	return nil
}

// spliceAll builds a new byte slice with all replacements applied.
// Splices must be sorted and non-overlapping.
func spliceAll(data []byte, splices []splice) []byte {
	grow := 0
	for _, sp := range splices {
		grow += len(sp.data) - (sp.end - sp.start)
	}
	out := make([]byte, 0, len(data)+grow)
	pos := 0
	for _, sp := range splices {
		out = append(out, data[pos:sp.start]...)
		out = append(out, sp.data...)
		pos = sp.end
	}
	return append(out, data[pos:]...)
}
