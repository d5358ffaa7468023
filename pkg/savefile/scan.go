package savefile

import (
	"fmt"
	"strconv"
)

// Kind tags a JSON node in a record body.
type Kind uint8

const (
	KindObject Kind = iota
	KindArray
	KindString
	KindNumber
	KindBool
	KindNull
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindNull:
		return "null"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Node is one JSON value with its exact byte extent in the arena.
// Values are never re-serialized; edits splice over a node's span and
// everything outside stays byte-identical.
type Node struct {
	Kind    Kind
	Start   int // absolute arena offset of the first byte
	End     int // offset one past the last byte
	Members []Member // object members in file order
	Elems   []*Node  // array elements in file order
}

// Member is an object member. KeyStart marks the opening quote of the
// key, so a member's full extent is [KeyStart, Val.End).
type Member struct {
	Key      string
	KeyStart int
	Val      *Node
}

// Member returns the named member's node, or nil.
func (n *Node) Member(key string) *Node {
	for i := range n.Members {
		if n.Members[i].Key == key {
			return n.Members[i].Val
		}
	}
	return nil
}

// jsonScanner walks JSON bytes recording spans. Offsets are absolute:
// base is added to every recorded position so node spans index the
// surrounding arena rather than the record body.
type jsonScanner struct {
	data []byte
	pos  int
	base int
}

func (s *jsonScanner) errf(format string, args ...any) *DecodeError {
	return &DecodeError{
		Offset: s.base + s.pos,
		Reason: fmt.Sprintf(format, args...),
	}
}

func (s *jsonScanner) skipSpace() {
	for s.pos < len(s.data) {
		switch s.data[s.pos] {
		case ' ', '\t', '\r', '\n':
			s.pos++
		default:
			return
		}
	}
}

func (s *jsonScanner) peek() (byte, bool) {
	if s.pos >= len(s.data) {
		return 0, false
	}
	return s.data[s.pos], true
}

// scanValue parses one JSON value starting at the current position.
func (s *jsonScanner) scanValue() (*Node, error) {
	s.skipSpace()
	c, ok := s.peek()
	if !ok {
		return nil, s.errf("unexpected end of record")
	}

	switch {
	case c == '{':
		return s.scanObject()
	case c == '[':
		return s.scanArray()
	case c == '"':
		start := s.pos
		if _, err := s.scanString(); err != nil {
			return nil, err
		}
		return &Node{Kind: KindString, Start: s.base + start, End: s.base + s.pos}, nil
	case c == '-' || (c >= '0' && c <= '9'):
		return s.scanNumber()
	case c == 't':
		return s.scanLiteral("true", KindBool)
	case c == 'f':
		return s.scanLiteral("false", KindBool)
	case c == 'n':
		return s.scanLiteral("null", KindNull)
	}
	return nil, s.errf("unexpected character %q", c)
}

func (s *jsonScanner) scanObject() (*Node, error) {
	n := &Node{Kind: KindObject, Start: s.base + s.pos}
	s.pos++ // '{'
	s.skipSpace()
	if c, ok := s.peek(); ok && c == '}' {
		s.pos++
		n.End = s.base + s.pos
		return n, nil
	}
	for {
		s.skipSpace()
		keyStart := s.pos
		if c, ok := s.peek(); !ok || c != '"' {
			return nil, s.errf("expected object key")
		}
		key, err := s.scanString()
		if err != nil {
			return nil, err
		}
		s.skipSpace()
		if c, ok := s.peek(); !ok || c != ':' {
			return nil, s.errf("expected ':' after key %q", key)
		}
		s.pos++
		val, err := s.scanValue()
		if err != nil {
			return nil, err
		}
		n.Members = append(n.Members, Member{Key: key, KeyStart: s.base + keyStart, Val: val})

		s.skipSpace()
		c, ok := s.peek()
		if !ok {
			return nil, s.errf("unterminated object")
		}
		switch c {
		case ',':
			s.pos++
		case '}':
			s.pos++
			n.End = s.base + s.pos
			return n, nil
		default:
			return nil, s.errf("expected ',' or '}' in object, got %q", c)
		}
	}
}

func (s *jsonScanner) scanArray() (*Node, error) {
	n := &Node{Kind: KindArray, Start: s.base + s.pos}
	s.pos++ // '['
	s.skipSpace()
	if c, ok := s.peek(); ok && c == ']' {
		s.pos++
		n.End = s.base + s.pos
		return n, nil
	}
	for {
		el, err := s.scanValue()
		if err != nil {
			return nil, err
		}
		n.Elems = append(n.Elems, el)

		s.skipSpace()
		c, ok := s.peek()
		if !ok {
			return nil, s.errf("unterminated array")
		}
		switch c {
		case ',':
			s.pos++
		case ']':
			s.pos++
			n.End = s.base + s.pos
			return n, nil
		default:
			return nil, s.errf("expected ',' or ']' in array, got %q", c)
		}
	}
}

// scanString consumes a quoted string and returns its decoded value.
func (s *jsonScanner) scanString() (string, error) {
	s.pos++ // opening quote
	start := s.pos
	escaped := false
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if c == '\\' {
			escaped = true
			s.pos += 2
			continue
		}
		if c == '"' {
			raw := s.data[start:s.pos]
			s.pos++
			if !escaped {
				return string(raw), nil
			}
			var out string
			if err := unquote(raw, &out); err != nil {
				return "", s.errf("bad string escape: %v", err)
			}
			return out, nil
		}
		s.pos++
	}
	return "", s.errf("unterminated string")
}

// unquote decodes JSON string escapes. Surrogate pairs are rare in
// save files but handled.
func unquote(raw []byte, out *string) error {
	buf := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); {
		c := raw[i]
		if c != '\\' {
			buf = append(buf, c)
			i++
			continue
		}
		if i+1 >= len(raw) {
			return fmt.Errorf("dangling backslash")
		}
		switch raw[i+1] {
		case '"', '\\', '/':
			buf = append(buf, raw[i+1])
			i += 2
		case 'b':
			buf = append(buf, '\b')
			i += 2
		case 'f':
			buf = append(buf, '\f')
			i += 2
		case 'n':
			buf = append(buf, '\n')
			i += 2
		case 'r':
			buf = append(buf, '\r')
			i += 2
		case 't':
			buf = append(buf, '\t')
			i += 2
		case 'u':
			if i+6 > len(raw) {
				return fmt.Errorf("truncated \\u escape")
			}
			v, err := strconv.ParseUint(string(raw[i+2:i+6]), 16, 32)
			if err != nil {
				return fmt.Errorf("bad \\u escape: %v", err)
			}
			r := rune(v)
			i += 6
			if r >= 0xD800 && r < 0xDC00 && i+6 <= len(raw) && raw[i] == '\\' && raw[i+1] == 'u' {
				if lo, err := strconv.ParseUint(string(raw[i+2:i+6]), 16, 32); err == nil {
					r = 0x10000 + (r-0xD800)<<10 + (rune(lo) - 0xDC00)
					i += 6
				}
			}
			buf = append(buf, []byte(string(r))...)
		default:
			return fmt.Errorf("unknown escape \\%c", raw[i+1])
		}
	}
	*out = string(buf)
	return nil
}

func (s *jsonScanner) scanNumber() (*Node, error) {
	start := s.pos
	if c, ok := s.peek(); ok && c == '-' {
		s.pos++
	}
	digits := 0
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if (c >= '0' && c <= '9') || c == '.' || c == 'e' || c == 'E' || c == '+' || c == '-' {
			if c >= '0' && c <= '9' {
				digits++
			}
			s.pos++
			continue
		}
		break
	}
	if digits == 0 {
		return nil, s.errf("malformed number")
	}
	return &Node{Kind: KindNumber, Start: s.base + start, End: s.base + s.pos}, nil
}

func (s *jsonScanner) scanLiteral(lit string, kind Kind) (*Node, error) {
	if s.pos+len(lit) > len(s.data) || string(s.data[s.pos:s.pos+len(lit)]) != lit {
		return nil, s.errf("malformed literal")
	}
	n := &Node{Kind: kind, Start: s.base + s.pos, End: s.base + s.pos + len(lit)}
	s.pos += len(lit)
	return n, nil
}

// scanRecordBody parses a whole record body as a single JSON value,
// requiring nothing but whitespace after it.
func scanRecordBody(arena []byte, body span) (*Node, error) {
	s := &jsonScanner{data: arena[body.start:body.end], base: body.start}
	root, err := s.scanValue()
	if err != nil {
		return nil, err
	}
	s.skipSpace()
	if s.pos != len(s.data) {
		return nil, s.errf("trailing data after record value")
	}
	return root, nil
}
