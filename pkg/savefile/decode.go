// Package savefile decodes, edits and re-encodes offline game saves.
//
// A save is a text envelope of collections and records, each record
// body a JSON object:
//
//	<save version="2" size="1234">
//	<collection name="CharacterSheet">
//	<record Id="abc...">{"ae":100,...}</record>
//	</collection>
//	</save>
//
// The decoder keeps the original bytes as an arena and builds a span
// tree over them. Edits splice value bytes in place, so unknown
// collections, records and JSON fields round-trip byte-identically.
// The header version selects a field layout; unknown versions are
// rejected with ErrUnsupportedVersion rather than guessed at.
package savefile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
)

const (
	collectionOpen  = `<collection name="`
	collectionClose = `</collection>`
	recordOpen      = `<record Id="`
	recordClose     = `</record>`
	saveClose       = `</save>`
)

var headerPattern = regexp.MustCompile(`^<save version="(\d+)"(?: size="(\d+)")?>\r?\n`)

// Decode parses a save. It is fatal per file: malformed input or an
// unsupported version returns an error and no tree.
func Decode(data []byte) (*Tree, error) {
	m := headerPattern.FindSubmatchIndex(data)
	if m == nil {
		return nil, &DecodeError{Offset: 0, Reason: "missing or malformed save header"}
	}
	version, err := strconv.Atoi(string(data[m[2]:m[3]]))
	if err != nil {
		return nil, &DecodeError{Offset: m[2], Reason: "bad version number", Err: err}
	}
	lay, ok := layoutFor(version)
	if !ok {
		return nil, &DecodeError{
			Offset: m[2],
			Reason: fmt.Sprintf("version %d", version),
			Err:    ErrUnsupportedVersion,
		}
	}

	t := &Tree{
		arena:     data,
		version:   version,
		layout:    lay,
		bodyStart: m[1],
	}

	hasSize := m[4] >= 0
	if lay.sizeAttr != hasSize {
		return nil, &DecodeError{
			Offset: 0,
			Reason: fmt.Sprintf("version %d header size attribute mismatch", version),
		}
	}
	if hasSize {
		t.sizeSpan = span{m[4], m[5]}
		declared, err := strconv.Atoi(string(data[m[4]:m[5]]))
		if err != nil {
			return nil, &DecodeError{Offset: m[4], Reason: "bad size attribute", Err: err}
		}
		if got := len(data) - t.bodyStart; declared != got {
			return nil, &DecodeError{
				Offset: m[4],
				Reason: fmt.Sprintf("size attribute %d does not match body length %d", declared, got),
			}
		}
	}

	pos := t.bodyStart
	for {
		rest := data[pos:]
		ci := bytes.Index(rest, []byte(collectionOpen))
		si := bytes.Index(rest, []byte(saveClose))
		if si < 0 {
			return nil, &DecodeError{Offset: pos, Reason: "missing " + saveClose}
		}
		if ci < 0 || ci > si {
			// Bytes between the last collection and the close tag, and
			// anything after it, stay opaque in the arena.
			break
		}
		col, next, err := parseCollection(data, pos+ci)
		if err != nil {
			return nil, err
		}
		t.Collections = append(t.Collections, col)
		pos = next
	}

	return t, nil
}

// DecodeFile reads and decodes a save file.
func DecodeFile(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Offset: -1, Reason: "read file", Err: err}
	}
	t, err := Decode(data)
	if err != nil {
		var derr *DecodeError
		if errors.As(err, &derr) {
			derr.Path = path
		}
		return nil, err
	}
	return t, nil
}

// parseCollection parses one collection block starting at the opening
// tag and returns it with the offset just past the closing tag.
func parseCollection(data []byte, start int) (*Collection, int, error) {
	pos := start + len(collectionOpen)
	nameEnd := bytes.IndexByte(data[pos:], '"')
	if nameEnd < 0 {
		return nil, 0, &DecodeError{Offset: pos, Reason: "unterminated collection name"}
	}
	col := &Collection{Name: string(data[pos : pos+nameEnd])}
	pos += nameEnd + 1
	if pos >= len(data) || data[pos] != '>' {
		return nil, 0, &DecodeError{Offset: pos, Reason: "malformed collection tag"}
	}
	pos++

	for {
		rest := data[pos:]
		ri := bytes.Index(rest, []byte(recordOpen))
		ci := bytes.Index(rest, []byte(collectionClose))
		if ci < 0 {
			return nil, 0, &DecodeError{Offset: pos, Reason: "unterminated collection " + col.Name}
		}
		if ri < 0 || ri > ci {
			return col, pos + ci + len(collectionClose), nil
		}
		rec, next, err := parseRecord(data, pos+ri)
		if err != nil {
			return nil, 0, err
		}
		col.Records = append(col.Records, rec)
		pos = next
	}
}

// parseRecord parses one record starting at the opening tag.
func parseRecord(data []byte, start int) (*Record, int, error) {
	pos := start + len(recordOpen)
	idEnd := bytes.IndexByte(data[pos:], '"')
	if idEnd < 0 {
		return nil, 0, &DecodeError{Offset: pos, Reason: "unterminated record id"}
	}
	rec := &Record{ID: string(data[pos : pos+idEnd])}
	pos += idEnd + 1
	if pos >= len(data) || data[pos] != '>' {
		return nil, 0, &DecodeError{Offset: pos, Reason: "malformed record tag"}
	}
	pos++

	bodyEnd := bytes.Index(data[pos:], []byte(recordClose))
	if bodyEnd < 0 {
		return nil, 0, &DecodeError{Offset: pos, Reason: "unterminated record " + rec.ID}
	}
	rec.Body = span{start: pos, end: pos + bodyEnd}

	root, err := scanRecordBody(data, rec.Body)
	if err != nil {
		var derr *DecodeError
		if errors.As(err, &derr) {
			derr.Reason = fmt.Sprintf("record %s: %s", rec.ID, derr.Reason)
		}
		return nil, 0, err
	}
	rec.Root = root

	return rec, pos + bodyEnd + len(recordClose), nil
}
