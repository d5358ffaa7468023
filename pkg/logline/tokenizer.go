package logline

import (
	"bytes"
	"time"
)

// Tokenizer splits an append-only byte stream into Lines. It buffers a
// partial trailing line until its terminator arrives, so the emitted
// Lines are identical regardless of how the stream is chunked.
//
// A Tokenizer is restartable: constructing one from a previously
// recorded (offset, seq) pair and feeding bytes from that offset
// neither re-emits seen lines nor skips appended ones.
type Tokenizer struct {
	source   string
	fileDate time.Time
	offset   int64 // start of the buffered partial line
	seq      uint64
	partial  []byte
}

// NewTokenizer creates a Tokenizer for one source file. fileDate is the
// date half of the line timestamps (taken from the file name); pass the
// zero time when unknown, in which case lines carry no timestamp.
// startOffset and startSeq resume from a previously recorded cursor.
func NewTokenizer(source string, fileDate time.Time, startOffset int64, startSeq uint64) *Tokenizer {
	return &Tokenizer{
		source:   source,
		fileDate: fileDate,
		offset:   startOffset,
		seq:      startSeq,
	}
}

// Feed consumes a chunk appended to the source and returns the complete
// lines it finishes. A trailing fragment without a newline is buffered
// and re-attempted on the next Feed rather than emitted prematurely.
func (t *Tokenizer) Feed(chunk []byte) []Line {
	if len(chunk) == 0 {
		return nil
	}
	t.partial = append(t.partial, chunk...)

	var lines []Line
	for {
		nl := bytes.IndexByte(t.partial, '\n')
		if nl < 0 {
			break
		}

		raw := t.partial[:nl]
		// Log files written on Windows terminate lines with \r\n.
		raw = bytes.TrimSuffix(raw, []byte{'\r'})

		ts, msg := ExtractTimestamp(string(raw), t.fileDate)
		lines = append(lines, Line{
			Seq:       t.seq,
			Raw:       string(raw),
			Message:   msg,
			Timestamp: ts,
			Offset:    t.offset,
			Source:    t.source,
		})

		t.seq++
		t.offset += int64(nl + 1)
		t.partial = t.partial[nl+1:]
	}
	return lines
}

// Offset returns the resume cursor: the byte offset of the first byte
// not yet emitted as part of a complete line. Re-reading the file from
// this offset with a fresh Tokenizer continues without loss or
// duplication.
func (t *Tokenizer) Offset() int64 {
	return t.offset
}

// FeedPos returns the file position the next chunk should be read from:
// the resume offset plus any buffered partial bytes.
func (t *Tokenizer) FeedPos() int64 {
	return t.offset + int64(len(t.partial))
}

// Seq returns the sequence index the next emitted line will receive.
func (t *Tokenizer) Seq() uint64 {
	return t.seq
}

// Pending reports whether a partial line is buffered.
func (t *Tokenizer) Pending() bool {
	return len(t.partial) > 0
}
