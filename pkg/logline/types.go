// Package logline provides chat-log tokenization and log file discovery.
package logline

import "time"

// Line represents a single physical log line with extracted metadata.
// Lines are immutable once created.
type Line struct {
	// Seq is the monotonic sequence index assigned at ingestion.
	Seq uint64

	// Raw is the original line content without the trailing newline.
	Raw string

	// Message is the line body with the leading bracketed timestamp
	// (and any relayed secondary timestamp) stripped.
	Message string

	// Timestamp is the parsed timestamp, or nil when the line carries
	// no recognizable timestamp. Untimestamped lines are still emitted
	// so search can find them, but windowed aggregation skips them.
	Timestamp *time.Time

	// Offset is the byte offset of the line start in its source file.
	Offset int64

	// Source is the file path this line came from.
	Source string
}

// LogFile describes one discovered chat-log file.
type LogFile struct {
	// Path is the absolute or caller-relative file path.
	Path string

	// Avatar is the avatar name embedded in the file name.
	Avatar string

	// Date is the log date embedded in the file name (midnight, local).
	Date time.Time
}
