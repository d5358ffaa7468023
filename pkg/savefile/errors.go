package savefile

import (
	"errors"
	"fmt"
)

// ErrUnsupportedVersion marks a save whose version has no known field
// layout. Decoding never falls back to guessing.
var ErrUnsupportedVersion = errors.New("unsupported save version")

// DecodeError reports a malformed save. Decoding is fatal per file;
// no partial tree is produced.
type DecodeError struct {
	Path   string // source file, empty for in-memory decodes
	Offset int    // byte offset of the failure where known, else -1
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	where := "save data"
	if e.Path != "" {
		where = e.Path
	}
	if e.Offset >= 0 {
		where = fmt.Sprintf("%s at byte %d", where, e.Offset)
	}
	if e.Err != nil {
		return fmt.Sprintf("decode %s: %s: %v", where, e.Reason, e.Err)
	}
	return fmt.Sprintf("decode %s: %s", where, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ValidationError rejects an edit transaction. The tree is unchanged
// when Apply returns one.
type ValidationError struct {
	Path   string // slash path of the offending edit
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("edit %s: %s", e.Path, e.Reason)
}

// EncodeError reports a failed file write. The target file keeps its
// previous content.
type EncodeError struct {
	Path string
	Err  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}
