package savefile

import (
	"os"
	"path/filepath"
)

// Encode returns the save bytes. For an unmodified tree this is the
// exact input; edits have already been spliced into the arena, so
// encoding is a copy either way.
func (t *Tree) Encode() []byte {
	return append([]byte(nil), t.arena...)
}

// EncodeFile writes the save to path atomically: the bytes go to a
// temp file in the same directory, are synced, and then renamed over
// the target. On any failure the target keeps its previous content.
func (t *Tree) EncodeFile(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".save-*.tmp")
	if err != nil {
		return &EncodeError{Path: path, Err: err}
	}
	tmpName := tmp.Name()

	cleanup := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return &EncodeError{Path: path, Err: err}
	}

	if _, err := tmp.Write(t.arena); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &EncodeError{Path: path, Err: err}
	}

	// Carry over the original file mode when the target exists.
	if fi, err := os.Stat(path); err == nil {
		os.Chmod(tmpName, fi.Mode())
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &EncodeError{Path: path, Err: err}
	}
	return nil
}
