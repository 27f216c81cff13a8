package fs

import (
	"fmt"
	"io"
	"os"
)

// WriteFileAtomic writes path through fn and makes it visible only once fn,
// Sync and Close all succeeded. Readers observe either the old file or the
// complete new one. On failure the staging file is removed.
func WriteFileAtomic(fsys FileSystem, path string, perm os.FileMode, fn func(w io.Writer) error) (err error) {
	if fsys == nil {
		fsys = OS
	}
	tmp := TempPath(path)
	f, err := fsys.Create(tmp, perm)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = fsys.Remove(tmp)
		}
	}()
	return Commit(fsys, f, tmp, path, fn(f))
}

// Commit finishes a staged file. A non-nil prior error closes f and is
// returned unchanged. Otherwise f is synced, closed and renamed to path.
// The staging file is left for the caller to remove on error.
func Commit(fsys FileSystem, f File, tmp, path string, prior error) error {
	if prior != nil {
		_ = f.Close()
		return prior
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := fsys.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
