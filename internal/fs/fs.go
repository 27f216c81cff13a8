package fs

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// TempSuffix marks a container that is still being written.
const TempSuffix = ".tmp"

// TempPath returns the staging name of path.
func TempPath(path string) string { return path + TempSuffix }

// IsTemp reports whether name is a staging file.
func IsTemp(name string) bool { return strings.HasSuffix(name, TempSuffix) }

// File is a container file open for writing.
type File interface {
	io.WriteCloser
	Sync() error
}

// FileSystem holds the operations used to stage and publish containers.
type FileSystem interface {
	// Create truncates or creates name for writing. Missing parent
	// directories are created.
	Create(name string, perm os.FileMode) (File, error)
	Rename(oldpath, newpath string) error
	// Remove deletes name. A missing file is not an error.
	Remove(name string) error
	Exists(name string) (bool, error)
}

type osFS struct{}

// OS is the local file system.
var OS FileSystem = osFS{}

func (osFS) Create(name string, perm os.FileMode) (File, error) {
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
}

func (osFS) Rename(oldpath, newpath string) error { return os.Rename(oldpath, newpath) }

func (osFS) Remove(name string) error {
	if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (osFS) Exists(name string) (bool, error) {
	_, err := os.Stat(name)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}
