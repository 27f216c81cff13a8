package blobstore

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	yfs "github.com/hupe1980/yocto/internal/fs"
	"github.com/hupe1980/yocto/internal/mmap"
)

// LocalStore implements BlobStore using the local file system.
type LocalStore struct {
	root string
	fsys yfs.FileSystem
	mu   sync.Mutex // serializes PutIfNotExists
}

// NewLocalStore creates a new LocalStore rooted at the given directory.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root, fsys: yfs.OS}
}

func (s *LocalStore) path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

// Open maps a blob into memory.
func (s *LocalStore) Open(ctx context.Context, name string) (Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := mmap.Open(s.path(name))
	if err != nil {
		return nil, err
	}
	_ = m.Advise(mmap.Random)
	return &bytesBlob{data: m.Bytes(), close: m.Close}, nil
}

// Create starts writing a blob to a temporary file. Close publishes it.
func (s *LocalStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.path(name)
	f, err := s.fsys.Create(yfs.TempPath(path), 0o644)
	if err != nil {
		return nil, err
	}
	return &localWritableBlob{f: f, fsys: s.fsys, path: path}, nil
}

// Put writes a blob atomically.
func (s *LocalStore) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return yfs.WriteFileAtomic(s.fsys, s.path(name), 0o644, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// PutIfNotExists writes a blob unless one exists under name.
func (s *LocalStore) PutIfNotExists(ctx context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exists, err := s.fsys.Exists(s.path(name))
	if err != nil {
		return err
	}
	if exists {
		return ErrExists
	}
	return s.Put(ctx, name, data)
}

// Delete removes a blob.
func (s *LocalStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.fsys.Remove(s.path(name))
}

// List returns the names of finished blobs under prefix.
func (s *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || yfs.IsTemp(path) {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		if name := filepath.ToSlash(rel); strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	sort.Strings(names)
	return names, err
}

type localWritableBlob struct {
	f      yfs.File
	fsys   yfs.FileSystem
	path   string
	closed atomic.Bool
}

func (b *localWritableBlob) Write(p []byte) (int, error) {
	if b.closed.Load() {
		return 0, os.ErrClosed
	}
	return b.f.Write(p)
}

func (b *localWritableBlob) Sync() error { return b.f.Sync() }

func (b *localWritableBlob) Abort() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	_ = b.f.Close()
	return b.fsys.Remove(yfs.TempPath(b.path))
}

func (b *localWritableBlob) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return os.ErrClosed
	}
	tmp := yfs.TempPath(b.path)
	if err := yfs.Commit(b.fsys, b.f, tmp, b.path, nil); err != nil {
		return errors.Join(err, b.fsys.Remove(tmp))
	}
	return nil
}
