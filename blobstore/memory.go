package blobstore

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
)

var errAborted = errors.New("blobstore: write aborted")

// MemoryStore keeps containers in process memory. Stored bytes are never
// modified after a write, so opened blobs share them and are Mappable.
// It is safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

var (
	_ BlobStore         = (*MemoryStore)(nil)
	_ ConditionalPutter = (*MemoryStore)(nil)
)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (m *MemoryStore) Open(ctx context.Context, name string) (Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	data, ok := m.blobs[name]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return &bytesBlob{data: data}, nil
}

// Create buffers writes and stores them on Close.
func (m *MemoryStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memoryWriter{store: m, name: name}, nil
}

func (m *MemoryStore) Put(_ context.Context, name string, data []byte) error {
	m.store(name, bytes.Clone(data), false)
	return nil
}

func (m *MemoryStore) PutIfNotExists(_ context.Context, name string, data []byte) error {
	if !m.store(name, bytes.Clone(data), true) {
		return ErrExists
	}
	return nil
}

// store sets name to data and reports whether it did. With exclusive set
// an existing blob is left alone.
func (m *MemoryStore) store(name string, data []byte, exclusive bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[name]; ok && exclusive {
		return false
	}
	m.blobs[name] = data
	return true
}

func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	delete(m.blobs, name)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var names []string
	for name := range m.blobs {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

type memoryWriter struct {
	store *MemoryStore
	name  string
	buf   bytes.Buffer
	done  bool
}

func (w *memoryWriter) Write(p []byte) (int, error) {
	if w.done {
		return 0, errAborted
	}
	return w.buf.Write(p)
}

func (w *memoryWriter) Sync() error { return nil }

func (w *memoryWriter) Close() error {
	if w.done {
		return errAborted
	}
	w.done = true
	w.store.store(w.name, bytes.Clone(w.buf.Bytes()), false)
	return nil
}

func (w *memoryWriter) Abort() error {
	w.done = true
	w.buf.Reset()
	return nil
}
