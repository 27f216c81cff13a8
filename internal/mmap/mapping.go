package mmap

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
)

var (
	// ErrClosed is returned by Advise after Close.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrTooLarge is returned for files that do not fit the address space.
	ErrTooLarge = errors.New("mmap: file too large to map")
)

// Advice tells the kernel how a container is about to be read.
type Advice int

const (
	// Normal drops any earlier advice.
	Normal Advice = iota
	// Sequential suits a full pass such as digest verification.
	Sequential
	// Random suits index lookups and payload reads of an open database.
	Random
	// WillNeed starts reading the whole file ahead.
	WillNeed
)

func (a Advice) String() string {
	switch a {
	case Normal:
		return "normal"
	case Sequential:
		return "sequential"
	case Random:
		return "random"
	case WillNeed:
		return "willneed"
	default:
		return fmt.Sprintf("Advice(%d)", int(a))
	}
}

// Mapping is a read-only view of a container file.
type Mapping struct {
	path string

	mu     sync.RWMutex
	data   []byte
	unmap  func([]byte) error
	closed bool
}

// Open maps path read-only. An empty file gives an empty mapping with no
// system mapping behind it; container parsing rejects it later.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	m := &Mapping{path: path}
	switch size := fi.Size(); {
	case size == 0:
		return m, nil
	case size > math.MaxInt:
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, path, size)
	default:
		if m.data, m.unmap, err = osMap(f, int(size)); err != nil {
			return nil, fmt.Errorf("mmap %s: %w", path, err)
		}
	}
	return m, nil
}

// Path returns the mapped file name.
func (m *Mapping) Path() string { return m.path }

// Bytes returns the mapped file. It is nil after Close.
func (m *Mapping) Bytes() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data
}

// Len returns the mapped size in bytes.
func (m *Mapping) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Advise passes a read pattern hint for the whole mapping.
func (m *Mapping) Advise(a Advice) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	if len(m.data) == 0 {
		return nil
	}
	return osAdvise(m.data, a)
}

// Close releases the mapping. Later calls do nothing.
func (m *Mapping) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	data := m.data
	m.data = nil
	if m.unmap == nil || data == nil {
		return nil
	}
	return m.unmap(data)
}
