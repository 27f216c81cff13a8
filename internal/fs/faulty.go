package fs

import (
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrInjected is returned by faults without their own error.
var ErrInjected = errors.New("fs: injected fault")

// Fault describes how files matched by a rule fail.
type Fault struct {
	// WriteLimit fails the write that would pass this many bytes.
	// Negative disables it.
	WriteLimit int64
	Sync       bool
	Close      bool
	Rename     bool
	Err        error
}

// NoFault lets every operation through.
var NoFault = Fault{WriteLimit: -1}

func (f Fault) error() error {
	if f.Err != nil {
		return f.Err
	}
	return ErrInjected
}

type rule struct {
	substr string
	fault  Fault
}

// FaultyFS wraps a FileSystem and fails operations on matching names.
// The last added rule whose substring occurs in a name applies.
type FaultyFS struct {
	fsys FileSystem

	mu    sync.Mutex
	rules []rule
	base  Fault

	injected atomic.Int64
}

// NewFaultyFS wraps fsys, or OS when fsys is nil.
func NewFaultyFS(fsys FileSystem) *FaultyFS {
	if fsys == nil {
		fsys = OS
	}
	return &FaultyFS{fsys: fsys, base: NoFault}
}

// Fail applies fault to names containing substr.
func (f *FaultyFS) Fail(substr string, fault Fault) {
	f.mu.Lock()
	f.rules = append(f.rules, rule{substr: substr, fault: fault})
	f.mu.Unlock()
}

// FailAll applies fault to names no rule matches.
func (f *FaultyFS) FailAll(fault Fault) {
	f.mu.Lock()
	f.base = fault
	f.mu.Unlock()
}

// Injected returns how many faults fired so far.
func (f *FaultyFS) Injected() int { return int(f.injected.Load()) }

func (f *FaultyFS) lookup(name string) Fault {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.rules) - 1; i >= 0; i-- {
		if strings.Contains(name, f.rules[i].substr) {
			return f.rules[i].fault
		}
	}
	return f.base
}

func (f *FaultyFS) inject(fault Fault) error {
	f.injected.Add(1)
	return fault.error()
}

func (f *FaultyFS) Create(name string, perm os.FileMode) (File, error) {
	file, err := f.fsys.Create(name, perm)
	if err != nil {
		return nil, err
	}
	return &faultyFile{File: file, owner: f, fault: f.lookup(name)}, nil
}

func (f *FaultyFS) Rename(oldpath, newpath string) error {
	if fault := f.lookup(oldpath); fault.Rename {
		return f.inject(fault)
	}
	return f.fsys.Rename(oldpath, newpath)
}

func (f *FaultyFS) Remove(name string) error { return f.fsys.Remove(name) }

func (f *FaultyFS) Exists(name string) (bool, error) { return f.fsys.Exists(name) }

type faultyFile struct {
	File
	owner   *FaultyFS
	fault   Fault
	written int64
}

func (ff *faultyFile) Write(p []byte) (int, error) {
	if ff.fault.WriteLimit >= 0 && ff.written+int64(len(p)) > ff.fault.WriteLimit {
		return 0, ff.owner.inject(ff.fault)
	}
	n, err := ff.File.Write(p)
	ff.written += int64(n)
	return n, err
}

func (ff *faultyFile) Sync() error {
	if ff.fault.Sync {
		return ff.owner.inject(ff.fault)
	}
	return ff.File.Sync()
}

func (ff *faultyFile) Close() error {
	err := ff.File.Close()
	if ff.fault.Close {
		return ff.owner.inject(ff.fault)
	}
	return err
}
