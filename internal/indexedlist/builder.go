package indexedlist

import (
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/yocto/internal/buf"
	"github.com/hupe1980/yocto/internal/errs"
)

// Builder accumulates blobs in insertion order and encodes them as a FIXED
// or VARIABLE list.
//
// FIXED layout:    elementSize int32 | count int32 | data
// VARIABLE layout: count int32 | offsets int64[count+1] | data
type Builder struct {
	fixed    bool
	elemSize int
	elems    [][]byte
	dataSize int64
}

// NewFixed returns a builder whose elements must all share the length of the
// first element added.
func NewFixed() *Builder {
	return &Builder{fixed: true, elemSize: -1}
}

// NewVariable returns a builder accepting elements of any length.
func NewVariable() *Builder {
	return &Builder{}
}

// Fixed reports whether the builder uses the FIXED encoding.
func (b *Builder) Fixed() bool { return b.fixed }

// Len returns the number of elements added.
func (b *Builder) Len() int { return len(b.elems) }

// Element returns the i-th added element.
func (b *Builder) Element(i int) []byte { return b.elems[i] }

// Check reports whether v could be added without violating the encoding.
func (b *Builder) Check(v []byte) error {
	if len(b.elems) >= math.MaxInt32 {
		return fmt.Errorf("%w: list is full", errs.ErrMalformed)
	}
	if b.fixed && b.elemSize >= 0 && len(v) != b.elemSize {
		return fmt.Errorf("%w: fixed element length %d, got %d", errs.ErrMalformed, b.elemSize, len(v))
	}
	return nil
}

// Add appends v. The builder retains v; callers must not modify it afterwards.
func (b *Builder) Add(v []byte) error {
	if err := b.Check(v); err != nil {
		return err
	}
	if b.fixed && b.elemSize < 0 {
		b.elemSize = len(v)
	}
	b.elems = append(b.elems, v)
	b.dataSize += int64(len(v))
	return nil
}

// SizeInBytes returns the exact encoded size.
func (b *Builder) SizeInBytes() int64 {
	if b.fixed {
		return 8 + b.dataSize
	}
	return 4 + 8*int64(len(b.elems)+1) + b.dataSize
}

// WriteTo encodes the list.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	bw := buf.NewWriter(w)
	if b.fixed {
		elemSize := b.elemSize
		if elemSize < 0 {
			elemSize = 0
		}
		bw.Int32(int32(elemSize))
		bw.Int32(int32(len(b.elems)))
	} else {
		bw.Int32(int32(len(b.elems)))
		var off int64
		bw.Int64(0)
		for _, e := range b.elems {
			off += int64(len(e))
			bw.Int64(off)
		}
	}
	for _, e := range b.elems {
		if bw.Err() != nil {
			break
		}
		_, _ = bw.Write(e)
	}
	return bw.N(), bw.Err()
}
