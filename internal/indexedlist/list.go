package indexedlist

import (
	"fmt"

	"github.com/hupe1980/yocto/internal/buf"
	"github.com/hupe1980/yocto/internal/errs"
)

// List is a read-only random-access sequence of blobs.
//
// Returned slices alias the underlying buffer and must not be modified.
type List interface {
	// Len returns the number of elements.
	Len() int
	// Get returns element i or ErrOutOfRange.
	Get(i int) ([]byte, error)
	// At returns element i. It panics when i is outside [0, Len()).
	At(i int) []byte
}

// Open decodes a list in the encoding selected by fixed.
func Open(b buf.Buffer, fixed bool) (List, error) {
	if fixed {
		return OpenFixed(b)
	}
	return OpenVariable(b)
}

// Fixed is a list whose elements all have the same length.
type Fixed struct {
	elemSize int
	count    int
	data     []byte
}

// OpenFixed decodes a FIXED list occupying all of b.
func OpenFixed(b buf.Buffer) (*Fixed, error) {
	r := b.Reader()
	elemSize := r.Length()
	count := r.Length()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: fixed list header: %w", errs.ErrCorrupt, err)
	}
	if int64(elemSize)*int64(count) != int64(r.Remaining()) {
		return nil, fmt.Errorf("%w: fixed list of %d x %d bytes in %d bytes", errs.ErrCorrupt, count, elemSize, r.Remaining())
	}
	return &Fixed{
		elemSize: elemSize,
		count:    count,
		data:     r.Rest().Bytes(),
	}, nil
}

// Len implements List.
func (l *Fixed) Len() int { return l.count }

// ElementSize returns the shared element length.
func (l *Fixed) ElementSize() int { return l.elemSize }

// Get implements List.
func (l *Fixed) Get(i int) ([]byte, error) {
	if i < 0 || i >= l.count {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", errs.ErrOutOfRange, i, l.count)
	}
	return l.At(i), nil
}

// At implements List.
func (l *Fixed) At(i int) []byte {
	if i < 0 || i >= l.count {
		panic(fmt.Sprintf("indexedlist: index %d out of range [0, %d)", i, l.count))
	}
	off := i * l.elemSize
	return l.data[off : off+l.elemSize : off+l.elemSize]
}

// Variable is a list of blobs addressed through an offset table.
type Variable struct {
	count   int
	offsets buf.Buffer
	data    []byte
}

// OpenVariable decodes a VARIABLE list occupying all of b. The offset table
// is validated once so later lookups cannot leave the data region.
func OpenVariable(b buf.Buffer) (*Variable, error) {
	r := b.Reader()
	count := r.Length()
	offsets := r.Next(8 * (count + 1))
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: variable list header: %w", errs.ErrCorrupt, err)
	}
	data := r.Rest().Bytes()

	prev := int64(0)
	for i := 0; i <= count; i++ {
		off := offsets.Int64At(8 * i)
		if (i == 0 && off != 0) || off < prev || off > int64(len(data)) {
			return nil, fmt.Errorf("%w: variable list offset %d = %d", errs.ErrCorrupt, i, off)
		}
		prev = off
	}
	if prev != int64(len(data)) {
		return nil, fmt.Errorf("%w: variable list covers %d of %d data bytes", errs.ErrCorrupt, prev, len(data))
	}

	return &Variable{count: count, offsets: offsets, data: data}, nil
}

// Len implements List.
func (l *Variable) Len() int { return l.count }

// Get implements List.
func (l *Variable) Get(i int) ([]byte, error) {
	if i < 0 || i >= l.count {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", errs.ErrOutOfRange, i, l.count)
	}
	return l.At(i), nil
}

// At implements List.
func (l *Variable) At(i int) []byte {
	if i < 0 || i >= l.count {
		panic(fmt.Sprintf("indexedlist: index %d out of range [0, %d)", i, l.count))
	}
	start := l.offsets.Int64At(8 * i)
	end := l.offsets.Int64At(8 * (i + 1))
	return l.data[start:end:end]
}
