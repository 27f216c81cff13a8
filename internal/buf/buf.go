package buf

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrOutOfBounds is returned when a slice or read falls outside the buffer.
	ErrOutOfBounds = errors.New("buf: out of bounds")
	// ErrNegativeLength is returned when a length prefix decodes to a negative value.
	ErrNegativeLength = errors.New("buf: negative length")
)

// Buffer is a read-only view over a contiguous memory region.
//
// A Buffer never copies the region it views. Slicing returns a new view that
// shares the parent's memory, so the owner of the region (a heap slice or a
// memory mapping) must outlive every view derived from it.
type Buffer struct {
	b []byte
}

// New wraps b without copying.
func New(b []byte) Buffer {
	return Buffer{b: b}
}

// Len returns the number of bytes in the view.
func (b Buffer) Len() int { return len(b.b) }

// Bytes returns the viewed region. The result aliases the underlying memory
// and must not be modified.
func (b Buffer) Bytes() []byte { return b.b }

// Clone returns a heap copy of the viewed region.
func (b Buffer) Clone() []byte {
	out := make([]byte, len(b.b))
	copy(out, b.b)
	return out
}

// Slice returns the view [off, off+n).
func (b Buffer) Slice(off, n int) (Buffer, error) {
	if off < 0 || n < 0 || off > len(b.b) || n > len(b.b)-off {
		return Buffer{}, fmt.Errorf("%w: slice [%d, %d+%d) of %d bytes", ErrOutOfBounds, off, off, n, len(b.b))
	}
	return Buffer{b: b.b[off : off+n : off+n]}, nil
}

// From returns the view [off, Len()).
func (b Buffer) From(off int) (Buffer, error) {
	return b.Slice(off, len(b.b)-off)
}

// Int32At reads a big-endian int32 at the absolute offset off.
// The caller guarantees off+4 <= Len().
func (b Buffer) Int32At(off int) int32 {
	return int32(binary.BigEndian.Uint32(b.b[off:]))
}

// Int64At reads a big-endian int64 at the absolute offset off.
// The caller guarantees off+8 <= Len().
func (b Buffer) Int64At(off int) int64 {
	return int64(binary.BigEndian.Uint64(b.b[off:]))
}

// Uint32LEAt reads a little-endian uint32 at the absolute offset off.
func (b Buffer) Uint32LEAt(off int) uint32 {
	return binary.LittleEndian.Uint32(b.b[off:])
}

// Uint64LEAt reads a little-endian uint64 at the absolute offset off.
func (b Buffer) Uint64LEAt(off int) uint64 {
	return binary.LittleEndian.Uint64(b.b[off:])
}

// Reader returns a relative cursor positioned at the start of the view.
func (b Buffer) Reader() *Reader {
	return &Reader{b: b}
}

// Reader decodes scalars sequentially from a Buffer.
//
// The first failure is sticky: later reads return zero values and Err reports
// the original error. This lets decoders read a whole header and check once.
type Reader struct {
	b   Buffer
	pos int
	err error
}

// Err returns the first error encountered.
func (r *Reader) Err() error { return r.err }

// Position returns the current offset relative to the start of the view.
func (r *Reader) Position() int { return r.pos }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return r.b.Len() - r.pos }

func (r *Reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || n > r.b.Len()-r.pos {
		r.err = fmt.Errorf("%w: need %d bytes at %d, have %d", ErrOutOfBounds, n, r.pos, r.b.Len()-r.pos)
		return false
	}
	return true
}

// Int32 reads a big-endian int32.
func (r *Reader) Int32() int32 {
	if !r.need(4) {
		return 0
	}
	v := r.b.Int32At(r.pos)
	r.pos += 4
	return v
}

// Int64 reads a big-endian int64.
func (r *Reader) Int64() int64 {
	if !r.need(8) {
		return 0
	}
	v := r.b.Int64At(r.pos)
	r.pos += 8
	return v
}

// Uint8 reads a single byte.
func (r *Reader) Uint8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.b.b[r.pos]
	r.pos++
	return v
}

// Next returns the next n bytes as a view and advances past them.
func (r *Reader) Next(n int) Buffer {
	if !r.need(n) {
		return Buffer{}
	}
	v := Buffer{b: r.b.b[r.pos : r.pos+n : r.pos+n]}
	r.pos += n
	return v
}

// Length reads a big-endian int32 length prefix.
func (r *Reader) Length() int {
	n := r.Int32()
	if n < 0 && r.err == nil {
		r.err = fmt.Errorf("%w: %d", ErrNegativeLength, n)
		return 0
	}
	return int(n)
}

// Block reads an int64 length prefix followed by that many bytes.
func (r *Reader) Block() Buffer {
	n := r.Int64()
	if r.err != nil {
		return Buffer{}
	}
	if n < 0 {
		r.err = fmt.Errorf("%w: %d", ErrNegativeLength, n)
		return Buffer{}
	}
	if n > int64(r.Remaining()) {
		r.err = fmt.Errorf("%w: block of %d bytes at %d, have %d", ErrOutOfBounds, n, r.pos, r.Remaining())
		return Buffer{}
	}
	return r.Next(int(n))
}

// Rest returns the unread bytes and moves the cursor to the end.
func (r *Reader) Rest() Buffer {
	if r.err != nil {
		return Buffer{}
	}
	return r.Next(r.Remaining())
}
