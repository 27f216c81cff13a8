package buf

import (
	"encoding/binary"
	"io"
)

// Writer encodes big-endian scalars to an io.Writer and counts the bytes
// written. Like Reader it keeps the first error and turns later calls into
// no-ops, so encoders can write a whole structure and check once.
type Writer struct {
	w       io.Writer
	n       int64
	err     error
	scratch [binary.MaxVarintLen64]byte
}

// NewWriter returns a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// N returns the number of bytes written so far.
func (w *Writer) N() int64 { return w.n }

// Err returns the first write error.
func (w *Writer) Err() error { return w.err }

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	n, err := w.w.Write(p)
	w.n += int64(n)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	w.err = err
	return n, err
}

// Int32 writes v big-endian.
func (w *Writer) Int32(v int32) {
	binary.BigEndian.PutUint32(w.scratch[:4], uint32(v))
	_, _ = w.Write(w.scratch[:4])
}

// Int64 writes v big-endian.
func (w *Writer) Int64(v int64) {
	binary.BigEndian.PutUint64(w.scratch[:8], uint64(v))
	_, _ = w.Write(w.scratch[:8])
}

// Uint8 writes a single byte.
func (w *Writer) Uint8(v uint8) {
	w.scratch[0] = v
	_, _ = w.Write(w.scratch[:1])
}

// Uvarint writes v as an unsigned varint.
func (w *Writer) Uvarint(v uint64) {
	n := binary.PutUvarint(w.scratch[:], v)
	_, _ = w.Write(w.scratch[:n])
}

// UvarintLen returns the encoded size of v.
func UvarintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// Uvarint reads an unsigned varint.
func (r *Reader) Uvarint() uint64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Uvarint(r.b.b[r.pos:])
	if n <= 0 {
		r.err = ErrOutOfBounds
		return 0
	}
	r.pos += n
	return v
}
