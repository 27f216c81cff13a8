package segment

import (
	"fmt"
	"io"

	"github.com/hupe1980/yocto/internal/buf"
	"github.com/hupe1980/yocto/internal/errs"
	"github.com/hupe1980/yocto/internal/hash"
)

// Frame serializes a segment:
//
//	length int64 | code int32 | [nameLen int32 | name] | prefix |
//	(blockLen int64 | block)* | digestLen int64 | digest
//
// length counts every byte after the 12-byte header. The digest covers every
// byte between the header and digestLen.
type Frame struct {
	code   Code
	name   string
	named  bool
	prefix []byte
	blocks []Block
	digest hash.Algorithm
}

var _ Writable = (*Frame)(nil)

// NewFrame returns a frame for an unnamed segment.
func NewFrame(code Code, digest hash.Algorithm, blocks ...Block) *Frame {
	return &Frame{code: code, blocks: blocks, digest: digest}
}

// NewNamedFrame returns a frame whose body starts with a field name.
func NewNamedFrame(code Code, name string, digest hash.Algorithm, blocks ...Block) *Frame {
	return &Frame{code: code, name: name, named: true, blocks: blocks, digest: digest}
}

// WithPrefix sets raw bytes written after the name and before the blocks.
func (f *Frame) WithPrefix(p []byte) *Frame {
	f.prefix = p
	return f
}

// Code implements Writable.
func (f *Frame) Code() Code { return f.code }

// SizeInBytes implements Writable.
func (f *Frame) SizeInBytes() int64 {
	size := int64(HeaderSize) + f.bodySize() + 8 + int64(f.digest.Size)
	return size
}

func (f *Frame) bodySize() int64 {
	var size int64
	if f.named {
		size += 4 + int64(len(f.name))
	}
	size += int64(len(f.prefix))
	for _, b := range f.blocks {
		size += 8 + b.SizeInBytes()
	}
	return size
}

// WriteTo implements Writable. It fails with ErrSizeMismatch when a block
// writes a different number of bytes than it declared.
func (f *Frame) WriteTo(w io.Writer) (int64, error) {
	declared := f.SizeInBytes()

	out := buf.NewWriter(w)
	out.Int64(declared - HeaderSize)
	out.Int32(int32(f.code))

	h := f.digest.New()
	body := buf.NewWriter(io.MultiWriter(out, h))
	if f.named {
		body.Int32(int32(len(f.name)))
		_, _ = body.Write([]byte(f.name))
	}
	_, _ = body.Write(f.prefix)
	for i, b := range f.blocks {
		want := b.SizeInBytes()
		body.Int64(want)
		if body.Err() != nil {
			break
		}
		n, err := b.WriteTo(body)
		if err != nil {
			return out.N(), err
		}
		if n != want {
			return out.N(), fmt.Errorf("%w: %s block %d wrote %d bytes, declared %d", errs.ErrSizeMismatch, f.code, i, n, want)
		}
	}
	if err := body.Err(); err != nil {
		return out.N(), err
	}

	out.Int64(int64(f.digest.Size))
	_, _ = out.Write(h.Sum(nil))
	if err := out.Err(); err != nil {
		return out.N(), err
	}
	if out.N() != declared {
		return out.N(), fmt.Errorf("%w: %s segment wrote %d bytes, declared %d", errs.ErrSizeMismatch, f.code, out.N(), declared)
	}
	return out.N(), nil
}

// Bytes is a Block over a byte slice.
type Bytes []byte

// SizeInBytes implements Block.
func (b Bytes) SizeInBytes() int64 { return int64(len(b)) }

// WriteTo implements Block.
func (b Bytes) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b)
	return int64(n), err
}
