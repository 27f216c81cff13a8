package segment

import (
	"bytes"
	"fmt"
	"io"

	"github.com/hupe1980/yocto/internal/buf"
	"github.com/hupe1980/yocto/internal/errs"
	"github.com/hupe1980/yocto/internal/hash"
)

// Code identifies a segment kind. Codes are never reused or redefined; a new
// kind gets a new code.
type Code int32

const (
	CodePayload            Code = 1
	CodeFilterableFixed    Code = 2
	CodeFilterableVariable Code = 3
	CodeFullFixed          Code = 4
	CodeFullVariable       Code = 5
	CodeTrie               Code = 6
	CodePayloadCompressed  Code = 7
)

func (c Code) String() string {
	switch c {
	case CodePayload:
		return "payload"
	case CodeFilterableFixed:
		return "filterable/fixed"
	case CodeFilterableVariable:
		return "filterable/variable"
	case CodeFullFixed:
		return "full/fixed"
	case CodeFullVariable:
		return "full/variable"
	case CodeTrie:
		return "trie"
	case CodePayloadCompressed:
		return "payload/compressed"
	default:
		return fmt.Sprintf("Code(%d)", int32(c))
	}
}

// HeaderSize is the size of the length and type code that open every segment.
const HeaderSize = 8 + 4

// Block is a part of a segment body. Blocks are written with an int64 length
// prefix and must write exactly SizeInBytes bytes.
type Block interface {
	SizeInBytes() int64
	WriteTo(w io.Writer) (int64, error)
}

// Writable is a frozen segment ready for serialization. SizeInBytes counts
// every byte WriteTo produces, header and digest included.
type Writable interface {
	Code() Code
	SizeInBytes() int64
	WriteTo(w io.Writer) (int64, error)
}

// Raw is a segment located in a container whose framing and digest have been
// checked. Body spans the bytes between the header and the digest trailer.
type Raw struct {
	Code Code
	Body buf.Buffer
	// Size is the full framed size, header included.
	Size int64
}

// Read consumes one segment from r.
//
// The declared length must fit the remaining bytes and end in an int64
// digest length equal to alg.Size followed by the digest. When verify is set
// the digest is recomputed over the body. Unknown codes are not rejected
// here; dispatch is the caller's concern.
func Read(r *buf.Reader, alg hash.Algorithm, verify bool) (Raw, error) {
	start := r.Position()
	length := r.Int64()
	code := Code(r.Int32())
	if err := r.Err(); err != nil {
		return Raw{}, fmt.Errorf("%w: segment header at %d: %w", errs.ErrCorrupt, start, err)
	}
	trailer := int64(8 + alg.Size)
	if length < trailer || length > int64(r.Remaining()) {
		return Raw{}, fmt.Errorf("%w: segment at %d declares %d bytes, %d remain",
			errs.ErrCorrupt, start, length, r.Remaining())
	}

	framed := r.Next(int(length))
	body, _ := framed.Slice(0, int(length-trailer))
	tr := framed.Bytes()[length-trailer:]

	dr := buf.New(tr).Reader()
	if n := dr.Int64(); n != int64(alg.Size) {
		return Raw{}, fmt.Errorf("%w: %s segment at %d has a %d byte digest, want %d",
			errs.ErrCorrupt, code, start, n, alg.Size)
	}
	if verify {
		want := dr.Rest().Bytes()
		if got := alg.Sum(body.Bytes()); !bytes.Equal(got, want) {
			return Raw{}, fmt.Errorf("%w: %s segment at %d digest mismatch", errs.ErrCorrupt, code, start)
		}
	}

	return Raw{Code: code, Body: body, Size: HeaderSize + length}, nil
}

// ReadName decodes a length-prefixed, non-empty field name.
func ReadName(r *buf.Reader) (string, error) {
	n := r.Length()
	name := r.Next(n)
	if err := r.Err(); err != nil {
		return "", fmt.Errorf("%w: field name: %w", errs.ErrCorrupt, err)
	}
	if n == 0 {
		return "", fmt.Errorf("%w: empty field name", errs.ErrCorrupt)
	}
	return string(name.Bytes()), nil
}

// ReadBlock decodes an int64 length-prefixed block.
func ReadBlock(r *buf.Reader, what string) (buf.Buffer, error) {
	b := r.Block()
	if err := r.Err(); err != nil {
		return buf.Buffer{}, fmt.Errorf("%w: %s block: %w", errs.ErrCorrupt, what, err)
	}
	return b, nil
}
