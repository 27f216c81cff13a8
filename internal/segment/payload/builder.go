package payload

import (
	"bytes"
	"fmt"
	"io"

	"github.com/hupe1980/yocto/internal/buf"
	"github.com/hupe1980/yocto/internal/errs"
	"github.com/hupe1980/yocto/internal/hash"
	"github.com/hupe1980/yocto/internal/indexedlist"
	"github.com/hupe1980/yocto/internal/segment"
)

// DefaultDocsPerChunk is the number of payloads compressed together.
const DefaultDocsPerChunk = 64

// Builder collects one payload per document, in document order.
type Builder struct {
	digest       hash.Algorithm
	codec        Codec
	docsPerChunk int
	list         *indexedlist.Builder
	frozen       bool
}

// NewBuilder returns a payload builder. CodecNone produces a plain payload
// segment; any other codec produces a chunked, compressed one. A
// docsPerChunk below 1 selects DefaultDocsPerChunk.
func NewBuilder(digest hash.Algorithm, codec Codec, docsPerChunk int) *Builder {
	if docsPerChunk < 1 {
		docsPerChunk = DefaultDocsPerChunk
	}
	return &Builder{
		digest:       digest,
		codec:        codec,
		docsPerChunk: docsPerChunk,
		list:         indexedlist.NewVariable(),
	}
}

// Len returns the number of payloads added.
func (b *Builder) Len() int { return b.list.Len() }

// Codec returns the configured codec.
func (b *Builder) Codec() Codec { return b.codec }

// Code returns the segment type code the builder serializes to.
func (b *Builder) Code() segment.Code {
	if b.codec == CodecNone {
		return segment.CodePayload
	}
	return segment.CodePayloadCompressed
}

// Check reports whether AddDocument(doc, p) would succeed.
func (b *Builder) Check(doc int, p []byte) error {
	if b.frozen {
		return fmt.Errorf("payload: %w", errs.ErrFrozen)
	}
	if doc != b.list.Len() {
		return fmt.Errorf("%w: payload expects document %d, got %d", errs.ErrMalformed, b.list.Len(), doc)
	}
	return b.list.Check(p)
}

// AddDocument stores a copy of p as the payload of doc.
func (b *Builder) AddDocument(doc int, p []byte) error {
	if err := b.Check(doc, p); err != nil {
		return err
	}
	return b.list.Add(bytes.Clone(p))
}

// BuildWritable freezes the builder and returns its serializable form.
// Compression runs here, so the returned segment knows its exact size.
func (b *Builder) BuildWritable() (segment.Writable, error) {
	b.frozen = true
	if b.codec == CodecNone {
		return segment.NewFrame(segment.CodePayload, b.digest, b.list), nil
	}

	chunks, err := b.compress()
	if err != nil {
		return nil, err
	}
	return segment.NewFrame(segment.CodePayloadCompressed, b.digest, chunks.header(), chunks).
		WithPrefix([]byte{byte(b.codec)}), nil
}

func (b *Builder) compress() (*chunkSet, error) {
	n := b.list.Len()
	cs := &chunkSet{docsPerChunk: b.docsPerChunk, docs: n}

	var raw bytes.Buffer
	for lo := 0; lo < n; lo += b.docsPerChunk {
		hi := min(lo+b.docsPerChunk, n)
		chunk := indexedlist.NewVariable()
		for i := lo; i < hi; i++ {
			if err := chunk.Add(b.list.Element(i)); err != nil {
				return nil, err
			}
		}

		raw.Reset()
		if _, err := chunk.WriteTo(&raw); err != nil {
			return nil, err
		}
		data, stored, err := compressChunk(bytes.Clone(raw.Bytes()), b.codec)
		if err != nil {
			return nil, err
		}
		cs.data = append(cs.data, data)
		cs.rawSizes = append(cs.rawSizes, int32(raw.Len()))
		cs.stored = append(cs.stored, stored)
		cs.size += int64(len(data))
	}
	return cs, nil
}

// chunkSet is the data block of a compressed segment: the chunks back to
// back. header describes where each one lives.
type chunkSet struct {
	docsPerChunk int
	docs         int
	data         [][]byte
	rawSizes     []int32
	stored       []bool
	size         int64
}

// header encodes
//
//	docsPerChunk int32 | docs int32 | chunks int32 |
//	offsets int64[chunks+1] | rawSizes int32[chunks] | stored uint8[chunks]
func (cs *chunkSet) header() segment.Bytes {
	var out bytes.Buffer
	w := buf.NewWriter(&out)
	w.Int32(int32(cs.docsPerChunk))
	w.Int32(int32(cs.docs))
	w.Int32(int32(len(cs.data)))
	var off int64
	w.Int64(0)
	for _, d := range cs.data {
		off += int64(len(d))
		w.Int64(off)
	}
	for _, s := range cs.rawSizes {
		w.Int32(s)
	}
	for _, s := range cs.stored {
		var flag uint8
		if s {
			flag = 1
		}
		w.Uint8(flag)
	}
	return segment.Bytes(out.Bytes())
}

func (cs *chunkSet) SizeInBytes() int64 { return cs.size }

func (cs *chunkSet) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, d := range cs.data {
		n, err := w.Write(d)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
