package payload

import (
	"fmt"

	"github.com/hupe1980/yocto/internal/buf"
	"github.com/hupe1980/yocto/internal/cache"
	"github.com/hupe1980/yocto/internal/errs"
	"github.com/hupe1980/yocto/internal/indexedlist"
	"github.com/hupe1980/yocto/internal/segment"
)

// Segment is the read-side view of a payload segment.
type Segment interface {
	// Len returns the number of documents.
	Len() int
	// Payload returns the payload of doc. The returned slice must not be
	// modified. Fails with ErrOutOfRange for unknown documents.
	Payload(doc int) ([]byte, error)
	// SizeInBytes returns the framed size of the segment in the container.
	SizeInBytes() int64
	// Close drops cached state. The segment must not be used afterwards.
	Close() error
}

// Open parses a payload segment. Decoded chunks of compressed segments are
// kept in c; a nil cache decodes on every access.
func Open(raw segment.Raw, c cache.ChunkCache) (Segment, error) {
	switch raw.Code {
	case segment.CodePayload:
		return openPlain(raw)
	case segment.CodePayloadCompressed:
		return openCompressed(raw, c)
	default:
		return nil, fmt.Errorf("%w: %s is not a payload segment", errs.ErrFormat, raw.Code)
	}
}

type plain struct {
	list *indexedlist.Variable
	size int64
}

func openPlain(raw segment.Raw) (*plain, error) {
	r := raw.Body.Reader()
	b, err := segment.ReadBlock(r, "payloads")
	if err != nil {
		return nil, err
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("%w: payload segment has %d trailing bytes", errs.ErrCorrupt, r.Remaining())
	}
	list, err := indexedlist.OpenVariable(b)
	if err != nil {
		return nil, err
	}
	return &plain{list: list, size: raw.Size}, nil
}

func (p *plain) Len() int { return p.list.Len() }

func (p *plain) Payload(doc int) ([]byte, error) {
	v, err := p.list.Get(doc)
	if err != nil {
		return nil, fmt.Errorf("payload of document %d: %w", doc, err)
	}
	return v, nil
}

func (p *plain) SizeInBytes() int64 { return p.size }

func (p *plain) Close() error { return nil }

type compressed struct {
	id           uint64
	codec        Codec
	docsPerChunk int
	docs         int
	offsets      []int64
	rawSizes     []int32
	stored       []bool
	data         buf.Buffer
	cache        cache.ChunkCache
	size         int64
}

func openCompressed(raw segment.Raw, c cache.ChunkCache) (*compressed, error) {
	r := raw.Body.Reader()
	codec := Codec(r.Uint8())
	header, err := segment.ReadBlock(r, "chunk header")
	if err != nil {
		return nil, err
	}
	data, err := segment.ReadBlock(r, "chunk data")
	if err != nil {
		return nil, err
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("%w: payload segment has %d trailing bytes", errs.ErrCorrupt, r.Remaining())
	}
	if codec != CodecLZ4 && codec != CodecZstd {
		return nil, fmt.Errorf("%w: payload codec %s", errs.ErrFormat, codec)
	}

	s := &compressed{
		id:    cache.NextSegmentID(),
		codec: codec,
		data:  data,
		cache: c,
		size:  raw.Size,
	}
	if err := s.parseHeader(header); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *compressed) parseHeader(b buf.Buffer) error {
	hr := b.Reader()
	s.docsPerChunk = int(hr.Int32())
	s.docs = int(hr.Int32())
	chunks := int(hr.Int32())
	if err := hr.Err(); err != nil {
		return fmt.Errorf("%w: chunk header: %w", errs.ErrCorrupt, err)
	}
	if s.docsPerChunk < 1 || s.docs < 0 || chunks != (s.docs+s.docsPerChunk-1)/s.docsPerChunk {
		return fmt.Errorf("%w: %d chunks of %d for %d documents", errs.ErrCorrupt, chunks, s.docsPerChunk, s.docs)
	}
	// offsets, sizes and flags take 13 bytes per chunk plus one offset
	if hr.Remaining() != 8+13*chunks {
		return fmt.Errorf("%w: chunk header has %d bytes for %d chunks", errs.ErrCorrupt, hr.Remaining(), chunks)
	}

	s.offsets = make([]int64, chunks+1)
	for i := range s.offsets {
		s.offsets[i] = hr.Int64()
		if s.offsets[i] < 0 || (i > 0 && s.offsets[i] < s.offsets[i-1]) {
			return fmt.Errorf("%w: chunk offset %d out of order", errs.ErrCorrupt, i)
		}
	}
	if s.offsets[0] != 0 || s.offsets[chunks] != int64(s.data.Len()) {
		return fmt.Errorf("%w: chunk offsets do not span the data block", errs.ErrCorrupt)
	}

	s.rawSizes = make([]int32, chunks)
	for i := range s.rawSizes {
		s.rawSizes[i] = hr.Int32()
		if s.rawSizes[i] < 0 {
			return fmt.Errorf("%w: chunk %d has negative size", errs.ErrCorrupt, i)
		}
	}
	s.stored = make([]bool, chunks)
	for i := range s.stored {
		switch hr.Uint8() {
		case 0:
		case 1:
			s.stored[i] = true
			if int64(s.rawSizes[i]) != s.offsets[i+1]-s.offsets[i] {
				return fmt.Errorf("%w: stored chunk %d size mismatch", errs.ErrCorrupt, i)
			}
		default:
			return fmt.Errorf("%w: chunk %d has an unknown flag", errs.ErrCorrupt, i)
		}
	}
	return hr.Err()
}

func (s *compressed) Len() int { return s.docs }

func (s *compressed) Payload(doc int) ([]byte, error) {
	if doc < 0 || doc >= s.docs {
		return nil, fmt.Errorf("payload of document %d: %w", doc, errs.ErrOutOfRange)
	}
	chunk := doc / s.docsPerChunk
	list, err := s.chunk(chunk)
	if err != nil {
		return nil, err
	}
	return list.Get(doc - chunk*s.docsPerChunk)
}

func (s *compressed) chunk(i int) (*indexedlist.Variable, error) {
	key := cache.Key{Segment: s.id, Chunk: uint32(i)}
	cached := s.cache != nil && !s.stored[i]
	if cached {
		if b, ok := s.cache.Get(key); ok {
			return indexedlist.OpenVariable(buf.New(b))
		}
	}

	stored, _ := s.data.Slice(int(s.offsets[i]), int(s.offsets[i+1]-s.offsets[i]))
	raw := stored.Bytes()
	if !s.stored[i] {
		var err error
		if raw, err = decompressChunk(raw, s.codec, int(s.rawSizes[i])); err != nil {
			return nil, fmt.Errorf("payload chunk %d: %w", i, err)
		}
	}

	list, err := indexedlist.OpenVariable(buf.New(raw))
	if err != nil {
		return nil, fmt.Errorf("payload chunk %d: %w", i, err)
	}
	want := min(s.docsPerChunk, s.docs-i*s.docsPerChunk)
	if list.Len() != want {
		return nil, fmt.Errorf("%w: payload chunk %d holds %d documents, want %d", errs.ErrCorrupt, i, list.Len(), want)
	}
	if cached {
		s.cache.Put(key, raw)
	}
	return list, nil
}

func (s *compressed) SizeInBytes() int64 { return s.size }

func (s *compressed) Close() error {
	if s.cache != nil {
		s.cache.DropSegment(s.id)
	}
	return nil
}
