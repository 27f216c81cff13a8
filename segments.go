package yocto

import (
	"fmt"

	"github.com/hupe1980/yocto/internal/segment"
	"github.com/hupe1980/yocto/internal/segment/index"
	"github.com/hupe1980/yocto/internal/segment/payload"
)

// SegmentInfo describes one segment of an open container.
type SegmentInfo struct {
	// Code is the segment type code.
	Code int32
	// Kind is a readable name of the code, such as "full/fixed".
	Kind string
	// Field is the indexed field, empty for the payload segment.
	Field string
	// Size is the framed size of the segment in bytes.
	Size int64
}

type segmentReader func(db *Database, raw segment.Raw) error

// segmentReaders dispatches every known type code. Codes missing here are
// rejected with ErrFormat.
var segmentReaders = map[segment.Code]segmentReader{
	segment.CodePayload:            readPayload,
	segment.CodePayloadCompressed:  readPayload,
	segment.CodeFilterableFixed:    readIndex,
	segment.CodeFilterableVariable: readIndex,
	segment.CodeFullFixed:          readIndex,
	segment.CodeFullVariable:       readIndex,
	segment.CodeTrie:               readIndex,
}

func readSegment(db *Database, raw segment.Raw) error {
	read, ok := segmentReaders[raw.Code]
	if !ok {
		return fmt.Errorf("%w: unknown segment type code %d", ErrFormat, int32(raw.Code))
	}
	return read(db, raw)
}

func readPayload(db *Database, raw segment.Raw) error {
	if db.payload != nil {
		return fmt.Errorf("%w: duplicate payload segment", ErrCorrupt)
	}
	p, err := payload.Open(raw, db.cache)
	if err != nil {
		return err
	}
	db.payload = p
	db.segments = append(db.segments, SegmentInfo{
		Code: int32(raw.Code),
		Kind: raw.Code.String(),
		Size: raw.Size,
	})
	return nil
}

func readIndex(db *Database, raw segment.Raw) error {
	idx, err := index.Open(raw)
	if err != nil {
		return err
	}
	if _, ok := db.fields[idx.Name()]; ok {
		return fmt.Errorf("%w: duplicate segment for field %q", ErrCorrupt, idx.Name())
	}
	db.fields[idx.Name()] = idx
	db.segments = append(db.segments, SegmentInfo{
		Code:  int32(raw.Code),
		Kind:  raw.Code.String(),
		Field: idx.Name(),
		Size:  raw.Size,
	})
	return nil
}
