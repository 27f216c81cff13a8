package cache

import "sync/atomic"

// Key identifies a decoded payload chunk. Segment is unique per opened
// segment within the process, so entries never outlive their bytes.
type Key struct {
	Segment uint64
	Chunk   uint32
}

var segmentIDs atomic.Uint64

// NextSegmentID returns a fresh Key.Segment value.
func NextSegmentID() uint64 { return segmentIDs.Add(1) }

// Stats is a snapshot of cache activity.
type Stats struct {
	Hits    int64
	Misses  int64
	Bytes   int64
	Entries int
}

func (s Stats) add(o Stats) Stats {
	return Stats{
		Hits:    s.Hits + o.Hits,
		Misses:  s.Misses + o.Misses,
		Bytes:   s.Bytes + o.Bytes,
		Entries: s.Entries + o.Entries,
	}
}

// ChunkCache keeps decoded chunks of immutable segments. Cached slices are
// shared and must not be modified by anyone.
type ChunkCache interface {
	Get(key Key) ([]byte, bool)
	// Put stores chunk unless it exceeds the capacity or the memory budget.
	Put(key Key, chunk []byte)
	// DropSegment removes every chunk of segment.
	DropSegment(segment uint64)
	Stats() Stats
}
