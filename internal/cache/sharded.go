package cache

import (
	"encoding/binary"
	"hash/maphash"

	"github.com/hupe1980/yocto/resource"
)

// DefaultShards is the shard count NewSharded uses when given zero.
const DefaultShards = 64

// Sharded spreads keys over independent LRUs so parallel readers rarely
// share a lock. Each shard holds an equal part of the capacity.
type Sharded struct {
	seed   maphash.Seed
	shards []*LRU
}

var _ ChunkCache = (*Sharded)(nil)

// NewSharded returns a cache of capacity bytes split over shards LRUs.
func NewSharded(capacity int64, shards int, rc *resource.Controller) *Sharded {
	if shards <= 0 {
		shards = DefaultShards
	}
	per := max(capacity/int64(shards), 1)
	s := &Sharded{seed: maphash.MakeSeed(), shards: make([]*LRU, shards)}
	for i := range s.shards {
		s.shards[i] = NewLRU(per, rc)
	}
	return s
}

func (s *Sharded) shard(key Key) *LRU {
	var b [12]byte
	binary.LittleEndian.PutUint64(b[:8], key.Segment)
	binary.LittleEndian.PutUint32(b[8:], key.Chunk)
	return s.shards[maphash.Bytes(s.seed, b[:])%uint64(len(s.shards))]
}

func (s *Sharded) Get(key Key) ([]byte, bool) { return s.shard(key).Get(key) }

func (s *Sharded) Put(key Key, chunk []byte) { s.shard(key).Put(key, chunk) }

func (s *Sharded) DropSegment(segment uint64) {
	for _, l := range s.shards {
		l.DropSegment(segment)
	}
}

func (s *Sharded) Stats() Stats {
	var total Stats
	for _, l := range s.shards {
		total = total.add(l.Stats())
	}
	return total
}
