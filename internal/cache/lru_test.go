package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/yocto/resource"
)

func TestLRU_EvictsLeastRecent(t *testing.T) {
	c := NewLRU(10, nil)
	c.Put(Key{Segment: 1, Chunk: 0}, make([]byte, 4))
	c.Put(Key{Segment: 1, Chunk: 1}, make([]byte, 4))

	_, ok := c.Get(Key{Segment: 1, Chunk: 0})
	require.True(t, ok)

	c.Put(Key{Segment: 1, Chunk: 2}, make([]byte, 4))
	_, ok = c.Get(Key{Segment: 1, Chunk: 1})
	assert.False(t, ok, "chunk 1 was least recently used")
	_, ok = c.Get(Key{Segment: 1, Chunk: 0})
	assert.True(t, ok)

	st := c.Stats()
	assert.Equal(t, int64(8), st.Bytes)
	assert.Equal(t, 2, st.Entries)
}

func TestLRU_Replace(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 100})
	c := NewLRU(50, rc)
	k := Key{Segment: 1, Chunk: 1}

	c.Put(k, make([]byte, 60))
	_, ok := c.Get(k)
	assert.False(t, ok, "larger than the whole cache")

	for _, size := range []int{10, 20, 5} {
		c.Put(k, make([]byte, size))
		assert.Equal(t, int64(size), c.Stats().Bytes)
		assert.Equal(t, int64(size), rc.MemoryUsage())
	}
}

func TestLRU_MemoryBudget(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 10})
	c := NewLRU(50, rc)
	k := Key{Segment: 1, Chunk: 1}

	c.Put(k, make([]byte, 8))
	c.Put(k, make([]byte, 12))
	v, ok := c.Get(k)
	require.True(t, ok)
	assert.Len(t, v, 8, "growth refused by the budget keeps the old chunk")

	c.Put(Key{Segment: 2}, make([]byte, 4))
	_, ok = c.Get(Key{Segment: 2})
	assert.False(t, ok)
	assert.Equal(t, int64(8), rc.MemoryUsage())
}

func TestCaches_DropSegment(t *testing.T) {
	rc := resource.NewController(resource.Config{})
	for name, c := range map[string]ChunkCache{
		"lru":     NewLRU(100, rc),
		"sharded": NewSharded(8*100, 8, rc),
	} {
		t.Run(name, func(t *testing.T) {
			c.Put(Key{Segment: 1, Chunk: 1}, []byte("a"))
			c.Put(Key{Segment: 1, Chunk: 2}, []byte("b"))
			c.Put(Key{Segment: 2, Chunk: 1}, []byte("c"))

			c.DropSegment(1)

			_, ok := c.Get(Key{Segment: 1, Chunk: 1})
			assert.False(t, ok)
			_, ok = c.Get(Key{Segment: 2, Chunk: 1})
			assert.True(t, ok)
			st := c.Stats()
			assert.Equal(t, int64(1), st.Bytes)
			assert.Equal(t, 1, st.Entries)
			assert.Equal(t, int64(1), st.Hits)
			assert.Equal(t, int64(1), st.Misses)

			c.DropSegment(2)
			assert.Zero(t, rc.MemoryUsage())
		})
	}
}

func TestSharded_Concurrent(t *testing.T) {
	rc := resource.NewController(resource.Config{})
	c := NewSharded(1<<20, 0, rc)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				k := Key{Segment: uint64(g), Chunk: uint32(i)}
				c.Put(k, []byte(fmt.Sprint(i)))
				v, ok := c.Get(k)
				if assert.True(t, ok) {
					assert.Equal(t, fmt.Sprint(i), string(v))
				}
			}
		}(g)
	}
	wg.Wait()

	st := c.Stats()
	assert.Equal(t, int64(1600), st.Hits)
	assert.Zero(t, st.Misses)
	assert.Equal(t, 1600, st.Entries)
	assert.Equal(t, st.Bytes, rc.MemoryUsage())
}

func TestNextSegmentID(t *testing.T) {
	a, b := NextSegmentID(), NextSegmentID()
	assert.NotEqual(t, a, b)
}
