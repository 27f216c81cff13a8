package cache

import (
	"sync"
	"sync/atomic"

	"github.com/hupe1980/yocto/resource"
)

type node struct {
	key        Key
	chunk      []byte
	prev, next *node
}

// LRU is a least recently used ChunkCache bounded in bytes.
type LRU struct {
	rc       *resource.Controller
	capacity int64

	mu    sync.Mutex
	nodes map[Key]*node
	ring  node // sentinel; ring.next is the most recent entry
	bytes int64

	hits   atomic.Int64
	misses atomic.Int64
}

var _ ChunkCache = (*LRU)(nil)

// NewLRU returns a cache holding up to capacity bytes. Cached bytes are
// also reserved from rc, which may be nil.
func NewLRU(capacity int64, rc *resource.Controller) *LRU {
	c := &LRU{rc: rc, capacity: capacity, nodes: make(map[Key]*node)}
	c.ring.prev, c.ring.next = &c.ring, &c.ring
	return c
}

func (c *LRU) Get(key Key) ([]byte, bool) {
	c.mu.Lock()
	var chunk []byte
	n, ok := c.nodes[key]
	if ok {
		c.touch(n)
		chunk = n.chunk
	}
	c.mu.Unlock()

	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return chunk, true
}

func (c *LRU) Put(key Key, chunk []byte) {
	size := int64(len(chunk))
	if size > c.capacity {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.nodes[key]; ok {
		c.touch(n)
		grow := size - int64(len(n.chunk))
		if grow > 0 && c.rc.AcquireMemory(grow) != nil {
			return
		}
		if grow < 0 {
			c.rc.ReleaseMemory(-grow)
		}
		n.chunk = chunk
		c.bytes += grow
		c.evict(0)
		return
	}

	// evicting first returns bytes to the shared budget
	c.evict(size)
	if c.rc.AcquireMemory(size) != nil {
		return
	}
	n := &node{key: key, chunk: chunk}
	c.nodes[key] = n
	c.link(n)
	c.bytes += size
}

func (c *LRU) DropSegment(segment uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, n := range c.nodes {
		if key.Segment == segment {
			c.remove(n)
		}
	}
}

func (c *LRU) Stats() Stats {
	c.mu.Lock()
	bytes, entries := c.bytes, len(c.nodes)
	c.mu.Unlock()
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Bytes:   bytes,
		Entries: entries,
	}
}

// evict drops the oldest entries until extra more bytes fit.
func (c *LRU) evict(extra int64) {
	for c.bytes+extra > c.capacity && c.ring.prev != &c.ring {
		c.remove(c.ring.prev)
	}
}

func (c *LRU) remove(n *node) {
	c.unlink(n)
	delete(c.nodes, n.key)
	size := int64(len(n.chunk))
	c.bytes -= size
	c.rc.ReleaseMemory(size)
}

func (c *LRU) touch(n *node) {
	c.unlink(n)
	c.link(n)
}

func (c *LRU) link(n *node) {
	n.prev, n.next = &c.ring, c.ring.next
	c.ring.next.prev = n
	c.ring.next = n
}

func (c *LRU) unlink(n *node) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev, n.next = nil, nil
}
