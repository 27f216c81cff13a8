package relation

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/hupe1980/yocto/internal/buf"
	"github.com/hupe1980/yocto/internal/errs"
)

const (
	mapDense  int32 = 1
	mapSparse int32 = 2
)

// MapBuilder accumulates a function key -> value over non-negative ints.
type MapBuilder struct {
	entries map[int32]int32
	maxKey  int32
	frozen  bool
	sparse  bool
	keys    []int32
}

// NewMapBuilder returns an empty map builder.
func NewMapBuilder() *MapBuilder {
	return &MapBuilder{entries: make(map[int32]int32), maxKey: -1}
}

// Len returns the number of keys.
func (m *MapBuilder) Len() int { return len(m.entries) }

// Put sets key to value. Keys are single-valued; putting an existing key
// is rejected.
func (m *MapBuilder) Put(key, value int) error {
	if m.frozen {
		return errs.ErrFrozen
	}
	if key < 0 || value < 0 || key > math.MaxInt32 || value > math.MaxInt32 {
		return fmt.Errorf("%w: map entry %d -> %d", errs.ErrMalformed, key, value)
	}
	if _, ok := m.entries[int32(key)]; ok {
		return fmt.Errorf("%w: map key %d already set", errs.ErrMalformed, key)
	}
	m.entries[int32(key)] = int32(value)
	m.maxKey = max(m.maxKey, int32(key))
	return nil
}

// Freeze fixes the encoding, picking whichever of dense and sparse is smaller.
func (m *MapBuilder) Freeze() {
	if m.frozen {
		return
	}
	m.frozen = true
	dense := 4 + 4*int64(m.maxKey+1)
	sparse := 4 + 8*int64(len(m.entries))
	m.sparse = sparse < dense
	if m.sparse {
		m.keys = make([]int32, 0, len(m.entries))
		for k := range m.entries {
			m.keys = append(m.keys, k)
		}
		sort.Slice(m.keys, func(i, j int) bool { return m.keys[i] < m.keys[j] })
	}
}

// SizeInBytes returns the encoded size of the frozen map.
func (m *MapBuilder) SizeInBytes() int64 {
	if m.sparse {
		return 4 + 4 + 8*int64(len(m.entries))
	}
	return 4 + 4 + 4*int64(m.maxKey+1)
}

// WriteTo encodes the frozen map.
func (m *MapBuilder) WriteTo(w io.Writer) (int64, error) {
	if !m.frozen {
		return 0, fmt.Errorf("%w: map is not frozen", errs.ErrMalformed)
	}
	bw := buf.NewWriter(w)
	if m.sparse {
		bw.Int32(mapSparse)
		bw.Int32(int32(len(m.keys)))
		for _, k := range m.keys {
			bw.Int32(k)
		}
		for _, k := range m.keys {
			bw.Int32(m.entries[k])
		}
		return bw.N(), bw.Err()
	}

	bw.Int32(mapDense)
	bw.Int32(m.maxKey + 1)
	for k := int32(0); k <= m.maxKey; k++ {
		v, ok := m.entries[k]
		if !ok {
			v = -1
		}
		bw.Int32(v)
	}
	return bw.N(), bw.Err()
}

// Map is the read-side view of a frozen MapBuilder.
type Map interface {
	// Get returns the value for key; ok is false when key is absent.
	Get(key int) (value int, ok bool)
	// Len returns the number of encoded key slots.
	Len() int
}

// OpenMap decodes a map occupying all of b.
func OpenMap(b buf.Buffer) (Map, error) {
	r := b.Reader()
	kind := r.Int32()
	count := r.Length()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: map header: %w", errs.ErrCorrupt, err)
	}
	switch kind {
	case mapDense:
		values := r.Next(4 * count)
		if r.Err() != nil || r.Remaining() != 0 {
			return nil, fmt.Errorf("%w: dense map of %d keys in %d bytes", errs.ErrCorrupt, count, b.Len())
		}
		return &denseMap{count: count, values: values}, nil
	case mapSparse:
		keys := r.Next(4 * count)
		values := r.Next(4 * count)
		if r.Err() != nil || r.Remaining() != 0 {
			return nil, fmt.Errorf("%w: sparse map of %d keys in %d bytes", errs.ErrCorrupt, count, b.Len())
		}
		for i := 1; i < count; i++ {
			if keys.Int32At(4*(i-1)) >= keys.Int32At(4*i) {
				return nil, fmt.Errorf("%w: sparse map key %d is out of order", errs.ErrCorrupt, i)
			}
		}
		return &sparseMap{count: count, keys: keys, values: values}, nil
	default:
		return nil, fmt.Errorf("%w: map kind %d", errs.ErrFormat, kind)
	}
}

type denseMap struct {
	count  int
	values buf.Buffer
}

func (m *denseMap) Len() int { return m.count }

func (m *denseMap) Get(key int) (int, bool) {
	if key < 0 || key >= m.count {
		return -1, false
	}
	v := m.values.Int32At(4 * key)
	if v < 0 {
		return -1, false
	}
	return int(v), true
}

type sparseMap struct {
	count  int
	keys   buf.Buffer
	values buf.Buffer
}

func (m *sparseMap) Len() int { return m.count }

func (m *sparseMap) Get(key int) (int, bool) {
	i := sort.Search(m.count, func(i int) bool { return int(m.keys.Int32At(4*i)) >= key })
	if i == m.count || int(m.keys.Int32At(4*i)) != key {
		return -1, false
	}
	return int(m.values.Int32At(4 * i)), true
}
