package relation

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"slices"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/yocto/internal/buf"
	"github.com/hupe1980/yocto/internal/errs"
)

const (
	multiGrouped int32 = 1
	multiRoaring int32 = 2
)

// MultiMapBuilder accumulates a relation key -> {value}.
//
// Freeze sorts keys and values and picks the smaller of two encodings:
//
//	grouped: kind | groups int32 | keys int32[g] | offsets int32[g+1] | values int32[]
//	roaring: kind | groups int32 | keys int32[g] | offsets int64[g+1] | portable bitmaps
type MultiMapBuilder struct {
	groups map[int32][]int32
	domain int
	frozen bool

	keys    []int32
	total   int64
	roaring bool
	bitmaps [][]byte
}

// NewMultiMapBuilder returns an empty multimap builder.
func NewMultiMapBuilder() *MultiMapBuilder {
	return &MultiMapBuilder{groups: make(map[int32][]int32)}
}

// SetDomain declares the exclusive upper bound of values, typically the
// database documents count. Zero means unknown.
func (m *MultiMapBuilder) SetDomain(n int) { m.domain = n }

// Keys returns the number of distinct keys.
func (m *MultiMapBuilder) Keys() int { return len(m.groups) }

// Add relates key to value. Adding the same pair twice is a no-op.
func (m *MultiMapBuilder) Add(key, value int) error {
	if m.frozen {
		return errs.ErrFrozen
	}
	if key < 0 || value < 0 || key > math.MaxInt32 || value > math.MaxInt32 {
		return fmt.Errorf("%w: relation %d -> %d", errs.ErrMalformed, key, value)
	}
	m.groups[int32(key)] = append(m.groups[int32(key)], int32(value))
	return nil
}

// Freeze fixes the encoding.
func (m *MultiMapBuilder) Freeze() error {
	if m.frozen {
		return nil
	}

	m.keys = make([]int32, 0, len(m.groups))
	for k, vs := range m.groups {
		slices.Sort(vs)
		vs = slices.Compact(vs)
		if m.domain > 0 && len(vs) > 0 && int(vs[len(vs)-1]) >= m.domain {
			return fmt.Errorf("%w: value %d outside domain [0, %d)", errs.ErrMalformed, vs[len(vs)-1], m.domain)
		}
		m.groups[k] = vs
		m.keys = append(m.keys, k)
		m.total += int64(len(vs))
	}
	slices.Sort(m.keys)

	grouped := 4 + 4*int64(len(m.keys)) + 4*int64(len(m.keys)+1) + 4*m.total

	bitmaps := make([][]byte, len(m.keys))
	roaringSize := 4 + 4*int64(len(m.keys)) + 8*int64(len(m.keys)+1)
	for i, k := range m.keys {
		rb := roaring.New()
		for _, v := range m.groups[k] {
			rb.Add(uint32(v))
		}
		rb.RunOptimize()
		var b bytes.Buffer
		if _, err := rb.WriteTo(&b); err != nil {
			return err
		}
		bitmaps[i] = b.Bytes()
		roaringSize += int64(b.Len())
		if roaringSize >= grouped {
			break
		}
	}

	m.roaring = roaringSize < grouped
	if m.roaring {
		m.bitmaps = bitmaps
	}
	m.frozen = true
	return nil
}

// Roaring reports whether the frozen map uses the bitmap encoding.
func (m *MultiMapBuilder) Roaring() bool { return m.roaring }

// SizeInBytes returns the encoded size of the frozen multimap.
func (m *MultiMapBuilder) SizeInBytes() int64 {
	g := int64(len(m.keys))
	if m.roaring {
		size := 4 + 4 + 4*g + 8*(g+1)
		for _, b := range m.bitmaps {
			size += int64(len(b))
		}
		return size
	}
	return 4 + 4 + 4*g + 4*(g+1) + 4*m.total
}

// WriteTo encodes the frozen multimap.
func (m *MultiMapBuilder) WriteTo(w io.Writer) (int64, error) {
	if !m.frozen {
		return 0, fmt.Errorf("%w: multimap is not frozen", errs.ErrMalformed)
	}
	bw := buf.NewWriter(w)
	if m.roaring {
		bw.Int32(multiRoaring)
	} else {
		bw.Int32(multiGrouped)
	}
	bw.Int32(int32(len(m.keys)))
	for _, k := range m.keys {
		bw.Int32(k)
	}

	if m.roaring {
		var off int64
		bw.Int64(0)
		for _, b := range m.bitmaps {
			off += int64(len(b))
			bw.Int64(off)
		}
		for _, b := range m.bitmaps {
			_, _ = bw.Write(b)
		}
		return bw.N(), bw.Err()
	}

	var off int32
	bw.Int32(0)
	for _, k := range m.keys {
		off += int32(len(m.groups[k]))
		bw.Int32(off)
	}
	for _, k := range m.keys {
		for _, v := range m.groups[k] {
			bw.Int32(v)
		}
	}
	return bw.N(), bw.Err()
}

// MultiMap is the read-side view of a frozen MultiMapBuilder. Values of each
// key are visited in ascending order.
type MultiMap interface {
	// Keys returns the number of keys with at least one value.
	Keys() int
	// Count returns the number of values related to key.
	Count(key int) int
	// AddTo adds every value related to key to dst.
	AddTo(key int, dst *roaring.Bitmap)
	// ForEach calls fn for each value of key in ascending order until fn
	// returns false. It reports whether the walk ran to completion.
	ForEach(key int, fn func(value int) bool) bool
	// Bound returns one past the largest stored value, or 0 when empty.
	Bound() int
}

// OpenMultiMap decodes a multimap occupying all of b.
func OpenMultiMap(b buf.Buffer) (MultiMap, error) {
	r := b.Reader()
	kind := r.Int32()
	groups := r.Length()
	keys := r.Next(4 * groups)
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: multimap header: %w", errs.ErrCorrupt, err)
	}
	for i := 1; i < groups; i++ {
		if keys.Int32At(4*(i-1)) >= keys.Int32At(4*i) {
			return nil, fmt.Errorf("%w: multimap key %d is out of order", errs.ErrCorrupt, i)
		}
	}
	t := keyTable{groups: groups, keys: keys}

	switch kind {
	case multiGrouped:
		offsets := r.Next(4 * (groups + 1))
		if err := r.Err(); err != nil {
			return nil, fmt.Errorf("%w: multimap offsets: %w", errs.ErrCorrupt, err)
		}
		values := r.Rest()
		prev := int32(0)
		for i := 0; i <= groups; i++ {
			off := offsets.Int32At(4 * i)
			if (i == 0 && off != 0) || off < prev {
				return nil, fmt.Errorf("%w: multimap offset %d = %d", errs.ErrCorrupt, i, off)
			}
			prev = off
		}
		if int64(prev)*4 != int64(values.Len()) {
			return nil, fmt.Errorf("%w: multimap holds %d of %d value bytes", errs.ErrCorrupt, int64(prev)*4, values.Len())
		}
		bound := 0
		for i := 0; i < int(prev); i++ {
			v := values.Int32At(4 * i)
			if v < 0 {
				return nil, fmt.Errorf("%w: multimap value %d is negative", errs.ErrCorrupt, v)
			}
			bound = max(bound, int(v)+1)
		}
		t.bound = bound
		return &groupedMultiMap{keyTable: t, offsets: offsets, values: values}, nil

	case multiRoaring:
		offsets := r.Next(8 * (groups + 1))
		if err := r.Err(); err != nil {
			return nil, fmt.Errorf("%w: multimap offsets: %w", errs.ErrCorrupt, err)
		}
		data := r.Rest()
		bitmaps := make([]*roaring.Bitmap, groups)
		prev := int64(0)
		for i := 0; i < groups; i++ {
			start := offsets.Int64At(8 * i)
			end := offsets.Int64At(8 * (i + 1))
			if start != prev || end < start || end > int64(data.Len()) {
				return nil, fmt.Errorf("%w: multimap bitmap %d spans [%d, %d)", errs.ErrCorrupt, i, start, end)
			}
			rb := roaring.New()
			if _, err := rb.FromBuffer(data.Bytes()[start:end]); err != nil {
				return nil, fmt.Errorf("%w: multimap bitmap %d: %w", errs.ErrCorrupt, i, err)
			}
			bitmaps[i] = rb
			if !rb.IsEmpty() {
				t.bound = max(t.bound, int(rb.Maximum())+1)
			}
			prev = end
		}
		if prev != int64(data.Len()) || offsets.Int64At(8*groups) != prev {
			return nil, fmt.Errorf("%w: multimap bitmaps cover %d of %d bytes", errs.ErrCorrupt, prev, data.Len())
		}
		return &roaringMultiMap{keyTable: t, bitmaps: bitmaps}, nil

	default:
		return nil, fmt.Errorf("%w: multimap kind %d", errs.ErrFormat, kind)
	}
}

type keyTable struct {
	groups int
	keys   buf.Buffer
	bound  int
}

func (t keyTable) Keys() int { return t.groups }

func (t keyTable) Bound() int { return t.bound }

// group returns the position of key in the key table.
func (t keyTable) group(key int) (int, bool) {
	if key < 0 {
		return -1, false
	}
	// dictionary keys are usually dense, so try the identity slot first
	if key < t.groups && int(t.keys.Int32At(4*key)) == key {
		return key, true
	}
	i := sort.Search(t.groups, func(i int) bool { return int(t.keys.Int32At(4*i)) >= key })
	if i == t.groups || int(t.keys.Int32At(4*i)) != key {
		return -1, false
	}
	return i, true
}

type groupedMultiMap struct {
	keyTable
	offsets buf.Buffer
	values  buf.Buffer
}

func (m *groupedMultiMap) span(key int) (int, int) {
	g, ok := m.group(key)
	if !ok {
		return 0, 0
	}
	return int(m.offsets.Int32At(4 * g)), int(m.offsets.Int32At(4 * (g + 1)))
}

func (m *groupedMultiMap) Count(key int) int {
	start, end := m.span(key)
	return end - start
}

func (m *groupedMultiMap) AddTo(key int, dst *roaring.Bitmap) {
	start, end := m.span(key)
	for i := start; i < end; i++ {
		dst.Add(uint32(m.values.Int32At(4 * i)))
	}
}

func (m *groupedMultiMap) ForEach(key int, fn func(int) bool) bool {
	start, end := m.span(key)
	for i := start; i < end; i++ {
		if !fn(int(m.values.Int32At(4 * i))) {
			return false
		}
	}
	return true
}

type roaringMultiMap struct {
	keyTable
	bitmaps []*roaring.Bitmap
}

func (m *roaringMultiMap) Count(key int) int {
	g, ok := m.group(key)
	if !ok {
		return 0
	}
	return int(m.bitmaps[g].GetCardinality())
}

func (m *roaringMultiMap) AddTo(key int, dst *roaring.Bitmap) {
	if g, ok := m.group(key); ok {
		dst.Or(m.bitmaps[g])
	}
}

func (m *roaringMultiMap) ForEach(key int, fn func(int) bool) bool {
	g, ok := m.group(key)
	if !ok {
		return true
	}
	it := m.bitmaps[g].Iterator()
	for it.HasNext() {
		if !fn(int(it.Next())) {
			return false
		}
	}
	return true
}
