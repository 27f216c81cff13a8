package yocto

import (
	"iter"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// DocSet is an immutable-by-convention set of document ids returned by
// filters. It wraps a 32-bit roaring bitmap.
type DocSet struct {
	rb *roaring.Bitmap
}

// docSetPool reuses bitmaps for the intermediate sets of query evaluation.
var docSetPool = sync.Pool{
	New: func() any {
		return &DocSet{rb: roaring.New()}
	},
}

func getDocSet() *DocSet {
	s := docSetPool.Get().(*DocSet)
	s.rb.Clear()
	return s
}

func putDocSet(s *DocSet) {
	if s == nil {
		return
	}
	s.rb.Clear()
	docSetPool.Put(s)
}

// NewDocSet returns a set holding docs.
func NewDocSet(docs ...int) *DocSet {
	s := &DocSet{rb: roaring.New()}
	for _, d := range docs {
		s.rb.Add(uint32(d))
	}
	return s
}

// Contains reports whether doc is in the set.
func (s *DocSet) Contains(doc int) bool {
	return doc >= 0 && s.rb.Contains(uint32(doc))
}

// Len returns the number of documents in the set.
func (s *DocSet) Len() int {
	return int(s.rb.GetCardinality())
}

// IsEmpty reports whether the set has no documents.
func (s *DocSet) IsEmpty() bool {
	return s.rb.IsEmpty()
}

// ForEach calls fn for each document in ascending order until fn returns
// false.
func (s *DocSet) ForEach(fn func(doc int) bool) {
	it := s.rb.Iterator()
	for it.HasNext() {
		if !fn(int(it.Next())) {
			break
		}
	}
}

// All returns an iterator over the documents in ascending order.
func (s *DocSet) All() iter.Seq[int] {
	return func(yield func(int) bool) {
		it := s.rb.Iterator()
		for it.HasNext() {
			if !yield(int(it.Next())) {
				return
			}
		}
	}
}

// ToSlice returns the documents in ascending order.
func (s *DocSet) ToSlice() []int {
	out := make([]int, 0, s.Len())
	s.ForEach(func(doc int) bool {
		out = append(out, doc)
		return true
	})
	return out
}

// Clone returns a deep copy of the set.
func (s *DocSet) Clone() *DocSet {
	return &DocSet{rb: s.rb.Clone()}
}

// And returns the intersection of s and o.
func (s *DocSet) And(o *DocSet) *DocSet {
	return &DocSet{rb: roaring.And(s.rb, o.rb)}
}

// Or returns the union of s and o.
func (s *DocSet) Or(o *DocSet) *DocSet {
	return &DocSet{rb: roaring.Or(s.rb, o.rb)}
}
