package sortedset

import (
	"fmt"
	"sort"

	"github.com/hupe1980/yocto/internal/buf"
	"github.com/hupe1980/yocto/internal/errs"
	"github.com/hupe1980/yocto/internal/indexedlist"
	"github.com/hupe1980/yocto/internal/ubytes"
)

// Dictionary is the read-side view of a frozen Set.
//
// Values are strictly ascending in unsigned lexicographic order over their
// dense indices. Implementations are immutable and safe for concurrent use.
type Dictionary interface {
	// Len returns the number of distinct values.
	Len() int
	// Get returns the value at index i or ErrOutOfRange.
	Get(i int) ([]byte, error)
	// IndexOf returns the index of v; ok is false when v is absent.
	IndexOf(v []byte) (i int, ok bool)
	// LowerBound returns the first index whose value is >= v.
	LowerBound(v []byte) int
	// UpperBound returns the first index whose value is > v.
	UpperBound(v []byte) int
}

// Open decodes a dictionary stored with enc.
func Open(b buf.Buffer, enc Encoding) (Dictionary, error) {
	switch enc {
	case Fixed, Variable:
		l, err := indexedlist.Open(b, enc == Fixed)
		if err != nil {
			return nil, err
		}
		return NewListDictionary(l)
	case Prefix:
		return OpenPrefix(b)
	default:
		return nil, fmt.Errorf("%w: dictionary encoding %s", errs.ErrFormat, enc)
	}
}

// ListDictionary is a dictionary stored as a FIXED or VARIABLE indexed list.
// Values are views into the underlying buffer.
type ListDictionary struct {
	list indexedlist.List
}

var _ Dictionary = (*ListDictionary)(nil)

// NewListDictionary wraps l after checking that it is strictly ascending.
func NewListDictionary(l indexedlist.List) (*ListDictionary, error) {
	for i := 1; i < l.Len(); i++ {
		if ubytes.Compare(l.At(i-1), l.At(i)) >= 0 {
			return nil, fmt.Errorf("%w: dictionary value %d is out of order", errs.ErrCorrupt, i)
		}
	}
	return &ListDictionary{list: l}, nil
}

// Len implements Dictionary.
func (d *ListDictionary) Len() int { return d.list.Len() }

// Get implements Dictionary.
func (d *ListDictionary) Get(i int) ([]byte, error) { return d.list.Get(i) }

// IndexOf implements Dictionary.
func (d *ListDictionary) IndexOf(v []byte) (int, bool) {
	i := d.LowerBound(v)
	if i < d.list.Len() && ubytes.Equal(d.list.At(i), v) {
		return i, true
	}
	return -1, false
}

// LowerBound implements Dictionary.
func (d *ListDictionary) LowerBound(v []byte) int {
	return sort.Search(d.list.Len(), func(i int) bool {
		return ubytes.Compare(d.list.At(i), v) >= 0
	})
}

// UpperBound implements Dictionary.
func (d *ListDictionary) UpperBound(v []byte) int {
	return sort.Search(d.list.Len(), func(i int) bool {
		return ubytes.Compare(d.list.At(i), v) > 0
	})
}

// PrefixRange returns the index range [lo, hi) of values starting with p.
func PrefixRange(d Dictionary, p []byte) (lo, hi int) {
	lo = d.LowerBound(p)
	end := ubytes.PrefixEnd(p)
	if end == nil {
		return lo, d.Len()
	}
	return lo, d.LowerBound(end)
}
