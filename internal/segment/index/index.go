package index

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/yocto/internal/errs"
	"github.com/hupe1980/yocto/internal/relation"
	"github.com/hupe1980/yocto/internal/segment"
	"github.com/hupe1980/yocto/internal/sortedset"
)

// Index is the read-side view of an index segment. All state is immutable
// and safe for concurrent use.
type Index struct {
	name        string
	code        segment.Code
	dict        sortedset.Dictionary
	valueToDocs relation.MultiMap
	docToValue  relation.Map // nil unless Full
}

// Open parses an index segment. It fails with ErrFormat for codes that are
// not index kinds.
func Open(raw segment.Raw) (*Index, error) {
	var (
		enc  sortedset.Encoding
		full bool
	)
	switch raw.Code {
	case segment.CodeFilterableFixed:
		enc = sortedset.Fixed
	case segment.CodeFilterableVariable:
		enc = sortedset.Variable
	case segment.CodeFullFixed:
		enc, full = sortedset.Fixed, true
	case segment.CodeFullVariable:
		enc, full = sortedset.Variable, true
	case segment.CodeTrie:
		enc = sortedset.Prefix
	default:
		return nil, fmt.Errorf("%w: %s is not an index segment", errs.ErrFormat, raw.Code)
	}

	r := raw.Body.Reader()
	name, err := segment.ReadName(r)
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*Index, error) {
		return nil, fmt.Errorf("field %q: %w", name, err)
	}

	valuesBlock, err := segment.ReadBlock(r, "values")
	if err != nil {
		return fail(err)
	}
	dict, err := sortedset.Open(valuesBlock, enc)
	if err != nil {
		return fail(err)
	}

	docsBlock, err := segment.ReadBlock(r, "value to documents")
	if err != nil {
		return fail(err)
	}
	valueToDocs, err := relation.OpenMultiMap(docsBlock)
	if err != nil {
		return fail(err)
	}
	if valueToDocs.Keys() != dict.Len() {
		return fail(fmt.Errorf("%w: %d value groups for %d values", errs.ErrCorrupt, valueToDocs.Keys(), dict.Len()))
	}

	idx := &Index{
		name:        name,
		code:        raw.Code,
		dict:        dict,
		valueToDocs: valueToDocs,
	}

	if full {
		mapBlock, err := segment.ReadBlock(r, "document to value")
		if err != nil {
			return fail(err)
		}
		docToValue, err := relation.OpenMap(mapBlock)
		if err != nil {
			return fail(err)
		}
		for doc := 0; doc < docToValue.Len(); doc++ {
			if v, ok := docToValue.Get(doc); ok && v >= dict.Len() {
				return fail(fmt.Errorf("%w: document %d maps to value %d of %d", errs.ErrCorrupt, doc, v, dict.Len()))
			}
		}
		idx.docToValue = docToValue
	}

	if r.Remaining() != 0 {
		return fail(fmt.Errorf("%w: %d trailing bytes", errs.ErrCorrupt, r.Remaining()))
	}
	return idx, nil
}

// Name returns the field name.
func (x *Index) Name() string { return x.name }

// Code returns the segment type code.
func (x *Index) Code() segment.Code { return x.code }

// Dictionary returns the sorted distinct values of the field.
func (x *Index) Dictionary() sortedset.Dictionary { return x.dict }

// Sortable reports whether the index supports ordering and value lookup.
func (x *Index) Sortable() bool { return x.docToValue != nil }

// Filter adds the documents holding value v to dst and reports whether v is
// present in the dictionary. A miss is not an error.
func (x *Index) Filter(v []byte, dst *roaring.Bitmap) bool {
	i, ok := x.dict.IndexOf(v)
	if !ok {
		return false
	}
	x.valueToDocs.AddTo(i, dst)
	return true
}

// FilterRange adds the documents of dictionary indices [lo, hi) to dst.
func (x *Index) FilterRange(lo, hi int, dst *roaring.Bitmap) {
	lo = max(lo, 0)
	hi = min(hi, x.dict.Len())
	for i := lo; i < hi; i++ {
		x.valueToDocs.AddTo(i, dst)
	}
}

// FilterPrefix adds the documents of every value starting with p to dst.
func (x *Index) FilterPrefix(p []byte, dst *roaring.Bitmap) {
	lo, hi := sortedset.PrefixRange(x.dict, p)
	x.FilterRange(lo, hi, dst)
}

// Count returns the number of documents holding the value at dictionary
// index i.
func (x *Index) Count(i int) int { return x.valueToDocs.Count(i) }

// Documents calls fn for each document holding the value at dictionary index
// i, in ascending document order, until fn returns false. It reports whether
// the walk ran to completion.
func (x *Index) Documents(i int, fn func(doc int) bool) bool {
	return x.valueToDocs.ForEach(i, fn)
}

// ForEachOrdered calls fn with documents in value order, ascending or
// descending, ties broken by ascending document id, until fn returns false.
func (x *Index) ForEachOrdered(desc bool, fn func(doc int) bool) error {
	if !x.Sortable() {
		return fmt.Errorf("field %q: %w", x.name, errs.ErrNotSortable)
	}
	n := x.dict.Len()
	for k := 0; k < n; k++ {
		i := k
		if desc {
			i = n - 1 - k
		}
		if !x.valueToDocs.ForEach(i, fn) {
			return nil
		}
	}
	return nil
}

// DocumentBound returns one past the largest document id any value points
// at. A valid index never exceeds the database documents count.
func (x *Index) DocumentBound() int { return x.valueToDocs.Bound() }

// MappedDocuments returns how many documents the document to value map
// covers. ok is false for indexes without that map.
func (x *Index) MappedDocuments() (n int, ok bool) {
	if x.docToValue == nil {
		return 0, false
	}
	return x.docToValue.Len(), true
}

// ValueIndexOf returns the dictionary index of doc's value.
func (x *Index) ValueIndexOf(doc int) (int, bool) {
	if x.docToValue == nil {
		return -1, false
	}
	return x.docToValue.Get(doc)
}

// ValueOf returns the value of doc. The index must be sortable.
func (x *Index) ValueOf(doc int) ([]byte, error) {
	if x.docToValue == nil {
		return nil, fmt.Errorf("field %q: %w", x.name, errs.ErrNotSortable)
	}
	i, ok := x.docToValue.Get(doc)
	if !ok {
		return nil, fmt.Errorf("field %q: document %d: %w", x.name, doc, errs.ErrOutOfRange)
	}
	return x.dict.Get(i)
}
