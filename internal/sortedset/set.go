package sortedset

import (
	"fmt"
	"io"
	"slices"

	"github.com/hupe1980/yocto/internal/errs"
	"github.com/hupe1980/yocto/internal/indexedlist"
	"github.com/hupe1980/yocto/internal/ubytes"
)

// Encoding selects the physical layout of a frozen dictionary.
type Encoding int

const (
	// Fixed stores all values with one shared length in a flat array.
	Fixed Encoding = iota
	// Variable stores values behind an offset table.
	Variable
	// Prefix front-codes sorted values in restart blocks.
	Prefix
)

func (e Encoding) String() string {
	switch e {
	case Fixed:
		return "fixed"
	case Variable:
		return "variable"
	case Prefix:
		return "prefix"
	default:
		return fmt.Sprintf("Encoding(%d)", int(e))
	}
}

// Set is the build-side dictionary of one field.
//
// Add deduplicates values and hands out provisional ids in insertion order.
// Freeze sorts the distinct values once; after that Index maps a provisional
// id to its final dictionary index and IndexOf binary searches the sorted
// values. A Set is not safe for concurrent mutation.
type Set struct {
	enc      Encoding
	elemSize int

	ids    map[string]int
	values [][]byte

	frozen  bool
	sorted  [][]byte
	remap   []int
	encoded *indexedlist.Builder
}

// New returns an empty set using enc.
func New(enc Encoding) *Set {
	return &Set{
		enc:      enc,
		elemSize: -1,
		ids:      make(map[string]int),
	}
}

// ElementSize returns the shared value length of a Fixed set, or -1 before
// the first value.
func (s *Set) ElementSize() int { return s.elemSize }

// Encoding returns the layout the set encodes to.
func (s *Set) Encoding() Encoding { return s.enc }

// Size returns the number of distinct values.
func (s *Set) Size() int { return len(s.values) }

// Frozen reports whether Freeze has been called.
func (s *Set) Frozen() bool { return s.frozen }

// Check reports whether v could be added.
func (s *Set) Check(v []byte) error {
	if s.frozen {
		return errs.ErrFrozen
	}
	if s.enc == Fixed && s.elemSize >= 0 && len(v) != s.elemSize {
		return fmt.Errorf("%w: fixed value length %d, got %d", errs.ErrMalformed, s.elemSize, len(v))
	}
	return nil
}

// Add inserts v if absent and returns its provisional id. The id becomes a
// dictionary index through Index once the set is frozen.
func (s *Set) Add(v []byte) (int, error) {
	if err := s.Check(v); err != nil {
		return -1, err
	}
	key := ubytes.Key(v)
	if id, ok := s.ids[key]; ok {
		return id, nil
	}
	if s.enc == Fixed && s.elemSize < 0 {
		s.elemSize = len(v)
	}
	id := len(s.values)
	s.ids[key] = id
	s.values = append(s.values, []byte(key))
	return id, nil
}

// Freeze sorts the set. It is idempotent.
func (s *Set) Freeze() {
	if s.frozen {
		return
	}
	order := make([]int, len(s.values))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int {
		return ubytes.Compare(s.values[a], s.values[b])
	})

	s.sorted = make([][]byte, len(order))
	s.remap = make([]int, len(order))
	for idx, id := range order {
		s.sorted[idx] = s.values[id]
		s.remap[id] = idx
	}
	s.ids = nil
	s.frozen = true

	if s.enc != Prefix {
		s.encoded = indexedlist.NewVariable()
		if s.enc == Fixed {
			s.encoded = indexedlist.NewFixed()
		}
		for _, v := range s.sorted {
			// lengths were validated by Check on the way in
			_ = s.encoded.Add(v)
		}
	}
}

// Index maps a provisional id to its dictionary index.
func (s *Set) Index(id int) (int, error) {
	if !s.frozen {
		return -1, fmt.Errorf("%w: set is not frozen", errs.ErrMalformed)
	}
	if id < 0 || id >= len(s.remap) {
		return -1, fmt.Errorf("%w: id %d not in [0, %d)", errs.ErrOutOfRange, id, len(s.remap))
	}
	return s.remap[id], nil
}

// IndexOf returns the dictionary index of v after freeze.
func (s *Set) IndexOf(v []byte) (int, bool) {
	if !s.frozen {
		return -1, false
	}
	return slices.BinarySearchFunc(s.sorted, v, ubytes.Compare)
}

// Get returns the value at dictionary index i after freeze.
func (s *Set) Get(i int) ([]byte, error) {
	if !s.frozen {
		return nil, fmt.Errorf("%w: set is not frozen", errs.ErrMalformed)
	}
	if i < 0 || i >= len(s.sorted) {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", errs.ErrOutOfRange, i, len(s.sorted))
	}
	return s.sorted[i], nil
}

// SizeInBytes returns the encoded size. It is zero until the set is frozen.
func (s *Set) SizeInBytes() int64 {
	if !s.frozen {
		return 0
	}
	if s.enc == Prefix {
		return prefixSize(s.sorted, DefaultRestartInterval)
	}
	return s.encoded.SizeInBytes()
}

// WriteTo encodes the frozen set.
func (s *Set) WriteTo(w io.Writer) (int64, error) {
	if !s.frozen {
		return 0, fmt.Errorf("%w: set is not frozen", errs.ErrMalformed)
	}
	if s.enc == Prefix {
		return writePrefix(w, s.sorted, DefaultRestartInterval)
	}
	return s.encoded.WriteTo(w)
}
