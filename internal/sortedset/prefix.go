package sortedset

import (
	"fmt"
	"io"
	"sort"

	"github.com/hupe1980/yocto/internal/buf"
	"github.com/hupe1980/yocto/internal/errs"
	"github.com/hupe1980/yocto/internal/ubytes"
)

// DefaultRestartInterval is the number of entries per front-coded block.
const DefaultRestartInterval = 16

// Front-coded layout:
//
//	count int32 | restartInterval int32 | restarts int32 |
//	restartOffsets int32[restarts] | entries
//
// entry = shared uvarint | unshared uvarint | suffix[unshared]
//
// The first entry of every block stores its full value (shared == 0), so a
// lookup binary searches block heads and decodes at most one block.

func restartCount(count, interval int) int {
	return (count + interval - 1) / interval
}

func sharedPrefix(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

func prefixSize(sorted [][]byte, interval int) int64 {
	size := int64(12 + 4*restartCount(len(sorted), interval))
	var prev []byte
	for i, v := range sorted {
		shared := 0
		if i%interval != 0 {
			shared = sharedPrefix(prev, v)
		}
		unshared := len(v) - shared
		size += int64(buf.UvarintLen(uint64(shared)) + buf.UvarintLen(uint64(unshared)) + unshared)
		prev = v
	}
	return size
}

func writePrefix(w io.Writer, sorted [][]byte, interval int) (int64, error) {
	bw := buf.NewWriter(w)
	restarts := restartCount(len(sorted), interval)
	bw.Int32(int32(len(sorted)))
	bw.Int32(int32(interval))
	bw.Int32(int32(restarts))

	var (
		off  int64
		prev []byte
	)
	for i, v := range sorted {
		if i%interval == 0 {
			bw.Int32(int32(off))
			prev = nil
		}
		shared := sharedPrefix(prev, v)
		unshared := len(v) - shared
		off += int64(buf.UvarintLen(uint64(shared)) + buf.UvarintLen(uint64(unshared)) + unshared)
		prev = v
	}

	prev = nil
	for i, v := range sorted {
		if i%interval == 0 {
			prev = nil
		}
		shared := sharedPrefix(prev, v)
		bw.Uvarint(uint64(shared))
		bw.Uvarint(uint64(len(v) - shared))
		_, _ = bw.Write(v[shared:])
		prev = v
	}
	return bw.N(), bw.Err()
}

// PrefixDictionary is the read-side view of a front-coded dictionary.
//
// Values are reconstructed on access, so Get returns a fresh slice rather
// than a view into the buffer.
type PrefixDictionary struct {
	count    int
	interval int
	restarts buf.Buffer
	entries  buf.Buffer
}

var _ Dictionary = (*PrefixDictionary)(nil)

// OpenPrefix decodes a front-coded dictionary occupying all of b. Every entry
// is walked once to check framing and strict ascending order.
func OpenPrefix(b buf.Buffer) (*PrefixDictionary, error) {
	r := b.Reader()
	count := r.Length()
	interval := r.Length()
	restarts := r.Length()
	offsets := r.Next(4 * restarts)
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: prefix dictionary header: %w", errs.ErrCorrupt, err)
	}
	if interval <= 0 || restarts != restartCount(count, interval) {
		return nil, fmt.Errorf("%w: prefix dictionary of %d values with interval %d has %d restarts",
			errs.ErrCorrupt, count, interval, restarts)
	}

	d := &PrefixDictionary{
		count:    count,
		interval: interval,
		restarts: offsets,
		entries:  r.Rest(),
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *PrefixDictionary) validate() error {
	r := d.entries.Reader()
	var prev, cur []byte
	for i := 0; i < d.count; i++ {
		if i%d.interval == 0 {
			if want := int(d.restarts.Int32At(4 * (i / d.interval))); want != r.Position() {
				return fmt.Errorf("%w: prefix dictionary restart %d at %d, expected %d",
					errs.ErrCorrupt, i/d.interval, want, r.Position())
			}
		}
		shared := r.Uvarint()
		unshared := r.Uvarint()
		if r.Err() == nil && (shared > uint64(len(cur)) || (i%d.interval == 0 && shared != 0)) {
			return fmt.Errorf("%w: prefix dictionary entry %d shares %d bytes", errs.ErrCorrupt, i, shared)
		}
		if unshared > uint64(r.Remaining()) {
			return fmt.Errorf("%w: prefix dictionary entry %d is truncated", errs.ErrCorrupt, i)
		}
		suffix := r.Next(int(unshared))
		if err := r.Err(); err != nil {
			return fmt.Errorf("%w: prefix dictionary entry %d: %w", errs.ErrCorrupt, i, err)
		}
		cur = append(cur[:shared], suffix.Bytes()...)
		if i > 0 && ubytes.Compare(prev, cur) >= 0 {
			return fmt.Errorf("%w: prefix dictionary entry %d is out of order", errs.ErrCorrupt, i)
		}
		prev = append(prev[:0], cur...)
	}
	if r.Remaining() != 0 {
		return fmt.Errorf("%w: prefix dictionary has %d trailing bytes", errs.ErrCorrupt, r.Remaining())
	}
	return nil
}

// Len implements Dictionary.
func (d *PrefixDictionary) Len() int { return d.count }

// block returns a reader positioned at the head of block b.
func (d *PrefixDictionary) block(b int) *buf.Reader {
	r := d.entries.Reader()
	r.Next(int(d.restarts.Int32At(4 * b)))
	return r
}

// head returns the full first value of block b without copying.
func (d *PrefixDictionary) head(b int) []byte {
	r := d.block(b)
	r.Uvarint()
	n := r.Uvarint()
	return r.Next(int(n)).Bytes()
}

// scan decodes block b, calling fn with each entry's index and value until
// fn returns false. The value slice is reused between calls.
func (d *PrefixDictionary) scan(b int, fn func(i int, v []byte) bool) {
	r := d.block(b)
	var cur []byte
	end := min((b+1)*d.interval, d.count)
	for i := b * d.interval; i < end; i++ {
		shared := r.Uvarint()
		unshared := r.Uvarint()
		cur = append(cur[:shared], r.Next(int(unshared)).Bytes()...)
		if !fn(i, cur) {
			return
		}
	}
}

// Get implements Dictionary.
func (d *PrefixDictionary) Get(i int) ([]byte, error) {
	if i < 0 || i >= d.count {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", errs.ErrOutOfRange, i, d.count)
	}
	var out []byte
	d.scan(i/d.interval, func(j int, v []byte) bool {
		if j == i {
			out = append([]byte{}, v...)
			return false
		}
		return true
	})
	return out, nil
}

// bound returns the first index whose value is >= v (strict == false) or > v
// (strict == true).
func (d *PrefixDictionary) bound(v []byte, strict bool) int {
	past := func(x []byte) bool {
		c := ubytes.Compare(x, v)
		if strict {
			return c > 0
		}
		return c >= 0
	}

	blocks := d.restarts.Len() / 4
	b := sort.Search(blocks, func(b int) bool { return past(d.head(b)) })
	if b == 0 {
		return 0
	}
	res := min(b*d.interval, d.count)
	d.scan(b-1, func(i int, x []byte) bool {
		if past(x) {
			res = i
			return false
		}
		return true
	})
	return res
}

// LowerBound implements Dictionary.
func (d *PrefixDictionary) LowerBound(v []byte) int { return d.bound(v, false) }

// UpperBound implements Dictionary.
func (d *PrefixDictionary) UpperBound(v []byte) int { return d.bound(v, true) }

// IndexOf implements Dictionary.
func (d *PrefixDictionary) IndexOf(v []byte) (int, bool) {
	i := d.LowerBound(v)
	if i >= d.count {
		return -1, false
	}
	found := false
	d.scan(i/d.interval, func(j int, x []byte) bool {
		if j == i {
			found = ubytes.Equal(x, v)
			return false
		}
		return true
	})
	if !found {
		return -1, false
	}
	return i, true
}
