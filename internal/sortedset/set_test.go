package sortedset

import (
	"bytes"
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/yocto/internal/buf"
	"github.com/hupe1980/yocto/internal/errs"
	"github.com/hupe1980/yocto/internal/ubytes"
)

func freezeAndOpen(t *testing.T, s *Set) Dictionary {
	t.Helper()
	s.Freeze()

	var out bytes.Buffer
	n, err := s.WriteTo(&out)
	require.NoError(t, err)
	require.Equal(t, s.SizeInBytes(), n)
	require.Equal(t, int64(out.Len()), n)

	d, err := Open(buf.New(out.Bytes()), s.Encoding())
	require.NoError(t, err)
	return d
}

func TestSet_AddDeduplicates(t *testing.T) {
	s := New(Variable)
	a, err := s.Add([]byte("red"))
	require.NoError(t, err)
	b, err := s.Add([]byte("blue"))
	require.NoError(t, err)
	c, err := s.Add([]byte("red"))
	require.NoError(t, err)

	assert.Equal(t, a, c)
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, s.Size())

	s.Freeze()
	ia, err := s.Index(a)
	require.NoError(t, err)
	ib, err := s.Index(b)
	require.NoError(t, err)
	assert.Equal(t, 1, ia, "red sorts after blue")
	assert.Equal(t, 0, ib)

	i, ok := s.IndexOf([]byte("red"))
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	_, ok = s.IndexOf([]byte("green"))
	assert.False(t, ok)
}

func TestSet_FrozenRejectsAdd(t *testing.T) {
	s := New(Fixed)
	_, err := s.Add([]byte("a"))
	require.NoError(t, err)
	s.Freeze()
	s.Freeze()

	_, err = s.Add([]byte("b"))
	assert.ErrorIs(t, err, errs.ErrFrozen)
	assert.Equal(t, 1, s.Size())
}

func TestSet_FixedLength(t *testing.T) {
	s := New(Fixed)
	assert.Equal(t, -1, s.ElementSize())
	_, err := s.Add([]byte("ab"))
	require.NoError(t, err)
	assert.Equal(t, 2, s.ElementSize())

	_, err = s.Add([]byte("abc"))
	assert.ErrorIs(t, err, errs.ErrMalformed)
	assert.Equal(t, 1, s.Size())
}

func TestSet_NotFrozen(t *testing.T) {
	s := New(Variable)
	_, err := s.Add([]byte("x"))
	require.NoError(t, err)

	_, err = s.Index(0)
	assert.ErrorIs(t, err, errs.ErrMalformed)
	_, err = s.WriteTo(&bytes.Buffer{})
	assert.ErrorIs(t, err, errs.ErrMalformed)
	assert.Zero(t, s.SizeInBytes())
}

func randomValues(rng *rand.Rand, n, fixedLen int) [][]byte {
	seen := map[string]bool{}
	var out [][]byte
	for len(out) < n {
		l := fixedLen
		if l < 0 {
			l = rng.Intn(12)
		}
		v := make([]byte, l)
		// a small alphabet with high bytes gives shared prefixes and
		// exercises unsigned comparison
		for i := range v {
			v[i] = []byte{0x00, 'a', 'b', 0x7f, 0x80, 0xff}[rng.Intn(6)]
		}
		if seen[string(v)] {
			if fixedLen == 0 {
				break
			}
			continue
		}
		seen[string(v)] = true
		out = append(out, v)
	}
	return out
}

func TestDictionary_RoundTripLaw(t *testing.T) {
	for _, enc := range []Encoding{Fixed, Variable, Prefix} {
		for _, n := range []int{0, 1, 2, 15, 16, 17, 200} {
			t.Run(fmt.Sprintf("%s/%d", enc, n), func(t *testing.T) {
				rng := rand.New(rand.NewSource(int64(n)))
				fixedLen := -1
				if enc == Fixed {
					fixedLen = 6
				}
				vals := randomValues(rng, n, fixedLen)

				s := New(enc)
				ids := make([]int, len(vals))
				for i, v := range vals {
					id, err := s.Add(v)
					require.NoError(t, err)
					ids[i] = id
				}
				d := freezeAndOpen(t, s)
				require.Equal(t, len(vals), d.Len())

				sorted := append([][]byte(nil), vals...)
				sort.Slice(sorted, func(i, j int) bool { return ubytes.Less(sorted[i], sorted[j]) })

				for i := 0; i < d.Len(); i++ {
					got, err := d.Get(i)
					require.NoError(t, err)
					assert.Equal(t, sorted[i], got)
					if i > 0 {
						prev, _ := d.Get(i - 1)
						assert.True(t, ubytes.Less(prev, got), "strictly ascending at %d", i)
					}
				}

				for i, v := range vals {
					idx, ok := d.IndexOf(v)
					require.True(t, ok)
					want, err := s.Index(ids[i])
					require.NoError(t, err)
					assert.Equal(t, want, idx, "read side agrees with build side")

					got, err := d.Get(idx)
					require.NoError(t, err)
					again, ok := d.IndexOf(got)
					require.True(t, ok)
					assert.Equal(t, idx, again)
				}

				_, err := d.Get(d.Len())
				assert.ErrorIs(t, err, errs.ErrOutOfRange)
			})
		}
	}
}

func TestDictionary_Bounds(t *testing.T) {
	vals := []string{"apple", "apricot", "banana", "blueberry", "cherry"}
	for _, enc := range []Encoding{Variable, Prefix} {
		t.Run(enc.String(), func(t *testing.T) {
			s := New(enc)
			for _, v := range vals {
				_, err := s.Add([]byte(v))
				require.NoError(t, err)
			}
			d := freezeAndOpen(t, s)

			assert.Equal(t, 0, d.LowerBound([]byte("")))
			assert.Equal(t, 0, d.LowerBound([]byte("apple")))
			assert.Equal(t, 1, d.UpperBound([]byte("apple")))
			assert.Equal(t, 2, d.LowerBound([]byte("b")))
			assert.Equal(t, 4, d.UpperBound([]byte("blueberry")))
			assert.Equal(t, 5, d.LowerBound([]byte("zzz")))

			_, ok := d.IndexOf([]byte("apri"))
			assert.False(t, ok)
			_, ok = d.IndexOf([]byte("zzz"))
			assert.False(t, ok)

			lo, hi := PrefixRange(d, []byte("ap"))
			assert.Equal(t, [2]int{0, 2}, [2]int{lo, hi})
			lo, hi = PrefixRange(d, []byte("b"))
			assert.Equal(t, [2]int{2, 4}, [2]int{lo, hi})
			lo, hi = PrefixRange(d, nil)
			assert.Equal(t, [2]int{0, 5}, [2]int{lo, hi})
			lo, hi = PrefixRange(d, []byte("kiwi"))
			assert.Equal(t, lo, hi)
		})
	}
}

func TestPrefix_SmallerThanVariable(t *testing.T) {
	v := New(Variable)
	p := New(Prefix)
	for i := 0; i < 500; i++ {
		key := []byte(fmt.Sprintf("com.example.service/endpoint/%05d", i))
		_, err := v.Add(key)
		require.NoError(t, err)
		_, err = p.Add(key)
		require.NoError(t, err)
	}
	v.Freeze()
	p.Freeze()
	assert.Less(t, p.SizeInBytes(), v.SizeInBytes())
}

func TestOpen_CorruptOrder(t *testing.T) {
	s := New(Fixed)
	for _, v := range []string{"aa", "bb"} {
		_, err := s.Add([]byte(v))
		require.NoError(t, err)
	}
	s.Freeze()
	var out bytes.Buffer
	_, err := s.WriteTo(&out)
	require.NoError(t, err)

	raw := out.Bytes()
	copy(raw[8:], "bbaa")
	_, err = Open(buf.New(raw), Fixed)
	assert.ErrorIs(t, err, errs.ErrCorrupt)
}

func TestOpenPrefix_Corrupt(t *testing.T) {
	s := New(Prefix)
	for _, v := range []string{"alpha", "alphabet", "beta"} {
		_, err := s.Add([]byte(v))
		require.NoError(t, err)
	}
	s.Freeze()
	var out bytes.Buffer
	_, err := s.WriteTo(&out)
	require.NoError(t, err)
	good := out.Bytes()

	t.Run("truncated", func(t *testing.T) {
		_, err := OpenPrefix(buf.New(good[:len(good)-1]))
		assert.ErrorIs(t, err, errs.ErrCorrupt)
	})

	t.Run("bad interval", func(t *testing.T) {
		raw := bytes.Clone(good)
		raw[7] = 0
		_, err := OpenPrefix(buf.New(raw))
		assert.ErrorIs(t, err, errs.ErrCorrupt)
	})

	t.Run("trailing", func(t *testing.T) {
		_, err := OpenPrefix(buf.New(append(bytes.Clone(good), 0)))
		assert.ErrorIs(t, err, errs.ErrCorrupt)
	})
}

func TestDictionary_EmptyValueIsNonNil(t *testing.T) {
	for _, enc := range []Encoding{Variable, Prefix} {
		t.Run(enc.String(), func(t *testing.T) {
			s := New(enc)
			for _, v := range []string{"", "a", "ab"} {
				_, err := s.Add([]byte(v))
				require.NoError(t, err)
			}
			d := freezeAndOpen(t, s)

			got, err := d.Get(0)
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}
