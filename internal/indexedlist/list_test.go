package indexedlist

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/yocto/internal/buf"
	"github.com/hupe1980/yocto/internal/errs"
)

func encode(t *testing.T, b *Builder) buf.Buffer {
	t.Helper()
	var out bytes.Buffer
	n, err := b.WriteTo(&out)
	require.NoError(t, err)
	require.Equal(t, b.SizeInBytes(), n, "declared size must match written bytes")
	require.Equal(t, int64(out.Len()), n)
	return buf.New(out.Bytes())
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		fixed bool
		elems []string
	}{
		{"fixed empty", true, nil},
		{"fixed one", true, []string{"abcd"}},
		{"fixed many with repeats", true, []string{"aa", "bb", "aa", "zz"}},
		{"fixed zero length", true, []string{"", "", ""}},
		{"variable empty", false, nil},
		{"variable one", false, []string{"hello"}},
		{"variable many", false, []string{"", "x", "longer value", "", "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewVariable()
			if tt.fixed {
				b = NewFixed()
			}
			for _, e := range tt.elems {
				require.NoError(t, b.Add([]byte(e)))
			}

			l, err := Open(encode(t, b), tt.fixed)
			require.NoError(t, err)
			require.Equal(t, len(tt.elems), l.Len())

			for i, e := range tt.elems {
				got, err := l.Get(i)
				require.NoError(t, err)
				assert.Equal(t, e, string(got))
				assert.Equal(t, e, string(l.At(i)))
			}

			_, err = l.Get(len(tt.elems))
			assert.ErrorIs(t, err, errs.ErrOutOfRange)
			_, err = l.Get(-1)
			assert.ErrorIs(t, err, errs.ErrOutOfRange)
		})
	}
}

func TestFixed_LengthMismatch(t *testing.T) {
	b := NewFixed()
	require.NoError(t, b.Add([]byte("abc")))

	err := b.Add([]byte("ab"))
	assert.ErrorIs(t, err, errs.ErrMalformed)
	assert.Equal(t, 1, b.Len(), "rejected element must not be admitted")
	assert.ErrorIs(t, b.Check([]byte("abcd")), errs.ErrMalformed)
	assert.NoError(t, b.Check([]byte("xyz")))
}

func TestAt_PanicsOutOfRange(t *testing.T) {
	b := NewVariable()
	require.NoError(t, b.Add([]byte("a")))
	l, err := OpenVariable(encode(t, b))
	require.NoError(t, err)

	assert.Panics(t, func() { l.At(1) })
}

func TestOpenFixed_Corrupt(t *testing.T) {
	raw := binary.BigEndian.AppendUint32(nil, 4)
	raw = binary.BigEndian.AppendUint32(raw, 3)
	raw = append(raw, make([]byte, 11)...)

	_, err := OpenFixed(buf.New(raw))
	assert.ErrorIs(t, err, errs.ErrCorrupt)

	_, err = OpenFixed(buf.New([]byte{0, 0}))
	assert.ErrorIs(t, err, errs.ErrCorrupt)
}

func TestOpenVariable_Corrupt(t *testing.T) {
	b := NewVariable()
	require.NoError(t, b.Add([]byte("abc")))
	require.NoError(t, b.Add([]byte("de")))
	good := encode(t, b).Clone()

	t.Run("non monotonic offsets", func(t *testing.T) {
		raw := bytes.Clone(good)
		binary.BigEndian.PutUint64(raw[4+8:], 4) // offset[1] beyond offset[2]
		binary.BigEndian.PutUint64(raw[4+16:], 3)
		_, err := OpenVariable(buf.New(raw))
		assert.ErrorIs(t, err, errs.ErrCorrupt)
	})

	t.Run("offset past data", func(t *testing.T) {
		raw := bytes.Clone(good)
		binary.BigEndian.PutUint64(raw[4+16:], 99)
		_, err := OpenVariable(buf.New(raw))
		assert.ErrorIs(t, err, errs.ErrCorrupt)
	})

	t.Run("trailing data", func(t *testing.T) {
		raw := append(bytes.Clone(good), 'x')
		_, err := OpenVariable(buf.New(raw))
		assert.ErrorIs(t, err, errs.ErrCorrupt)
	})

	t.Run("truncated table", func(t *testing.T) {
		_, err := OpenVariable(buf.New(good[:10]))
		assert.ErrorIs(t, err, errs.ErrCorrupt)
	})
}
