package segment

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/yocto/internal/buf"
	"github.com/hupe1980/yocto/internal/errs"
	"github.com/hupe1980/yocto/internal/hash"
)

func writeFrame(t *testing.T, f *Frame) []byte {
	t.Helper()
	var out bytes.Buffer
	n, err := f.WriteTo(&out)
	require.NoError(t, err)
	require.Equal(t, f.SizeInBytes(), n)
	require.Equal(t, int64(out.Len()), n)
	return out.Bytes()
}

func TestFrame_RoundTrip(t *testing.T) {
	alg := hash.Default()
	f := NewNamedFrame(CodeFullFixed, "color", alg, Bytes("values"), Bytes(""), Bytes("docs")).
		WithPrefix([]byte{0x02})
	raw := writeFrame(t, f)

	assert.Equal(t, int64(len(raw)-HeaderSize), int64(binary.BigEndian.Uint64(raw)))
	assert.Equal(t, int32(CodeFullFixed), int32(binary.BigEndian.Uint32(raw[8:])))

	r := buf.New(raw).Reader()
	seg, err := Read(r, alg, true)
	require.NoError(t, err)
	assert.Equal(t, CodeFullFixed, seg.Code)
	assert.Equal(t, int64(len(raw)), seg.Size)
	assert.Equal(t, 0, r.Remaining())

	br := seg.Body.Reader()
	name, err := ReadName(br)
	require.NoError(t, err)
	assert.Equal(t, "color", name)
	assert.Equal(t, uint8(0x02), br.Uint8())
	for _, want := range []string{"values", "", "docs"} {
		b, err := ReadBlock(br, "test")
		require.NoError(t, err)
		assert.Equal(t, want, string(b.Bytes()))
	}
	assert.Equal(t, 0, br.Remaining())
}

func TestFrame_Unnamed(t *testing.T) {
	alg, err := hash.Lookup("BLAKE2B-128")
	require.NoError(t, err)
	raw := writeFrame(t, NewFrame(CodePayload, alg, Bytes("p")))

	seg, err := Read(buf.New(raw).Reader(), alg, true)
	require.NoError(t, err)
	b, err := ReadBlock(seg.Body.Reader(), "payload")
	require.NoError(t, err)
	assert.Equal(t, "p", string(b.Bytes()))
}

type lyingBlock struct{ declared, actual int }

func (l lyingBlock) SizeInBytes() int64 { return int64(l.declared) }
func (l lyingBlock) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(make([]byte, l.actual))
	return int64(n), err
}

func TestFrame_SizeMismatch(t *testing.T) {
	f := NewFrame(CodePayload, hash.Default(), lyingBlock{declared: 4, actual: 5})
	_, err := f.WriteTo(io.Discard)
	assert.ErrorIs(t, err, errs.ErrSizeMismatch)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestFrame_WriteError(t *testing.T) {
	f := NewFrame(CodePayload, hash.Default(), Bytes("abc"))
	_, err := f.WriteTo(failingWriter{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, errs.ErrSizeMismatch)
}

func TestRead_DetectsEveryFlippedByte(t *testing.T) {
	alg := hash.Default()
	raw := writeFrame(t, NewNamedFrame(CodeFilterableVariable, "tag", alg, Bytes("abc"), Bytes("defg")))

	for i := HeaderSize; i < len(raw); i++ {
		corrupt := bytes.Clone(raw)
		corrupt[i] ^= 0x01
		_, err := Read(buf.New(corrupt).Reader(), alg, true)
		assert.ErrorIs(t, err, errs.ErrCorrupt, "flipped byte %d", i)
	}
}

func TestRead_SkipsVerification(t *testing.T) {
	alg := hash.Default()
	raw := writeFrame(t, NewFrame(CodePayload, alg, Bytes("abc")))
	raw[HeaderSize+8] ^= 0xff

	_, err := Read(buf.New(raw).Reader(), alg, false)
	assert.NoError(t, err)
}

func TestRead_BadLength(t *testing.T) {
	alg := hash.Default()
	raw := writeFrame(t, NewFrame(CodePayload, alg, Bytes("abc")))

	_, err := Read(buf.New(raw[:len(raw)-1]).Reader(), alg, true)
	assert.ErrorIs(t, err, errs.ErrCorrupt)

	_, err = Read(buf.New(raw[:6]).Reader(), alg, true)
	assert.ErrorIs(t, err, errs.ErrCorrupt)

	tiny := binary.BigEndian.AppendUint64(nil, 3)
	tiny = binary.BigEndian.AppendUint32(tiny, 1)
	tiny = append(tiny, 1, 2, 3)
	_, err = Read(buf.New(tiny).Reader(), alg, true)
	assert.ErrorIs(t, err, errs.ErrCorrupt)
}

func TestReadName_Empty(t *testing.T) {
	raw := binary.BigEndian.AppendUint32(nil, 0)
	_, err := ReadName(buf.New(raw).Reader())
	assert.ErrorIs(t, err, errs.ErrCorrupt)
}

func TestCode_String(t *testing.T) {
	assert.Equal(t, "trie", CodeTrie.String())
	assert.Equal(t, "Code(42)", Code(42).String())
}
