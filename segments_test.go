package yocto

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/yocto/internal/hash"
	"github.com/hupe1980/yocto/internal/segment"
	"github.com/hupe1980/yocto/internal/segment/index"
	"github.com/hupe1980/yocto/internal/segment/payload"
)

func TestOpen_RejectsDocumentsBeyondPayload(t *testing.T) {
	digest := hash.Default()

	pb := payload.NewBuilder(digest, payload.CodecNone, 0)
	for doc := 0; doc < 3; doc++ {
		require.NoError(t, pb.AddDocument(doc, []byte{byte(doc)}))
	}
	pw, err := pb.BuildWritable()
	require.NoError(t, err)

	// no documents count is declared, so the builder cannot catch doc 7
	ib := index.NewBuilder("color", index.Filterable, false, digest)
	require.NoError(t, ib.AddDocument(0, [][]byte{[]byte("red")}))
	require.NoError(t, ib.AddDocument(7, [][]byte{[]byte("blue")}))
	iw, err := ib.BuildWritable()
	require.NoError(t, err)

	w := &Writable{digest: digest, segments: []segment.Writable{iw, pw}, docs: 3}
	var out bytes.Buffer
	_, err = w.WriteTo(&out)
	require.NoError(t, err)

	_, err = FromBytes(out.Bytes())
	require.ErrorIs(t, err, ErrCorrupt)
	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "color", fe.Field)
	assert.ErrorContains(t, err, "document 7 of 3")
}
