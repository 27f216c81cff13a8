package yocto_test

import (
	"bytes"
	"context"
	"crypto/sha1"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/yocto"
	"github.com/hupe1980/yocto/internal/hash"
	"github.com/hupe1980/yocto/resource"
	"github.com/hupe1980/yocto/testutil"
)

func build(t *testing.T, docs []*yocto.Document, opts ...yocto.Option) []byte {
	t.Helper()
	b, err := yocto.NewDatabaseBuilder(opts...)
	require.NoError(t, err)
	for _, d := range docs {
		_, err := b.Merge(d)
		require.NoError(t, err)
	}
	w, err := b.BuildWritable()
	require.NoError(t, err)
	assert.Equal(t, len(docs), w.DocumentsCount())

	data, err := w.Bytes()
	require.NoError(t, err)
	require.Equal(t, w.SizeInBytes(), int64(len(data)), "declared container size must equal written bytes")
	return data
}

func openBytes(t *testing.T, data []byte, opts ...yocto.Option) *yocto.Database {
	t.Helper()
	db, err := yocto.FromBytes(data, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func colorDocs() []*yocto.Document {
	var docs []*yocto.Document
	for _, c := range []string{"red", "blue", "red"} {
		docs = append(docs, yocto.NewDocument().
			With("color", yocto.Sortable, yocto.Variable, yocto.String(c)).
			WithPayload([]byte("payload-"+c)))
	}
	return docs
}

func TestColorExample(t *testing.T) {
	db := openBytes(t, build(t, colorDocs()))

	assert.Equal(t, 3, db.DocumentsCount())
	assert.Equal(t, []string{"color"}, db.Fields())

	red, err := db.Filter("color", yocto.String("red"))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, red.ToSlice())

	order, err := db.Order("color", yocto.Asc)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 2}, order)

	v, err := db.ValueOf("color", 2)
	require.NoError(t, err)
	assert.Equal(t, "red", string(v))

	p, err := db.Payload(1)
	require.NoError(t, err)
	assert.Equal(t, "payload-blue", string(p))
}

func TestMerge_AssignsDenseIDs(t *testing.T) {
	b, err := yocto.NewDatabaseBuilder()
	require.NoError(t, err)
	for i := range 10 {
		assert.Equal(t, i, b.DocumentsCount())
		_, err := b.Merge(yocto.NewDocument().With("n", yocto.Full, yocto.Fixed, yocto.Int(int32(i))))
		require.NoError(t, err)
	}
	w, err := b.BuildWritable()
	require.NoError(t, err)
	data, err := w.Bytes()
	require.NoError(t, err)

	db := openBytes(t, data)
	assert.Equal(t, 10, db.DocumentsCount())
	for i := range 10 {
		v, err := db.ValueOf("n", i)
		require.NoError(t, err)
		n, err := v.AsInt()
		require.NoError(t, err)
		assert.Equal(t, int32(i), n)
	}
}

func TestMerge_RejectsWithoutSideEffects(t *testing.T) {
	tests := []struct {
		name string
		doc  *yocto.Document
	}{
		{"nil document", nil},
		{"empty field name", yocto.NewDocument().With("", yocto.Filterable, yocto.Variable, yocto.String("x"))},
		{"no values", yocto.NewDocument().With("tag", yocto.Filterable, yocto.Variable)},
		{"sortable arity", yocto.NewDocument().
			With("tag", yocto.Filterable, yocto.Variable, yocto.String("ok")).
			With("price", yocto.Sortable, yocto.Fixed, yocto.Int(1), yocto.Int(2))},
		{"conflicting options in one document", yocto.NewDocument().
			With("tag", yocto.Filterable, yocto.Variable, yocto.String("a")).
			With("tag", yocto.Filterable, yocto.Fixed, yocto.String("b"))},
		{"fixed length mismatch", yocto.NewDocument().
			With("code", yocto.Filterable, yocto.Fixed, yocto.String("ab"), yocto.String("abc"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := yocto.NewDatabaseBuilder()
			require.NoError(t, err)

			_, err = b.Merge(tt.doc)
			require.ErrorIs(t, err, yocto.ErrMalformed)
			var de *yocto.DocumentError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, 0, de.Document)
			assert.Equal(t, 0, b.DocumentsCount())

			_, err = b.Merge(yocto.NewDocument().With("other", yocto.Filterable, yocto.Variable, yocto.String("x")))
			require.NoError(t, err)
			w, err := b.BuildWritable()
			require.NoError(t, err)
			data, err := w.Bytes()
			require.NoError(t, err)

			db := openBytes(t, data)
			assert.Equal(t, 1, db.DocumentsCount())
			assert.Equal(t, []string{"other"}, db.Fields(), "rejected document must not create fields")
		})
	}
}

func TestMerge_FieldDeclarations(t *testing.T) {
	b, err := yocto.NewDatabaseBuilder()
	require.NoError(t, err)
	_, err = b.Merge(yocto.NewDocument().
		With("price", yocto.Sortable, yocto.Fixed, yocto.Int(1)).
		With("tag", yocto.Filterable, yocto.Variable, yocto.String("a")).
		With("path", yocto.FilterableTrie, yocto.Variable, yocto.String("/a")))
	require.NoError(t, err)

	t.Run("options are fixed by the first declaration", func(t *testing.T) {
		_, err := b.Merge(yocto.NewDocument().
			With("price", yocto.Sortable, yocto.Fixed, yocto.Int(2)).
			With("tag", yocto.Sortable, yocto.Variable, yocto.String("b")))
		assert.ErrorIs(t, err, yocto.ErrMalformed)
		var fe *yocto.FieldError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "tag", fe.Field)
	})

	t.Run("sortable and full are interchangeable", func(t *testing.T) {
		_, err := b.Merge(yocto.NewDocument().With("price", yocto.Full, yocto.Fixed, yocto.Int(2)))
		require.NoError(t, err)
	})

	t.Run("trie fields ignore the length option", func(t *testing.T) {
		_, err := b.Merge(yocto.NewDocument().
			With("price", yocto.Sortable, yocto.Fixed, yocto.Int(3)).
			With("path", yocto.FilterableTrie, yocto.Fixed, yocto.String("/abc")))
		require.NoError(t, err)
	})

	t.Run("sortable fields need a value in every document", func(t *testing.T) {
		_, err := b.Merge(yocto.NewDocument().With("tag", yocto.Filterable, yocto.Variable, yocto.String("c")))
		assert.ErrorIs(t, err, yocto.ErrMalformed)
	})

	t.Run("sortable fields cannot start late", func(t *testing.T) {
		_, err := b.Merge(yocto.NewDocument().
			With("price", yocto.Sortable, yocto.Fixed, yocto.Int(4)).
			With("rank", yocto.Sortable, yocto.Fixed, yocto.Int(1)))
		assert.ErrorIs(t, err, yocto.ErrMalformed)
	})

	assert.Equal(t, 3, b.DocumentsCount())
}

func TestBuilder_Frozen(t *testing.T) {
	b, err := yocto.NewDatabaseBuilder()
	require.NoError(t, err)
	_, err = b.BuildWritable()
	require.NoError(t, err)

	_, err = b.Merge(yocto.NewDocument())
	assert.ErrorIs(t, err, yocto.ErrFrozen)
	_, err = b.BuildWritable()
	assert.ErrorIs(t, err, yocto.ErrFrozen)
}

func TestBuilder_Digest(t *testing.T) {
	for _, name := range []string{"MD5", "BLAKE2B-128"} {
		t.Run(name, func(t *testing.T) {
			data := build(t, colorDocs(), yocto.WithDigest(name))
			db := openBytes(t, data, yocto.WithDigest(name))
			assert.Equal(t, 3, db.DocumentsCount())
		})
	}

	t.Run("mismatched reader digest", func(t *testing.T) {
		data := build(t, colorDocs(), yocto.WithDigest("BLAKE2B-128"))
		_, err := yocto.FromBytes(data)
		assert.ErrorIs(t, err, yocto.ErrCorrupt)
	})

	t.Run("rejects a hash whose output differs from its declared size", func(t *testing.T) {
		hash.Register(hash.Algorithm{Name: "SHA1-DECLARED-16", Size: hash.DigestSize, New: sha1.New})
		_, err := yocto.NewDatabaseBuilder(yocto.WithDigest("SHA1-DECLARED-16"))
		assert.ErrorIs(t, err, yocto.ErrDigestSize)
	})

	for _, name := range []string{"CRC32C", "SHA-1024"} {
		t.Run("rejects "+name, func(t *testing.T) {
			_, err := yocto.NewDatabaseBuilder(yocto.WithDigest(name))
			assert.ErrorIs(t, err, yocto.ErrDigestSize)
			_, err = yocto.FromBytes(build(t, colorDocs()), yocto.WithDigest(name))
			assert.ErrorIs(t, err, yocto.ErrDigestSize)
		})
	}
}

func TestEmptyDatabase(t *testing.T) {
	db := openBytes(t, build(t, nil))
	assert.Equal(t, 0, db.DocumentsCount())
	assert.Empty(t, db.Fields())

	_, err := db.Filter("x", yocto.String("a"))
	assert.ErrorIs(t, err, yocto.ErrUnknownField)
	_, err = db.Payload(0)
	assert.ErrorIs(t, err, yocto.ErrOutOfRange)
}

func TestUnknownFieldIsNotAMiss(t *testing.T) {
	db := openBytes(t, build(t, colorDocs()))

	miss, err := db.Filter("color", yocto.String("green"))
	require.NoError(t, err)
	assert.True(t, miss.IsEmpty())

	_, err = db.Filter("x", yocto.String("red"))
	assert.ErrorIs(t, err, yocto.ErrUnknownField)
	var fe *yocto.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "x", fe.Field)
}

func TestMissingPayloadIsEmpty(t *testing.T) {
	db := openBytes(t, build(t, []*yocto.Document{
		yocto.NewDocument().With("k", yocto.Filterable, yocto.Variable, yocto.String("a")),
	}))
	p, err := db.Payload(0)
	require.NoError(t, err)
	assert.Empty(t, p)
}

func TestBuilder_MetricsAndLogging(t *testing.T) {
	var logs bytes.Buffer
	logger := yocto.NewLogger(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	metrics := &yocto.BasicMetricsCollector{}
	opts := []yocto.Option{yocto.WithLogger(logger), yocto.WithMetricsCollector(metrics)}

	b, err := yocto.NewDatabaseBuilder(opts...)
	require.NoError(t, err)
	for _, d := range colorDocs() {
		_, err := b.Merge(d)
		require.NoError(t, err)
	}
	_, err = b.Merge(nil)
	require.Error(t, err)
	w, err := b.BuildWritable()
	require.NoError(t, err)
	data, err := w.Bytes()
	require.NoError(t, err)

	db := openBytes(t, data, opts...)
	_, err = db.Count(context.Background(), yocto.Select().Where(yocto.Eq("color", yocto.String("red"))))
	require.NoError(t, err)

	stats := metrics.GetStats()
	assert.Equal(t, int64(4), stats.MergeCount)
	assert.Equal(t, int64(1), stats.MergeErrors)
	assert.Equal(t, int64(1), stats.BuildCount)
	assert.Equal(t, int64(3), stats.BuildDocuments)
	assert.Equal(t, int64(len(data)), stats.BuildBytes)
	assert.Equal(t, int64(1), stats.OpenCount)
	assert.Equal(t, int64(1), stats.QueryCount)
	assert.Equal(t, int64(2), stats.QueryMatched)

	out := logs.String()
	assert.Contains(t, out, `"msg":"merge failed"`)
	assert.Contains(t, out, `"msg":"build completed"`)
	assert.Contains(t, out, `"msg":"database opened"`)
	assert.Contains(t, out, `"msg":"query completed"`)
}

func TestBuilder_SharedWorkers(t *testing.T) {
	rc := resource.NewController(resource.Config{MaxWorkers: 1})
	records := testutil.NewRNG(7).Records(50)

	want := build(t, recordDocs(records))
	got := build(t, recordDocs(records), yocto.WithResourceController(rc), yocto.WithConcurrency(4))
	assert.Equal(t, want, got, "output does not depend on scheduling")
	assert.Zero(t, rc.ActiveWorkers())
}
