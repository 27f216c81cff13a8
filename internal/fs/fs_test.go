package fs

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeString(s string) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	}
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "db.yocto")

	require.NoError(t, WriteFileAtomic(nil, path, 0o644, writeString("first")))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))

	require.NoError(t, WriteFileAtomic(OS, path, 0o644, writeString("second")))
	got, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	ok, err := OS.Exists(TempPath(path))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWriteFileAtomic_Faults(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name  string
		fault Fault
		fn    func(io.Writer) error
		want  error
	}{
		{"write", Fault{WriteLimit: 3}, writeString("too long"), ErrInjected},
		{"sync", Fault{WriteLimit: -1, Sync: true}, writeString("x"), ErrInjected},
		{"close", Fault{WriteLimit: -1, Close: true}, writeString("x"), ErrInjected},
		{"rename", Fault{WriteLimit: -1, Rename: true}, writeString("x"), ErrInjected},
		{"callback", NoFault, func(io.Writer) error { return boom }, boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "db.yocto")
			require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

			ffs := NewFaultyFS(nil)
			ffs.Fail(TempSuffix, tt.fault)

			err := WriteFileAtomic(ffs, path, 0o644, tt.fn)
			assert.ErrorIs(t, err, tt.want)

			got, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "old", string(got))
			ok, err := OS.Exists(TempPath(path))
			require.NoError(t, err)
			assert.False(t, ok, "staging file removed")
		})
	}
}

func TestFaultyFS_Rules(t *testing.T) {
	boom := errors.New("disk full")
	dir := t.TempDir()
	ffs := NewFaultyFS(OS)
	ffs.FailAll(Fault{WriteLimit: 0, Err: boom})
	ffs.Fail("ok", NoFault)
	ffs.Fail("ok-but-not-this", Fault{WriteLimit: 1})

	write := func(name string) error {
		f, err := ffs.Create(filepath.Join(dir, name), 0o644)
		require.NoError(t, err)
		defer f.Close()
		_, err = f.Write([]byte("xy"))
		return err
	}

	assert.ErrorIs(t, write("a"), boom)
	assert.NoError(t, write("ok"))
	assert.ErrorIs(t, write("ok-but-not-this"), ErrInjected, "later rules win")
	assert.Equal(t, 2, ffs.Injected())
}

func TestOS_RemoveMissing(t *testing.T) {
	assert.NoError(t, OS.Remove(filepath.Join(t.TempDir(), "missing")))
	assert.True(t, IsTemp(TempPath("db.yocto")))
	assert.False(t, IsTemp("db.yocto"))
}
