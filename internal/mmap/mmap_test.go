package mmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db.yocto")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestMapping_Lifecycle(t *testing.T) {
	content := []byte("@yDB container bytes")
	path := writeFile(t, content)
	m, err := Open(path)
	require.NoError(t, err)

	assert.Equal(t, path, m.Path())
	assert.Equal(t, len(content), m.Len())
	assert.Equal(t, content, m.Bytes())
	for _, a := range []Advice{Sequential, Random, WillNeed, Normal, Advice(42)} {
		assert.NoError(t, m.Advise(a), a.String())
	}

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Nil(t, m.Bytes())
	assert.Zero(t, m.Len())
	assert.ErrorIs(t, m.Advise(Random), ErrClosed)
}

func TestMapping_EmptyFile(t *testing.T) {
	m, err := Open(writeFile(t, nil))
	require.NoError(t, err)
	defer m.Close()

	assert.Zero(t, m.Len())
	assert.Empty(t, m.Bytes())
	assert.NoError(t, m.Advise(Random))
}

func TestMapping_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAdvice_String(t *testing.T) {
	assert.Equal(t, "sequential", Sequential.String())
	assert.Equal(t, "Advice(9)", Advice(9).String())
}
