package resource

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.AcquireMemory(50))
	require.NoError(t, c.AcquireMemory(40))
	assert.Equal(t, int64(90), c.MemoryUsage())

	// does not fit, usage unchanged
	assert.ErrorIs(t, c.AcquireMemory(20), ErrMemoryLimitExceeded)
	assert.Equal(t, int64(90), c.MemoryUsage())

	c.ReleaseMemory(50)
	assert.Equal(t, int64(40), c.MemoryUsage())
	require.NoError(t, c.AcquireMemory(20))
	assert.Equal(t, int64(60), c.MemoryUsage())

	// non-positive amounts are ignored
	require.NoError(t, c.AcquireMemory(-1))
	c.ReleaseMemory(0)
	assert.Equal(t, int64(60), c.MemoryUsage())
}

func TestController_UnlimitedMemory(t *testing.T) {
	c := NewController(Config{})

	require.NoError(t, c.AcquireMemory(1<<40))
	assert.Equal(t, int64(1<<40), c.MemoryUsage())
	assert.Equal(t, int64(0), c.MemoryLimit())

	c.ReleaseMemory(1 << 39)
	assert.Equal(t, int64(1<<39), c.MemoryUsage())
}

func TestController_Workers(t *testing.T) {
	c := NewController(Config{MaxWorkers: 2})

	require.NoError(t, c.AcquireWorker(t.Context()))
	require.NoError(t, c.AcquireWorker(t.Context()))
	assert.Equal(t, int64(2), c.ActiveWorkers())
	assert.False(t, c.TryAcquireWorker())

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.AcquireWorker(ctx), context.DeadlineExceeded)
	assert.Equal(t, int64(2), c.ActiveWorkers())

	c.ReleaseWorker()
	assert.True(t, c.TryAcquireWorker())
	c.ReleaseWorker()
	c.ReleaseWorker()
	assert.Equal(t, int64(0), c.ActiveWorkers())
}

func TestController_UnlimitedWorkers(t *testing.T) {
	c := NewController(Config{})
	for range 100 {
		require.True(t, c.TryAcquireWorker())
	}
	assert.Equal(t, int64(100), c.ActiveWorkers())
}

func TestController_IO(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1000})
	ctx := t.Context()

	require.NoError(t, c.AcquireIO(ctx, 100))
	assert.True(t, c.TryAcquireIO(100))

	// unlimited
	c2 := NewController(Config{})
	require.NoError(t, c2.AcquireIO(ctx, 1<<30))
	assert.True(t, c2.TryAcquireIO(1<<30))
}

func TestController_IOAboveBurst(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})
	start := time.Now()
	// one second of budget is available up front, the rest is waited for
	require.NoError(t, c.AcquireIO(t.Context(), (1<<20)+(1<<16)))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestController_NilSafe(t *testing.T) {
	var c *Controller

	assert.NoError(t, c.AcquireMemory(100))
	c.ReleaseMemory(100)
	assert.Equal(t, int64(0), c.MemoryUsage())
	assert.Equal(t, int64(0), c.MemoryLimit())

	assert.NoError(t, c.AcquireWorker(context.Background()))
	assert.True(t, c.TryAcquireWorker())
	c.ReleaseWorker()
	assert.Equal(t, int64(0), c.ActiveWorkers())

	assert.NoError(t, c.AcquireIO(context.Background(), 100))
	assert.True(t, c.TryAcquireIO(100))
}

func TestRateLimitedWriter(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})

	var buf bytes.Buffer
	w := NewRateLimitedWriter(t.Context(), &buf, c)

	data := bytes.Repeat([]byte("yocto"), 30000)
	n, err := w.Write(data)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	assert.Equal(t, data, buf.Bytes())
}

func TestRateLimitedWriter_Seek(t *testing.T) {
	var buf bytes.Buffer
	w := NewRateLimitedWriter(t.Context(), &buf, nil)
	_, err := w.Seek(0, io.SeekStart)
	assert.Error(t, err, "bytes.Buffer does not seek")

	f, err := os.Create(filepath.Join(t.TempDir(), "seek"))
	require.NoError(t, err)
	defer f.Close()

	w = NewRateLimitedWriter(t.Context(), f, nil)
	_, err = w.Write([]byte("hello world"))
	require.NoError(t, err)
	pos, err := w.Seek(6, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(6), pos)
	_, err = w.Write([]byte("yocto"))
	require.NoError(t, err)

	got, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	assert.Equal(t, "hello yocto", string(got))
}

func TestRateLimitedWriter_ContextCanceled(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	n, err := NewRateLimitedWriter(ctx, &buf, c).Write([]byte("hello"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
	assert.Zero(t, buf.Len())
}

func TestRateLimitedReader(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})
	data := bytes.Repeat([]byte{7}, 3*ioChunk)

	r := NewRateLimitedReader(t.Context(), bytes.NewReader(data), c)
	p := make([]byte, 2*ioChunk)
	n, err := r.Read(p)
	require.NoError(t, err)
	assert.Equal(t, ioChunk, n, "one chunk per call")

	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Len(t, rest, 2*ioChunk)
}

func TestRateLimitedReader_ContextCanceled(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRateLimitedReader(ctx, bytes.NewReader([]byte("hello world")), c)
	_, err := r.Read(make([]byte, 1000))
	assert.ErrorIs(t, err, context.Canceled)
}
