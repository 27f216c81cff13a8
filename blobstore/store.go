package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/yocto/internal/conv"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// ErrExists is returned by PutIfNotExists when the blob is already present.
var ErrExists = os.ErrExist

// BlobStore is an abstraction for storing immutable containers.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Create opens a blob for streaming writes. The blob becomes visible
	// when the writer is closed without error.
	Create(ctx context.Context, name string) (WritableBlob, error)
	// Put writes a blob atomically.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the sorted names of blobs with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// ConditionalPutter is implemented by stores that can write a blob only
// when it does not exist yet.
type ConditionalPutter interface {
	// PutIfNotExists writes data under name or fails with ErrExists.
	PutIfNotExists(ctx context.Context, name string, data []byte) error
}

// Blob is a read-only handle to a data blob.
type Blob interface {
	io.Closer
	// ReadAt reads len(p) bytes at off. It returns io.EOF when fewer bytes
	// remain.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	// ReadRange returns a reader for length bytes at off.
	ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error)
	// Size returns the size of the blob in bytes.
	Size() int64
}

// WritableBlob is a streaming writer for a new blob.
type WritableBlob interface {
	io.WriteCloser
	// Sync flushes buffered data where the backend supports it.
	Sync() error
	// Abort discards the written data. Nothing becomes visible and the
	// blob must not be used afterwards.
	Abort() error
}

// Mappable is an optional interface for Blobs that support memory mapping.
type Mappable interface {
	// Bytes returns the underlying byte slice.
	// The slice is valid until the Blob is closed.
	Bytes() ([]byte, error)
}

// DefaultPartSize is the range size ReadAll downloads per request.
const DefaultPartSize = 8 << 20

// ReadAll loads a whole blob. Mappable blobs are returned without copying;
// others are fetched in ranges of partSize bytes, up to concurrency at a time.
func ReadAll(ctx context.Context, b Blob, partSize int64, concurrency int) ([]byte, error) {
	if m, ok := b.(Mappable); ok {
		return m.Bytes()
	}
	if partSize <= 0 {
		partSize = DefaultPartSize
	}

	size, err := conv.Int64ToInt(b.Size())
	if err != nil {
		return nil, err
	}
	data := make([]byte, size)

	g, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for off := int64(0); off < int64(size); off += partSize {
		part := data[off:min(off+partSize, int64(size))]
		g.Go(func() error {
			n, err := b.ReadAt(ctx, part, off)
			if errors.Is(err, io.EOF) && n == len(part) {
				err = nil
			}
			if err != nil {
				return fmt.Errorf("read %d bytes at %d: %w", len(part), off, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return data, nil
}
