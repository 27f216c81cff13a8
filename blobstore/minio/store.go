package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/hupe1980/yocto/blobstore"
)

// Config tunes uploads.
type Config struct {
	// PartSize is the multipart chunk size of streamed uploads. Zero lets
	// the client choose.
	PartSize uint64
	// Threads bounds concurrent part uploads. Zero lets the client choose.
	Threads uint
}

// Store keeps containers as objects under a key prefix of one bucket. It
// has no conditional put, so Publish to a Store overwrites an existing
// object of the same name.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
	cfg    Config
}

var _ blobstore.BlobStore = (*Store)(nil)

// NewStore returns a store rooted at prefix (for example "dbs/") in bucket.
func NewStore(client *minio.Client, bucket, prefix string) *Store {
	return NewStoreWithConfig(client, bucket, prefix, Config{})
}

// NewStoreWithConfig is NewStore with upload tuning.
func NewStoreWithConfig(client *minio.Client, bucket, prefix string, cfg Config) *Store {
	return &Store{client: client, bucket: bucket, prefix: prefix, cfg: cfg}
}

func (s *Store) objectKey(name string) string { return path.Join(s.prefix, name) }

// blobName maps an object key back to the name it was stored under.
func (s *Store) blobName(key string) string {
	return strings.TrimPrefix(strings.TrimPrefix(key, strings.TrimSuffix(s.prefix, "/")), "/")
}

func (s *Store) putOptions() minio.PutObjectOptions {
	return minio.PutObjectOptions{
		ContentType: "application/octet-stream",
		PartSize:    s.cfg.PartSize,
		NumThreads:  s.cfg.Threads,
	}
}

// Open stats the object and returns a ranged reader over it.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.objectKey(name)
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", name, blobstore.ErrNotFound)
		}
		return nil, err
	}
	return &blob{client: s.client, bucket: s.bucket, key: key, size: info.Size}, nil
}

// Put uploads data in one request.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	info, err := s.client.PutObject(ctx, s.bucket, s.objectKey(name), bytes.NewReader(data), int64(len(data)), s.putOptions())
	if err != nil {
		return err
	}
	if info.Size != int64(len(data)) {
		return fmt.Errorf("%s: stored %d of %d bytes", name, info.Size, len(data))
	}
	return nil
}

// Create streams an upload of unknown size. The object appears when the
// writer is closed; Abort cancels it.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	pr, pw := io.Pipe()
	w := &writableBlob{pw: pw, done: make(chan error, 1)}
	go func() {
		_, err := s.client.PutObject(ctx, s.bucket, s.objectKey(name), pr, -1, s.putOptions())
		_ = pr.CloseWithError(err)
		w.done <- err
	}()
	return w, nil
}

// Delete removes the object. A missing object is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.objectKey(name), minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// List returns the sorted names under prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.objectKey(prefix),
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if name := s.blobName(obj.Key); name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	default:
		return false
	}
}
