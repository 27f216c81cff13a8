package yocto

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/hupe1980/yocto/blobstore"
	"github.com/hupe1980/yocto/internal/buf"
	"github.com/hupe1980/yocto/internal/cache"
	"github.com/hupe1980/yocto/internal/hash"
	"github.com/hupe1980/yocto/internal/mmap"
	"github.com/hupe1980/yocto/internal/segment"
	"github.com/hupe1980/yocto/internal/segment/index"
	"github.com/hupe1980/yocto/internal/segment/payload"
)

// Database is an open, read-only container.
//
// All read methods are safe for concurrent use. Every returned value that
// is not explicitly copied references the container bytes, so it must not
// be used after Close.
type Database struct {
	opts     options
	digest   hash.Algorithm
	data     []byte
	release  func() error
	cache    cache.ChunkCache
	fields   map[string]*index.Index
	payload  payload.Segment
	segments []SegmentInfo
	docs     int
	closed   atomic.Bool
}

// FromBytes opens a container held in memory. data is referenced, not
// copied, and must not be modified while the database is open.
func FromBytes(data []byte, optFns ...Option) (*Database, error) {
	return open(context.Background(), "bytes", data, nil, applyOptions(optFns))
}

// Open memory-maps the container at path.
func Open(path string, optFns ...Option) (*Database, error) {
	o := applyOptions(optFns)
	m, err := mmap.Open(path)
	if err != nil {
		o.logger.LogOpen(context.Background(), path, 0, 0, err)
		o.metricsCollector.RecordOpen(0, 0, err)
		return nil, err
	}
	if o.verifyChecksum {
		_ = m.Advise(mmap.Sequential)
	}
	db, err := open(context.Background(), path, m.Bytes(), m.Close, o)
	if err != nil {
		return nil, err
	}
	_ = m.Advise(mmap.Random)
	return db, nil
}

// OpenBlob loads the container called name from store. Mappable blobs are
// used in place; others are downloaded in parallel ranges into memory
// reserved from the resource controller and released on Close.
func OpenBlob(ctx context.Context, store blobstore.BlobStore, name string, optFns ...Option) (*Database, error) {
	o := applyOptions(optFns)
	fail := func(err error) (*Database, error) {
		o.logger.LogOpen(ctx, name, 0, 0, err)
		o.metricsCollector.RecordOpen(0, 0, err)
		return nil, err
	}

	blob, err := store.Open(ctx, name)
	if err != nil {
		return fail(err)
	}
	if _, ok := blob.(blobstore.Mappable); ok {
		data, err := blobstore.ReadAll(ctx, blob, blobstore.DefaultPartSize, o.concurrency)
		if err != nil {
			return fail(errors.Join(err, blob.Close()))
		}
		return open(ctx, name, data, blob.Close, o)
	}

	size := blob.Size()
	if err := o.rc.AcquireMemory(size); err != nil {
		return fail(errors.Join(err, blob.Close()))
	}
	data, err := blobstore.ReadAll(ctx, blob, blobstore.DefaultPartSize, o.concurrency)
	if cerr := blob.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		o.rc.ReleaseMemory(size)
		return fail(err)
	}
	return open(ctx, name, data, func() error {
		o.rc.ReleaseMemory(size)
		return nil
	}, o)
}

func open(ctx context.Context, source string, data []byte, release func() error, o options) (*Database, error) {
	start := time.Now()
	db, err := parse(data, o)
	if err == nil {
		db.release = release
	} else if release != nil {
		err = errors.Join(err, release())
	}
	o.metricsCollector.RecordOpen(int64(len(data)), time.Since(start), err)
	docs := 0
	if db != nil {
		docs = db.docs
	}
	o.logger.LogOpen(ctx, source, docs, int64(len(data)), err)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func parse(data []byte, o options) (*Database, error) {
	digest, err := o.algorithm()
	if err != nil {
		return nil, err
	}
	if len(data) < headerSize || !bytes.Equal(data[:len(Magic)], []byte(Magic)) {
		return nil, fmt.Errorf("%w: not a yocto container", ErrFormat)
	}
	header := buf.New(data)
	if v := header.Int32At(len(Magic)); v != Version {
		return nil, fmt.Errorf("%w: container version %d, want %d", ErrFormat, v, Version)
	}
	if len(data) < headerSize+digest.Size {
		return nil, fmt.Errorf("%w: container truncated to %d bytes", ErrCorrupt, len(data))
	}

	body := data[headerSize : len(data)-digest.Size]
	if o.verifyChecksum {
		want := data[len(data)-digest.Size:]
		if got := digest.Sum(body); !bytes.Equal(got, want) {
			return nil, fmt.Errorf("%w: container digest mismatch", ErrCorrupt)
		}
	}

	db := &Database{
		opts:   o,
		digest: digest,
		data:   data,
		fields: make(map[string]*index.Index),
	}
	if o.cacheSize > 0 {
		db.cache = cache.NewSharded(o.cacheSize, 0, o.rc)
	}

	r := buf.New(body).Reader()
	for r.Remaining() > 0 {
		raw, err := segment.Read(r, digest, o.verifyChecksum)
		if err != nil {
			return nil, db.abort(err)
		}
		if err := readSegment(db, raw); err != nil {
			return nil, db.abort(err)
		}
	}
	if db.payload == nil {
		return nil, db.abort(fmt.Errorf("%w: missing payload segment", ErrCorrupt))
	}
	db.docs = db.payload.Len()

	for name, idx := range db.fields {
		if n, ok := idx.MappedDocuments(); ok && n != db.docs {
			return nil, db.abort(&FieldError{Field: name, cause: fmt.Errorf("%w: values for %d of %d documents",
				ErrCorrupt, n, db.docs)})
		}
		if n := idx.DocumentBound(); n > db.docs {
			return nil, db.abort(&FieldError{Field: name, cause: fmt.Errorf("%w: document %d of %d",
				ErrCorrupt, n-1, db.docs)})
		}
	}
	return db, nil
}

func (db *Database) abort(err error) error {
	if db.payload != nil {
		_ = db.payload.Close()
	}
	return err
}

// DocumentsCount returns the number of documents.
func (db *Database) DocumentsCount() int { return db.docs }

// SizeInBytes returns the container size.
func (db *Database) SizeInBytes() int64 { return int64(len(db.data)) }

// Fields returns the indexed field names in sorted order.
func (db *Database) Fields() []string {
	names := make([]string, 0, len(db.fields))
	for name := range db.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Segments describes the container's segments in stored order.
func (db *Database) Segments() []SegmentInfo {
	return append([]SegmentInfo(nil), db.segments...)
}

// Sortable reports whether field supports Order and ValueOf.
func (db *Database) Sortable(field string) (bool, error) {
	idx, err := db.index(field)
	if err != nil {
		return false, err
	}
	return idx.Sortable(), nil
}

func (db *Database) index(field string) (*index.Index, error) {
	if db.closed.Load() {
		return nil, ErrClosed
	}
	idx, ok := db.fields[field]
	if !ok {
		return nil, &FieldError{Field: field, cause: ErrUnknownField}
	}
	return idx, nil
}

func (db *Database) checkDocument(doc int) error {
	if doc < 0 || doc >= db.docs {
		return &DocumentError{Document: doc, cause: fmt.Errorf("%w: %d documents", ErrOutOfRange, db.docs)}
	}
	return nil
}

// Filter returns the documents whose field holds v. An absent value yields
// an empty set; a field the database does not index fails with
// ErrUnknownField.
func (db *Database) Filter(field string, v Value) (*DocSet, error) {
	idx, err := db.index(field)
	if err != nil {
		return nil, err
	}
	s := NewDocSet()
	idx.Filter(v, s.rb)
	return s, nil
}

// Order returns every document in ascending or descending order of field,
// ties broken by ascending document id. The field must be sortable.
func (db *Database) Order(field string, dir Direction) ([]int, error) {
	idx, err := db.index(field)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, db.docs)
	err = idx.ForEachOrdered(dir == Desc, func(doc int) bool {
		out = append(out, doc)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ValueOf returns the value field holds for doc. The field must be
// sortable.
func (db *Database) ValueOf(field string, doc int) (Value, error) {
	idx, err := db.index(field)
	if err != nil {
		return nil, err
	}
	if err := db.checkDocument(doc); err != nil {
		return nil, err
	}
	v, err := idx.ValueOf(doc)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Payload returns the payload of doc.
func (db *Database) Payload(doc int) ([]byte, error) {
	if db.closed.Load() {
		return nil, ErrClosed
	}
	if err := db.checkDocument(doc); err != nil {
		return nil, err
	}
	return db.payload.Payload(doc)
}

// CacheStats returns the hit and miss counts of the payload chunk cache.
func (db *Database) CacheStats() (hits, misses int64) {
	if db.cache == nil {
		return 0, 0
	}
	st := db.cache.Stats()
	return st.Hits, st.Misses
}

// Close releases the container. Later calls return ErrClosed.
func (db *Database) Close() error {
	if !db.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	err := db.payload.Close()
	if db.release != nil {
		err = errors.Join(err, db.release())
	}
	return translateError(err)
}
