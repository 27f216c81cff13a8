package yocto

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/yocto/blobstore"
	"github.com/hupe1980/yocto/internal/buf"
	"github.com/hupe1980/yocto/internal/conv"
	yfs "github.com/hupe1980/yocto/internal/fs"
	"github.com/hupe1980/yocto/internal/hash"
	"github.com/hupe1980/yocto/internal/segment"
	"github.com/hupe1980/yocto/internal/segment/index"
	"github.com/hupe1980/yocto/internal/segment/payload"
	"github.com/hupe1980/yocto/resource"
)

const (
	// Magic opens every container.
	Magic = "@yDB"
	// Version is the container format version written by this package.
	Version int32 = 1

	headerSize = len(Magic) + 4
)

type fieldBuilder struct {
	*index.Builder
	option IndexOption
	length LengthOption
}

// matches reports whether a later declaration of the field is compatible
// with the first one. Sortable and Full build the same segment.
func (f *fieldBuilder) matches(idx IndexOption, length LengthOption) bool {
	if f.option.kind() != idx.kind() {
		return false
	}
	return f.option == FilterableTrie || f.length == length
}

// DatabaseBuilder assembles documents into a container.
//
// Documents receive dense ids in merge order starting at 0. Each field gets
// its own index segment, created on first use with the options of that
// first declaration. A DatabaseBuilder is single-writer: it must not be
// used from several goroutines at once.
type DatabaseBuilder struct {
	opts    options
	digest  hash.Algorithm
	fields  map[string]*fieldBuilder
	payload *payload.Builder
	docs    int
	frozen  bool
}

// NewDatabaseBuilder returns an empty builder. It fails with ErrDigestSize
// when the configured digest does not fit the container format.
func NewDatabaseBuilder(optFns ...Option) (*DatabaseBuilder, error) {
	o := applyOptions(optFns)
	digest, err := o.algorithm()
	if err != nil {
		return nil, err
	}
	return &DatabaseBuilder{
		opts:    o,
		digest:  digest,
		fields:  make(map[string]*fieldBuilder),
		payload: payload.NewBuilder(digest, o.codec, o.docsPerChunk),
	}, nil
}

// DocumentsCount returns the number of merged documents.
func (b *DatabaseBuilder) DocumentsCount() int { return b.docs }

// Merge validates doc and admits it under the next document id. It either
// applies the whole document or nothing: on error the builder is unchanged.
// Merge returns the builder to allow chaining.
func (b *DatabaseBuilder) Merge(doc *Document) (*DatabaseBuilder, error) {
	start := time.Now()
	id := b.docs
	fields, err := b.merge(id, doc)
	b.opts.metricsCollector.RecordMerge(time.Since(start), err)
	b.opts.logger.LogMerge(context.Background(), id, fields, err)
	if err != nil {
		return b, err
	}
	return b, nil
}

func (b *DatabaseBuilder) merge(id int, doc *Document) (int, error) {
	if b.frozen {
		return 0, ErrFrozen
	}
	if doc == nil {
		return 0, &DocumentError{Document: id, cause: fmt.Errorf("%w: nil document", ErrMalformed)}
	}
	if _, err := conv.DocumentID(id); err != nil {
		return 0, &DocumentError{Document: id, cause: fmt.Errorf("%w: %w", ErrMalformed, err)}
	}
	if err := doc.Validate(); err != nil {
		return 0, &DocumentError{Document: id, cause: err}
	}

	type pending struct {
		fb     *fieldBuilder
		values [][]byte
		fresh  bool
	}
	fields := doc.Fields()
	work := make([]pending, 0, len(fields))

	for _, f := range fields {
		values := make([][]byte, len(f.Values))
		for i, v := range f.Values {
			values[i] = v
		}
		fb, ok := b.fields[f.Name]
		fresh := !ok
		if ok {
			if !fb.matches(f.Index, f.Length) {
				return 0, b.fieldError(id, f.Name, fmt.Errorf("%w: declared %s/%s, first declared %s/%s",
					ErrMalformed, f.Index, f.Length, fb.option, fb.length))
			}
		} else {
			if f.Index.singleValued() && id > 0 {
				return 0, b.fieldError(id, f.Name, fmt.Errorf("%w: %s field first declared at document %d, earlier documents have no value",
					ErrMalformed, f.Index, id))
			}
			fb = &fieldBuilder{
				Builder: index.NewBuilder(f.Name, f.Index.kind(), f.Length == Fixed, b.digest),
				option:  f.Index,
				length:  f.Length,
			}
		}
		if err := fb.Check(id, values); err != nil {
			return 0, b.fieldError(id, f.Name, err)
		}
		work = append(work, pending{fb: fb, values: values, fresh: fresh})
	}

	for name, fb := range b.fields {
		if !fb.option.singleValued() {
			continue
		}
		if _, ok := doc.Field(name); !ok {
			return 0, b.fieldError(id, name, fmt.Errorf("%w: %s field needs a value in every document", ErrMalformed, fb.option))
		}
	}

	if err := b.payload.Check(id, doc.Payload()); err != nil {
		return 0, &DocumentError{Document: id, cause: err}
	}

	for _, p := range work {
		if err := p.fb.AddDocument(id, p.values); err != nil {
			return 0, b.fieldError(id, p.fb.Name(), err)
		}
		if p.fresh {
			b.fields[p.fb.Name()] = p.fb
		}
	}
	if err := b.payload.AddDocument(id, doc.Payload()); err != nil {
		return 0, &DocumentError{Document: id, cause: err}
	}
	b.docs++
	return len(work), nil
}

func (b *DatabaseBuilder) fieldError(doc int, field string, err error) error {
	return &DocumentError{Document: doc, cause: &FieldError{Field: field, cause: err}}
}

// BuildWritable freezes the builder and returns the serializable container.
// Index segments are frozen in parallel, bounded by WithConcurrency. Any
// later Merge or BuildWritable fails with ErrFrozen.
func (b *DatabaseBuilder) BuildWritable() (*Writable, error) {
	start := time.Now()
	w, err := b.buildWritable()
	var size int64
	if w != nil {
		size = w.SizeInBytes()
	}
	b.opts.metricsCollector.RecordBuild(b.docs, size, time.Since(start), err)
	segments := 0
	if w != nil {
		segments = len(w.segments)
	}
	b.opts.logger.LogBuild(context.Background(), b.docs, segments, size, time.Since(start), err)
	return w, err
}

func (b *DatabaseBuilder) buildWritable() (*Writable, error) {
	if b.frozen {
		return nil, ErrFrozen
	}
	b.frozen = true

	names := make([]string, 0, len(b.fields))
	for name := range b.fields {
		names = append(names, name)
	}
	sort.Strings(names)

	segments := make([]segment.Writable, len(names)+1)
	g := new(errgroup.Group)
	g.SetLimit(b.opts.concurrency)
	for i, name := range names {
		fb := b.fields[name]
		fb.SetDocumentsCount(b.docs)
		g.Go(func() error {
			if err := b.opts.rc.AcquireWorker(context.Background()); err != nil {
				return err
			}
			defer b.opts.rc.ReleaseWorker()
			w, err := fb.BuildWritable()
			if err != nil {
				return &FieldError{Field: name, cause: err}
			}
			segments[i] = w
			return nil
		})
	}
	g.Go(func() error {
		w, err := b.payload.BuildWritable()
		if err != nil {
			return fmt.Errorf("payload: %w", err)
		}
		segments[len(names)] = w
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Writable{
		digest:   b.digest,
		segments: segments,
		docs:     b.docs,
		rc:       b.opts.rc,
	}, nil
}

// Writable is a frozen container ready for serialization.
type Writable struct {
	digest   hash.Algorithm
	segments []segment.Writable
	docs     int
	rc       *resource.Controller
}

// DocumentsCount returns the number of documents in the container.
func (w *Writable) DocumentsCount() int { return w.docs }

// SizeInBytes returns the exact number of bytes WriteTo produces.
func (w *Writable) SizeInBytes() int64 {
	size := int64(headerSize) + int64(w.digest.Size)
	for _, s := range w.segments {
		size += s.SizeInBytes()
	}
	return size
}

// WriteTo streams the container: magic, version, every segment, then the
// digest of all bytes after the header.
func (w *Writable) WriteTo(dst io.Writer) (int64, error) {
	out := buf.NewWriter(dst)
	_, _ = out.Write([]byte(Magic))
	out.Int32(Version)

	h := w.digest.New()
	body := io.MultiWriter(out, h)
	for _, s := range w.segments {
		if out.Err() != nil {
			break
		}
		n, err := s.WriteTo(body)
		if err != nil {
			return out.N(), err
		}
		if want := s.SizeInBytes(); n != want {
			return out.N(), fmt.Errorf("%w: %s segment wrote %d bytes, declared %d", ErrSizeMismatch, s.Code(), n, want)
		}
	}
	_, _ = out.Write(h.Sum(nil))
	if err := out.Err(); err != nil {
		return out.N(), err
	}
	if want := w.SizeInBytes(); out.N() != want {
		return out.N(), fmt.Errorf("%w: container wrote %d bytes, declared %d", ErrSizeMismatch, out.N(), want)
	}
	return out.N(), nil
}

// Bytes serializes the container into memory.
func (w *Writable) Bytes() ([]byte, error) {
	size, err := conv.Int64ToInt(w.SizeInBytes())
	if err != nil {
		return nil, err
	}
	var b bytes.Buffer
	b.Grow(size)
	if _, err := w.WriteTo(&b); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// WriteFile writes the container to path atomically: readers observe either
// no file, the previous file or the complete container. Writes are
// throttled by the resource controller's IO limit.
func (w *Writable) WriteFile(ctx context.Context, path string) error {
	return yfs.WriteFileAtomic(yfs.OS, path, 0o644, func(f io.Writer) error {
		_, err := w.WriteTo(resource.NewRateLimitedWriter(ctx, f, w.rc))
		return err
	})
}

// Publish uploads the container to store under name. Stores that support
// conditional writes refuse to replace an existing container and fail with
// blobstore.ErrExists; other stores stream the container and overwrite.
func (w *Writable) Publish(ctx context.Context, store blobstore.BlobStore, name string) error {
	if cp, ok := store.(blobstore.ConditionalPutter); ok {
		data, err := w.Bytes()
		if err != nil {
			return err
		}
		return cp.PutIfNotExists(ctx, name, data)
	}

	dst, err := store.Create(ctx, name)
	if err != nil {
		return err
	}
	if _, err := w.WriteTo(resource.NewRateLimitedWriter(ctx, dst, w.rc)); err != nil {
		return errors.Join(err, dst.Abort())
	}
	return dst.Close()
}

var _ io.WriterTo = (*Writable)(nil)
