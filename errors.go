package yocto

import (
	"errors"
	"fmt"

	"github.com/hupe1980/yocto/internal/errs"
	"github.com/hupe1980/yocto/internal/hash"
	"github.com/hupe1980/yocto/internal/mmap"
)

var (
	// ErrMalformed is returned for invalid build input: empty names, missing
	// values, arity violations and option conflicts between documents.
	ErrMalformed = errs.ErrMalformed

	// ErrFrozen is returned when a builder is used after BuildWritable.
	ErrFrozen = errs.ErrFrozen

	// ErrFormat is returned for an unknown magic, version or segment type code.
	ErrFormat = errs.ErrFormat

	// ErrCorrupt is returned when a container fails a digest or structural check.
	ErrCorrupt = errs.ErrCorrupt

	// ErrOutOfRange is returned for a document id outside [0, DocumentsCount).
	ErrOutOfRange = errs.ErrOutOfRange

	// ErrSizeMismatch is returned when a segment writes a different number of
	// bytes than it declared.
	ErrSizeMismatch = errs.ErrSizeMismatch

	// ErrNotSortable is returned when ordering or value lookup is requested on
	// a field that was indexed for filtering only.
	ErrNotSortable = errs.ErrNotSortable

	// ErrUnknownField is returned when a query or lookup names a field the
	// database does not index.
	ErrUnknownField = errors.New("unknown field")

	// ErrDigestSize is returned when the configured digest does not produce
	// the 16 bytes the container reserves.
	ErrDigestSize = hash.ErrDigestSize

	// ErrClosed is returned when a closed database is used.
	ErrClosed = errors.New("database closed")
)

// FieldError reports a failure attributed to one field.
//
// The original underlying error can be accessed via errors.Unwrap.
type FieldError struct {
	Field string
	cause error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %v", e.Field, e.cause)
}

func (e *FieldError) Unwrap() error { return e.cause }

// DocumentError reports a failure attributed to one document.
//
// The original underlying error can be accessed via errors.Unwrap.
type DocumentError struct {
	Document int
	cause    error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("document %d: %v", e.Document, e.cause)
}

func (e *DocumentError) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, mmap.ErrClosed) && !errors.Is(err, ErrClosed) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}
	if errors.Is(err, hash.ErrUnknownDigest) && !errors.Is(err, ErrDigestSize) {
		return fmt.Errorf("%w: %w", ErrDigestSize, err)
	}

	return err
}
