// Package errs holds the storage-layer error taxonomy.
//
// These are engine-layer sentinels used by the internal packages; the yocto
// package re-exports them as its public error contract.
package errs

import "errors"

var (
	// ErrMalformed is returned for invalid build input: empty names or values,
	// out of sequence document ids, arity violations and option conflicts.
	ErrMalformed = errors.New("malformed input")

	// ErrFrozen is returned when a mutation is attempted after freeze.
	ErrFrozen = errors.New("already frozen")

	// ErrFormat is returned for an unknown magic, version or segment type code.
	ErrFormat = errors.New("unsupported format")

	// ErrCorrupt is returned when stored data fails digest or structural checks.
	ErrCorrupt = errors.New("data corruption detected")

	// ErrOutOfRange is returned for a position outside [0, size).
	ErrOutOfRange = errors.New("position out of range")

	// ErrSizeMismatch is returned when a segment writes a different number of
	// bytes than it declared.
	ErrSizeMismatch = errors.New("declared size mismatch")

	// ErrNotSortable is returned when ordering or reverse lookup is requested
	// on an index that only supports filtering.
	ErrNotSortable = errors.New("field is not sortable")
)
