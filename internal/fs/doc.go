// Package fs stages and publishes container files on the local disk.
//
// Containers are written to a TempPath next to their destination, synced
// and renamed into place by [WriteFileAtomic] or [Commit]. A failed or
// interrupted build never leaves a partial container under the final name.
//
// [FaultyFS] wraps a FileSystem and fails writes, syncs, closes or renames
// of matching names; tests use it to drive every error path of a publish.
package fs
