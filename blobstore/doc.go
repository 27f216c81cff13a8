// Package blobstore moves finished yocto containers to and from storage.
//
// Containers are immutable: a builder publishes one blob, readers open it.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, atomic writes, mmap reads
//   - MemoryStore: in-memory, for tests
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - minio.Store: MinIO and other S3-compatible services
//
// Blobs that are not Mappable are loaded with ReadAll, which fetches
// ranges in parallel.
package blobstore
