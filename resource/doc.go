// Package resource implements the Controller shared by builders and open
// databases.
//
// A Controller governs three budgets:
//
//   - Memory: bytes held by downloaded containers and cached payload
//     chunks. AcquireMemory never blocks and fails with
//     ErrMemoryLimitExceeded instead.
//   - Workers: concurrent segment freezes inside BuildWritable.
//   - IO: a token bucket throttling container writes. RateLimitedWriter
//     and RateLimitedReader wrap streams with it.
//
// Example:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:   256 << 20,
//	    MaxWorkers:         4,
//	    IOLimitBytesPerSec: 64 << 20,
//	})
//	b, _ := yocto.NewDatabaseBuilder(yocto.WithResourceController(rc))
//
// All methods are safe for concurrent use, and a nil *Controller turns
// every method into a no-op.
package resource
