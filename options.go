package yocto

import (
	"log/slog"
	"runtime"

	"github.com/hupe1980/yocto/internal/hash"
	"github.com/hupe1980/yocto/internal/segment/payload"
	"github.com/hupe1980/yocto/resource"
)

// DefaultCacheSize is the byte capacity of the decompressed payload chunk
// cache of an open database.
const DefaultCacheSize = 32 << 20

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	digest           string
	verifyChecksum   bool
	codec            payload.Codec
	docsPerChunk     int
	rc               *resource.Controller
	concurrency      int
	cacheSize        int64
}

// Option configures builders and readers. Options that do not apply to the
// receiving constructor are ignored.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &yocto.BasicMetricsCollector{}
//	db, _ := yocto.Open("colors.yocto", yocto.WithMetricsCollector(metrics))
//	// ... query db ...
//	stats := metrics.GetStats()
//	fmt.Printf("Queries: %d, Avg latency: %dns\n", stats.QueryCount, stats.QueryAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithDigest selects the digest algorithm by name ("MD5", "BLAKE2B-128").
// Builder and reader must agree. Algorithms that do not produce 16 bytes are
// rejected with ErrDigestSize.
func WithDigest(name string) Option {
	return func(o *options) {
		o.digest = name
	}
}

// WithVerifyChecksum controls whether opening a container recomputes the
// container and segment digests. Enabled by default; framing is always
// checked.
func WithVerifyChecksum(verify bool) Option {
	return func(o *options) {
		o.verifyChecksum = verify
	}
}

// Compression selects how payload chunks are compressed.
type Compression = payload.Codec

const (
	CompressionNone Compression = payload.CodecNone
	CompressionLZ4  Compression = payload.CodecLZ4
	CompressionZstd Compression = payload.CodecZstd
)

// ParseCompression parses "none", "lz4" or "zstd". The empty string means
// none.
func ParseCompression(name string) (Compression, error) {
	return payload.ParseCodec(name)
}

// WithPayloadCompression stores payloads in compressed chunks of
// docsPerChunk documents. Non-positive docsPerChunk selects the default.
func WithPayloadCompression(codec Compression, docsPerChunk int) Option {
	return func(o *options) {
		o.codec = codec
		o.docsPerChunk = docsPerChunk
	}
}

// WithResourceController bounds the memory of heap-loaded containers and
// the payload cache, and throttles container writes.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

// WithConcurrency sets how many segments are frozen in parallel. Values
// below one mean one.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = max(n, 1)
	}
}

// WithCacheSize sets the payload chunk cache capacity in bytes. Zero
// disables the cache.
func WithCacheSize(bytes int64) Option {
	return func(o *options) {
		o.cacheSize = max(bytes, 0)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		digest:           hash.Default().Name,
		verifyChecksum:   true,
		codec:            payload.CodecNone,
		docsPerChunk:     payload.DefaultDocsPerChunk,
		concurrency:      runtime.GOMAXPROCS(0),
		cacheSize:        DefaultCacheSize,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.docsPerChunk <= 0 {
		o.docsPerChunk = payload.DefaultDocsPerChunk
	}
	return o
}

func (o *options) algorithm() (hash.Algorithm, error) {
	a, err := hash.Lookup(o.digest)
	if err != nil {
		return hash.Algorithm{}, translateError(err)
	}
	if err := a.Validate(); err != nil {
		return hash.Algorithm{}, err
	}
	return a, nil
}
