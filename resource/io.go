package resource

import (
	"context"
	"errors"
	"io"
)

// ioChunk bounds how many bytes one Write or Read asks the limiter for at a
// time, so large container writes progress smoothly.
const ioChunk = 64 << 10

// RateLimitedWriter wraps an io.Writer with IO rate limiting.
type RateLimitedWriter struct {
	ctx context.Context
	w   io.Writer
	rc  *Controller
}

// NewRateLimitedWriter returns a writer that waits on rc before each chunk.
// A nil controller writes through unthrottled.
func NewRateLimitedWriter(ctx context.Context, w io.Writer, rc *Controller) *RateLimitedWriter {
	return &RateLimitedWriter{ctx: ctx, w: w, rc: rc}
}

// Write implements io.Writer.
func (w *RateLimitedWriter) Write(p []byte) (int, error) {
	var written int
	for len(p) > 0 {
		n := min(len(p), ioChunk)
		if err := w.rc.AcquireIO(w.ctx, n); err != nil {
			return written, err
		}
		m, err := w.w.Write(p[:n])
		written += m
		if err != nil {
			return written, err
		}
		p = p[n:]
	}
	return written, nil
}

// Seek implements io.Seeker when the wrapped writer does.
func (w *RateLimitedWriter) Seek(offset int64, whence int) (int64, error) {
	s, ok := w.w.(io.Seeker)
	if !ok {
		return 0, errors.New("resource: underlying writer does not support seeking")
	}
	return s.Seek(offset, whence)
}

// RateLimitedReader wraps an io.Reader with IO rate limiting.
type RateLimitedReader struct {
	ctx context.Context
	r   io.Reader
	rc  *Controller
}

// NewRateLimitedReader returns a reader that waits on rc before each read.
func NewRateLimitedReader(ctx context.Context, r io.Reader, rc *Controller) *RateLimitedReader {
	return &RateLimitedReader{ctx: ctx, r: r, rc: rc}
}

// Read implements io.Reader. At most one chunk is read per call.
func (r *RateLimitedReader) Read(p []byte) (int, error) {
	if len(p) > ioChunk {
		p = p[:ioChunk]
	}
	if err := r.rc.AcquireIO(r.ctx, len(p)); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
