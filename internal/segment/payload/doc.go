// Package payload implements the payload segment, which maps every document
// id to an opaque byte string.
//
// The plain form is a single variable indexed list whose entries are served
// as views into the container. The compressed form groups documents into
// chunks, each an indexed list compressed with LZ4 or zstd:
//
//	codec uint8 |
//	headerLen int64 | docsPerChunk int32 | docs int32 | chunks int32 |
//	                  offsets int64[chunks+1] | rawSizes int32[chunks] | stored uint8[chunks] |
//	dataLen int64 | chunk*
//
// Chunks that do not shrink are stored uncompressed.
package payload
