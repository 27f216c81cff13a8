// Package segment defines the framing shared by all segment kinds.
//
// A container is a sequence of self-describing segments. Each segment starts
// with its byte length and a type Code, carries a kind-specific body made of
// length-prefixed blocks, and ends with a digest over the body. Frame writes
// that layout and checks that every block writes exactly what it declared;
// Read locates a segment inside a container buffer and verifies its digest.
//
// # Segment Kinds
//
//   - index: per-field dictionaries and value/document relations
//     (filterable, full and trie-based variants)
//   - payload: per-document opaque blobs, plain or block-compressed
package segment
