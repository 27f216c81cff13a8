// Package indexedlist implements dense random-access arrays of opaque blobs.
//
// Elements are addressed by their insertion position. There is no
// deduplication or ordering; payload storage keys the list by document id and
// dictionaries key it by dictionary index.
//
// Two encodings exist:
//
//   - FIXED: every element has the same length; element i lives at i*size.
//   - VARIABLE: an int64 offset table of count+1 entries precedes the data.
package indexedlist
