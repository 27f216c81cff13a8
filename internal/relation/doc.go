// Package relation encodes integer relations between dictionary indices and
// document ids.
//
// A Map is a function key -> value (document -> dictionary index for sortable
// fields). It is stored dense, with -1 for absent keys, or sparse as parallel
// sorted key and value arrays, whichever is smaller.
//
// A MultiMap is a relation key -> {value} (dictionary index -> documents). It
// is stored as a sorted key table over contiguous value runs, or as a key
// table over portable roaring bitmaps when the groups are dense enough for
// bitmaps to be smaller. Either way a lookup costs O(log g + k).
//
// Both tolerate empty domains.
package relation
