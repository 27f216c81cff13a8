// Package index implements per-field index segments.
//
// Every index combines a sorted value dictionary with a relation from
// dictionary index to documents. Full indexes add a document to dictionary
// index map, which enables ordered traversal and reverse lookup.
//
// Body layout after the shared segment header:
//
//	nameLen int32 | name |
//	valuesLen int64 | dictionary |
//	valueToDocLen int64 | multimap |
//	[docToValueLen int64 | map]   (full only)
//
// Filters, ranges and prefixes are all answered by locating dictionary
// indices and expanding their document sets, without materializing the
// field.
package index
