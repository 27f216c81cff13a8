// Package sortedset implements field value dictionaries.
//
// The build side (Set) deduplicates the values of one field and, when frozen,
// sorts them once so that each distinct value gets a dense index equal to its
// position in unsigned lexicographic order. The read side (Dictionary) maps
// index to value and value to index by binary search directly over the
// encoded bytes.
//
// Three encodings are supported: Fixed and Variable reuse the indexedlist
// layouts, and Prefix front-codes the sorted values in restart blocks for
// fields with long shared prefixes.
package sortedset
