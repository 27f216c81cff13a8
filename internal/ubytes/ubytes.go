// Package ubytes defines the unsigned lexicographic ordering of field values.
//
// Bytes are compared as unsigned 0..255 values; on a common prefix the shorter
// sequence sorts first. Dictionaries, binary searches, range filters and
// ordered traversal all order values through this package.
package ubytes

import "bytes"

// Compare returns -1, 0 or +1 when a sorts before, equal to or after b.
func Compare(a, b []byte) int {
	return bytes.Compare(a, b)
}

// Equal reports whether a and b hold the same bytes.
func Equal(a, b []byte) bool {
	return bytes.Equal(a, b)
}

// Less reports whether a sorts strictly before b.
func Less(a, b []byte) bool {
	return bytes.Compare(a, b) < 0
}

// Key returns a map key with the same identity as v.
func Key(v []byte) string {
	return string(v)
}

// PrefixEnd returns the smallest value that sorts after every value starting
// with prefix, or nil when no such value exists (prefix is empty or all 0xff).
func PrefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
