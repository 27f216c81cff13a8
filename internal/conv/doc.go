// Package conv checks integer narrowing at container boundaries.
package conv
