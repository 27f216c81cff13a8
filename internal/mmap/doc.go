// Package mmap maps container files read-only into memory.
//
// A yocto container is consulted in place: segment views are slices of the
// mapping, so opening a database touches only the pages a query reads.
//
//	m, err := mmap.Open("db.yocto")
//	if err != nil { ... }
//	defer m.Close()
//	data := m.Bytes()
//
// Opening a database advises Sequential while the container digest is
// checked and Random afterwards. Unix platforms pass these to madvise(2);
// Windows maps with CreateFileMapping/MapViewOfFile and ignores them.
//
// Bytes must not be used after Close returns. Close is idempotent.
package mmap
