// Package buf provides read-only views over memory regions.
//
// Every on-disk structure of a container is decoded through a Buffer, which
// addresses heap or memory-mapped bytes without copying. Scalars in the
// container format are big-endian; little-endian accessors exist for embedded
// foreign encodings.
//
// Absolute accessors (Int32At, Int64At) do not bounds-check beyond Go's own
// slice checks and are meant for structures whose extent was validated when
// they were opened. Reader performs checked sequential decoding with a sticky
// error, which is what segment parsers use on untrusted input.
package buf
