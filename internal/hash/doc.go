// Package hash provides checksum and digest utilities for data integrity.
//
// # Digests
//
// Every segment and every container ends with a 16-byte digest. The
// algorithm is pluggable and looked up by name:
//
//	alg, err := hash.Lookup("BLAKE2B-128")
//	if err != nil { ... }
//	if err := alg.Validate(); err != nil { ... } // size must be DigestSize
//
// MD5 is the default. BLAKE2B-128 is provided through golang.org/x/crypto.
// CRC32C is registered too, but at 4 bytes it fails Validate and cannot be
// used as a container digest.
//
// # CRC32C
//
// Object store uploads carry a CRC32C checksum header so the service can
// reject damaged bodies:
//
//	input.ChecksumCRC32C = aws.String(hash.CRC32CBase64(data))
package hash
