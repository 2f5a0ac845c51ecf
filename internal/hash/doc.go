// Package hash provides the hashing primitives used across scoredef.
//
// # CRC32-Castagnoli (CRC32C)
//
// Collective frames and archive blobs carry a CRC32C of their uncompressed
// payload. A mismatch on decode is reported as a checksum error, never
// silently accepted.
//
//	checksum := hash.CRC32C(data)
//
// # xxhash64
//
// Definition interning keys every record by a structural hash of its
// identifying fields. Structural length-delimits each part so that adjacent
// variable-length fields cannot alias:
//
//	h := hash.Structural(uint8(kind), payload, tail)
package hash
