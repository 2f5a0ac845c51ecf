// Package conv provides safe integer conversion utilities.
//
// These functions perform bounds checking to prevent integer overflow/underflow
// when converting between signed/unsigned and different bit-width integer types.
//
// Use cases:
//   - Validating configured sizes (total memory, page size) before building an arena
//   - Packing arena offsets into fixed-width handle fields
//   - Validating counts decoded from collective frames and archives
package conv
