package hash

import (
	"github.com/cespare/xxhash/v2"
)

// Structural hashes the identity of a definition: a one-byte kind tag
// followed by the identifying byte ranges, in order.
//
// Two definitions with equal kind and equal parts always hash equal; the
// parts are length-delimited so ("ab","c") and ("a","bc") differ.
func Structural(kind uint8, parts ...[]byte) uint64 {
	d := xxhash.New()
	var hdr [5]byte
	hdr[0] = kind
	_, _ = d.Write(hdr[:1])
	for _, p := range parts {
		n := uint32(len(p)) //nolint:gosec // definition parts are bounded by page size
		hdr[1] = byte(n)
		hdr[2] = byte(n >> 8)
		hdr[3] = byte(n >> 16)
		hdr[4] = byte(n >> 24)
		_, _ = d.Write(hdr[1:])
		_, _ = d.Write(p)
	}
	return d.Sum64()
}

// Bytes returns the xxhash64 of data.
func Bytes(data []byte) uint64 {
	return xxhash.Sum64(data)
}
