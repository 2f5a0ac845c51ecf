// Package compress implements self-describing block compression (LZ4, ZSTD)
// for collective frames and archive blobs.
package compress
