// Package mmap provides the off-heap memory used by the page allocator and
// read-only file mappings used by the local blob store.
//
// # Anonymous Mappings
//
// MapAnon creates a read-write, zero-filled region outside the Go garbage
// collector's control. The allocator carves its fixed-size arena from one such
// region, so definition records (plain-old-data with handle fields, no Go
// pointers) never add GC scan work.
//
//	m, err := mmap.MapAnon(16 << 20)
//	if err != nil { ... }
//	defer m.Close()
//	arena := m.Bytes()
//
// # File Mappings
//
//	m, err := mmap.Open("defs.bin")
//	data := m.Bytes() // zero-copy, read-only
//
// # Platform Support
//
// Unix platforms use mmap(2)/madvise(2) via golang.org/x/sys/unix. Other
// platforms fall back to heap buffers with identical semantics.
package mmap
