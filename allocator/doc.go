// Package allocator implements a bounded, page-based bump allocator.
//
// An Allocator owns one off-heap arena of fixed size, split into pages of a
// power-of-two size. PageManagers draw pages from it on demand and
// bump-allocate inside them without locking; only the free list is guarded.
// Requests larger than a page receive a run of contiguous pages.
//
// Allocations are addressed by MovableMemory handles rather than pointers. A
// handle carries the tag of the manager that issued it and resolves only
// through that manager:
//
//	pm, _ := a.NewPageManager()
//	h, err := pm.AllocMovable(24)
//	if err != nil {
//	    // arena exhausted
//	}
//	copy(pm.Resolve(h, 24), payload)
//
// A MovedPageManager adopts the pages of other managers wholesale. Donor
// handles then resolve through the receiver and the donor is consumed:
//
//	merged, _ := a.NewMovedPageManager()
//	merged.Adopt(pm)
//	merged.Resolve(h, 24) // ok
//	pm.Resolve(h, 24)     // panics
//
// Misuse (foreign handles, use after move or delete, closing an allocator
// that still lends pages) panics. Running out of pages returns ErrOutOfPages.
package allocator
