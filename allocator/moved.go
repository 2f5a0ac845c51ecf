package allocator

import (
	"unsafe"

	"github.com/RoaringBitmap/roaring/v2"
)

// MovedPageManager receives whole pages detached from other page managers.
// After Adopt, the donor's handles resolve only through the receiver. A moved
// page manager never allocates.
type MovedPageManager struct {
	alloc    *Allocator
	tag      uint32
	runs     []run
	accepted *roaring.Bitmap
	deleted  bool
}

// NewMovedPageManager returns an empty receiver.
func (a *Allocator) NewMovedPageManager() (*MovedPageManager, error) {
	tag, err := a.newTag()
	if err != nil {
		return nil, err
	}
	return &MovedPageManager{alloc: a, tag: tag, accepted: roaring.New()}, nil
}

func (m *MovedPageManager) mustBeLive() {
	if m.deleted {
		panic("allocator: moved page manager used after delete")
	}
}

// Adopt takes every page of donor. The donor is consumed: any later use of
// it panics, except a single Delete.
func (m *MovedPageManager) Adopt(donor *PageManager) {
	m.mustBeLive()
	donor.mustBeActive()
	if donor.alloc != m.alloc {
		panic("allocator: adopt across allocators")
	}

	m.alloc.transfer(donor.runs, m.tag)
	m.runs = append(m.runs, donor.runs...)
	m.accepted.Add(donor.tag)

	donor.runs = nil
	donor.head, donor.end = 0, 0
	donor.state = stateConsumed
}

// Resolve returns the n bytes at h, which must have been issued by an
// adopted donor.
func (m *MovedPageManager) Resolve(h MovableMemory, n int) []byte {
	m.mustBeLive()
	return m.alloc.resolve(h, n, m.tag, m.accepted.Contains)
}

// Pointer returns the address of h.
func (m *MovedPageManager) Pointer(h MovableMemory) unsafe.Pointer {
	return unsafe.Pointer(&m.Resolve(h, 1)[0]) //nolint:gosec // arena memory is off-heap and pinned
}

// Pages returns the number of pages held.
func (m *MovedPageManager) Pages() int {
	n := 0
	for _, r := range m.runs {
		n += int(r.count)
	}
	return n
}

// Delete returns all adopted pages and retires the manager. Deleting twice
// panics.
func (m *MovedPageManager) Delete() {
	m.mustBeLive()
	m.alloc.give(m.runs)
	m.runs = nil
	m.accepted.Clear()
	m.deleted = true
	m.alloc.retire()
}
