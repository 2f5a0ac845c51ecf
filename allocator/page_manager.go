package allocator

import (
	"fmt"
	"unsafe"
)

type pmState uint8

const (
	stateActive pmState = iota
	stateConsumed
	stateDeleted
)

// PageManager is an append-only chain of pages bound to one allocation
// context. It bump-allocates without locking and is not safe for concurrent
// use.
type PageManager struct {
	alloc *Allocator
	tag   uint32
	runs  []run
	head  int
	end   int
	state pmState

	requested uint64
	wasted    uint64
}

// NewPageManager returns a manager with zero pages.
func (a *Allocator) NewPageManager() (*PageManager, error) {
	tag, err := a.newTag()
	if err != nil {
		return nil, err
	}
	return &PageManager{alloc: a, tag: tag}, nil
}

func (pm *PageManager) mustBeActive() {
	switch pm.state {
	case stateConsumed:
		panic("allocator: page manager used after its pages were moved")
	case stateDeleted:
		panic("allocator: page manager used after delete")
	}
}

// Alloc returns size zeroed bytes from the current page, requesting a new
// page when the current one cannot hold the request. The leftover of the old
// page is abandoned. A zero size returns nil.
func (pm *PageManager) Alloc(size int) ([]byte, error) {
	h, err := pm.AllocMovable(size)
	if err != nil || h == Null {
		return nil, err
	}
	off := h.offset()
	return pm.alloc.data[off : off+size : off+size], nil
}

// AllocMovable is Alloc returning a relocatable handle. A zero size returns
// Null.
func (pm *PageManager) AllocMovable(size int) (MovableMemory, error) {
	pm.mustBeActive()
	if size < 0 {
		panic(fmt.Sprintf("allocator: negative allocation size %d", size))
	}
	if size == 0 {
		return Null, nil
	}

	aligned := alignUp(size)
	if pm.head+aligned > pm.end {
		if err := pm.grow(size, aligned); err != nil {
			return Null, err
		}
	}

	off := pm.head
	pm.head += aligned

	pad := uint64(aligned - size) //nolint:gosec // aligned >= size
	pm.requested += uint64(size)  //nolint:gosec // size > 0
	pm.wasted += pad
	pm.alloc.allocs.Add(1)
	pm.alloc.requested.Add(uint64(size)) //nolint:gosec // size > 0
	pm.alloc.wasted.Add(pad)

	return makeHandle(pm.tag, off), nil
}

func (pm *PageManager) grow(size, aligned int) error {
	a := pm.alloc
	n := uint32((aligned + a.pageSize - 1) >> a.pageBits) //nolint:gosec // bounded by arena size
	r, ok := a.take(n, pm.tag)
	if !ok {
		return fmt.Errorf("%w: %d bytes requested (%d pages of %d bytes)", ErrOutOfPages, size, n, a.pageSize)
	}

	if pm.end > pm.head {
		tail := uint64(pm.end - pm.head) //nolint:gosec // end > head
		pm.wasted += tail
		a.wasted.Add(tail)
	}
	pm.runs = append(pm.runs, r)
	pm.head = int(r.first) << a.pageBits
	pm.end = pm.head + int(r.count)<<a.pageBits
	return nil
}

// Resolve returns the n bytes at h. It panics if h was not issued by this
// manager or if its page has been freed or handed elsewhere.
func (pm *PageManager) Resolve(h MovableMemory, n int) []byte {
	pm.mustBeActive()
	return pm.alloc.resolve(h, n, pm.tag, pm.accepts)
}

// Pointer returns the address of h.
func (pm *PageManager) Pointer(h MovableMemory) unsafe.Pointer {
	return unsafe.Pointer(&pm.Resolve(h, 1)[0]) //nolint:gosec // arena memory is off-heap and pinned
}

func (pm *PageManager) accepts(tag uint32) bool { return tag == pm.tag }

// Pages returns the number of pages held.
func (pm *PageManager) Pages() int {
	n := 0
	for _, r := range pm.runs {
		n += int(r.count)
	}
	return n
}

// Requested returns the bytes requested through this manager.
func (pm *PageManager) Requested() uint64 { return pm.requested }

// Wasted returns padding and abandoned page tails.
func (pm *PageManager) Wasted() uint64 { return pm.wasted }

// Free returns every page to the allocator. The manager stays usable and
// starts over with zero pages under a new tag, so handles issued before Free
// are rejected. Once tags are exhausted the old tag is kept.
func (pm *PageManager) Free() {
	pm.mustBeActive()
	pm.alloc.give(pm.runs)
	pm.runs = nil
	pm.head, pm.end = 0, 0
	if tag, ok := pm.alloc.reissue(); ok {
		pm.tag = tag
	}
}

// Delete frees the manager's pages and retires it. Deleting twice panics.
// A manager whose pages were moved may still be deleted once.
func (pm *PageManager) Delete() {
	if pm.state == stateDeleted {
		panic("allocator: page manager deleted twice")
	}
	if pm.state == stateActive {
		pm.alloc.give(pm.runs)
	}
	pm.runs = nil
	pm.head, pm.end = 0, 0
	pm.state = stateDeleted
	pm.alloc.retire()
}
