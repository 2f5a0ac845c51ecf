package allocator

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/dustin/go-humanize"

	"github.com/hupe1980/scoredef/internal/conv"
	"github.com/hupe1980/scoredef/internal/mmap"
)

const (
	// MinPageSize is the smallest accepted page size.
	MinPageSize = 512
	// Alignment of every allocation.
	Alignment = 8
)

var (
	// ErrInvalidSize is returned by New for unusable total or page sizes.
	ErrInvalidSize = errors.New("allocator: invalid size")
	// ErrOutOfPages is returned when the arena has no free run large enough.
	ErrOutOfPages = errors.New("allocator: out of pages")
	// ErrTooManyManagers is returned once every manager tag has been issued.
	ErrTooManyManagers = errors.New("allocator: page manager tags exhausted")
)

// MemoryAcquirer reserves process-wide memory for the arena.
type MemoryAcquirer interface {
	Reserve(n int64) error
	Release(n int64)
}

// Stats describes arena usage.
type Stats struct {
	PageSize       int
	PagesTotal     int
	PagesFree      int
	PagesInUse     int
	Managers       int
	Allocs         uint64
	BytesRequested uint64
	BytesWasted    uint64 // alignment padding plus abandoned page tails
}

func (s Stats) String() string {
	return fmt.Sprintf("Allocator{pages: %d/%d in use (%s each), managers: %d, allocs: %d, requested: %s, wasted: %s}",
		s.PagesInUse, s.PagesTotal,
		humanize.IBytes(uint64(s.PageSize)), //nolint:gosec // page size is positive
		s.Managers, s.Allocs,
		humanize.IBytes(s.BytesRequested),
		humanize.IBytes(s.BytesWasted),
	)
}

type options struct {
	guard    sync.Locker
	acquirer MemoryAcquirer
	checks   bool
	observer func(Stats)
}

// Option configures an Allocator.
type Option func(*options)

// WithGuard sets the lock protecting the free list. Defaults to a sync.Mutex.
func WithGuard(l sync.Locker) Option {
	return func(o *options) {
		o.guard = l
	}
}

// WithMemoryAcquirer reserves the arena size from a process-wide budget.
func WithMemoryAcquirer(acq MemoryAcquirer) Option {
	return func(o *options) {
		o.acquirer = acq
	}
}

// WithHandleChecks toggles ownership and tag validation on every resolve.
// Enabled by default.
func WithHandleChecks(enabled bool) Option {
	return func(o *options) {
		o.checks = enabled
	}
}

// WithObserver is called with fresh Stats after every page hand-out or return.
func WithObserver(fn func(Stats)) Option {
	return func(o *options) {
		o.observer = fn
	}
}

type run struct {
	first, count uint32
}

// Allocator owns one fixed-size arena divided into pages. Only the free list
// is shared; it is guarded for the duration of a hand-out or return.
type Allocator struct {
	opts     options
	mapping  *mmap.Mapping
	data     []byte
	pageSize int
	pageBits uint
	pages    uint32

	// guarded
	free    *roaring.Bitmap
	nextTag uint32
	live    int
	closed  bool

	// frame -> tag of the owning manager, 0 when free
	owner []atomic.Uint32

	allocs    atomic.Uint64
	requested atomic.Uint64
	wasted    atomic.Uint64
}

// New creates an allocator over totalSize bytes split into pageSize pages.
// pageSize must be a power of two of at least MinPageSize; totalSize is
// rounded down to a whole number of pages.
func New(totalSize, pageSize int, optFns ...Option) (*Allocator, error) {
	opts := options{checks: true}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.guard == nil {
		opts.guard = &sync.Mutex{}
	}

	pageBits, err := conv.Log2(pageSize)
	if err != nil || pageSize < MinPageSize {
		return nil, fmt.Errorf("%w: page size %d", ErrInvalidSize, pageSize)
	}
	if totalSize < pageSize {
		return nil, fmt.Errorf("%w: total size %d below page size %d", ErrInvalidSize, totalSize, pageSize)
	}
	frames, err := conv.IntToUint32(totalSize >> pageBits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSize, err)
	}
	size := int(frames) << pageBits
	if !conv.FitsBits(uint64(size), tagShift) { //nolint:gosec // size is positive
		return nil, fmt.Errorf("%w: total size %d exceeds handle range", ErrInvalidSize, totalSize)
	}

	if opts.acquirer != nil {
		if err := opts.acquirer.Reserve(int64(size)); err != nil {
			return nil, err
		}
	}

	mapping, err := mmap.MapAnon(size)
	if err != nil {
		if opts.acquirer != nil {
			opts.acquirer.Release(int64(size))
		}
		return nil, fmt.Errorf("allocator: map arena: %w", err)
	}

	free := roaring.New()
	free.AddRange(0, uint64(frames))

	return &Allocator{
		opts:     opts,
		mapping:  mapping,
		data:     mapping.Bytes(),
		pageSize: pageSize,
		pageBits: pageBits,
		pages:    frames,
		free:     free,
		owner:    make([]atomic.Uint32, frames),
	}, nil
}

// PageSize returns the page size in bytes.
func (a *Allocator) PageSize() int { return a.pageSize }

// TotalSize returns the usable arena size in bytes.
func (a *Allocator) TotalSize() int { return len(a.data) }

// Close releases the arena. It panics if any manager still holds pages.
func (a *Allocator) Close() error {
	a.opts.guard.Lock()
	if a.closed {
		a.opts.guard.Unlock()
		return nil
	}
	if held := uint64(a.pages) - a.free.GetCardinality(); held != 0 {
		a.opts.guard.Unlock()
		panic(fmt.Sprintf("allocator: close with %d pages still held", held))
	}
	a.closed = true
	a.data = nil
	a.opts.guard.Unlock()

	err := a.mapping.Close()
	if a.opts.acquirer != nil {
		a.opts.acquirer.Release(int64(int(a.pages) << a.pageBits))
	}
	return err
}

// Stats returns a snapshot of arena usage.
func (a *Allocator) Stats() Stats {
	a.opts.guard.Lock()
	free := int(a.free.GetCardinality()) //nolint:gosec // bounded by pages
	live := a.live
	a.opts.guard.Unlock()

	return Stats{
		PageSize:       a.pageSize,
		PagesTotal:     int(a.pages),
		PagesFree:      free,
		PagesInUse:     int(a.pages) - free,
		Managers:       live,
		Allocs:         a.allocs.Load(),
		BytesRequested: a.requested.Load(),
		BytesWasted:    a.wasted.Load(),
	}
}

func (a *Allocator) String() string { return a.Stats().String() }

func (a *Allocator) newTag() (uint32, error) {
	a.opts.guard.Lock()
	defer a.opts.guard.Unlock()
	if a.closed {
		panic("allocator: use after close")
	}
	if a.nextTag >= maxTag {
		return 0, ErrTooManyManagers
	}
	a.nextTag++
	a.live++
	return a.nextTag, nil
}

// reissue hands a live manager a fresh tag. It reports false once tags are
// exhausted.
func (a *Allocator) reissue() (uint32, bool) {
	a.opts.guard.Lock()
	defer a.opts.guard.Unlock()
	if a.nextTag >= maxTag {
		return 0, false
	}
	a.nextTag++
	return a.nextTag, true
}

func (a *Allocator) retire() {
	a.opts.guard.Lock()
	a.live--
	a.opts.guard.Unlock()
}

// take hands the lowest free run of n frames to tag.
func (a *Allocator) take(n, tag uint32) (run, bool) {
	a.opts.guard.Lock()
	if a.closed {
		a.opts.guard.Unlock()
		panic("allocator: use after close")
	}
	first, ok := lowestRun(a.free, n)
	if ok {
		a.free.RemoveRange(uint64(first), uint64(first)+uint64(n))
		for f := first; f < first+n; f++ {
			a.owner[f].Store(tag)
		}
	}
	a.opts.guard.Unlock()

	if !ok {
		return run{}, false
	}
	start := int(first) << a.pageBits
	clear(a.data[start : start+int(n)<<a.pageBits])
	a.notify()
	return run{first: first, count: n}, true
}

// give returns runs to the free list. When frames are OS-page aligned their
// memory is handed back to the kernel first, while the runs are still owned.
func (a *Allocator) give(runs []run) {
	if len(runs) == 0 {
		return
	}
	if a.pageSize%os.Getpagesize() == 0 {
		for _, r := range runs {
			_ = a.mapping.AdviseRange(int(r.first)<<a.pageBits, int(r.count)<<a.pageBits, mmap.AccessDontNeed)
		}
	}
	a.opts.guard.Lock()
	for _, r := range runs {
		for f := r.first; f < r.first+r.count; f++ {
			a.owner[f].Store(0)
		}
		a.free.AddRange(uint64(r.first), uint64(r.first)+uint64(r.count))
	}
	a.opts.guard.Unlock()
	a.notify()
}

// transfer re-owns runs to tag without touching the free list.
func (a *Allocator) transfer(runs []run, tag uint32) {
	a.opts.guard.Lock()
	for _, r := range runs {
		for f := r.first; f < r.first+r.count; f++ {
			a.owner[f].Store(tag)
		}
	}
	a.opts.guard.Unlock()
}

func (a *Allocator) notify() {
	if a.opts.observer != nil {
		a.opts.observer(a.Stats())
	}
}

func (a *Allocator) resolve(h MovableMemory, n int, owner uint32, accepts func(uint32) bool) []byte {
	if h == Null {
		panic("allocator: resolve of null handle")
	}
	off := h.offset()
	if n < 0 || off+n > len(a.data) {
		panic(fmt.Sprintf("allocator: handle %v out of range", h))
	}
	if a.opts.checks {
		last := off
		if n > 0 {
			last = off + n - 1
		}
		for f := off >> a.pageBits; f <= last>>a.pageBits; f++ {
			if a.owner[f].Load() != owner {
				panic(fmt.Sprintf("allocator: handle %v resolved against foreign page manager", h))
			}
		}
		if !accepts(h.tag()) {
			panic(fmt.Sprintf("allocator: handle %v carries foreign tag", h))
		}
	}
	return a.data[off : off+n : off+n]
}

func lowestRun(free *roaring.Bitmap, n uint32) (uint32, bool) {
	if free.IsEmpty() {
		return 0, false
	}
	if n == 1 {
		return free.Minimum(), true
	}
	var start, length uint32
	it := free.Iterator()
	for it.HasNext() {
		f := it.Next()
		if length > 0 && f == start+length {
			length++
		} else {
			start, length = f, 1
		}
		if length == n {
			return start, true
		}
	}
	return 0, false
}

func alignUp(n int) int {
	return (n + Alignment - 1) &^ (Alignment - 1)
}
