package allocator

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/scoredef/internal/resource"
)

const kib = 1024

func newTestAllocator(t *testing.T, total, page int, opts ...Option) *Allocator {
	t.Helper()
	a, err := New(total, page, opts...)
	require.NoError(t, err)
	return a
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		total, page int
	}{
		{"page not power of two", 64 * kib, 3000},
		{"page too small", 64 * kib, 256},
		{"total below page", 2 * kib, 4 * kib},
		{"zero page", 64 * kib, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.total, tt.page)
			assert.ErrorIs(t, err, ErrInvalidSize)
		})
	}
}

func TestNew_RoundsDownToPages(t *testing.T) {
	a := newTestAllocator(t, 10*kib+100, 4*kib)
	defer a.Close()

	assert.Equal(t, 8*kib, a.TotalSize())
	assert.Equal(t, 2, a.Stats().PagesTotal)
}

func TestAlloc_Bounds(t *testing.T) {
	a := newTestAllocator(t, 64*kib, 4*kib)
	pm, err := a.NewPageManager()
	require.NoError(t, err)

	type span struct{ lo, hi uintptr }
	var spans []span
	sizes := []int{1, 7, 8, 100, 1000, 4096, 13, 2048, 512}
	total := 0
	for _, size := range sizes {
		total += size
		require.LessOrEqual(t, total, 64*kib)
		b, err := pm.Alloc(size)
		require.NoError(t, err)
		require.Len(t, b, size)

		lo := uintptr(unsafe.Pointer(&b[0]))
		assert.Zero(t, lo%Alignment)
		spans = append(spans, span{lo, lo + uintptr(size)})
	}

	for i := range spans {
		for j := i + 1; j < len(spans); j++ {
			overlap := spans[i].lo < spans[j].hi && spans[j].lo < spans[i].hi
			assert.False(t, overlap, "allocations %d and %d overlap", i, j)
		}
	}

	pm.Delete()
	require.NoError(t, a.Close())
}

func TestAlloc_ZeroSize(t *testing.T) {
	a := newTestAllocator(t, 8*kib, 4*kib)
	pm, err := a.NewPageManager()
	require.NoError(t, err)

	b, err := pm.Alloc(0)
	require.NoError(t, err)
	assert.Nil(t, b)

	h, err := pm.AllocMovable(0)
	require.NoError(t, err)
	assert.True(t, h.IsNull())
	assert.Zero(t, pm.Pages())

	pm.Delete()
	require.NoError(t, a.Close())
}

func TestAlloc_SixthPage(t *testing.T) {
	a := newTestAllocator(t, 64*kib, 4*kib)
	pm, err := a.NewPageManager()
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		_, err := pm.Alloc(kib)
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, pm.Pages(), 5)

	_, err = pm.Alloc(kib)
	require.NoError(t, err)
	assert.Equal(t, 6, pm.Pages())
	assert.Equal(t, 6, a.Stats().PagesInUse)

	pm.Delete()
	require.NoError(t, a.Close())
}

func TestAlloc_OutOfPages(t *testing.T) {
	a := newTestAllocator(t, 8*kib, 4*kib)
	pm, err := a.NewPageManager()
	require.NoError(t, err)

	_, err = pm.Alloc(4 * kib)
	require.NoError(t, err)
	_, err = pm.Alloc(4 * kib)
	require.NoError(t, err)

	_, err = pm.Alloc(4 * kib)
	require.ErrorIs(t, err, ErrOutOfPages)

	pm.Delete()
	require.NoError(t, a.Close())
}

func TestAlloc_MultiPageRun(t *testing.T) {
	a := newTestAllocator(t, 32*kib, 4*kib)
	pm, err := a.NewPageManager()
	require.NoError(t, err)

	_, err = pm.Alloc(100)
	require.NoError(t, err)

	h, err := pm.AllocMovable(10 * kib)
	require.NoError(t, err)
	assert.Equal(t, 4, pm.Pages())

	b := pm.Resolve(h, 10*kib)
	b[len(b)-1] = 0xFF
	assert.Equal(t, byte(0xFF), pm.Resolve(h, 10*kib)[10*kib-1])

	pm.Delete()
	require.NoError(t, a.Close())
}

func TestFree_PagesReused(t *testing.T) {
	a := newTestAllocator(t, 8*kib, 4*kib)
	pm1, err := a.NewPageManager()
	require.NoError(t, err)
	pm2, err := a.NewPageManager()
	require.NoError(t, err)

	b, err := pm1.Alloc(4 * kib)
	require.NoError(t, err)
	b[0] = 42
	_, err = pm1.Alloc(4 * kib)
	require.NoError(t, err)
	assert.Equal(t, 0, a.Stats().PagesFree)

	pm1.Free()
	assert.Equal(t, 2, a.Stats().PagesFree)

	// pm1 stays usable, and handed-out pages are zeroed.
	b2, err := pm2.Alloc(4 * kib)
	require.NoError(t, err)
	assert.Zero(t, b2[0])
	_, err = pm1.Alloc(8)
	require.NoError(t, err)

	pm1.Delete()
	pm2.Delete()
	require.NoError(t, a.Close())
}

func TestPageManager_DeleteTwicePanics(t *testing.T) {
	a := newTestAllocator(t, 8*kib, 4*kib)
	pm, err := a.NewPageManager()
	require.NoError(t, err)

	pm.Delete()
	assert.PanicsWithValue(t, "allocator: page manager deleted twice", pm.Delete)
	assert.Panics(t, func() { _, _ = pm.Alloc(8) })
	require.NoError(t, a.Close())
}

func TestClose_PanicsWhilePagesHeld(t *testing.T) {
	a := newTestAllocator(t, 8*kib, 4*kib)
	pm, err := a.NewPageManager()
	require.NoError(t, err)
	_, err = pm.Alloc(8)
	require.NoError(t, err)

	assert.Panics(t, func() { _ = a.Close() })

	pm.Delete()
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
}

func TestAllocator_MemoryBudget(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryBudget: 100 * kib})

	a := newTestAllocator(t, 64*kib, 4*kib, WithMemoryAcquirer(rc))
	assert.Equal(t, int64(64*kib), rc.Reserved())

	_, err := New(64*kib, 4*kib, WithMemoryAcquirer(rc))
	assert.ErrorIs(t, err, resource.ErrBudgetExceeded)

	require.NoError(t, a.Close())
	assert.Zero(t, rc.Reserved())
}

type countingLocker struct {
	mu    sync.Mutex
	locks int
}

func (l *countingLocker) Lock()   { l.mu.Lock(); l.locks++ }
func (l *countingLocker) Unlock() { l.mu.Unlock() }

func TestAllocator_GuardOnlyOnPageTraffic(t *testing.T) {
	guard := &countingLocker{}
	a := newTestAllocator(t, 16*kib, 4*kib, WithGuard(guard))
	pm, err := a.NewPageManager()
	require.NoError(t, err)

	_, err = pm.Alloc(16)
	require.NoError(t, err)
	before := guard.locks

	for i := 0; i < 100; i++ {
		_, err := pm.Alloc(16)
		require.NoError(t, err)
	}
	assert.Equal(t, before, guard.locks, "fast path must not lock")

	pm.Delete()
	require.NoError(t, a.Close())
}

func TestAllocator_Observer(t *testing.T) {
	var seen []Stats
	a := newTestAllocator(t, 16*kib, 4*kib, WithObserver(func(s Stats) { seen = append(seen, s) }))
	pm, err := a.NewPageManager()
	require.NoError(t, err)

	_, err = pm.Alloc(5 * kib)
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, 2, seen[0].PagesInUse)

	pm.Delete()
	require.Len(t, seen, 2)
	assert.Equal(t, 0, seen[1].PagesInUse)
	require.NoError(t, a.Close())
}

func TestAllocator_ConcurrentManagers(t *testing.T) {
	a := newTestAllocator(t, 1024*kib, 4*kib)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			pm, err := a.NewPageManager()
			if !assert.NoError(t, err) {
				return
			}
			var handles []MovableMemory
			for i := 0; i < 200; i++ {
				h, err := pm.AllocMovable(64)
				if !assert.NoError(t, err) {
					return
				}
				pm.Resolve(h, 64)[0] = byte(w)
				handles = append(handles, h)
			}
			for _, h := range handles {
				assert.Equal(t, byte(w), pm.Resolve(h, 64)[0])
			}
			pm.Delete()
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 0, a.Stats().PagesInUse)
	require.NoError(t, a.Close())
}

func TestStats_String(t *testing.T) {
	a := newTestAllocator(t, 16*kib, 4*kib)
	defer a.Close()
	assert.Contains(t, a.String(), "pages: 0/4 in use (4.0 KiB each)")
}
