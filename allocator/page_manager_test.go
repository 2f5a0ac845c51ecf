package allocator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandle_RoundTrip(t *testing.T) {
	a := newTestAllocator(t, 64*kib, 4*kib)
	pm, err := a.NewPageManager()
	require.NoError(t, err)

	payloads := [][]byte{[]byte("main"), []byte("a.c"), make([]byte, 3000), []byte("x")}
	for i := range payloads[2] {
		payloads[2][i] = byte(i)
	}

	handles := make([]MovableMemory, len(payloads))
	for i, p := range payloads {
		h, err := pm.AllocMovable(len(p))
		require.NoError(t, err)
		require.False(t, h.IsNull())
		copy(pm.Resolve(h, len(p)), p)
		handles[i] = h
	}
	for i, p := range payloads {
		assert.Equal(t, p, pm.Resolve(handles[i], len(p)))
	}
	assert.Equal(t, &pm.Resolve(handles[1], 1)[0], (*byte)(pm.Pointer(handles[1])))

	pm.Delete()
	require.NoError(t, a.Close())
}

func TestHandle_ForeignManagerRejected(t *testing.T) {
	a := newTestAllocator(t, 64*kib, 4*kib)
	pm1, err := a.NewPageManager()
	require.NoError(t, err)
	pm2, err := a.NewPageManager()
	require.NoError(t, err)

	h1, err := pm1.AllocMovable(16)
	require.NoError(t, err)
	_, err = pm2.AllocMovable(16)
	require.NoError(t, err)

	assert.Panics(t, func() { pm2.Resolve(h1, 16) })
	assert.Panics(t, func() { pm1.Resolve(Null, 1) })
	assert.Panics(t, func() { pm1.Resolve(h1, 128*kib) })

	pm1.Delete()
	pm2.Delete()
	require.NoError(t, a.Close())
}

func TestHandle_ChecksDisabled(t *testing.T) {
	a := newTestAllocator(t, 64*kib, 4*kib, WithHandleChecks(false))
	pm1, err := a.NewPageManager()
	require.NoError(t, err)
	pm2, err := a.NewPageManager()
	require.NoError(t, err)

	h1, err := pm1.AllocMovable(16)
	require.NoError(t, err)
	assert.NotPanics(t, func() { pm2.Resolve(h1, 16) })

	pm1.Delete()
	pm2.Delete()
	require.NoError(t, a.Close())
}

func TestHandle_String(t *testing.T) {
	assert.Equal(t, "mm(null)", Null.String())
	assert.Equal(t, "mm(3:0x40)", makeHandle(3, 0x40).String())
}

func TestPageManager_Accounting(t *testing.T) {
	a := newTestAllocator(t, 64*kib, 4*kib)
	pm, err := a.NewPageManager()
	require.NoError(t, err)

	_, err = pm.Alloc(3)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), pm.Requested())
	assert.Equal(t, uint64(5), pm.Wasted())

	// 4088 bytes remain on the page; a 4 KiB request abandons them.
	_, err = pm.Alloc(4 * kib)
	require.NoError(t, err)
	assert.Equal(t, uint64(5+4088), pm.Wasted())
	assert.Equal(t, uint64(5+4088), a.Stats().BytesWasted)

	pm.Delete()
	require.NoError(t, a.Close())
}

func TestHandle_ResolvePastPageEndRejected(t *testing.T) {
	a := newTestAllocator(t, 4*MinPageSize, MinPageSize)
	pm1, err := a.NewPageManager()
	require.NoError(t, err)
	pm2, err := a.NewPageManager()
	require.NoError(t, err)

	var last MovableMemory
	for range MinPageSize / 8 {
		last, err = pm1.AllocMovable(8)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, pm1.Pages())

	b, err := pm2.Alloc(8)
	require.NoError(t, err)
	copy(b, "SECRET!!")

	assert.NotPanics(t, func() { pm1.Resolve(last, 8) })
	assert.Panics(t, func() { pm1.Resolve(last, 16) })

	pm1.Delete()
	pm2.Delete()
	require.NoError(t, a.Close())
}

func TestHandle_ResolveAcrossForeignFrameRejected(t *testing.T) {
	a := newTestAllocator(t, 4*MinPageSize, MinPageSize)
	pm1, err := a.NewPageManager()
	require.NoError(t, err)
	pm2, err := a.NewPageManager()
	require.NoError(t, err)

	// pm1 owns frames 0 and 2, pm2 owns frame 1.
	h0, err := pm1.AllocMovable(MinPageSize)
	require.NoError(t, err)
	_, err = pm2.AllocMovable(MinPageSize)
	require.NoError(t, err)
	h2, err := pm1.AllocMovable(MinPageSize)
	require.NoError(t, err)

	assert.NotPanics(t, func() { pm1.Resolve(h0, MinPageSize) })
	assert.NotPanics(t, func() { pm1.Resolve(h2, MinPageSize) })
	assert.Panics(t, func() { pm1.Resolve(h0, 3*MinPageSize) })

	moved, err := a.NewMovedPageManager()
	require.NoError(t, err)
	moved.Adopt(pm1)
	assert.NotPanics(t, func() { moved.Resolve(h2, MinPageSize) })
	assert.Panics(t, func() { moved.Resolve(h0, 2*MinPageSize) })

	moved.Delete()
	pm1.Delete()
	pm2.Delete()
	require.NoError(t, a.Close())
}

func TestHandle_StaleAfterFreeRejected(t *testing.T) {
	a := newTestAllocator(t, 8*kib, 4*kib)
	pm, err := a.NewPageManager()
	require.NoError(t, err)

	h, err := pm.AllocMovable(8)
	require.NoError(t, err)
	copy(pm.Resolve(h, 8), "oldvalue")

	pm.Free()

	h2, err := pm.AllocMovable(8)
	require.NoError(t, err)
	copy(pm.Resolve(h2, 8), "newvalue")

	assert.NotEqual(t, h, h2)
	assert.Equal(t, h.offset(), h2.offset())
	assert.Panics(t, func() { pm.Resolve(h, 8) })
	assert.Equal(t, []byte("newvalue"), pm.Resolve(h2, 8))

	pm.Delete()
	require.NoError(t, a.Close())
}
