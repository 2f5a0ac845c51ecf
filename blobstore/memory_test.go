package blobstore

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	w, err := store.Create(ctx, "b/2")
	require.NoError(t, err)
	_, err = w.Write([]byte("streamed"))
	require.NoError(t, err)

	_, err = store.Open(ctx, "b/2")
	require.ErrorIs(t, err, ErrNotFound, "blob is invisible until Close")
	require.NoError(t, w.Close())

	data := []byte("payload")
	require.NoError(t, store.Put(ctx, "a/1", data))
	data[0] = 'X'

	got, err := ReadAll(ctx, store, "a/1")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/1", "b/2"}, names)
	assert.Equal(t, 2, store.Len())

	b, err := store.Open(ctx, "b/2")
	require.NoError(t, err)
	r, err := b.ReadRange(ctx, 3, 100)
	require.NoError(t, err)
	tail, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "eamed", string(tail))

	_, err = b.ReadRange(ctx, 100, 1)
	assert.ErrorIs(t, err, io.EOF)

	require.NoError(t, store.Delete(ctx, "a/1"))
	require.NoError(t, store.Delete(ctx, "a/1"))
	names, err = store.List(ctx, "a/")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestAbort(t *testing.T) {
	ctx := context.Background()
	stores := map[string]BlobStore{
		"memory": NewMemoryStore(),
		"local":  NewLocalStore(t.TempDir()),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			w, err := store.Create(ctx, "run/unified/00-String.def")
			require.NoError(t, err)
			_, err = w.Write([]byte("partial"))
			require.NoError(t, err)

			require.Implements(t, (*Aborter)(nil), w)
			require.NoError(t, Abort(w))
			require.NoError(t, Abort(w))

			_, err = w.Write([]byte("more"))
			require.Error(t, err)
			_, err = store.Open(ctx, "run/unified/00-String.def")
			require.ErrorIs(t, err, ErrNotFound)

			names, err := store.List(ctx, "")
			require.NoError(t, err)
			assert.Empty(t, names)
		})
	}
}
