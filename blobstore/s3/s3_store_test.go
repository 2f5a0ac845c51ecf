package s3

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/scoredef/blobstore"
)

// TestIntegration_S3Store needs S3_BUCKET and ambient AWS credentials.
func TestIntegration_S3Store(t *testing.T) {
	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		t.Skip("S3_BUCKET not set")
	}
	ctx := t.Context()

	opts := []Option{WithPrefix(fmt.Sprintf("test-scoredef-%d", time.Now().UnixNano()))}
	if endpoint := os.Getenv("S3_ENDPOINT"); endpoint != "" {
		opts = append(opts, WithEndpoint(endpoint))
	}
	store, err := New(ctx, bucket, opts...)
	require.NoError(t, err)

	frames := map[string][]byte{
		"run/unified/00-String.def":               []byte("strings"),
		"run/mapping/rank-00000/source-00000.map": []byte("process"),
		"run/mapping/rank-00000/source-00001.map": []byte("location"),
		"run/manifest.json":                       []byte(`{"version":1}`),
	}
	for name, data := range frames {
		require.NoError(t, store.Put(ctx, name, data))
	}
	t.Cleanup(func() {
		for name := range frames {
			_ = store.Delete(ctx, name)
		}
	})

	names, err := store.List(ctx, "run/mapping/rank-00000/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"run/mapping/rank-00000/source-00000.map",
		"run/mapping/rank-00000/source-00001.map",
	}, names)

	got, err := blobstore.ReadAll(ctx, store, "run/manifest.json")
	require.NoError(t, err)
	assert.Equal(t, frames["run/manifest.json"], got)

	w, err := store.Create(ctx, "run/unified/01-SourceFile.def")
	require.NoError(t, err)
	_, err = w.Write([]byte("source files"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	frames["run/unified/01-SourceFile.def"] = nil

	b, err := store.Open(ctx, "run/unified/01-SourceFile.def")
	require.NoError(t, err)
	buf := make([]byte, 5)
	n, err := b.ReadAt(ctx, buf, 7)
	require.NoError(t, err)
	assert.Equal(t, "files", string(buf[:n]))
	require.NoError(t, b.Close())

	_, err = store.Open(ctx, "run/missing")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
