package scoredef

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hupe1980/scoredef/blobstore"
	"github.com/hupe1980/scoredef/blobstore/minio"
	"github.com/hupe1980/scoredef/blobstore/s3"
	"github.com/hupe1980/scoredef/config"
)

// OpenArchiveStore returns the blob store configured in a. It returns
// ErrNoArchive for the "none" backend.
func OpenArchiveStore(ctx context.Context, a config.Archive) (blobstore.BlobStore, error) {
	switch a.Backend {
	case config.BackendNone, "":
		return nil, ErrNoArchive
	case config.BackendMemory:
		return blobstore.NewMemoryStore(), nil
	case config.BackendLocal:
		return blobstore.NewLocalStore(filepath.Join(a.Path, filepath.FromSlash(a.Prefix))), nil
	case config.BackendMinio:
		store, err := minio.New(ctx, minio.Config{
			Endpoint:  a.Endpoint,
			AccessKey: a.AccessKey,
			SecretKey: a.SecretKey,
			Bucket:    a.Bucket,
			Prefix:    a.Prefix,
			Secure:    a.Secure,
		})
		if err != nil {
			return nil, fmt.Errorf("scoredef: minio archive: %w", err)
		}
		return store, nil
	case config.BackendS3:
		opts := []s3.Option{s3.WithPrefix(a.Prefix)}
		if a.Region != "" {
			opts = append(opts, s3.WithRegion(a.Region))
		}
		if a.Endpoint != "" {
			opts = append(opts, s3.WithEndpoint(a.Endpoint))
		}
		store, err := s3.New(ctx, a.Bucket, opts...)
		if err != nil {
			return nil, fmt.Errorf("scoredef: s3 archive: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown archive backend %q", config.ErrInvalidConfig, a.Backend)
	}
}
