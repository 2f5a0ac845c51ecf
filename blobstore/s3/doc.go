// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("archives/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	err = session.Archive(ctx, store)
//
// # Features
//
//   - Range reads for partial fetches
//   - Multipart uploads with CRC32C checksums
//   - Automatic pagination for listing
package s3
