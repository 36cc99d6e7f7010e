// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client behind a small Client interface so the sync
// service can keep its state (tracker windows) in an S3 compatible bucket and
// tests can replace it with the mock in core/storage/mocks.
//
// # Operations
//
//   - BucketExists / MakeBucket: used by EnsureBucket at startup.
//   - PutObject: writes a state object.
//   - GetObject: reads a state object as a stream.
//   - ListObjects: lists state objects under a prefix.
//   - RemoveObject: deletes a state object.
//
// Missing objects surface as errors on the first read; use IsNotFound to
// detect them.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	if err := storage.EnsureBucket(ctx, client, cfg.Storage.Bucket); err != nil {
//	    return err
//	}
package storage
