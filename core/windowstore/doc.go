// Package windowstore persists the end of the last completed sync window per
// mapping.
//
// The reconciliation Tracker only needs Load, Save and Reset. Every backend in
// this package also implements List so the CLI and the status feature can show
// all windows at once.
//
// # Backends
//
//   - database: one row per mapping in a gorm managed table (default "sync_windows").
//   - storage: one JSON object per mapping in the configured bucket.
//   - file: a single JSON document on local disk, replaced atomically.
//   - memory: process local, used in tests and dry runs.
//
// # Usage
//
//	store, err := windowstore.Build(ctx, cfg.Tracker, db, storageClient, cfg.Storage.Bucket)
//	if err != nil {
//	    return err
//	}
//	tracker := reconcile.NewTracker(store)
package windowstore
