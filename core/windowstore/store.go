package windowstore

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"

	"record-sync/core/storage"
)

// Store persists window ends keyed by mapping name. A mapping that was never
// saved loads as the zero time.
type Store interface {
	Load(ctx context.Context, mapping string) (time.Time, error)
	Save(ctx context.Context, mapping string, end time.Time) error
	Reset(ctx context.Context, mapping string) error
	List(ctx context.Context) (map[string]time.Time, error)
}

// Build returns the backend selected by cfg. The database backend migrates its
// table and the storage backend creates its bucket before returning.
func Build(ctx context.Context, cfg Config, db *gorm.DB, client storage.Client, bucket string) (Store, error) {
	switch cfg.Backend {
	case BackendDatabase, "":
		if db == nil {
			return nil, errors.New("database window store requires a database connection")
		}
		store := NewDatabase(db, cfg.Table)
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case BackendStorage:
		if client == nil {
			return nil, errors.New("storage window store requires a storage client")
		}
		if err := storage.EnsureBucket(ctx, client, bucket); err != nil {
			return nil, err
		}
		return NewObjectStore(client, bucket, cfg.Prefix), nil
	case BackendFile:
		return NewFile(cfg.Path), nil
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, errors.Newf("unknown window store backend %q", cfg.Backend)
	}
}
