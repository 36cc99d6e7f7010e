package reconcile

import (
	"context"
	"time"
)

// RecordType is the capability contract a store adapter exposes for one
// entity type. Both the local and the remote adapters implement it.
type RecordType interface {
	// Name returns the entity type name (table name or remote object name).
	Name() string

	// Side returns the store the record type lives in.
	Side() Side

	// Find returns the record carrying the given remote identity.
	// Local adapters look it up through the lookup column.
	// Implementations return an error matching ErrNotFound when absent.
	Find(ctx context.Context, remoteID string) (Instance, error)

	// All returns the records matching the query. Filtering happens in the store.
	All(ctx context.Context, q Query) ([]Instance, error)

	// Create inserts a record with the given native attributes.
	// Validation and constraint failures are reported as ErrPersistence.
	Create(ctx context.Context, attrs Attributes) (Instance, error)

	// DestroyAll removes every record carrying one of the remote identities.
	DestroyAll(ctx context.Context, remoteIDs []string) error

	// HasField reports whether the record type has the given native field.
	HasField(ctx context.Context, name string) (bool, error)
}

// NativeFinder is implemented by record types that can look records up by
// their own primary key. The local adapter implements it so associations can
// follow foreign keys.
type NativeFinder interface {
	FindNative(ctx context.Context, id string) (Instance, error)
}

// Instance is one concrete record on one side.
type Instance interface {
	// ID returns the record's own primary key in its store.
	ID() string

	// RemoteID returns the pairing identity: the record's own id on the remote
	// side, the lookup column value on the local side.
	RemoteID() string

	// IsPaired reports whether the record is known to have a counterpart.
	IsPaired() bool

	// Attributes returns a snapshot of the native attribute set.
	Attributes() Attributes

	// LastUpdate returns the last content modification time.
	LastUpdate() time.Time

	// LastSync returns the last time this engine wrote the record.
	LastSync() time.Time

	// Update applies native attributes and advances the sync timestamp.
	Update(ctx context.Context, attrs Attributes) (Instance, error)

	// MarkSynced advances LastSync strictly past LastUpdate.
	MarkSynced(ctx context.Context) error
}

// updatedInternally reports whether the latest change of the instance was
// written by this engine.
func updatedInternally(inst Instance) bool {
	sync := inst.LastSync()
	if sync.IsZero() {
		return false
	}
	return !sync.Before(inst.LastUpdate())
}
