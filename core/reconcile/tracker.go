package reconcile

import (
	"context"
	"time"
)

// WindowStore persists the last window end per mapping. Implementations live
// in core/windowstore.
type WindowStore interface {
	// Load returns the stored window end, or the zero time when none is stored.
	Load(ctx context.Context, mapping string) (time.Time, error)

	// Save stores the window end for a mapping.
	Save(ctx context.Context, mapping string, end time.Time) error

	// Reset forgets the stored window end, so the next cycle scans from the beginning.
	Reset(ctx context.Context, mapping string) error
}

// Tracker computes incremental polling windows from a WindowStore.
type Tracker struct {
	store WindowStore
}

// NewTracker returns a tracker backed by store.
func NewTracker(store WindowStore) *Tracker {
	return &Tracker{store: store}
}

// Window returns the range (last window end, cycleStart] for a mapping.
func (t *Tracker) Window(ctx context.Context, mapping string, cycleStart time.Time) (Window, error) {
	after, err := t.store.Load(ctx, mapping)
	if err != nil {
		return Window{}, Transient(err, "load window")
	}
	return Window{After: after, Before: cycleStart}, nil
}

// Last returns the stored window end of a mapping.
func (t *Tracker) Last(ctx context.Context, mapping string) (time.Time, error) {
	end, err := t.store.Load(ctx, mapping)
	if err != nil {
		return time.Time{}, Transient(err, "load window")
	}
	return end, nil
}

// Advance stores end as the new window end. It never moves a window
// backwards and returns the end that is stored afterwards.
func (t *Tracker) Advance(ctx context.Context, mapping string, end time.Time) (time.Time, error) {
	current, err := t.store.Load(ctx, mapping)
	if err != nil {
		return time.Time{}, Transient(err, "load window")
	}
	if !end.After(current) {
		return current, nil
	}
	if err := t.store.Save(ctx, mapping, end); err != nil {
		return current, Transient(err, "save window")
	}
	return end, nil
}

// Reset clears the window of a mapping.
func (t *Tracker) Reset(ctx context.Context, mapping string) error {
	if err := t.store.Reset(ctx, mapping); err != nil {
		return Transient(err, "reset window")
	}
	return nil
}
