package reconcile_test

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"record-sync/core/reconcile"
	"record-sync/core/windowstore"
)

type brokenStore struct{ err error }

func (b brokenStore) Load(context.Context, string) (time.Time, error) { return time.Time{}, b.err }
func (b brokenStore) Save(context.Context, string, time.Time) error   { return b.err }
func (b brokenStore) Reset(context.Context, string) error             { return b.err }

func TestTracker(t *testing.T) {
	ctx := context.Background()
	tracker := reconcile.NewTracker(windowstore.NewMemory())

	w, err := tracker.Window(ctx, "contacts", t0)
	require.NoError(t, err)
	assert.True(t, w.After.IsZero())
	assert.Equal(t, t0, w.Before)

	end, err := tracker.Advance(ctx, "contacts", t0)
	require.NoError(t, err)
	assert.Equal(t, t0, end)

	w, err = tracker.Window(ctx, "contacts", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, reconcile.Window{After: t0, Before: t0.Add(time.Minute)}, w)

	t.Run("never moves backwards", func(t *testing.T) {
		end, err := tracker.Advance(ctx, "contacts", t0.Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, t0, end)
	})

	t.Run("windows are per mapping", func(t *testing.T) {
		last, err := tracker.Last(ctx, "accounts")
		require.NoError(t, err)
		assert.True(t, last.IsZero())
	})

	t.Run("reset", func(t *testing.T) {
		require.NoError(t, tracker.Reset(ctx, "contacts"))
		last, err := tracker.Last(ctx, "contacts")
		require.NoError(t, err)
		assert.True(t, last.IsZero())
	})

	t.Run("store failures are transient", func(t *testing.T) {
		broken := reconcile.NewTracker(brokenStore{err: errors.New("disk full")})
		_, err := broken.Window(ctx, "contacts", t0)
		assert.True(t, reconcile.IsTransient(err))
		_, err = broken.Advance(ctx, "contacts", t0)
		assert.True(t, reconcile.IsTransient(err))
	})
}
