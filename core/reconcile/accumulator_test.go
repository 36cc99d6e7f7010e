package reconcile_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"record-sync/core/reconcile"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestAccumulatorDiff(t *testing.T) {
	t.Run("newest value per field wins", func(t *testing.T) {
		acc := reconcile.NewAccumulator()
		acc.Store(t0.Add(1*time.Second), reconcile.Attributes{"name": "A", "note": "y"})
		acc.Store(t0.Add(2*time.Second), reconcile.Attributes{"name": "B"})

		diff := acc.Diff(reconcile.Attributes{"name": "A", "note": "y"})
		assert.Equal(t, reconcile.Attributes{"name": "B"}, diff)
	})

	t.Run("older observation does not override", func(t *testing.T) {
		acc := reconcile.NewAccumulator()
		acc.Store(t0.Add(5*time.Second), reconcile.Attributes{"name": "new"})
		acc.Store(t0, reconcile.Attributes{"name": "old", "title": "Dr"})

		assert.Equal(t, reconcile.Attributes{"name": "new", "title": "Dr"}, acc.Merged())
	})

	t.Run("equal timestamps prefer the later insertion", func(t *testing.T) {
		acc := reconcile.NewAccumulator()
		acc.Store(t0, reconcile.Attributes{"name": "remote"})
		acc.Store(t0, reconcile.Attributes{"name": "local"})

		assert.Equal(t, "local", acc.Merged()["name"])
	})

	t.Run("missing keys are part of the diff", func(t *testing.T) {
		acc := reconcile.NewAccumulator()
		acc.Store(t0, reconcile.Attributes{"name": "A", "phone": nil})

		assert.Equal(t, reconcile.Attributes{"phone": nil}, acc.Diff(reconcile.Attributes{"name": "A"}))
	})

	t.Run("values are compared across representations", func(t *testing.T) {
		acc := reconcile.NewAccumulator()
		acc.Store(t0, reconcile.Attributes{
			"score":      float64(3),
			"updated_on": t0.In(time.FixedZone("CET", 3600)),
			"code":       []byte("X1"),
		})

		diff := acc.Diff(reconcile.Attributes{"score": int64(3), "updated_on": t0, "code": "X1"})
		assert.Empty(t, diff)
	})
}

func TestAccumulatorOrderInsensitive(t *testing.T) {
	observations := []struct {
		at    time.Time
		attrs reconcile.Attributes
	}{
		{t0.Add(1 * time.Second), reconcile.Attributes{"name": "A", "note": "x", "city": "Paris"}},
		{t0.Add(3 * time.Second), reconcile.Attributes{"note": "z"}},
		{t0.Add(2 * time.Second), reconcile.Attributes{"name": "B", "note": "y"}},
	}
	orders := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 0, 2}, {2, 0, 1}}

	want := reconcile.Attributes{"name": "B", "note": "z", "city": "Paris"}
	for _, order := range orders {
		acc := reconcile.NewAccumulator()
		for _, i := range order {
			acc.Store(observations[i].at, observations[i].attrs)
		}
		assert.Equal(t, want, acc.Merged(), "order %v", order)
	}
}

func TestAccumulatorIdempotent(t *testing.T) {
	acc := reconcile.NewAccumulator()
	acc.Store(t0, reconcile.Attributes{"name": "A", "note": "x"})
	acc.Store(t0.Add(time.Minute), reconcile.Attributes{"note": "y"})

	current := reconcile.Attributes{"name": "old", "note": "old", "other": 1}
	diff := acc.Diff(current)
	assert.NotEmpty(t, diff)

	for k, v := range diff {
		current[k] = v
	}
	assert.Empty(t, acc.Diff(current))
}

func TestAccumulatorStoreCopies(t *testing.T) {
	acc := reconcile.NewAccumulator()
	attrs := reconcile.Attributes{"name": "A"}
	acc.Store(t0, attrs)
	attrs["name"] = "mutated"

	assert.Equal(t, "A", acc.Merged()["name"])
	assert.Equal(t, 1, acc.Len())
}

func TestAccumulatorUpToDateFor(t *testing.T) {
	acc := reconcile.NewAccumulator()
	assert.False(t, acc.UpToDateFor(t0))

	acc.Store(t0, reconcile.Attributes{"name": "A"})
	acc.Store(t0.Add(time.Second), reconcile.Attributes{"name": "B"})

	assert.Equal(t, t0.Add(time.Second), acc.Latest())
	assert.True(t, acc.UpToDateFor(t0))
	assert.True(t, acc.UpToDateFor(t0.Add(time.Second)))
	assert.False(t, acc.UpToDateFor(t0.Add(2*time.Second)))
}
