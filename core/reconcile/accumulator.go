package reconcile

import (
	"reflect"
	"time"
)

type observation struct {
	at    time.Time
	seq   int
	attrs Attributes
}

// Accumulator collects timestamped canonical attribute observations for one
// paired record and reduces them to a single merged attribute set.
// It lives for one cycle and is not safe for concurrent use.
type Accumulator struct {
	observations []observation
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Store appends an observation taken at the given time.
func (a *Accumulator) Store(at time.Time, attrs Attributes) {
	a.observations = append(a.observations, observation{
		at:    at,
		seq:   len(a.observations),
		attrs: attrs.Clone(),
	})
}

// Len returns the number of stored observations.
func (a *Accumulator) Len() int {
	return len(a.observations)
}

// Latest returns the newest observation timestamp.
func (a *Accumulator) Latest() time.Time {
	var latest time.Time
	for _, o := range a.observations {
		if o.at.After(latest) {
			latest = o.at
		}
	}
	return latest
}

// UpToDateFor reports whether the accumulator holds a change at least as
// recent as the given record modification time. A record modified after the
// window closed is left for the next cycle.
func (a *Accumulator) UpToDateFor(modified time.Time) bool {
	if len(a.observations) == 0 {
		return false
	}
	return !a.Latest().Before(modified)
}

// Merged reduces all observations with last-writer-wins per field. For each
// key the value from the newest observation defining it wins; equal
// timestamps are broken by insertion order, later wins.
func (a *Accumulator) Merged() Attributes {
	type winner struct {
		at  time.Time
		seq int
	}
	merged := make(Attributes)
	won := make(map[string]winner)
	for _, o := range a.observations {
		for k, v := range o.attrs {
			w, seen := won[k]
			if seen && (o.at.Before(w.at) || (o.at.Equal(w.at) && o.seq < w.seq)) {
				continue
			}
			won[k] = winner{at: o.at, seq: o.seq}
			merged[k] = v
		}
	}
	return merged
}

// Diff returns the merged keys whose value differs from current.
// Once current has absorbed the result, Diff returns an empty set until new
// observations are stored.
func (a *Accumulator) Diff(current Attributes) Attributes {
	diff := make(Attributes)
	for k, v := range a.Merged() {
		cur, ok := current[k]
		if ok && valuesEqual(cur, v) {
			continue
		}
		diff[k] = v
	}
	return diff
}

// valuesEqual compares attribute values across drivers: times by instant,
// numbers by value regardless of width, byte slices as strings.
func valuesEqual(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Equal(tb)
		}
	}
	if ba, ok := a.([]byte); ok {
		a = string(ba)
	}
	if bb, ok := b.([]byte); ok {
		b = string(bb)
	}
	if fa, ok := asFloat(a); ok {
		if fb, ok := asFloat(b); ok {
			return fa == fb
		}
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}
