package reconcile

import (
	"context"
	"time"
)

// Changes is the result of collecting one mapping's window.
type Changes struct {
	// Window is the scanned range.
	Window Window

	// Keys lists the change keys in first-seen order.
	Keys []ChangeKey

	// Accumulators holds the observations per change key.
	Accumulators map[ChangeKey]*Accumulator

	// Local and Remote hold the changed instances seen per key and side.
	Local  map[ChangeKey]Instance
	Remote map[ChangeKey]Instance

	// Unpaired lists changed local records with no remote identity yet.
	Unpaired []Instance

	// Ignored counts records skipped because this engine wrote their latest change.
	Ignored int

	earliest map[ChangeKey]time.Time
}

func newChanges(w Window) *Changes {
	return &Changes{
		Window:       w,
		Accumulators: make(map[ChangeKey]*Accumulator),
		Local:        make(map[ChangeKey]Instance),
		Remote:       make(map[ChangeKey]Instance),
		earliest:     make(map[ChangeKey]time.Time),
	}
}

// Earliest returns the oldest observation time stored for key.
func (c *Changes) Earliest(key ChangeKey) time.Time {
	return c.earliest[key]
}

func (c *Changes) store(key ChangeKey, at time.Time, attrs Attributes) {
	acc, ok := c.Accumulators[key]
	if !ok {
		acc = NewAccumulator()
		c.Accumulators[key] = acc
		c.Keys = append(c.Keys, key)
	}
	acc.Store(at, attrs)
	if first, seen := c.earliest[key]; !seen || at.Before(first) {
		c.earliest[key] = at
	}
}

// Collect queries both sides of m for records changed inside w and groups the
// observations by change key. Remote records are stored before local ones, so
// on equal timestamps the local observation wins.
func Collect(ctx context.Context, m *Mapping, w Window) (*Changes, error) {
	changes := newChanges(w)

	remote, err := m.Remote.All(ctx, Query{After: w.After, Before: w.Before, Conditions: m.Conditions})
	if err != nil {
		return nil, classify(err, "collect remote "+m.Remote.Name())
	}
	for _, inst := range remote {
		if updatedInternally(inst) {
			changes.Ignored++
			continue
		}
		attrs, err := m.Attributes.AttributesFrom(SideRemote, inst.Attributes())
		if err != nil {
			return nil, err
		}
		key := m.Key(inst.RemoteID())
		changes.Remote[key] = inst
		changes.store(key, inst.LastUpdate(), attrs)
	}

	local, err := m.Local.All(ctx, Query{After: w.After, Before: w.Before, Conditions: m.LocalConditions})
	if err != nil {
		return nil, classify(err, "collect local "+m.Local.Name())
	}
	for _, inst := range local {
		if updatedInternally(inst) {
			changes.Ignored++
			continue
		}
		if inst.RemoteID() == "" {
			changes.Unpaired = append(changes.Unpaired, inst)
			continue
		}
		attrs, err := m.Attributes.AttributesFrom(SideLocal, inst.Attributes())
		if err != nil {
			return nil, err
		}
		key := m.Key(inst.RemoteID())
		changes.Local[key] = inst
		changes.store(key, inst.LastUpdate(), attrs)
	}

	return changes, nil
}

// classify marks errors the adapters left unclassified as transient.
func classify(err error, msg string) error {
	if err == nil {
		return nil
	}
	if IsConfiguration(err) || IsPersistence(err) || IsNotFound(err) || IsTransient(err) {
		return err
	}
	return Transient(err, msg)
}
