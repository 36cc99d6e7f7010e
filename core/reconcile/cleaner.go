package reconcile

import (
	"context"
	"sort"
	"time"
)

// Cleaner removes local records whose remote counterpart no longer satisfies
// the mapping's conditions.
type Cleaner struct{}

// Clean compares the remote records changed in w with and without the
// mapping's conditions and destroys the local counterparts of the difference.
// Passive mappings and mappings without conditions are left alone.
func (Cleaner) Clean(ctx context.Context, m *Mapping, w Window, report *CycleReport) error {
	if m.Strategy.Passive() || len(m.Conditions) == 0 {
		return nil
	}

	changed, err := m.Remote.All(ctx, Query{After: w.After, Before: w.Before})
	if err != nil {
		return classify(err, "list changed "+m.Remote.Name())
	}
	if len(changed) == 0 {
		return nil
	}
	matching, err := m.Remote.All(ctx, Query{After: w.After, Before: w.Before, Conditions: m.Conditions})
	if err != nil {
		return classify(err, "list matching "+m.Remote.Name())
	}

	keep := make(map[string]struct{}, len(matching))
	for _, inst := range matching {
		keep[inst.RemoteID()] = struct{}{}
	}

	var stale []string
	for _, inst := range changed {
		id := inst.RemoteID()
		if _, ok := keep[id]; ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := m.Local.Find(ctx, id)
		if IsNotFound(err) {
			continue
		}
		if err != nil {
			return classify(err, "find local "+id)
		}
		stale = append(stale, id)
	}
	if len(stale) == 0 {
		return nil
	}
	sort.Strings(stale)

	if err := m.Local.DestroyAll(ctx, stale); err != nil {
		if !IsPersistence(err) {
			return classify(err, "destroy stale "+m.Local.Name())
		}
		for _, id := range stale {
			report.fail(newFailure(m.Key(id), "destroy", SideLocal, nil, err), time.Time{})
		}
		return nil
	}
	report.Removed += len(stale)
	return nil
}
