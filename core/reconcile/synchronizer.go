package reconcile

import (
	"context"
)

// Synchronizer pushes merged changes to existing pairs. It never creates records.
type Synchronizer struct{}

// Synchronize applies the accumulated changes of every pair to the sides the
// mapping's strategy allows.
func (s Synchronizer) Synchronize(ctx context.Context, m *Mapping, changes *Changes, pairs []Pair, report *CycleReport) error {
	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.Key.RemoteType != m.Remote.Name() {
			report.Skipped++
			continue
		}
		acc, ok := changes.Accumulators[p.Key]
		if !ok || acc.Len() == 0 {
			report.Skipped++
			continue
		}
		// A record changed after the window closed is handled by the next cycle.
		if modifiedSince(acc, p.Local) || modifiedSince(acc, p.Remote) {
			report.Skipped++
			continue
		}

		updated := false
		observed := changes.Earliest(p.Key)

		if m.Strategy.SyncToLocal() {
			current, err := m.Attributes.AttributesFrom(SideLocal, p.Local.Attributes())
			if err != nil {
				return err
			}
			if patch := acc.Diff(current); len(patch) > 0 {
				if _, err := p.Local.Update(ctx, patch); err != nil {
					if !IsPersistence(err) {
						return classify(err, "update local "+p.Key.String())
					}
					report.fail(newFailure(p.Key, "update", SideLocal, patch, err), observed)
				} else {
					updated = true
					report.Updated++
				}
			}
		}

		if m.Strategy.SyncToRemote() {
			current, err := m.Attributes.AttributesFrom(SideRemote, p.Remote.Attributes())
			if err != nil {
				return err
			}
			if diff := acc.Diff(current); len(diff) > 0 {
				patch, err := m.Attributes.Convert(SideRemote, diff)
				if err != nil {
					return err
				}
				if _, err := p.Remote.Update(ctx, patch); err != nil {
					if !IsPersistence(err) {
						return classify(err, "update remote "+p.Key.String())
					}
					report.fail(newFailure(p.Key, "update", SideRemote, patch, err), observed)
				} else {
					updated = true
					report.Updated++
				}
			}
		}

		if !updated {
			report.Skipped++
		}
	}
	return nil
}

// modifiedSince reports whether inst carries an external change newer than
// anything the accumulator observed.
func modifiedSince(acc *Accumulator, inst Instance) bool {
	if updatedInternally(inst) {
		return false
	}
	return !acc.UpToDateFor(inst.LastUpdate())
}
