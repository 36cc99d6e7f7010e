package reconcile

import (
	"context"
	"time"
)

// Pair is a change key whose records exist on both sides.
type Pair struct {
	Key    ChangeKey
	Local  Instance
	Remote Instance
}

// Initializer resolves counterparts for collected changes and creates the
// missing ones the mapping's strategy authorizes.
type Initializer struct {
	registry *Registry
}

// NewInitializer returns an initializer resolving associations through registry.
func NewInitializer(registry *Registry) *Initializer {
	return &Initializer{registry: registry}
}

// Initialize walks the collected keys in order. Keys with both counterparts
// present are returned for synchronization. Per-record persistence failures
// are added to the report; any other error stops the walk.
func (i *Initializer) Initialize(ctx context.Context, m *Mapping, changes *Changes, report *CycleReport) ([]Pair, error) {
	pairs := make([]Pair, 0, len(changes.Keys))

	for _, key := range changes.Keys {
		if err := ctx.Err(); err != nil {
			return pairs, err
		}

		local, err := i.counterpart(ctx, m.Local, key, changes.Local)
		if err != nil {
			return pairs, classify(err, "find local "+key.String())
		}
		remote, err := i.counterpart(ctx, m.Remote, key, changes.Remote)
		if err != nil {
			return pairs, classify(err, "find remote "+key.String())
		}

		switch {
		case local != nil && remote != nil:
			pairs = append(pairs, Pair{Key: key, Local: local, Remote: remote})

		case remote != nil:
			if err := i.create(ctx, m, key, SideRemote, remote, changes.Earliest(key), report); err != nil {
				return pairs, err
			}

		default:
			// The remote record is gone; creation never follows from an observation alone.
			report.Skipped++
		}
	}

	for _, local := range changes.Unpaired {
		if err := ctx.Err(); err != nil {
			return pairs, err
		}
		// Unpaired records have no remote identity yet; reports key them by local table and id.
		key := ChangeKey{RemoteID: local.ID(), RemoteType: m.Local.Name()}
		if err := i.create(ctx, m, key, SideLocal, local, local.LastUpdate(), report); err != nil {
			return pairs, err
		}
	}

	return pairs, nil
}

// counterpart returns the instance of key on rt, preferring the collected one.
func (i *Initializer) counterpart(ctx context.Context, rt RecordType, key ChangeKey, collected map[ChangeKey]Instance) (Instance, error) {
	if inst, ok := collected[key]; ok {
		return inst, nil
	}
	inst, err := rt.Find(ctx, key.RemoteID)
	if IsNotFound(err) {
		return nil, nil
	}
	return inst, err
}

// create asks the strategy and, when authorized, builds the counterpart of
// inst, which exists on side only.
func (i *Initializer) create(ctx context.Context, m *Mapping, key ChangeKey, side Side, inst Instance, observed time.Time, report *CycleReport) error {
	ok, err := m.Strategy.ShouldCreate(ctx, Candidate{
		Side:     side,
		Instance: inst,
		Paired:   inst.IsPaired(),
		Mapping:  m,
		Registry: i.registry,
	})
	if err != nil {
		return classify(err, "evaluate strategy for "+key.String())
	}
	if !ok {
		report.Skipped++
		return nil
	}

	assoc := NewAssociator(i.registry)
	if side == SideRemote {
		_, err = assoc.CreateLocal(ctx, m, inst)
	} else {
		_, err = assoc.CreateRemote(ctx, m, inst)
	}
	if err == nil {
		report.Created += assoc.Created()
		return nil
	}

	if IsPersistence(err) || IsNotFound(err) {
		target := SideLocal
		if side == SideLocal {
			target = SideRemote
		}
		report.fail(newFailure(key, "create", target, inst.Attributes(), err), observed)
		return nil
	}
	return classify(err, "create counterpart of "+key.String())
}
