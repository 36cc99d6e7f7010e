package reconcile

import (
	"context"
	"fmt"
)

// Direction restricts which side(s) a strategy creates and updates.
type Direction int

const (
	// Bidirectional creates and updates on both sides.
	Bidirectional Direction = iota
	// ToLocal only creates and updates local records.
	ToLocal
	// ToRemote only creates and updates remote records.
	ToRemote
)

func (d Direction) String() string {
	switch d {
	case Bidirectional:
		return "bidirectional"
	case ToLocal:
		return "to_local"
	case ToRemote:
		return "to_remote"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// ParseDirection parses a direction name. An empty name is Bidirectional.
func ParseDirection(name string) (Direction, error) {
	switch name {
	case "", "bidirectional", "both":
		return Bidirectional, nil
	case "to_local", "local":
		return ToLocal, nil
	case "to_remote", "remote":
		return ToRemote, nil
	default:
		return 0, Configurationf("unknown sync direction %q", name)
	}
}

func (d Direction) toLocal() bool  { return d == Bidirectional || d == ToLocal }
func (d Direction) toRemote() bool { return d == Bidirectional || d == ToRemote }

// Candidate is a record that has no counterpart on the other side.
type Candidate struct {
	// Side is the side the record already exists on.
	Side Side

	// Instance is the existing record.
	Instance Instance

	// Paired reports whether the record was synchronized before. A paired
	// remote record without a local counterpart was deleted locally.
	Paired bool

	// Mapping and Registry let strategies resolve associations.
	Mapping  *Mapping
	Registry *Registry
}

// Strategy decides whether missing counterparts are created and which sides
// receive updates. Strategies are stateless and shared by all cycles.
type Strategy interface {
	// Name returns the strategy name used in reports.
	Name() string

	// ShouldCreate reports whether a counterpart of the candidate is created.
	ShouldCreate(ctx context.Context, c Candidate) (bool, error)

	// SyncToLocal reports whether merged changes are written to local records.
	SyncToLocal() bool

	// SyncToRemote reports whether merged changes are written to remote records.
	SyncToRemote() bool

	// Passive reports whether the mapping owns neither creation nor cleanup.
	Passive() bool
}

type alwaysStrategy struct {
	direction Direction
}

// Always creates a counterpart for every unpaired record, restricted to the
// given direction.
func Always(direction Direction) Strategy {
	return alwaysStrategy{direction: direction}
}

// AlwaysToLocal creates and updates local records only.
func AlwaysToLocal() Strategy { return Always(ToLocal) }

// AlwaysToRemote creates and updates remote records only.
func AlwaysToRemote() Strategy { return Always(ToRemote) }

func (s alwaysStrategy) Name() string {
	if s.direction == Bidirectional {
		return "always"
	}
	return "always_" + s.direction.String()
}

func (s alwaysStrategy) ShouldCreate(_ context.Context, c Candidate) (bool, error) {
	if c.Paired {
		return false, nil
	}
	return createsFrom(s.direction, c.Side), nil
}

func (s alwaysStrategy) SyncToLocal() bool  { return s.direction.toLocal() }
func (s alwaysStrategy) SyncToRemote() bool { return s.direction.toRemote() }
func (s alwaysStrategy) Passive() bool      { return false }

type passiveStrategy struct {
	direction Direction
}

// Passive never creates records on its own. Passive records are only created
// while building the associations of another mapping.
func Passive(direction Direction) Strategy {
	return passiveStrategy{direction: direction}
}

func (s passiveStrategy) Name() string { return "passive" }

func (s passiveStrategy) ShouldCreate(context.Context, Candidate) (bool, error) {
	return false, nil
}

func (s passiveStrategy) SyncToLocal() bool  { return s.direction.toLocal() }
func (s passiveStrategy) SyncToRemote() bool { return s.direction.toRemote() }
func (s passiveStrategy) Passive() bool      { return true }

type associatedStrategy struct {
	via       string
	direction Direction
}

// Associated imports a remote record only when its association named via
// already resolves to a paired record.
func Associated(via string, direction Direction) Strategy {
	return associatedStrategy{via: via, direction: direction}
}

func (s associatedStrategy) Name() string { return "associated(" + s.via + ")" }

// Via returns the association name the strategy depends on.
func (s associatedStrategy) Via() string { return s.via }

func (s associatedStrategy) ShouldCreate(ctx context.Context, c Candidate) (bool, error) {
	if c.Paired || c.Side != SideRemote || !s.direction.toLocal() {
		return false, nil
	}
	if c.Mapping == nil || c.Registry == nil {
		return false, Configurationf("associated strategy needs a mapping and a registry")
	}
	assoc, ok := c.Mapping.Association(s.via)
	if !ok {
		return false, Configurationf("mapping %q has no association %q", c.Mapping.Name, s.via)
	}
	return assoc.Paired(ctx, c.Registry, c.Mapping, c.Side, c.Instance)
}

func (s associatedStrategy) SyncToLocal() bool  { return s.direction.toLocal() }
func (s associatedStrategy) SyncToRemote() bool { return s.direction.toRemote() }
func (s associatedStrategy) Passive() bool      { return false }

// createsFrom reports whether a record existing on side may get a counterpart
// on the other side under the given direction.
func createsFrom(d Direction, side Side) bool {
	switch side {
	case SideRemote:
		return d.toLocal()
	case SideLocal:
		return d.toRemote()
	default:
		return false
	}
}
