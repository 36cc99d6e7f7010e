package reconcile

import (
	"context"
	"fmt"

	"record-sync/core/utils"
)

// AssociationKind tells which side of a link holds the lookup field.
type AssociationKind int

const (
	// BelongsTo: the lookup fields live on this mapping's remote type and
	// reference the target's remote identity.
	BelongsTo AssociationKind = iota + 1
	// HasOne: the lookup field lives on the target's remote type and
	// references this record's remote identity.
	HasOne
	// HasMany is HasOne with any number of target records.
	HasMany
)

func (k AssociationKind) String() string {
	switch k {
	case BelongsTo:
		return "belongs_to"
	case HasOne:
		return "has_one"
	case HasMany:
		return "has_many"
	default:
		return fmt.Sprintf("association(%d)", int(k))
	}
}

// ParseAssociationKind parses an association kind name.
func ParseAssociationKind(name string) (AssociationKind, error) {
	switch name {
	case "belongs_to", "belongsTo":
		return BelongsTo, nil
	case "has_one", "hasOne":
		return HasOne, nil
	case "has_many", "hasMany":
		return HasMany, nil
	default:
		return 0, Configurationf("unknown association kind %q", name)
	}
}

// Cardinality is the number of target records an association links to.
type Cardinality int

const (
	One Cardinality = iota + 1
	Many
)

// Association describes one cross-entity link materialized when a record is created.
type Association struct {
	// Name identifies the association within its mapping.
	Name string

	// Target is the name of the associated mapping.
	Target string

	// Kind is the link direction.
	Kind AssociationKind

	// LookupFields are remote field names holding the linked remote identity.
	// For BelongsTo they live on this mapping's remote type, otherwise on the target's.
	LookupFields []string

	// ForeignKey is the local column holding the linked local id.
	// For BelongsTo it lives on this mapping's local table, otherwise on the target's.
	ForeignKey string
}

// Cardinality returns Many for HasMany and One otherwise.
func (a Association) Cardinality() Cardinality {
	if a.Kind == HasMany {
		return Many
	}
	return One
}

func (a Association) validate() error {
	if a.Name == "" {
		return Configurationf("association has no name")
	}
	if a.Target == "" {
		return Configurationf("association %q has no target mapping", a.Name)
	}
	switch a.Kind {
	case BelongsTo, HasOne, HasMany:
	default:
		return Configurationf("association %q has an invalid kind", a.Name)
	}
	if len(a.LookupFields) == 0 {
		return Configurationf("association %q declares no lookup field", a.Name)
	}
	if a.ForeignKey == "" {
		return Configurationf("association %q has no foreign key column", a.Name)
	}
	return nil
}

// Paired reports whether the association of inst, a record of mapping m
// living on side, resolves to a record that already has a counterpart.
func (a Association) Paired(ctx context.Context, reg *Registry, m *Mapping, side Side, inst Instance) (bool, error) {
	target, ok := reg.Get(a.Target)
	if !ok {
		return false, Configurationf("association %q targets unknown mapping %q", a.Name, a.Target)
	}

	switch {
	case a.Kind == BelongsTo && side == SideRemote:
		id := lookupValue(inst.Attributes(), a.LookupFields)
		if id == "" {
			return false, nil
		}
		return locallyPaired(ctx, target, id)

	case a.Kind == BelongsTo && side == SideLocal:
		fk := utils.ToString(inst.Attributes()[a.ForeignKey])
		if fk == "" {
			return false, nil
		}
		parent, err := findNative(ctx, target.Local, fk)
		if IsNotFound(err) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return parent.IsPaired(), nil

	case side == SideRemote:
		for _, field := range a.LookupFields {
			children, err := target.Remote.All(ctx, Query{Match: map[string]string{field: inst.RemoteID()}})
			if err != nil {
				return false, err
			}
			for _, child := range children {
				paired, err := locallyPaired(ctx, target, child.RemoteID())
				if err != nil || paired {
					return paired, err
				}
			}
		}
		return false, nil

	case side == SideLocal:
		children, err := target.Local.All(ctx, Query{Match: map[string]string{a.ForeignKey: inst.ID()}})
		if err != nil {
			return false, err
		}
		for _, child := range children {
			if child.IsPaired() {
				return true, nil
			}
		}
		return false, nil

	default:
		return false, Configurationf("cannot resolve association %q of mapping %q from %s", a.Name, m.Name, side)
	}
}

// locallyPaired reports whether a local record of m carries remoteID.
func locallyPaired(ctx context.Context, m *Mapping, remoteID string) (bool, error) {
	local, err := m.Local.Find(ctx, remoteID)
	if IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return local.IsPaired(), nil
}

func findNative(ctx context.Context, rt RecordType, id string) (Instance, error) {
	finder, ok := rt.(NativeFinder)
	if !ok {
		return nil, Configurationf("record type %s cannot look records up by id", rt.Name())
	}
	return finder.FindNative(ctx, id)
}

// lookupValue returns the first non-empty value among the lookup fields.
func lookupValue(attrs Attributes, fields []string) string {
	for _, f := range fields {
		if v := utils.ToString(attrs[f]); v != "" {
			return v
		}
	}
	return ""
}
