package reconcile

import (
	"context"
)

// Registry holds the configured mappings. It is built once at startup and
// passed to the runner; Register is not safe for concurrent use.
type Registry struct {
	mappings map[string]*Mapping
	order    []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{mappings: make(map[string]*Mapping)}
}

// Register adds a mapping. Names must be unique.
func (r *Registry) Register(m *Mapping) error {
	if m == nil {
		return Configurationf("cannot register a nil mapping")
	}
	if _, dup := r.mappings[m.Name]; dup {
		return Configurationf("mapping %q is registered twice", m.Name)
	}
	r.mappings[m.Name] = m
	r.order = append(r.order, m.Name)
	return nil
}

// Get returns the mapping registered under name.
func (r *Registry) Get(name string) (*Mapping, bool) {
	m, ok := r.mappings[name]
	return m, ok
}

// Mappings returns the mappings in registration order.
func (r *Registry) Mappings() []*Mapping {
	out := make([]*Mapping, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.mappings[name])
	}
	return out
}

// Names returns the mapping names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// ForRemoteType returns the mappings whose remote record type has the given name.
func (r *Registry) ForRemoteType(name string) []*Mapping {
	var out []*Mapping
	for _, m := range r.Mappings() {
		if m.Remote.Name() == name {
			out = append(out, m)
		}
	}
	return out
}

// Validate checks cross-mapping rules and asks the adapters whether every
// declared field exists. It returns the first problem found.
func (r *Registry) Validate(ctx context.Context) error {
	for _, m := range r.Mappings() {
		if err := r.validateAssociations(m); err != nil {
			return err
		}
		if err := r.validateFields(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) validateAssociations(m *Mapping) error {
	for _, a := range m.Associations {
		target, ok := r.Get(a.Target)
		if !ok {
			return Configurationf("mapping %q association %q targets unknown mapping %q", m.Name, a.Name, a.Target)
		}
		if a.Kind != BelongsTo || len(a.LookupFields) < 2 {
			continue
		}
		// Several lookup fields to the same target need one unambiguous inverse.
		for _, inverse := range target.Associations {
			if inverse.Kind == BelongsTo || inverse.Target != m.Name {
				continue
			}
			if len(inverse.LookupFields) != 1 {
				return Configurationf(
					"mapping %q association %q must declare exactly one lookup field, since %q.%q declares %d",
					target.Name, inverse.Name, m.Name, a.Name, len(a.LookupFields))
			}
		}
	}
	return nil
}

func (r *Registry) validateFields(ctx context.Context, m *Mapping) error {
	if err := requireField(ctx, m.Local, m.LookupColumn); err != nil {
		return err
	}
	for _, canonical := range m.Attributes.Fields() {
		if err := requireField(ctx, m.Local, canonical); err != nil {
			return err
		}
		remote, _ := m.Attributes.RemoteField(canonical)
		if err := requireField(ctx, m.Remote, remote); err != nil {
			return err
		}
	}
	for _, a := range m.Associations {
		target, _ := r.Get(a.Target)
		remoteOwner, localOwner := m.Remote, m.Local
		if a.Kind != BelongsTo {
			remoteOwner, localOwner = target.Remote, target.Local
		}
		for _, f := range a.LookupFields {
			if err := requireField(ctx, remoteOwner, f); err != nil {
				return err
			}
		}
		if err := requireField(ctx, localOwner, a.ForeignKey); err != nil {
			return err
		}
	}
	return nil
}

func requireField(ctx context.Context, rt RecordType, name string) error {
	ok, err := rt.HasField(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return Configurationf("%s record type %s has no field %q", rt.Side(), rt.Name(), name)
	}
	return nil
}
