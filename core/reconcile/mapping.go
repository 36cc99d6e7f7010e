package reconcile

// Mapping binds one local record type to one remote record type.
// Build it with NewMapping and treat it as read-only afterwards.
type Mapping struct {
	// Name is the mapping key used by the registry and the tracker.
	Name string

	// Local and Remote are the two record types.
	Local  RecordType
	Remote RecordType

	// Attributes translates fields between the two schemas.
	Attributes *AttributeMap

	// Strategy decides creation and update directions.
	Strategy Strategy

	// Associations are materialized when a record is created.
	Associations []Association

	// Conditions filter remote records, in the remote query dialect.
	Conditions []string

	// LocalConditions filter local records, in the local query dialect.
	LocalConditions []string

	// LookupColumn is the local column holding the remote identity.
	// It is the only join key between the two stores.
	LookupColumn string
}

// NewMapping validates m and returns a copy that does not share slices with it.
func NewMapping(m Mapping) (*Mapping, error) {
	if m.Name == "" {
		return nil, Configurationf("mapping has no name")
	}
	if m.Local == nil || m.Remote == nil {
		return nil, Configurationf("mapping %q needs both a local and a remote record type", m.Name)
	}
	if m.Local.Side() != SideLocal || m.Remote.Side() != SideRemote {
		return nil, Configurationf("mapping %q has record types on the wrong sides", m.Name)
	}
	if m.Attributes == nil {
		return nil, Configurationf("mapping %q has no attribute map", m.Name)
	}
	if m.Strategy == nil {
		return nil, Configurationf("mapping %q has no strategy", m.Name)
	}
	if m.LookupColumn == "" {
		return nil, Configurationf("mapping %q has no lookup column", m.Name)
	}
	if _, mapped := m.Attributes.RemoteField(m.LookupColumn); mapped {
		return nil, Configurationf("mapping %q maps its lookup column %q as an attribute", m.Name, m.LookupColumn)
	}

	seen := make(map[string]struct{}, len(m.Associations))
	for _, a := range m.Associations {
		if err := a.validate(); err != nil {
			return nil, Configurationf("mapping %q: %v", m.Name, err)
		}
		if _, dup := seen[a.Name]; dup {
			return nil, Configurationf("mapping %q declares association %q twice", m.Name, a.Name)
		}
		seen[a.Name] = struct{}{}
	}
	if s, ok := m.Strategy.(interface{ Via() string }); ok {
		if _, found := seen[s.Via()]; !found {
			return nil, Configurationf("mapping %q strategy depends on unknown association %q", m.Name, s.Via())
		}
	}

	out := m
	out.Associations = make([]Association, len(m.Associations))
	for i, a := range m.Associations {
		a.LookupFields = append([]string(nil), a.LookupFields...)
		out.Associations[i] = a
	}
	out.Conditions = append([]string(nil), m.Conditions...)
	out.LocalConditions = append([]string(nil), m.LocalConditions...)
	return &out, nil
}

// Association returns the association with the given name.
func (m *Mapping) Association(name string) (Association, bool) {
	for _, a := range m.Associations {
		if a.Name == name {
			return a, true
		}
	}
	return Association{}, false
}

// Key returns the change key of a remote identity of this mapping.
func (m *Mapping) Key(remoteID string) ChangeKey {
	return ChangeKey{RemoteID: remoteID, RemoteType: m.Remote.Name()}
}
