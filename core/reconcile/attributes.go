package reconcile

import (
	"sort"
	"strings"
	"time"

	"record-sync/core/utils"
)

// Converter translates one attribute value between the two schemas.
type Converter interface {
	// ToLocal converts a remote value into its canonical form.
	ToLocal(value any) any
	// ToRemote converts a canonical value into its remote form.
	ToRemote(value any) any
}

// DefaultConverter passes values through unchanged, except time values which
// travel to the remote side as RFC 3339 strings and come back as time values.
type DefaultConverter struct{}

// remoteTimeLayouts are the timestamp forms the default converter recognizes.
// Bare dates are left as strings.
var remoteTimeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.000-0700"}

func (DefaultConverter) ToLocal(value any) any {
	s, ok := value.(string)
	if !ok {
		return value
	}
	for _, layout := range remoteTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return value
}

func (DefaultConverter) ToRemote(value any) any {
	switch v := value.(type) {
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if v == nil {
			return nil
		}
		return v.UTC().Format(time.RFC3339Nano)
	default:
		return value
	}
}

// TimeConverter parses remote timestamp strings into time values.
type TimeConverter struct{}

func (TimeConverter) ToLocal(value any) any {
	if t, ok := utils.ToTime(value); ok {
		return t
	}
	return nil
}

func (TimeConverter) ToRemote(value any) any {
	if t, ok := utils.ToTime(value); ok {
		return t.Format(time.RFC3339Nano)
	}
	return nil
}

// BoolConverter maps checkbox values to bool on both sides.
type BoolConverter struct{}

func (BoolConverter) ToLocal(value any) any  { return utils.ToBool(value) }
func (BoolConverter) ToRemote(value any) any { return utils.ToBool(value) }

// IntConverter maps numeric values (JSON numbers arrive as float64) to int.
type IntConverter struct{}

func (IntConverter) ToLocal(value any) any {
	if value == nil {
		return nil
	}
	return utils.ToInt(value)
}

func (IntConverter) ToRemote(value any) any {
	if value == nil {
		return nil
	}
	return utils.ToInt(value)
}

// ListConverter maps a delimited remote value ("a;b") to a canonical []string.
type ListConverter struct {
	Separator string
}

func (c ListConverter) sep() string {
	if c.Separator == "" {
		return ";"
	}
	return c.Separator
}

func (c ListConverter) ToLocal(value any) any {
	return utils.ToStringSlice(value, c.sep())
}

func (c ListConverter) ToRemote(value any) any {
	if value == nil {
		return nil
	}
	return strings.Join(utils.ToStringSlice(value, c.sep()), c.sep())
}

// AttributeMap translates field names and values between the canonical
// (local) schema and the remote schema of one mapping.
type AttributeMap struct {
	fields     map[string]string
	converters map[string]Converter
	inverse    map[string]string
}

// NewAttributeMap builds an attribute map from canonical -> remote field names
// and optional per-field converters. Fields without a converter use DefaultConverter.
func NewAttributeMap(fields map[string]string, converters map[string]Converter) (*AttributeMap, error) {
	if len(fields) == 0 {
		return nil, Configurationf("attribute map declares no fields")
	}
	m := &AttributeMap{
		fields:     make(map[string]string, len(fields)),
		converters: make(map[string]Converter, len(converters)),
		inverse:    make(map[string]string, len(fields)),
	}
	for canonical, remote := range fields {
		if canonical == "" || remote == "" {
			return nil, Configurationf("attribute map has an empty field name (%q -> %q)", canonical, remote)
		}
		if other, dup := m.inverse[remote]; dup {
			return nil, Configurationf("remote field %q is mapped twice (%q, %q)", remote, other, canonical)
		}
		m.fields[canonical] = remote
		m.inverse[remote] = canonical
	}
	for canonical, conv := range converters {
		if _, ok := m.fields[canonical]; !ok {
			return nil, Configurationf("converter declared for unmapped field %q", canonical)
		}
		if conv != nil {
			m.converters[canonical] = conv
		}
	}
	return m, nil
}

// Fields returns the canonical field names in sorted order.
func (m *AttributeMap) Fields() []string {
	out := make([]string, 0, len(m.fields))
	for k := range m.fields {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// RemoteFields returns the remote field names in canonical order.
func (m *AttributeMap) RemoteFields() []string {
	names := m.Fields()
	out := make([]string, len(names))
	for i, k := range names {
		out[i] = m.fields[k]
	}
	return out
}

// RemoteField returns the remote name of a canonical field.
func (m *AttributeMap) RemoteField(canonical string) (string, bool) {
	f, ok := m.fields[canonical]
	return f, ok
}

func (m *AttributeMap) converter(canonical string) Converter {
	if c, ok := m.converters[canonical]; ok {
		return c
	}
	return DefaultConverter{}
}

// AttributesFrom builds a canonical attribute set from a native record snapshot.
// Remote snapshots are read by remote field name and converted with ToLocal;
// local snapshots are read by canonical name. Only declared fields are read.
func (m *AttributeMap) AttributesFrom(side Side, native Attributes) (Attributes, error) {
	out := make(Attributes, len(m.fields))
	switch side {
	case SideRemote:
		for canonical, remote := range m.fields {
			if v, ok := native[remote]; ok {
				out[canonical] = m.converter(canonical).ToLocal(v)
			}
		}
	case SideLocal:
		for canonical := range m.fields {
			if v, ok := native[canonical]; ok {
				out[canonical] = v
			}
		}
	default:
		return nil, Configurationf("cannot read attributes from %s", side)
	}
	return out, nil
}

// Convert projects a canonical attribute set into the target schema.
// Local is a copy; remote keeps only declared keys and applies ToRemote.
func (m *AttributeMap) Convert(target Side, canonical Attributes) (Attributes, error) {
	switch target {
	case SideLocal:
		return canonical.Clone(), nil
	case SideRemote:
		out := make(Attributes, len(canonical))
		for k, v := range canonical {
			remote, ok := m.fields[k]
			if !ok {
				continue
			}
			out[remote] = m.converter(k).ToRemote(v)
		}
		return out, nil
	default:
		return nil, Configurationf("cannot convert attributes to %s", target)
	}
}

// ConvertFromRemote is the inverse of Convert: remote attributes are projected
// into canonical names for the local side, or copied for the remote side.
func (m *AttributeMap) ConvertFromRemote(target Side, remote Attributes) (Attributes, error) {
	switch target {
	case SideLocal:
		out := make(Attributes, len(remote))
		for k, v := range remote {
			canonical, ok := m.inverse[k]
			if !ok {
				continue
			}
			out[canonical] = m.converter(canonical).ToLocal(v)
		}
		return out, nil
	case SideRemote:
		return remote.Clone(), nil
	default:
		return nil, Configurationf("cannot convert remote attributes to %s", target)
	}
}
