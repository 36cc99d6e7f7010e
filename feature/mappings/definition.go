package mappings

import (
	"bytes"
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"record-sync/core/reconcile"
)

// File is the root of a mappings document.
type File struct {
	Mappings []Definition `yaml:"mappings"`
}

// Definition declares one mapping.
type Definition struct {
	Name          string                  `yaml:"name"`
	Local         LocalDefinition         `yaml:"local"`
	Remote        RemoteDefinition        `yaml:"remote"`
	Strategy      StrategyDefinition      `yaml:"strategy"`
	Fields        map[string]string       `yaml:"fields"`
	Converters    map[string]string       `yaml:"converters"`
	ListSeparator string                  `yaml:"list_separator"`
	Associations  []AssociationDefinition `yaml:"associations"`
}

// LocalDefinition describes the local table of a mapping.
type LocalDefinition struct {
	Table         string   `yaml:"table"`
	IDColumn      string   `yaml:"id_column"`
	LookupColumn  string   `yaml:"lookup_column"`
	UpdatedColumn string   `yaml:"updated_column"`
	SyncedColumn  string   `yaml:"synced_column"`
	Conditions    []string `yaml:"conditions"`
}

// RemoteDefinition describes the remote type of a mapping.
type RemoteDefinition struct {
	Type       string   `yaml:"type"`
	Conditions []string `yaml:"conditions"`
}

// StrategyDefinition selects the creation strategy.
type StrategyDefinition struct {
	Kind      string `yaml:"kind"`
	Direction string `yaml:"direction"`
	Via       string `yaml:"via"`
}

// AssociationDefinition declares one association.
type AssociationDefinition struct {
	Name         string   `yaml:"name"`
	Target       string   `yaml:"target"`
	Kind         string   `yaml:"kind"`
	LookupFields []string `yaml:"lookup_fields"`
	ForeignKey   string   `yaml:"foreign_key"`
}

// Load reads and parses the mappings file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "read mappings file %s", path), reconcile.ErrConfiguration)
	}
	return Parse(data)
}

// Parse decodes a mappings document. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode mappings"), reconcile.ErrConfiguration)
	}
	if len(f.Mappings) == 0 {
		return nil, reconcile.Configurationf("mappings file declares no mapping")
	}
	return &f, nil
}

// Strategy builds the reconcile strategy of the definition.
func (s StrategyDefinition) Strategy() (reconcile.Strategy, error) {
	direction, err := reconcile.ParseDirection(s.Direction)
	if err != nil {
		return nil, err
	}
	switch s.Kind {
	case "always", "":
		return reconcile.Always(direction), nil
	case "always_to_local":
		return reconcile.AlwaysToLocal(), nil
	case "always_to_remote":
		return reconcile.AlwaysToRemote(), nil
	case "passive":
		return reconcile.Passive(direction), nil
	case "associated":
		if s.Via == "" {
			return nil, reconcile.Configurationf("associated strategy needs a via association")
		}
		return reconcile.Associated(s.Via, direction), nil
	default:
		return nil, reconcile.Configurationf("unknown strategy %q", s.Kind)
	}
}

// AttributeMap builds the attribute map of the definition.
func (d Definition) AttributeMap() (*reconcile.AttributeMap, error) {
	converters := make(map[string]reconcile.Converter, len(d.Converters))
	for field, name := range d.Converters {
		switch name {
		case "default", "":
			converters[field] = reconcile.DefaultConverter{}
		case "time":
			converters[field] = reconcile.TimeConverter{}
		case "bool":
			converters[field] = reconcile.BoolConverter{}
		case "int":
			converters[field] = reconcile.IntConverter{}
		case "list":
			converters[field] = reconcile.ListConverter{Separator: d.ListSeparator}
		default:
			return nil, reconcile.Configurationf("mapping %s: unknown converter %q for %s", d.Name, name, field)
		}
	}
	return reconcile.NewAttributeMap(d.Fields, converters)
}

// AssociationList builds the associations of the definition.
func (d Definition) AssociationList() ([]reconcile.Association, error) {
	out := make([]reconcile.Association, 0, len(d.Associations))
	for _, a := range d.Associations {
		kind, err := reconcile.ParseAssociationKind(a.Kind)
		if err != nil {
			return nil, err
		}
		out = append(out, reconcile.Association{
			Name:         a.Name,
			Target:       a.Target,
			Kind:         kind,
			LookupFields: append([]string(nil), a.LookupFields...),
			ForeignKey:   a.ForeignKey,
		})
	}
	return out, nil
}
