package mappings

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"record-sync/core/reconcile"
	"record-sync/feature/local"
	"record-sync/feature/remote"
)

// Factory creates the record types a mapping needs. remoteFields lists every
// remote field the engine reads for the type.
type Factory interface {
	Local(def LocalDefinition) (reconcile.RecordType, error)
	Remote(def RemoteDefinition, remoteFields []string) (reconcile.RecordType, error)
}

// StoreFactory builds gorm tables and REST record types.
type StoreFactory struct {
	DB     *gorm.DB
	Client *remote.Client
}

func (f StoreFactory) Local(def LocalDefinition) (reconcile.RecordType, error) {
	if f.DB == nil {
		return nil, reconcile.Configurationf("table %s needs a database connection", def.Table)
	}
	return local.NewTable(f.DB, local.TableConfig{
		Table:         def.Table,
		IDColumn:      def.IDColumn,
		LookupColumn:  def.LookupColumn,
		UpdatedColumn: def.UpdatedColumn,
		SyncedColumn:  def.SyncedColumn,
	})
}

func (f StoreFactory) Remote(def RemoteDefinition, remoteFields []string) (reconcile.RecordType, error) {
	if f.Client == nil {
		return nil, reconcile.Configurationf("remote type %s needs an API client", def.Type)
	}
	if err := f.Client.Config().Validate(); err != nil {
		return nil, err
	}
	return remote.NewRecordType(f.Client, def.Type, remoteFields...), nil
}

// Build creates the mappings of file and returns them in a validated registry.
func Build(ctx context.Context, file *File, factory Factory, logger *zap.Logger) (*reconcile.Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fields := remoteFieldsByType(file)

	reg := reconcile.NewRegistry()
	for _, def := range file.Mappings {
		m, err := buildMapping(def, factory, fields[def.Remote.Type], logger)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	if err := reg.Validate(ctx); err != nil {
		return nil, err
	}
	return reg, nil
}

func buildMapping(def Definition, factory Factory, remoteFields []string, logger *zap.Logger) (*reconcile.Mapping, error) {
	if def.Remote.Type == "" {
		return nil, reconcile.Configurationf("mapping %q has no remote type", def.Name)
	}
	attrs, err := def.AttributeMap()
	if err != nil {
		return nil, err
	}
	strategy, err := def.Strategy.Strategy()
	if err != nil {
		return nil, err
	}
	assocs, err := def.AssociationList()
	if err != nil {
		return nil, err
	}
	localType, err := factory.Local(def.Local)
	if err != nil {
		return nil, err
	}
	remoteType, err := factory.Remote(def.Remote, remoteFields)
	if err != nil {
		return nil, err
	}

	return reconcile.NewMapping(reconcile.Mapping{
		Name:            def.Name,
		Local:           reconcile.Logged(localType, logger.With(zap.String("mapping", def.Name))),
		Remote:          reconcile.Logged(remoteType, logger.With(zap.String("mapping", def.Name))),
		Attributes:      attrs,
		Strategy:        strategy,
		Associations:    assocs,
		Conditions:      def.Remote.Conditions,
		LocalConditions: def.Local.Conditions,
		LookupColumn:    def.Local.LookupColumn,
	})
}

// remoteFieldsByType collects, per remote type, the mapped fields and every
// lookup field read from records of that type: its own belongs_to lookups and
// the lookups of has_one/has_many associations targeting it.
func remoteFieldsByType(file *File) map[string][]string {
	typeOf := make(map[string]string, len(file.Mappings))
	for _, def := range file.Mappings {
		typeOf[def.Name] = def.Remote.Type
	}

	sets := make(map[string]map[string]struct{})
	add := func(recordType string, names ...string) {
		if recordType == "" {
			return
		}
		if sets[recordType] == nil {
			sets[recordType] = make(map[string]struct{})
		}
		for _, n := range names {
			sets[recordType][n] = struct{}{}
		}
	}
	for _, def := range file.Mappings {
		for _, remoteField := range def.Fields {
			add(def.Remote.Type, remoteField)
		}
		for _, a := range def.Associations {
			if a.Kind == "belongs_to" || a.Kind == "belongsTo" {
				add(def.Remote.Type, a.LookupFields...)
				continue
			}
			add(typeOf[a.Target], a.LookupFields...)
		}
	}

	out := make(map[string][]string, len(sets))
	for recordType, set := range sets {
		names := make([]string, 0, len(set))
		for n := range set {
			names = append(names, n)
		}
		sort.Strings(names)
		out[recordType] = names
	}
	return out
}
