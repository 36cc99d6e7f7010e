package reconcile

import (
	"context"

	"github.com/cockroachdb/errors"

	"record-sync/core/utils"
)

type visit struct {
	mapping  string
	side     Side
	identity string
}

type createdRecord struct {
	rt       RecordType
	remoteID string
}

// link is a field write on a record the build did not create. previous is
// restored by compensate.
type link struct {
	inst     Instance
	column   string
	previous any
}

// Associator creates counterparts together with their associated records.
// One Associator builds one record graph; it is discarded afterwards.
type Associator struct {
	registry *Registry
	visited  map[visit]Instance
	created  []createdRecord
	links    []link
	synced   []Instance
}

// NewAssociator returns an associator for a single creation.
func NewAssociator(registry *Registry) *Associator {
	return &Associator{
		registry: registry,
		visited:  make(map[visit]Instance),
	}
}

// Created returns the number of records created so far.
func (a *Associator) Created() int {
	return len(a.created)
}

// CreateLocal creates the local counterpart of a remote record of m and its
// associated records. Nothing created is left behind on failure.
func (a *Associator) CreateLocal(ctx context.Context, m *Mapping, remote Instance) (Instance, error) {
	local, err := a.localFor(ctx, m, remote)
	if err == nil {
		err = a.markSynced(ctx)
	}
	if err != nil {
		return nil, a.compensate(ctx, err)
	}
	return local, nil
}

// CreateRemote creates the remote counterpart of an unpaired local record of
// m, links it and builds its associations. Nothing created is left behind on failure.
func (a *Associator) CreateRemote(ctx context.Context, m *Mapping, local Instance) (Instance, error) {
	remote, err := a.remoteFor(ctx, m, local)
	if err == nil {
		err = a.markSynced(ctx)
	}
	if err != nil {
		return nil, a.compensate(ctx, err)
	}
	return remote, nil
}

// localFor resolves or creates the local record paired with remote.
func (a *Associator) localFor(ctx context.Context, m *Mapping, remote Instance) (Instance, error) {
	v := visit{mapping: m.Name, side: SideLocal, identity: remote.RemoteID()}
	if inst, seen := a.visited[v]; seen {
		return inst, nil
	}
	a.visited[v] = nil

	existing, err := m.Local.Find(ctx, remote.RemoteID())
	if err == nil {
		a.visited[v] = existing
		return existing, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	attrs, err := m.Attributes.AttributesFrom(SideRemote, remote.Attributes())
	if err != nil {
		return nil, err
	}
	attrs[m.LookupColumn] = remote.RemoteID()

	for _, assoc := range m.Associations {
		if assoc.Kind != BelongsTo {
			continue
		}
		parent, err := a.localParent(ctx, assoc, remote)
		if err != nil {
			return nil, err
		}
		if parent != nil {
			attrs[assoc.ForeignKey] = parent.ID()
		}
	}

	local, err := m.Local.Create(ctx, attrs)
	if err != nil {
		return nil, err
	}
	a.visited[v] = local
	a.created = append(a.created, createdRecord{rt: m.Local, remoteID: remote.RemoteID()})
	a.synced = append(a.synced, local, remote)

	for _, assoc := range m.Associations {
		if assoc.Kind == BelongsTo {
			continue
		}
		if err := a.localChildren(ctx, assoc, remote, local); err != nil {
			return nil, err
		}
	}
	return local, nil
}

// localParent returns the local record referenced by a belongsTo lookup of remote.
func (a *Associator) localParent(ctx context.Context, assoc Association, remote Instance) (Instance, error) {
	id := lookupValue(remote.Attributes(), assoc.LookupFields)
	if id == "" {
		return nil, nil
	}
	target, ok := a.registry.Get(assoc.Target)
	if !ok {
		return nil, Configurationf("association %q targets unknown mapping %q", assoc.Name, assoc.Target)
	}
	parentRemote, err := target.Remote.Find(ctx, id)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a.localFor(ctx, target, parentRemote)
}

// localChildren materializes has* associations of a freshly created local record.
func (a *Associator) localChildren(ctx context.Context, assoc Association, remote, local Instance) error {
	target, ok := a.registry.Get(assoc.Target)
	if !ok {
		return Configurationf("association %q targets unknown mapping %q", assoc.Name, assoc.Target)
	}
	for _, field := range assoc.LookupFields {
		children, err := target.Remote.All(ctx, Query{Match: map[string]string{field: remote.RemoteID()}})
		if err != nil {
			return err
		}
		if assoc.Cardinality() == One && len(children) > 1 {
			children = children[:1]
		}
		for _, child := range children {
			childLocal, err := a.localFor(ctx, target, child)
			if err != nil {
				return err
			}
			if childLocal == nil {
				continue
			}
			previous := childLocal.Attributes()[assoc.ForeignKey]
			if utils.ToString(previous) == local.ID() {
				continue
			}
			relinked, err := childLocal.Update(ctx, Attributes{assoc.ForeignKey: local.ID()})
			if err != nil {
				return err
			}
			a.relinked(target.Local, child.RemoteID(), relinked, assoc.ForeignKey, previous)
		}
	}
	return nil
}

// remoteFor resolves or creates the remote record paired with local.
func (a *Associator) remoteFor(ctx context.Context, m *Mapping, local Instance) (Instance, error) {
	v := visit{mapping: m.Name, side: SideRemote, identity: local.ID()}
	if inst, seen := a.visited[v]; seen {
		return inst, nil
	}
	a.visited[v] = nil

	if id := local.RemoteID(); id != "" {
		existing, err := m.Remote.Find(ctx, id)
		if err != nil {
			return nil, err
		}
		a.visited[v] = existing
		return existing, nil
	}

	canonical, err := m.Attributes.AttributesFrom(SideLocal, local.Attributes())
	if err != nil {
		return nil, err
	}
	attrs, err := m.Attributes.Convert(SideRemote, canonical)
	if err != nil {
		return nil, err
	}

	for _, assoc := range m.Associations {
		if assoc.Kind != BelongsTo {
			continue
		}
		parent, err := a.remoteParent(ctx, assoc, local)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			continue
		}
		for _, field := range assoc.LookupFields {
			attrs[field] = parent.RemoteID()
		}
	}

	remote, err := m.Remote.Create(ctx, attrs)
	if err != nil {
		return nil, err
	}
	a.created = append(a.created, createdRecord{rt: m.Remote, remoteID: remote.RemoteID()})

	linked, err := local.Update(ctx, Attributes{m.LookupColumn: remote.RemoteID()})
	if err != nil {
		return nil, err
	}
	a.links = append(a.links, link{inst: linked, column: m.LookupColumn})
	a.visited[v] = remote
	a.synced = append(a.synced, linked, remote)

	for _, assoc := range m.Associations {
		if assoc.Kind == BelongsTo {
			continue
		}
		if err := a.remoteChildren(ctx, assoc, linked, remote); err != nil {
			return nil, err
		}
	}
	return remote, nil
}

// remoteParent returns the remote record referenced by a belongsTo foreign key of local.
func (a *Associator) remoteParent(ctx context.Context, assoc Association, local Instance) (Instance, error) {
	fk := utils.ToString(local.Attributes()[assoc.ForeignKey])
	if fk == "" {
		return nil, nil
	}
	target, ok := a.registry.Get(assoc.Target)
	if !ok {
		return nil, Configurationf("association %q targets unknown mapping %q", assoc.Name, assoc.Target)
	}
	parentLocal, err := findNative(ctx, target.Local, fk)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a.remoteFor(ctx, target, parentLocal)
}

// remoteChildren materializes has* associations of a freshly created remote
// record and relinks children that were already paired.
func (a *Associator) remoteChildren(ctx context.Context, assoc Association, local, remote Instance) error {
	target, ok := a.registry.Get(assoc.Target)
	if !ok {
		return Configurationf("association %q targets unknown mapping %q", assoc.Name, assoc.Target)
	}
	children, err := target.Local.All(ctx, Query{Match: map[string]string{assoc.ForeignKey: local.ID()}})
	if err != nil {
		return err
	}
	if assoc.Cardinality() == One && len(children) > 1 {
		children = children[:1]
	}
	field := assoc.LookupFields[0]
	for _, child := range children {
		childRemote, err := a.remoteFor(ctx, target, child)
		if err != nil {
			return err
		}
		if childRemote == nil {
			continue
		}
		previous := childRemote.Attributes()[field]
		if utils.ToString(previous) == remote.RemoteID() {
			continue
		}
		relinked, err := childRemote.Update(ctx, Attributes{field: remote.RemoteID()})
		if err != nil {
			return err
		}
		a.relinked(target.Remote, childRemote.RemoteID(), relinked, field, previous)
	}
	return nil
}

// relinked records a foreign key rewrite on a record that existed before the
// build. Records created by the build are destroyed on failure instead.
func (a *Associator) relinked(rt RecordType, remoteID string, inst Instance, column string, previous any) {
	for _, c := range a.created {
		if c.remoteID == remoteID && c.rt.Side() == rt.Side() && c.rt.Name() == rt.Name() {
			return
		}
	}
	a.links = append(a.links, link{inst: inst, column: column, previous: previous})
}

// markSynced advances the sync timestamp of every record touched by the build
// so the next cycle does not collect these writes as external changes.
func (a *Associator) markSynced(ctx context.Context) error {
	for _, inst := range a.synced {
		if err := inst.MarkSynced(ctx); err != nil {
			return err
		}
	}
	return nil
}

// compensate restores the fields this build rewrote on existing records and
// destroys the records it created, newest first.
func (a *Associator) compensate(ctx context.Context, cause error) error {
	for i := len(a.links) - 1; i >= 0; i-- {
		l := a.links[i]
		if _, err := l.inst.Update(ctx, Attributes{l.column: l.previous}); err != nil {
			cause = errors.WithSecondaryError(cause,
				errors.Wrapf(err, "unlink %s", l.inst.ID()))
		}
	}
	for i := len(a.created) - 1; i >= 0; i-- {
		c := a.created[i]
		if err := c.rt.DestroyAll(ctx, []string{c.remoteID}); err != nil {
			cause = errors.WithSecondaryError(cause,
				errors.Wrapf(err, "destroy %s %s", c.rt.Name(), c.remoteID))
		}
	}
	a.created = nil
	a.links = nil
	a.synced = nil
	return cause
}
