// Package memory provides in-memory record types implementing the reconcile
// capability contract. They back the engine's scenario tests and local dry runs.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"record-sync/core/reconcile"
	"record-sync/core/utils"
)

// Clock is a manually advanced clock shared by record types and runners.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock set to start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current time of the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

type record struct {
	id      string
	attrs   reconcile.Attributes
	updated time.Time
	synced  time.Time
}

// RecordType is an in-memory record type. Local record types enforce a
// uniqueness constraint on their lookup column.
type RecordType struct {
	mu       sync.Mutex
	name     string
	side     reconcile.Side
	lookup   string
	fields   map[string]struct{}
	records  map[string]*record
	order    []string
	seq      int
	now      func() time.Time
	onCreate func(reconcile.Attributes) error
}

// Option configures a RecordType.
type Option func(*RecordType)

// WithClock sets the clock stamping writes.
func WithClock(now func() time.Time) Option {
	return func(t *RecordType) { t.now = now }
}

// WithFields restricts HasField to the given names.
func WithFields(names ...string) Option {
	return func(t *RecordType) {
		t.fields = make(map[string]struct{}, len(names))
		for _, n := range names {
			t.fields[n] = struct{}{}
		}
	}
}

// NewLocal returns a local record type keyed by lookupColumn.
func NewLocal(name, lookupColumn string, opts ...Option) *RecordType {
	return newRecordType(name, reconcile.SideLocal, lookupColumn, opts)
}

// NewRemote returns a remote record type.
func NewRemote(name string, opts ...Option) *RecordType {
	return newRecordType(name, reconcile.SideRemote, "", opts)
}

func newRecordType(name string, side reconcile.Side, lookup string, opts []Option) *RecordType {
	t := &RecordType{
		name:    name,
		side:    side,
		lookup:  lookup,
		records: make(map[string]*record),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// OnCreate installs a hook run before every create. A non-nil error rejects it.
func (t *RecordType) OnCreate(fn func(reconcile.Attributes) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onCreate = fn
}

// Put inserts or replaces a record as an external writer would, stamping it
// as modified at the given time and never synced.
func (t *RecordType) Put(id string, attrs reconcile.Attributes, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.records[id]; !ok {
		t.order = append(t.order, id)
	}
	t.records[id] = &record{id: id, attrs: attrs.Clone(), updated: at}
}

// Touch applies an external change to an existing record.
func (t *RecordType) Touch(id string, attrs reconcile.Attributes, at time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[id]
	if !ok {
		return reconcile.NotFoundf(t.name, id)
	}
	for k, v := range attrs {
		rec.attrs[k] = v
	}
	rec.updated = at
	return nil
}

// Get returns a snapshot of a record by its own id.
func (t *RecordType) Get(id string) (reconcile.Instance, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[id]
	if !ok {
		return nil, false
	}
	return t.snapshot(rec), true
}

// Records returns snapshots of every record in insertion order.
func (t *RecordType) Records() []reconcile.Instance {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]reconcile.Instance, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.snapshot(t.records[id]))
	}
	return out
}

// Len returns the number of records.
func (t *RecordType) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

func (t *RecordType) Name() string         { return t.name }
func (t *RecordType) Side() reconcile.Side { return t.side }

func (t *RecordType) Find(_ context.Context, remoteID string) (reconcile.Instance, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rec := t.byRemoteID(remoteID); rec != nil {
		return t.snapshot(rec), nil
	}
	return nil, reconcile.NotFoundf(t.name, remoteID)
}

// FindNative looks a record up by its own id.
func (t *RecordType) FindNative(_ context.Context, id string) (reconcile.Instance, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rec, ok := t.records[id]; ok {
		return t.snapshot(rec), nil
	}
	return nil, reconcile.NotFoundf(t.name, id)
}

// All supports conditions of the form `field = value` and `field != value`.
func (t *RecordType) All(_ context.Context, q reconcile.Query) ([]reconcile.Instance, error) {
	conds := make([]condition, 0, len(q.Conditions))
	for _, raw := range q.Conditions {
		c, err := parseCondition(raw)
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	var out []reconcile.Instance
	for _, id := range t.order {
		rec := t.records[id]
		if !q.After.IsZero() && !rec.updated.After(q.After) {
			continue
		}
		if !q.Before.IsZero() && rec.updated.After(q.Before) {
			continue
		}
		if !matches(rec.attrs, conds, q.Match) {
			continue
		}
		out = append(out, t.snapshot(rec))
	}
	return out, nil
}

func (t *RecordType) Create(_ context.Context, attrs reconcile.Attributes) (reconcile.Instance, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.onCreate != nil {
		if err := t.onCreate(attrs); err != nil {
			return nil, err
		}
	}
	if err := t.checkUnique("", attrs); err != nil {
		return nil, err
	}
	t.seq++
	id := fmt.Sprintf("%d", t.seq)
	if t.side == reconcile.SideRemote {
		id = fmt.Sprintf("%s-%03d", t.name, t.seq)
	}
	rec := &record{id: id, attrs: attrs.Clone(), updated: t.now()}
	t.records[id] = rec
	t.order = append(t.order, id)
	return t.snapshot(rec), nil
}

func (t *RecordType) DestroyAll(_ context.Context, remoteIDs []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, remoteID := range remoteIDs {
		rec := t.byRemoteID(remoteID)
		if rec == nil {
			continue
		}
		delete(t.records, rec.id)
		for i, id := range t.order {
			if id == rec.id {
				t.order = append(t.order[:i], t.order[i+1:]...)
				break
			}
		}
	}
	return nil
}

func (t *RecordType) HasField(_ context.Context, name string) (bool, error) {
	if t.fields == nil {
		return true, nil
	}
	_, ok := t.fields[name]
	return ok, nil
}

func (t *RecordType) update(id string, attrs reconcile.Attributes) (reconcile.Instance, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[id]
	if !ok {
		return nil, reconcile.NotFoundf(t.name, id)
	}
	if err := t.checkUnique(id, attrs); err != nil {
		return nil, err
	}
	for k, v := range attrs {
		rec.attrs[k] = v
	}
	rec.updated = t.now()
	rec.synced = rec.updated.Add(time.Millisecond)
	return t.snapshot(rec), nil
}

func (t *RecordType) markSynced(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[id]
	if !ok {
		return reconcile.NotFoundf(t.name, id)
	}
	at := t.now()
	if at.Before(rec.updated) {
		at = rec.updated
	}
	rec.synced = at.Add(time.Millisecond)
	return nil
}

func (t *RecordType) remoteIDOf(rec *record) string {
	if t.side == reconcile.SideRemote {
		return rec.id
	}
	return utils.ToString(rec.attrs[t.lookup])
}

func (t *RecordType) byRemoteID(remoteID string) *record {
	if remoteID == "" {
		return nil
	}
	if t.side == reconcile.SideRemote {
		return t.records[remoteID]
	}
	for _, id := range t.order {
		if rec := t.records[id]; t.remoteIDOf(rec) == remoteID {
			return rec
		}
	}
	return nil
}

// checkUnique enforces one local record per remote identity.
func (t *RecordType) checkUnique(selfID string, attrs reconcile.Attributes) error {
	if t.side != reconcile.SideLocal {
		return nil
	}
	remoteID := utils.ToString(attrs[t.lookup])
	if remoteID == "" {
		return nil
	}
	if rec := t.byRemoteID(remoteID); rec != nil && rec.id != selfID {
		return reconcile.Persistence(
			errors.Newf("duplicate %s %q", t.lookup, remoteID),
			"unique constraint on "+t.name)
	}
	return nil
}

func (t *RecordType) snapshot(rec *record) reconcile.Instance {
	return &Instance{
		rt:       t,
		id:       rec.id,
		remoteID: t.remoteIDOf(rec),
		attrs:    rec.attrs.Clone(),
		updated:  rec.updated,
		synced:   rec.synced,
	}
}

// Instance is a snapshot of one in-memory record.
type Instance struct {
	rt       *RecordType
	id       string
	remoteID string
	attrs    reconcile.Attributes
	updated  time.Time
	synced   time.Time
}

func (i *Instance) ID() string                       { return i.id }
func (i *Instance) RemoteID() string                 { return i.remoteID }
func (i *Instance) Attributes() reconcile.Attributes { return i.attrs.Clone() }
func (i *Instance) LastUpdate() time.Time            { return i.updated }
func (i *Instance) LastSync() time.Time              { return i.synced }

// IsPaired reports a lookup value on local records, and a past sync on remote ones.
func (i *Instance) IsPaired() bool {
	if i.rt.side == reconcile.SideRemote {
		return !i.synced.IsZero()
	}
	return i.remoteID != ""
}

func (i *Instance) Update(_ context.Context, attrs reconcile.Attributes) (reconcile.Instance, error) {
	return i.rt.update(i.id, attrs)
}

func (i *Instance) MarkSynced(context.Context) error {
	return i.rt.markSynced(i.id)
}

type condition struct {
	field  string
	value  string
	negate bool
}

func parseCondition(raw string) (condition, error) {
	op, negate := "=", false
	if strings.Contains(raw, "!=") {
		op, negate = "!=", true
	}
	parts := strings.SplitN(raw, op, 2)
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
		return condition{}, reconcile.Configurationf("unsupported condition %q", raw)
	}
	return condition{
		field:  strings.TrimSpace(parts[0]),
		value:  strings.Trim(strings.TrimSpace(parts[1]), `'"`),
		negate: negate,
	}, nil
}

func matches(attrs reconcile.Attributes, conds []condition, match map[string]string) bool {
	for _, c := range conds {
		equal := utils.ToString(attrs[c.field]) == c.value
		if equal == c.negate {
			return false
		}
	}
	for k, v := range match {
		if utils.ToString(attrs[k]) != v {
			return false
		}
	}
	return true
}
