package remote

import (
	"context"
	"sort"
	"strings"
	"time"

	"record-sync/core/reconcile"
	"record-sync/core/utils"
)

const idField = "Id"

// RecordType is one remote object type, such as Contact.
type RecordType struct {
	client *Client
	name   string
	fields []string
}

// NewRecordType returns the record type name read through client. Queries
// select fields plus the id, modstamp and sync marker fields; with no fields
// every described field is selected. The client configuration must pass
// Config.Validate.
func NewRecordType(client *Client, name string, fields ...string) *RecordType {
	return &RecordType{client: client, name: name, fields: append([]string(nil), fields...)}
}

func (t *RecordType) Name() string { return t.name }

func (t *RecordType) Side() reconcile.Side { return reconcile.SideRemote }

func (t *RecordType) selectFields(ctx context.Context) ([]string, error) {
	fields := t.fields
	if len(fields) == 0 {
		described, err := t.client.Fields(ctx, t.name)
		if err != nil {
			return nil, err
		}
		for _, name := range described {
			fields = append(fields, name)
		}
		sort.Strings(fields)
	}

	cfg := t.client.Config()
	out := []string{idField, cfg.ModstampField, cfg.SyncMarkerField}
	seen := make(map[string]bool, len(out)+len(fields))
	for _, f := range out {
		seen[strings.ToLower(f)] = true
	}
	for _, f := range fields {
		if !seen[strings.ToLower(f)] {
			seen[strings.ToLower(f)] = true
			out = append(out, f)
		}
	}
	return out, nil
}

func (t *RecordType) Find(ctx context.Context, remoteID string) (reconcile.Instance, error) {
	if remoteID == "" {
		return nil, reconcile.NotFoundf(t.name, remoteID)
	}
	fields, err := t.selectFields(ctx)
	if err != nil {
		return nil, err
	}
	attrs, err := t.client.Get(ctx, t.name, remoteID, fields)
	if reconcile.IsNotFound(err) {
		return nil, reconcile.NotFoundf(t.name, remoteID)
	}
	if err != nil {
		return nil, err
	}
	return &instance{rt: t, attrs: attrs}, nil
}

func (t *RecordType) All(ctx context.Context, q reconcile.Query) ([]reconcile.Instance, error) {
	fields, err := t.selectFields(ctx)
	if err != nil {
		return nil, err
	}
	records, err := t.client.Query(ctx, buildQuery(t.name, fields, t.client.Config().ModstampField, q))
	if err != nil {
		return nil, err
	}
	out := make([]reconcile.Instance, 0, len(records))
	for _, attrs := range records {
		out = append(out, &instance{rt: t, attrs: attrs})
	}
	return out, nil
}

func (t *RecordType) Create(ctx context.Context, attrs reconcile.Attributes) (reconcile.Instance, error) {
	id, err := t.client.Create(ctx, t.name, attrs)
	if err != nil {
		return nil, err
	}
	return t.Find(ctx, id)
}

// DestroyAll deletes the records one by one. Records already gone are skipped.
func (t *RecordType) DestroyAll(ctx context.Context, remoteIDs []string) error {
	for _, id := range remoteIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := t.client.Delete(ctx, t.name, id)
		if err != nil && !reconcile.IsNotFound(err) {
			return err
		}
	}
	return nil
}

func (t *RecordType) HasField(ctx context.Context, name string) (bool, error) {
	fields, err := t.client.Fields(ctx, t.name)
	if err != nil {
		return false, err
	}
	_, ok := fields[strings.ToLower(name)]
	return ok, nil
}

type instance struct {
	rt    *RecordType
	attrs reconcile.Attributes
}

func (i *instance) ID() string       { return utils.ToString(i.attrs[idField]) }
func (i *instance) RemoteID() string { return i.ID() }
func (i *instance) IsPaired() bool   { return !i.LastSync().IsZero() }

func (i *instance) Attributes() reconcile.Attributes { return i.attrs.Clone() }

func (i *instance) LastUpdate() time.Time {
	t, _ := utils.ToTime(i.attrs[i.rt.client.Config().ModstampField])
	return t
}

func (i *instance) LastSync() time.Time {
	t, _ := utils.ToTime(i.attrs[i.rt.client.Config().SyncMarkerField])
	return t
}

func (i *instance) marker(after time.Time) time.Time {
	cfg := i.rt.client.Config()
	at := i.rt.client.now().UTC()
	if after.After(at) {
		at = after
	}
	return at.Add(time.Duration(cfg.SyncMarkerLeadMillis) * time.Millisecond)
}

// Update patches attrs together with the sync marker and re-reads the record.
func (i *instance) Update(ctx context.Context, attrs reconcile.Attributes) (reconcile.Instance, error) {
	body := attrs.Clone()
	body[i.rt.client.Config().SyncMarkerField] = formatTime(i.marker(i.LastUpdate()))
	if err := i.rt.client.Update(ctx, i.rt.name, i.ID(), body); err != nil {
		if reconcile.IsNotFound(err) {
			return nil, reconcile.Persistence(err, "record vanished")
		}
		return nil, err
	}
	return i.rt.Find(ctx, i.ID())
}

// MarkSynced writes the sync marker ahead of the current modstamp.
func (i *instance) MarkSynced(ctx context.Context) error {
	marker := i.rt.client.Config().SyncMarkerField
	at := i.marker(i.LastUpdate())
	if err := i.rt.client.Update(ctx, i.rt.name, i.ID(), reconcile.Attributes{marker: formatTime(at)}); err != nil {
		return err
	}
	i.attrs[marker] = formatTime(at)
	return nil
}
