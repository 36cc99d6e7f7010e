package local

import (
	"context"
	"time"

	"record-sync/core/reconcile"
	"record-sync/core/utils"
)

// syncLead keeps the sync stamp strictly after the update stamp.
const syncLead = time.Millisecond

type instance struct {
	table *Table
	row   map[string]any
}

func (i *instance) ID() string {
	return utils.ToString(i.row[i.table.cfg.IDColumn])
}

func (i *instance) RemoteID() string {
	return utils.ToString(i.row[i.table.cfg.LookupColumn])
}

func (i *instance) IsPaired() bool { return i.RemoteID() != "" }

func (i *instance) Attributes() reconcile.Attributes {
	return reconcile.Attributes(i.row).Clone()
}

func (i *instance) LastUpdate() time.Time {
	t, _ := utils.ToTime(i.row[i.table.cfg.UpdatedColumn])
	return t
}

func (i *instance) LastSync() time.Time {
	t, _ := utils.ToTime(i.row[i.table.cfg.SyncedColumn])
	return t
}

// Update writes attrs and stamps the row as synchronized.
func (i *instance) Update(ctx context.Context, attrs reconcile.Attributes) (reconcile.Instance, error) {
	cfg := i.table.cfg
	now := i.table.now().UTC()
	values := map[string]any(attrs.Clone())
	delete(values, cfg.IDColumn)
	values[cfg.UpdatedColumn] = now
	values[cfg.SyncedColumn] = now.Add(syncLead)

	if err := i.table.update(ctx, i.ID(), values); err != nil {
		return nil, err
	}
	return i.table.FindNative(ctx, i.ID())
}

func (i *instance) MarkSynced(ctx context.Context) error {
	at := i.table.now().UTC()
	if updated := i.LastUpdate(); updated.After(at) {
		at = updated
	}
	at = at.Add(syncLead)
	if err := i.table.update(ctx, i.ID(), map[string]any{i.table.cfg.SyncedColumn: at}); err != nil {
		return err
	}
	i.row[i.table.cfg.SyncedColumn] = at
	return nil
}
