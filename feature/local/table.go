package local

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"record-sync/core/database"
	"record-sync/core/reconcile"
	"record-sync/core/utils"
)

// TableConfig describes the columns the adapter relies on.
type TableConfig struct {
	Table         string
	IDColumn      string
	LookupColumn  string
	UpdatedColumn string
	SyncedColumn  string
}

func (c TableConfig) withDefaults() TableConfig {
	if c.IDColumn == "" {
		c.IDColumn = "id"
	}
	if c.UpdatedColumn == "" {
		c.UpdatedColumn = "updated_at"
	}
	if c.SyncedColumn == "" {
		c.SyncedColumn = "synced_at"
	}
	return c
}

// Table is a local record type backed by one database table.
type Table struct {
	db  *gorm.DB
	cfg TableConfig
	now func() time.Time
}

// Option configures a Table.
type Option func(*Table)

// WithClock replaces the clock stamping writes.
func WithClock(now func() time.Time) Option {
	return func(t *Table) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTable returns the record type for cfg.Table.
func NewTable(db *gorm.DB, cfg TableConfig, opts ...Option) (*Table, error) {
	cfg = cfg.withDefaults()
	if cfg.Table == "" {
		return nil, reconcile.Configurationf("local record type has no table")
	}
	if cfg.LookupColumn == "" {
		return nil, reconcile.Configurationf("table %s has no lookup column", cfg.Table)
	}
	t := &Table{db: db, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func (t *Table) Name() string { return t.cfg.Table }

func (t *Table) Side() reconcile.Side { return reconcile.SideLocal }

// Config returns the column configuration with defaults applied.
func (t *Table) Config() TableConfig { return t.cfg }

func (t *Table) table(ctx context.Context) *gorm.DB {
	return t.db.WithContext(ctx).Table(t.cfg.Table)
}

func column(name string) clause.Column {
	return clause.Column{Name: name}
}

func (t *Table) Find(ctx context.Context, remoteID string) (reconcile.Instance, error) {
	if remoteID == "" {
		return nil, reconcile.NotFoundf(t.cfg.Table, remoteID)
	}
	return t.findBy(ctx, t.cfg.LookupColumn, remoteID)
}

func (t *Table) FindNative(ctx context.Context, id string) (reconcile.Instance, error) {
	if id == "" {
		return nil, reconcile.NotFoundf(t.cfg.Table, id)
	}
	return t.findBy(ctx, t.cfg.IDColumn, id)
}

func (t *Table) findBy(ctx context.Context, col, value string) (reconcile.Instance, error) {
	rows, err := t.scan(t.table(ctx).Where(clause.Eq{Column: column(col), Value: value}).Limit(1))
	if err != nil {
		return nil, classify(err, "find "+t.cfg.Table)
	}
	if len(rows) == 0 {
		return nil, reconcile.NotFoundf(t.cfg.Table, value)
	}
	return &instance{table: t, row: rows[0]}, nil
}

// All returns the rows updated inside the query window that satisfy its
// conditions, oldest first.
func (t *Table) All(ctx context.Context, q reconcile.Query) ([]reconcile.Instance, error) {
	tx := t.table(ctx)
	if !q.After.IsZero() {
		tx = tx.Where(clause.Gt{Column: column(t.cfg.UpdatedColumn), Value: q.After.UTC()})
	}
	if !q.Before.IsZero() {
		tx = tx.Where(clause.Lte{Column: column(t.cfg.UpdatedColumn), Value: q.Before.UTC()})
	}
	for _, cond := range q.Conditions {
		if strings.TrimSpace(cond) != "" {
			tx = tx.Where(cond)
		}
	}
	for col, value := range q.Match {
		tx = tx.Where(clause.Eq{Column: column(col), Value: value})
	}
	tx = tx.Order(clause.OrderByColumn{Column: column(t.cfg.UpdatedColumn)}).
		Order(clause.OrderByColumn{Column: column(t.cfg.IDColumn)})

	rows, err := t.scan(tx)
	if err != nil {
		return nil, classify(err, "query "+t.cfg.Table)
	}
	out := make([]reconcile.Instance, 0, len(rows))
	for _, row := range rows {
		out = append(out, &instance{table: t, row: row})
	}
	return out, nil
}

// Create inserts a row and reads it back through the lookup column.
func (t *Table) Create(ctx context.Context, attrs reconcile.Attributes) (reconcile.Instance, error) {
	remoteID := utils.ToString(attrs[t.cfg.LookupColumn])
	if remoteID == "" {
		return nil, reconcile.Persistence(errors.Newf("missing %s", t.cfg.LookupColumn), "create "+t.cfg.Table)
	}
	values := map[string]any(attrs.Clone())
	values[t.cfg.UpdatedColumn] = t.now().UTC()
	delete(values, t.cfg.SyncedColumn)
	delete(values, t.cfg.IDColumn)

	if err := t.table(ctx).Create(values).Error; err != nil {
		return nil, classify(err, "create "+t.cfg.Table)
	}
	return t.Find(ctx, remoteID)
}

// DestroyAll deletes the rows whose lookup column is one of remoteIDs.
func (t *Table) DestroyAll(ctx context.Context, remoteIDs []string) error {
	if len(remoteIDs) == 0 {
		return nil
	}
	values := make([]any, len(remoteIDs))
	for i, id := range remoteIDs {
		values[i] = id
	}
	err := t.table(ctx).Where(clause.IN{Column: column(t.cfg.LookupColumn), Values: values}).Delete(nil).Error
	return classify(err, "destroy "+t.cfg.Table)
}

func (t *Table) HasField(ctx context.Context, name string) (bool, error) {
	ok, err := database.HasColumn(t.db.WithContext(ctx), t.cfg.Table, name)
	if err != nil {
		return false, classify(err, "inspect "+t.cfg.Table)
	}
	return ok, nil
}

func (t *Table) update(ctx context.Context, id string, values map[string]any) error {
	res := t.table(ctx).Where(clause.Eq{Column: column(t.cfg.IDColumn), Value: id}).Updates(values)
	if res.Error != nil {
		return classify(res.Error, "update "+t.cfg.Table)
	}
	if res.RowsAffected == 0 {
		return reconcile.Persistence(reconcile.NotFoundf(t.cfg.Table, id), "record vanished")
	}
	return nil
}

// scan runs tx and returns every row as a column map. Byte slices are turned
// into strings.
func (t *Table) scan(tx *gorm.DB) ([]map[string]any, error) {
	rows, err := tx.Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// classify marks constraint violations as persistence errors and everything
// else as transient.
func classify(err error, msg string) error {
	if err == nil {
		return nil
	}
	if reconcile.IsPersistence(err) || reconcile.IsNotFound(err) {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		errors.Is(err, gorm.ErrForeignKeyViolated) ||
		errors.Is(err, gorm.ErrCheckConstraintViolated) ||
		strings.Contains(strings.ToLower(err.Error()), "constraint failed") {
		return reconcile.Persistence(err, msg)
	}
	return reconcile.Transient(err, msg)
}
