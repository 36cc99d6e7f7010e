package windowstore

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// windowRow is one persisted window end.
type windowRow struct {
	MappingName string    `gorm:"column:mapping_name;primaryKey;size:191"`
	WindowEnd   time.Time `gorm:"column:window_end;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

// Database keeps windows in a relational table, one row per mapping.
type Database struct {
	db    *gorm.DB
	table string
}

func NewDatabase(db *gorm.DB, table string) *Database {
	if table == "" {
		table = "sync_windows"
	}
	return &Database{db: db, table: table}
}

// Migrate creates the window table when missing.
func (d *Database) Migrate(ctx context.Context) error {
	if err := d.db.WithContext(ctx).Table(d.table).AutoMigrate(&windowRow{}); err != nil {
		return errors.Wrapf(err, "migrate window table %s", d.table)
	}
	return nil
}

func (d *Database) Load(ctx context.Context, mapping string) (time.Time, error) {
	var rows []windowRow
	err := d.db.WithContext(ctx).Table(d.table).
		Where("mapping_name = ?", mapping).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "load window for %s", mapping)
	}
	if len(rows) == 0 {
		return time.Time{}, nil
	}
	return rows[0].WindowEnd.UTC(), nil
}

func (d *Database) Save(ctx context.Context, mapping string, end time.Time) error {
	row := windowRow{MappingName: mapping, WindowEnd: end.UTC(), UpdatedAt: time.Now().UTC()}
	err := d.db.WithContext(ctx).Table(d.table).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "mapping_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"window_end", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return errors.Wrapf(err, "save window for %s", mapping)
	}
	return nil
}

func (d *Database) Reset(ctx context.Context, mapping string) error {
	err := d.db.WithContext(ctx).Table(d.table).
		Where("mapping_name = ?", mapping).
		Delete(&windowRow{}).Error
	if err != nil {
		return errors.Wrapf(err, "reset window for %s", mapping)
	}
	return nil
}

func (d *Database) List(ctx context.Context) (map[string]time.Time, error) {
	var rows []windowRow
	if err := d.db.WithContext(ctx).Table(d.table).Order("mapping_name").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "list windows")
	}
	out := make(map[string]time.Time, len(rows))
	for _, r := range rows {
		out[r.MappingName] = r.WindowEnd.UTC()
	}
	return out, nil
}
