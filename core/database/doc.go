// Package database handles database connections and schema inspection.
//
// It provides a wrapper around GORM (Go Object Relational Mapping) to configure
// MySQL, PostgreSQL or SQLite connections based on the application's configuration.
//
// # Connect
//
// Connect opens the configured driver, applies pool settings and pings the
// database. Driver specific errors are translated to gorm's portable errors so
// the local record adapter can tell constraint violations from outages.
//
// # Schema Inspection
//
// GetTableColumns lists the columns of a table. The local record adapter uses it
// to answer HasField when mapping definitions are validated at startup.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	columns, err := database.GetTableColumns(db, "contacts")
package database
