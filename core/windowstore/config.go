package windowstore

// Config selects and configures the window store backend.
type Config struct {
	// Backend is one of database, storage, file or memory.
	Backend string `mapstructure:"backend" default:"database"`
	// Table is the table used by the database backend.
	Table string `mapstructure:"table" default:"sync_windows"`
	// Path is the JSON document used by the file backend.
	Path string `mapstructure:"path" default:"data/windows.json"`
	// Prefix is prepended to object names by the storage backend.
	Prefix string `mapstructure:"prefix" default:"windows/"`
}

const (
	BackendDatabase = "database"
	BackendStorage  = "storage"
	BackendFile     = "file"
	BackendMemory   = "memory"
)
