// Package config provides configuration management for record-sync.
//
// It utilizes Viper for loading configuration from environment variables
// and an optional .env file.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP status server (port, API key, shutdown timeout)
//   - Database: local store connection (mysql, postgres or sqlite)
//   - Storage: S3/MinIO credentials and bucket for the storage window backend
//   - Log: Logging level and format
//   - Remote: CRM API endpoint, token, throttling and field names
//   - Sync: mappings file, polling interval and concurrency
//   - Tracker: which backend persists the per-mapping windows
//
// Nested keys map to environment variables by replacing dots with
// underscores, e.g. REMOTE_BASE_URL or SYNC_INTERVAL_SECONDS.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Sync.Interval())
package config
