package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"record-sync/core/config"
	"record-sync/core/windowstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.Server.Enabled)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "SystemModstamp", cfg.Remote.ModstampField)
	assert.Equal(t, "SynchronizedAt__c", cfg.Remote.SyncMarkerField)
	assert.NoError(t, cfg.Remote.Validate())
	assert.Equal(t, 10.0, cfg.Remote.RequestsPerSecond)
	assert.Equal(t, "mappings.yaml", cfg.Sync.MappingsFile)
	assert.Equal(t, time.Minute, cfg.Sync.Interval())
	assert.Equal(t, windowstore.BackendDatabase, cfg.Tracker.Backend)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SYNC_INTERVAL_SECONDS", "15")
	t.Setenv("REMOTE_BASE_URL", "https://crm.example.com")
	t.Setenv("TRACKER_BACKEND", "file")
	t.Setenv("SERVER_ENABLED", "false")

	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.Sync.Interval())
	assert.Equal(t, "https://crm.example.com", cfg.Remote.BaseURL)
	assert.Equal(t, windowstore.BackendFile, cfg.Tracker.Backend)
	assert.False(t, cfg.Server.Enabled)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	// Registered so the value written by the .env file is restored afterwards.
	t.Setenv("REMOTE_TOKEN", "")
	t.Setenv("DATABASE_DRIVER", "")

	dir := t.TempDir()
	env := "REMOTE_TOKEN=from-file\nDATABASE_DRIVER=sqlite\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600))

	cfg, err := config.LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Remote.Token)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}
