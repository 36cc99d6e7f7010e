package remote

import "record-sync/core/reconcile"

// Config holds the connection settings of the remote CRM API.
type Config struct {
	// BaseURL is the instance URL, without the API path.
	BaseURL string `mapstructure:"base_url" default:"http://localhost:8081"`
	// APIPath is the versioned REST prefix.
	APIPath string `mapstructure:"api_path" default:"/services/data/v59.0"`
	// Token is sent as a bearer token.
	Token string `mapstructure:"token" default:""`
	// TimeoutSeconds bounds a single HTTP request.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// RetryCount is the number of retries for throttled or failed idempotent requests.
	RetryCount int `mapstructure:"retry_count" default:"3"`
	// RequestsPerSecond limits the request rate. Zero disables the limiter.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" default:"10"`
	// Burst is the number of requests allowed above the steady rate.
	Burst int `mapstructure:"burst" default:"5"`
	// ModstampField holds the last modification time of every record.
	ModstampField string `mapstructure:"modstamp_field" default:"SystemModstamp"`
	// SyncMarkerField is the datetime field the engine writes on every
	// synchronized record. The field must exist on every mapped remote type.
	SyncMarkerField string `mapstructure:"sync_marker_field" default:"SynchronizedAt__c"`
	// SyncMarkerLeadMillis is added to the marker so it stays ahead of the
	// modstamp produced by the write that sets it.
	SyncMarkerLeadMillis int `mapstructure:"sync_marker_lead_ms" default:"2000"`
}

// Validate checks the field names the record types depend on.
func (c Config) Validate() error {
	if c.ModstampField == "" {
		return reconcile.Configurationf("remote modstamp field is not configured")
	}
	if c.SyncMarkerField == "" {
		return reconcile.Configurationf("remote sync marker field is not configured")
	}
	return nil
}
