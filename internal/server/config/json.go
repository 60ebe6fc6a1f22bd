package config

import (
	"encoding/json"
	"os"

	"github.com/penter405/brainsync/internal/flagx"
	"github.com/penter405/brainsync/internal/timex"
)

// JsonConfig is the on-disk shape of the optional configuration file.
// Durations accept "10m" style strings or integer nanoseconds. Only
// non-empty values override what is already in Config.
type JsonConfig struct {
	EndpointAddrHTTP   string         `json:"endpoint_addr_http"`
	DatabaseDSN        string         `json:"database_dsn"`
	EncryptionKey      string         `json:"encryption_key"`
	SessionSecret      string         `json:"session_secret"`
	SessionMaxAge      timex.Duration `json:"session_max_age"`
	StateMaxAge        timex.Duration `json:"state_max_age"`
	FrontendURL        string         `json:"frontend_url"`
	Production         bool           `json:"production"`
	GoogleClientID     string         `json:"google_client_id"`
	GoogleClientSecret string         `json:"google_client_secret"`
	GoogleRedirectURI  string         `json:"google_redirect_uri"`
	ReconcileTimeout   timex.Duration `json:"reconcile_timeout"`
	AuditS3Bucket      string         `json:"audit_s3_bucket"`
	S3Region           string         `json:"s3_region"`
	S3BaseEndpoint     string         `json:"s3_base_endpoint"`
	S3AccessKey        string         `json:"s3_access_key"`
	S3SecretKey        string         `json:"s3_secret_key"`
}

// parseJson loads the file named by -c / -config, if any, into config.
// An unreadable file or invalid JSON panics; startup cannot continue with a
// half-read configuration.
func parseJson(config *Config) {
	path := flagx.JsonConfigFlags()
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	overlay(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	overlay(&config.DatabaseDSN, c.DatabaseDSN)
	overlay(&config.EncryptionKey, c.EncryptionKey)
	overlay(&config.SessionSecret, c.SessionSecret)
	overlay(&config.FrontendURL, c.FrontendURL)
	overlay(&config.GoogleClientID, c.GoogleClientID)
	overlay(&config.GoogleClientSecret, c.GoogleClientSecret)
	overlay(&config.GoogleRedirectURI, c.GoogleRedirectURI)
	overlay(&config.AuditS3Bucket, c.AuditS3Bucket)
	overlay(&config.S3Region, c.S3Region)
	overlay(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	overlay(&config.S3AccessKey, c.S3AccessKey)
	overlay(&config.S3SecretKey, c.S3SecretKey)

	if c.SessionMaxAge.Duration > 0 {
		config.SessionMaxAge = c.SessionMaxAge.Duration
	}
	if c.StateMaxAge.Duration > 0 {
		config.StateMaxAge = c.StateMaxAge.Duration
	}
	if c.ReconcileTimeout.Duration > 0 {
		config.ReconcileTimeout = c.ReconcileTimeout.Duration
	}
	if c.Production {
		config.Production = true
	}
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
