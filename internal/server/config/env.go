package config

import (
	"os"
	"strconv"
	"time"
)

// parseEnv overlays values from the environment. Names follow the hosted
// deployment so existing settings keep working.
func parseEnv(config *Config) {
	setString(&config.EndpointAddrHTTP, "ADDRESS")
	setString(&config.DatabaseDSN, "DATABASE_URL")
	setString(&config.EncryptionKey, "ENCRYPTION_KEY")
	setString(&config.SessionSecret, "SESSION_SECRET")
	setString(&config.FrontendURL, "FRONTEND_URL")
	setString(&config.GoogleClientID, "GOOGLE_CLIENT_ID")
	setString(&config.GoogleClientSecret, "Client_secret")
	setString(&config.GoogleClientSecret, "GOOGLE_CLIENT_SECRET")
	setString(&config.GoogleRedirectURI, "GOOGLE_REDIRECT_URI")
	setString(&config.AuditS3Bucket, "AUDIT_S3_BUCKET")
	setString(&config.S3Region, "S3_REGION")
	setString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	setString(&config.S3AccessKey, "S3_ACCESS_KEY")
	setString(&config.S3SecretKey, "S3_SECRET_KEY")
	setDuration(&config.SessionMaxAge, "SESSION_MAX_AGE")
	setDuration(&config.ReconcileTimeout, "RECONCILE_TIMEOUT")

	if os.Getenv("VERCEL") == "1" || os.Getenv("NODE_ENV") == "production" {
		config.Production = true
	}
	if v, ok := os.LookupEnv("DEBUG"); ok {
		config.Debug, _ = strconv.ParseBool(v)
	}
}

func setString(dst *string, name string) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, name string) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
	}
}
