// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/gamerie/internal/app/system/limits"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

const (
	devSessionKey = "dev-only-change-me-please-0123456789ABCDEF"
	devSigningKey = "dev-only-token-signing-key-change-me"
)

// appConfigKeys defines the configuration keys for Gamerie.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: GAMERIE_MONGO_URI, GAMERIE_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "doc_store", Default: "mongo", Desc: "Document store: 'mongo' or 'memory'"},
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "gamerie", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: devSessionKey, Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "gamerie-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime"},

	// Identity provider
	{Name: "auth_signing_key", Default: devSigningKey, Desc: "HMAC key for ID tokens (must be strong in production)"},
	{Name: "auth_token_ttl", Default: "1h", Desc: "ID token lifetime"},
	{Name: "auth_issuer", Default: "gamerie", Desc: "ID token issuer"},
	{Name: "auth_rate_limit", Default: true, Desc: "Throttle sign-in, sign-up and password reset attempts"},

	// Blob storage
	{Name: "blob_backend", Default: "memory", Desc: "Blob storage backend: 'gcs', 's3' or 'memory'"},
	{Name: "blob_public_url", Default: "", Desc: "Base URL for stored objects (blank uses the provider URL)"},
	{Name: "gcs_bucket", Default: "", Desc: "Google Cloud Storage bucket"},
	{Name: "gcs_credentials_file", Default: "", Desc: "Service account JSON (blank uses application default credentials)"},
	{Name: "s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "s3_endpoint", Default: "", Desc: "Custom S3 endpoint (MinIO, R2)"},
	{Name: "max_image_bytes", Default: limits.MaxImageBytes, Desc: "Largest accepted profile or background image"},

	// Events
	{Name: "nats_url", Default: "", Desc: "NATS server URL for domain events (blank disables publishing)"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "", Desc: "SMTP server host (blank logs mail instead of sending)"},
	{Name: "mail_smtp_port", Default: 587, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@gamerie.gg", Desc: "From email address"},
	{Name: "mail_from_name", Default: "Gamerie", Desc: "From display name"},

	// Base URL for email links
	{Name: "base_url", Default: "http://localhost:3000", Desc: "Base URL for email links"},
	{Name: "email_verify_expiry", Default: "24h", Desc: "Verification and reset link expiry (e.g., 30m, 24h)"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_profile", Default: "all", Desc: "Profile and relationship event logging: 'all', 'db', 'log', or 'off'"},

	// Relationships
	{Name: "follow_reciprocal", Default: false, Desc: "Also maintain the follower's own following list"},
	{Name: "snapshot_refresh", Default: true, Desc: "Reload the user document before every relationship edit"},
	{Name: "snapshot_max_age", Default: "15m", Desc: "Drop cached relationship snapshots older than this"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, GAMERIE_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "GAMERIE", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		DocStore:         appValues.String("doc_store"),
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 30*24*time.Hour),

		AuthSigningKey: appValues.String("auth_signing_key"),
		AuthTokenTTL:   appValues.Duration("auth_token_ttl", time.Hour),
		AuthIssuer:     appValues.String("auth_issuer"),
		AuthRateLimit:  appValues.Bool("auth_rate_limit"),

		BlobBackend:        appValues.String("blob_backend"),
		BlobPublicURL:      appValues.String("blob_public_url"),
		GCSBucket:          appValues.String("gcs_bucket"),
		GCSCredentialsFile: appValues.String("gcs_credentials_file"),
		S3Bucket:           appValues.String("s3_bucket"),
		S3Region:           appValues.String("s3_region"),
		S3Endpoint:         appValues.String("s3_endpoint"),
		MaxImageBytes:      int64(appValues.Int("max_image_bytes")),

		NATSURL: appValues.String("nats_url"),

		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),

		BaseURL:           appValues.String("base_url"),
		EmailVerifyExpiry: appValues.Duration("email_verify_expiry", 24*time.Hour),

		AuditLogAuth:    appValues.String("audit_log_auth"),
		AuditLogProfile: appValues.String("audit_log_profile"),

		FollowReciprocal: appValues.Bool("follow_reciprocal"),
		SnapshotRefresh:  appValues.Bool("snapshot_refresh"),
		SnapshotMaxAge:   appValues.Duration("snapshot_max_age", 15*time.Minute),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// Backend selections are checked here so a missing bucket or a bad MongoDB
// URI fails before anything is dialed.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	switch appCfg.DocStore {
	case "mongo":
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
	case "memory":
		logger.Warn("documents are kept in memory and lost on restart")
	default:
		return fmt.Errorf("doc_store must be 'mongo' or 'memory', got %q", appCfg.DocStore)
	}

	switch appCfg.BlobBackend {
	case "gcs":
		if appCfg.GCSBucket == "" {
			return fmt.Errorf("blob_backend 'gcs' requires gcs_bucket")
		}
	case "s3":
		if appCfg.S3Bucket == "" || appCfg.S3Region == "" {
			return fmt.Errorf("blob_backend 's3' requires s3_bucket and s3_region")
		}
	case "memory":
	default:
		return fmt.Errorf("blob_backend must be 'gcs', 's3' or 'memory', got %q", appCfg.BlobBackend)
	}

	if appCfg.AuthSigningKey == "" {
		return fmt.Errorf("auth_signing_key is required")
	}
	if appCfg.SnapshotMaxAge <= 0 {
		return fmt.Errorf("snapshot_max_age must be positive")
	}
	if appCfg.MaxImageBytes <= 0 {
		return fmt.Errorf("max_image_bytes must be positive")
	}

	if coreCfg.Env == "prod" {
		if appCfg.SessionKey == devSessionKey || appCfg.AuthSigningKey == devSigningKey {
			return fmt.Errorf("development keys must not be used in prod")
		}
		if appCfg.DocStore == "memory" || appCfg.BlobBackend == "memory" {
			return fmt.Errorf("memory backends are not allowed in prod")
		}
	}

	return nil
}
