// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration (ports, TLS, log level, CORS
// and body limits live there).
type AppConfig struct {
	// Document store: "mongo" or "memory"
	DocStore string

	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: gamerie-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime; the ID token inside expires on its own schedule

	// Identity provider
	AuthSigningKey string        // HMAC key for ID tokens
	AuthTokenTTL   time.Duration // ID token lifetime
	AuthIssuer     string
	AuthRateLimit  bool // Throttle sign-in, sign-up and reset per IP and per email

	// Blob storage: "gcs", "s3" or "memory"
	BlobBackend        string
	BlobPublicURL      string // Base for object URLs (blank uses the provider default)
	GCSBucket          string
	GCSCredentialsFile string // Blank uses application default credentials
	S3Bucket           string
	S3Region           string
	S3Endpoint         string // Non-AWS endpoints (MinIO, R2)
	MaxImageBytes      int64

	// Event broker (blank disables publishing)
	NATSURL string

	// Email/SMTP configuration (blank host logs mail instead of sending it)
	MailSMTPHost string
	MailSMTPPort int
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string
	MailFromName string

	// Base URL for email links (verification, password reset)
	BaseURL           string
	EmailVerifyExpiry time.Duration

	// Audit logging: "all", "db", "log" or "off"
	AuditLogAuth    string
	AuditLogProfile string

	// Relationship bookkeeping
	FollowReciprocal bool          // Also maintain the actor's following list
	SnapshotRefresh  bool          // Reload the user before every relationship edit
	SnapshotMaxAge   time.Duration // Cached snapshots older than this are dropped
}
