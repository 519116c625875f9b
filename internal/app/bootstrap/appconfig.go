// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, log level, CORS); everything that is
// specific to BookHunter lives here and is passed to every lifecycle hook.
type AppConfig struct {
	// Store backend: "mongo" (default) or "memory" for local development.
	StoreBackend string

	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: bookhunter-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// Email/SMTP configuration. An empty host logs mail instead of sending it.
	MailSMTPHost string
	MailSMTPPort int
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string
	MailFromName string

	// Notification dispatcher
	NotifyQueueSize int

	// Contact form recipient. Falls back to MailFrom when unset.
	ContactTo string

	// Links and account lifecycle
	SiteName      string        // Shown in email subjects
	BaseURL       string        // e.g., "https://bookhunter.example" for verify/reset links
	ResetTokenTTL time.Duration // How long a reset link stays usable
	BcryptCost    int

	// Redis for shared rate limits. Blank keeps limits in process.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Sign-in / sign-up / forgot throttling
	AuthRateLimit  int
	AuthRateWindow time.Duration

	// Reverse proxies allowed to report the client address, e.g. "10.0.0.0/8".
	// Blank means rate limits key on the socket address.
	TrustedProxies string

	// Store operation timeouts
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
}
