// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"net/mail"
	"net/url"
	"time"

	"github.com/dalemusser/bookhunter/internal/app/services/accounts"
	"github.com/dalemusser/bookhunter/internal/app/system/authutil"
	"github.com/dalemusser/bookhunter/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

const (
	backendMongo  = "mongo"
	backendMemory = "memory"
)

// appConfigKeys defines the configuration keys for BookHunter.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: BOOKHUNTER_MONGO_URI, BOOKHUNTER_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "store_backend", Default: backendMongo, Desc: "Account and book storage: 'mongo' or 'memory'"},
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "bookhunter", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "bookhunter-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime (e.g., 24h, 720h)"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "", Desc: "SMTP server host (blank logs mail instead of sending)"},
	{Name: "mail_smtp_port", Default: 587, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@bookhunter.local", Desc: "From email address"},
	{Name: "mail_from_name", Default: "BookHunter", Desc: "From display name"},
	{Name: "notify_queue_size", Default: 100, Desc: "Outbound notifications that may wait for delivery"},
	{Name: "contact_to", Default: "", Desc: "Address that receives contact form messages (blank uses mail_from)"},

	// Account lifecycle
	{Name: "site_name", Default: "BookHunter", Desc: "Site name used in email subjects"},
	{Name: "base_url", Default: "http://localhost:3000", Desc: "Base URL for verification and reset links"},
	{Name: "reset_token_ttl", Default: "1h", Desc: "Password reset link lifetime (e.g., 30m, 1h)"},
	{Name: "bcrypt_cost", Default: authutil.DefaultCost, Desc: "bcrypt work factor for stored passwords"},

	// Rate limiting
	{Name: "redis_addr", Default: "", Desc: "Redis address for shared rate limits (blank keeps them in process)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},
	{Name: "auth_rate_limit", Default: 10, Desc: "Sign-in, sign-up and forgot attempts allowed per window"},
	{Name: "auth_rate_window", Default: "1m", Desc: "Rate limit window"},
	{Name: "trusted_proxies", Default: "", Desc: "Comma-separated proxy IPs/CIDRs whose X-Forwarded-For is believed (blank trusts none)"},

	// Timeouts
	{Name: "timeout_short", Default: "5s", Desc: "Timeout for single-document store operations"},
	{Name: "timeout_medium", Default: "10s", Desc: "Timeout for multi-step store operations"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, BOOKHUNTER_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "BOOKHUNTER", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		StoreBackend:     appValues.String("store_backend"),
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 30*24*time.Hour),

		// Email/SMTP
		MailSMTPHost:    appValues.String("mail_smtp_host"),
		MailSMTPPort:    appValues.Int("mail_smtp_port"),
		MailSMTPUser:    appValues.String("mail_smtp_user"),
		MailSMTPPass:    appValues.String("mail_smtp_pass"),
		MailFrom:        appValues.String("mail_from"),
		MailFromName:    appValues.String("mail_from_name"),
		NotifyQueueSize: appValues.Int("notify_queue_size"),
		ContactTo:       appValues.String("contact_to"),

		SiteName:      appValues.String("site_name"),
		BaseURL:       appValues.String("base_url"),
		ResetTokenTTL: appValues.Duration("reset_token_ttl", accounts.DefaultResetTTL),
		BcryptCost:    appValues.Int("bcrypt_cost"),

		RedisAddr:     appValues.String("redis_addr"),
		RedisPassword: appValues.String("redis_password"),
		RedisDB:       appValues.Int("redis_db"),

		AuthRateLimit:  appValues.Int("auth_rate_limit"),
		AuthRateWindow: appValues.Duration("auth_rate_window", time.Minute),
		TrustedProxies: appValues.String("trusted_proxies"),

		TimeoutShort:  appValues.Duration("timeout_short", 5*time.Second),
		TimeoutMedium: appValues.Duration("timeout_medium", 10*time.Second),
	}
	if appCfg.ContactTo == "" {
		appCfg.ContactTo = appCfg.MailFrom
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// BookHunter checks the store backend, the MongoDB URI format, the base URL
// that emailed links are built from, the contact address and the trusted
// proxy list.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	switch appCfg.StoreBackend {
	case backendMongo:
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
	case backendMemory:
		if coreCfg != nil && coreCfg.Env == "prod" {
			return fmt.Errorf("store_backend %q is not allowed in prod", backendMemory)
		}
	default:
		return fmt.Errorf("unknown store_backend %q (want %q or %q)", appCfg.StoreBackend, backendMongo, backendMemory)
	}

	u, err := url.Parse(appCfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url must be an absolute http(s) URL, got %q", appCfg.BaseURL)
	}

	if appCfg.AuthRateLimit <= 0 || appCfg.AuthRateWindow <= 0 {
		return fmt.Errorf("auth_rate_limit and auth_rate_window must be positive")
	}

	if _, err := mail.ParseAddress(appCfg.ContactTo); err != nil {
		return fmt.Errorf("contact_to must be an email address, got %q", appCfg.ContactTo)
	}

	if _, err := ratelimit.ParseTrustedProxies(appCfg.TrustedProxies); err != nil {
		return fmt.Errorf("trusted_proxies: %w", err)
	}

	return nil
}
