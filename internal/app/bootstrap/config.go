// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/larder/internal/app/system/clientip"
	"github.com/dalemusser/larder/internal/app/system/tasks"
	"github.com/dalemusser/larder/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for Larder.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: LARDER_MONGO_URI, LARDER_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "larder", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 5, Desc: "MongoDB min connection pool size"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "larder-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime"},

	{Name: "base_url", Default: "http://localhost:3000", Desc: "Public base URL for links and OAuth callbacks"},
	{Name: "trusted_proxies", Default: "", Desc: "Comma-separated proxy IPs/CIDRs whose X-Forwarded-For is trusted"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "localhost", Desc: "SMTP server host"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@larder.local", Desc: "From email address"},
	{Name: "mail_from_name", Default: "Larder", Desc: "From display name"},
	{Name: "password_reset_expiry", Default: "1h", Desc: "Password reset link lifetime"},

	// Google OAuth configuration
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},

	// Web Push
	{Name: "vapid_public_key", Default: "", Desc: "VAPID public key (base64url)"},
	{Name: "vapid_private_key", Default: "", Desc: "VAPID private key (base64url)"},
	{Name: "vapid_subscriber", Default: "mailto:admin@larder.local", Desc: "VAPID subscriber contact"},

	// Expiry notifications
	{Name: "notify_timezone", Default: "UTC", Desc: "Time zone for notification times and expiry day counts"},
	{Name: "notify_schedule", Default: "* * * * *", Desc: "Cron schedule for the expiry notifier"},

	{Name: "redis_url", Default: "", Desc: "Redis URL for cross-instance change events (blank: in-process)"},

	// Audit logging: all (MongoDB + log), db, log, off
	{Name: "audit_log_auth", Default: "all", Desc: "Audit destination for sign-up, login and password events"},
	{Name: "audit_log_admin", Default: "all", Desc: "Audit destination for group and membership changes"},
}

var auditModes = map[string]bool{"all": true, "db": true, "log": true, "off": true}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges with precedence
// flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "LARDER", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 30*24*time.Hour),

		BaseURL:        strings.TrimRight(appValues.String("base_url"), "/"),
		TrustedProxies: appValues.String("trusted_proxies"),

		MailSMTPHost:        appValues.String("mail_smtp_host"),
		MailSMTPPort:        appValues.Int("mail_smtp_port"),
		MailSMTPUser:        appValues.String("mail_smtp_user"),
		MailSMTPPass:        appValues.String("mail_smtp_pass"),
		MailFrom:            appValues.String("mail_from"),
		MailFromName:        appValues.String("mail_from_name"),
		PasswordResetExpiry: appValues.Duration("password_reset_expiry", time.Hour),

		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),

		VAPIDPublicKey:  appValues.String("vapid_public_key"),
		VAPIDPrivateKey: appValues.String("vapid_private_key"),
		VAPIDSubscriber: appValues.String("vapid_subscriber"),

		NotifyTimezone: appValues.String("notify_timezone"),
		NotifySchedule: appValues.String("notify_schedule"),

		RedisURL: appValues.String("redis_url"),

		AuditLogAuth:  strings.ToLower(appValues.String("audit_log_auth")),
		AuditLogAdmin: strings.ToLower(appValues.String("audit_log_admin")),
	}

	if n := timeouts.ConfigureFromEnv(); n > 0 {
		cur := timeouts.Current()
		logger.Info("timeouts overridden from environment",
			zap.Int("count", n),
			zap.Duration("ping", cur.Ping),
			zap.Duration("short", cur.Short),
			zap.Duration("medium", cur.Medium),
			zap.Duration("long", cur.Long),
			zap.Duration("batch", cur.Batch))
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation. Problems are
// reported together so one restart fixes them all.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	var errs []error

	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		errs = append(errs, fmt.Errorf("invalid MongoDB URI: %w", err))
	}
	if _, err := time.LoadLocation(appCfg.NotifyTimezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid notify_timezone %q: %w", appCfg.NotifyTimezone, err))
	}
	if err := tasks.ValidateSchedule(appCfg.NotifySchedule); err != nil {
		errs = append(errs, fmt.Errorf("invalid notify_schedule: %w", err))
	}
	if (appCfg.VAPIDPublicKey == "") != (appCfg.VAPIDPrivateKey == "") {
		errs = append(errs, errors.New("vapid_public_key and vapid_private_key must be set together"))
	}
	if u, err := url.Parse(appCfg.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("base_url must be an absolute URL, got %q", appCfg.BaseURL))
	}
	if _, err := clientip.ParseTrusted(appCfg.TrustedProxies); err != nil {
		errs = append(errs, fmt.Errorf("invalid trusted_proxies: %w", err))
	}
	if appCfg.GoogleClientID != "" && appCfg.GoogleClientSecret == "" {
		errs = append(errs, errors.New("google_client_secret is required when google_client_id is set"))
	}
	if coreCfg != nil && coreCfg.Env == "prod" && strings.HasPrefix(appCfg.SessionKey, "dev-only") {
		errs = append(errs, errors.New("session_key must be changed in production"))
	}
	if !auditModes[appCfg.AuditLogAuth] {
		errs = append(errs, fmt.Errorf("audit_log_auth must be all, db, log or off, got %q", appCfg.AuditLogAuth))
	}
	if !auditModes[appCfg.AuditLogAdmin] {
		errs = append(errs, fmt.Errorf("audit_log_admin must be all, db, log or off, got %q", appCfg.AuditLogAdmin))
	}
	if appCfg.VAPIDPublicKey == "" {
		logger.Info("web push disabled: no VAPID keys configured")
	}

	return errors.Join(errs...)
}
