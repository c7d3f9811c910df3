// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables (LARDER_*), configuration
// files, or command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig
// covers ports, TLS, logging and CORS; everything here is Larder's own.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // signs session cookies; must be strong in production
	SessionName   string        // cookie name (default: larder-session)
	SessionDomain string        // blank means current host
	SessionMaxAge time.Duration // cookie lifetime

	// Base URL for links in emails and push messages, and the OAuth callback
	BaseURL string // e.g. "https://larder.example.com"

	// Reverse proxies allowed to set X-Forwarded-For; blank trusts none
	TrustedProxies string

	// Email/SMTP configuration
	MailSMTPHost string // localhost for Mailpit in development
	MailSMTPPort int
	MailSMTPUser string // empty disables SMTP auth
	MailSMTPPass string
	MailFrom     string
	MailFromName string

	PasswordResetExpiry time.Duration

	// Google OAuth; sign-in with Google is disabled when the client id is blank
	GoogleClientID     string
	GoogleClientSecret string

	// Web Push (VAPID). Both keys or neither.
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubscriber string // mailto: or https: contact sent to push services

	// Expiry notifications
	NotifyTimezone string // IANA zone used for notification_time and day math
	NotifySchedule string // cron spec for the notifier sweep

	// Realtime; blank keeps change events in-process
	RedisURL string

	// Audit destinations per category: all, db, log or off
	AuditLogAuth  string
	AuditLogAdmin string
}
