// internal/app/bootstrap/appconfig.go
package bootstrap

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like HTTP/HTTPS
// ports, TLS, logging level, CORS, and request limits. AppConfig is
// where everything specific to HackHub lives.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connection pool size
	MongoMinPoolSize uint64 // Min connection pool size

	// Email/SMTP configuration
	MailSMTPHost string // SMTP server host (e.g., localhost for Mailpit)
	MailSMTPPort int    // SMTP server port (e.g., 1025 for Mailpit, 587 for SES)
	MailSMTPUser string // SMTP username (empty for Mailpit)
	MailSMTPPass string // SMTP password
	MailFrom     string // From email address (e.g., noreply@hackhub.dev)
	MailFromName string // From display name (e.g., HackHub)

	// Base URL for email links (invitation accept links, team pages)
	BaseURL string // e.g., "https://hackhub.dev" or "http://localhost:3000"

	// Display name used in outbound email subjects and bodies
	SiteName string

	// Admin bootstrap: promotes/creates this account on startup
	AdminEmail string

	// How many days a coordinator/judge invitation link stays redeemable.
	// Zero disables the background expiry sweep.
	InviteMaxAgeDays int
}
