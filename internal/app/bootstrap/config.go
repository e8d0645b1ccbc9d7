// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"

	"github.com/dalemusser/hackhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for HackHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, mail_smtp_host, etc.
//   - Environment variables: HACKHUB_MONGO_URI, HACKHUB_MAIL_SMTP_HOST, etc.
//   - Command-line flags: --mongo_uri, --mail_smtp_host, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "hackhub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "localhost", Desc: "SMTP server host"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@hackhub.dev", Desc: "From email address"},
	{Name: "mail_from_name", Default: "HackHub", Desc: "From display name"},

	// Base URL for email links (invitation accept links, team pages)
	{Name: "base_url", Default: "http://localhost:3000", Desc: "Base URL for email links"},
	{Name: "site_name", Default: "HackHub", Desc: "Site display name for outbound email"},

	// Admin bootstrap
	{Name: "admin_email", Default: "", Desc: "Email of the admin user (promotes/creates on startup)"},

	// Invitation expiry
	{Name: "invite_max_age_days", Default: 14, Desc: "Days before a pending invitation expires (0 disables the sweep)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// It is called early in startup so that both WAFFLE and the app have
// access to configuration before any backends or handlers are built.
// CoreConfig comes from the shared WAFFLE layer; AppConfig is specific
// to this app and can be extended as the app grows.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, HACKHUB_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "HACKHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),

		BaseURL:  appValues.String("base_url"),
		SiteName: appValues.String("site_name"),

		AdminEmail: appValues.String("admin_email"),

		InviteMaxAgeDays: appValues.Int("invite_max_age_days"),
	}

	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts overridden from environment", zap.Int("count", n))
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// HackHub validates the MongoDB URI format to catch configuration
// errors early, before attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database must not be empty")
	}
	return nil
}
