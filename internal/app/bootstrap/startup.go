// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"time"

	userstore "github.com/dalemusser/hackhub/internal/app/store/users"
	"github.com/dalemusser/hackhub/internal/app/system/authz"
	"github.com/dalemusser/hackhub/internal/app/system/workers"
	"github.com/dalemusser/hackhub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// inviteExpiry is started in Startup and stopped in Shutdown.
var inviteExpiry *workers.InviteExpiry

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if appCfg.AdminEmail != "" {
		if err := ensureAdmin(ctx, deps, appCfg.AdminEmail, logger); err != nil {
			return err
		}
	}

	if appCfg.InviteMaxAgeDays > 0 {
		maxAge := time.Duration(appCfg.InviteMaxAgeDays) * 24 * time.Hour
		inviteExpiry = workers.NewInviteExpiry(userstore.New(deps.MongoDB), logger, time.Hour, maxAge)
		inviteExpiry.Start()
	}
	return nil
}

// ensureAdmin guarantees an admin account exists for the configured email.
// An existing user is promoted in place; otherwise a new admin user is
// created. Safe to run on every boot.
func ensureAdmin(ctx context.Context, deps DBDeps, email string, logger *zap.Logger) error {
	users := userstore.New(deps.MongoDB)

	u, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if u.HasRole(authz.RoleAdmin) {
			return nil
		}
		if err := users.AddRole(ctx, u.ID, authz.RoleAdmin); err != nil {
			return err
		}
		logger.Info("promoted existing user to admin", zap.String("email", u.Email))
		return nil
	case errors.Is(err, userstore.ErrNotFound):
		created, err := users.Create(ctx, models.User{
			FullName: "Administrator",
			Email:    email,
			Roles:    []string{authz.RoleAdmin},
		})
		if err != nil {
			return err
		}
		logger.Info("created admin user", zap.String("email", created.Email))
		return nil
	default:
		return err
	}
}
