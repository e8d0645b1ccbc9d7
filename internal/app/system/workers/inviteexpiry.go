// internal/app/system/workers/inviteexpiry.go
package workers

import (
	"context"
	"sync"
	"time"

	userstore "github.com/dalemusser/hackhub/internal/app/store/users"
	"go.uber.org/zap"
)

// InviteExpiry is a background worker that expires pending coordinator and
// judge invitations whose links have gone unredeemed for too long.
type InviteExpiry struct {
	users    *userstore.Store
	log      *zap.Logger
	interval time.Duration
	maxAge   time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewInviteExpiry creates an invitation expiry worker.
//
// Parameters:
//   - users: the user store holding the invitation records
//   - logger: zap logger for logging
//   - interval: how often to sweep (e.g., 1 hour)
//   - maxAge: how long an invitation stays redeemable (e.g., 14 days)
func NewInviteExpiry(users *userstore.Store, logger *zap.Logger, interval, maxAge time.Duration) *InviteExpiry {
	return &InviteExpiry{
		users:    users,
		log:      logger,
		interval: interval,
		maxAge:   maxAge,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (w *InviteExpiry) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("invitation expiry worker started",
		zap.Duration("interval", w.interval),
		zap.Duration("max_age", w.maxAge))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *InviteExpiry) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("invitation expiry worker stopped")
}

func (w *InviteExpiry) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *InviteExpiry) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().UTC().Add(-w.maxAge)
	count, err := w.users.ExpireStaleInvitations(ctx, cutoff)
	if err != nil {
		w.log.Error("failed to expire stale invitations", zap.Error(err))
		return
	}

	if count > 0 {
		w.log.Info("expired stale invitations", zap.Int64("users", count))
	}
}
