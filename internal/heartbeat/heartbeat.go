package heartbeat

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/horse-share/internal/backend"
	"github.com/example/horse-share/internal/models"
	"github.com/example/horse-share/internal/observability"
	"github.com/example/horse-share/internal/session"
)

// Backend is the slice of the REST client the heartbeat loop uses.
type Backend interface {
	Heartbeat(ctx context.Context, role models.Role, uid string) error
	SyncLocation(ctx context.Context, role models.Role, sync backend.LocationSync) error
}

// Runner pings the role-dependent heartbeat endpoint on a fixed interval
// while the session is authenticated, and announces an explicit logout
// when stopped.
type Runner struct {
	Session  *session.Session
	Backend  Backend
	Interval time.Duration
	Logger   *slog.Logger
}

func NewRunner(sess *session.Session, b Backend, logger *slog.Logger) *Runner {
	return &Runner{Session: sess, Backend: b, Interval: 30 * time.Second, Logger: logger}
}

// Run beats immediately and then every Interval. It returns when ctx is
// cancelled or the session is no longer authenticated.
func (r *Runner) Run(ctx context.Context) {
	if !r.beat(ctx) {
		return
	}
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !r.beat(ctx) {
				return
			}
		}
	}
}

// beat returns false once the session logged out, ending the loop.
func (r *Runner) beat(ctx context.Context) bool {
	uid, _, role, loggedIn := r.Session.Identity()
	if !loggedIn || uid == "" {
		return false
	}
	if err := r.Backend.Heartbeat(ctx, role, uid); err != nil {
		r.Logger.Warn("heartbeat failed", "uid", uid, "err", err)
		return true
	}
	observability.Heartbeats.Inc()
	return true
}

// Stop sends the explicit loggedIn=false PUT so the backend does not
// wait for the inactivity timeout. The caller clears the session
// afterwards.
func (r *Runner) Stop(ctx context.Context) {
	uid, _, role, loggedIn := r.Session.Identity()
	if !loggedIn || uid == "" {
		return
	}
	err := r.Backend.SyncLocation(ctx, role, backend.LocationSync{UID: uid, LoggedIn: false})
	if err != nil {
		// the server-side timeout reaps the session eventually
		r.Logger.Warn("logout announcement failed", "uid", uid, "err", err)
	}
}
