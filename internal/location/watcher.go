package location

import (
	"context"
	"log/slog"
	"sync"

	"github.com/example/horse-share/internal/backend"
	"github.com/example/horse-share/internal/models"
	"github.com/example/horse-share/internal/observability"
	"github.com/example/horse-share/internal/session"
)

// Source supplies raw position samples. The control API is the usual
// implementation: the geolocation UI pushes readings into the agent.
type Source interface {
	Positions() <-chan models.Sample
}

// Syncer is the slice of the backend client the watcher needs.
type Syncer interface {
	SyncLocation(ctx context.Context, role models.Role, sync backend.LocationSync) error
}

// Publisher mirrors synced samples into the telemetry pipeline.
// Optional.
type Publisher interface {
	PublishSample(uid string, role models.Role, s models.Sample) error
}

// Watcher drains a Source, updates the session position on every sample,
// and forwards the significant ones to the role-dependent sync endpoint.
type Watcher struct {
	Session   *session.Session
	Throttle  *Throttle
	Sync      Syncer
	Telemetry Publisher // may be nil
	Logger    *slog.Logger
}

// Run consumes samples until ctx is cancelled or the source closes, then
// clears the throttle state.
func (w *Watcher) Run(ctx context.Context, src Source) {
	defer w.Throttle.Reset()
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-src.Positions():
			if !ok {
				return
			}
			w.handle(ctx, s)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, s models.Sample) {
	w.Session.SetLocation(s.Coord)

	if !w.Throttle.ShouldSync(s) {
		observability.LocationSamplesSuppressed.Inc()
		return
	}
	uid, email, role, loggedIn := w.Session.Identity()
	if !loggedIn || uid == "" {
		return
	}
	coord := s.Coord
	err := w.Sync.SyncLocation(ctx, role, backend.LocationSync{
		UID:          uid,
		Email:        email,
		Location:     &coord,
		LoggedIn:     true,
		LastActiveAt: s.At.UnixMilli(),
	})
	if err != nil {
		observability.LocationSyncErrors.Inc()
		w.Logger.Warn("location sync failed", "uid", uid, "err", err)
		return
	}
	w.Throttle.MarkSynced(s)
	observability.LocationSyncs.Inc()

	if w.Telemetry != nil {
		if err := w.Telemetry.PublishSample(uid, role, s); err != nil {
			w.Logger.Warn("telemetry publish failed", "uid", uid, "err", err)
		}
	}
}

// ChannelSource is a Source fed by Push calls.
type ChannelSource struct {
	ch     chan models.Sample
	mu     sync.Mutex
	closed bool
}

func NewChannelSource() *ChannelSource {
	return &ChannelSource{ch: make(chan models.Sample, 32)}
}

func (c *ChannelSource) Positions() <-chan models.Sample { return c.ch }

// Push enqueues a sample; full buffers drop the reading, the next one
// supersedes it anyway.
func (c *ChannelSource) Push(s models.Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.ch <- s:
	default:
	}
}

// Stop closes the stream; Run returns once drained.
func (c *ChannelSource) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}
