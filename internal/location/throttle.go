package location

import (
	"sync"
	"time"

	"github.com/example/horse-share/internal/geo"
	"github.com/example/horse-share/internal/models"
)

// Throttle gates outbound location syncs so high-frequency position
// callbacks do not flood the backend. A sample passes if it is the first
// since the last reset, if more than MinInterval elapsed since the last
// successful sync, or if the position moved more than MinDistance meters.
//
// State only advances in MarkSynced, after the PUT succeeded. A failed
// sync leaves the throttle pointing at the original last-pushed sample
// so the next reading retries on the same basis.
type Throttle struct {
	MinInterval time.Duration
	MinDistance float64 // meters

	mu     sync.Mutex
	primed bool
	last   models.Coord
	lastAt time.Time
}

// NewThrottle returns a throttle with the production thresholds.
func NewThrottle() *Throttle {
	return &Throttle{MinInterval: 30 * time.Second, MinDistance: 30}
}

// ShouldSync reports whether this sample is significant enough to push.
func (t *Throttle) ShouldSync(s models.Sample) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.primed {
		return true
	}
	if s.At.Sub(t.lastAt) > t.MinInterval {
		return true
	}
	last := t.last
	return geo.Distance(&last, &s.Coord) > t.MinDistance
}

// MarkSynced records a successfully pushed sample.
func (t *Throttle) MarkSynced(s models.Sample) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.primed = true
	t.last = s.Coord
	t.lastAt = s.At
}

// Reset clears the last-pushed state; the next sample syncs
// unconditionally. Called when location watching stops.
func (t *Throttle) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.primed = false
	t.last = models.Coord{}
	t.lastAt = time.Time{}
}
