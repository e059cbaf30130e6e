// Package realtime delivers push notifications for ride records. The
// rider watches a single record by ride id; the driver watches the set
// of records addressed to their email. Each notification carries a full
// snapshot of the matching records, and per-subscription delivery
// preserves server order.
package realtime

import (
	"context"

	"github.com/example/horse-share/internal/models"
)

// Store is the subscribe capability of the realtime backend.
type Store interface {
	// WatchRide subscribes to one ride record.
	WatchRide(ctx context.Context, rideID string) (Subscription, error)
	// WatchDriver subscribes to all ride records whose driver_uid equals
	// the given email.
	WatchDriver(ctx context.Context, email string) (Subscription, error)
}

// Subscription is a live feed of record snapshots. Close detaches the
// feed; it is idempotent and must be called exactly once per terminal
// transition so no subscription outlives its ride.
type Subscription interface {
	Updates() <-chan []models.Ride
	Close()
}
