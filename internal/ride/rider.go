package ride

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/example/horse-share/internal/backend"
	"github.com/example/horse-share/internal/models"
	"github.com/example/horse-share/internal/observability"
	"github.com/example/horse-share/internal/pricing"
	"github.com/example/horse-share/internal/realtime"
	"github.com/example/horse-share/internal/session"
)

var (
	ErrNoLocation     = errors.New("no user location known")
	ErrRideInProgress = errors.New("a ride is already in progress")
)

// RiderBackend is the slice of the REST client the rider flow needs.
type RiderBackend interface {
	RequestRide(ctx context.Context, req backend.RideRequest) (string, error)
}

// DriverRef identifies the driver a rider wants to hail. The backend
// keys ride records by email when available, so email wins over the
// opaque identifiers.
type DriverRef struct {
	UID   string
	Email string
	ID    string
	Name  string
}

// TargetID resolves the identity the ride record will carry.
func (d DriverRef) TargetID() string {
	switch {
	case d.Email != "":
		return d.Email
	case d.UID != "":
		return d.UID
	default:
		return d.ID
	}
}

func (d DriverRef) displayName() string {
	if d.Name != "" {
		return d.Name
	}
	return "Carriage Driver"
}

// Rider runs the rider side of the ride lifecycle: submit a request,
// then follow the record's status changes until a terminal state.
type Rider struct {
	Session  *session.Session
	Backend  RiderBackend
	Realtime realtime.Store
	Notify   Notifier
	Rates    pricing.Rates
	Logger   *slog.Logger

	mu  sync.Mutex
	sub realtime.Subscription
}

// Request prices and submits a ride request, then attaches the status
// listener for the returned ride identifier. Local state changes only
// after the backend accepted the request.
func (r *Rider) Request(ctx context.Context, driver DriverRef, dest *models.Coord) error {
	pickup := r.Session.Location()
	if pickup == nil {
		return ErrNoLocation
	}
	if rideID, _ := r.Session.CurrentRide(); rideID != "" {
		return ErrRideInProgress
	}
	if dest == nil {
		dest = r.Session.Destination()
	}

	uid, email, _, _ := r.Session.Identity()
	price := pricing.Estimate(pickup, dest, r.Rates)
	req := backend.RideRequest{
		RiderUID:    uid,
		RiderEmail:  email,
		DriverUID:   driver.TargetID(),
		DriverName:  driver.displayName(),
		Pickup:      *pickup,
		Destination: dest,
		Price:       price,
	}

	rideID, err := r.Backend.RequestRide(ctx, req)
	if err != nil {
		return err
	}
	observability.RideRequests.Inc()

	r.Session.SetDestination(dest)
	r.Session.BeginRide(rideID)
	r.Logger.Info("ride requested", "ride_id", rideID, "driver", req.DriverUID, "price", price)
	return r.listen(ctx, rideID)
}

// Resume re-attaches the status listener after a process restart. It is
// idempotent with respect to the backend: no request is re-submitted.
func (r *Rider) Resume(ctx context.Context) error {
	if _, _, role, _ := r.Session.Identity(); role != models.RoleRider {
		return nil
	}
	rideID, _ := r.Session.CurrentRide()
	if rideID == "" {
		return nil
	}
	r.Logger.Info("resuming ride listener", "ride_id", rideID)
	return r.listen(ctx, rideID)
}

// Stop detaches any live listener, e.g. on shutdown or role switch.
func (r *Rider) Stop() {
	r.mu.Lock()
	sub := r.sub
	r.sub = nil
	r.mu.Unlock()
	if sub != nil {
		sub.Close()
	}
}

func (r *Rider) listen(ctx context.Context, rideID string) error {
	sub, err := r.Realtime.WatchRide(ctx, rideID)
	if err != nil {
		return err
	}
	r.mu.Lock()
	if r.sub != nil {
		// never let two listeners race on the session
		r.sub.Close()
	}
	r.sub = sub
	r.mu.Unlock()

	go r.follow(sub)
	return nil
}

// follow drives the rider state machine from pushed status changes and
// detaches on both terminal outcomes.
func (r *Rider) follow(sub realtime.Subscription) {
	// progress tracks the most-advanced status seen so far; a stray
	// out-of-order notification can never move the ride backwards
	progress := models.StatusPending
	for snap := range sub.Updates() {
		for _, rec := range snap {
			switch rec.Status {
			case models.StatusAccepted, models.StatusPickedUp:
				if !rec.Status.MoreAdvancedThan(progress) {
					continue
				}
				progress = rec.Status
				state := models.StateDriverEnRoute
				if rec.Status == models.StatusPickedUp {
					state = models.StateRideInProgress
				}
				r.Session.SetRideState(state)
				observability.RideTransitions.WithLabelValues(string(state)).Inc()
			case models.StatusCompleted:
				r.Notify.RideCompleted(rec.Price)
				r.Session.ResetRide()
				observability.RideTransitions.WithLabelValues(string(models.StateIdle)).Inc()
				sub.Close()
				return
			case models.StatusDeclined:
				if progress.MoreAdvancedThan(models.StatusPending) {
					continue // declined is only reachable from pending
				}
				r.Session.DeclineRide()
				r.Notify.RideDeclined()
				observability.RideTransitions.WithLabelValues(string(models.StateIdle)).Inc()
				sub.Close()
				return
			}
		}
	}
}
