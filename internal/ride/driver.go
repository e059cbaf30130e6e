package ride

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/example/horse-share/internal/models"
	"github.com/example/horse-share/internal/observability"
	"github.com/example/horse-share/internal/realtime"
	"github.com/example/horse-share/internal/session"
)

var ErrNotDriver = errors.New("session role is not carriage driver")

// DriverBackend is the slice of the REST client the driver flow needs.
type DriverBackend interface {
	UpdateRideStatus(ctx context.Context, rideID string, status models.RideStatus) error
}

// Driver runs the driver side: watch the realtime query for requests
// addressed to this driver and dispatch accept/pickup/complete actions.
type Driver struct {
	Session  *session.Session
	Backend  DriverBackend
	Realtime realtime.Store
	Notify   Notifier
	Logger   *slog.Logger

	mu  sync.Mutex
	sub realtime.Subscription
}

// Listen subscribes to ride records addressed to the driver's email and
// keeps the local active-ride view current. The subscription lives for
// the session; only rider-side listeners detach on terminal states.
func (d *Driver) Listen(ctx context.Context) error {
	_, email, role, _ := d.Session.Identity()
	if role != models.RoleDriver {
		return ErrNotDriver
	}
	sub, err := d.Realtime.WatchDriver(ctx, email)
	if err != nil {
		return err
	}
	d.mu.Lock()
	if d.sub != nil {
		d.sub.Close()
	}
	d.sub = sub
	d.mu.Unlock()

	go func() {
		for snap := range sub.Updates() {
			d.apply(snap)
		}
	}()
	return nil
}

// Stop detaches the incoming-request subscription, e.g. on shutdown or
// role switch.
func (d *Driver) Stop() {
	d.mu.Lock()
	sub := d.sub
	d.sub = nil
	d.mu.Unlock()
	if sub != nil {
		sub.Close()
	}
}

// apply picks the single active record from a snapshot. With several
// candidates the most-advanced status wins, which resolves races where
// older pending requests linger next to the ride actually underway.
// A snapshot with no active record changes nothing: transient empty
// snapshots must not wipe an in-progress ride.
func (d *Driver) apply(snap []models.Ride) {
	var active *models.Ride
	for i := range snap {
		rec := snap[i]
		if rec.Status.Terminal() || !rec.Status.Valid() {
			continue
		}
		if active == nil || rec.Status.MoreAdvancedThan(active.Status) {
			active = &snap[i]
		}
	}
	if active == nil {
		return
	}
	state := models.DriverStateFor(active.Status)
	d.Session.SetActiveRide(*active, state)
	observability.RideTransitions.WithLabelValues(string(state)).Inc()
}

// Accept tells the backend the request is taken and optimistically moves
// to driver_en_route.
func (d *Driver) Accept(ctx context.Context) error {
	return d.dispatch(ctx, models.StatusAccepted, models.StateDriverEnRoute)
}

// ConfirmPickup marks the rider on board.
func (d *Driver) ConfirmPickup(ctx context.Context) error {
	return d.dispatch(ctx, models.StatusPickedUp, models.StateRideInProgress)
}

// Complete finishes the ride, announces payment collection and clears
// all ride-scoped session state.
func (d *Driver) Complete(ctx context.Context) error {
	rideID, cur := d.Session.CurrentRide()
	if rideID == "" {
		return nil
	}
	if err := guardAction(rideID, cur, models.StatusCompleted); err != nil {
		return err
	}
	d.update(ctx, rideID, models.StatusCompleted)
	d.Notify.PaymentCollected()
	d.Session.ResetRide()
	observability.RideTransitions.WithLabelValues(string(models.StateIdle)).Inc()
	return nil
}

// dispatch is the shared accept/pickup path: status update first, then
// the optimistic local transition.
func (d *Driver) dispatch(ctx context.Context, status models.RideStatus, state models.RideState) error {
	rideID, cur := d.Session.CurrentRide()
	if rideID == "" {
		return nil
	}
	if err := guardAction(rideID, cur, status); err != nil {
		return err
	}
	d.update(ctx, rideID, status)
	d.Session.SetRideState(state)
	observability.RideTransitions.WithLabelValues(string(state)).Inc()
	return nil
}

// guardAction rejects actions the lifecycle chain forbids from the
// current local state, before any network call: a pickup without an
// acceptance, a repeated accept, a completion mid-approach.
func guardAction(rideID string, cur models.RideState, next models.RideStatus) error {
	from, ok := statusForState(cur)
	if !ok {
		return nil
	}
	if !from.CanTransitionTo(next) {
		return fmt.Errorf("ride %s is %s, cannot move to %s", rideID, from, next)
	}
	return nil
}

// statusForState inverts models.DriverStateFor for the guard.
func statusForState(state models.RideState) (models.RideStatus, bool) {
	switch state {
	case models.StateRequestSeen:
		return models.StatusPending, true
	case models.StateDriverEnRoute:
		return models.StatusAccepted, true
	case models.StateRideInProgress:
		return models.StatusPickedUp, true
	default:
		return "", false
	}
}

// update is fire-and-forget: a failed PUT is logged and local state is
// not rolled back; the next realtime snapshot reconciles.
func (d *Driver) update(ctx context.Context, rideID string, status models.RideStatus) {
	if err := d.Backend.UpdateRideStatus(ctx, rideID, status); err != nil {
		d.Logger.Error("status update failed", "ride_id", rideID, "status", status, "err", err)
		return
	}
	observability.DriverActions.WithLabelValues(string(status)).Inc()
}
