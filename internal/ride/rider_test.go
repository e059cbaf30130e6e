package ride

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/example/horse-share/internal/backend"
	"github.com/example/horse-share/internal/models"
	"github.com/example/horse-share/internal/pricing"
	"github.com/example/horse-share/internal/realtime"
	"github.com/example/horse-share/internal/session"
)

type fakeRiderBackend struct {
	mu     sync.Mutex
	reqs   []backend.RideRequest
	rideID string
	err    error
}

func (f *fakeRiderBackend) RequestRide(ctx context.Context, req backend.RideRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return "", f.err
	}
	return f.rideID, nil
}

func (f *fakeRiderBackend) requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

type fakeNotifier struct {
	mu        sync.Mutex
	completed []int
	declined  int
	paid      int
}

func (f *fakeNotifier) RideCompleted(price int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, price)
}

func (f *fakeNotifier) RideDeclined() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.declined++
}

func (f *fakeNotifier) PaymentCollected() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paid++
}

func waitForState(t *testing.T, sess *session.Session, want models.RideState) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, state := sess.CurrentRide(); state == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	_, state := sess.CurrentRide()
	t.Fatalf("ride state = %s, want %s", state, want)
}

func newRider(sess *session.Session, fb *fakeRiderBackend, store realtime.Store, n Notifier) *Rider {
	return &Rider{
		Session:  sess,
		Backend:  fb,
		Realtime: store,
		Notify:   n,
		Rates:    pricing.DefaultRates,
		Logger:   slog.Default(),
	}
}

func TestRequestFailsWithoutLocation(t *testing.T) {
	sess := new(session.Session) // no location at all
	fb := &fakeRiderBackend{rideID: "r1"}
	r := newRider(sess, fb, realtime.NewMemoryStore(), &fakeNotifier{})

	err := r.Request(context.Background(), DriverRef{Email: "d@example.com"}, nil)
	if !errors.Is(err, ErrNoLocation) {
		t.Fatalf("err = %v, want ErrNoLocation", err)
	}
	if fb.requests() != 0 {
		t.Fatal("backend must not be contacted without a location")
	}
}

func TestRequestBackendErrorLeavesStateUnchanged(t *testing.T) {
	sess := session.New(models.Coord{Lat: 46.77, Lon: 23.59})
	sess.Login("u1", "rider@example.com", models.RoleRider)
	fb := &fakeRiderBackend{err: errors.New("503")}
	r := newRider(sess, fb, realtime.NewMemoryStore(), &fakeNotifier{})

	if err := r.Request(context.Background(), DriverRef{Email: "d@example.com"}, nil); err == nil {
		t.Fatal("expected error")
	}
	if id, state := sess.CurrentRide(); id != "" || state != models.StateIdle {
		t.Fatalf("state changed on failure: id=%q state=%s", id, state)
	}
}

func TestRequestLifecycleToCompletion(t *testing.T) {
	sess := session.New(models.Coord{Lat: 46.77, Lon: 23.59})
	sess.Login("u1", "rider@example.com", models.RoleRider)
	store := realtime.NewMemoryStore()
	fb := &fakeRiderBackend{rideID: "r1"}
	notify := &fakeNotifier{}
	r := newRider(sess, fb, store, notify)
	defer r.Stop()

	dest := &models.Coord{Lat: 46.77, Lon: 23.72} // ~10 km east
	if err := r.Request(context.Background(), DriverRef{Email: "d@example.com", Name: "Ionel"}, dest); err != nil {
		t.Fatalf("Request: %v", err)
	}
	if id, state := sess.CurrentRide(); id != "r1" || state != models.StateWaiting {
		t.Fatalf("after request: id=%q state=%s", id, state)
	}
	fb.mu.Lock()
	req := fb.reqs[0]
	fb.mu.Unlock()
	if req.DriverUID != "d@example.com" {
		t.Fatalf("driver target = %q, want email", req.DriverUID)
	}
	if req.Price <= pricing.DefaultRates.FlatPrice {
		t.Fatalf("price = %d, want distance-based above flat", req.Price)
	}

	store.PublishRide(models.Ride{ID: "r1", Status: models.StatusAccepted})
	waitForState(t, sess, models.StateDriverEnRoute)

	store.PublishRide(models.Ride{ID: "r1", Status: models.StatusPickedUp})
	waitForState(t, sess, models.StateRideInProgress)

	store.PublishRide(models.Ride{ID: "r1", Status: models.StatusCompleted, Price: req.Price})
	waitForState(t, sess, models.StateIdle)

	if id, _ := sess.CurrentRide(); id != "" {
		t.Fatalf("ride id not cleared: %q", id)
	}
	notify.mu.Lock()
	completed := append([]int(nil), notify.completed...)
	notify.mu.Unlock()
	if len(completed) != 1 || completed[0] != req.Price {
		t.Fatalf("fare notification = %v, want [%d]", completed, req.Price)
	}

	// the listener detached at completion: a stray late notification
	// must not resurrect the ride
	store.PublishRide(models.Ride{ID: "r1", Status: models.StatusPending})
	time.Sleep(50 * time.Millisecond)
	if id, state := sess.CurrentRide(); id != "" || state != models.StateIdle {
		t.Fatalf("late event changed state: id=%q state=%s", id, state)
	}
}

func TestDeclinedClearsRideAndDetaches(t *testing.T) {
	sess := session.New(models.Coord{Lat: 46.77, Lon: 23.59})
	sess.Login("u1", "rider@example.com", models.RoleRider)
	store := realtime.NewMemoryStore()
	notify := &fakeNotifier{}
	r := newRider(sess, &fakeRiderBackend{rideID: "r1"}, store, notify)
	defer r.Stop()

	if err := r.Request(context.Background(), DriverRef{UID: "d-uid"}, nil); err != nil {
		t.Fatalf("Request: %v", err)
	}
	store.PublishRide(models.Ride{ID: "r1", Status: models.StatusDeclined})
	waitForState(t, sess, models.StateIdle)
	if id, _ := sess.CurrentRide(); id != "" {
		t.Fatalf("ride id not cleared on decline: %q", id)
	}
	notify.mu.Lock()
	declined := notify.declined
	notify.mu.Unlock()
	if declined != 1 {
		t.Fatalf("decline notifications = %d, want 1", declined)
	}
}

func TestResumeReattachesWithoutRequesting(t *testing.T) {
	sess := session.New(models.Coord{Lat: 46.77, Lon: 23.59})
	sess.Login("u1", "rider@example.com", models.RoleRider)
	sess.BeginRide("r9") // restored from a persisted snapshot
	store := realtime.NewMemoryStore()
	fb := &fakeRiderBackend{}
	r := newRider(sess, fb, store, &fakeNotifier{})
	defer r.Stop()

	if err := r.Resume(context.Background()); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if fb.requests() != 0 {
		t.Fatal("resume must not re-submit the ride request")
	}

	store.PublishRide(models.Ride{ID: "r9", Status: models.StatusPickedUp})
	waitForState(t, sess, models.StateRideInProgress)
}

func TestResumeNoopWithoutRideOrRole(t *testing.T) {
	sess := session.New(models.Coord{})
	sess.Login("d1", "d@example.com", models.RoleDriver)
	sess.BeginRide("r1")
	r := newRider(sess, &fakeRiderBackend{}, realtime.NewMemoryStore(), &fakeNotifier{})
	if err := r.Resume(context.Background()); err != nil {
		t.Fatalf("driver-role resume: %v", err)
	}

	rider := session.New(models.Coord{})
	rider.Login("u1", "rider@example.com", models.RoleRider)
	r2 := newRider(rider, &fakeRiderBackend{}, realtime.NewMemoryStore(), &fakeNotifier{})
	if err := r2.Resume(context.Background()); err != nil {
		t.Fatalf("no-ride resume: %v", err)
	}
}

func TestRequestRejectsConcurrentRide(t *testing.T) {
	sess := session.New(models.Coord{Lat: 46.77, Lon: 23.59})
	sess.Login("u1", "rider@example.com", models.RoleRider)
	sess.BeginRide("r1")
	fb := &fakeRiderBackend{rideID: "r2"}
	r := newRider(sess, fb, realtime.NewMemoryStore(), &fakeNotifier{})

	if err := r.Request(context.Background(), DriverRef{Email: "d@example.com"}, nil); !errors.Is(err, ErrRideInProgress) {
		t.Fatalf("err = %v, want ErrRideInProgress", err)
	}
	if fb.requests() != 0 {
		t.Fatal("no request may be sent while a ride is active")
	}
}
