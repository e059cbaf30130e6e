package session

import (
	"sync"

	"github.com/example/horse-share/internal/models"
)

// Session is the process-wide client state: who is logged in, where they
// are, and where they stand in a ride. It is an explicit object handed to
// every component rather than package state, and every ride transition
// updates the ride identifier and ride state under one lock acquisition
// so observers never see the pair torn.
type Session struct {
	mu sync.Mutex

	uid        string
	email      string
	role       models.Role
	loggedIn   bool
	preference string

	location    *models.Coord
	destination *models.Coord

	currentRideID   string
	rideState       models.RideState
	incomingRequest *models.Ride
}

// Snapshot is an immutable copy of the session, used by the control API
// and the persistence layer.
type Snapshot struct {
	UID             string           `json:"uid"`
	Email           string           `json:"email"`
	Role            models.Role      `json:"role"`
	LoggedIn        bool             `json:"loggedIn"`
	Preference      string           `json:"preference,omitempty"`
	Location        *models.Coord    `json:"location,omitempty"`
	Destination     *models.Coord    `json:"destination,omitempty"`
	CurrentRideID   string           `json:"currentRideId,omitempty"`
	RideState       models.RideState `json:"rideState"`
	IncomingRequest *models.Ride     `json:"incomingRequest,omitempty"`
}

// New returns an idle session positioned at the fallback coordinate.
func New(fallback models.Coord) *Session {
	loc := fallback
	return &Session{
		location:  &loc,
		rideState: models.StateIdle,
	}
}

// Login establishes identity and role for the session.
func (s *Session) Login(uid, email string, role models.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uid = uid
	s.email = email
	s.role = role
	s.loggedIn = true
}

// Logout clears identity and all ride-scoped state.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uid = ""
	s.email = ""
	s.loggedIn = false
	s.preference = ""
	s.destination = nil
	s.currentRideID = ""
	s.rideState = models.StateIdle
	s.incomingRequest = nil
}

// Identity returns uid, email, role and whether the session is
// authenticated.
func (s *Session) Identity() (uid, email string, role models.Role, loggedIn bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uid, s.email, s.role, s.loggedIn
}

// SetLocation records the latest known position.
func (s *Session) SetLocation(c models.Coord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loc := c
	s.location = &loc
}

// Location returns a copy of the current position, or nil if unknown.
func (s *Session) Location() *models.Coord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.location == nil {
		return nil
	}
	loc := *s.location
	return &loc
}

// SetDestination stores the map-selected destination; nil clears it.
func (s *Session) SetDestination(c *models.Coord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c == nil {
		s.destination = nil
		return
	}
	dest := *c
	s.destination = &dest
}

// Destination returns a copy of the selected destination, or nil.
func (s *Session) Destination() *models.Coord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destination == nil {
		return nil
	}
	dest := *s.destination
	return &dest
}

// SetPreference records the selected ride preference.
func (s *Session) SetPreference(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preference = p
}

// BeginRide stores the ride identifier returned by the backend and moves
// the rider to waiting_for_acceptance in one step.
func (s *Session) BeginRide(rideID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentRideID = rideID
	s.rideState = models.StateWaiting
}

// SetRideState advances the local ride state without touching the ride
// identifier.
func (s *Session) SetRideState(state models.RideState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rideState = state
}

// SetActiveRide is the driver-side transition: incoming request, ride
// identifier and state change together.
func (s *Session) SetActiveRide(r models.Ride, state models.RideState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ride := r
	s.incomingRequest = &ride
	s.currentRideID = r.ID
	s.rideState = state
}

// ResetRide returns the session to idle, clearing every ride-scoped
// field. Used on ride completion and logout-adjacent cleanup.
func (s *Session) ResetRide() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentRideID = ""
	s.rideState = models.StateIdle
	s.incomingRequest = nil
	s.destination = nil
}

// DeclineRide handles the declined terminal: ride id cleared, state idle,
// destination kept so the rider can re-request.
func (s *Session) DeclineRide() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentRideID = ""
	s.rideState = models.StateIdle
	s.incomingRequest = nil
}

// CurrentRide returns the ride identifier and local ride state as one
// consistent pair.
func (s *Session) CurrentRide() (rideID string, state models.RideState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentRideID, s.rideState
}

// Snapshot copies the whole session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		UID:           s.uid,
		Email:         s.email,
		Role:          s.role,
		LoggedIn:      s.loggedIn,
		Preference:    s.preference,
		CurrentRideID: s.currentRideID,
		RideState:     s.rideState,
	}
	if s.location != nil {
		loc := *s.location
		snap.Location = &loc
	}
	if s.destination != nil {
		dest := *s.destination
		snap.Destination = &dest
	}
	if s.incomingRequest != nil {
		ride := *s.incomingRequest
		snap.IncomingRequest = &ride
	}
	return snap
}

// Restore loads a persisted snapshot, typically at process start before
// the ride listener is re-attached.
func (s *Session) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uid = snap.UID
	s.email = snap.Email
	s.role = snap.Role
	s.loggedIn = snap.LoggedIn
	s.preference = snap.Preference
	s.currentRideID = snap.CurrentRideID
	s.rideState = snap.RideState
	if s.rideState == "" {
		s.rideState = models.StateIdle
	}
	s.location = snap.Location
	s.destination = snap.Destination
	s.incomingRequest = snap.IncomingRequest
}
