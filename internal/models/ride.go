package models

import "time"

// Role is the mutually exclusive part a session plays.
type Role string

const (
	RoleRider  Role = "Rider"
	RoleDriver Role = "Carriage Driver"
)

// RideStatus is the backend-owned lifecycle status of a ride record.
type RideStatus string

const (
	StatusPending   RideStatus = "pending"
	StatusAccepted  RideStatus = "accepted"
	StatusPickedUp  RideStatus = "picked_up"
	StatusCompleted RideStatus = "completed"
	StatusDeclined  RideStatus = "declined"
)

// Valid reports whether s is one of the allowed status constants.
func (s RideStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusPickedUp, StatusCompleted, StatusDeclined:
		return true
	default:
		return false
	}
}

// Terminal reports whether the rider should stop listening to the record.
func (s RideStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusDeclined
}

// CanTransitionTo enforces the monotonic chain
// pending -> accepted -> picked_up -> completed, with declined reachable
// only from pending.
func (s RideStatus) CanTransitionTo(next RideStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusAccepted || next == StatusDeclined
	case StatusAccepted:
		return next == StatusPickedUp
	case StatusPickedUp:
		return next == StatusCompleted
	default:
		return false
	}
}

// rank orders statuses along the lifecycle chain; used by the driver
// protocol to pick the most-advanced active record.
func (s RideStatus) rank() int {
	switch s {
	case StatusPending:
		return 1
	case StatusAccepted:
		return 2
	case StatusPickedUp:
		return 3
	default:
		return 0
	}
}

// MoreAdvancedThan reports whether s outranks other among the active
// (non-terminal) statuses.
func (s RideStatus) MoreAdvancedThan(other RideStatus) bool {
	return s.rank() > other.rank()
}

// RideState is the client-local view of where a session is in a ride.
type RideState string

const (
	StateIdle           RideState = "idle"
	StateWaiting        RideState = "waiting_for_acceptance"
	StateDriverEnRoute  RideState = "driver_en_route"
	StateRideInProgress RideState = "ride_in_progress"
	StateRequestSeen    RideState = "request_received"
)

// DriverStateFor maps an active record status to the driver-local state.
func DriverStateFor(s RideStatus) RideState {
	switch s {
	case StatusPickedUp:
		return StateRideInProgress
	case StatusAccepted:
		return StateDriverEnRoute
	default:
		return StateRequestSeen
	}
}

// Ride is the client's projection of a backend ride record.
type Ride struct {
	ID          string     `json:"rideId"`
	RiderUID    string     `json:"rider_uid"`
	RiderEmail  string     `json:"rider_email"`
	DriverUID   string     `json:"driver_uid"`
	DriverName  string     `json:"driver_name"`
	Pickup      Coord      `json:"pickup_location"`
	Destination *Coord     `json:"destination,omitempty"`
	Status      RideStatus `json:"status"`
	Price       int        `json:"price"`
}

// Marker is a map entity returned by the nearby-horses/drivers endpoints.
type Marker struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location Coord  `json:"location"`
}

// Sample is a single raw geolocation reading entering the pipeline.
type Sample struct {
	Coord Coord
	At    time.Time
}
