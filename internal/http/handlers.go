// Package httpapi is the local control surface of the agent. The
// presentation layer (map UI, geolocation acquisition, login forms) is
// an external collaborator: it feeds position samples and user actions
// in and reads session state out.
package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/horse-share/internal/backend"
	"github.com/example/horse-share/internal/location"
	"github.com/example/horse-share/internal/models"
	"github.com/example/horse-share/internal/ride"
	"github.com/example/horse-share/internal/session"
)

// Nearby is the slice of the REST client the proxy endpoints use.
type Nearby interface {
	NearbyHorses(ctx context.Context, lat, lon float64, rangeM int) ([]models.Marker, error)
	NearbyDrivers(ctx context.Context, lat, lon float64, rangeM int) ([]models.Marker, error)
}

// Logout announces the explicit logout to the backend before the
// session is cleared.
type Logout interface {
	Stop(ctx context.Context)
}

type Server struct {
	Session      *session.Session
	Rider        *ride.Rider
	Driver       *ride.Driver
	Nearby       Nearby
	Source       *location.ChannelSource
	Logout       Logout
	DefaultRange int

	logger *slog.Logger
	mux    *mux.Router
}

func NewServer(sess *session.Session, rider *ride.Rider, driver *ride.Driver, nearby Nearby, src *location.ChannelSource, logout Logout, defaultRange int, logger *slog.Logger) *Server {
	s := &Server{
		Session:      sess,
		Rider:        rider,
		Driver:       driver,
		Nearby:       nearby,
		Source:       src,
		Logout:       logout,
		DefaultRange: defaultRange,
		logger:       logger,
		mux:          mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/control/location", s.handleLocation).Methods("POST")
	s.mux.HandleFunc("/control/destination", s.handleDestination).Methods("POST")
	s.mux.HandleFunc("/control/preference", s.handlePreference).Methods("POST")
	s.mux.HandleFunc("/control/rides", s.handleRequestRide).Methods("POST")
	s.mux.HandleFunc("/control/rides/accept", s.driverAction(s.Driver.Accept)).Methods("POST")
	s.mux.HandleFunc("/control/rides/pickup", s.driverAction(s.Driver.ConfirmPickup)).Methods("POST")
	s.mux.HandleFunc("/control/rides/complete", s.driverAction(s.Driver.Complete)).Methods("POST")
	s.mux.HandleFunc("/control/state", s.handleState).Methods("GET")
	s.mux.HandleFunc("/control/nearby/horses", s.nearbyHandler(func(ctx context.Context, lat, lon float64, rng int) ([]models.Marker, error) {
		return s.Nearby.NearbyHorses(ctx, lat, lon, rng)
	})).Methods("GET")
	s.mux.HandleFunc("/control/nearby/carriages", s.nearbyHandler(func(ctx context.Context, lat, lon float64, rng int) ([]models.Marker, error) {
		return s.Nearby.NearbyDrivers(ctx, lat, lon, rng)
	})).Methods("GET")
	s.mux.HandleFunc("/control/logout", s.handleLogout).Methods("POST")
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.Source.Push(models.Sample{Coord: models.Coord{Lat: body.Lat, Lon: body.Lon}, At: time.Now()})
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleDestination(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Destination models.Destination `json:"destination"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.Session.SetDestination(body.Destination.Coord)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePreference(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Preference string `json:"preference"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.Session.SetPreference(body.Preference)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRequestRide(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Driver struct {
			UID   string `json:"uid"`
			Email string `json:"email"`
			ID    string `json:"id"`
			Name  string `json:"name"`
		} `json:"driver"`
		Destination models.Destination `json:"destination"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	driver := ride.DriverRef{UID: body.Driver.UID, Email: body.Driver.Email, ID: body.Driver.ID, Name: body.Driver.Name}
	if err := s.Rider.Request(r.Context(), driver, body.Destination.Coord); err != nil {
		status := http.StatusBadGateway
		switch err {
		case ride.ErrNoLocation, ride.ErrRideInProgress:
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}
	rideID, state := s.Session.CurrentRide()
	writeJSON(w, map[string]any{"rideId": rideID, "rideState": state})
}

func (s *Server) driverAction(action func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := action(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		rideID, state := s.Session.CurrentRide()
		writeJSON(w, map[string]any{"rideId": rideID, "rideState": state})
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Session.Snapshot())
}

func (s *Server) nearbyHandler(fetch func(ctx context.Context, lat, lon float64, rng int) ([]models.Marker, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lat, lon := s.originFor(r)
		rng := s.DefaultRange
		if v := r.URL.Query().Get("range"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				rng = n
			}
		}
		markers, err := fetch(r.Context(), lat, lon, rng)
		if err != nil {
			// read failures are retryable on the next poll cycle
			s.logger.Warn("nearby fetch failed", "err", err)
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		if markers == nil {
			markers = []models.Marker{}
		}
		writeJSON(w, markers)
	}
}

// originFor resolves the search origin: explicit query params win,
// otherwise the session's current position.
func (s *Server) originFor(r *http.Request) (lat, lon float64) {
	q := r.URL.Query()
	if latS, lonS := q.Get("lat"), q.Get("lon"); latS != "" && lonS != "" {
		la, err1 := strconv.ParseFloat(latS, 64)
		lo, err2 := strconv.ParseFloat(lonS, 64)
		if err1 == nil && err2 == nil {
			return la, lo
		}
	}
	if loc := s.Session.Location(); loc != nil {
		return loc.Lat, loc.Lon
	}
	return 0, 0
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if s.Logout != nil {
		s.Logout.Stop(r.Context())
	}
	s.Rider.Stop()
	s.Driver.Stop()
	s.Session.Logout()
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

var _ Nearby = (*backend.Client)(nil)

func newID() string { b := make([]byte, 8); _, _ = rand.Read(b); return hex.EncodeToString(b) }
