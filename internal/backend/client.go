package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/example/horse-share/internal/models"
)

// Client talks to the Horse Share REST backend. All write paths are
// single-shot: callers decide whether the next poll or snapshot retries.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{BaseURL: baseURL, HTTP: &http.Client{Timeout: 5 * time.Second}}
}

// RideRequest is the POST /api/rides body.
type RideRequest struct {
	RiderUID    string        `json:"rider_uid"`
	RiderEmail  string        `json:"rider_email"`
	DriverUID   string        `json:"driver_uid"`
	DriverName  string        `json:"driver_name"`
	Pickup      models.Coord  `json:"pickup_location"`
	Destination *models.Coord `json:"destination"`
	Price       int           `json:"price"`
}

// LocationSync is the PUT /api/users | /api/drivers body. Role is only
// present on non-driver payloads.
type LocationSync struct {
	UID          string        `json:"uid"`
	Email        string        `json:"email,omitempty"`
	Location     *models.Coord `json:"location,omitempty"`
	LoggedIn     bool          `json:"loggedIn"`
	LastActiveAt int64         `json:"lastActiveAt,omitempty"`
	Role         models.Role   `json:"role,omitempty"`
}

// RequestRide submits a ride request and returns the backend-assigned
// ride identifier.
func (c *Client) RequestRide(ctx context.Context, req RideRequest) (string, error) {
	var out struct {
		RideID string `json:"rideId"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/rides", req, &out); err != nil {
		return "", err
	}
	if out.RideID == "" {
		return "", fmt.Errorf("ride request: response missing rideId")
	}
	return out.RideID, nil
}

// UpdateRideStatus sends a status transition for a ride.
func (c *Client) UpdateRideStatus(ctx context.Context, rideID string, status models.RideStatus) error {
	body := map[string]models.RideStatus{"status": status}
	return c.do(ctx, http.MethodPut, "/api/rides/"+rideID+"/status", body, nil)
}

// SyncLocation pushes the session's position to the role-dependent
// endpoint.
func (c *Client) SyncLocation(ctx context.Context, role models.Role, sync LocationSync) error {
	if role == models.RoleDriver {
		sync.Role = "" // driver payloads carry no role field
		return c.do(ctx, http.MethodPut, "/api/drivers", sync, nil)
	}
	sync.Role = role
	return c.do(ctx, http.MethodPut, "/api/users", sync, nil)
}

// Heartbeat pings the backend so the session is not reaped as inactive.
func (c *Client) Heartbeat(ctx context.Context, role models.Role, uid string) error {
	body := map[string]string{"uid": uid}
	return c.do(ctx, http.MethodPost, "/api/"+roleEndpoint(role)+"/heartbeat", body, nil)
}

// NearbyHorses lists horses within range meters of a point.
func (c *Client) NearbyHorses(ctx context.Context, lat, lon float64, rangeM int) ([]models.Marker, error) {
	return c.nearby(ctx, "horses", lat, lon, rangeM)
}

// NearbyDrivers lists carriage drivers within range meters of a point.
func (c *Client) NearbyDrivers(ctx context.Context, lat, lon float64, rangeM int) ([]models.Marker, error) {
	return c.nearby(ctx, "drivers", lat, lon, rangeM)
}

func (c *Client) nearby(ctx context.Context, kind string, lat, lon float64, rangeM int) ([]models.Marker, error) {
	path := fmt.Sprintf("/api/%s/%f/%f/%d", kind, lat, lon, rangeM)
	var out []models.Marker
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func roleEndpoint(role models.Role) string {
	if role == models.RoleDriver {
		return "drivers"
	}
	return "users"
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("%s %s: server rejected: %s: %s", method, path, resp.Status, bytes.TrimSpace(snippet))
	}
	if out == nil {
		return nil
	}
	// Some deployments return an empty body on list endpoints.
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	return json.Unmarshal(b, out)
}
