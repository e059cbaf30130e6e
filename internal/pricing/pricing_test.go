package pricing

import (
	"encoding/json"
	"testing"

	"github.com/example/horse-share/internal/models"
)

func TestEstimateTenKm(t *testing.T) {
	pickup := &models.Coord{Lat: 0, Lon: 0}
	dest := &models.Coord{Lat: 0, Lon: 0.09} // ~10 km at the equator
	got := Estimate(pickup, dest, Rates{Base: 5, PerKm: 3, FlatPrice: 15})
	if got != 35 {
		t.Fatalf("price = %d, want 35", got)
	}
}

func TestEstimateFlatFallback(t *testing.T) {
	pickup := &models.Coord{Lat: 46.77, Lon: 23.59}
	if got := Estimate(pickup, nil, DefaultRates); got != 15 {
		t.Fatalf("price = %d, want flat 15", got)
	}
	if got := Estimate(nil, &models.Coord{Lat: 1, Lon: 1}, DefaultRates); got != 15 {
		t.Fatalf("missing pickup: price = %d, want flat 15", got)
	}
}

func TestDestinationObjectShape(t *testing.T) {
	var d models.Destination
	if err := json.Unmarshal([]byte(`{"lat": 46.75, "lng": 23.6}`), &d); err != nil {
		t.Fatalf("object destination: %v", err)
	}
	if d.Coord == nil || d.Coord.Lat != 46.75 || d.Coord.Lon != 23.6 {
		t.Fatalf("bad parse: %+v", d.Coord)
	}

	if err := json.Unmarshal([]byte(`[46.75, 23.6]`), &d); err != nil {
		t.Fatalf("array destination: %v", err)
	}
	if d.Coord == nil || d.Coord.Lat != 46.75 {
		t.Fatalf("bad parse: %+v", d.Coord)
	}

	if err := json.Unmarshal([]byte(`null`), &d); err != nil {
		t.Fatalf("null destination: %v", err)
	}
	if d.Coord != nil {
		t.Fatalf("null destination should clear the coordinate")
	}
}
