package geo

import (
	"math"
	"testing"

	"github.com/example/horse-share/internal/models"
)

func TestHaversineZero(t *testing.T) {
	d := Haversine(0, 0, 0, 0)
	if d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestDistanceSymmetric(t *testing.T) {
	a := &models.Coord{Lat: 46.770439, Lon: 23.591423}
	b := &models.Coord{Lat: 46.75, Lon: 23.6}
	if got, want := Distance(a, b), Distance(b, a); got != want {
		t.Fatalf("distance not symmetric: %f vs %f", got, want)
	}
	if d := Distance(a, a); d != 0 {
		t.Fatalf("self distance = %f, want 0", d)
	}
}

func TestDistanceSentinelOnMissing(t *testing.T) {
	a := &models.Coord{Lat: 46.77, Lon: 23.59}
	if d := Distance(nil, a); d != Sentinel {
		t.Fatalf("nil first arg: got %f, want sentinel", d)
	}
	if d := Distance(a, nil); d != Sentinel {
		t.Fatalf("nil second arg: got %f, want sentinel", d)
	}
	bad := &models.Coord{Lat: math.NaN(), Lon: 0}
	if d := Distance(a, bad); d != Sentinel {
		t.Fatalf("NaN coord: got %f, want sentinel", d)
	}
}

func TestDistanceTenKilometers(t *testing.T) {
	// 0.09 degrees of longitude on the equator is ~10km.
	a := &models.Coord{Lat: 0, Lon: 0}
	b := &models.Coord{Lat: 0, Lon: 0.09}
	d := Distance(a, b)
	if d < 9900 || d > 10100 {
		t.Fatalf("expected ~10000m, got %f", d)
	}
}
