package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/horse-share/internal/ingest"
	"github.com/example/horse-share/internal/models"
)

type fakeUpdater struct {
	failGeo  int
	failHSet int
	geoCalls int
	hCalls   int
	lastGeo  *redis.GeoLocation
	lastMeta map[string]interface{}
}

func (f *fakeUpdater) GeoAdd(ctx context.Context, key string, loc *redis.GeoLocation) error {
	f.geoCalls++
	if f.failGeo > 0 {
		f.failGeo--
		return errors.New("geo add failed")
	}
	f.lastGeo = loc
	return nil
}

func (f *fakeUpdater) HSet(ctx context.Context, key string, values map[string]interface{}) error {
	f.hCalls++
	if f.failHSet > 0 {
		f.failHSet--
		return errors.New("hset failed")
	}
	f.lastMeta = values
	return nil
}

func sample() *ingest.TelemetrySample {
	return &ingest.TelemetrySample{
		UID:      "u1",
		Role:     models.RoleDriver,
		Location: models.Coord{Lat: 46.77, Lon: 23.59},
		At:       time.Now().UnixMilli(),
	}
}

func TestUpdateRedisWithRetrySucceedsAfterRetries(t *testing.T) {
	f := &fakeUpdater{failGeo: 2}
	if err := updateRedisWithRetry(context.Background(), f, sample(), 3, time.Millisecond); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if f.geoCalls != 3 {
		t.Fatalf("expected 3 geo attempts, got %d", f.geoCalls)
	}
	if f.lastGeo == nil || f.lastGeo.Name != "u1" {
		t.Fatalf("expected geo entry for u1, got %+v", f.lastGeo)
	}
	if f.lastGeo.Latitude != 46.77 || f.lastGeo.Longitude != 23.59 {
		t.Fatalf("unexpected coordinates: %+v", f.lastGeo)
	}
	if f.lastMeta["role"] != string(models.RoleDriver) {
		t.Fatalf("expected driver role in meta, got %v", f.lastMeta["role"])
	}
}

func TestUpdateRedisWithRetryFailsWhenExhausted(t *testing.T) {
	f := &fakeUpdater{failGeo: 5}
	if err := updateRedisWithRetry(context.Background(), f, sample(), 3, time.Millisecond); err == nil {
		t.Fatal("expected error when attempts exhausted")
	}
	if f.geoCalls != 3 {
		t.Fatalf("expected 3 geo attempts, got %d", f.geoCalls)
	}
}

func TestUpdateRedisWithRetryHSetFailure(t *testing.T) {
	f := &fakeUpdater{failHSet: 1}
	if err := updateRedisWithRetry(context.Background(), f, sample(), 2, time.Millisecond); err != nil {
		t.Fatalf("expected success after hset retry, got %v", err)
	}
	if f.hCalls != 2 {
		t.Fatalf("expected 2 hset attempts, got %d", f.hCalls)
	}
}
