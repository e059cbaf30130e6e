package location

import (
	"testing"
	"time"

	"github.com/example/horse-share/internal/models"
)

func sampleAt(lat, lon float64, at time.Time) models.Sample {
	return models.Sample{Coord: models.Coord{Lat: lat, Lon: lon}, At: at}
}

func TestThrottleTimeThreshold(t *testing.T) {
	th := NewThrottle()
	t0 := time.Now()

	s1 := sampleAt(46.77, 23.59, t0)
	if !th.ShouldSync(s1) {
		t.Fatal("first sample must sync")
	}
	th.MarkSynced(s1)

	s2 := sampleAt(46.77, 23.59, t0.Add(10*time.Second))
	if th.ShouldSync(s2) {
		t.Fatal("same spot after 10s must not sync")
	}

	s3 := sampleAt(46.77, 23.59, t0.Add(40*time.Second))
	if !th.ShouldSync(s3) {
		t.Fatal("same spot after 40s must sync")
	}
}

func TestThrottleDistanceThreshold(t *testing.T) {
	th := NewThrottle()
	t0 := time.Now()

	s1 := sampleAt(46.770000, 23.59, t0)
	th.MarkSynced(s1)

	// ~31m north: one degree of latitude is ~111.32km
	s2 := sampleAt(46.770000+31.0/111320.0, 23.59, t0.Add(time.Second))
	if !th.ShouldSync(s2) {
		t.Fatal("31m move within 1s must sync")
	}

	s3 := sampleAt(46.770000+5.0/111320.0, 23.59, t0.Add(time.Second))
	if th.ShouldSync(s3) {
		t.Fatal("5m move within 1s must not sync")
	}
}

func TestThrottleFailureDoesNotAdvance(t *testing.T) {
	th := NewThrottle()
	t0 := time.Now()

	s1 := sampleAt(46.77, 23.59, t0)
	th.MarkSynced(s1)

	// a sample that qualifies but whose sync "failed" is never marked;
	// the next sample is still judged against s1
	s2 := sampleAt(46.77, 23.59, t0.Add(40*time.Second))
	if !th.ShouldSync(s2) {
		t.Fatal("s2 should qualify")
	}
	s3 := sampleAt(46.77, 23.59, t0.Add(41*time.Second))
	if !th.ShouldSync(s3) {
		t.Fatal("s3 must still qualify against the original last-push")
	}
}

func TestThrottleResetPrimesNextSample(t *testing.T) {
	th := NewThrottle()
	t0 := time.Now()
	th.MarkSynced(sampleAt(46.77, 23.59, t0))
	th.Reset()
	if !th.ShouldSync(sampleAt(46.77, 23.59, t0.Add(time.Millisecond))) {
		t.Fatal("first sample after reset must sync")
	}
}
