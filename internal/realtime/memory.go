package realtime

import (
	"context"
	"sync"

	"github.com/example/horse-share/internal/models"
)

// MemoryStore is an in-process realtime store. It backs tests and
// single-binary demo wiring; PublishRide plays the part of the backend
// writing a record.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]models.Ride
	subs    []*memorySub
}

type memorySub struct {
	store  *MemoryStore
	rideID string // exactly one of rideID / driverEmail is set
	email  string
	ch     chan []models.Ride
	once   sync.Once
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]models.Ride)}
}

func (m *MemoryStore) WatchRide(ctx context.Context, rideID string) (Subscription, error) {
	return m.attach(&memorySub{store: m, rideID: rideID}), nil
}

func (m *MemoryStore) WatchDriver(ctx context.Context, email string) (Subscription, error) {
	return m.attach(&memorySub{store: m, email: email}), nil
}

func (m *MemoryStore) attach(sub *memorySub) *memorySub {
	sub.ch = make(chan []models.Ride, 16)
	m.mu.Lock()
	m.subs = append(m.subs, sub)
	if snap := m.snapshotFor(sub); len(snap) > 0 {
		sub.ch <- snap
	}
	m.mu.Unlock()
	return sub
}

// PublishRide upserts a record and notifies matching subscriptions with
// a fresh snapshot.
func (m *MemoryStore) PublishRide(r models.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.ID] = r
	for _, sub := range m.subs {
		if sub.closed || !sub.matches(r) {
			continue
		}
		select {
		case sub.ch <- m.snapshotFor(sub):
		default: // slow consumer; it will catch up on the next publish
		}
	}
}

func (m *MemoryStore) snapshotFor(sub *memorySub) []models.Ride {
	var out []models.Ride
	for _, r := range m.records {
		if sub.matches(r) {
			out = append(out, r)
		}
	}
	return out
}

func (s *memorySub) matches(r models.Ride) bool {
	if s.rideID != "" {
		return r.ID == s.rideID
	}
	return r.DriverUID == s.email
}

func (s *memorySub) Updates() <-chan []models.Ride { return s.ch }

func (s *memorySub) Close() {
	s.once.Do(func() {
		s.store.mu.Lock()
		s.closed = true
		for i, sub := range s.store.subs {
			if sub == s {
				s.store.subs = append(s.store.subs[:i], s.store.subs[i+1:]...)
				break
			}
		}
		s.store.mu.Unlock()
		close(s.ch)
	})
}
