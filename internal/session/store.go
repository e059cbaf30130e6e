package session

import "sync"

// Store persists session snapshots so a restarted process can resume an
// in-flight ride without re-submitting the request.
type Store interface {
	Save(snap Snapshot) error
	Load(uid string) (Snapshot, bool, error)
}

type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[string]Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[string]Snapshot)}
}

func (m *MemoryStore) Save(snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[snap.UID] = snap
	return nil
}

func (m *MemoryStore) Load(uid string) (Snapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snaps[uid]
	return snap, ok, nil
}
