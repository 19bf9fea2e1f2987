package session

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/yelpcamp/internal/common"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore keeps serialized sessions in process memory. It suits a
// single instance and tests; records do not survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryStore) Load(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()

	if !ok || !m.now().Before(e.expiresAt) {
		return nil, common.ErrorNotFound
	}

	return decode(e.data)
}

func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	e, err := entryFor(s)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.entries[s.ID] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Replace(ctx context.Context, s *Session) error {
	e, err := entryFor(s)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.entries[s.ID]
	if !ok || !m.now().Before(old.expiresAt) {
		return common.ErrorNotFound
	}
	m.entries[s.ID] = e
	return nil
}

func entryFor(s *Session) (memoryEntry, error) {
	data, err := encode(s)
	if err != nil {
		return memoryEntry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return memoryEntry{data: data, expiresAt: s.ExpiresAt}, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored records, lapsed ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Cleanup drops lapsed records every interval until ctx is done.
func (m *MemoryStore) Cleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *MemoryStore) sweep() {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, id)
		}
	}
}
