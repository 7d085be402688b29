package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. Entries do not survive a restart
// and are not shared between instances.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryStore) Create(ctx context.Context, s Session) (string, error) {
	handle, err := newHandle()
	if err != nil {
		return "", fmt.Errorf("failed to generate session handle: %w", err)
	}

	now := m.now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.purgeLocked(now)
	m.entries[handle] = memoryEntry{session: s, expiresAt: now.Add(m.ttl)}
	return handle, nil
}

func (m *MemoryStore) Get(ctx context.Context, handle string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookupLocked(handle)
}

func (m *MemoryStore) Take(ctx context.Context, handle string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookupLocked(handle)
	if err != nil {
		return nil, err
	}
	delete(m.entries, handle)
	return s, nil
}

func (m *MemoryStore) Invalidate(ctx context.Context, handle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, handle)
	return nil
}

func (m *MemoryStore) lookupLocked(handle string) (*Session, error) {
	entry, ok := m.entries[handle]
	if !ok {
		return nil, ErrNotFound
	}
	if !m.now().Before(entry.expiresAt) {
		delete(m.entries, handle)
		return nil, ErrNotFound
	}
	s := entry.session
	return &s, nil
}

func (m *MemoryStore) purgeLocked(now time.Time) {
	for handle, entry := range m.entries {
		if !now.Before(entry.expiresAt) {
			delete(m.entries, handle)
		}
	}
}
