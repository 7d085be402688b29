package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker serializes holders inside one process.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]time.Time)}
}

func (m *MemoryLocker) Acquire(ctx context.Context, key string, ttl, wait time.Duration) (func(), error) {
	var expiresAt time.Time
	err := acquireWithRetry(ctx, wait, func(context.Context) (bool, error) {
		m.mu.Lock()
		defer m.mu.Unlock()

		now := time.Now()
		if until, ok := m.held[key]; ok && now.Before(until) {
			return false, nil
		}
		expiresAt = now.Add(ttl)
		m.held[key] = expiresAt
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			// Only drop our own entry; an expired lock may have been re-acquired.
			if m.held[key].Equal(expiresAt) {
				delete(m.held, key)
			}
		})
	}, nil
}
