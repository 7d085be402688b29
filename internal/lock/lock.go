package lock

import (
	"context"
	"errors"
	"time"
)

// ErrNotAcquired is returned when the key stayed held for the whole wait window.
var ErrNotAcquired = errors.New("lock is held by another operation")

const retryInterval = 100 * time.Millisecond

// Locker provides mutual exclusion keyed by an arbitrary string.
type Locker interface {
	// Acquire blocks up to wait for key and returns the function that releases it.
	// ttl bounds how long a crashed holder can keep the key.
	Acquire(ctx context.Context, key string, ttl, wait time.Duration) (release func(), err error)
}

type tryFunc func(ctx context.Context) (bool, error)

func acquireWithRetry(ctx context.Context, wait time.Duration, try tryFunc) error {
	deadline := time.Now().Add(wait)
	for {
		ok, err := try(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrNotAcquired
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}
