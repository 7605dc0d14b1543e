package common

import (
	"context"
	"time"
)

// Locker hands out TTL bounded leases. A lease that is never released
// expires on its own, so a crashed holder cannot lock a key out forever.
type Locker interface {
	// Acquire atomically takes key for ttl. ok is false when someone else holds it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)

	// Release frees key if token still holds it
	Release(ctx context.Context, key, token string) error
}
