package locks

import (
	"context"
	"strings"
	"time"
)

// Release frees a held lock. It is safe to call once, after which the
// lock may be acquired by others.
type Release func(ctx context.Context)

// Locker hands out short-lived mutual-exclusion locks keyed by string.
// Acquire returns ok=false without error when the lock is already held.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, bool, error)
}

// Key builds a namespaced lock key from parts.
func Key(parts ...string) string {
	return "ivlock:" + strings.Join(parts, ":")
}
