package locks

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker is a process-local Locker for single-instance deployments
// and tests. TTLs still apply so a leaked lock cannot wedge the pipeline.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
}

// NewMemory creates an empty MemoryLocker.
func NewMemory() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]time.Time)}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Release, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if expires, ok := l.held[key]; ok && now.Before(expires) {
		return nil, false, nil
	}
	l.held[key] = now.Add(ttl)

	release := func(ctx context.Context) {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}
	return release, true, nil
}

var _ Locker = (*MemoryLocker)(nil)
