// Package lock provides single-flight guards for scheduler lanes.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Locker acquires named leases. A lease is held until released or until
// its ttl passes, whichever comes first.
type Locker interface {
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error)
}

type lease struct {
	token   string
	expires time.Time
}

// MemoryLocker guards lanes within a single process.
type MemoryLocker struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

var _ Locker = (*MemoryLocker)(nil)

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{leases: make(map[string]lease), now: time.Now}
}

func (l *MemoryLocker) TryAcquire(_ context.Context, name string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if held, ok := l.leases[name]; ok && now.Before(held.expires) {
		return nil, false, nil
	}

	token := uuid.NewString()
	l.leases[name] = lease{token: token, expires: now.Add(ttl)}

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if held, ok := l.leases[name]; ok && held.token == token {
			delete(l.leases, name)
		}
	}, true, nil
}
