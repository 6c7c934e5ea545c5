package upstream

import (
	"context"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
)

// Limiter bounds in-flight upstream requests per provider with one counting
// semaphore per provider identity. Semaphores are buffered channels created
// lazily on first acquisition; blocked acquirers are served in FIFO order by
// the runtime's channel wait queue. Entries live until process exit.
type Limiter struct {
	semaphores *xsync.Map[string, chan struct{}]
}

func NewLimiter() *Limiter {
	return &Limiter{
		semaphores: xsync.NewMap[string, chan struct{}](),
	}
}

// Acquire takes a permit for the provider, blocking until one frees up or the
// context is cancelled. The returned release function is safe to call more
// than once; only the first call returns the permit. Callers must release on
// every exit path.
func (l *Limiter) Acquire(ctx context.Context, providerID string, capacity int) (func(), error) {
	if capacity <= 0 {
		capacity = 1
	}

	sem, _ := l.semaphores.LoadOrStore(providerID, make(chan struct{}, capacity))

	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			<-sem
		})
	}

	return release, nil
}

// InFlight reports the number of permits currently held for a provider
func (l *Limiter) InFlight(providerID string) int {
	if sem, ok := l.semaphores.Load(providerID); ok {
		return len(sem)
	}
	return 0
}
