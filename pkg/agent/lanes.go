package agent

import (
	"context"
	"sync"
)

// lanes serializes work per key. A waiter gives up when its context ends.
type lanes struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

func newLanes() *lanes {
	return &lanes{held: make(map[string]chan struct{})}
}

// acquire blocks until key is free and returns its release func
func (l *lanes) acquire(ctx context.Context, key string) (func(), error) {
	for {
		l.mu.Lock()
		done, busy := l.held[key]
		if !busy {
			done = make(chan struct{})
			l.held[key] = done
			l.mu.Unlock()

			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.held, key)
					l.mu.Unlock()
					close(done)
				})
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// busy reports whether key is currently held
func (l *lanes) busy(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[key]
	return ok
}
