// Package lock provides a single-slot mutual-exclusion lock whose waiters are
// served strictly in order of arrival.
//
// Unlike sync.Mutex the lock is not tied to a goroutine: Acquire hands back a
// release function which may be called from anywhere, exactly once. The lock
// is not reentrant; acquiring it twice from the same logical caller
// deadlocks.
package lock

import "sync"

// Lock is a FIFO mutual-exclusion lock. The zero value is unlocked.
type Lock struct {
	mu    sync.Mutex
	held  bool
	queue []chan struct{}
}

// Acquire blocks until the lock is granted and returns its release function.
// Calling release more than once has no further effect.
func (l *Lock) Acquire() (release func()) {
	l.mu.Lock()
	if !l.held {
		l.held = true
		l.mu.Unlock()
		return l.releaser()
	}

	turn := make(chan struct{})
	l.queue = append(l.queue, turn)
	l.mu.Unlock()

	// Ownership is handed over by release; held stays true in between.
	<-turn
	return l.releaser()
}

// TryAcquire grants the lock only if it is free and nobody is queued.
func (l *Lock) TryAcquire() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return nil, false
	}
	l.held = true
	return l.releaser(), true
}

// Held reports whether some caller currently owns the lock.
func (l *Lock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

// Waiting returns the number of queued callers.
func (l *Lock) Waiting() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Lock) releaser() func() {
	var once sync.Once
	return func() { once.Do(l.release) }
}

func (l *Lock) release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.queue) == 0 {
		l.held = false
		return
	}
	next := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	close(next)
}
