package lock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, time.Second, time.Millisecond)
}

func TestLock_AcquireRelease(t *testing.T) {
	var l Lock
	assert.False(t, l.Held())

	release := l.Acquire()
	assert.True(t, l.Held())

	release()
	assert.False(t, l.Held())

	// A second release must not unlock someone else's hold.
	other := l.Acquire()
	release()
	assert.True(t, l.Held())
	other()
}

func TestLock_TryAcquire(t *testing.T) {
	var l Lock
	release, ok := l.TryAcquire()
	require.True(t, ok)

	_, ok = l.TryAcquire()
	assert.False(t, ok)

	release()
	release, ok = l.TryAcquire()
	assert.True(t, ok)
	release()
}

func TestLock_FIFOOrder(t *testing.T) {
	var l Lock
	first := l.Acquire()

	const waiters = 5
	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			release := l.Acquire()
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
			release()
		}(i)
		// Queue the waiters one at a time so arrival order is known.
		waitFor(t, func() bool { return l.Waiting() == i+1 })
	}

	first()
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
	assert.False(t, l.Held())
	assert.Zero(t, l.Waiting())
}

func TestLock_MutualExclusion(t *testing.T) {
	var (
		l       Lock
		inside  int
		maxSeen int
		counter int
		mu      sync.Mutex
		wg      sync.WaitGroup
	)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := l.Acquire()
			defer release()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			counter++
			time.Sleep(100 * time.Microsecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 50, counter)
}

func TestLock_ReleaseFromOtherGoroutine(t *testing.T) {
	var l Lock
	release := l.Acquire()

	acquired := make(chan struct{})
	go func() {
		r := l.Acquire()
		close(acquired)
		r()
	}()
	waitFor(t, func() bool { return l.Waiting() == 1 })

	go release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter was never granted the lock")
	}
}
