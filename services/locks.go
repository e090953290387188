package services

import (
	"errors"
	"sync"
	"time"
)

// ErrLockTimeout marks contention on a governed file beyond the configured
// bound. It is transient: the caller skips the pass and retries on schedule.
var ErrLockTimeout = errors.New("timed out waiting for path lock")

/**
 * Per-path mutual exclusion table
 * @description
 * - Every governed config file may be mutated by exactly one in-flight
 *   operation at a time (fixer writes, restore writes)
 * - A watcher-triggered validation and a scheduled one for the same rule
 *   serialize here; the second waiter re-evaluates after the first completes
 * - Backup reads do not take the lock, stale-but-consistent reads are fine
 */
type PathLocks struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func NewPathLocks() *PathLocks {
	return &PathLocks{
		locks: make(map[string]chan struct{}),
	}
}

func (l *PathLocks) tokenFor(path string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch, ok := l.locks[path]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[path] = ch
	}
	return ch
}

/**
 * Acquire the lock for a path within a bounded wait
 * @param {string} path - Governed file path
 * @param {time.Duration} timeout - Acquisition bound
 * @returns {func()} Release function, call exactly once
 * @returns {error} ErrLockTimeout when the bound elapses
 */
func (l *PathLocks) Acquire(path string, timeout time.Duration) (func(), error) {
	ch := l.tokenFor(path)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-timer.C:
		return nil, ErrLockTimeout
	}
}
