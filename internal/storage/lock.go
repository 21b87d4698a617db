package storage

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 100 * time.Millisecond

// ErrLockTimeout is returned when the write lock cannot be acquired
// within the configured timeout.
var ErrLockTimeout = errors.New("could not acquire store write lock")

// WriteLock serializes mutating access to the store file across threads
// and across OS processes. It is two nested locks: an in-process mutex
// that serializes goroutines, and an advisory file lock (flock) that
// serializes processes sharing the same store file.
//
// On platforms or filesystems where the advisory lock cannot be taken at
// all (not contention, but an operational failure), the lock degrades to
// thread-only serialization. Cross-process exclusion is then no longer
// guaranteed; this is logged once as a warning.
type WriteLock struct {
	timeout time.Duration

	inner chan struct{} // capacity 1; held token serializes goroutines
	fl    *flock.Flock

	degradeOnce sync.Once
}

// NewWriteLock creates a write lock guarding the store file at dbPath.
// The OS-level lock uses a sibling ".lock" file so readers of the store
// file itself are never blocked.
func NewWriteLock(dbPath string, timeout time.Duration) *WriteLock {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	l := &WriteLock{
		timeout: timeout,
		inner:   make(chan struct{}, 1),
		fl:      flock.New(dbPath + ".lock"),
	}
	l.inner <- struct{}{}
	return l
}

// Acquire obtains the write lock, waiting up to the lock's timeout.
// It returns a release function that must be called exactly once.
func (l *WriteLock) Acquire(ctx context.Context) (release func(), err error) {
	deadline := time.Now().Add(l.timeout)

	select {
	case <-l.inner:
	case <-time.After(l.timeout):
		return nil, ErrLockTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	lockCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	locked, flErr := l.fl.TryLockContext(lockCtx, lockRetryDelay)
	if flErr != nil && !errors.Is(flErr, context.DeadlineExceeded) && !errors.Is(flErr, context.Canceled) {
		// Advisory locking unavailable: degrade to thread-only serialization.
		l.degradeOnce.Do(func() {
			log.Printf("Warning: advisory file lock unavailable (%v); cross-process write exclusion is not guaranteed", flErr)
		})
		return l.releaseInnerOnly, nil
	}
	if !locked {
		l.inner <- struct{}{}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrLockTimeout
	}

	return l.releaseBoth, nil
}

func (l *WriteLock) releaseBoth() {
	if err := l.fl.Unlock(); err != nil {
		log.Printf("Warning: failed to release file lock: %v", err)
	}
	l.inner <- struct{}{}
}

func (l *WriteLock) releaseInnerOnly() {
	l.inner <- struct{}{}
}
