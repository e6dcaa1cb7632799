package core

// pass_limiter.go bounds how many reconciliation passes run at once.
//
// Passes write into a shared media library, so the default capacity is one:
// a second operator waits for the first pass to finish, up to maxWait, and
// then fails with ErrTooManyPasses. WaitForDrain lets shutdown hold until
// in-flight passes complete.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyPasses is returned when no pass slot frees up within the wait
// window.
var ErrTooManyPasses = errors.New("too many concurrent passes, please try again later")

// DefaultMaxConcurrentPasses is the default number of parallel passes.
const DefaultMaxConcurrentPasses = 1

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// PassLimiter is a counting semaphore over reconciliation passes.
type PassLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewPassLimiter allows at most maxConcurrent passes. Non-positive arguments
// fall back to the defaults.
func NewPassLimiter(maxConcurrent int, maxWait time.Duration) *PassLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentPasses
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &PassLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire waits for a pass slot. It returns ErrTooManyPasses when the wait
// window expires and ctx.Err() when ctx ends first. The caller must Release
// after a nil return.
func (l *PassLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyPasses
	}
}

// TryAcquire takes a slot only if one is free right now.
func (l *PassLimiter) TryAcquire() bool {
	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *PassLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of passes holding a slot.
func (l *PassLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// MaxConcurrent returns the limiter capacity.
func (l *PassLimiter) MaxConcurrent() int {
	return cap(l.semaphore)
}

// Available returns the number of free slots.
func (l *PassLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until no pass is active or ctx ends.
func (l *PassLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// PassLimiterStatus is a point-in-time view of the limiter.
type PassLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status reports the limiter state for health checks.
func (l *PassLimiter) Status() PassLimiterStatus {
	l.mu.RLock()
	active := l.active
	l.mu.RUnlock()

	return PassLimiterStatus{
		Active:        active,
		Available:     l.Available(),
		MaxConcurrent: cap(l.semaphore),
	}
}
