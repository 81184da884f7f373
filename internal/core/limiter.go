package core

// limiter.go caps how many loads (uploads, pastes, fetches) are decoded at
// once across all sessions. Callers beyond the cap wait up to maxWait for a
// slot and then fail with ErrTooManyLoads.

import (
	"context"
	"sync/atomic"
	"time"
)

// Load limiter defaults.
const (
	DefaultMaxConcurrentLoads = 5
	DefaultMaxLoadWait        = 30 * time.Second
)

// LoadLimiter is a counting semaphore over load slots.
type LoadLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
	total   atomic.Int64
	refused atomic.Int64
}

// NewLoadLimiter creates a limiter with maxConcurrent slots. Non-positive
// arguments select the defaults.
func NewLoadLimiter(maxConcurrent int, maxWait time.Duration) *LoadLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentLoads
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxLoadWait
	}
	return &LoadLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot, waiting at most maxWait. It returns ctx's error when
// ctx ends first. Every successful Acquire must be paired with Release.
func (l *LoadLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		l.total.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		l.refused.Add(1)
		return ErrTooManyLoads
	}
}

// Release frees a slot taken by Acquire.
func (l *LoadLimiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// Do runs fn while holding a slot.
func (l *LoadLimiter) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn(ctx)
}

// Active returns the number of loads in progress.
func (l *LoadLimiter) Active() int { return int(l.active.Load()) }

// WaitForDrain blocks until no load is in progress or ctx ends.
func (l *LoadLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for l.Active() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// LoadLimiterStatus is a snapshot for monitoring.
type LoadLimiterStatus struct {
	Active        int   `json:"active"`
	MaxConcurrent int   `json:"max_concurrent"`
	Started       int64 `json:"started"`
	Refused       int64 `json:"refused"`
}

// Status returns the current limiter state.
func (l *LoadLimiter) Status() LoadLimiterStatus {
	return LoadLimiterStatus{
		Active:        l.Active(),
		MaxConcurrent: cap(l.slots),
		Started:       l.total.Load(),
		Refused:       l.refused.Load(),
	}
}
