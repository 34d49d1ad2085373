// Package ratelimit serializes and paces outbound requests to one carrier.
package ratelimit

import (
	"context"
	"time"
)

// Policy holds the rate limit parameters for one carrier instance.
type Policy struct {
	// MaxRequests is the request budget per Window.
	MaxRequests int
	// Window is the sliding window length.
	Window time.Duration
}

// DefaultPolicy is the carrier-agnostic default: 30 requests per minute.
func DefaultPolicy() Policy {
	return Policy{
		MaxRequests: 30,
		Window:      60 * time.Second,
	}
}

// Limiter paces outbound calls for a single adapter instance: requests run
// strictly one at a time in submission order, never exceed MaxRequests per
// Window, and keep a minimum inter-request spacing of Window/MaxRequests.
//
// State is process-local. Running multiple replicas multiplies effective
// upstream volume by the replica count; coordinating across replicas would
// need a shared counter and is out of scope here.
type Limiter struct {
	policy Policy

	// Serializes the queue: held for the caller's entire retry sequence.
	slot chan struct{}

	requestCount    int
	windowStart     time.Time
	lastRequestedAt time.Time

	// Injectable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a limiter for one adapter instance. Zero policy fields fall
// back to the defaults.
func New(policy Policy) *Limiter {
	def := DefaultPolicy()
	if policy.MaxRequests <= 0 {
		policy.MaxRequests = def.MaxRequests
	}
	if policy.Window <= 0 {
		policy.Window = def.Window
	}
	l := &Limiter{
		policy: policy,
		slot:   make(chan struct{}, 1),
		now:    time.Now,
		sleep:  sleepCtx,
	}
	return l
}

// SetClock overrides the time source and sleeper. Test hook.
func (l *Limiter) SetClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) {
	if now != nil {
		l.now = now
	}
	if sleep != nil {
		l.sleep = sleep
	}
}

// MinSpacing returns the enforced minimum delay between requests.
func (l *Limiter) MinSpacing() time.Duration {
	return l.policy.Window / time.Duration(l.policy.MaxRequests)
}

// Do runs fn while holding the serialization slot. Admission may sleep to
// honor the window budget and the minimum spacing. The request counter is
// charged after fn returns, success and failure alike: a failed request
// still consumed a rate-limit slot.
func (l *Limiter) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	select {
	case l.slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-l.slot }()

	if err := l.admit(ctx); err != nil {
		return err
	}

	err := fn(ctx)

	l.requestCount++
	l.lastRequestedAt = l.now()
	return err
}

// admit applies the window and spacing rules, sleeping as needed.
func (l *Limiter) admit(ctx context.Context) error {
	now := l.now()

	if l.windowStart.IsZero() || now.Sub(l.windowStart) > l.policy.Window {
		l.requestCount = 0
		l.windowStart = now
	}

	if l.requestCount >= l.policy.MaxRequests {
		remaining := l.policy.Window - now.Sub(l.windowStart)
		if remaining > 0 {
			if err := l.sleep(ctx, remaining); err != nil {
				return err
			}
		}
		l.requestCount = 0
		l.windowStart = l.now()
		now = l.windowStart
	}

	if !l.lastRequestedAt.IsZero() {
		if wait := l.MinSpacing() - now.Sub(l.lastRequestedAt); wait > 0 {
			if err := l.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
