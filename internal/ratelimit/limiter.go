// Package ratelimit implements a per-key token-bucket rate limiter with lazy
// refill. Refill is computed purely from elapsed wall-clock time, so no
// background timer is needed for correctness; a periodic sweep only bounds
// memory growth from transient keys.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

const defaultWindow = 60 * time.Second

// bucket is per-key state, owned exclusively by the Limiter's table.
type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// Options configures a Limiter.
type Options struct {
	// MaxTokens is the bucket capacity and the initial balance of a new key.
	MaxTokens float64
	// RefillRate is tokens added per second of elapsed time.
	RefillRate float64
	// Window is the sweep interval; buckets idle longer than 2*Window are
	// deleted. Zero means the 60s default.
	Window time.Duration
	// Now overrides the clock (tests). Nil means time.Now.
	Now func() time.Time
}

// Limiter is a concurrency-safe token-bucket table keyed by client identity.
// Buckets are cheap to touch, so a single mutex guards the whole table.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	maxTokens  float64
	refillRate float64
	window     time.Duration
	now        func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a Limiter and starts its background sweep. Call Destroy to
// stop the sweep when the limiter is no longer needed.
func New(opts Options) *Limiter {
	window := opts.Window
	if window <= 0 {
		window = defaultWindow
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	l := &Limiter{
		buckets:    make(map[string]*bucket),
		maxTokens:  opts.MaxTokens,
		refillRate: opts.RefillRate,
		window:     window,
		now:        now,
		done:       make(chan struct{}),
	}
	go l.sweep()
	return l
}

// Allow reports whether key may spend cost tokens and deducts them if so.
// A cost above the bucket capacity can never succeed; callers must treat
// that as a client error rather than a retryable rate-limit state.
func (l *Limiter) Allow(key string, cost float64) bool {
	if cost > l.maxTokens {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.refillLocked(key)
	if b.tokens < cost {
		return false
	}
	b.tokens -= cost
	return true
}

// Remaining returns the token balance for key as of now, without mutating
// bucket state. Unknown keys report the full capacity.
func (l *Limiter) Remaining(key string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		return l.maxTokens
	}
	elapsed := l.now().Sub(b.lastRefill).Seconds()
	return math.Min(l.maxTokens, b.tokens+elapsed*l.refillRate)
}

// RetryAfter returns how long the caller must wait before cost tokens will
// be available for key, rounded up to whole seconds. ok is false when the
// request can never succeed: cost exceeds capacity, or the refill rate is
// zero and the balance is short.
func (l *Limiter) RetryAfter(key string, cost float64) (wait time.Duration, ok bool) {
	if cost > l.maxTokens {
		return 0, false
	}

	remaining := l.Remaining(key)
	if remaining >= cost {
		return 0, true
	}
	if l.refillRate <= 0 {
		return 0, false
	}

	seconds := math.Ceil((cost - remaining) / l.refillRate)
	return time.Duration(seconds) * time.Second, true
}

// Destroy stops the background sweep. Idempotent; buckets already handed out
// are abandoned with the table.
func (l *Limiter) Destroy() {
	l.stopOnce.Do(func() { close(l.done) })
}

// refillLocked returns the bucket for key, creating it at full capacity on
// first use and applying lazy refill. Caller must hold l.mu.
func (l *Limiter) refillLocked(key string) *bucket {
	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.maxTokens, lastRefill: now}
		l.buckets[key] = b
		return b
	}
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(l.maxTokens, b.tokens+elapsed*l.refillRate)
		b.lastRefill = now
	}
	return b
}

// sweep deletes buckets idle longer than twice the window, bounding memory
// growth from rotating client keys. Deleting a bucket resets its history;
// transient keys are ephemeral by design.
func (l *Limiter) sweep() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.evictIdle()
		}
	}
}

func (l *Limiter) evictIdle() {
	cutoff := l.now().Add(-2 * l.window)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if b.lastRefill.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// Len reports the number of tracked keys. Used by tests and diagnostics.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
