package ratelimit

import (
	"sync"
	"time"
)

// Buckets idle longer than this are dropped during Allow.
const maxIdle = 10 * time.Minute

type bucket struct {
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	last       time.Time
}

// Limiter is a keyed token bucket. Keys are caller-chosen (remote address
// plus endpoint); stale keys are pruned lazily so the map stays bounded by
// the active client set.
type Limiter struct {
	mu        sync.Mutex
	m         map[string]*bucket
	lastPrune time.Time
}

func New() *Limiter { return &Limiter{m: make(map[string]*bucket), lastPrune: time.Now()} }

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastPrune) > maxIdle {
		for k, b := range l.m {
			if now.Sub(b.last) > maxIdle {
				delete(l.m, k)
			}
		}
		l.lastPrune = now
	}

	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: capacity, capacity: capacity, refillRate: refillPerSec, last: now}
		l.m[key] = b
	}
	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * b.refillRate
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens -= 1
		return true
	}
	return false
}
