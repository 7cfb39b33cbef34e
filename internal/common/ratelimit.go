package common

import (
	"sync"
	"time"
)

// RateLimiter is a fixed-window request counter per client key, shared by the whole process.
type RateLimiter struct {
	window time.Duration
	max    int
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*fixedWindow
	sweepAt time.Time
}

type fixedWindow struct {
	start time.Time
	count int
}

// LimitResult describes the caller's budget after one request was counted.
type LimitResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

func NewRateLimiter(window time.Duration, max int) *RateLimiter {
	return &RateLimiter{
		window:  window,
		max:     max,
		now:     time.Now,
		windows: make(map[string]*fixedWindow),
	}
}

// Allow counts one request for key and reports whether it fits in the current window.
func (rl *RateLimiter) Allow(key string) LimitResult {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	w, ok := rl.windows[key]
	if !ok || now.Sub(w.start) >= rl.window {
		w = &fixedWindow{start: now}
		rl.windows[key] = w
	}
	w.count++

	remaining := rl.max - w.count
	if remaining < 0 {
		remaining = 0
	}
	return LimitResult{
		Allowed:   w.count <= rl.max,
		Limit:     rl.max,
		Remaining: remaining,
		ResetIn:   w.start.Add(rl.window).Sub(now),
	}
}

// sweep drops expired windows at most once per window length.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Before(rl.sweepAt) {
		return
	}
	for key, w := range rl.windows {
		if now.Sub(w.start) >= rl.window {
			delete(rl.windows, key)
		}
	}
	rl.sweepAt = now.Add(rl.window)
}

// Reset forgets every counter.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.windows = make(map[string]*fixedWindow)
	rl.sweepAt = time.Time{}
}
