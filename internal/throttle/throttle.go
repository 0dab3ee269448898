// Package throttle rate-limits dungeon generation per caller with a sliding window.
package throttle

import (
	"sync"
	"time"
)

// Config holds throttle configuration
type Config struct {
	Enabled     bool          // Whether throttling is enabled
	MaxRequests int           // Max requests allowed in the window
	Window      time.Duration // Sliding window length
}

// DefaultConfig returns sensible defaults: 30 generations per minute.
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		MaxRequests: 30,
		Window:      time.Minute,
	}
}

// FromSettings builds a Config from YAML-loaded values. Non-positive values keep the defaults.
func FromSettings(enabled bool, maxRequests, windowSeconds int) Config {
	cfg := DefaultConfig()
	cfg.Enabled = enabled
	if maxRequests > 0 {
		cfg.MaxRequests = maxRequests
	}
	if windowSeconds > 0 {
		cfg.Window = time.Duration(windowSeconds) * time.Second
	}
	return cfg
}

// Result reports whether a request may proceed.
type Result struct {
	Allowed     bool
	WaitSeconds int // How long to wait before trying again (if not allowed)
}

// Window tracks recent requests for a single caller.
type Window struct {
	mu     sync.Mutex
	config Config
	times  []time.Time
	now    func() time.Time
}

// NewWindow creates a window with the given config.
func NewWindow(config Config) *Window {
	return &Window{
		config: config,
		times:  make([]time.Time, 0, max(0, config.MaxRequests)),
		now:    time.Now,
	}
}

// Allow records a request if it fits in the window.
func (w *Window) Allow() Result {
	if !w.config.Enabled {
		return Result{Allowed: true}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.expire(now)

	if len(w.times) >= w.config.MaxRequests {
		remaining := w.times[0].Add(w.config.Window).Sub(now)
		return Result{WaitSeconds: int(remaining.Seconds()) + 1}
	}

	w.times = append(w.times, now)
	return Result{Allowed: true}
}

// Idle reports whether the window holds no live requests.
func (w *Window) Idle() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.expire(w.now())
	return len(w.times) == 0
}

func (w *Window) expire(now time.Time) {
	cutoff := now.Add(-w.config.Window)
	kept := w.times[:0]
	for _, t := range w.times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	w.times = kept
}

// Limiter keeps one window per key, typically a client IP.
type Limiter struct {
	mu      sync.Mutex
	config  Config
	windows map[string]*Window
}

// NewLimiter creates a keyed limiter.
func NewLimiter(config Config) *Limiter {
	return &Limiter{
		config:  config,
		windows: make(map[string]*Window),
	}
}

// Allow checks and records a request for key.
func (l *Limiter) Allow(key string) Result {
	if !l.config.Enabled {
		return Result{Allowed: true}
	}

	l.mu.Lock()
	w, ok := l.windows[key]
	if !ok {
		w = NewWindow(l.config)
		l.windows[key] = w
	}
	l.mu.Unlock()

	return w.Allow()
}

// Sweep drops windows with no live requests and returns how many remain.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.windows {
		if w.Idle() {
			delete(l.windows, key)
		}
	}
	return len(l.windows)
}
