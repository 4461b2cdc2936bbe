// File: internal/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Config holds rate limiting configuration
type Config struct {
	WindowSize    time.Duration // length of one counting window
	MaxAttempts   int           // requests allowed per window
	CleanupPeriod time.Duration // how often expired windows are dropped
}

// DefaultTurnConfig limits how many turns one client may start.
func DefaultTurnConfig() *Config {
	return &Config{
		WindowSize:    time.Minute,
		MaxAttempts:   20,
		CleanupPeriod: 5 * time.Minute,
	}
}

type window struct {
	count int
	start time.Time
}

// MemoryRateLimiter is a fixed-window limiter keyed by client identifier.
type MemoryRateLimiter struct {
	config  *Config
	now     func() time.Time
	windows map[string]*window
	mu      sync.Mutex
	stopCh  chan struct{}
	once    sync.Once
}

// NewMemoryRateLimiter creates a limiter and starts its cleanup goroutine.
func NewMemoryRateLimiter(config *Config) *MemoryRateLimiter {
	rl := &MemoryRateLimiter{
		config:  config,
		now:     time.Now,
		windows: make(map[string]*window),
		stopCh:  make(chan struct{}),
	}
	if config.CleanupPeriod > 0 {
		go rl.cleanupLoop()
	}
	return rl
}

// RateLimitInfo contains information about rate limit status
type RateLimitInfo struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Allow counts one request for identifier.
func (rl *MemoryRateLimiter) Allow(identifier string) RateLimitInfo {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[identifier]
	if !ok || now.Sub(w.start) >= rl.config.WindowSize {
		w = &window{start: now}
		rl.windows[identifier] = w
	}

	reset := w.start.Add(rl.config.WindowSize)
	info := RateLimitInfo{Limit: rl.config.MaxAttempts, ResetTime: reset}

	if w.count >= rl.config.MaxAttempts {
		info.RetryAfter = reset.Sub(now)
		return info
	}

	w.count++
	info.Allowed = true
	info.Remaining = rl.config.MaxAttempts - w.count
	return info
}

func (rl *MemoryRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *MemoryRateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for id, w := range rl.windows {
		if now.Sub(w.start) >= rl.config.WindowSize {
			delete(rl.windows, id)
		}
	}
}

// Close stops the cleanup goroutine
func (rl *MemoryRateLimiter) Close() {
	rl.once.Do(func() { close(rl.stopCh) })
}

// GetClientIP extracts the real client IP from request
func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
