package server

import (
	"sync"

	"golang.org/x/time/rate"
)

// ipRateLimiter keeps one token bucket per client IP for DoS protection
type ipRateLimiter struct {
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	mu       sync.RWMutex
}

func newIPRateLimiter(requestsPerSec float64, burst int) *ipRateLimiter {
	return &ipRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(requestsPerSec),
		burst:    burst,
	}
}

// Allow reports whether a request from the client IP fits its bucket
func (l *ipRateLimiter) Allow(clientIP string) bool {
	return l.getLimiter(clientIP).Allow()
}

func (l *ipRateLimiter) getLimiter(clientIP string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[clientIP]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[clientIP]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.limit, l.burst)
	l.limiters[clientIP] = limiter
	return limiter
}
