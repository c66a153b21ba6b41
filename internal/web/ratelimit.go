package web

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimiter is a sliding-window per-IP limiter. State is in-process; the
// backend is a single process, so no shared store is needed.
type RateLimiter struct {
	mu        sync.Mutex
	maxHits   int
	window    time.Duration
	hitByIP   map[string][]time.Time
	maxMemory int
}

func NewRateLimiter(maxHits int, window time.Duration) *RateLimiter {
	if maxHits <= 0 {
		maxHits = 100
	}
	if window <= 0 {
		window = 15 * time.Minute
	}

	return &RateLimiter{
		maxHits:   maxHits,
		window:    window,
		hitByIP:   make(map[string][]time.Time),
		maxMemory: 5000,
	}
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)
		now := time.Now().UTC()

		allowed, retryAfter := l.Allow(ip, now)
		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			Error(w, http.StatusTooManyRequests, CodeRateLimitExceeded, "Too many requests from this IP, please try again later")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Allow records a hit for ip at now and reports whether it is within the
// window budget, with the wait time when it is not.
func (l *RateLimiter) Allow(ip string, now time.Time) (bool, time.Duration) {
	threshold := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	hits := l.hitByIP[ip]
	filtered := make([]time.Time, 0, len(hits)+1)
	for _, hit := range hits {
		if hit.After(threshold) {
			filtered = append(filtered, hit)
		}
	}

	if len(filtered) >= l.maxHits {
		retryAfter := filtered[0].Add(l.window).Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		l.hitByIP[ip] = filtered
		return false, retryAfter
	}

	filtered = append(filtered, now)
	l.hitByIP[ip] = filtered

	if len(l.hitByIP) > l.maxMemory {
		for key, value := range l.hitByIP {
			if len(value) == 0 || value[len(value)-1].Before(threshold) {
				delete(l.hitByIP, key)
			}
		}
	}

	return true, 0
}
