package protocol

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per key, e.g. per tool name
type RateLimiter struct {
	logger     *logrus.Logger
	limiters   map[string]*rate.Limiter
	perMinute  int
	violations map[string]int64
	mu         sync.Mutex
}

// NewRateLimiter allows perMinute calls per key, all of which may arrive in one burst
func NewRateLimiter(logger *logrus.Logger, perMinute int) *RateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &RateLimiter{
		logger:     logger,
		limiters:   make(map[string]*rate.Limiter),
		perMinute:  perMinute,
		violations: make(map[string]int64),
	}
}

// Allow reports whether a call for key may proceed now
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, ok := rl.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rl.perMinute)), rl.perMinute)
		rl.limiters[key] = limiter
	}

	if limiter.Allow() {
		return true
	}

	rl.violations[key]++
	rl.logger.WithFields(logrus.Fields{
		"key":        key,
		"violations": rl.violations[key],
	}).Warn("Rate limit exceeded")
	return false
}

// SetLimit changes the per-minute allowance and drops existing buckets
func (rl *RateLimiter) SetLimit(perMinute int) {
	if perMinute < 1 {
		perMinute = 1
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.perMinute = perMinute
	rl.limiters = make(map[string]*rate.Limiter)
}

// GetStats returns rate limiting statistics
func (rl *RateLimiter) GetStats() map[string]interface{} {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	var total int64
	for _, v := range rl.violations {
		total += v
	}
	return map[string]interface{}{
		"tracked_keys":     len(rl.limiters),
		"requests_per_min": rl.perMinute,
		"total_violations": total,
	}
}
