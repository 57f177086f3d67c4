package api

import (
	"time"

	"github.com/bakesight/bakesight-server/internal/ratelimit"
)

// RateLimiter wraps KeyedRateLimiter for API use.
type RateLimiter = ratelimit.KeyedRateLimiter

// NewRateLimiter creates a new rate limiter.
// rate: number of requests allowed per interval
// interval: time period for rate (e.g., time.Minute)
// burst: maximum burst size
func NewRateLimiter(ratePerInterval int, interval time.Duration, burst int) *RateLimiter {
	rps := float64(ratePerInterval) / interval.Seconds()
	return ratelimit.New(rps, burst)
}
