package util

import (
	"time"

	"golang.org/x/time/rate"
)

// Limiter wraps rate.Limiter with a token-count interface.
type Limiter struct {
	inner *rate.Limiter
}

// NewLimiter creates a token bucket refilling r tokens per second with burst b.
func NewLimiter(r float64, b int) *Limiter {
	return &Limiter{
		inner: rate.NewLimiter(rate.Limit(r), b),
	}
}

// Allow reports whether n tokens are available now, consuming them if so.
func (l *Limiter) Allow(n int) bool {
	return l.inner.AllowN(time.Now(), n)
}

