package ports

import (
	"context"
	"time"
)

// RateLimitCheck is one sliding-window bound: at most Limit events per
// Window for Key.
type RateLimitCheck struct {
	Key    string
	Limit  int
	Window time.Duration
}

// RateLimiter enforces sliding-window counters against a transactional
// store. Allow evaluates every check and increments every counter in a
// single atomic unit: if any check fails, no counter is incremented and
// domain.ErrRateLimited is returned.
type RateLimiter interface {
	Allow(ctx context.Context, checks ...RateLimitCheck) error
}
