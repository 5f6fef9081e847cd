// internal/github/ratelimit.go
package github

import (
	"context"
	"errors"
	"time"
)

// lowQuotaThreshold is the remaining-request count under which ThrottleIfLow waits.
const lowQuotaThreshold = 20

// RateLimiter is an advisory pre-flight check on the core API quota. It does not
// serialize requests: workers may still exhaust the quota concurrently, which the
// paginated fetcher handles on its own.
type RateLimiter struct {
	client    *Client
	threshold int
}

// NewRateLimiter creates a RateLimiter that queries quota through client.
func NewRateLimiter(client *Client) *RateLimiter {
	return &RateLimiter{client: client, threshold: lowQuotaThreshold}
}

// Check returns the remaining core requests and the instant the quota resets.
func (r *RateLimiter) Check(ctx context.Context) (int, time.Time, error) {
	limits, _, err := r.client.gh.RateLimit.Get(ctx)
	if err != nil {
		return 0, time.Time{}, err
	}
	core := limits.GetCore()
	if core == nil {
		return 0, time.Time{}, errors.New("rate limit response has no core quota")
	}
	return core.Remaining, core.Reset.Time, nil
}

// ThrottleIfLow sleeps until the quota resets (plus buffer) when fewer than the threshold
// requests remain. A failed quota check is logged and treated as "no wait".
func (r *RateLimiter) ThrottleIfLow(ctx context.Context) error {
	remaining, reset, err := r.Check(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.client.logger.Warn("Could not check rate limit, continuing", "error", err)
		return nil
	}
	if remaining >= r.threshold {
		return nil
	}

	wait := r.client.untilReset(reset)
	r.client.logger.Info("Rate limit low, waiting for reset", "remaining", remaining, "wait", wait.String())
	return r.client.sleep(ctx, wait)
}
