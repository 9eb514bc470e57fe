package llm

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// RetryProvider retries transient failures with exponential backoff and
// jitter. Output that fails the schema gets one more attempt. No wait
// exceeds MaxWait, a server's Retry-After included.
type RetryProvider struct {
	inner  Provider
	config RetryConfig
}

// WithRetry wraps p with retry logic.
func WithRetry(p Provider, cfg RetryConfig) Provider {
	cfg.MaxAttempts = max(cfg.MaxAttempts, 1)
	return &RetryProvider{inner: p, config: cfg}
}

func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	lastAttempt := r.config.MaxAttempts - 1
	invalidSeen := false
	for attempt := 0; ; attempt++ {
		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		if attempt == lastAttempt || !shouldRetry(err, &invalidSeen) {
			return nil, err
		}

		timer := time.NewTimer(r.wait(attempt, err))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *RetryProvider) ModelID() string {
	return r.inner.ModelID()
}

// shouldRetry reports whether err is worth another attempt. invalidSeen
// tracks the single retry allowed for schema violations.
func shouldRetry(err error, invalidSeen *bool) bool {
	var (
		maxTok *ErrMaxTokensExceeded
		inv    *ErrInvalidResponse
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, ErrNotConfigured):
		return false
	case errors.As(err, &maxTok):
		// A longer answer will not fit in the same budget.
		return false
	case errors.As(err, &inv):
		retry := !*invalidSeen
		*invalidSeen = true
		return retry
	default:
		return true
	}
}

func (r *RetryProvider) wait(attempt int, err error) time.Duration {
	limit := float64(r.config.MaxWait)

	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		if limit > 0 {
			return min(rl.RetryAfter, r.config.MaxWait)
		}
		return rl.RetryAfter
	}

	d := float64(r.config.InitialWait) * math.Pow(r.config.Multiplier, float64(attempt))
	if limit > 0 {
		d = math.Min(d, limit)
	}
	d *= 0.8 + 0.4*rand.Float64()
	return time.Duration(d)
}
