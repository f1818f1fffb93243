package claimsender

import (
	"context"
	"time"
)

// RetryPolicy describes a fixed exponential backoff applied after each
// failed attempt: the n-th attempt, if it fails, is followed by a sleep of
// baseDelay * factor^(n-1) before the next attempt starts (or before giving
// up, if n was the last attempt).
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Factor      float64
}

// DefaultRetryPolicy is the claim sender's 1s/2s/4s, 3-attempt policy.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, Factor: 2}

// backoffAfter returns the sleep following a failed attempt n (1-indexed).
func (p RetryPolicy) backoffAfter(n int) time.Duration {
	d := float64(p.BaseDelay)
	for i := 1; i < n; i++ {
		d *= p.Factor
	}
	return time.Duration(d)
}

// sleepFunc abstracts time.Sleep so tests can run the policy without
// incurring real wall-clock delay.
type sleepFunc func(ctx context.Context, d time.Duration)

func realSleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// run invokes fn up to p.MaxAttempts times. Each failed attempt (including
// the last) is followed by the configured backoff sleep; the first nil
// error stops the loop immediately with no trailing sleep. It returns the
// last error (nil on eventual success) and the number of attempts made.
func (p RetryPolicy) run(ctx context.Context, sleep sleepFunc, fn func(attempt int) error) (error, int) {
	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err(), attempt - 1
		}
		err = fn(attempt)
		if err == nil {
			return nil, attempt
		}
		sleep(ctx, p.backoffAfter(attempt))
	}
	return err, p.MaxAttempts
}
