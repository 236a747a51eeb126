// Package retry runs an operation under a bounded exponential-backoff policy.
//
// The schedule has no jitter: the wait after attempt n is
//
//	min(MaxDelay, InitialDelay * Multiplier^(n-1))
//
// and only errors accepted by the caller's predicate are retried.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy is the retry schedule. The zero value makes a single attempt.
type Policy struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration // 0 => uncapped
	MaxAttempts  int           // total attempts including the first; <= 0 => 1
}

// DefaultPolicy is used when a caller leaves the policy unset.
func DefaultPolicy() Policy {
	return Policy{
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     2 * time.Second,
		MaxAttempts:  3,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	if p.InitialDelay < 0 {
		p.InitialDelay = 0
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = time.Duration(math.MaxInt64)
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	return p
}

// Delay is the wait after the n-th failed attempt (n >= 1).
func (p Policy) Delay(n int) time.Duration {
	p = p.normalized()
	if n < 1 {
		n = 1
	}
	d := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(n-1))
	if d >= float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Budget is the total time spent sleeping if every attempt fails.
func (p Policy) Budget() time.Duration {
	p = p.normalized()
	var total time.Duration
	for n := 1; n < p.MaxAttempts; n++ {
		total += p.Delay(n)
	}
	return total
}

func (p Policy) backOff() backoff.BackOff {
	p = p.normalized()
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.InitialDelay,
		RandomizationFactor: 0,
		Multiplier:          p.Multiplier,
		MaxInterval:         p.MaxDelay,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))
}

// NotifyFunc is called before each backoff sleep with the attempt that just
// failed, the upcoming delay and the failure.
type NotifyFunc func(attempt int, delay time.Duration, err error)

// ExhaustedError is returned when every attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Do runs op until it succeeds, fails with a non-retryable error, or the
// policy runs out of attempts. It returns the number of attempts made.
//
// A non-retryable error is returned as is. Running out of attempts returns
// *ExhaustedError wrapping the last error. The backoff sleep is abandoned
// when ctx is done, returning ctx.Err().
func Do(ctx context.Context, p Policy, retryable func(error) bool, op func(context.Context) error, notify NotifyFunc) (int, error) {
	attempts := 0
	err := backoff.RetryNotify(func() error {
		attempts++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if retryable == nil || !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(p.backOff(), ctx), func(err error, d time.Duration) {
		if notify != nil {
			notify(attempts, d, err)
		}
	})
	if err == nil {
		return attempts, nil
	}
	if retryable != nil && retryable(err) {
		return attempts, &ExhaustedError{Attempts: attempts, Err: err}
	}
	return attempts, err
}
