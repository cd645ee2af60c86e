package spot

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = time.Second
)

// RetryPolicy bounds ExecuteWithRetry
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: DefaultRetryAttempts,
		Delay:    DefaultRetryDelay,
	}
}

type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retrier carries the policy, logger and sleep hook shared by every provider call
type Retrier struct {
	policy RetryPolicy
	logger zerolog.Logger
	sleep  sleepFunc
}

func NewRetrier(policy RetryPolicy, logger zerolog.Logger) *Retrier {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	return &Retrier{
		policy: policy,
		logger: logger,
		sleep:  sleepContext,
	}
}

// ExecuteWithRetry runs call until it returns a result that is neither an error nor falsy.
// A nil falsy accepts every successful result. Once the attempts are spent the last
// failure is raised as a NonRecoverableError naming the call.
func ExecuteWithRetry[T any](ctx context.Context, r *Retrier, name string, call func(context.Context) (T, error), falsy func(T) bool) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= r.policy.Attempts; attempt++ {
		if attempt > 1 {
			if err := r.sleep(ctx, r.policy.Delay); err != nil {
				return zero, nonRecoverable(name, err)
			}
		}

		result, err := call(ctx)
		if err == nil && (falsy == nil || !falsy(result)) {
			return result, nil
		}

		if err == nil {
			err = fmt.Errorf("%s returned an empty result", name)
		}
		lastErr = err

		r.logger.Warn().
			Err(err).
			Str("call", name).
			Int("attempt", attempt).
			Int("attempts", r.policy.Attempts).
			Msg("Provider call failed")
	}

	return zero, nonRecoverable(name, lastErr)
}
