package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/code-payments/profile-client/pkg/retry/backoff"
)

// Strategy decides whether an action is attempted again after it failed with
// err. Strategies may sleep before returning.
type Strategy func(attempts uint, err error) bool

// Limit allows at most maxAttempts attempts in total, including the first.
func Limit(maxAttempts uint) Strategy {
	return func(attempts uint, _ error) bool {
		return attempts < maxAttempts
	}
}

// RetriableErrors retries only errors matching one of retriable.
func RetriableErrors(retriable ...error) Strategy {
	return func(_ uint, err error) bool {
		return matchesAny(err, retriable)
	}
}

// NonRetriableErrors retries everything except errors matching one of
// nonRetriable.
func NonRetriableErrors(nonRetriable ...error) Strategy {
	return func(_ uint, err error) bool {
		return !matchesAny(err, nonRetriable)
	}
}

// Context stops retrying once ctx is done. List it ahead of any backoff so a
// cancelled context never sleeps.
func Context(ctx context.Context) Strategy {
	return func(uint, error) bool {
		return ctx.Err() == nil
	}
}

// BackoffWithJitter sleeps for the strategy's delay, capped at maxBackoff and
// then shifted by up to +/- jitter of itself. A jitter of 0.1 turns a 100ms
// delay into anything between 90ms and 110ms.
func BackoffWithJitter(strategy backoff.Strategy, maxBackoff time.Duration, jitter float64) Strategy {
	return func(attempts uint, _ error) bool {
		delay := float64(cappedDelay(strategy, attempts, maxBackoff))
		delay *= 1 + jitter*(2*rand.Float64()-1)
		return sleeperImpl.Sleep(context.Background(), time.Duration(delay))
	}
}

// BackoffWithContext sleeps for the strategy's delay, capped at maxBackoff. A
// done ctx cuts the sleep short and stops further retries.
func BackoffWithContext(ctx context.Context, strategy backoff.Strategy, maxBackoff time.Duration) Strategy {
	return func(attempts uint, _ error) bool {
		return sleeperImpl.Sleep(ctx, cappedDelay(strategy, attempts, maxBackoff))
	}
}

func cappedDelay(strategy backoff.Strategy, attempts uint, maxBackoff time.Duration) time.Duration {
	if delay := strategy(attempts); delay < maxBackoff {
		return delay
	}
	return maxBackoff
}

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

type sleeper interface {
	// Sleep returns false if ctx was done before d elapsed.
	Sleep(ctx context.Context, d time.Duration) bool
}

type realSleeper struct{}

func (realSleeper) Sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

var sleeperImpl sleeper = realSleeper{}
