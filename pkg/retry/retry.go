package retry

import (
	"context"
	"time"

	"github.com/code-payments/profile-client/pkg/retry/backoff"
)

// Action is a function to be performed in a retriable manner.
type Action func() error

// Retrier retries the provided action.
type Retrier interface {
	Retry(action Action) (uint, error)
}

type retrier struct {
	strategies []Strategy
}

// NewRetrier returns a Retrier that will retry actions based off of the
// provided strategies. If no strategies are provided, the retrier acts
// as a tight-loop, retrying until no error is returned from the action.
func NewRetrier(strategies ...Strategy) Retrier {
	return &retrier{
		strategies: strategies,
	}
}

func (r *retrier) Retry(action Action) (uint, error) {
	return Retry(action, r.strategies...)
}

// Retry executes the provided action, potentially multiple times based off of
// the provided strategies. Retry will block until the action is successful, or
// one of the provided strategies indicate no further retries should be performed.
//
// The strategies are executed in the provided order, so any strategies that
// induce delays should be specified last.
func Retry(action Action, strategies ...Strategy) (uint, error) {
	for i := uint(1); ; i++ {
		err := action()
		if err == nil {
			return i, nil
		}

		for _, s := range strategies {
			if shouldRetry := s(i, err); !shouldRetry {
				return i, err
			}
		}
	}
}

// Poll executes the provided action until it succeeds, ctx is done, or one of
// the provided strategies indicates it should not be retried. Attempts are
// spaced by interval.
//
// If ctx ends the loop, the returned error wraps ctx.Err() along with the last
// error returned by the action, so callers can tell a timeout apart from a
// terminal failure.
func Poll(ctx context.Context, action Action, interval time.Duration, strategies ...Strategy) (uint, error) {
	all := make([]Strategy, 0, len(strategies)+2)
	all = append(all, Context(ctx))
	all = append(all, strategies...)
	all = append(all, BackoffWithContext(ctx, backoff.Constant(interval), interval))

	var lastErr error
	attempts, err := Retry(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = action()
		return lastErr
	}, all...)

	if ctxErr := ctx.Err(); ctxErr != nil && err != nil && lastErr != nil {
		return attempts, &pollError{ctxErr: ctxErr, lastErr: lastErr}
	}

	return attempts, err
}

type pollError struct {
	ctxErr  error
	lastErr error
}

func (e *pollError) Error() string {
	return e.ctxErr.Error() + ": " + e.lastErr.Error()
}

func (e *pollError) Unwrap() error {
	return e.ctxErr
}

// LastError returns the last error produced by the polled action.
func (e *pollError) LastError() error {
	return e.lastErr
}
