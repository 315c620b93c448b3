package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/code-payments/profile-client/pkg/retry/backoff"
)

func TestRealSleeper(t *testing.T) {
	sleeperImpl = realSleeper{}

	start := time.Now()
	n, err := Retry(func() error { return errors.New("err") },
		Limit(2),
		BackoffWithContext(context.Background(), backoff.Constant(500*time.Millisecond), 500*time.Millisecond),
	)

	assert.NotNil(t, err)
	assert.EqualValues(t, 2, n)
	assert.True(t, 500*time.Millisecond <= time.Since(start))
	assert.True(t, 1*time.Second > time.Since(start))
}

func TestRetrier(t *testing.T) {
	retriableErr := errors.New("retriable")
	r := NewRetrier(Limit(5), RetriableErrors(retriableErr))

	// Happy path always goes through
	attempts, err := r.Retry(func() error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, uint(1), attempts)

	// Test ordering does not matter, by triggering 1 filter, then the other.
	attempts, err = r.Retry(func() error { return errors.New("unknown") })
	assert.Error(t, err)
	assert.Equal(t, uint(1), attempts)

	attempts, err = r.Retry(func() error { return retriableErr })
	assert.EqualError(t, retriableErr, err.Error())
	assert.Equal(t, uint(5), attempts)
}

func TestPoll(t *testing.T) {
	ts := &testSleeper{}
	sleeperImpl = ts

	// Succeeds after a few attempts
	var calls int
	attempts, err := Poll(context.Background(), func() error {
		calls++
		if calls < 4 {
			return errors.New("pending")
		}
		return nil
	}, 10*time.Millisecond)
	assert.NoError(t, err)
	assert.EqualValues(t, 4, attempts)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 10 * time.Millisecond, 10 * time.Millisecond}, ts.sleepTimes)

	// Terminal errors stop polling
	errTerminal := errors.New("terminal")
	_, err = Poll(context.Background(), func() error {
		return errTerminal
	}, 10*time.Millisecond, NonRetriableErrors(errTerminal))
	assert.Equal(t, errTerminal, err)
}

func TestPoll_Deadline(t *testing.T) {
	sleeperImpl = realSleeper{}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	errPending := errors.New("pending")

	start := time.Now()
	_, err := Poll(ctx, func() error {
		return errPending
	}, 10*time.Millisecond)

	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.True(t, time.Since(start) < time.Second)

	var pe interface{ LastError() error }
	if assert.True(t, errors.As(err, &pe)) {
		assert.Equal(t, errPending, pe.LastError())
	}

	// An already expired context never invokes the action
	var calls int
	_, err = Poll(ctx, func() error {
		calls++
		return nil
	}, 10*time.Millisecond)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 0, calls)
}
