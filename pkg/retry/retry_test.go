package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Policy{Attempts: 3, Delay: time.Millisecond}.Do(context.Background(),
		func(ctx context.Context) error {
			calls++
			return nil
		})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Policy{Attempts: 3, Delay: time.Millisecond}.Do(context.Background(),
		func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("not yet")
			}
			return nil
		})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	boom := errors.New("restart failed")
	calls := 0
	err := Policy{Attempts: 3, Delay: time.Millisecond}.Do(context.Background(),
		func(ctx context.Context) error {
			calls++
			return boom
		})
	assert.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, 3, calls)
}

func TestDoAbortsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Policy{Attempts: 3, Delay: time.Minute}.Do(ctx,
		func(ctx context.Context) error {
			calls++
			cancel() // cancel during the first inter-attempt wait
			return errors.New("keep going")
		})
	assert.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, calls, "remaining retries must be abandoned")
}
