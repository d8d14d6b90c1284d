package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phishbot/internal/common/logger"
)

var errTransient = errors.New("transient")

func TestWithBackoff_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	err := WithBackoff(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	}, 5, time.Millisecond, nil, logger.NewNoOpLogger(), "connectivity check")

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithBackoff_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := WithBackoff(context.Background(), func(ctx context.Context) error {
		calls++
		return errTransient
	}, 3, time.Millisecond, nil, logger.NewNoOpLogger(), "connectivity check")

	require.Error(t, err)
	assert.ErrorIs(t, err, errTransient)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.Equal(t, 3, calls)
}

func TestWithBackoff_NonRetryableStopsImmediately(t *testing.T) {
	permanent := errors.New("unauthorized")
	calls := 0
	err := WithBackoff(context.Background(), func(ctx context.Context) error {
		calls++
		return permanent
	}, 5, time.Millisecond, func(err error) bool { return !errors.Is(err, permanent) },
		logger.NewNoOpLogger(), "connectivity check")

	assert.Equal(t, permanent, err)
	assert.Equal(t, 1, calls)
}

func TestWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := WithBackoff(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return errTransient
	}, 5, time.Hour, nil, logger.NewNoOpLogger(), "connectivity check")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
