package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryUpsert_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := retryUpsert(context.Background(), nil, func() error {
		attempts++
		if attempts < 3 {
			return NewSinkError(SinkTransient, errTransientInjected)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryUpsert_GivesUpAfterMaxAttempts(t *testing.T) {
	attempts := 0
	err := retryUpsert(context.Background(), nil, func() error {
		attempts++
		return NewSinkError(SinkTransient, errTransientInjected)
	})
	assert.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.True(t, IsSinkTransient(err))
}

func TestRetryUpsert_PermanentFailureDoesNotRetry(t *testing.T) {
	attempts := 0
	permanentErr := NewSinkError(SinkPermanent, errAlreadyExists("idx"))
	err := retryUpsert(context.Background(), nil, func() error {
		attempts++
		return permanentErr
	})
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryUpsert_RespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	attempts := 0
	err := retryUpsert(ctx, nil, func() error {
		attempts++
		return NewSinkError(SinkTransient, errTransientInjected)
	})
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestNewSink_UnknownType(t *testing.T) {
	_, err := NewSink(&SinkConfig{Type: "not-a-real-backend"})
	assert.Error(t, err)
}
