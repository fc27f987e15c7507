package await

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/encryptme/core"
)

func TestWithTimeoutReturnsResult(t *testing.T) {
	got, err := WithTimeout(context.Background(), time.Second, func(context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestWithTimeoutPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	_, err := WithTimeout(context.Background(), time.Second, func(context.Context) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, core.ErrTimeout)
}

func TestWithTimeoutElapses(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	_, err := WithTimeout(context.Background(), 20*time.Millisecond, func(context.Context) (bool, error) {
		<-release
		return true, nil
	})
	assert.ErrorIs(t, err, core.ErrTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWithTimeoutParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := WithTimeout(ctx, time.Second, func(ctx context.Context) (bool, error) {
		<-ctx.Done()
		return false, ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, core.ErrTimeout)
}

func TestWithTimeoutDisabled(t *testing.T) {
	got, err := WithTimeout(context.Background(), 0, func(context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}
