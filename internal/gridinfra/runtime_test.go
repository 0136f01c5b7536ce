package gridinfra

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntime_EnsureContextStartsOnce(t *testing.T) {
	calls := 0
	r := NewRuntime(WithBootstrap(func(context.Context) error {
		calls++
		return nil
	}))
	ctx := context.Background()

	assert.Empty(t, r.MemberID())
	assert.False(t, r.Started())

	require.NoError(t, r.EnsureContext(ctx))
	id := r.MemberID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	require.NoError(t, r.EnsureContext(ctx))
	assert.Equal(t, id, r.MemberID())
	assert.Equal(t, 1, calls)
	assert.True(t, r.Started())
}

func TestRuntime_FailedBootstrapIsRetried(t *testing.T) {
	fail := true
	r := NewRuntime(WithBootstrap(func(context.Context) error {
		if fail {
			return errors.New("locator unreachable")
		}
		return nil
	}))
	ctx := context.Background()

	err := r.EnsureContext(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to bootstrap client runtime")
	assert.Empty(t, r.MemberID())

	fail = false
	require.NoError(t, r.EnsureContext(ctx))
	assert.NotEmpty(t, r.MemberID())
}

func TestRuntime_Closed(t *testing.T) {
	r := NewRuntime()
	require.NoError(t, r.EnsureContext(context.Background()))

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	assert.ErrorIs(t, r.EnsureContext(context.Background()), ErrRuntimeClosed)
	assert.False(t, r.Started())
}

func TestRuntime_CanceledContext(t *testing.T) {
	r := NewRuntime()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, r.EnsureContext(ctx), context.Canceled)
	assert.False(t, r.Started())
}

func TestDefault_IsProcessWide(t *testing.T) {
	r1, reg1 := Default()
	r2, reg2 := Default()

	assert.Same(t, r1, r2)
	assert.Same(t, reg1, reg2)
}
