package cacheinfra

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1024, cfg.Capacity)
	assert.Equal(t, 16, cfg.NumShards)
	assert.Equal(t, 5*time.Second, cfg.TTL)
	assert.Nil(t, cfg.EarlyRefresh, "early refresh should be disabled by default")
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero capacity",
			mutate:  func(c *Config) { c.Capacity = 0 },
			wantErr: "config error in field Capacity: must be greater than 0",
		},
		{
			name:    "zero shards",
			mutate:  func(c *Config) { c.NumShards = 0 },
			wantErr: "config error in field NumShards: must be greater than 0",
		},
		{
			name:    "zero ttl",
			mutate:  func(c *Config) { c.TTL = 0 },
			wantErr: "config error in field TTL: must be greater than 0",
		},
		{
			name:    "eviction percentage above 100",
			mutate:  func(c *Config) { c.EvictionPercentage = 101 },
			wantErr: "config error in field EvictionPercentage: must be between 1 and 100",
		},
		{
			name: "early refresh max below min",
			mutate: func(c *Config) {
				c.EarlyRefresh = &EarlyRefreshConfig{MinAsyncRefreshTime: time.Second, MaxAsyncRefreshTime: time.Millisecond}
			},
			wantErr: "config error in field EarlyRefresh.MaxAsyncRefreshTime: must not be lower than MinAsyncRefreshTime",
		},
		{
			name: "negative retry delay",
			mutate: func(c *Config) {
				c.EarlyRefresh = &EarlyRefreshConfig{RetryBaseDelay: -time.Second}
			},
			wantErr: "config error in field EarlyRefresh.RetryBaseDelay: must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.EqualError(t, err, tt.wantErr)

			var cfgErr *ConfigError
			assert.True(t, errors.As(err, &cfgErr), "expected *ConfigError, got %T", err)
		})
	}
}

func TestConfig_ToSturdycOptions(t *testing.T) {
	cfg := DefaultConfig()
	assert.Empty(t, cfg.ToSturdycOptions(), "default config needs no options")

	cfg.EarlyRefresh = &EarlyRefreshConfig{
		MinAsyncRefreshTime: time.Second,
		MaxAsyncRefreshTime: 2 * time.Second,
		SyncRefreshTime:     3 * time.Second,
		RetryBaseDelay:      10 * time.Millisecond,
	}
	cfg.EvictionInterval = time.Minute
	assert.Len(t, cfg.ToSturdycOptions(), 2)
}

func TestNewService_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Capacity = 0

	service, err := NewService[string](cfg)
	require.Error(t, err)
	assert.Nil(t, service)
}

func TestService_GetOrFetch(t *testing.T) {
	service, err := NewService[string](DefaultConfig())
	require.NoError(t, err)
	ctx := context.Background()

	calls := 0
	fetch := func(context.Context) (string, error) {
		calls++
		return "created", nil
	}

	for i := 0; i < 3; i++ {
		got, err := service.GetOrFetch(ctx, "pool:orders", fetch)
		require.NoError(t, err)
		assert.Equal(t, "created", got)
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, service.Size())
}

func TestService_GetOrFetch_ErrorsAreNotCached(t *testing.T) {
	service, err := NewService[string](DefaultConfig())
	require.NoError(t, err)
	ctx := context.Background()

	fetchErr := errors.New("servers unreachable")
	calls := 0
	fetch := func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", fetchErr
		}
		return "discovered", nil
	}

	_, err = service.GetOrFetch(ctx, "pool:orders", fetch)
	require.ErrorIs(t, err, fetchErr)

	got, err := service.GetOrFetch(ctx, "pool:orders", fetch)
	require.NoError(t, err)
	assert.Equal(t, "discovered", got)
}

func TestService_Delete(t *testing.T) {
	service, err := NewService[int](DefaultConfig())
	require.NoError(t, err)
	ctx := context.Background()

	calls := 0
	fetch := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	first, _ := service.GetOrFetch(ctx, "pool:orders", fetch)
	require.NoError(t, service.Delete(ctx, "pool:orders"))
	second, _ := service.GetOrFetch(ctx, "pool:orders", fetch)

	assert.NotEqual(t, first, second, "expected a fresh value after delete")
}

func TestService_DeleteByPrefix(t *testing.T) {
	service, err := NewService[int](DefaultConfig())
	require.NoError(t, err)
	ctx := context.Background()

	value := func(context.Context) (int, error) { return 1, nil }
	for _, key := range []string{"pool:orders", "pool:payments", "runtime:member"} {
		_, err := service.GetOrFetch(ctx, key, value)
		require.NoError(t, err)
	}

	require.NoError(t, service.DeleteByPrefix(ctx, "pool:"))
	assert.Equal(t, 1, service.Size(), "only the non matching key should remain")
}
