package cache

import (
	"context"
	"time"

	"github.com/goliatone/go-gridpool/internal/cacheinfra"
	"github.com/goliatone/go-gridpool/pool"
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
	EarlyRefresh       *EarlyRefreshConfig
	EvictionInterval   time.Duration
}

// EarlyRefreshConfig mirrors the underlying sturdyc early refresh options.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// NewSnapshotCache constructs the sturdyc backed SnapshotCache.
func NewSnapshotCache(cfg Config) (SnapshotCache, error) {
	service, err := cacheinfra.NewService[pool.Snapshot](cfg.toInternal())
	if err != nil {
		return nil, err
	}
	return &snapshotCache{service: service}, nil
}

type snapshotCache struct {
	service *cacheinfra.Service[pool.Snapshot]
}

// Get returns the cached snapshot of name, fetching it on a miss.
func (c *snapshotCache) Get(ctx context.Context, name string, fetchFn FetchFn) (pool.Snapshot, error) {
	return c.service.GetOrFetch(ctx, Key(name), fetchFn)
}

// Invalidate drops the snapshot of name.
func (c *snapshotCache) Invalidate(ctx context.Context, name string) error {
	return c.service.Delete(ctx, Key(name))
}

// InvalidateAll drops every pool snapshot.
func (c *snapshotCache) InvalidateAll(ctx context.Context) error {
	return c.service.DeleteByPrefix(ctx, KeyPrefix)
}

func (c Config) toInternal() cacheinfra.Config {
	var early *cacheinfra.EarlyRefreshConfig
	if c.EarlyRefresh != nil {
		early = &cacheinfra.EarlyRefreshConfig{
			MinAsyncRefreshTime: c.EarlyRefresh.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: c.EarlyRefresh.MaxAsyncRefreshTime,
			SyncRefreshTime:     c.EarlyRefresh.SyncRefreshTime,
			RetryBaseDelay:      c.EarlyRefresh.RetryBaseDelay,
		}
	}

	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EarlyRefresh:       early,
		EvictionInterval:   c.EvictionInterval,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	var early *EarlyRefreshConfig
	if cfg.EarlyRefresh != nil {
		early = &EarlyRefreshConfig{
			MinAsyncRefreshTime: cfg.EarlyRefresh.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: cfg.EarlyRefresh.MaxAsyncRefreshTime,
			SyncRefreshTime:     cfg.EarlyRefresh.SyncRefreshTime,
			RetryBaseDelay:      cfg.EarlyRefresh.RetryBaseDelay,
		}
	}

	return Config{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EarlyRefresh:       early,
		EvictionInterval:   cfg.EvictionInterval,
	}
}
