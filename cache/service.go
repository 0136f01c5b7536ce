package cache

import (
	"context"

	"github.com/goliatone/go-gridpool/pool"
)

// KeyPrefix namespaces every snapshot entry.
const KeyPrefix = "pool:"

// Key returns the cache key of the named pool.
func Key(name string) string {
	return KeyPrefix + name
}

// FetchFn is the function SnapshotCache calls on a miss.
type FetchFn func(ctx context.Context) (pool.Snapshot, error)

// SnapshotCache is a read-through cache of pool snapshots. Snapshots ask the
// servers which of them are online, so introspection endpoints read through
// it instead of pinging on every request.
type SnapshotCache interface {
	Get(ctx context.Context, name string, fetchFn FetchFn) (pool.Snapshot, error)
	Invalidate(ctx context.Context, name string) error
	InvalidateAll(ctx context.Context) error
}

// Nop returns a SnapshotCache that always fetches.
func Nop() SnapshotCache {
	return nopCache{}
}

type nopCache struct{}

func (nopCache) Get(ctx context.Context, _ string, fetchFn FetchFn) (pool.Snapshot, error) {
	return fetchFn(ctx)
}

func (nopCache) Invalidate(context.Context, string) error { return nil }

func (nopCache) InvalidateAll(context.Context) error { return nil }
