// Package cache caches pool snapshots for introspection.
//
// A snapshot reports a pool's settings, connection counters and the servers
// answering right now. Collecting the last part means a round trip to every
// server, so readers go through a SnapshotCache:
//
//	snapshots, err := cache.NewSnapshotCache(cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//
//	snap, err := snapshots.Get(ctx, h.Name(), func(ctx context.Context) (pool.Snapshot, error) {
//		return h.Snapshot(ctx), nil
//	})
//
// Entries are keyed by pool name under KeyPrefix. Invalidate a pool whenever
// its lifecycle state changes; InvalidateAll drops every snapshot.
//
// Use Nop when caching is disabled.
package cache
