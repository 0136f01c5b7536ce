package gridinfra

import (
	"sort"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-gridpool/pool"
)

// Registry is the process-wide pool.Registry, backed by a concurrent map.
type Registry struct {
	pools *xsync.MapOf[string, pool.NativePool]
}

var _ pool.Registry = (*Registry)(nil)

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{pools: xsync.NewMapOf[string, pool.NativePool]()}
}

// Find returns the pool registered under name.
func (r *Registry) Find(name string) (pool.NativePool, bool) {
	return r.pools.Load(name)
}

// Register stores p under name unless a pool is already there, in which
// case the stored pool is returned with loaded set.
func (r *Registry) Register(name string, p pool.NativePool) (pool.NativePool, bool) {
	return r.pools.LoadOrStore(name, p)
}

// Remove deletes name only while it still maps to p, so a pool registered
// after p was destroyed is left alone.
func (r *Registry) Remove(name string, p pool.NativePool) bool {
	removed := false
	r.pools.Compute(name, func(old pool.NativePool, loaded bool) (pool.NativePool, bool) {
		if loaded && old == p {
			removed = true
			return nil, true
		}
		return old, !loaded
	})
	return removed
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, r.pools.Size())
	r.pools.Range(func(name string, _ pool.NativePool) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

// Len returns the number of registered pools.
func (r *Registry) Len() int {
	return r.pools.Size()
}
