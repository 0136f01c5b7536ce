package di

import (
	"context"
	"slices"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/goliatone/go-gridpool/cache"
	"github.com/goliatone/go-gridpool/internal/gridinfra"
	"github.com/goliatone/go-gridpool/pkg/config"
	"github.com/goliatone/go-gridpool/pkg/logging"
	"github.com/goliatone/go-gridpool/pool"
)

// Text codes of the errors returned by the container.
const (
	TextCodePoolNotFound  = "POOL_NOT_FOUND"
	TextCodePoolDuplicate = "POOL_DUPLICATE"
	TextCodeClosed        = "CONTAINER_CLOSED"
)

// ErrClosed is returned by every lifecycle call made after Close.
var ErrClosed = goerrors.New("container is closed", goerrors.CategoryOperation).
	WithTextCode(TextCodeClosed)

// Container provides dependency injection for the pool lifecycle components.
// It owns singleton instances of the registry, the client runtime, the
// manager and the snapshot cache, and keeps the declared pools by name.
type Container struct {
	logger      *zap.Logger
	registry    *gridinfra.Registry
	runtime     *gridinfra.Runtime
	ownsRuntime bool
	newFactory  pool.FactoryFunc
	configurers []pool.Configurer
	snapshots   cache.SnapshotCache
	prometheus  *prometheus.Registry
	manager     *pool.Manager

	mu      sync.Mutex
	handles map[string]*pool.Handle
	order   []string
	closed  bool
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger shared by every component.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRegistry replaces the pool registry, e.g. with the process-wide one
// returned by gridinfra.Default.
func WithRegistry(registry *gridinfra.Registry) Option {
	return func(c *Container) {
		if registry != nil {
			c.registry = registry
		}
	}
}

// WithRuntime replaces the client runtime. A runtime passed in is shared:
// Close leaves it open.
func WithRuntime(runtime *gridinfra.Runtime) Option {
	return func(c *Container) {
		if runtime != nil {
			c.runtime = runtime
		}
	}
}

// WithFactory replaces the native pool factory. The default builds redis pools.
func WithFactory(newFactory pool.FactoryFunc) Option {
	return func(c *Container) {
		if newFactory != nil {
			c.newFactory = newFactory
		}
	}
}

// WithConfigurers registers configurers applied to every created pool.
func WithConfigurers(configurers ...pool.Configurer) Option {
	return func(c *Container) {
		c.configurers = append(c.configurers, configurers...)
	}
}

// WithSnapshotCache sets the cache used by Snapshot and Snapshots.
func WithSnapshotCache(snapshots cache.SnapshotCache) Option {
	return func(c *Container) {
		if snapshots != nil {
			c.snapshots = snapshots
		}
	}
}

// WithPrometheusRegistry sets the registry the lifecycle counters are
// registered with and that Gatherer exposes.
func WithPrometheusRegistry(reg *prometheus.Registry) Option {
	return func(c *Container) {
		if reg != nil {
			c.prometheus = reg
		}
	}
}

// NewContainer creates a container. Components not set through options get
// fresh defaults: a private registry and runtime, a redis factory, no
// snapshot caching and a nop logger. Only a runtime created here is closed
// by Close.
func NewContainer(opts ...Option) (*Container, error) {
	c := &Container{
		logger:    logging.Nop(),
		registry:  gridinfra.NewRegistry(),
		snapshots: cache.Nop(),
		handles:   make(map[string]*pool.Handle),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.runtime == nil {
		c.runtime = gridinfra.NewRuntime(gridinfra.WithRuntimeLogger(c.logger))
		c.ownsRuntime = true
	}
	if c.newFactory == nil {
		c.newFactory = gridinfra.RedisFactoryFunc(gridinfra.WithRedisLogger(c.logger))
	}
	if c.prometheus == nil {
		c.prometheus = prometheus.NewRegistry()
		c.prometheus.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	manager, err := pool.NewManager(c.registry, c.runtime, c.newFactory,
		pool.WithLogger(c.logger),
		pool.WithMetrics(pool.NewMetrics(c.prometheus)),
		pool.WithConfigurers(c.configurers...),
	)
	if err != nil {
		return nil, err
	}
	c.manager = manager
	return c, nil
}

// NewContainerWithDefaults creates a container bound to the process-wide
// registry and runtime. Closing the container releases its own pools and
// leaves the shared runtime running for the other containers.
func NewContainerWithDefaults(opts ...Option) (*Container, error) {
	runtime, registry := gridinfra.Default()
	return NewContainer(append([]Option{WithRuntime(runtime), WithRegistry(registry)}, opts...)...)
}

// NewContainerFromConfig builds the logger, snapshot cache and redis factory
// described by cfg and declares every configured pool. Options are applied
// after the configured components and may replace them.
func NewContainerFromConfig(cfg config.Config, opts ...Option) (*Container, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	base := []Option{WithLogger(logger)}

	if cfg.Cache.Enabled {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.Capacity = cfg.Cache.Capacity
		cacheCfg.TTL = cfg.Cache.TTL
		snapshots, err := cache.NewSnapshotCache(cacheCfg)
		if err != nil {
			return nil, err
		}
		base = append(base, WithSnapshotCache(snapshots))
	}

	redisOpts := []gridinfra.RedisOption{gridinfra.WithRedisLogger(logger)}
	if cfg.Redis.DialRate > 0 {
		redisOpts = append(redisOpts, gridinfra.WithDialRate(rate.Limit(cfg.Redis.DialRate), cfg.Redis.DialBurst))
	}
	base = append(base, WithFactory(gridinfra.RedisFactoryFunc(redisOpts...)))

	c, err := NewContainer(append(base, opts...)...)
	if err != nil {
		return nil, err
	}

	for _, p := range cfg.Pools {
		if _, err := c.Register(p); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Logger returns the shared logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Manager returns the singleton pool manager.
func (c *Container) Manager() *pool.Manager {
	return c.manager
}

// Registry returns the registry pools are resolved against.
func (c *Container) Registry() *gridinfra.Registry {
	return c.registry
}

// Runtime returns the client runtime.
func (c *Container) Runtime() *gridinfra.Runtime {
	return c.runtime
}

// Gatherer exposes the lifecycle counters for scraping.
func (c *Container) Gatherer() prometheus.Gatherer {
	return c.prometheus
}

// Register declares a pool without resolving it. The handle is keyed by the
// configured name, or the fallback name given through opts.
func (c *Container) Register(cfg pool.Config, opts ...pool.ResolveOption) (*pool.Handle, error) {
	h := c.manager.Prepare(cfg, opts...)
	name := h.Name()
	if name == "" {
		return nil, goerrors.New("pool name is required", goerrors.CategoryValidation).
			WithTextCode(pool.TextCodeNameRequired)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if _, ok := c.handles[name]; ok {
		return nil, goerrors.New("pool is already registered", goerrors.CategoryConflict).
			WithTextCode(TextCodePoolDuplicate).
			WithMetadata(map[string]any{"pool": name})
	}

	c.handles[name] = h
	c.order = append(c.order, name)
	c.logger.Debug("registered pool", zap.String("pool", name))
	return h, nil
}

// Handle returns the handle declared under name.
func (c *Container) Handle(name string) (*pool.Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.handles[name]
	return h, ok
}

// Names lists the declared pools in registration order.
func (c *Container) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.order)
}

// Pool resolves the pool declared under name on first use.
func (c *Container) Pool(ctx context.Context, name string) (*pool.Handle, error) {
	h, err := c.Lookup(name)
	if err != nil {
		return nil, err
	}

	err = c.manager.ResolveHandle(ctx, h)
	c.invalidate(ctx, name)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// ResolveAll resolves every declared pool in registration order and returns
// the joined failures.
func (c *Container) ResolveAll(ctx context.Context) error {
	var errs []error
	for _, name := range c.Names() {
		if _, err := c.Pool(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}
	return goerrors.Join(errs...)
}

// Destroy explicitly tears down the pool declared under name. Teardown
// failures are returned and the pool stays in place.
func (c *Container) Destroy(ctx context.Context, name string, keepAlive bool) error {
	h, err := c.Lookup(name)
	if err != nil {
		return err
	}

	err = c.manager.Destroy(ctx, h, keepAlive)
	c.invalidate(ctx, name)
	return err
}

// Snapshot returns the cached snapshot of the pool declared under name.
func (c *Container) Snapshot(ctx context.Context, name string) (pool.Snapshot, error) {
	h, ok := c.Handle(name)
	if !ok {
		return pool.Snapshot{}, notFound(name)
	}
	return c.snapshots.Get(ctx, name, func(ctx context.Context) (pool.Snapshot, error) {
		return h.Snapshot(ctx), nil
	})
}

// Snapshots returns the snapshots of every declared pool in registration order.
func (c *Container) Snapshots(ctx context.Context) ([]pool.Snapshot, error) {
	names := c.Names()
	out := make([]pool.Snapshot, 0, len(names))
	for _, name := range names {
		snap, err := c.Snapshot(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

// Close releases every declared pool in reverse registration order and
// closes the client runtime when the container created it. Release failures
// are logged, not returned.
// Calling Close again does nothing.
func (c *Container) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	handles := make([]*pool.Handle, 0, len(c.order))
	for i := len(c.order) - 1; i >= 0; i-- {
		handles = append(handles, c.handles[c.order[i]])
	}
	c.mu.Unlock()

	for _, h := range handles {
		c.manager.Release(ctx, h)
	}

	if err := c.snapshots.InvalidateAll(ctx); err != nil {
		c.logger.Warn("failed to clear snapshot cache", zap.Error(err))
	}
	if !c.ownsRuntime {
		return nil
	}
	return c.runtime.Close()
}

// Lookup returns the handle declared under name, a not found error for an
// unknown name, or ErrClosed after Close.
func (c *Container) Lookup(name string) (*pool.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	h, ok := c.handles[name]
	if !ok {
		return nil, notFound(name)
	}
	return h, nil
}

func (c *Container) invalidate(ctx context.Context, name string) {
	if err := c.snapshots.Invalidate(ctx, name); err != nil {
		c.logger.Warn("failed to invalidate pool snapshot", zap.String("pool", name), zap.Error(err))
	}
}

func notFound(name string) *goerrors.Error {
	return goerrors.New("pool is not registered", goerrors.CategoryNotFound).
		WithTextCode(TextCodePoolNotFound).
		WithMetadata(map[string]any{"pool": name})
}
