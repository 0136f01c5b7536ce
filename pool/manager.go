package pool

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"go.uber.org/zap"
)

// ErrDestroyed is returned when resolving a handle whose pool was already destroyed.
var ErrDestroyed = goerrors.New("pool has been destroyed", goerrors.CategoryOperation).
	WithTextCode("POOL_DESTROYED")

// Manager resolves named pools against a registry, creating and owning the
// ones that do not exist yet.
//
// The discover-then-create sequence is not locked across handles. Two
// resolvers racing on the same name both create a pool, but only the first
// one registered survives: the loser destroys its pool and references the
// winner's.
type Manager struct {
	registry    Registry
	runtime     ContextProvider
	newFactory  FactoryFunc
	configurers []Configurer
	logger      *zap.Logger
	metrics     *Metrics
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics sets the lifecycle counters.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithConfigurers appends configurers run, in order, before a pool is created.
func WithConfigurers(configurers ...Configurer) Option {
	return func(m *Manager) {
		for _, c := range configurers {
			if c != nil {
				m.configurers = append(m.configurers, c)
			}
		}
	}
}

// NewManager returns a Manager resolving pools in registry, bootstrapping the
// client runtime through runtime and building new pools from newFactory.
func NewManager(registry Registry, runtime ContextProvider, newFactory FactoryFunc, opts ...Option) (*Manager, error) {
	switch {
	case registry == nil:
		return nil, goerrors.New("pool registry is required", goerrors.CategoryValidation)
	case runtime == nil:
		return nil, goerrors.New("context provider is required", goerrors.CategoryValidation)
	case newFactory == nil:
		return nil, goerrors.New("factory func is required", goerrors.CategoryValidation)
	}

	m := &Manager{
		registry:   registry,
		runtime:    runtime,
		newFactory: newFactory,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Registry returns the registry the manager resolves against.
func (m *Manager) Registry() Registry {
	return m.registry
}

// ResolveOption customizes a single resolution.
type ResolveOption func(*resolveOptions)

type resolveOptions struct {
	fallbackName string
	initializer  Initializer
}

// WithFallbackName names the pool when the configuration has no name,
// typically the identifier the pool was declared under.
func WithFallbackName(name string) ResolveOption {
	return func(o *resolveOptions) {
		o.fallbackName = name
	}
}

// WithInitializer registers a hook run on the factory after the configuration
// was applied and before the pool is created.
func WithInitializer(fn Initializer) ResolveOption {
	return func(o *resolveOptions) {
		o.initializer = fn
	}
}

// Prepare declares a pool without resolving it.
func (m *Manager) Prepare(cfg Config, opts ...ResolveOption) *Handle {
	var o resolveOptions
	for _, opt := range opts {
		opt(&o)
	}
	return newHandle(cfg, o)
}

// Resolve declares and resolves a pool in one step.
func (m *Manager) Resolve(ctx context.Context, cfg Config, opts ...ResolveOption) (*Handle, error) {
	h := m.Prepare(cfg, opts...)
	if err := m.ResolveHandle(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// ResolveHandle resolves h. A pool already registered under the name is
// reused as is; otherwise a new pool is configured, created and registered.
// Resolving a resolved handle is a no-op.
func (m *Manager) ResolveHandle(ctx context.Context, h *Handle) error {
	if h == nil {
		return goerrors.New("pool handle is required", goerrors.CategoryValidation)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.state {
	case StateDiscovered, StateCreated:
		return nil
	case StateDestroyed:
		return ErrDestroyed
	}

	name := h.candidateName()
	if name == "" {
		m.metrics.resolved("invalid")
		return newNameRequiredError()
	}

	logger := m.logger.With(zap.String("pool", name))

	if existing, ok := m.registry.Find(name); ok {
		logger.Debug("pool already exists, using existing pool; configurers will not be applied")
		h.bind(name, existing, StateDiscovered)
		m.metrics.resolved("discovered")
		return nil
	}

	logger.Debug("pool not found, creating new pool")

	native, cfg, err := m.create(ctx, name, h)
	if err != nil {
		if IsNativeCreationError(err) {
			m.metrics.creationFailed()
		} else {
			m.metrics.resolved("invalid")
		}
		return err
	}

	actual, loaded := m.registry.Register(name, native)
	if loaded {
		logger.Warn("pool was registered concurrently, discarding the pool created here")
		if derr := native.Destroy(ctx, false); derr != nil {
			logger.Warn("failed to destroy discarded pool", zap.Error(derr))
		}
		h.bind(name, actual, StateDiscovered)
		m.metrics.resolved("discovered")
		return nil
	}

	h.cfg = cfg
	h.bind(name, native, StateCreated)
	m.metrics.resolved("created")
	logger.Debug("created pool",
		zap.Strings("locators", EndpointStrings(cfg.Locators)),
		zap.Strings("servers", EndpointStrings(cfg.Servers)),
	)
	return nil
}

func (m *Manager) create(ctx context.Context, name string, h *Handle) (NativePool, Config, error) {
	cfg := h.cfg.Normalize()
	cfg.Name = name
	for _, c := range m.configurers {
		c(name, &cfg)
	}
	cfg = cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, cfg, err
	}

	if err := m.runtime.EnsureContext(ctx); err != nil {
		return nil, cfg, newCreationError(name, err)
	}

	factory := m.newFactory()
	if factory == nil {
		return nil, cfg, newCreationError(name, errors.New("factory func returned no factory"))
	}

	configure(factory, cfg)

	if h.initializer != nil {
		if initialized := h.initializer(factory); initialized != nil {
			factory = initialized
		}
	}

	native, err := factory.Create(ctx, name)
	if err != nil {
		return nil, cfg, newCreationError(name, err)
	}
	if native == nil {
		return nil, cfg, newCreationError(name, errors.New("factory created no pool"))
	}
	return native, cfg, nil
}

// Release destroys the pool behind h when this process owns it. It is the
// shutdown path: destroy failures are logged and swallowed, and calling it on
// an unmanaged or destroyed handle does nothing.
func (m *Manager) Release(ctx context.Context, h *Handle) {
	if h == nil {
		return
	}
	if err := m.teardown(ctx, h, nil); err != nil {
		m.metrics.teardownFailed("release")
		m.logger.Warn("failed to release pool", zap.String("pool", h.Name()), zap.Error(err))
	}
}

// Destroy is the explicit teardown of an owned pool. Unlike Release it returns
// the destroy failure, leaving the handle in the created state, and refuses
// discovered pools with ErrNotManaged.
func (m *Manager) Destroy(ctx context.Context, h *Handle, keepAlive bool) error {
	if h == nil {
		return nil
	}
	if h.State() == StateDiscovered {
		return ErrNotManaged
	}
	err := m.teardown(ctx, h, &keepAlive)
	if err != nil {
		m.metrics.teardownFailed("destroy")
	}
	return err
}

func (m *Manager) teardown(ctx context.Context, h *Handle, keepAlive *bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != StateCreated || h.native == nil {
		return nil
	}

	native := h.native
	logger := m.logger.With(zap.String("pool", h.name))

	if native.Destroyed() {
		m.registry.Remove(h.name, native)
		h.markDestroyed()
		logger.Debug("pool was already destroyed")
		return nil
	}

	keep := h.cfg.KeepAlive
	if keepAlive != nil {
		keep = *keepAlive
	}

	native.ReleaseThreadLocalConnection()
	if err := native.Destroy(ctx, keep); err != nil {
		return newTeardownError(h.name, err)
	}

	m.registry.Remove(h.name, native)
	h.markDestroyed()
	m.metrics.destroyedPool()
	logger.Debug("destroyed pool", zap.Bool("keep_alive", keep))
	return nil
}

func (h *Handle) bind(name string, native NativePool, state State) {
	h.name = name
	h.native = native
	h.state = state
}

func (h *Handle) markDestroyed() {
	h.native = nil
	h.state = StateDestroyed
}
