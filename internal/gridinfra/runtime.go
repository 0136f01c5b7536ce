package gridinfra

import (
	"context"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-gridpool/pool"
)

// ErrRuntimeClosed is returned by EnsureContext after Close.
var ErrRuntimeClosed = goerrors.New("client runtime is closed", goerrors.CategoryOperation).
	WithTextCode("RUNTIME_CLOSED")

// BootstrapFunc connects the client runtime. It runs until it succeeds once.
type BootstrapFunc func(ctx context.Context) error

// Runtime is the client-side runtime every pool lives in. It is bootstrapped
// lazily by the first pool creation and identified by a member id.
type Runtime struct {
	mu        sync.Mutex
	bootstrap BootstrapFunc
	logger    *zap.Logger
	memberID  string
	started   bool
	closed    bool
}

var _ pool.ContextProvider = (*Runtime)(nil)

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithBootstrap sets the function run on the first EnsureContext call.
func WithBootstrap(fn BootstrapFunc) RuntimeOption {
	return func(r *Runtime) {
		r.bootstrap = fn
	}
}

// WithRuntimeLogger sets the logger.
func WithRuntimeLogger(logger *zap.Logger) RuntimeOption {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRuntime returns a runtime that is not started yet.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	r := &Runtime{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EnsureContext starts the runtime on first use. A failed bootstrap is
// retried by the next call.
func (r *Runtime) EnsureContext(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRuntimeClosed
	}
	if r.started {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if r.bootstrap != nil {
		if err := r.bootstrap(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to bootstrap client runtime")
		}
	}

	r.memberID = uuid.NewString()
	r.started = true
	r.logger.Info("client runtime started", zap.String("member_id", r.memberID))
	return nil
}

// MemberID identifies the started runtime. It is empty before the first
// successful EnsureContext.
func (r *Runtime) MemberID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.memberID
}

// Started reports whether the runtime has been bootstrapped and not closed.
func (r *Runtime) Started() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started && !r.closed
}

// Close marks the runtime closed. Pools must be released before.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.started {
		r.logger.Info("client runtime closed", zap.String("member_id", r.memberID))
	}
	return nil
}

var defaults = sync.OnceValues(func() (*Runtime, *Registry) {
	return NewRuntime(), NewRegistry()
})

// Default returns the process-wide runtime and registry.
func Default() (*Runtime, *Registry) {
	return defaults()
}
