package pool

import (
	"context"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// State is the lifecycle position of a Handle.
type State int

const (
	StateUnresolved State = iota
	StateDiscovered
	StateCreated
	StateDestroyed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateDiscovered:
		return "discovered"
	case StateCreated:
		return "created"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for candidate := StateUnresolved; candidate <= StateDestroyed; candidate++ {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return goerrors.New("unknown pool state", goerrors.CategoryBadInput).
		WithMetadata(map[string]any{"state": string(text)})
}

// Handle tracks one named pool from declaration to teardown.
//
// A Discovered handle references a pool some other component created; it is
// never destroyed through this package. A Created handle owns its pool.
type Handle struct {
	mu sync.Mutex

	cfg          Config
	fallbackName string
	name         string
	initializer  Initializer

	state  State
	native NativePool
}

func newHandle(cfg Config, o resolveOptions) *Handle {
	return &Handle{
		cfg:          cfg.Normalize(),
		fallbackName: o.fallbackName,
		initializer:  o.initializer,
	}
}

// Name returns the resolved name, or the configured name (falling back to the
// fallback name) before resolution.
func (h *Handle) Name() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.name != "" {
		return h.name
	}
	return h.candidateName()
}

func (h *Handle) candidateName() string {
	if name := strings.TrimSpace(h.cfg.Name); name != "" {
		return name
	}
	return strings.TrimSpace(h.fallbackName)
}

// State returns the current lifecycle state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Managed reports whether this process created the pool and is responsible
// for destroying it.
func (h *Handle) Managed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state == StateCreated || h.state == StateDestroyed
}

// Native returns the live native pool.
func (h *Handle) Native() (NativePool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.native == nil {
		return nil, ErrNotInitialized
	}
	return h.native, nil
}

// Settings returns the effective configuration: the native pool's settings
// once resolved, the declared configuration otherwise.
func (h *Handle) Settings() Config {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.settings()
}

func (h *Handle) settings() Config {
	if h.native != nil {
		return h.native.Settings().Normalize()
	}
	cfg := h.cfg.Normalize()
	if cfg.Name == "" {
		cfg.Name = h.candidateName()
	}
	return cfg
}

// ServerGroup returns the effective server group.
func (h *Handle) ServerGroup() string {
	return h.Settings().ServerGroup
}

// Locators returns the effective locator endpoints.
func (h *Handle) Locators() []Endpoint {
	return h.Settings().Locators
}

// Servers returns the effective server endpoints.
func (h *Handle) Servers() []Endpoint {
	return h.Settings().Servers
}

// KeepAlive returns the effective keep-alive flag applied on teardown.
func (h *Handle) KeepAlive() bool {
	return h.Settings().KeepAlive
}

// MaxConnections returns the effective maximum number of connections.
func (h *Handle) MaxConnections() int {
	return h.Settings().MaxConnections
}

// MinConnections returns the effective minimum number of connections.
func (h *Handle) MinConnections() int {
	return h.Settings().MinConnections
}

// RetryAttempts returns the effective number of retries per operation.
func (h *Handle) RetryAttempts() int {
	return h.Settings().RetryAttempts
}

// SocketBufferSize returns the effective socket buffer size in bytes.
func (h *Handle) SocketBufferSize() int {
	return h.Settings().SocketBufferSize
}

// ReadTimeout returns the effective read timeout.
func (h *Handle) ReadTimeout() time.Duration {
	return h.Settings().ReadTimeout
}

// IdleTimeout returns the effective idle connection timeout.
func (h *Handle) IdleTimeout() time.Duration {
	return h.Settings().IdleTimeout
}

// PingInterval returns the effective server ping interval.
func (h *Handle) PingInterval() time.Duration {
	return h.Settings().PingInterval
}

// FreeConnectionTimeout returns the effective time allowed to obtain a free connection.
func (h *Handle) FreeConnectionTimeout() time.Duration {
	return h.Settings().FreeConnectionTimeout
}

// LoadConditioningInterval returns the effective connection lifetime before load rebalancing.
func (h *Handle) LoadConditioningInterval() time.Duration {
	return h.Settings().LoadConditioningInterval
}

// MultiUserAuthentication returns the effective multi-user authentication flag.
func (h *Handle) MultiUserAuthentication() bool {
	return h.Settings().MultiUserAuthentication
}

// PRSingleHopEnabled returns the effective single hop flag.
func (h *Handle) PRSingleHopEnabled() bool {
	return h.Settings().PRSingleHopEnabled
}

// SocketConnectTimeout returns the effective socket connect timeout.
func (h *Handle) SocketConnectTimeout() time.Duration {
	return h.Settings().SocketConnectTimeout
}

// StatisticInterval returns the effective statistics sampling interval.
func (h *Handle) StatisticInterval() time.Duration {
	return h.Settings().StatisticInterval
}

// SubscriptionAckInterval returns the effective subscription acknowledgement interval.
func (h *Handle) SubscriptionAckInterval() time.Duration {
	return h.Settings().SubscriptionAckInterval
}

// SubscriptionEnabled returns the effective subscription flag.
func (h *Handle) SubscriptionEnabled() bool {
	return h.Settings().SubscriptionEnabled
}

// SubscriptionMessageTrackingTimeout returns the effective subscription message tracking timeout.
func (h *Handle) SubscriptionMessageTrackingTimeout() time.Duration {
	return h.Settings().SubscriptionMessageTrackingTimeout
}

// SubscriptionRedundancy returns the effective subscription redundancy level.
func (h *Handle) SubscriptionRedundancy() int {
	return h.Settings().SubscriptionRedundancy
}

// SubscriptionTimeoutMultiplier returns the effective subscription timeout multiplier.
func (h *Handle) SubscriptionTimeoutMultiplier() int {
	return h.Settings().SubscriptionTimeoutMultiplier
}

// ThreadLocalConnections returns the effective thread-local connections flag.
func (h *Handle) ThreadLocalConnections() bool {
	return h.Settings().ThreadLocalConnections
}

// Stats returns the runtime connection counters of the live pool.
func (h *Handle) Stats() (Stats, error) {
	native, err := h.Native()
	if err != nil {
		return Stats{}, err
	}
	return native.Stats(), nil
}

// OnlineServers asks the live pool which servers currently answer.
func (h *Handle) OnlineServers(ctx context.Context) ([]Endpoint, error) {
	native, err := h.Native()
	if err != nil {
		return nil, err
	}
	return native.OnlineServers(ctx)
}

// Snapshot is a point in time view of a handle.
type Snapshot struct {
	Name     string     `json:"name"`
	State    State      `json:"state"`
	Managed  bool       `json:"managed"`
	Settings Config     `json:"settings"`
	Stats    *Stats     `json:"stats,omitempty"`
	Online   []Endpoint `json:"online_servers,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// Snapshot collects the settings and, for live pools, the runtime counters and
// online servers. A failure to reach the servers is reported in Error.
func (h *Handle) Snapshot(ctx context.Context) Snapshot {
	h.mu.Lock()
	snap := Snapshot{
		Name:     h.name,
		State:    h.state,
		Managed:  h.state == StateCreated || h.state == StateDestroyed,
		Settings: h.settings(),
	}
	if snap.Name == "" {
		snap.Name = h.candidateName()
	}
	native := h.native
	h.mu.Unlock()

	if native == nil {
		return snap
	}

	stats := native.Stats()
	snap.Stats = &stats

	online, err := native.OnlineServers(ctx)
	if err != nil {
		snap.Error = err.Error()
		return snap
	}
	snap.Online = online
	return snap
}
