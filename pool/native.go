package pool

import (
	"context"
	"time"
)

// NativePool is a live pool owned by the data-grid client runtime.
type NativePool interface {
	Name() string
	// Settings reports the configuration the pool was created with.
	Settings() Config
	Destroyed() bool
	Destroy(ctx context.Context, keepAlive bool) error
	ReleaseThreadLocalConnection()
	Stats() Stats
	OnlineServers(ctx context.Context) ([]Endpoint, error)
}

// Stats are the runtime connection counters of a native pool.
type Stats struct {
	TotalConnections uint32 `json:"total_connections"`
	IdleConnections  uint32 `json:"idle_connections"`
	StaleConnections uint32 `json:"stale_connections"`
	Hits             uint32 `json:"hits"`
	Misses           uint32 `json:"misses"`
	Timeouts         uint32 `json:"timeouts"`
}

// Registry maps pool names to live pools for the whole process.
type Registry interface {
	Find(name string) (NativePool, bool)
	// Register stores p under name unless a pool is already registered, in
	// which case the registered pool is returned with loaded set to true.
	Register(name string, p NativePool) (actual NativePool, loaded bool)
	// Remove deletes name only while it still maps to p.
	Remove(name string, p NativePool) bool
	Names() []string
}

// Factory builds a native pool. Setters mirror the Config tuning fields one to one.
type Factory interface {
	SetFreeConnectionTimeout(time.Duration)
	SetIdleTimeout(time.Duration)
	SetLoadConditioningInterval(time.Duration)
	SetMaxConnections(int)
	SetMinConnections(int)
	SetMultiUserAuthentication(bool)
	SetPingInterval(time.Duration)
	SetPRSingleHopEnabled(bool)
	SetReadTimeout(time.Duration)
	SetRetryAttempts(int)
	SetServerGroup(string)
	SetSocketBufferSize(int)
	SetSocketConnectTimeout(time.Duration)
	SetStatisticInterval(time.Duration)
	SetSubscriptionAckInterval(time.Duration)
	SetSubscriptionEnabled(bool)
	SetSubscriptionMessageTrackingTimeout(time.Duration)
	SetSubscriptionRedundancy(int)
	SetSubscriptionTimeoutMultiplier(int)
	SetThreadLocalConnections(bool)
	AddLocator(host string, port int)
	AddServer(host string, port int)
	Create(ctx context.Context, name string) (NativePool, error)
}

// FactoryFunc returns a fresh Factory for every pool creation.
type FactoryFunc func() Factory

// ContextProvider bootstraps the client runtime a pool needs before it can be
// created. EnsureContext must be safe to call repeatedly.
type ContextProvider interface {
	EnsureContext(ctx context.Context) error
}

// ContextProviderFunc adapts a function to ContextProvider.
type ContextProviderFunc func(ctx context.Context) error

// EnsureContext calls f.
func (f ContextProviderFunc) EnsureContext(ctx context.Context) error {
	return f(ctx)
}

// Initializer may adjust the factory after the configuration was applied,
// for settings Config does not model. It returns the factory to create from.
type Initializer func(Factory) Factory

// Configurer adjusts the configuration of a pool that is about to be created.
// Configurers never run for pools discovered in the registry.
type Configurer func(name string, cfg *Config)

// configure applies every tuning parameter and the endpoints to f.
func configure(f Factory, cfg Config) {
	f.SetFreeConnectionTimeout(cfg.FreeConnectionTimeout)
	f.SetIdleTimeout(cfg.IdleTimeout)
	f.SetLoadConditioningInterval(cfg.LoadConditioningInterval)
	f.SetMaxConnections(cfg.MaxConnections)
	f.SetMinConnections(cfg.MinConnections)
	f.SetMultiUserAuthentication(cfg.MultiUserAuthentication)
	f.SetPingInterval(cfg.PingInterval)
	f.SetPRSingleHopEnabled(cfg.PRSingleHopEnabled)
	f.SetReadTimeout(cfg.ReadTimeout)
	f.SetRetryAttempts(cfg.RetryAttempts)
	f.SetServerGroup(cfg.ServerGroup)
	f.SetSocketBufferSize(cfg.SocketBufferSize)
	f.SetSocketConnectTimeout(cfg.SocketConnectTimeout)
	f.SetStatisticInterval(cfg.StatisticInterval)
	f.SetSubscriptionAckInterval(cfg.SubscriptionAckInterval)
	f.SetSubscriptionEnabled(cfg.SubscriptionEnabled)
	f.SetSubscriptionMessageTrackingTimeout(cfg.SubscriptionMessageTrackingTimeout)
	f.SetSubscriptionRedundancy(cfg.SubscriptionRedundancy)
	f.SetSubscriptionTimeoutMultiplier(cfg.SubscriptionTimeoutMultiplier)
	f.SetThreadLocalConnections(cfg.ThreadLocalConnections)

	for _, l := range cfg.Locators {
		f.AddLocator(l.Host, l.Port)
	}
	for _, s := range cfg.Servers {
		f.AddServer(s.Host, s.Port)
	}
}
