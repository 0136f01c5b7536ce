package testsupport

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-gridpool/pool"
)

// FakeRegistry is an in-memory pool.Registry.
type FakeRegistry struct {
	mu    sync.Mutex
	pools map[string]pool.NativePool
}

// NewFakeRegistry returns a registry pre-populated with the given pools, keyed by name.
func NewFakeRegistry(pools ...pool.NativePool) *FakeRegistry {
	r := &FakeRegistry{pools: make(map[string]pool.NativePool)}
	for _, p := range pools {
		r.pools[p.Name()] = p
	}
	return r
}

// Find returns the pool stored under name.
func (r *FakeRegistry) Find(name string) (pool.NativePool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pools[name]
	return p, ok
}

// Register stores p unless name is taken; it returns the stored pool and
// whether it was already there.
func (r *FakeRegistry) Register(name string, p pool.NativePool) (pool.NativePool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.pools[name]; ok {
		return existing, true
	}
	r.pools[name] = p
	return p, false
}

// Remove deletes name only while it still maps to p.
func (r *FakeRegistry) Remove(name string, p pool.NativePool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.pools[name]; ok && existing == p {
		delete(r.pools, name)
		return true
	}
	return false
}

// Names returns the stored names, sorted.
func (r *FakeRegistry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.pools))
	for name := range r.pools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FakePool is a pool.NativePool that counts lifecycle calls.
type FakePool struct {
	mu sync.Mutex

	name     string
	settings pool.Config

	DestroyErr error
	OnlineErr  error
	StatsValue pool.Stats
	// OnDestroy runs on every Destroy call, before DestroyErr is returned.
	OnDestroy func(name string)

	destroyCalls  int
	releaseCalls  int
	destroyed     bool
	lastKeepAlive bool
}

// NewFakePool returns a live fake pool with the given settings.
func NewFakePool(name string, settings pool.Config) *FakePool {
	settings.Name = name
	return &FakePool{name: name, settings: settings}
}

// Name returns the pool name.
func (p *FakePool) Name() string {
	return p.name
}

// Settings returns the settings the pool was created with.
func (p *FakePool) Settings() pool.Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings
}

// Destroyed reports whether a Destroy call succeeded or MarkDestroyed was called.
func (p *FakePool) Destroyed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyed
}

// Destroy counts the call and records keepAlive. It fails with DestroyErr
// when set.
func (p *FakePool) Destroy(_ context.Context, keepAlive bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.destroyCalls++
	p.lastKeepAlive = keepAlive
	if p.OnDestroy != nil {
		p.OnDestroy(p.name)
	}
	if p.DestroyErr != nil {
		return p.DestroyErr
	}
	p.destroyed = true
	return nil
}

// MarkDestroyed flags the pool as destroyed without counting a Destroy call.
func (p *FakePool) MarkDestroyed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.destroyed = true
}

// ReleaseThreadLocalConnection counts the call.
func (p *FakePool) ReleaseThreadLocalConnection() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releaseCalls++
}

// Stats returns StatsValue.
func (p *FakePool) Stats() pool.Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.StatsValue
}

// OnlineServers returns the configured servers, or OnlineErr when set.
func (p *FakePool) OnlineServers(context.Context) ([]pool.Endpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.OnlineErr != nil {
		return nil, p.OnlineErr
	}
	return append([]pool.Endpoint(nil), p.settings.Servers...), nil
}

// DestroyCalls returns how many times Destroy was called.
func (p *FakePool) DestroyCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyCalls
}

// ReleaseCalls returns how many times ReleaseThreadLocalConnection was called.
func (p *FakePool) ReleaseCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.releaseCalls
}

// LastKeepAlive returns the keepAlive flag of the last Destroy call.
func (p *FakePool) LastKeepAlive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastKeepAlive
}

// FakeFactory is a pool.Factory recording every call, in order, as
// "Method(args)" strings, and building FakePools from the received settings.
type FakeFactory struct {
	mu       sync.Mutex
	calls    []string
	settings pool.Config
	created  []*FakePool

	CreateErr error
	// OnCreate runs before Create returns; tests use it to simulate a
	// concurrent registration.
	OnCreate func(name string)
}

// NewFakeFactory returns an empty factory.
func NewFakeFactory() *FakeFactory {
	return &FakeFactory{settings: pool.Config{Locators: []pool.Endpoint{}, Servers: []pool.Endpoint{}}}
}

// Func returns a pool.FactoryFunc that always hands out f.
func (f *FakeFactory) Func() pool.FactoryFunc {
	return func() pool.Factory {
		return f
	}
}

func (f *FakeFactory) record(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

// Calls returns the recorded calls.
func (f *FakeFactory) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CreateCalls counts the Create invocations.
func (f *FakeFactory) CreateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

// Created returns the pools built so far.
func (f *FakeFactory) Created() []*FakePool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakePool(nil), f.created...)
}

// SetFreeConnectionTimeout records the call and keeps the time allowed to obtain a free connection for the created pool.
func (f *FakeFactory) SetFreeConnectionTimeout(d time.Duration) {
	f.record("SetFreeConnectionTimeout(%s)", d)
	f.settings.FreeConnectionTimeout = d
}

// SetIdleTimeout records the call and keeps the idle connection timeout for the created pool.
func (f *FakeFactory) SetIdleTimeout(d time.Duration) {
	f.record("SetIdleTimeout(%s)", d)
	f.settings.IdleTimeout = d
}

// SetLoadConditioningInterval records the call and keeps the connection lifetime before load rebalancing for the created pool.
func (f *FakeFactory) SetLoadConditioningInterval(d time.Duration) {
	f.record("SetLoadConditioningInterval(%s)", d)
	f.settings.LoadConditioningInterval = d
}

// SetMaxConnections records the call and keeps the maximum number of connections for the created pool.
func (f *FakeFactory) SetMaxConnections(n int) {
	f.record("SetMaxConnections(%d)", n)
	f.settings.MaxConnections = n
}

// SetMinConnections records the call and keeps the minimum number of connections for the created pool.
func (f *FakeFactory) SetMinConnections(n int) {
	f.record("SetMinConnections(%d)", n)
	f.settings.MinConnections = n
}

// SetMultiUserAuthentication records the call and keeps the multi-user authentication flag for the created pool.
func (f *FakeFactory) SetMultiUserAuthentication(v bool) {
	f.record("SetMultiUserAuthentication(%t)", v)
	f.settings.MultiUserAuthentication = v
}

// SetPingInterval records the call and keeps the server ping interval for the created pool.
func (f *FakeFactory) SetPingInterval(d time.Duration) {
	f.record("SetPingInterval(%s)", d)
	f.settings.PingInterval = d
}

// SetPRSingleHopEnabled records the call and keeps the single hop flag for the created pool.
func (f *FakeFactory) SetPRSingleHopEnabled(v bool) {
	f.record("SetPRSingleHopEnabled(%t)", v)
	f.settings.PRSingleHopEnabled = v
}

// SetReadTimeout records the call and keeps the read timeout for the created pool.
func (f *FakeFactory) SetReadTimeout(d time.Duration) {
	f.record("SetReadTimeout(%s)", d)
	f.settings.ReadTimeout = d
}

// SetRetryAttempts records the call and keeps the number of retries per operation for the created pool.
func (f *FakeFactory) SetRetryAttempts(n int) {
	f.record("SetRetryAttempts(%d)", n)
	f.settings.RetryAttempts = n
}

// SetServerGroup records the call and keeps the server group for the created pool.
func (f *FakeFactory) SetServerGroup(group string) {
	f.record("SetServerGroup(%s)", group)
	f.settings.ServerGroup = group
}

// SetSocketBufferSize records the call and keeps the socket buffer size in bytes for the created pool.
func (f *FakeFactory) SetSocketBufferSize(n int) {
	f.record("SetSocketBufferSize(%d)", n)
	f.settings.SocketBufferSize = n
}

// SetSocketConnectTimeout records the call and keeps the socket connect timeout for the created pool.
func (f *FakeFactory) SetSocketConnectTimeout(d time.Duration) {
	f.record("SetSocketConnectTimeout(%s)", d)
	f.settings.SocketConnectTimeout = d
}

// SetStatisticInterval records the call and keeps the statistics sampling interval for the created pool.
func (f *FakeFactory) SetStatisticInterval(d time.Duration) {
	f.record("SetStatisticInterval(%s)", d)
	f.settings.StatisticInterval = d
}

// SetSubscriptionAckInterval records the call and keeps the subscription acknowledgement interval for the created pool.
func (f *FakeFactory) SetSubscriptionAckInterval(d time.Duration) {
	f.record("SetSubscriptionAckInterval(%s)", d)
	f.settings.SubscriptionAckInterval = d
}

// SetSubscriptionEnabled records the call and keeps the subscription flag for the created pool.
func (f *FakeFactory) SetSubscriptionEnabled(v bool) {
	f.record("SetSubscriptionEnabled(%t)", v)
	f.settings.SubscriptionEnabled = v
}

// SetSubscriptionMessageTrackingTimeout records the call and keeps the subscription message tracking timeout for the created pool.
func (f *FakeFactory) SetSubscriptionMessageTrackingTimeout(d time.Duration) {
	f.record("SetSubscriptionMessageTrackingTimeout(%s)", d)
	f.settings.SubscriptionMessageTrackingTimeout = d
}

// SetSubscriptionRedundancy records the call and keeps the subscription redundancy level for the created pool.
func (f *FakeFactory) SetSubscriptionRedundancy(n int) {
	f.record("SetSubscriptionRedundancy(%d)", n)
	f.settings.SubscriptionRedundancy = n
}

// SetSubscriptionTimeoutMultiplier records the call and keeps the subscription timeout multiplier for the created pool.
func (f *FakeFactory) SetSubscriptionTimeoutMultiplier(n int) {
	f.record("SetSubscriptionTimeoutMultiplier(%d)", n)
	f.settings.SubscriptionTimeoutMultiplier = n
}

// SetThreadLocalConnections records the call and keeps the thread-local connections flag for the created pool.
func (f *FakeFactory) SetThreadLocalConnections(v bool) {
	f.record("SetThreadLocalConnections(%t)", v)
	f.settings.ThreadLocalConnections = v
}

// AddLocator records the call and appends the locator.
func (f *FakeFactory) AddLocator(host string, port int) {
	f.record("AddLocator(%s,%d)", host, port)
	f.settings.Locators = append(f.settings.Locators, pool.Endpoint{Host: host, Port: port})
}

// AddServer records the call and appends the server.
func (f *FakeFactory) AddServer(host string, port int) {
	f.record("AddServer(%s,%d)", host, port)
	f.settings.Servers = append(f.settings.Servers, pool.Endpoint{Host: host, Port: port})
}

// Create records the call and builds a FakePool from the received settings,
// or returns CreateErr.
func (f *FakeFactory) Create(_ context.Context, name string) (pool.NativePool, error) {
	f.record("Create(%s)", name)
	if f.OnCreate != nil {
		f.OnCreate(name)
	}
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	p := NewFakePool(name, f.settings)
	f.created = append(f.created, p)
	return p, nil
}

// FakeRuntime is a pool.ContextProvider counting bootstrap calls.
type FakeRuntime struct {
	mu    sync.Mutex
	calls int
	Err   error
}

// EnsureContext counts the call and returns Err.
func (r *FakeRuntime) EnsureContext(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.Err
}

// Calls returns how many times EnsureContext was called.
func (r *FakeRuntime) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// FactorySet hands out a fresh FakeFactory for every pool creation so
// settings do not leak between pools.
type FactorySet struct {
	mu        sync.Mutex
	factories []*FakeFactory

	CreateErr error
}

// Func returns a pool.FactoryFunc backed by the set.
func (s *FactorySet) Func() pool.FactoryFunc {
	return func() pool.Factory {
		s.mu.Lock()
		defer s.mu.Unlock()
		f := NewFakeFactory()
		f.CreateErr = s.CreateErr
		s.factories = append(s.factories, f)
		return f
	}
}

// Factories returns the factories handed out so far.
func (s *FactorySet) Factories() []*FakeFactory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*FakeFactory(nil), s.factories...)
}

// Pools returns every pool created through the set, in creation order.
func (s *FactorySet) Pools() []*FakePool {
	var pools []*FakePool
	for _, f := range s.Factories() {
		pools = append(pools, f.Created()...)
	}
	return pools
}

// Pool returns the first pool created under name.
func (s *FactorySet) Pool(name string) (*FakePool, bool) {
	for _, p := range s.Pools() {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}
