package gridinfra

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/goliatone/go-gridpool/pool"
)

// RedisFactory builds pools on top of go-redis clients. Locators become
// sentinel addresses when a server group (the sentinel master name) is set
// and cluster seed nodes otherwise; servers are used directly when no
// locator is configured.
type RedisFactory struct {
	cfg       pool.Config
	dialLimit rate.Limit
	dialBurst int
	logger    *zap.Logger
}

var _ pool.Factory = (*RedisFactory)(nil)

// RedisOption configures a RedisFactory.
type RedisOption func(*RedisFactory)

// WithDialRate limits how fast a pool opens connections.
func WithDialRate(limit rate.Limit, burst int) RedisOption {
	return func(f *RedisFactory) {
		if burst < 1 {
			burst = 1
		}
		f.dialLimit = limit
		f.dialBurst = burst
	}
}

// WithRedisLogger sets the logger handed to created pools.
func WithRedisLogger(logger *zap.Logger) RedisOption {
	return func(f *RedisFactory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewRedisFactory returns a factory with no endpoints and zero settings;
// the manager applies every setting before Create.
func NewRedisFactory(opts ...RedisOption) *RedisFactory {
	f := &RedisFactory{
		cfg:       pool.Config{Locators: []pool.Endpoint{}, Servers: []pool.Endpoint{}},
		dialLimit: rate.Inf,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// RedisFactoryFunc returns a pool.FactoryFunc handing out fresh RedisFactories.
func RedisFactoryFunc(opts ...RedisOption) pool.FactoryFunc {
	return func() pool.Factory {
		return NewRedisFactory(opts...)
	}
}

// SetFreeConnectionTimeout records the time allowed to obtain a free connection for the next Create.
func (f *RedisFactory) SetFreeConnectionTimeout(d time.Duration) {
	f.cfg.FreeConnectionTimeout = d
}

// SetIdleTimeout records the idle connection timeout for the next Create.
func (f *RedisFactory) SetIdleTimeout(d time.Duration) {
	f.cfg.IdleTimeout = d
}

// SetLoadConditioningInterval records the connection lifetime before load rebalancing for the next Create.
func (f *RedisFactory) SetLoadConditioningInterval(d time.Duration) {
	f.cfg.LoadConditioningInterval = d
}

// SetMaxConnections records the maximum number of connections for the next Create.
func (f *RedisFactory) SetMaxConnections(n int) {
	f.cfg.MaxConnections = n
}

// SetMinConnections records the minimum number of connections for the next Create.
func (f *RedisFactory) SetMinConnections(n int) {
	f.cfg.MinConnections = n
}

// SetMultiUserAuthentication records the multi-user authentication flag for the next Create.
func (f *RedisFactory) SetMultiUserAuthentication(v bool) {
	f.cfg.MultiUserAuthentication = v
}

// SetPingInterval records the server ping interval for the next Create.
func (f *RedisFactory) SetPingInterval(d time.Duration) {
	f.cfg.PingInterval = d
}

// SetPRSingleHopEnabled records the single hop flag for the next Create.
func (f *RedisFactory) SetPRSingleHopEnabled(v bool) {
	f.cfg.PRSingleHopEnabled = v
}

// SetReadTimeout records the read timeout for the next Create.
func (f *RedisFactory) SetReadTimeout(d time.Duration) {
	f.cfg.ReadTimeout = d
}

// SetRetryAttempts records the number of retries per operation for the next Create.
func (f *RedisFactory) SetRetryAttempts(n int) {
	f.cfg.RetryAttempts = n
}

// SetServerGroup records the server group for the next Create.
func (f *RedisFactory) SetServerGroup(group string) {
	f.cfg.ServerGroup = group
}

// SetSocketBufferSize records the socket buffer size in bytes for the next Create.
func (f *RedisFactory) SetSocketBufferSize(n int) {
	f.cfg.SocketBufferSize = n
}

// SetSocketConnectTimeout records the socket connect timeout for the next Create.
func (f *RedisFactory) SetSocketConnectTimeout(d time.Duration) {
	f.cfg.SocketConnectTimeout = d
}

// SetStatisticInterval records the statistics sampling interval for the next Create.
func (f *RedisFactory) SetStatisticInterval(d time.Duration) {
	f.cfg.StatisticInterval = d
}

// SetSubscriptionAckInterval records the subscription acknowledgement interval for the next Create.
func (f *RedisFactory) SetSubscriptionAckInterval(d time.Duration) {
	f.cfg.SubscriptionAckInterval = d
}

// SetSubscriptionEnabled records the subscription flag for the next Create.
func (f *RedisFactory) SetSubscriptionEnabled(v bool) {
	f.cfg.SubscriptionEnabled = v
}

// SetSubscriptionRedundancy records the subscription redundancy level for the next Create.
func (f *RedisFactory) SetSubscriptionRedundancy(n int) {
	f.cfg.SubscriptionRedundancy = n
}

// SetSubscriptionTimeoutMultiplier records the subscription timeout multiplier for the next Create.
func (f *RedisFactory) SetSubscriptionTimeoutMultiplier(n int) {
	f.cfg.SubscriptionTimeoutMultiplier = n
}

// SetThreadLocalConnections records the thread-local connections flag for the next Create.
func (f *RedisFactory) SetThreadLocalConnections(v bool) {
	f.cfg.ThreadLocalConnections = v
}

// SetSubscriptionMessageTrackingTimeout records the subscription message tracking timeout for the next Create.
func (f *RedisFactory) SetSubscriptionMessageTrackingTimeout(d time.Duration) {
	f.cfg.SubscriptionMessageTrackingTimeout = d
}

// AddLocator appends a locator; order is kept.
func (f *RedisFactory) AddLocator(host string, port int) {
	f.cfg.Locators = append(f.cfg.Locators, pool.Endpoint{Host: host, Port: port})
}

// AddServer appends a server; order is kept.
func (f *RedisFactory) AddServer(host string, port int) {
	f.cfg.Servers = append(f.cfg.Servers, pool.Endpoint{Host: host, Port: port})
}

// Create builds the client. go-redis connects lazily, so no connection is
// opened here beyond the configured minimum idle connections.
func (f *RedisFactory) Create(_ context.Context, name string) (pool.NativePool, error) {
	cfg := f.cfg.Normalize()
	cfg.Name = name

	dialer := newLimitedDialer(f.dialLimit, f.dialBurst, cfg.SocketConnectTimeout)
	opts, err := toUniversalOptions(name, cfg, dialer.DialContext)
	if err != nil {
		return nil, err
	}

	return &RedisPool{
		name:     name,
		settings: cfg,
		addrs:    opts.Addrs,
		client:   redis.NewUniversalClient(opts),
		logger:   f.logger.With(zap.String("pool", name)),
	}, nil
}

func toUniversalOptions(name string, cfg pool.Config, dial DialFunc) (*redis.UniversalOptions, error) {
	opts := &redis.UniversalOptions{
		ClientName:      name,
		Dialer:          dial,
		DialTimeout:     cfg.SocketConnectTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.ReadTimeout,
		ReadBufferSize:  cfg.SocketBufferSize,
		WriteBufferSize: cfg.SocketBufferSize,
		PoolTimeout:     cfg.FreeConnectionTimeout,
		MinIdleConns:    cfg.MinConnections,
		ConnMaxIdleTime: cfg.IdleTimeout,
	}

	// zero means no timeout in the pool settings; go-redis wants -1 for that
	if cfg.ReadTimeout == 0 {
		opts.ReadTimeout = -1
		opts.WriteTimeout = -1
	}
	if cfg.LoadConditioningInterval > 0 {
		opts.ConnMaxLifetime = cfg.LoadConditioningInterval
	}
	if cfg.MaxConnections > 0 {
		opts.PoolSize = cfg.MaxConnections
	}
	switch {
	case cfg.RetryAttempts == 0:
		opts.MaxRetries = -1
	case cfg.RetryAttempts > 0:
		opts.MaxRetries = cfg.RetryAttempts
	}

	switch {
	case len(cfg.Locators) > 0:
		opts.Addrs = pool.EndpointStrings(cfg.Locators)
		if cfg.ServerGroup != "" {
			opts.MasterName = cfg.ServerGroup
		} else {
			opts.IsClusterMode = true
		}
	case len(cfg.Servers) > 0:
		opts.Addrs = pool.EndpointStrings(cfg.Servers)
	default:
		return nil, goerrors.New("at least one locator or server is required", goerrors.CategoryValidation).
			WithMetadata(map[string]any{"pool": name})
	}

	return opts, nil
}

// RedisPool is a pool.NativePool over a go-redis universal client.
type RedisPool struct {
	name     string
	settings pool.Config
	addrs    []string
	client   redis.UniversalClient
	logger   *zap.Logger

	mu        sync.Mutex
	destroyed bool
}

var _ pool.NativePool = (*RedisPool)(nil)

// Client exposes the underlying client for issuing commands.
func (p *RedisPool) Client() redis.UniversalClient {
	return p.client
}

// Name returns the registered pool name.
func (p *RedisPool) Name() string {
	return p.name
}

// Settings returns the settings the pool was created with.
func (p *RedisPool) Settings() pool.Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings.Normalize()
}

// Destroyed reports whether Destroy closed the client.
func (p *RedisPool) Destroyed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyed
}

// Destroy closes the client. keepAlive is recorded for Settings but has no
// effect on redis, which keeps no server-side subscription queues.
func (p *RedisPool) Destroy(_ context.Context, keepAlive bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed {
		return nil
	}
	if err := p.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to close redis client")
	}

	p.destroyed = true
	p.settings.KeepAlive = keepAlive
	p.logger.Debug("redis client closed")
	return nil
}

// ReleaseThreadLocalConnection is a no-op: go-redis connections are never
// pinned to a goroutine.
func (p *RedisPool) ReleaseThreadLocalConnection() {}

// Stats maps the go-redis connection pool counters.
func (p *RedisPool) Stats() pool.Stats {
	s := p.client.PoolStats()
	if s == nil {
		return pool.Stats{}
	}
	return pool.Stats{
		TotalConnections: s.TotalConns,
		IdleConnections:  s.IdleConns,
		StaleConnections: s.StaleConns,
		Hits:             s.Hits,
		Misses:           s.Misses,
		Timeouts:         s.Timeouts,
	}
}

// OnlineServers pings the servers. A cluster reports every shard that
// answered; other topologies report the configured addresses once the ping
// succeeds.
func (p *RedisPool) OnlineServers(ctx context.Context) ([]pool.Endpoint, error) {
	if cluster, ok := p.client.(*redis.ClusterClient); ok {
		return p.onlineShards(ctx, cluster)
	}

	if err := p.client.Ping(ctx).Err(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "failed to reach servers")
	}
	return p.endpoints(p.addrs), nil
}

func (p *RedisPool) onlineShards(ctx context.Context, cluster *redis.ClusterClient) ([]pool.Endpoint, error) {
	var (
		mu    sync.Mutex
		addrs []string
	)
	err := cluster.ForEachShard(ctx, func(ctx context.Context, shard *redis.Client) error {
		if err := shard.Ping(ctx).Err(); err != nil {
			return err
		}
		mu.Lock()
		addrs = append(addrs, shard.Options().Addr)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "failed to reach cluster shards")
	}

	sort.Strings(addrs)
	return p.endpoints(addrs), nil
}

func (p *RedisPool) endpoints(addrs []string) []pool.Endpoint {
	out := make([]pool.Endpoint, 0, len(addrs))
	for _, addr := range addrs {
		ep, err := pool.ParseEndpoint(addr, pool.DefaultServerPort)
		if err != nil {
			p.logger.Debug("skipping unparsable server address", zap.String("addr", addr), zap.Error(err))
			continue
		}
		out = append(out, ep)
	}
	return out
}
