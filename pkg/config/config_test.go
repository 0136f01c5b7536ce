package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-gridpool/pkg/config"
	"github.com/goliatone/go-gridpool/pkg/testsupport"
	"github.com/goliatone/go-gridpool/pool"
)

func TestLoad_Fixture(t *testing.T) {
	cfg, err := config.Load(testsupport.FixturePath("gridpool.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Encoding)
	assert.Equal(t, "127.0.0.1:9090", cfg.HTTP.Addr)
	assert.Equal(t, 3*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, 64, cfg.Cache.Capacity)
	assert.Equal(t, 2*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 50.0, cfg.Redis.DialRate)
	assert.Equal(t, 5, cfg.Redis.DialBurst)

	require.Len(t, cfg.Pools, 2)

	orders, ok := cfg.Pool("orders")
	require.True(t, ok)
	assert.Equal(t, "east", orders.ServerGroup)
	assert.Equal(t, []pool.Endpoint{
		{Host: "locator-a", Port: 10334},
		{Host: "locator-b", Port: pool.DefaultLocatorPort},
	}, orders.Locators)
	assert.Empty(t, orders.Servers)
	assert.True(t, orders.KeepAlive)
	assert.Equal(t, 20, orders.MaxConnections)
	assert.Equal(t, 2, orders.MinConnections)
	assert.Equal(t, 3*time.Second, orders.ReadTimeout)
	assert.Equal(t, 2, orders.RetryAttempts)
	// untouched settings keep vendor defaults
	assert.Equal(t, pool.DefaultSocketBufferSize, orders.SocketBufferSize)
	assert.Equal(t, pool.DefaultPingInterval, orders.PingInterval)

	sessions, ok := cfg.Pool("sessions")
	require.True(t, ok)
	assert.Equal(t, []pool.Endpoint{
		{Host: "cache-1", Port: 6379},
		{Host: "cache-2", Port: pool.DefaultServerPort},
	}, sessions.Servers)
	assert.True(t, sessions.SubscriptionEnabled)

	_, ok = cfg.Pool("missing")
	assert.False(t, ok)
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := config.Parse([]byte("pools: []\n"))
	require.NoError(t, err)

	def := config.Default()
	assert.Equal(t, def.HTTP, cfg.HTTP)
	assert.Equal(t, def.Cache, cfg.Cache)
	assert.Equal(t, def.Redis, cfg.Redis)
	assert.Equal(t, def.Log.Level, cfg.Log.Level)
	assert.Empty(t, cfg.Pools)
}

func TestParse_EnvironmentOverrides(t *testing.T) {
	t.Setenv("GRIDPOOL_HTTP_ADDR", ":7070")
	t.Setenv("GRIDPOOL_LOG_LEVEL", "warn")
	t.Setenv("ORDERS_LOCATOR", "grid.internal:4000")

	data := []byte(`
pools:
  - name: orders
    locators: ["${ORDERS_LOCATOR}"]
`)
	cfg, err := config.Parse(data)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.HTTP.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)
	require.Len(t, cfg.Pools, 1)
	assert.Equal(t, []pool.Endpoint{{Host: "grid.internal", Port: 4000}}, cfg.Pools[0].Locators)
}

func TestParse_InvalidPools(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "missing name",
			yaml: "pools:\n  - locators: [localhost]\n",
		},
		{
			name: "duplicate name",
			yaml: "pools:\n  - name: a\n  - name: a\n",
		},
		{
			name: "unknown setting",
			yaml: "pools:\n  - name: a\n    max_conections: 3\n",
		},
		{
			name: "bad endpoint",
			yaml: "pools:\n  - name: a\n    servers: [\"host:http\"]\n",
		},
		{
			name: "invalid tuning",
			yaml: "pools:\n  - name: a\n    min_connections: 5\n    max_connections: 2\n",
		},
		{
			name: "endpoint list of numbers",
			yaml: "pools:\n  - name: a\n    locators: [1, 2]\n",
		},
		{
			name: "not a list",
			yaml: "pools:\n  name: a\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, pool.IsConfigurationError(err), "expected configuration error, got %v", err)
		})
	}
}

func TestParse_InvalidServiceSettings(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "empty addr", yaml: "http:\n  addr: \"\"\n"},
		{name: "cache without ttl", yaml: "cache:\n  enabled: true\n  ttl: 0s\n"},
		{name: "negative dial rate", yaml: "redis:\n  dial_rate: -1\n"},
		{name: "malformed yaml", yaml: "http: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.yaml))
			require.Error(t, err)
		})
	}
}

func TestParse_DisabledCacheSkipsValidation(t *testing.T) {
	cfg, err := config.Parse([]byte("cache:\n  enabled: false\n  ttl: 0s\n"))
	require.NoError(t, err)
	assert.False(t, cfg.Cache.Enabled)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(testsupport.FixturePath("missing.yaml"))
	require.Error(t, err)
}

func TestLoad_TempFile(t *testing.T) {
	path := testsupport.TempFile(t, "gridpool.yaml", []byte("pools:\n  - name: inventory\n    servers: [\"redis:6379\"]\n"))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Pools, 1)
	assert.Equal(t, "inventory", cfg.Pools[0].Name)
	assert.Equal(t, []string{"redis:6379"}, pool.EndpointStrings(cfg.Pools[0].Servers))
}
