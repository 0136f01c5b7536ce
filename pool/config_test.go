package pool_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-gridpool/pool"
)

func TestDefaultConfig(t *testing.T) {
	cfg := pool.DefaultConfig()

	assert.Equal(t, 10*time.Second, cfg.FreeConnectionTimeout)
	assert.Equal(t, 5*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 5*time.Minute, cfg.LoadConditioningInterval)
	assert.Equal(t, -1, cfg.MaxConnections)
	assert.Equal(t, 1, cfg.MinConnections)
	assert.False(t, cfg.MultiUserAuthentication)
	assert.Equal(t, 10*time.Second, cfg.PingInterval)
	assert.True(t, cfg.PRSingleHopEnabled)
	assert.Equal(t, 10*time.Second, cfg.ReadTimeout)
	assert.Equal(t, -1, cfg.RetryAttempts)
	assert.Equal(t, 32768, cfg.SocketBufferSize)
	assert.Equal(t, 59*time.Second, cfg.SocketConnectTimeout)
	assert.Equal(t, time.Duration(-1), cfg.StatisticInterval)
	assert.Equal(t, 100*time.Millisecond, cfg.SubscriptionAckInterval)
	assert.False(t, cfg.SubscriptionEnabled)
	assert.Equal(t, 15*time.Minute, cfg.SubscriptionMessageTrackingTimeout)
	assert.Zero(t, cfg.SubscriptionRedundancy)
	assert.Equal(t, 1, cfg.SubscriptionTimeoutMultiplier)
	assert.False(t, cfg.ThreadLocalConnections)
	assert.False(t, cfg.KeepAlive)
	assert.NotNil(t, cfg.Locators)
	assert.NotNil(t, cfg.Servers)

	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*pool.Config)
	}{
		{name: "negative min connections", mutate: func(c *pool.Config) { c.MinConnections = -1 }},
		{name: "max below min", mutate: func(c *pool.Config) { c.MinConnections = 5; c.MaxConnections = 2 }},
		{name: "zero max connections", mutate: func(c *pool.Config) { c.MaxConnections = 0 }},
		{name: "missing socket buffer", mutate: func(c *pool.Config) { c.SocketBufferSize = 0 }},
		{name: "negative read timeout", mutate: func(c *pool.Config) { c.ReadTimeout = -time.Second }},
		{name: "retry attempts below -1", mutate: func(c *pool.Config) { c.RetryAttempts = -2 }},
		{name: "missing ack interval", mutate: func(c *pool.Config) { c.SubscriptionAckInterval = 0 }},
		{name: "locator without host", mutate: func(c *pool.Config) {
			c.Locators = []pool.Endpoint{{Port: 10334}}
		}},
		{name: "server with bad port", mutate: func(c *pool.Config) {
			c.Servers = []pool.Endpoint{{Host: "s1", Port: 70000}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := pool.DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, pool.IsConfigurationError(err))
		})
	}
}

func TestConfig_ValidateAcceptsUnlimitedMax(t *testing.T) {
	cfg := pool.DefaultConfig()
	cfg.MinConnections = 10
	cfg.MaxConnections = -1

	assert.NoError(t, cfg.Validate())
}

func TestConfig_WithEndpointsKeepsOrder(t *testing.T) {
	base := pool.DefaultConfig().WithLocators(pool.Endpoint{Host: "l1", Port: 1})
	cfg := base.WithLocators(pool.Endpoint{Host: "l2", Port: 2}).
		WithServers(pool.Endpoint{Host: "s1", Port: 3})

	assert.Equal(t, []string{"l1:1", "l2:2"}, pool.EndpointStrings(cfg.Locators))
	assert.Equal(t, []string{"s1:3"}, pool.EndpointStrings(cfg.Servers))
	// the receiver is not modified
	assert.Len(t, base.Locators, 1)
}

func TestConfig_Normalize(t *testing.T) {
	cfg := pool.Config{}.Normalize()

	assert.NotNil(t, cfg.Locators)
	assert.NotNil(t, cfg.Servers)
}
