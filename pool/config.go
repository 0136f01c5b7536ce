package pool

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
)

// Config describes a named client pool. The zero value is not useful;
// start from DefaultConfig and override what you need.
type Config struct {
	// Name identifies the pool in the process-wide registry. When empty the
	// fallback name given at resolution is used.
	Name string `json:"name"`

	// ServerGroup restricts the pool to servers in the named group.
	ServerGroup string `json:"server_group,omitempty"`

	// Locators and Servers are applied to the factory in this order; earlier
	// entries are preferred on failover.
	Locators []Endpoint `json:"locators"`
	Servers  []Endpoint `json:"servers"`

	// KeepAlive is passed to the native destroy call and controls whether
	// durable subscriptions survive the teardown.
	KeepAlive bool `json:"keep_alive"`

	FreeConnectionTimeout              time.Duration `json:"free_connection_timeout"`
	IdleTimeout                        time.Duration `json:"idle_timeout"`
	LoadConditioningInterval           time.Duration `json:"load_conditioning_interval"`
	MaxConnections                     int           `json:"max_connections"`
	MinConnections                     int           `json:"min_connections"`
	MultiUserAuthentication            bool          `json:"multi_user_authentication"`
	PingInterval                       time.Duration `json:"ping_interval"`
	PRSingleHopEnabled                 bool          `json:"pr_single_hop_enabled"`
	ReadTimeout                        time.Duration `json:"read_timeout"`
	RetryAttempts                      int           `json:"retry_attempts"`
	SocketBufferSize                   int           `json:"socket_buffer_size"`
	SocketConnectTimeout               time.Duration `json:"socket_connect_timeout"`
	StatisticInterval                  time.Duration `json:"statistic_interval"`
	SubscriptionAckInterval            time.Duration `json:"subscription_ack_interval"`
	SubscriptionEnabled                bool          `json:"subscription_enabled"`
	SubscriptionMessageTrackingTimeout time.Duration `json:"subscription_message_tracking_timeout"`
	SubscriptionRedundancy             int           `json:"subscription_redundancy"`
	SubscriptionTimeoutMultiplier      int           `json:"subscription_timeout_multiplier"`
	ThreadLocalConnections             bool          `json:"thread_local_connections"`
}

// Vendor defaults for every tuning parameter.
const (
	DefaultFreeConnectionTimeout              = 10 * time.Second
	DefaultIdleTimeout                        = 5 * time.Second
	DefaultLoadConditioningInterval           = 5 * time.Minute
	DefaultMaxConnections                     = -1
	DefaultMinConnections                     = 1
	DefaultMultiUserAuthentication            = false
	DefaultPingInterval                       = 10 * time.Second
	DefaultPRSingleHopEnabled                 = true
	DefaultReadTimeout                        = 10 * time.Second
	DefaultRetryAttempts                      = -1
	DefaultSocketBufferSize                   = 32768
	DefaultSocketConnectTimeout               = 59 * time.Second
	DefaultStatisticInterval                  = time.Duration(-1)
	DefaultSubscriptionAckInterval            = 100 * time.Millisecond
	DefaultSubscriptionEnabled                = false
	DefaultSubscriptionMessageTrackingTimeout = 15 * time.Minute
	DefaultSubscriptionRedundancy             = 0
	DefaultSubscriptionTimeoutMultiplier      = 1
	DefaultThreadLocalConnections             = false
)

// DefaultConfig returns a Config populated with the vendor defaults.
func DefaultConfig() Config {
	return Config{
		Locators:                           []Endpoint{},
		Servers:                            []Endpoint{},
		FreeConnectionTimeout:              DefaultFreeConnectionTimeout,
		IdleTimeout:                        DefaultIdleTimeout,
		LoadConditioningInterval:           DefaultLoadConditioningInterval,
		MaxConnections:                     DefaultMaxConnections,
		MinConnections:                     DefaultMinConnections,
		MultiUserAuthentication:            DefaultMultiUserAuthentication,
		PingInterval:                       DefaultPingInterval,
		PRSingleHopEnabled:                 DefaultPRSingleHopEnabled,
		ReadTimeout:                        DefaultReadTimeout,
		RetryAttempts:                      DefaultRetryAttempts,
		SocketBufferSize:                   DefaultSocketBufferSize,
		SocketConnectTimeout:               DefaultSocketConnectTimeout,
		StatisticInterval:                  DefaultStatisticInterval,
		SubscriptionAckInterval:            DefaultSubscriptionAckInterval,
		SubscriptionEnabled:                DefaultSubscriptionEnabled,
		SubscriptionMessageTrackingTimeout: DefaultSubscriptionMessageTrackingTimeout,
		SubscriptionRedundancy:             DefaultSubscriptionRedundancy,
		SubscriptionTimeoutMultiplier:      DefaultSubscriptionTimeoutMultiplier,
		ThreadLocalConnections:             DefaultThreadLocalConnections,
	}
}

// Normalize returns a copy with nil endpoint lists replaced by empty ones and
// the endpoint slices detached from the receiver.
func (c Config) Normalize() Config {
	c.Locators = append(make([]Endpoint, 0, len(c.Locators)), c.Locators...)
	c.Servers = append(make([]Endpoint, 0, len(c.Servers)), c.Servers...)
	return c
}

// WithLocators returns a copy with the given locators appended in order.
func (c Config) WithLocators(endpoints ...Endpoint) Config {
	c = c.Normalize()
	c.Locators = append(c.Locators, endpoints...)
	return c
}

// WithServers returns a copy with the given servers appended in order.
func (c Config) WithServers(endpoints ...Endpoint) Config {
	c = c.Normalize()
	c.Servers = append(c.Servers, endpoints...)
	return c
}

// Validate checks the tuning parameters. The pool name is not checked here,
// it is resolved (with its fallback) when the pool is resolved.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Locators, validation.Each(validation.By(validateEndpoint))),
		validation.Field(&c.Servers, validation.Each(validation.By(validateEndpoint))),
		validation.Field(&c.FreeConnectionTimeout, validation.Min(0)),
		validation.Field(&c.IdleTimeout, validation.Min(-1)),
		validation.Field(&c.LoadConditioningInterval, validation.Min(-1)),
		validation.Field(&c.MinConnections, validation.Min(0)),
		validation.Field(&c.MaxConnections, validation.Min(-1), validation.By(c.maxNotBelowMin)),
		validation.Field(&c.PingInterval, validation.Min(0)),
		validation.Field(&c.ReadTimeout, validation.Min(0)),
		validation.Field(&c.RetryAttempts, validation.Min(-1)),
		validation.Field(&c.SocketBufferSize, validation.Required, validation.Min(1)),
		validation.Field(&c.SocketConnectTimeout, validation.Min(0)),
		validation.Field(&c.StatisticInterval, validation.Min(-1)),
		validation.Field(&c.SubscriptionAckInterval, validation.Required, validation.Min(1)),
		validation.Field(&c.SubscriptionMessageTrackingTimeout, validation.Required, validation.Min(1)),
		validation.Field(&c.SubscriptionRedundancy, validation.Min(-1)),
		validation.Field(&c.SubscriptionTimeoutMultiplier, validation.Min(0)),
	)
	if err == nil {
		return nil
	}

	return goerrors.FromOzzoValidation(err, "invalid pool configuration").
		WithTextCode(TextCodeConfigInvalid).
		WithMetadata(map[string]any{"pool": c.Name})
}

func (c Config) maxNotBelowMin(value any) error {
	limit, _ := value.(int)
	if limit >= 0 && limit < c.MinConnections {
		return errors.New("must not be lower than min connections")
	}
	return nil
}

func validateEndpoint(value any) error {
	ep, ok := value.(Endpoint)
	if !ok {
		return errors.New("must be an endpoint")
	}
	if ep.Host == "" {
		return errors.New("host is required")
	}
	if ep.Port <= 0 || ep.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}
	return nil
}
