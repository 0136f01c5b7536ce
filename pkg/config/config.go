package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/goliatone/go-gridpool/pkg/logging"
	"github.com/goliatone/go-gridpool/pool"
)

// EnvPrefix prefixes the environment variables that override file values,
// e.g. GRIDPOOL_HTTP_ADDR or GRIDPOOL_LOG_LEVEL.
const EnvPrefix = "GRIDPOOL"

// Config is the process configuration for the gridpool service.
type Config struct {
	Log   logging.Config `mapstructure:"log"`
	HTTP  HTTPConfig     `mapstructure:"http"`
	Cache CacheConfig    `mapstructure:"cache"`
	Redis RedisConfig    `mapstructure:"redis"`

	// Pools is decoded separately, see decodePools.
	Pools []pool.Config `mapstructure:"-"`
}

// HTTPConfig configures the introspection API.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// CacheConfig configures the snapshot cache.
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Capacity int           `mapstructure:"capacity"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// RedisConfig tunes the redis backed pool factory. A zero DialRate means
// connection attempts are not rate limited.
type RedisConfig struct {
	DialRate  float64 `mapstructure:"dial_rate"`
	DialBurst int     `mapstructure:"dial_burst"`
}

// Default returns the configuration used when a key is absent from both
// the file and the environment.
func Default() Config {
	return Config{
		Log: logging.DefaultConfig(),
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:  true,
			Capacity: 1024,
			TTL:      5 * time.Second,
		},
		Redis: RedisConfig{
			DialBurst: 1,
		},
	}
}

// Load reads the YAML file at path. ${VAR} references in the file are
// expanded from the environment before parsing and GRIDPOOL_* variables
// override the scalar settings.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, goerrors.Wrap(err, goerrors.CategoryNotFound, "failed to read config file").
			WithMetadata(map[string]any{"path": path})
	}
	return Parse(data)
}

// Parse decodes YAML configuration from data.
func Parse(data []byte) (Config, error) {
	v := newViper()

	content := os.ExpandEnv(string(data))
	if err := v.ReadConfig(bytes.NewBufferString(content)); err != nil {
		return Config{}, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to decode config")
	}

	pools, err := decodePools(v.Get("pools"))
	if err != nil {
		return Config{}, err
	}
	cfg.Pools = pools

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.development", def.Log.Development)
	v.SetDefault("log.encoding", def.Log.Encoding)
	v.SetDefault("log.output_paths", def.Log.OutputPaths)
	v.SetDefault("http.addr", def.HTTP.Addr)
	v.SetDefault("http.shutdown_timeout", def.HTTP.ShutdownTimeout)
	v.SetDefault("cache.enabled", def.Cache.Enabled)
	v.SetDefault("cache.capacity", def.Cache.Capacity)
	v.SetDefault("cache.ttl", def.Cache.TTL)
	v.SetDefault("redis.dial_rate", def.Redis.DialRate)
	v.SetDefault("redis.dial_burst", def.Redis.DialBurst)
	return v
}

// Validate checks the service settings and every pool definition.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c.HTTP,
		validation.Field(&c.HTTP.Addr, validation.Required),
		validation.Field(&c.HTTP.ShutdownTimeout, validation.Min(time.Duration(0))),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid http configuration")
	}

	if c.Cache.Enabled {
		err = validation.ValidateStruct(&c.Cache,
			validation.Field(&c.Cache.Capacity, validation.Required, validation.Min(1)),
			validation.Field(&c.Cache.TTL, validation.Required, validation.Min(time.Millisecond)),
		)
		if err != nil {
			return goerrors.FromOzzoValidation(err, "invalid cache configuration")
		}
	}

	err = validation.ValidateStruct(&c.Redis,
		validation.Field(&c.Redis.DialRate, validation.Min(float64(0))),
		validation.Field(&c.Redis.DialBurst, validation.Min(0)),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid redis configuration")
	}

	seen := make(map[string]struct{}, len(c.Pools))
	for i, p := range c.Pools {
		if p.Name == "" {
			return newPoolError("pool name is required", i, p.Name)
		}
		if _, ok := seen[p.Name]; ok {
			return newPoolError("duplicate pool name", i, p.Name)
		}
		seen[p.Name] = struct{}{}

		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Pool returns the pool definition with the given name.
func (c Config) Pool(name string) (pool.Config, bool) {
	for _, p := range c.Pools {
		if p.Name == name {
			return p, true
		}
	}
	return pool.Config{}, false
}

// decodePools turns the raw "pools" list into pool configs. Each entry
// starts from pool.DefaultConfig so omitted settings keep vendor defaults.
func decodePools(raw any) ([]pool.Config, error) {
	if raw == nil {
		return nil, nil
	}

	entries, ok := raw.([]any)
	if !ok {
		return nil, newPoolError("pools must be a list", -1, "")
	}

	pools := make([]pool.Config, 0, len(entries))
	for i, entry := range entries {
		fields, ok := toStringMap(entry)
		if !ok {
			return nil, newPoolError("pool entry must be a mapping", i, "")
		}

		cfg, err := decodePool(fields)
		if err != nil {
			return nil, poolDecodeError(err, i, fields["name"])
		}
		pools = append(pools, cfg)
	}
	return pools, nil
}

func decodePool(fields map[string]any) (pool.Config, error) {
	cfg := pool.DefaultConfig()

	locators, err := endpointList(fields, "locators", pool.DefaultLocatorPort)
	if err != nil {
		return cfg, err
	}
	servers, err := endpointList(fields, "servers", pool.DefaultServerPort)
	if err != nil {
		return cfg, err
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &cfg,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return cfg, err
	}
	if err := decoder.Decode(fields); err != nil {
		return cfg, err
	}

	return cfg.WithLocators(locators...).WithServers(servers...), nil
}

// endpointList removes key from fields and parses its entries as endpoints.
func endpointList(fields map[string]any, key string, defaultPort int) ([]pool.Endpoint, error) {
	raw, ok := fields[key]
	delete(fields, key)
	if !ok || raw == nil {
		return nil, nil
	}

	var values []string
	switch list := raw.(type) {
	case string:
		values = strings.Split(list, ",")
	case []any:
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, goerrors.New(key+" entries must be host:port strings", goerrors.CategoryValidation).
					WithTextCode(pool.TextCodeConfigInvalid)
			}
			values = append(values, s)
		}
	default:
		return nil, goerrors.New(key+" must be a list", goerrors.CategoryValidation).
			WithTextCode(pool.TextCodeConfigInvalid)
	}

	return pool.ParseEndpoints(values, defaultPort)
}

func toStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[strings.ToLower(k)] = val
		}
		return out, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			key, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[strings.ToLower(key)] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func newPoolError(msg string, index int, name string) *goerrors.Error {
	return goerrors.New(msg, goerrors.CategoryValidation).
		WithTextCode(pool.TextCodeConfigInvalid).
		WithMetadata(map[string]any{"index": index, "pool": name})
}

func poolDecodeError(err error, index int, name any) *goerrors.Error {
	var structured *goerrors.Error
	if goerrors.As(err, &structured) {
		return structured.WithMetadata(map[string]any{"index": index})
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid pool definition").
		WithTextCode(pool.TextCodeConfigInvalid).
		WithMetadata(map[string]any{"index": index, "pool": name})
}
