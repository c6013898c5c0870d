package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/vitalvas/sigauth/httpsig"
)

var (
	ErrConfigNil     = errors.New("config: configuration is nil")
	ErrInvalidConfig = errors.New("config: invalid configuration")
	ErrInvalidClient = errors.New("config: invalid client")
	ErrUnknownClient = errors.New("config: unknown client")
)

// EnvPrefix prefixes environment variable overrides, e.g.
// SIGAUTH_NONCE_STORE_REDIS_ADDR.
const EnvPrefix = "SIGAUTH"

func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scheme", httpsig.DefaultScheme)
	v.SetDefault("realm", httpsig.DefaultRealm)
	v.SetDefault("client_cache_ttl", "0s")

	v.SetDefault("defaults.clock_skew", httpsig.DefaultClockSkew.String())
	v.SetDefault("defaults.nonce_lifetime", httpsig.DefaultNonceLifetime.String())
	v.SetDefault("defaults.escaping", httpsig.EscapingRFC3986.String())

	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("nonce_store.driver", DriverMemory)
	v.SetDefault("nonce_store.prune_interval", "1m")
	v.SetDefault("nonce_store.redis.addr", "")
	v.SetDefault("nonce_store.redis.password", "")
	v.SetDefault("nonce_store.redis.db", 0)
	v.SetDefault("nonce_store.redis.key_prefix", "sigauth:nonce")
	v.SetDefault("nonce_store.redis.dial_timeout", "5s")
}

func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	)
}

// Load reads the YAML file at path, applies SIGAUTH_* environment
// overrides and validates the result. An empty path loads defaults and
// environment only.
func Load(path string) (*Config, error) {
	v := newViperInstance()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	return unmarshalAndValidate(v)
}

func unmarshalAndValidate(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for invalid or inconsistent values and
// returns the first problem found.
func Validate(cfg *Config) error {
	if cfg == nil {
		return ErrConfigNil
	}

	if strings.TrimSpace(cfg.Scheme) == "" {
		return fmt.Errorf("%w: scheme must not be empty", ErrInvalidConfig)
	}

	if cfg.ClientCacheTTL < 0 {
		return fmt.Errorf("%w: client_cache_ttl must not be negative, got %s", ErrInvalidConfig, cfg.ClientCacheTTL)
	}

	if cfg.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: server.max_body_bytes must be positive, got %d", ErrInvalidConfig, cfg.Server.MaxBodyBytes)
	}

	if err := validateDefaults(&cfg.Defaults); err != nil {
		return err
	}

	if err := validateNonceStore(&cfg.NonceStore); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(cfg.Clients))
	for i := range cfg.Clients {
		client := &cfg.Clients[i]

		if err := validateClient(client); err != nil {
			return fmt.Errorf("clients[%d]: %w", i, err)
		}

		if _, dup := seen[client.ID]; dup {
			return fmt.Errorf("clients[%d]: %w: duplicate id %q", i, ErrInvalidClient, client.ID)
		}
		seen[client.ID] = struct{}{}
	}

	return nil
}

func validateDefaults(cfg *DefaultsConfig) error {
	if cfg.ClockSkew < 0 {
		return fmt.Errorf("%w: defaults.clock_skew must not be negative, got %s", ErrInvalidConfig, cfg.ClockSkew)
	}

	if cfg.NonceLifetime < 0 {
		return fmt.Errorf("%w: defaults.nonce_lifetime must not be negative, got %s", ErrInvalidConfig, cfg.NonceLifetime)
	}

	if _, err := httpsig.ParseRequestTargetEscaping(cfg.Escaping); err != nil {
		return fmt.Errorf("%w: defaults.escaping: %w", ErrInvalidConfig, err)
	}

	return nil
}

func validateNonceStore(cfg *NonceStoreConfig) error {
	switch strings.ToLower(cfg.Driver) {
	case DriverMemory:
		if cfg.PruneInterval < 0 {
			return fmt.Errorf("%w: nonce_store.prune_interval must not be negative", ErrInvalidConfig)
		}
	case DriverRedis:
		if cfg.Redis.Addr == "" {
			return fmt.Errorf("%w: nonce_store.redis.addr is required for the redis driver", ErrInvalidConfig)
		}

		if cfg.Redis.DB < 0 {
			return fmt.Errorf("%w: nonce_store.redis.db must not be negative", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown nonce_store.driver %q", ErrInvalidConfig, cfg.Driver)
	}

	return nil
}

func validateClient(cfg *ClientConfig) error {
	if strings.TrimSpace(cfg.ID) == "" {
		return fmt.Errorf("%w: id must not be empty", ErrInvalidClient)
	}

	family, hash, err := cfg.familyAndHash()
	if err != nil {
		return err
	}

	if !hash.IsSupported() {
		return fmt.Errorf("%w: %q: unsupported hash %q", ErrInvalidClient, cfg.ID, hash)
	}

	switch family {
	case httpsig.FamilyHMAC:
		if cfg.Secret == "" {
			return fmt.Errorf("%w: %q: hmac clients require a secret", ErrInvalidClient, cfg.ID)
		}
	default:
		if !cfg.hasPublicKey() && !cfg.hasPrivateKey() {
			return fmt.Errorf("%w: %q: %s clients require a public or private key", ErrInvalidClient, cfg.ID, family)
		}
	}

	if cfg.ClockSkew < 0 || cfg.NonceLifetime < 0 {
		return fmt.Errorf("%w: %q: durations must not be negative", ErrInvalidClient, cfg.ID)
	}

	if _, err := httpsig.ParseRequestTargetEscaping(cfg.Escaping); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidClient, cfg.ID, err)
	}

	for _, h := range cfg.DefaultHeaders {
		if _, err := httpsig.ParseHeaderName(h); err != nil {
			return fmt.Errorf("%w: %q: %w", ErrInvalidClient, cfg.ID, err)
		}
	}

	return nil
}
