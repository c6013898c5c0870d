// Package config loads the verifier configuration and the registered
// clients from YAML files and SIGAUTH_* environment variables.
//
// A minimal configuration file:
//
//	scheme: SignedHttpRequest
//	defaults:
//	  clock_skew: 1m
//	  nonce_lifetime: 5m
//	nonce_store:
//	  driver: redis
//	  redis:
//	    addr: localhost:6379
//	clients:
//	  - id: app1
//	    name: Application One
//	    algorithm: hmac
//	    hash: sha256
//	    secret: c2VjcmV0
package config

import (
	"time"

	"github.com/vitalvas/sigauth/httpsig"
)

// Nonce store drivers.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Config is the root configuration.
type Config struct {
	// Scheme is the expected Authorization scheme.
	Scheme string `yaml:"scheme" mapstructure:"scheme"`

	// Realm is announced in WWW-Authenticate challenges.
	Realm string `yaml:"realm" mapstructure:"realm"`

	// Defaults apply to clients that do not set their own values.
	Defaults DefaultsConfig `yaml:"defaults" mapstructure:"defaults"`

	// NonceStore selects where presented nonces are remembered.
	NonceStore NonceStoreConfig `yaml:"nonce_store" mapstructure:"nonce_store"`

	// Server configures the serve command.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// ClientCacheTTL enables a lookup cache in front of the client store
	// when positive.
	ClientCacheTTL time.Duration `yaml:"client_cache_ttl" mapstructure:"client_cache_ttl"`

	// Clients are the registered signing parties.
	Clients []ClientConfig `yaml:"clients" mapstructure:"clients"`
}

// DefaultsConfig holds per-client defaults.
type DefaultsConfig struct {
	ClockSkew     time.Duration `yaml:"clock_skew" mapstructure:"clock_skew"`
	NonceLifetime time.Duration `yaml:"nonce_lifetime" mapstructure:"nonce_lifetime"`
	Escaping      string        `yaml:"escaping" mapstructure:"escaping"`
}

// ServerConfig configures the HTTP listener of the serve command.
type ServerConfig struct {
	Listen          string        `yaml:"listen" mapstructure:"listen"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// NonceStoreConfig configures the nonce store.
type NonceStoreConfig struct {
	// Driver is "memory" or "redis".
	Driver string `yaml:"driver" mapstructure:"driver"`

	// PruneInterval is how often the memory driver drops expired nonces.
	PruneInterval time.Duration `yaml:"prune_interval" mapstructure:"prune_interval"`

	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig configures the redis nonce store driver.
type RedisConfig struct {
	Addr        string        `yaml:"addr" mapstructure:"addr"`
	Password    string        `yaml:"password,omitempty" mapstructure:"password"`
	DB          int           `yaml:"db" mapstructure:"db"`
	KeyPrefix   string        `yaml:"key_prefix" mapstructure:"key_prefix"`
	DialTimeout time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
}

// ClientConfig describes one registered client and its key material.
//
// Algorithm is "hmac", "rsa" or "ecdsa", optionally with the hash appended
// ("rsa-sha512"). HMAC clients carry a base64 Secret; RSA and ECDSA clients
// carry PEM keys inline or as file paths. A private key allows signing as
// well as verifying.
type ClientConfig struct {
	ID             string          `yaml:"id" mapstructure:"id"`
	Name           string          `yaml:"name" mapstructure:"name"`
	Algorithm      string          `yaml:"algorithm" mapstructure:"algorithm"`
	Hash           string          `yaml:"hash,omitempty" mapstructure:"hash"`
	Secret         string          `yaml:"secret,omitempty" mapstructure:"secret"`
	PublicKey      string          `yaml:"public_key,omitempty" mapstructure:"public_key"`
	PublicKeyFile  string          `yaml:"public_key_file,omitempty" mapstructure:"public_key_file"`
	PrivateKey     string          `yaml:"private_key,omitempty" mapstructure:"private_key"`
	PrivateKeyFile string          `yaml:"private_key_file,omitempty" mapstructure:"private_key_file"`
	ClockSkew      time.Duration   `yaml:"clock_skew,omitempty" mapstructure:"clock_skew"`
	NonceLifetime  time.Duration   `yaml:"nonce_lifetime,omitempty" mapstructure:"nonce_lifetime"`
	Escaping       string          `yaml:"escaping,omitempty" mapstructure:"escaping"`
	DefaultHeaders []string        `yaml:"default_headers,omitempty" mapstructure:"default_headers"`
	Claims         []httpsig.Claim `yaml:"claims,omitempty" mapstructure:"claims"`
}

// Client returns the client configuration with the given id.
func (c *Config) Client(id string) (*ClientConfig, bool) {
	for i := range c.Clients {
		if c.Clients[i].ID == id {
			return &c.Clients[i], true
		}
	}

	return nil, false
}
