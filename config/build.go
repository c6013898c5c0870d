package config

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gomodule/redigo/redis"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/vitalvas/sigauth/cachedstore"
	"github.com/vitalvas/sigauth/httpsig"
	"github.com/vitalvas/sigauth/memstore"
	"github.com/vitalvas/sigauth/redisstore"
)

const redactedValue = "********"

// ClientStore builds every configured client into a client store. When
// ClientCacheTTL is positive the store is wrapped in a lookup cache.
func (c *Config) ClientStore() (httpsig.ClientStore, error) {
	store, err := memstore.NewClientStore()
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(c.Clients))

	for i := range c.Clients {
		client, err := c.Clients[i].Build(c.Defaults)
		if err == nil {
			if err = store.Register(context.Background(), client); err != nil {
				client.Algorithm.Dispose()
			}
		}

		if err != nil {
			for _, id := range ids {
				store.Delete(context.Background(), id)
			}

			return nil, err
		}

		ids = append(ids, client.ID)
	}

	if c.ClientCacheTTL <= 0 {
		return store, nil
	}

	cached, err := cachedstore.New(store, cachedstore.WithTTL(c.ClientCacheTTL))
	if err != nil {
		return nil, err
	}

	if err := cached.Warm(context.Background(), ids...); err != nil {
		return nil, err
	}

	return cached, nil
}

// NonceStore creates the configured nonce store. The returned closer
// releases its resources, and is never nil. For the memory driver,
// expired nonces are pruned in the background until the closer is called.
func (c *Config) NonceStore() (httpsig.NonceStore, io.Closer, error) {
	switch strings.ToLower(c.NonceStore.Driver) {
	case DriverMemory, "":
		store := memstore.NewNonceStore()

		ctx, cancel := context.WithCancel(context.Background())
		if c.NonceStore.PruneInterval > 0 {
			store.StartPruning(ctx, c.NonceStore.PruneInterval, nil)
		}

		return store, closerFunc(func() error { cancel(); return nil }), nil

	case DriverRedis:
		rc := c.NonceStore.Redis

		opts := []redis.DialOption{redis.DialDatabase(rc.DB)}
		if rc.Password != "" {
			opts = append(opts, redis.DialPassword(rc.Password))
		}
		if rc.DialTimeout > 0 {
			opts = append(opts, redis.DialConnectTimeout(rc.DialTimeout))
		}

		store, err := redisstore.New(redisstore.NewPool(rc.Addr, opts...), redisstore.WithKeyPrefix(rc.KeyPrefix))
		if err != nil {
			return nil, nil, err
		}

		return store, store, nil

	default:
		return nil, nil, fmt.Errorf("%w: unknown nonce_store.driver %q", ErrInvalidConfig, c.NonceStore.Driver)
	}
}

// Verifier builds a verifier over the configured stores. The closer
// releases the nonce store.
func (c *Config) Verifier(logger *zerolog.Logger) (*httpsig.Verifier, io.Closer, error) {
	clients, err := c.ClientStore()
	if err != nil {
		return nil, nil, err
	}

	nonces, closer, err := c.NonceStore()
	if err != nil {
		return nil, nil, err
	}

	v, err := httpsig.NewVerifier(httpsig.VerifierConfig{
		Clients: clients,
		Nonces:  nonces,
		Scheme:  c.Scheme,
		Logger:  logger,
	})
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}

	return v, closer, nil
}

// Marshal renders cfg as YAML. Secrets, private keys and the redis
// password are masked unless reveal is set.
func Marshal(cfg *Config, reveal bool) ([]byte, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	out := *cfg
	out.Clients = make([]ClientConfig, len(cfg.Clients))
	copy(out.Clients, cfg.Clients)

	if !reveal {
		out.NonceStore.Redis.Password = redact(out.NonceStore.Redis.Password)

		for i := range out.Clients {
			out.Clients[i].Secret = redact(out.Clients[i].Secret)
			out.Clients[i].PrivateKey = redact(out.Clients[i].PrivateKey)
		}
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}

	return data, nil
}

func redact(s string) string {
	if s == "" {
		return ""
	}

	return redactedValue
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
