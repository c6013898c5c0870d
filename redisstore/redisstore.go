// Package redisstore implements httpsig.NonceStore on top of Redis, so
// several verifier instances can share one replay window.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/vitalvas/sigauth/httpsig"
)

const (
	DefaultKeyPrefix   = "sigauth:nonce"
	DefaultMaxIdle     = 8
	DefaultIdleTimeout = 4 * time.Minute
)

// NonceStore stores nonces as Redis keys that expire with the nonce.
type NonceStore struct {
	pool   *redis.Pool
	prefix string
	clock  httpsig.Clock
}

type Option func(*NonceStore)

// WithKeyPrefix sets the prefix of every nonce key.
func WithKeyPrefix(prefix string) Option {
	return func(s *NonceStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithClock sets the clock used to compute key TTLs.
func WithClock(clock httpsig.Clock) Option {
	return func(s *NonceStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewPool returns a connection pool dialing addr over TCP.
func NewPool(addr string, opts ...redis.DialOption) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     DefaultMaxIdle,
		IdleTimeout: DefaultIdleTimeout,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialContext(ctx, "tcp", addr, opts...)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}

			_, err := c.Do("PING")
			return err
		},
	}
}

// New creates a NonceStore using pool.
func New(pool *redis.Pool, opts ...Option) (*NonceStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("%w: redis pool", httpsig.ErrNilArgument)
	}

	s := &NonceStore{
		pool:   pool,
		prefix: DefaultKeyPrefix,
		clock:  httpsig.SystemClock{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *NonceStore) key(clientID, value string) string {
	return s.prefix + ":" + url.QueryEscape(clientID) + ":" + value
}

// Register stores the nonce until its expiration. An already expired nonce
// removes any stored record instead.
func (s *NonceStore) Register(ctx context.Context, nonce httpsig.Nonce) error {
	if nonce.ClientID == "" || nonce.Value == "" {
		return fmt.Errorf("%w: nonce client id and value must not be empty", httpsig.ErrNilArgument)
	}

	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("redis connection: %w", err)
	}
	defer conn.Close()

	key := s.key(nonce.ClientID, nonce.Value)

	ttl := nonce.Expiration.Sub(s.clock.Now())
	if ttl <= 0 {
		if _, err := redis.DoContext(conn, ctx, "DEL", key); err != nil {
			return fmt.Errorf("redis DEL %s: %w", key, err)
		}

		return nil
	}

	ms := ttl.Milliseconds()
	if ms < 1 {
		ms = 1
	}

	if _, err := redis.DoContext(conn, ctx, "SET", key, nonce.Expiration.UnixNano(), "PX", ms); err != nil {
		return fmt.Errorf("redis SET %s: %w", key, err)
	}

	return nil
}

// Get returns the stored nonce, or httpsig.ErrNonceNotFound when Redis has
// no live key for it.
func (s *NonceStore) Get(ctx context.Context, clientID, value string) (*httpsig.Nonce, error) {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("redis connection: %w", err)
	}
	defer conn.Close()

	key := s.key(clientID, value)

	expiration, err := redis.Int64(redis.DoContext(conn, ctx, "GET", key))
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			return nil, httpsig.ErrNonceNotFound
		}

		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			return nil, fmt.Errorf("redis GET %s: corrupt nonce record: %w", key, err)
		}

		return nil, fmt.Errorf("redis GET %s: %w", key, err)
	}

	return &httpsig.Nonce{
		ClientID:   clientID,
		Value:      value,
		Expiration: time.Unix(0, expiration),
	}, nil
}

// Close releases the pool.
func (s *NonceStore) Close() error {
	return s.pool.Close()
}

var _ httpsig.NonceStore = (*NonceStore)(nil)
