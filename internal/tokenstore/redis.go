package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix is prepended to Key when no prefix is configured.
const DefaultRedisKeyPrefix = "autogmail:"

// RedisConfig configures the redis backend.
type RedisConfig struct {
	// URL is a redis:// connection URL; takes precedence over Addr
	URL string `yaml:"url"`

	// Addr is the host:port of the Redis server (default: localhost:6379)
	Addr string `yaml:"addr"`

	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// KeyPrefix namespaces the token key (default: "autogmail:")
	KeyPrefix string `yaml:"key_prefix"`

	// TTL expires the stored token; zero keeps it until Clear
	TTL time.Duration `yaml:"ttl"`
}

// Redis stores the token under a single Redis key.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedis connects to Redis and verifies the connection with PING.
func NewRedis(ctx context.Context, config RedisConfig) (*Redis, error) {
	var opts *redis.Options
	if config.URL != "" {
		parsed, err := redis.ParseURL(config.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		opts = parsed
	} else {
		addr := config.Addr
		if addr == "" {
			addr = "localhost:6379"
		}
		opts = &redis.Options{
			Addr:     addr,
			Password: config.Password,
			DB:       config.DB,
		}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return NewRedisWithClient(client, config.KeyPrefix, config.TTL), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *Redis {
	if keyPrefix == "" {
		keyPrefix = DefaultRedisKeyPrefix
	}
	return &Redis{
		client: client,
		key:    keyPrefix + Key,
		ttl:    ttl,
	}
}

// Get returns the stored token, or "" when the key does not exist.
func (r *Redis) Get(ctx context.Context) (string, error) {
	token, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token from redis: %w", err)
	}
	return token, nil
}

// Set stores the token with the configured TTL.
func (r *Redis) Set(ctx context.Context, token string) error {
	if err := r.client.Set(ctx, r.key, token, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write token to redis: %w", err)
	}
	return nil
}

// Clear deletes the token key.
func (r *Redis) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("failed to delete token from redis: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
