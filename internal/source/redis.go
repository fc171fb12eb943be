package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/conduit-lang/relstore/internal/orm/store"
)

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	// Addr is the Redis server address (host:port)
	Addr string `mapstructure:"addr"`
	// Password is the Redis password (optional)
	Password string `mapstructure:"password"`
	// DB is the Redis database number
	DB int `mapstructure:"db"`
	// Prefix is prepended to every key
	Prefix string `mapstructure:"prefix"`
}

// DefaultRedisConfig returns a default Redis configuration
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:   "localhost:6379",
		Prefix: "relstore:",
	}
}

// RedisSource reads records stored as JSON strings under
// "<prefix><model>:<id>".
type RedisSource struct {
	client *redis.Client
	prefix string
}

// NewRedisSource connects to Redis and checks the connection
func NewRedisSource(ctx context.Context, cfg RedisConfig) (*RedisSource, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return NewRedisSourceWithClient(client, cfg.Prefix), nil
}

// NewRedisSourceWithClient creates a source over an existing client
func NewRedisSourceWithClient(client *redis.Client, prefix string) *RedisSource {
	return &RedisSource{client: client, prefix: prefix}
}

// Key returns the Redis key of a record
func (r *RedisSource) Key(model string, id any) string {
	return r.prefix + model + ":" + idKey(id)
}

// Fetch reads the requested records with a single MGET
func (r *RedisSource) Fetch(ctx context.Context, model string, ids []any) ([]store.Values, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.Key(model, id)
	}

	payloads, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s records: %w", model, err)
	}

	var result []store.Values
	for i, payload := range payloads {
		text, ok := payload.(string)
		if !ok {
			continue
		}
		values, err := decodeRecord([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", keys[i], err)
		}
		result = append(result, values)
	}
	return result, nil
}

// Snapshot scans every key under the prefix
func (r *RedisSource) Snapshot(ctx context.Context) (store.RawData, error) {
	raw := make(store.RawData)
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		model, ok := r.modelOf(key)
		if !ok {
			continue
		}
		text, err := r.client.Get(ctx, key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", key, err)
		}
		values, err := decodeRecord([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		raw[model] = append(raw[model], values)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan records: %w", err)
	}
	return raw, nil
}

// modelOf extracts the model name of a key. Model names may contain dots but
// not colons.
func (r *RedisSource) modelOf(key string) (string, bool) {
	rest := strings.TrimPrefix(key, r.prefix)
	i := strings.LastIndex(rest, ":")
	if i <= 0 {
		return "", false
	}
	return rest[:i], true
}

// Close closes the Redis connection
func (r *RedisSource) Close() error {
	return r.client.Close()
}
