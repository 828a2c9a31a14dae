package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/emrgen/coa/internal/compress"
	redis "github.com/redis/go-redis/v9"
)

var _ Cache = (*Redis)(nil)

// Redis is the shared cache tier and the key-value store behind the legacy
// COA manager. Every key is namespaced with prefix.
type Redis struct {
	client  *redis.Client
	prefix  string
	encoder compress.Compress
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, opts RedisOptions, encoder compress.Compress) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		Protocol: 2,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return NewRedisFromClient(client, opts.Prefix, encoder), nil
}

func NewRedisFromClient(client *redis.Client, prefix string, encoder compress.Compress) *Redis {
	if encoder == nil {
		encoder = compress.NewNop()
	}
	return &Redis{client: client, prefix: prefix, encoder: encoder}
}

// Namespace returns a Redis sharing the connection whose keys live under
// an additional prefix. Closing either closes both.
func (r *Redis) Namespace(prefix string) *Redis {
	return &Redis{client: r.client, prefix: r.prefix + prefix, encoder: r.encoder}
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

func (r *Redis) Get(ctx context.Context, key string, v any) (bool, error) {
	data, ok, err := r.GetRaw(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	data, err = r.encoder.Decode(data)
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data, err = r.encoder.Encode(data)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(key), data, ttl).Err()
}

// Flush deletes every key under the prefix.
func (r *Redis) Flush(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	keys := make([]string, 0)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

// GetRaw returns the bytes stored under key without decoding.
func (r *Redis) GetRaw(ctx context.Context, key string) ([]byte, bool, error) {
	res := r.client.Get(ctx, r.key(key))
	if err := res.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	data, err := res.Bytes()
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// SetRaw stores data under key without expiry.
func (r *Redis) SetRaw(ctx context.Context, key string, data []byte) error {
	return r.client.Set(ctx, r.key(key), data, 0).Err()
}

// SetRawPipelined writes several keys in one transaction.
func (r *Redis) SetRawPipelined(ctx context.Context, values map[string][]byte) error {
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for k, v := range values {
			if err := p.Set(ctx, r.key(k), v, 0).Err(); err != nil {
				return err
			}
		}
		return nil
	})
	return err
}

func (r *Redis) Close() error {
	return r.client.Close()
}
