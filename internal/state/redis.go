package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is where the document lives when no key is configured.
const DefaultRedisKey = "combogate:state"

// RedisBackend stores the document JSON under one key.
type RedisBackend struct {
	client *redis.Client
	key    string
}

// NewRedisBackend wraps client; key may be empty.
func NewRedisBackend(client *redis.Client, key string) *RedisBackend {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisBackend{client: client, key: key}
}

func (b *RedisBackend) Name() string { return "redis" }

func (b *RedisBackend) Load(ctx context.Context) (Document, error) {
	data, err := b.client.Get(ctx, b.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return DefaultDocument(), ErrNotFound
	}
	if err != nil {
		return DefaultDocument(), fmt.Errorf("state: redis get: %w", err)
	}
	return Decode(data)
}

func (b *RedisBackend) Save(ctx context.Context, doc Document) error {
	data, err := Encode(doc)
	if err != nil {
		return fmt.Errorf("state: encode: %w", err)
	}
	if err := b.client.Set(ctx, b.key, data, 0).Err(); err != nil {
		return fmt.Errorf("state: redis set: %w", err)
	}
	return nil
}

func (b *RedisBackend) Close() error { return b.client.Close() }
