package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"TradeDesk/internal/domain/models"

	"github.com/redis/go-redis/v9"
)

// RedisStateStore keeps the snapshot as one JSON value under a single key.
// SET replaces it atomically.
type RedisStateStore struct {
	client *redis.Client
	key    string
}

func NewRedisStateStore(client *redis.Client, key string) *RedisStateStore {
	return &RedisStateStore{client: client, key: key}
}

func (s *RedisStateStore) Load(ctx context.Context) (models.EngineState, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.EmptyState(), nil
		}
		return models.EngineState{}, fmt.Errorf("redis get state: %w", err)
	}
	return decodeState(data)
}

func (s *RedisStateStore) Save(ctx context.Context, st models.EngineState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set state: %w", err)
	}
	return nil
}

// Close is a no-op; the client is shared with the cache.
func (s *RedisStateStore) Close() error { return nil }
