package stream

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	streampkg "github.com/rino-1830/discord-live-scribe/internal/stream"
)

type RedisCursorStore struct {
	client *redis.Client
	key    string
}

func NewRedisCursorStore(client *redis.Client, key string) streampkg.CursorStore {
	return &RedisCursorStore{client: client, key: key}
}

func (s *RedisCursorStore) Load(ctx context.Context) (string, error) {
	cursor, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return streampkg.Beginning, nil
		}
		return "", fmt.Errorf("get cursor %s: %w", s.key, err)
	}
	if cursor == "" {
		return streampkg.Beginning, nil
	}
	return cursor, nil
}

func (s *RedisCursorStore) Save(ctx context.Context, cursor string) error {
	if err := s.client.Set(ctx, s.key, cursor, 0).Err(); err != nil {
		return fmt.Errorf("set cursor %s: %w", s.key, err)
	}
	return nil
}
