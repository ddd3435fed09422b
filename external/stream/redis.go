package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	streampkg "github.com/rino-1830/discord-live-scribe/internal/stream"
)

type RedisLog struct {
	client *redis.Client
}

func NewRedisLog(client *redis.Client) streampkg.Log {
	return &RedisLog{client: client}
}

func (l *RedisLog) Append(ctx context.Context, stream string, fields map[string][]byte) (string, error) {
	values := make(map[string]interface{}, len(fields))
	for key, value := range fields {
		values[key] = value
	}
	id, err := l.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd to %s: %w", stream, err)
	}
	return id, nil
}

func (l *RedisLog) Read(ctx context.Context, stream, cursor string, block time.Duration, count int64) (string, *streampkg.Entry, error) {
	if count <= 0 {
		count = 1
	}
	streams, err := l.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{stream, cursor},
		Count:   count,
		Block:   block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return cursor, nil, nil
		}
		return cursor, nil, fmt.Errorf("xread from %s: %w", stream, err)
	}

	entry := firstEntry(streams)
	if entry == nil {
		return cursor, nil, nil
	}
	return entry.ID, entry, nil
}

func firstEntry(streams []redis.XStream) *streampkg.Entry {
	for _, s := range streams {
		for _, message := range s.Messages {
			return convertMessage(message)
		}
	}
	return nil
}

func convertMessage(message redis.XMessage) *streampkg.Entry {
	fields := make(map[string][]byte, len(message.Values))
	for key, value := range message.Values {
		switch v := value.(type) {
		case string:
			fields[key] = []byte(v)
		case []byte:
			fields[key] = v
		default:
			fields[key] = []byte(fmt.Sprint(v))
		}
	}
	return &streampkg.Entry{ID: message.ID, Fields: fields}
}
