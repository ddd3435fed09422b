package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rino-1830/discord-live-scribe/internal/config"
	streampkg "github.com/rino-1830/discord-live-scribe/internal/stream"
	"github.com/samber/do/v2"
)

const redisInitTimeout = 15 * time.Second

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*redis.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		client := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), redisInitTimeout)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("%w: %v", streampkg.ErrUnavailable, err)
		}
		return client, nil
	})

	do.Provide(injector, func(i do.Injector) (streampkg.Log, error) {
		client := do.MustInvoke[*redis.Client](i)
		return NewRedisLog(client), nil
	})

	do.Provide(injector, func(i do.Injector) (streampkg.CursorStore, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.CursorMode == config.CursorModeRedis {
			client := do.MustInvoke[*redis.Client](i)
			return NewRedisCursorStore(client, cfg.CursorKey), nil
		}
		return streampkg.NewMemoryCursorStore(), nil
	})
}
