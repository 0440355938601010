package daemon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/newsdesk-cms/newsdesk/internal/auth"
	"github.com/newsdesk-cms/newsdesk/internal/config"
)

const redisPingTimeout = 5 * time.Second

// NewPermissionCache builds the configured cache backend. It returns a nil cache for
// the none backend and a non-nil close function in every case.
func NewPermissionCache(ctx context.Context, cfg config.Cache) (auth.PermissionCache, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.CacheMemory:
		log.Info().Int("size", cfg.Size).Dur("ttl", cfg.TTL).Msg("permission cache: memory")

		return auth.NewMemoryCache(cfg.Size, cfg.TTL), noop, nil
	case config.CacheRedis:
		client, err := newRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, noop, err
		}

		log.Info().Str("addr", cfg.Redis.Addr).Str("prefix", cfg.Redis.KeyPrefix).Msg("permission cache: redis")

		return auth.NewRedisCache(client, cfg.Redis.KeyPrefix, cfg.TTL), client.Close, nil
	default:
		log.Info().Msg("permission cache disabled")

		return nil, noop, nil
	}
}

// newRedisClient connects to a single node, or to a cluster when Addr lists several
// comma separated nodes.
func newRedisClient(ctx context.Context, cfg config.Redis) (redis.UniversalClient, error) {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    strings.Split(cfg.Addr, ","),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	return client, nil
}
