package persistence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dancecoin-ledger/internal/config"
	goredis "github.com/redis/go-redis/v9"
)

// NewRedisClient connects the client used for balance notifications
func NewRedisClient(ctx context.Context, logger *slog.Logger, cfg *config.RedisConfig) (goredis.UniversalClient, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	logger.Info("Connected to Redis", "addr", cfg.Addr)
	return client, nil
}
