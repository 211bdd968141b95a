package publish

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	logx "jobcaster/pkg/logx"
)

const redisKeyPrefix = "jobcaster:published:"

type redisLedger struct {
	client *redis.Client
	log    logx.Logger
}

func openRedis(ctx context.Context, cfg Config, log logx.Logger) (Ledger, error) {
	if cfg.RedisURL == "" {
		return nil, errors.New("redis ledger url is required")
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	log.Info("publish ledger opened", logx.String("driver", "redis"))
	return &redisLedger{client: client, log: log}, nil
}

func (r *redisLedger) WasPublished(ctx context.Context, jobID string) (bool, error) {
	n, err := r.client.Exists(ctx, redisKeyPrefix+jobID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Claim maps directly onto SETNX: the write succeeds for exactly one caller.
// No TTL; a published job id never expires.
func (r *redisLedger) Claim(ctx context.Context, jobID string) (bool, error) {
	return r.client.SetNX(ctx, redisKeyPrefix+jobID, 1, 0).Result()
}

func (r *redisLedger) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}
