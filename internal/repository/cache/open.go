package cache

import (
	"context"

	"github.com/oshokin/downtime-alerts/internal/config"
	"github.com/oshokin/downtime-alerts/internal/logger"
)

// Open creates the backend selected by cfg. When the backend cannot be
// opened the store degrades to memory and the failure is logged.
func Open(ctx context.Context, cfg *config.CacheConfig) KV {
	var (
		kv  KV
		err error
	)

	switch cfg.Backend {
	case config.BackendRedis:
		kv, err = NewRedisKV(ctx, cfg.RedisAddress, cfg.RedisDB, cfg.KeyPrefix)
	case config.BackendMemory:
		return NewMemoryKV()
	default:
		kv, err = NewSQLiteKV(ctx, cfg.Path)
	}

	if err != nil {
		logger.WarnKV(ctx, "Cache backend unavailable, keeping alerts in memory only",
			"backend", cfg.Backend, "error", err)

		return NewMemoryKV()
	}

	return kv
}
