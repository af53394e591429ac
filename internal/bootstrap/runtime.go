// Package bootstrap wires the process-wide runtime shared by the binaries.
package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"spilledin/internal/cache"
	"spilledin/internal/config"
	"spilledin/internal/database"
	"spilledin/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SkipDemo disables the development demo bootstrap even when configured.
	SkipDemo bool
}

// InitRuntime connects to DB and Redis and, in development, ensures the demo
// companies and account exist.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if shouldBootstrapDemo(cfg, opts) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := seed.EnsureDemo(ctx, db); err != nil {
			return nil, nil, fmt.Errorf("failed to bootstrap development demo data: %w", err)
		}
	}

	return db, r, nil
}

func shouldBootstrapDemo(cfg *config.Config, opts Options) bool {
	if cfg == nil || opts.SkipDemo {
		return false
	}
	return strings.EqualFold(cfg.Env, "development") && cfg.DevBootstrapDemo
}
