package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"spilledin/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// GetJSON reads key and unmarshals it into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if client == nil {
		return false, nil
	}
	s, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(s, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and stores it under key with ttl.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, b, ttl).Err()
}

// Aside serves dest from the cache, or calls fetch to fill it and stores the
// result. Cache failures are logged and never fail the call.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := GetJSON(ctx, key, dest)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
	}
	if found {
		return nil
	}

	if err := fetch(); err != nil {
		return err
	}

	if err := SetJSON(ctx, key, dest, ttl); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
	return nil
}

// ErrUnavailable is returned by operations that need Redis when no client
// is configured.
var ErrUnavailable = errors.New("cache: redis client not configured")

// TakeJSON atomically reads and deletes key. Used for single-use values.
func TakeJSON(ctx context.Context, key string, dest any) (bool, error) {
	if client == nil {
		return false, ErrUnavailable
	}
	s, err := client.GetDel(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(s, dest)
}

// SetFlag stores a marker under key for ttl.
func SetFlag(ctx context.Context, key string, ttl time.Duration) error {
	if client == nil {
		return ErrUnavailable
	}
	return client.Set(ctx, key, "1", ttl).Err()
}

// Exists reports whether key is present. Without a client nothing exists.
func Exists(ctx context.Context, key string) (bool, error) {
	if client == nil {
		return false, nil
	}
	n, err := client.Exists(ctx, key).Result()
	return n > 0, err
}
