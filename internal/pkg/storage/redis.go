package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Vodeneev/adnbet/internal/pkg/config"
	"github.com/Vodeneev/adnbet/internal/pkg/models"
)

// Ensure RedisRestCache implements RestCache
var _ RestCache = (*RedisRestCache)(nil)

// RedisRestCache stores rest analyses as JSON under RestCacheKey.
type RedisRestCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisClient connects and pings the server
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Check connection
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

func NewRedisRestCache(client redis.Cmdable, ttl time.Duration) *RedisRestCache {
	return &RedisRestCache{client: client, ttl: ttl}
}

// Get returns a cached analysis. A miss is (nil, false, nil).
func (r *RedisRestCache) Get(ctx context.Context, team string, target time.Time, version int64) (*models.RestAnalysis, bool, error) {
	key := RestCacheKey(team, target, version)
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}

	var analysis models.RestAnalysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		// a corrupt entry is a miss; the calculator overwrites it
		return nil, false, nil
	}
	return &analysis, true, nil
}

// Set stores an analysis under its (team, target date, version) key
func (r *RedisRestCache) Set(ctx context.Context, analysis *models.RestAnalysis) error {
	key := RestCacheKey(analysis.Team, analysis.TargetDate, analysis.SourceDataVersion)
	data, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("failed to marshal rest analysis: %w", err)
	}
	return r.client.Set(ctx, key, data, r.ttl).Err()
}
