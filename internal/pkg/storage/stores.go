package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/Vodeneev/adnbet/internal/pkg/config"
)

// Stores bundles the PostgreSQL stores and the rest cache of one process. All
// PostgreSQL stores share one pool and one retrier.
type Stores struct {
	DB        *sqlx.DB
	Profiles  *PostgresProfileSource
	History   *PostgresMatchHistory
	Odds      *PostgresOddsSource
	Contexts  *PostgresContextStore
	Snapshots *PostgresSnapshotStore
	RestCache RestCache

	redis *redis.Client
}

// Open connects to PostgreSQL, creates missing tables and, when enabled, connects
// the Redis rest cache. Without Redis the cache is process-local.
func Open(ctx context.Context, cfg *config.Config, observer RetryObserver) (*Stores, error) {
	db, err := OpenPostgres(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	retry := NewRetrier("postgres", cfg.Retry, cfg.Breaker, observer)
	timeout := cfg.Postgres.QueryTimeout
	s := &Stores{
		DB:        db,
		Profiles:  NewPostgresProfileSource(db, timeout, retry),
		History:   NewPostgresMatchHistory(db, timeout, retry),
		Odds:      NewPostgresOddsSource(db, timeout, retry),
		Contexts:  NewPostgresContextStore(db, timeout, retry),
		Snapshots: NewPostgresSnapshotStore(db, timeout, retry),
		RestCache: NewMemoryRestCache(),
	}

	if cfg.Redis.Enabled {
		client, err := NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to open rest cache: %w", err)
		}
		s.redis = client
		s.RestCache = NewRedisRestCache(client, cfg.Redis.RestCacheTTL)
		slog.Info("Redis rest cache enabled", "addr", cfg.Redis.Addr)
	}
	return s, nil
}

// Close releases the pool and the Redis client.
func (s *Stores) Close() error {
	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	errs = append(errs, s.DB.Close())
	return errors.Join(errs...)
}

// Ping checks PostgreSQL and, when configured, Redis.
func (s *Stores) Ping(ctx context.Context) error {
	if err := s.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}
