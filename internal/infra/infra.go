package infra

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/payvia/payvia/internal/config"
	"github.com/payvia/payvia/internal/notification"
	"github.com/payvia/payvia/internal/store"
)

const dialTimeout = 5 * time.Second

// Backends holds the connections opened for the configured store. Either
// connection may be nil.
type Backends struct {
	DB    *pgxpool.Pool
	Cache *redis.Client
	Store store.Store
}

// Close releases every open connection.
func (b *Backends) Close() error {
	var errs []error
	if b.DB != nil {
		b.DB.Close()
	}
	if b.Cache != nil {
		errs = append(errs, b.Cache.Close())
	}
	return errors.Join(errs...)
}

// Open connects to the services named in cfg and builds the ledger store on
// top of them. Redis is also opened alongside Postgres when REDIS_URL is set,
// for idempotency and rate limiting.
func Open(ctx context.Context, cfg config.Config) (*Backends, error) {
	b := &Backends{}
	var err error

	if cfg.DatabaseURL != "" {
		if b.DB, err = NewPostgresPool(ctx, cfg.DatabaseURL); err != nil {
			return nil, err
		}
	}
	if cfg.RedisURL != "" {
		if b.Cache, err = NewRedisClient(ctx, cfg.RedisURL); err != nil {
			b.Close()
			return nil, err
		}
	}

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pg := store.NewPostgres(b.DB)
		if err := pg.Migrate(ctx); err != nil {
			b.Close()
			return nil, err
		}
		b.Store = pg
	case config.BackendRedis:
		b.Store = store.NewRedis(b.Cache)
	default:
		b.Store = store.NewMemory()
	}
	return b, nil
}

// NewPostgresPool configures and returns a PostgreSQL connection pool.
func NewPostgresPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	if url == "" {
		return nil, fmt.Errorf("database url is required")
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// NewRedisClient configures a Redis client and verifies connectivity.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url is required")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewNotifier publishes to Kafka when brokers are configured and logs
// otherwise. The returned close func is never nil.
func NewNotifier(cfg config.Config, logger *slog.Logger) (notification.Notifier, func() error) {
	if len(cfg.KafkaBrokers) == 0 {
		return notification.NewLoggerNotifier(logger), func() error { return nil }
	}
	kn := notification.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	return kn, kn.Close
}
