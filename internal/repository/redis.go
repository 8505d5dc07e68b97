package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/SergeiKhy/link-shortener/internal/config"
	"github.com/redis/go-redis/v9"
)

const defaultRedisDialTimeout = 5 * time.Second

// RedisDB клиент кэша ссылок; пул и таймауты задаются через REDIS_*
type RedisDB struct {
	Client *redis.Client
}

// redisOptions переводит RedisConfig в опции go-redis, нулевые значения оставляют умолчания клиента
func redisOptions(cfg config.RedisConfig) *redis.Options {
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = defaultRedisDialTimeout
	}

	return &redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  dialTimeout,
	}
}

// NewRedisClient открывает пул и проверяет доступность Redis одним PING
func NewRedisClient(cfg config.RedisConfig) (*RedisDB, error) {
	opts := redisOptions(cfg)
	db := &RedisDB{Client: redis.NewClient(opts)}

	ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout)
	defer cancel()

	if err := db.Ping(ctx); err != nil {
		db.Client.Close()
		return nil, err
	}

	return db, nil
}

func (db *RedisDB) Ping(ctx context.Context) error {
	if err := db.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", db.Client.Options().Addr, err)
	}
	return nil
}

func (db *RedisDB) Close() error {
	return db.Client.Close()
}
