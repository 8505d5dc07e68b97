package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SergeiKhy/link-shortener/internal/models"
	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

// CacheRepository кэш цели редиректа. Хранит только неизменяемые поля ссылки,
// click_count из кэша никогда не читается.
type CacheRepository interface {
	Get(ctx context.Context, shortAlias string) (*models.Link, error)
	Set(ctx context.Context, link *models.Link, ttl time.Duration) error
	Delete(ctx context.Context, shortAlias string) error
}

type cachedLink struct {
	ID          int64      `json:"id"`
	OriginalURL string     `json:"original_url"`
	ShortAlias  string     `json:"short_alias"`
	Alias       *string    `json:"alias,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type cacheRepository struct {
	redis *RedisDB
}

func NewCacheRepository(redis *RedisDB) CacheRepository {
	return &cacheRepository{redis: redis}
}

func (r *cacheRepository) Get(ctx context.Context, shortAlias string) (*models.Link, error) {
	data, err := r.redis.Client.Get(ctx, r.key(shortAlias)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get cached link: %w", err)
	}

	var entry cachedLink
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal link: %w", err)
	}

	return &models.Link{
		ID:          entry.ID,
		OriginalURL: entry.OriginalURL,
		ShortAlias:  entry.ShortAlias,
		Alias:       entry.Alias,
		CreatedAt:   entry.CreatedAt,
		ExpiresAt:   entry.ExpiresAt,
	}, nil
}

func (r *cacheRepository) Set(ctx context.Context, link *models.Link, ttl time.Duration) error {
	data, err := json.Marshal(cachedLink{
		ID:          link.ID,
		OriginalURL: link.OriginalURL,
		ShortAlias:  link.ShortAlias,
		Alias:       link.Alias,
		CreatedAt:   link.CreatedAt,
		ExpiresAt:   link.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal link: %w", err)
	}

	return r.redis.Client.Set(ctx, r.key(link.ShortAlias), data, ttl).Err()
}

func (r *cacheRepository) Delete(ctx context.Context, shortAlias string) error {
	return r.redis.Client.Del(ctx, r.key(shortAlias)).Err()
}

func (r *cacheRepository) key(shortAlias string) string {
	return "link:" + shortAlias
}

// nopCacheRepository используется, когда Redis не настроен
type nopCacheRepository struct{}

func NewNopCacheRepository() CacheRepository {
	return nopCacheRepository{}
}

func (nopCacheRepository) Get(context.Context, string) (*models.Link, error) {
	return nil, ErrCacheMiss
}

func (nopCacheRepository) Set(context.Context, *models.Link, time.Duration) error {
	return nil
}

func (nopCacheRepository) Delete(context.Context, string) error {
	return nil
}
