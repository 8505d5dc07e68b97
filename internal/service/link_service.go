package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SergeiKhy/link-shortener/internal/apperror"
	"github.com/SergeiKhy/link-shortener/internal/metrics"
	"github.com/SergeiKhy/link-shortener/internal/models"
	"github.com/SergeiKhy/link-shortener/internal/repository"
	"go.uber.org/zap"
)

// Константы сервиса
const (
	defaultCacheTTL = 24 * time.Hour
	DefaultPage     = 1
	DefaultPageSize = 20
)

// Допустимые форматы expires_at: RFC 3339 со смещением или локальное время (UTC)
var expiresAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// LinkService интерфейс сервиса ссылок
type LinkService interface {
	CreateLink(ctx context.Context, input *models.CreateLinkInput) (*models.Link, error)
	Resolve(ctx context.Context, shortAlias, callerIP string) (string, error)
	GetInfo(ctx context.Context, shortAlias string) (*models.Link, error)
	GetAnalytics(ctx context.Context, shortAlias string) (*models.LinkAnalytics, error)
	DeleteLink(ctx context.Context, shortAlias string) (*models.Link, error)
	ListLinks(ctx context.Context, page, pageSize int) (*models.LinkPage, error)
}

// Option настройка сервиса
type Option func(*linkService)

// WithCacheTTL время жизни записи в кэше редиректов
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *linkService) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithClock подменяет источник времени (для тестов)
func WithClock(now func() time.Time) Option {
	return func(s *linkService) {
		s.now = now
	}
}

// linkService реализация сервиса ссылок
type linkService struct {
	linkRepo  repository.LinkRepository
	clickRepo repository.ClickRepository
	tx        repository.Transactor
	cacheRepo repository.CacheRepository
	aliases   AliasSource
	logger    *zap.Logger
	cacheTTL  time.Duration
	now       func() time.Time
}

// NewLinkService создаёт новый экземпляр сервиса
func NewLinkService(
	linkRepo repository.LinkRepository,
	clickRepo repository.ClickRepository,
	tx repository.Transactor,
	cacheRepo repository.CacheRepository,
	aliases AliasSource,
	logger *zap.Logger,
	opts ...Option,
) LinkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheRepo == nil {
		cacheRepo = repository.NewNopCacheRepository()
	}
	s := &linkService{
		linkRepo:  linkRepo,
		clickRepo: clickRepo,
		tx:        tx,
		cacheRepo: cacheRepo,
		aliases:   aliases,
		logger:    logger,
		cacheTTL:  defaultCacheTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateLink создаёт новую короткую ссылку
func (s *linkService) CreateLink(ctx context.Context, input *models.CreateLinkInput) (*models.Link, error) {
	expiresAt, err := parseExpiresAt(input.ExpiresAt)
	if err != nil {
		return nil, err
	}

	alias := input.Alias
	if alias != nil && *alias == "" {
		return nil, apperror.Validation("Validation failed", apperror.Detail{
			Path:    "alias",
			Message: "alias cannot be empty",
		})
	}

	var shortAlias string
	if alias != nil {
		// Предварительная проверка: быстрый отказ без попытки вставки
		_, err := s.linkRepo.GetByAlias(ctx, *alias)
		switch {
		case err == nil:
			return nil, apperror.AliasConflict(*alias, nil)
		case !errors.Is(err, repository.ErrLinkNotFound):
			return nil, apperror.StoreFailure(err)
		}
		shortAlias = *alias
	} else {
		shortAlias, err = s.aliases.Generate(ctx)
		if err != nil {
			return nil, err
		}
	}

	link := &models.Link{
		OriginalURL: input.OriginalURL,
		ShortAlias:  shortAlias,
		Alias:       alias,
		CreatedAt:   s.now().UTC(),
		ExpiresAt:   expiresAt,
		ClickCount:  0,
	}

	// Уникальный индекс - окончательный арбитр при гонке между проверкой и вставкой
	if err := s.linkRepo.Create(ctx, link); err != nil {
		if errors.Is(err, repository.ErrAliasExists) {
			return nil, apperror.AliasConflict(shortAlias, err)
		}
		return nil, apperror.StoreFailure(err)
	}

	if link.IsCustom() {
		metrics.LinksCreated.WithLabelValues(metrics.KindCustom).Inc()
	} else {
		metrics.LinksCreated.WithLabelValues(metrics.KindGenerated).Inc()
	}

	s.logger.Info("Short link created",
		zap.String("short_alias", link.ShortAlias),
		zap.Bool("custom", link.IsCustom()),
	)

	return link, nil
}

// Resolve возвращает оригинальный URL и записывает клик.
// Инкремент счётчика и вставка клика выполняются в одной транзакции.
func (s *linkService) Resolve(ctx context.Context, shortAlias, callerIP string) (string, error) {
	if callerIP == "" {
		callerIP = models.UnknownIP
	}
	now := s.now()

	// Сначала кэш; запись о ссылке в кэше могла устареть после удаления
	if link := s.cachedLink(ctx, shortAlias); link != nil {
		if link.IsExpired(now) {
			metrics.Redirects.WithLabelValues(metrics.ResultNotFound).Inc()
			return "", apperror.LinkNotFound()
		}

		err := s.recordClick(ctx, link, callerIP, now)
		if err == nil {
			metrics.Redirects.WithLabelValues(metrics.ResultFound).Inc()
			return link.OriginalURL, nil
		}
		if !errors.Is(err, repository.ErrLinkNotFound) {
			metrics.Redirects.WithLabelValues(metrics.ResultError).Inc()
			return "", apperror.StoreFailure(err)
		}

		metrics.CacheLookups.WithLabelValues(metrics.CacheStale).Inc()
		s.evict(ctx, shortAlias)
	}

	link, err := s.linkRepo.GetByShortAlias(ctx, shortAlias)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			metrics.Redirects.WithLabelValues(metrics.ResultNotFound).Inc()
			return "", apperror.LinkNotFound()
		}
		metrics.Redirects.WithLabelValues(metrics.ResultError).Inc()
		return "", apperror.StoreFailure(err)
	}

	if link.IsExpired(now) {
		metrics.Redirects.WithLabelValues(metrics.ResultNotFound).Inc()
		return "", apperror.LinkNotFound()
	}

	s.cacheLink(ctx, link, now)

	if err := s.recordClick(ctx, link, callerIP, now); err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			// Ссылку удалили между чтением и записью клика
			s.evict(ctx, shortAlias)
			metrics.Redirects.WithLabelValues(metrics.ResultNotFound).Inc()
			return "", apperror.LinkNotFound()
		}
		metrics.Redirects.WithLabelValues(metrics.ResultError).Inc()
		return "", apperror.StoreFailure(err)
	}

	metrics.Redirects.WithLabelValues(metrics.ResultFound).Inc()
	return link.OriginalURL, nil
}

// GetInfo получает ссылку без списка кликов
func (s *linkService) GetInfo(ctx context.Context, shortAlias string) (*models.Link, error) {
	return s.findLink(ctx, shortAlias)
}

// GetAnalytics получает ссылку вместе с кликами в хронологическом порядке
func (s *linkService) GetAnalytics(ctx context.Context, shortAlias string) (*models.LinkAnalytics, error) {
	link, err := s.findLink(ctx, shortAlias)
	if err != nil {
		return nil, err
	}

	clicks, err := s.clickRepo.ListByLinkID(ctx, link.ID)
	if err != nil {
		return nil, apperror.StoreFailure(err)
	}

	return &models.LinkAnalytics{Link: *link, Clicks: clicks}, nil
}

// DeleteLink удаляет ссылку и все её клики одной транзакцией
func (s *linkService) DeleteLink(ctx context.Context, shortAlias string) (*models.Link, error) {
	link, err := s.findLink(ctx, shortAlias)
	if err != nil {
		return nil, err
	}

	var removedClicks int64
	err = s.tx.WithinTx(ctx, func(links repository.LinkRepository, clicks repository.ClickRepository) error {
		n, err := clicks.DeleteByLinkID(ctx, link.ID)
		if err != nil {
			return err
		}
		removedClicks = n
		return links.Delete(ctx, link.ID)
	})
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, apperror.LinkNotFound()
		}
		return nil, apperror.StoreFailure(err)
	}

	s.evict(ctx, shortAlias)
	metrics.LinksDeleted.Inc()

	s.logger.Info("Short link deleted",
		zap.String("short_alias", shortAlias),
		zap.Int64("clicks_removed", removedClicks),
	)

	return link, nil
}

// ListLinks постраничный список ссылок, новые первыми
func (s *linkService) ListLinks(ctx context.Context, page, pageSize int) (*models.LinkPage, error) {
	var details []apperror.Detail
	if page < 1 {
		details = append(details, apperror.Detail{Path: "page", Message: "page must be >= 1"})
	}
	if pageSize < 1 {
		details = append(details, apperror.Detail{Path: "page_size", Message: "page_size must be >= 1"})
	}
	if len(details) > 0 {
		return nil, apperror.Validation("Validation failed", details...)
	}

	total, err := s.linkRepo.Count(ctx)
	if err != nil {
		return nil, apperror.StoreFailure(err)
	}

	links, err := s.linkRepo.List(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, apperror.StoreFailure(err)
	}

	return &models.LinkPage{
		Links:      links,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

func (s *linkService) findLink(ctx context.Context, shortAlias string) (*models.Link, error) {
	link, err := s.linkRepo.GetByShortAlias(ctx, shortAlias)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, apperror.LinkNotFound()
		}
		return nil, apperror.StoreFailure(err)
	}
	return link, nil
}

// recordClick инкремент по id служит и проверкой существования ссылки
func (s *linkService) recordClick(ctx context.Context, link *models.Link, ip string, now time.Time) error {
	return s.tx.WithinTx(ctx, func(links repository.LinkRepository, clicks repository.ClickRepository) error {
		if _, err := links.IncrementClickCount(ctx, link.ID); err != nil {
			return err
		}
		return clicks.RecordClick(ctx, &models.Click{
			LinkID:    link.ID,
			IPAddress: ip,
			ClickedAt: now.UTC(),
		})
	})
}

func (s *linkService) cachedLink(ctx context.Context, shortAlias string) *models.Link {
	link, err := s.cacheRepo.Get(ctx, shortAlias)
	if err != nil {
		if errors.Is(err, repository.ErrCacheMiss) {
			metrics.CacheLookups.WithLabelValues(metrics.CacheMiss).Inc()
		} else {
			metrics.CacheLookups.WithLabelValues(metrics.CacheError).Inc()
			s.logger.Warn("Failed to read link from cache", zap.String("short_alias", shortAlias), zap.Error(err))
		}
		return nil
	}
	metrics.CacheLookups.WithLabelValues(metrics.CacheHit).Inc()
	return link
}

func (s *linkService) cacheLink(ctx context.Context, link *models.Link, now time.Time) {
	ttl := s.cacheTTL
	if link.ExpiresAt != nil {
		if untilExpiry := link.ExpiresAt.Sub(now); untilExpiry < ttl {
			ttl = untilExpiry
		}
	}
	if ttl <= 0 {
		return
	}
	if err := s.cacheRepo.Set(ctx, link, ttl); err != nil {
		s.logger.Warn("Failed to cache link", zap.String("short_alias", link.ShortAlias), zap.Error(err))
	}
}

func (s *linkService) evict(ctx context.Context, shortAlias string) {
	if err := s.cacheRepo.Delete(ctx, shortAlias); err != nil {
		s.logger.Warn("Failed to evict link from cache", zap.String("short_alias", shortAlias), zap.Error(err))
	}
}

func parseExpiresAt(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}

	value := strings.TrimSpace(*raw)
	for _, layout := range expiresAtLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}

	return nil, apperror.Validation("Validation failed", apperror.Detail{
		Path:    "expires_at",
		Message: fmt.Sprintf("invalid ISO 8601 date format: %q", value),
	})
}

func totalPages(total int64, pageSize int) int {
	size := int64(pageSize)
	return int((total + size - 1) / size)
}
