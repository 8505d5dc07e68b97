package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/SergeiKhy/link-shortener/internal/apperror"
	"github.com/SergeiKhy/link-shortener/internal/models"
	"github.com/SergeiKhy/link-shortener/internal/repository"
	"github.com/SergeiKhy/link-shortener/internal/service"
	"github.com/SergeiKhy/link-shortener/internal/service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDB = errors.New("database is down")

// fakeClock управляемое время для тестов
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testEnv struct {
	service service.LinkService
	store   *mocks.MockStore
	cache   *mocks.MockCacheRepository
	clock   *fakeClock
}

// setupTestService создаёт тестовое окружение с моковыми репозиториями
func setupTestService(t *testing.T, genOpts ...service.AliasGeneratorOption) *testEnv {
	store := mocks.NewMockStore()
	cache := mocks.NewMockCacheRepository()
	clock := newFakeClock()

	linkService := service.NewLinkService(
		store.Links(),
		store.Clicks(),
		store,
		cache,
		service.NewAliasGenerator(store.Links(), genOpts...),
		zaptest.NewLogger(t),
		service.WithClock(clock.Now),
	)

	return &testEnv{service: linkService, store: store, cache: cache, clock: clock}
}

func ptr(s string) *string {
	return &s
}

func (env *testEnv) create(t *testing.T, input *models.CreateLinkInput) *models.Link {
	t.Helper()
	link, err := env.service.CreateLink(context.Background(), input)
	require.NoError(t, err)
	return link
}

// TestLinkService_CreateLink_Generated проверяет создание ссылки со сгенерированным алиасом
func TestLinkService_CreateLink_Generated(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	link := env.create(t, &models.CreateLinkInput{OriginalURL: "https://example.com/test"})

	assert.NotZero(t, link.ID)
	assert.Len(t, link.ShortAlias, 7)
	assert.Nil(t, link.Alias)
	assert.Equal(t, int64(0), link.ClickCount)
	assert.Equal(t, "https://example.com/test", link.OriginalURL)
	assert.Equal(t, env.clock.Now(), link.CreatedAt)
	assert.Nil(t, link.ExpiresAt)

	exists, err := env.store.Links().ExistsByShortAlias(ctx, link.ShortAlias)
	require.NoError(t, err)
	assert.True(t, exists)
}

// TestLinkService_CreateLink_GeneratedAliasWasFree проверяет, что выданный алиас отсутствовал до создания
func TestLinkService_CreateLink_GeneratedAliasWasFree(t *testing.T) {
	env := setupTestService(t, service.WithCandidateFunc(sequence("taken00", "fresh00")))
	env.store.InsertLink(models.Link{OriginalURL: "https://example.com/a", ShortAlias: "taken00"})

	link := env.create(t, &models.CreateLinkInput{OriginalURL: "https://example.com/b"})

	assert.Equal(t, "fresh00", link.ShortAlias)
	assert.Equal(t, 2, env.store.LinkRows())
}

// TestLinkService_CreateLink_CustomAlias проверяет создание ссылки с кастомным алиасом
func TestLinkService_CreateLink_CustomAlias(t *testing.T) {
	env := setupTestService(t)

	link := env.create(t, &models.CreateLinkInput{
		OriginalURL: "https://example.com/x",
		Alias:       ptr("abc"),
	})

	require.NotNil(t, link.Alias)
	assert.Equal(t, "abc", *link.Alias)
	assert.Equal(t, "abc", link.ShortAlias)
	assert.Equal(t, int64(0), link.ClickCount)
	assert.Zero(t, env.store.Calls(mocks.OpExists), "генератор не должен вызываться")
}

// TestLinkService_CreateLink_EmptyAliasRejected пустой алиас - ошибка валидации, а не генерация
func TestLinkService_CreateLink_EmptyAliasRejected(t *testing.T) {
	env := setupTestService(t)

	link, err := env.service.CreateLink(context.Background(), &models.CreateLinkInput{
		OriginalURL: "https://example.com/x",
		Alias:       ptr(""),
	})

	assert.Nil(t, link)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	appErr := apperror.From(err)
	require.Len(t, appErr.Details, 1)
	assert.Equal(t, "alias", appErr.Details[0].Path)
	assert.Zero(t, env.store.LinkRows())
	assert.Zero(t, env.store.Calls(mocks.OpExists), "генератор не должен вызываться")
}

// TestLinkService_CreateLink_NilAliasIsGenerated отсутствующий алиас генерируется
func TestLinkService_CreateLink_NilAliasIsGenerated(t *testing.T) {
	env := setupTestService(t)

	link := env.create(t, &models.CreateLinkInput{OriginalURL: "https://example.com/x"})

	assert.Nil(t, link.Alias)
	assert.Len(t, link.ShortAlias, 7)
}

// TestLinkService_CreateLink_AliasConflict проверяет конфликт занятого алиаса
func TestLinkService_CreateLink_AliasConflict(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	env.create(t, &models.CreateLinkInput{OriginalURL: "https://example.com/first", Alias: ptr("taken")})

	link, err := env.service.CreateLink(ctx, &models.CreateLinkInput{
		OriginalURL: "https://example.com/second",
		Alias:       ptr("taken"),
	})

	assert.Nil(t, link)
	assert.ErrorIs(t, err, apperror.ErrAliasConflict)
	assert.Equal(t, 1, env.store.LinkRows(), "хранилище не должно измениться")
	assert.Equal(t, 1, env.store.Calls(mocks.OpCreate), "вставка не должна выполняться")
}

// TestLinkService_CreateLink_CustomAliasMatchesGeneratedShortAlias конфликт ловится уникальным индексом
func TestLinkService_CreateLink_CustomAliasMatchesGeneratedShortAlias(t *testing.T) {
	env := setupTestService(t)
	env.store.InsertLink(models.Link{OriginalURL: "https://example.com/a", ShortAlias: "Ab3_x9Z"})

	link, err := env.service.CreateLink(context.Background(), &models.CreateLinkInput{
		OriginalURL: "https://example.com/b",
		Alias:       ptr("Ab3_x9Z"),
	})

	assert.Nil(t, link)
	assert.ErrorIs(t, err, apperror.ErrAliasConflict)
	assert.Equal(t, 1, env.store.LinkRows())
}

// TestLinkService_CreateLink_InsertRaceIsConflict нарушение уникальности при вставке - это AliasConflict
func TestLinkService_CreateLink_InsertRaceIsConflict(t *testing.T) {
	env := setupTestService(t)
	env.store.FailOn(mocks.OpCreate, fmt.Errorf("%w: raced", repository.ErrAliasExists))

	_, err := env.service.CreateLink(context.Background(), &models.CreateLinkInput{
		OriginalURL: "https://example.com/x",
	})

	assert.ErrorIs(t, err, apperror.ErrAliasConflict)
	assert.Zero(t, env.store.LinkRows())
}

// TestLinkService_CreateLink_StoreFailure проверяет сокрытие внутренней ошибки
func TestLinkService_CreateLink_StoreFailure(t *testing.T) {
	env := setupTestService(t)
	env.store.FailOn(mocks.OpCreate, errDB)

	_, err := env.service.CreateLink(context.Background(), &models.CreateLinkInput{
		OriginalURL: "https://example.com/x",
	})

	require.Error(t, err)
	assert.Equal(t, apperror.KindStoreFailure, apperror.KindOf(err))
	assert.ErrorIs(t, err, errDB)
	assert.NotContains(t, apperror.From(err).Message, errDB.Error())
}

// TestLinkService_CreateLink_AliasLookupFailure ошибка предварительной проверки алиаса
func TestLinkService_CreateLink_AliasLookupFailure(t *testing.T) {
	env := setupTestService(t)
	env.store.FailOn(mocks.OpGetByAlias, errDB)

	_, err := env.service.CreateLink(context.Background(), &models.CreateLinkInput{
		OriginalURL: "https://example.com/x",
		Alias:       ptr("custom"),
	})

	assert.Equal(t, apperror.KindStoreFailure, apperror.KindOf(err))
	assert.Zero(t, env.store.Calls(mocks.OpCreate))
}

// TestLinkService_CreateLink_GenerationExhausted все кандидаты заняты
func TestLinkService_CreateLink_GenerationExhausted(t *testing.T) {
	env := setupTestService(t, service.WithCandidateFunc(sequence("dupdupd")))
	env.store.InsertLink(models.Link{OriginalURL: "https://example.com/a", ShortAlias: "dupdupd"})

	link, err := env.service.CreateLink(context.Background(), &models.CreateLinkInput{
		OriginalURL: "https://example.com/b",
	})

	assert.Nil(t, link)
	assert.ErrorIs(t, err, apperror.ErrAliasGenerationExhausted)
	assert.Equal(t, 10, env.store.Calls(mocks.OpExists))
	assert.Equal(t, 1, env.store.LinkRows())
}

// TestLinkService_CreateLink_ExpiresAt проверяет разбор expires_at
func TestLinkService_CreateLink_ExpiresAt(t *testing.T) {
	tests := []struct {
		name    string
		input   *string
		want    *time.Time
		wantErr bool
	}{
		{name: "отсутствует", input: nil, want: nil},
		{name: "пустая строка", input: ptr(""), want: nil},
		{
			name:  "RFC 3339 со смещением",
			input: ptr("2030-06-01T10:00:00+03:00"),
			want:  timePtr(time.Date(2030, 6, 1, 7, 0, 0, 0, time.UTC)),
		},
		{
			name:  "UTC с долями секунды",
			input: ptr("2030-06-01T10:00:00.250Z"),
			want:  timePtr(time.Date(2030, 6, 1, 10, 0, 0, 250_000_000, time.UTC)),
		},
		{
			name:  "локальное время без смещения",
			input: ptr("2030-06-01T10:00:00"),
			want:  timePtr(time.Date(2030, 6, 1, 10, 0, 0, 0, time.UTC)),
		},
		{name: "невалидная дата", input: ptr("tomorrow"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestService(t)

			link, err := env.service.CreateLink(context.Background(), &models.CreateLinkInput{
				OriginalURL: "https://example.com/x",
				ExpiresAt:   tt.input,
			})

			if tt.wantErr {
				assert.ErrorIs(t, err, apperror.ErrValidation)
				appErr := apperror.From(err)
				require.Len(t, appErr.Details, 1)
				assert.Equal(t, "expires_at", appErr.Details[0].Path)
				assert.Zero(t, env.store.LinkRows())
				return
			}

			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, link.ExpiresAt)
				return
			}
			require.NotNil(t, link.ExpiresAt)
			assert.True(t, tt.want.Equal(*link.ExpiresAt), "got %s", link.ExpiresAt)
		})
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}

// TestLinkService_Resolve_RecordsClick проверяет редирект и запись клика
func TestLinkService_Resolve_RecordsClick(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	link := env.create(t, &models.CreateLinkInput{OriginalURL: "https://example.com/x"})

	url, err := env.service.Resolve(ctx, link.ShortAlias, "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/x", url)

	info, err := env.service.GetInfo(ctx, link.ShortAlias)
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.ClickCount)

	analytics, err := env.service.GetAnalytics(ctx, link.ShortAlias)
	require.NoError(t, err)
	require.Len(t, analytics.Clicks, 1)
	assert.Equal(t, "203.0.113.7", analytics.Clicks[0].IPAddress)
	assert.Equal(t, link.ID, analytics.Clicks[0].LinkID)
	assert.Equal(t, env.clock.Now(), analytics.Clicks[0].ClickedAt)
}

// TestLinkService_Resolve_UnknownIP проверяет подстановку UNKNOWN
func TestLinkService_Resolve_UnknownIP(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	link := env.create(t, &models.CreateLinkInput{OriginalURL: "https://example.com/x"})

	_, err := env.service.Resolve(ctx, link.ShortAlias, "")
	require.NoError(t, err)

	analytics, err := env.service.GetAnalytics(ctx, link.ShortAlias)
	require.NoError(t, err)
	require.Len(t, analytics.Clicks, 1)
	assert.Equal(t, models.UnknownIP, analytics.Clicks[0].IPAddress)
}

// TestLinkService_Resolve_NotFound проверяет отсутствие клика для несуществующей ссылки
func TestLinkService_Resolve_NotFound(t *testing.T) {
	env := setupTestService(t)

	url, err := env.service.Resolve(context.Background(), "nonexistent", "198.51.100.1")

	assert.Empty(t, url)
	assert.ErrorIs(t, err, apperror.ErrLinkNotFound)
	assert.Zero(t, env.store.Calls(mocks.OpRecordClick))
	assert.Zero(t, env.store.Calls(mocks.OpIncrement))
}

// TestLinkService_Resolve_Expired просроченная ссылка неотличима от отсутствующей
func TestLinkService_Resolve_Expired(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	link := env.create(t, &models.CreateLinkInput{
		OriginalURL: "https://example.com/x",
		ExpiresAt:   ptr("2024-12-31T00:00:00Z"),
	})

	_, err := env.service.Resolve(ctx, link.ShortAlias, "198.51.100.1")
	assert.ErrorIs(t, err, apperror.ErrLinkNotFound)

	info, err := env.service.GetInfo(ctx, link.ShortAlias)
	require.NoError(t, err, "мягкое истечение не удаляет запись")
	assert.Equal(t, int64(0), info.ClickCount)
	assert.Zero(t, env.store.ClickRows(link.ID))
}

// TestLinkService_Resolve_ExpiresLater ссылка работает до истечения и перестаёт после
func TestLinkService_Resolve_ExpiresLater(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	link := env.create(t, &models.CreateLinkInput{
		OriginalURL: "https://example.com/x",
		ExpiresAt:   ptr("2025-01-01T13:00:00Z"),
	})

	_, err := env.service.Resolve(ctx, link.ShortAlias, "198.51.100.1")
	require.NoError(t, err)

	env.clock.Advance(2 * time.Hour)

	// запись в кэше тоже должна учитывать срок
	_, err = env.service.Resolve(ctx, link.ShortAlias, "198.51.100.1")
	assert.ErrorIs(t, err, apperror.ErrLinkNotFound)
	assert.Equal(t, 1, env.store.ClickRows(link.ID))
}

// TestLinkService_Resolve_ClickFailureRollsBackCounter счётчик и клик фиксируются вместе
func TestLinkService_Resolve_ClickFailureRollsBackCounter(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	link := env.create(t, &models.CreateLinkInput{OriginalURL: "https://example.com/x"})
	env.store.FailOn(mocks.OpRecordClick, errDB)

	_, err := env.service.Resolve(ctx, link.ShortAlias, "198.51.100.1")
	assert.Equal(t, apperror.KindStoreFailure, apperror.KindOf(err))

	info, err := env.service.GetInfo(ctx, link.ShortAlias)
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.ClickCount)
	assert.Zero(t, env.store.ClickRows(link.ID))
}

// TestLinkService_Resolve_UsesCache повторный редирект не читает ссылку из БД
func TestLinkService_Resolve_UsesCache(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	link := env.create(t, &models.CreateLinkInput{OriginalURL: "https://example.com/x"})

	_, err := env.service.Resolve(ctx, link.ShortAlias, "198.51.100.1")
	require.NoError(t, err)
	lookups := env.store.Calls(mocks.OpGetByShort)

	url, err := env.service.Resolve(ctx, link.ShortAlias, "198.51.100.2")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/x", url)
	assert.Equal(t, lookups, env.store.Calls(mocks.OpGetByShort))
	assert.Equal(t, 2, env.store.ClickRows(link.ID))
}

// TestLinkService_Resolve_CacheErrorFallsBackToStore ошибка кэша не ломает редирект
func TestLinkService_Resolve_CacheErrorFallsBackToStore(t *testing.T) {
	env := setupTestService(t)
	link := env.create(t, &models.CreateLinkInput{OriginalURL: "https://example.com/x"})
	env.cache.FailGet(errors.New("redis: connection refused"))

	url, err := env.service.Resolve(context.Background(), link.ShortAlias, "198.51.100.1")

	require.NoError(t, err)
	assert.Equal(t, "https://example.com/x", url)
}

// TestLinkService_Resolve_StaleCacheEntry устаревшая запись в кэше вытесняется
func TestLinkService_Resolve_StaleCacheEntry(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	link := env.create(t, &models.CreateLinkInput{OriginalURL: "https://example.com/new", Alias: ptr("abc")})

	// запись от удалённой ссылки с тем же алиасом
	require.NoError(t, env.cache.Set(ctx, &models.Link{
		ID:          999,
		OriginalURL: "https://example.com/old",
		ShortAlias:  "abc",
	}, time.Hour))

	url, err := env.service.Resolve(ctx, "abc", "198.51.100.1")

	require.NoError(t, err)
	assert.Equal(t, "https://example.com/new", url)
	assert.Equal(t, 1, env.store.ClickRows(link.ID))

	cached, err := env.cache.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, link.ID, cached.ID)
}

// TestLinkService_Resolve_CacheTTLBoundedByExpiry TTL кэша не превышает срок жизни ссылки
func TestLinkService_Resolve_CacheTTLBoundedByExpiry(t *testing.T) {
	env := setupTestService(t)
	link := env.create(t, &models.CreateLinkInput{
		OriginalURL: "https://example.com/x",
		ExpiresAt:   ptr("2025-01-01T13:00:00Z"),
	})

	_, err := env.service.Resolve(context.Background(), link.ShortAlias, "198.51.100.1")
	require.NoError(t, err)

	ttl, ok := env.cache.TTL(link.ShortAlias)
	require.True(t, ok)
	assert.Equal(t, time.Hour, ttl)
}

// TestLinkService_Resolve_ConcurrentClicks проверяет отсутствие потерянных инкрементов
func TestLinkService_Resolve_ConcurrentClicks(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	link := env.create(t, &models.CreateLinkInput{OriginalURL: "https://example.com/x"})

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, err := env.service.Resolve(ctx, link.ShortAlias, fmt.Sprintf("10.0.0.%d", id))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	info, err := env.service.GetInfo(ctx, link.ShortAlias)
	require.NoError(t, err)
	assert.Equal(t, int64(workers), info.ClickCount)
	assert.Equal(t, workers, env.store.ClickRows(link.ID))
}

// TestLinkService_GetInfo проверяет получение информации о ссылке
func TestLinkService_GetInfo(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	created := env.create(t, &models.CreateLinkInput{OriginalURL: "https://example.com/x", Alias: ptr("info")})

	info, err := env.service.GetInfo(ctx, "info")
	require.NoError(t, err)
	assert.Equal(t, created.ID, info.ID)
	assert.Equal(t, created.OriginalURL, info.OriginalURL)

	_, err = env.service.GetInfo(ctx, "missing")
	assert.ErrorIs(t, err, apperror.ErrLinkNotFound)
}

// TestLinkService_GetAnalytics_Order клики упорядочены по времени, затем по id
func TestLinkService_GetAnalytics_Order(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	link := env.create(t, &models.CreateLinkInput{OriginalURL: "https://example.com/x"})

	ips := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}
	for _, ip := range ips {
		env.clock.Advance(time.Second)
		_, err := env.service.Resolve(ctx, link.ShortAlias, ip)
		require.NoError(t, err)
	}
	// два клика в одну и ту же секунду
	_, err := env.service.Resolve(ctx, link.ShortAlias, "10.0.0.4")
	require.NoError(t, err)

	analytics, err := env.service.GetAnalytics(ctx, link.ShortAlias)
	require.NoError(t, err)
	require.Len(t, analytics.Clicks, 4)

	assert.Equal(t, int64(4), analytics.ClickCount)
	for i := 1; i < len(analytics.Clicks); i++ {
		prev, cur := analytics.Clicks[i-1], analytics.Clicks[i]
		assert.False(t, cur.ClickedAt.Before(prev.ClickedAt))
		if cur.ClickedAt.Equal(prev.ClickedAt) {
			assert.Less(t, prev.ID, cur.ID)
		}
	}
	assert.Equal(t, "10.0.0.1", analytics.Clicks[0].IPAddress)
	assert.Equal(t, "10.0.0.4", analytics.Clicks[3].IPAddress)

	_, err = env.service.GetAnalytics(ctx, "missing")
	assert.ErrorIs(t, err, apperror.ErrLinkNotFound)
}

// TestLinkService_DeleteLink_Success проверяет удаление ссылки вместе с кликами
func TestLinkService_DeleteLink_Success(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	link := env.create(t, &models.CreateLinkInput{OriginalURL: "https://example.com/x"})

	for i := 0; i < 3; i++ {
		_, err := env.service.Resolve(ctx, link.ShortAlias, "10.0.0.1")
		require.NoError(t, err)
	}

	deleted, err := env.service.DeleteLink(ctx, link.ShortAlias)
	require.NoError(t, err)
	assert.Equal(t, link.ID, deleted.ID)
	assert.Equal(t, int64(3), deleted.ClickCount, "возвращается запись до удаления")

	assert.Zero(t, env.store.LinkRows())
	assert.Zero(t, env.store.ClickRows(link.ID))

	_, err = env.service.GetInfo(ctx, link.ShortAlias)
	assert.ErrorIs(t, err, apperror.ErrLinkNotFound)
	_, err = env.service.GetAnalytics(ctx, link.ShortAlias)
	assert.ErrorIs(t, err, apperror.ErrLinkNotFound)
	_, err = env.service.Resolve(ctx, link.ShortAlias, "10.0.0.1")
	assert.ErrorIs(t, err, apperror.ErrLinkNotFound)

	_, err = env.cache.Get(ctx, link.ShortAlias)
	assert.ErrorIs(t, err, repository.ErrCacheMiss)
}

// TestLinkService_DeleteLink_Atomic сбой удаления ссылки откатывает удаление кликов
func TestLinkService_DeleteLink_Atomic(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	link := env.create(t, &models.CreateLinkInput{OriginalURL: "https://example.com/x"})
	_, err := env.service.Resolve(ctx, link.ShortAlias, "10.0.0.1")
	require.NoError(t, err)

	env.store.FailOn(mocks.OpDeleteLink, errDB)

	_, err = env.service.DeleteLink(ctx, link.ShortAlias)
	assert.Equal(t, apperror.KindStoreFailure, apperror.KindOf(err))
	assert.Equal(t, 1, env.store.LinkRows())
	assert.Equal(t, 1, env.store.ClickRows(link.ID))

	env.store.FailOn(mocks.OpDeleteLink, nil)
	_, err = env.service.DeleteLink(ctx, link.ShortAlias)
	require.NoError(t, err)
}

// TestLinkService_DeleteLink_NotFound проверяет удаление несуществующей ссылки
func TestLinkService_DeleteLink_NotFound(t *testing.T) {
	env := setupTestService(t)

	link, err := env.service.DeleteLink(context.Background(), "nonexistent")

	assert.Nil(t, link)
	assert.ErrorIs(t, err, apperror.ErrLinkNotFound)
	assert.Zero(t, env.store.Calls(mocks.OpBeginTx))
}

// TestLinkService_ListLinks проверяет пагинацию
func TestLinkService_ListLinks(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	var created []*models.Link
	for i := 0; i < 5; i++ {
		env.clock.Advance(time.Minute)
		created = append(created, env.create(t, &models.CreateLinkInput{
			OriginalURL: fmt.Sprintf("https://example.com/%d", i),
		}))
	}

	page, err := env.service.ListLinks(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.PageSize)
	require.Len(t, page.Links, 2)
	assert.Equal(t, created[4].ID, page.Links[0].ID)
	assert.Equal(t, created[3].ID, page.Links[1].ID)

	page, err = env.service.ListLinks(ctx, 3, 2)
	require.NoError(t, err)
	require.Len(t, page.Links, 1)
	assert.Equal(t, created[0].ID, page.Links[0].ID)

	page, err = env.service.ListLinks(ctx, 4, 2)
	require.NoError(t, err)
	assert.Empty(t, page.Links)
	assert.Equal(t, int64(5), page.Total)
}

// TestLinkService_ListLinks_Empty пустое хранилище
func TestLinkService_ListLinks_Empty(t *testing.T) {
	env := setupTestService(t)

	page, err := env.service.ListLinks(context.Background(), service.DefaultPage, service.DefaultPageSize)

	require.NoError(t, err)
	assert.Empty(t, page.Links)
	assert.Zero(t, page.Total)
	assert.Zero(t, page.TotalPages)
}

// TestLinkService_ListLinks_InvalidParams проверяет валидацию параметров
func TestLinkService_ListLinks_InvalidParams(t *testing.T) {
	env := setupTestService(t)

	_, err := env.service.ListLinks(context.Background(), 0, -1)

	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Len(t, apperror.From(err).Details, 2)
	assert.Zero(t, env.store.Calls(mocks.OpCount))
}

// TestLinkService_ConcurrentCustomAlias только один из конкурентных запросов получает алиас
func TestLinkService_ConcurrentCustomAlias(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, err := env.service.CreateLink(ctx, &models.CreateLinkInput{
				OriginalURL: fmt.Sprintf("https://example.com/%d", id),
				Alias:       ptr("race"),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, apperror.ErrAliasConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)
	assert.Equal(t, 1, env.store.LinkRows())
}

// TestLinkService_Scenario сквозной сценарий create → conflict → resolve → delete
func TestLinkService_Scenario(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	link := env.create(t, &models.CreateLinkInput{OriginalURL: "https://example.com/x", Alias: ptr("abc")})
	require.NotNil(t, link.Alias)
	assert.Equal(t, "abc", *link.Alias)
	assert.Equal(t, "abc", link.ShortAlias)
	assert.Equal(t, int64(0), link.ClickCount)

	_, err := env.service.CreateLink(ctx, &models.CreateLinkInput{OriginalURL: "https://example.com/y", Alias: ptr("abc")})
	assert.ErrorIs(t, err, apperror.ErrAliasConflict)

	url, err := env.service.Resolve(ctx, "abc", "192.0.2.10")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/x", url)

	info, err := env.service.GetInfo(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.ClickCount)

	_, err = env.service.DeleteLink(ctx, "abc")
	require.NoError(t, err)

	_, err = env.service.GetInfo(ctx, "abc")
	assert.ErrorIs(t, err, apperror.ErrLinkNotFound)
}
