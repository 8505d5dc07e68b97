package service

import (
	"context"
	"fmt"

	"github.com/SergeiKhy/link-shortener/internal/apperror"
	"github.com/SergeiKhy/link-shortener/internal/metrics"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Константы генератора алиасов
const (
	aliasLength      = 7
	maxAliasAttempts = 10
)

// AliasChecker проверяет, занят ли short_alias в хранилище
type AliasChecker interface {
	ExistsByShortAlias(ctx context.Context, shortAlias string) (bool, error)
}

// AliasSource источник уникальных алиасов для сервиса ссылок
type AliasSource interface {
	Generate(ctx context.Context) (string, error)
}

// AliasGenerator генерирует случайные алиасы и подтверждает их уникальность
// ограниченным числом проверок. Проверка не атомарна: окончательно
// уникальность гарантирует индекс в БД.
type AliasGenerator struct {
	checker     AliasChecker
	candidate   func() (string, error)
	maxAttempts int
}

type AliasGeneratorOption func(*AliasGenerator)

// WithCandidateFunc подменяет источник кандидатов (для тестов)
func WithCandidateFunc(fn func() (string, error)) AliasGeneratorOption {
	return func(g *AliasGenerator) {
		g.candidate = fn
	}
}

// WithMaxAttempts задаёт предел попыток
func WithMaxAttempts(n int) AliasGeneratorOption {
	return func(g *AliasGenerator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// NewAliasGenerator создаёт генератор поверх проверки занятости
func NewAliasGenerator(checker AliasChecker, opts ...AliasGeneratorOption) *AliasGenerator {
	g := &AliasGenerator{
		checker:     checker,
		candidate:   Candidate,
		maxAttempts: maxAliasAttempts,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Candidate случайная строка из 7 символов URL-safe алфавита nanoid
func Candidate() (string, error) {
	return gonanoid.New(aliasLength)
}

// Generate возвращает первый свободный кандидат
func (g *AliasGenerator) Generate(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		alias, err := g.candidate()
		if err != nil {
			return "", apperror.StoreFailure(fmt.Errorf("failed to generate alias: %w", err))
		}

		exists, err := g.checker.ExistsByShortAlias(ctx, alias)
		if err != nil {
			return "", apperror.StoreFailure(err)
		}

		if !exists {
			metrics.AliasGenerationAttempts.Observe(float64(attempt))
			return alias, nil
		}
	}

	metrics.AliasGenerationAttempts.Observe(float64(g.maxAttempts))
	return "", apperror.AliasGenerationExhausted(g.maxAttempts)
}
