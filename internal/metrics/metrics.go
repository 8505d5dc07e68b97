// Package metrics содержит Prometheus-метрики сервиса.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shortener"

var (
	// LinksCreated созданные ссылки, kind: custom | generated
	LinksCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "links_created_total",
		Help:      "Количество созданных коротких ссылок",
	}, []string{"kind"})

	// LinksDeleted удалённые ссылки
	LinksDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "links_deleted_total",
		Help:      "Количество удалённых коротких ссылок",
	})

	// Redirects результаты редиректов, result: found | not_found | error
	Redirects = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "redirects_total",
		Help:      "Количество обращений к коротким ссылкам по результату",
	}, []string{"result"})

	// CacheLookups обращения к кэшу редиректов, result: hit | miss | stale | error
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Обращения к кэшу редиректов",
	}, []string{"result"})

	// AliasGenerationAttempts число попыток на одну генерацию алиаса
	AliasGenerationAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "alias_generation_attempts",
		Help:      "Количество кандидатов, проверенных до нахождения свободного алиаса",
		Buckets:   []float64{1, 2, 3, 5, 10},
	})

	// HTTPRequestDuration длительность HTTP-запросов
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Длительность обработки HTTP-запросов",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

const (
	KindCustom    = "custom"
	KindGenerated = "generated"

	ResultFound    = "found"
	ResultNotFound = "not_found"
	ResultError    = "error"

	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheStale = "stale"
	CacheError = "error"
)
