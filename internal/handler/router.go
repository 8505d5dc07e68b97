package handler

import (
	"github.com/SergeiKhy/link-shortener/internal/middleware"
	"github.com/SergeiKhy/link-shortener/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const metricsPath = "/metrics"

func NewRouter(linkService service.LinkService, baseURL string, logger *zap.Logger) (*gin.Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := RegisterValidators(); err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.ClientIP(),
		middleware.Logger(logger),
		middleware.Metrics(),
	)

	// Инициализация обработчика ссылок
	linkHandler := NewLinkHandler(linkService, baseURL, logger)

	// API v.1
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", HealthCheck)

		v1.POST("/links", linkHandler.CreateLink)
		v1.GET("/links", linkHandler.ListLinks)
		v1.GET("/links/:alias", linkHandler.GetInfo)
		v1.GET("/links/:alias/analytics", linkHandler.GetAnalytics)
		v1.DELETE("/links/:alias", linkHandler.DeleteLink)
	}

	router.GET(metricsPath, gin.WrapH(promhttp.Handler()))

	// Редирект (корневой путь)
	router.GET("/:alias", linkHandler.Redirect)

	return router, nil
}
