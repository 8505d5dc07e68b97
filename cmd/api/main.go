package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/SergeiKhy/link-shortener/internal/config"
	"github.com/SergeiKhy/link-shortener/internal/handler"
	"github.com/SergeiKhy/link-shortener/internal/repository"
	"github.com/SergeiKhy/link-shortener/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Загрузка конфига
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	gin.SetMode(gin.ReleaseMode)

	// Миграции схемы
	if cfg.DB.Migrate {
		if err := repository.RunMigrations(cfg.DB.DSN()); err != nil {
			logger.Fatal("Failed to apply migrations", zap.Error(err))
		}
		logger.Info("Migrations applied")
	}

	// Подключение к БД (postgres)
	db, err := repository.NewPostgresDB(cfg.DB)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	// Подключение к Redis (опционально)
	cacheRepo := repository.NewNopCacheRepository()
	if cfg.Redis.Enabled() {
		redis, err := repository.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redis.Close()
		cacheRepo = repository.NewCacheRepository(redis)
		logger.Info("Connected to Redis")
	} else {
		logger.Info("Redis is not configured, redirect cache disabled")
	}

	// Инициализация репозиториев
	linkRepo := repository.NewLinkRepository(db.Pool)
	clickRepo := repository.NewClickRepository(db.Pool)

	// Инициализация сервиса
	linkService := service.NewLinkService(
		linkRepo,
		clickRepo,
		db,
		cacheRepo,
		service.NewAliasGenerator(linkRepo),
		logger,
		service.WithCacheTTL(cfg.Cache.TTL),
	)

	// Настройка роутера
	router, err := handler.NewRouter(linkService, cfg.App.BaseURL, logger)
	if err != nil {
		logger.Fatal("Failed to build router", zap.Error(err))
	}

	// Запуск сервера
	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// Запуск в горутине
	go func() {
		logger.Info("Server starting", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	logger.Info("Server exited")
}
