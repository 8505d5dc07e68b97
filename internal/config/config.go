package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App   AppConfig
	HTTP  HTTPConfig
	DB    DBConfig
	Redis RedisConfig
	Cache CacheConfig
}

type AppConfig struct {
	Port string
	// BaseURL префикс для short_url в ответах; пустой - берётся из запроса
	BaseURL string
}

type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	// Migrate применять миграции при старте
	Migrate bool
}

// DSN строка подключения в формате postgres://
func (c DBConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%s", c.Host, c.Port),
		Path:     c.Name,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	// DialTimeout ограничивает и установку соединения, и стартовый PING
	DialTimeout time.Duration
}

// Addr адрес в формате host:port
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Enabled кэш включается только при заданном REDIS_HOST
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type CacheConfig struct {
	TTL time.Duration
}

func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile читает конфиг из env-файла (если он есть) и переменных окружения
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	cfg.App.Port = v.GetString("APP_PORT")
	cfg.App.BaseURL = v.GetString("APP_BASE_URL")

	cfg.HTTP.ReadTimeout = v.GetDuration("HTTP_READ_TIMEOUT")
	cfg.HTTP.WriteTimeout = v.GetDuration("HTTP_WRITE_TIMEOUT")
	cfg.HTTP.IdleTimeout = v.GetDuration("HTTP_IDLE_TIMEOUT")
	cfg.HTTP.ShutdownTimeout = v.GetDuration("SHUTDOWN_TIMEOUT")

	cfg.DB.Host = v.GetString("DB_HOST")
	cfg.DB.Port = v.GetString("DB_PORT")
	cfg.DB.User = v.GetString("DB_USER")
	cfg.DB.Password = v.GetString("DB_PASSWORD")
	cfg.DB.Name = v.GetString("DB_NAME")
	cfg.DB.SSLMode = v.GetString("DB_SSLMODE")
	cfg.DB.MaxConns = v.GetInt32("DB_MAX_CONNS")
	cfg.DB.Migrate = v.GetBool("DB_MIGRATE")

	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetString("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")
	cfg.Redis.PoolSize = v.GetInt("REDIS_POOL_SIZE")
	cfg.Redis.MinIdleConns = v.GetInt("REDIS_MIN_IDLE_CONNS")
	cfg.Redis.DialTimeout = v.GetDuration("REDIS_DIAL_TIMEOUT")

	cfg.Cache.TTL = v.GetDuration("CACHE_TTL")

	if cfg.DB.MaxConns <= 0 {
		return nil, fmt.Errorf("DB_MAX_CONNS must be positive, got %d", cfg.DB.MaxConns)
	}
	if cfg.Redis.PoolSize <= 0 {
		return nil, fmt.Errorf("REDIS_POOL_SIZE must be positive, got %d", cfg.Redis.PoolSize)
	}
	if cfg.Redis.MinIdleConns < 0 || cfg.Redis.MinIdleConns > cfg.Redis.PoolSize {
		return nil, fmt.Errorf("REDIS_MIN_IDLE_CONNS must be between 0 and REDIS_POOL_SIZE, got %d", cfg.Redis.MinIdleConns)
	}
	if cfg.Cache.TTL <= 0 {
		return nil, fmt.Errorf("CACHE_TTL must be positive, got %s", cfg.Cache.TTL)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_BASE_URL", "")

	v.SetDefault("HTTP_READ_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("SHUTDOWN_TIMEOUT", 5*time.Second)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "user")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "shortener")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 25)
	v.SetDefault("DB_MIGRATE", true)

	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 100)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 10)
	v.SetDefault("REDIS_DIAL_TIMEOUT", 5*time.Second)

	v.SetDefault("CACHE_TTL", 24*time.Hour)
}
