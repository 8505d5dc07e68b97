package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/SergeiKhy/link-shortener/internal/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX общий интерфейс пула и транзакции, чтобы репозитории работали с обоими
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxFunc тело транзакции; репозитории привязаны к одной транзакции
type TxFunc func(links LinkRepository, clicks ClickRepository) error

// Transactor выполняет несколько операций атомарно
type Transactor interface {
	WithinTx(ctx context.Context, fn TxFunc) error
}

type PostgresDB struct {
	Pool *pgxpool.Pool
}

func NewPostgresDB(cfg config.DBConfig) (*PostgresDB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse DB config: %w", err)
	}

	// Настройка пула соединений
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
		poolConfig.MinConns = min(5, cfg.MaxConns)
	}
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{Pool: pool}, nil
}

// WithinTx выполняет fn в транзакции: commit при nil, rollback при ошибке
func (db *PostgresDB) WithinTx(ctx context.Context, fn TxFunc) error {
	return pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		return fn(NewLinkRepository(tx), NewClickRepository(tx))
	})
}

func (db *PostgresDB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

func (db *PostgresDB) Close() {
	db.Pool.Close()
}
