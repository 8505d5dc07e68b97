package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/SergeiKhy/link-shortener/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrLinkNotFound = errors.New("link not found")
	ErrAliasExists  = errors.New("alias already exists")
)

const uniqueViolationCode = "23505"

type LinkRepository interface {
	Create(ctx context.Context, link *models.Link) error
	GetByShortAlias(ctx context.Context, shortAlias string) (*models.Link, error)
	GetByAlias(ctx context.Context, alias string) (*models.Link, error)
	ExistsByShortAlias(ctx context.Context, shortAlias string) (bool, error)
	IncrementClickCount(ctx context.Context, id int64) (int64, error)
	List(ctx context.Context, limit, offset int) ([]models.Link, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id int64) error
}

type linkRepository struct {
	db DBTX
}

func NewLinkRepository(db DBTX) LinkRepository {
	return &linkRepository{db: db}
}

const linkColumns = `id, original_url, short_alias, alias, created_at, expires_at, click_count`

func (r *linkRepository) Create(ctx context.Context, link *models.Link) error {
	query := `
		INSERT INTO links (original_url, short_alias, alias, created_at, expires_at, click_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(
		ctx,
		query,
		link.OriginalURL,
		link.ShortAlias,
		link.Alias,
		link.CreatedAt,
		link.ExpiresAt,
		link.ClickCount,
	).Scan(&link.ID, &link.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrAliasExists, link.ShortAlias)
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	return nil
}

func (r *linkRepository) GetByShortAlias(ctx context.Context, shortAlias string) (*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE short_alias = $1`
	return r.getOne(ctx, query, shortAlias)
}

func (r *linkRepository) GetByAlias(ctx context.Context, alias string) (*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE alias = $1`
	return r.getOne(ctx, query, alias)
}

func (r *linkRepository) ExistsByShortAlias(ctx context.Context, shortAlias string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM links WHERE short_alias = $1)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, shortAlias).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check alias: %w", err)
	}

	return exists, nil
}

// IncrementClickCount атомарно увеличивает счётчик и возвращает новое значение
func (r *linkRepository) IncrementClickCount(ctx context.Context, id int64) (int64, error) {
	query := `UPDATE links SET click_count = click_count + 1 WHERE id = $1 RETURNING click_count`

	var count int64
	err := r.db.QueryRow(ctx, query, id).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrLinkNotFound
		}
		return 0, fmt.Errorf("failed to increment click count: %w", err)
	}

	return count, nil
}

func (r *linkRepository) List(ctx context.Context, limit, offset int) ([]models.Link, error) {
	query := `
		SELECT ` + linkColumns + `
		FROM links
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	links := make([]models.Link, 0, limit)
	for rows.Next() {
		var link models.Link
		if err := scanLink(rows, &link); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}

	return links, nil
}

func (r *linkRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM links`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count links: %w", err)
	}
	return total, nil
}

func (r *linkRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM links WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrLinkNotFound
	}

	return nil
}

func (r *linkRepository) getOne(ctx context.Context, query string, arg string) (*models.Link, error) {
	link := &models.Link{}
	if err := scanLink(r.db.QueryRow(ctx, query, arg), link); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	return link, nil
}

// scanLink порядок полей совпадает с linkColumns
func scanLink(row pgx.Row, link *models.Link) error {
	return row.Scan(
		&link.ID,
		&link.OriginalURL,
		&link.ShortAlias,
		&link.Alias,
		&link.CreatedAt,
		&link.ExpiresAt,
		&link.ClickCount,
	)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
