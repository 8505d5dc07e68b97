package repository

import (
	"context"
	"fmt"

	"github.com/SergeiKhy/link-shortener/internal/models"
)

type ClickRepository interface {
	RecordClick(ctx context.Context, click *models.Click) error
	ListByLinkID(ctx context.Context, linkID int64) ([]models.Click, error)
	DeleteByLinkID(ctx context.Context, linkID int64) (int64, error)
}

type clickRepository struct {
	db DBTX
}

func NewClickRepository(db DBTX) ClickRepository {
	return &clickRepository{db: db}
}

func (r *clickRepository) RecordClick(ctx context.Context, click *models.Click) error {
	query := `
		INSERT INTO clicks (link_id, ip_address, clicked_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		click.LinkID,
		click.IPAddress,
		click.ClickedAt,
	).Scan(&click.ID)

	if err != nil {
		return fmt.Errorf("failed to record click: %w", err)
	}

	return nil
}

// ListByLinkID клики по возрастанию времени, при равном времени - по id
func (r *clickRepository) ListByLinkID(ctx context.Context, linkID int64) ([]models.Click, error) {
	query := `
		SELECT id, link_id, ip_address, clicked_at
		FROM clicks
		WHERE link_id = $1
		ORDER BY clicked_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, linkID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clicks: %w", err)
	}
	defer rows.Close()

	clicks := make([]models.Click, 0)
	for rows.Next() {
		var click models.Click
		if err := rows.Scan(&click.ID, &click.LinkID, &click.IPAddress, &click.ClickedAt); err != nil {
			return nil, fmt.Errorf("failed to scan click: %w", err)
		}
		clicks = append(clicks, click)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clicks: %w", err)
	}

	return clicks, nil
}

func (r *clickRepository) DeleteByLinkID(ctx context.Context, linkID int64) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM clicks WHERE link_id = $1`, linkID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete clicks: %w", err)
	}
	return result.RowsAffected(), nil
}
