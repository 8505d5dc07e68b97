package models

import (
	"time"
)

type Link struct {
	ID          int64      `json:"id"`
	OriginalURL string     `json:"original_url"`
	ShortAlias  string     `json:"short_alias"`
	Alias       *string    `json:"alias"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
	ClickCount  int64      `json:"click_count"`
}

// IsExpired ссылка с expires_at в прошлом считается отсутствующей для редиректа
func (l *Link) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}

// IsCustom алиас задан пользователем, а не сгенерирован
func (l *Link) IsCustom() bool {
	return l.Alias != nil
}

type CreateLinkInput struct {
	OriginalURL string
	ExpiresAt   *string
	Alias       *string
}

type LinkAnalytics struct {
	Link
	Clicks []Click `json:"clicks"`
}

type LinkPage struct {
	Links      []Link `json:"links"`
	Total      int64  `json:"total"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	TotalPages int    `json:"total_pages"`
}
