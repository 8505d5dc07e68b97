package models

import (
	"time"
)

// UnknownIP пишется в клик, если адрес клиента определить не удалось
const UnknownIP = "UNKNOWN"

type Click struct {
	ID        int64     `json:"id"`
	LinkID    int64     `json:"link_id"`
	IPAddress string    `json:"ip_address"`
	ClickedAt time.Time `json:"clicked_at"`
}
