package model

import "time"

// Post локальная запись о проданном размещении (для статистики заработка)
type Post struct {
	ID         int64     `json:"id"`
	GroupID    int64     `json:"group_id"`
	TotalPrice int       `json:"total_price"`
	CreatedAt  time.Time `json:"created_at"`
}
