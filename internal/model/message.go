package model

import "time"

// Message строка счётчика сообщений в группе
type Message struct {
	ID        int64     `json:"id"`
	GroupID   int64     `json:"group_id"`
	CreatedAt time.Time `json:"created_at"`
}
