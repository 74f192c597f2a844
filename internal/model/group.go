package model

import "time"

// Group локальное зеркало группы: бизнес-данные живут в удалённом API,
// здесь только то что нужно для контроля доступа и счётчиков
type Group struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	TelegramID int64     `json:"telegram_id"`
	Name       string    `json:"name"`
	CityID     int64     `json:"city_id"`
	SubjectID  int64     `json:"subject_id"`
	CreatedAt  time.Time `json:"created_at"`
}
