package model

import "time"

// Role роль пользователя в маркетплейсе
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleVendor Role = "vendor"
	RoleClient Role = "client"

	// RoleGuest — пользователь ещё не зарегистрирован (в БД не хранится)
	RoleGuest Role = "guest"
)

// Vendor проверяет может ли роль управлять группами и объявлениями
func (r Role) Vendor() bool {
	return r == RoleVendor || r == RoleAdmin
}

type User struct {
	ID                 int64     `json:"id"`
	TelegramID         int64     `json:"telegram_id"`
	Username           string    `json:"username"`
	FirstName          string    `json:"first_name"`
	LastName           string    `json:"last_name"`
	Role               Role      `json:"role"`
	AllowedGroupsCount int       `json:"allowed_groups_count"` // Сколько групп может зарегистрировать
	CreatedAt          time.Time `json:"created_at"`
}
