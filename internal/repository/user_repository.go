package repository

import (
	"context"
	"fmt"

	"github.com/grouppromo/adbot/internal/model"
	"github.com/grouppromo/adbot/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	*base.Repository
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{Repository: base.NewRepository(pool)}
}

// Create создаёт нового пользователя
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (telegram_id, username, first_name, last_name, role, allowed_groups_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.QueryRow(
		ctx, query,
		user.TelegramID,
		user.Username,
		user.FirstName,
		user.LastName,
		string(user.Role),
		user.AllowedGroupsCount,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

// GetByTelegramID получает пользователя по Telegram ID
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	query := `
		SELECT id, telegram_id, username, first_name, last_name, role, allowed_groups_count, created_at
		FROM users
		WHERE telegram_id = $1
	`

	user, err := r.scanUser(r.QueryRow(ctx, query, telegramID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil // Пользователь не найден
		}
		return nil, fmt.Errorf("get user by telegram id: %w", err)
	}

	return user, nil
}

// GetByID получает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `
		SELECT id, telegram_id, username, first_name, last_name, role, allowed_groups_count, created_at
		FROM users
		WHERE id = $1
	`

	user, err := r.scanUser(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return user, nil
}

// List получает всех пользователей в порядке регистрации
func (r *UserRepository) List(ctx context.Context) ([]*model.User, error) {
	query := `
		SELECT id, telegram_id, username, first_name, last_name, role, allowed_groups_count, created_at
		FROM users
		ORDER BY created_at
	`

	rows, err := r.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

// SetRole обновляет роль пользователя
func (r *UserRepository) SetRole(ctx context.Context, userID int64, role model.Role) error {
	affected, err := r.ExecAffected(ctx,
		`UPDATE users SET role = $1 WHERE id = $2`,
		string(role), userID,
	)
	if err != nil {
		return fmt.Errorf("set user role: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}

// SetAllowedGroupsCount обновляет квоту групп пользователя
func (r *UserRepository) SetAllowedGroupsCount(ctx context.Context, userID int64, count int) error {
	affected, err := r.ExecAffected(ctx,
		`UPDATE users SET allowed_groups_count = $1 WHERE id = $2`,
		count, userID,
	)
	if err != nil {
		return fmt.Errorf("set allowed groups count: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *UserRepository) scanUser(row rowScanner) (*model.User, error) {
	var user model.User
	var role string

	err := row.Scan(
		&user.ID,
		&user.TelegramID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&role,
		&user.AllowedGroupsCount,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Role = model.Role(role)
	return &user, nil
}
