package repository

import (
	"context"
	"fmt"

	"github.com/grouppromo/adbot/internal/model"
	"github.com/grouppromo/adbot/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

type GroupRepository struct {
	*base.Repository
}

func NewGroupRepository(pool *pgxpool.Pool) *GroupRepository {
	return &GroupRepository{Repository: base.NewRepository(pool)}
}

// Create создаёт локальное зеркало группы
func (r *GroupRepository) Create(ctx context.Context, group *model.Group) error {
	query := `
		INSERT INTO groups (user_id, telegram_id, name, city_id, subject_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.QueryRow(
		ctx, query,
		group.UserID,
		group.TelegramID,
		group.Name,
		group.CityID,
		group.SubjectID,
	).Scan(&group.ID, &group.CreatedAt)

	if err != nil {
		return fmt.Errorf("create group: %w", err)
	}

	return nil
}

// ListByOwner получает группы пользователя
func (r *GroupRepository) ListByOwner(ctx context.Context, userID int64) ([]*model.Group, error) {
	query := `
		SELECT id, user_id, telegram_id, name, city_id, subject_id, created_at
		FROM groups
		WHERE user_id = $1
		ORDER BY created_at
	`

	rows, err := r.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list groups by owner: %w", err)
	}
	defer rows.Close()

	var groups []*model.Group
	for rows.Next() {
		var group model.Group
		err := rows.Scan(
			&group.ID,
			&group.UserID,
			&group.TelegramID,
			&group.Name,
			&group.CityID,
			&group.SubjectID,
			&group.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, &group)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}

	return groups, nil
}

// CountByOwner считает группы пользователя (для проверки квоты)
func (r *GroupRepository) CountByOwner(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.QueryRow(ctx,
		`SELECT COUNT(*) FROM groups WHERE user_id = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count groups by owner: %w", err)
	}
	return count, nil
}

// GetByID получает группу по ID
func (r *GroupRepository) GetByID(ctx context.Context, id int64) (*model.Group, error) {
	query := `
		SELECT id, user_id, telegram_id, name, city_id, subject_id, created_at
		FROM groups
		WHERE id = $1
	`

	var group model.Group
	err := r.QueryRow(ctx, query, id).Scan(
		&group.ID,
		&group.UserID,
		&group.TelegramID,
		&group.Name,
		&group.CityID,
		&group.SubjectID,
		&group.CreatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get group by id: %w", err)
	}

	return &group, nil
}

// GetByTelegramID получает группу по Telegram ID чата
func (r *GroupRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*model.Group, error) {
	query := `
		SELECT id, user_id, telegram_id, name, city_id, subject_id, created_at
		FROM groups
		WHERE telegram_id = $1
	`

	var group model.Group
	err := r.QueryRow(ctx, query, telegramID).Scan(
		&group.ID,
		&group.UserID,
		&group.TelegramID,
		&group.Name,
		&group.CityID,
		&group.SubjectID,
		&group.CreatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get group by telegram id: %w", err)
	}

	return &group, nil
}

// GetByTelegramIDAndOwner получает группу по Telegram ID чата и владельцу
func (r *GroupRepository) GetByTelegramIDAndOwner(ctx context.Context, telegramID, userID int64) (*model.Group, error) {
	query := `
		SELECT id, user_id, telegram_id, name, city_id, subject_id, created_at
		FROM groups
		WHERE telegram_id = $1 AND user_id = $2
	`

	var group model.Group
	err := r.QueryRow(ctx, query, telegramID, userID).Scan(
		&group.ID,
		&group.UserID,
		&group.TelegramID,
		&group.Name,
		&group.CityID,
		&group.SubjectID,
		&group.CreatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get group by telegram id and owner: %w", err)
	}

	return &group, nil
}

// Delete удаляет локальное зеркало группы
func (r *GroupRepository) Delete(ctx context.Context, id int64) error {
	affected, err := r.ExecAffected(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("group not found")
	}

	return nil
}
