package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/grouppromo/adbot/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository struct {
	*base.Repository
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{Repository: base.NewRepository(pool)}
}

// Record записывает факт сообщения в группе
func (r *MessageRepository) Record(ctx context.Context, groupID int64) error {
	_, err := r.ExecAffected(ctx,
		`INSERT INTO messages (group_id) VALUES ($1)`,
		groupID,
	)
	if err != nil {
		return fmt.Errorf("record message: %w", err)
	}
	return nil
}

// CountSince считает сообщения группы начиная с момента since
func (r *MessageRepository) CountSince(ctx context.Context, groupID int64, since time.Time) (int, error) {
	var count int
	err := r.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE group_id = $1 AND created_at >= $2`,
		groupID, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count messages since: %w", err)
	}
	return count, nil
}
