package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/grouppromo/adbot/internal/model"
	"github.com/grouppromo/adbot/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostRepository struct {
	*base.Repository
}

func NewPostRepository(pool *pgxpool.Pool) *PostRepository {
	return &PostRepository{Repository: base.NewRepository(pool)}
}

// Create записывает проданное размещение
func (r *PostRepository) Create(ctx context.Context, post *model.Post) error {
	query := `
		INSERT INTO posts (group_id, total_price)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	err := r.QueryRow(ctx, query, post.GroupID, post.TotalPrice).
		Scan(&post.ID, &post.CreatedAt)
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}

	return nil
}

// ListByGroup получает размещения группы
func (r *PostRepository) ListByGroup(ctx context.Context, groupID int64) ([]*model.Post, error) {
	query := `
		SELECT id, group_id, total_price, created_at
		FROM posts
		WHERE group_id = $1
		ORDER BY created_at
	`

	rows, err := r.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("list posts by group: %w", err)
	}
	defer rows.Close()

	var posts []*model.Post
	for rows.Next() {
		var post model.Post
		if err := rows.Scan(&post.ID, &post.GroupID, &post.TotalPrice, &post.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, &post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}

	return posts, nil
}

// SumPriceSince суммирует заработок группы начиная с момента since
func (r *PostRepository) SumPriceSince(ctx context.Context, groupID int64, since time.Time) (int, error) {
	var total int
	err := r.QueryRow(ctx,
		`SELECT COALESCE(SUM(total_price), 0) FROM posts WHERE group_id = $1 AND created_at >= $2`,
		groupID, since,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum post price since: %w", err)
	}
	return total, nil
}
