// Package articles — repository.go выполняет операции с таблицей articles.
package articles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository работает с таблицей articles.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий статей.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Upsert привязывает статью к посту (заменяя прежнюю, если была).
func (r *Repository) Upsert(ctx context.Context, a *Article) error {
	query := `
		INSERT INTO articles (post_id, url, title)
		VALUES ($1, $2, $3)
		ON CONFLICT (post_id) DO UPDATE SET url = $2, title = $3
	`
	_, err := r.db.Exec(ctx, query, a.PostID, a.URL, a.Title)
	return err
}

// GetByPost возвращает статью поста. (nil, nil) — статьи нет.
func (r *Repository) GetByPost(ctx context.Context, postID string) (*Article, error) {
	query := `
		SELECT id, post_id, url, title, created_at
		FROM articles WHERE post_id = $1
	`
	var a Article
	err := r.db.QueryRow(ctx, query, postID).Scan(
		&a.ID, &a.PostID, &a.URL, &a.Title, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения статьи: %w", err)
	}
	return &a, nil
}

// Delete снимает привязку статьи с поста.
func (r *Repository) Delete(ctx context.Context, postID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM articles WHERE post_id = $1`, postID)
	return err
}
