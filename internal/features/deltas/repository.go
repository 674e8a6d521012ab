// Package deltas — repository.go выполняет операции с таблицами deltas
// и quoted_delta_optout.
package deltas

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository работает с леджером дельт в PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий дельт.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Append добавляет запись о выданной дельте.
func (r *Repository) Append(ctx context.Context, rec *AwardRecord) error {
	query := `
		INSERT INTO deltas (comment_id, post_id, post_link, post_title, giver, recipient, awarded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		rec.CommentID, rec.PostID, rec.PostLink, rec.PostTitle,
		rec.Giver, rec.Recipient, rec.AwardedAt,
	)
	return err
}

// RemoveByComment удаляет запись по id комментария.
// Одна строка обслуживает оба списка, поэтому удаление одно.
func (r *Repository) RemoveByComment(ctx context.Context, commentID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM deltas WHERE comment_id = $1`, commentID)
	return err
}

// Given возвращает историю выданных пользователем дельт.
func (r *Repository) Given(ctx context.Context, username string) ([]LedgerEntry, error) {
	query := `
		SELECT post_link, post_title, comment_id, recipient, awarded_at
		FROM deltas WHERE giver = $1 ORDER BY awarded_at DESC
	`
	return r.queryEntries(ctx, query, username)
}

// Received возвращает историю полученных пользователем дельт.
func (r *Repository) Received(ctx context.Context, username string) ([]LedgerEntry, error) {
	query := `
		SELECT post_link, post_title, comment_id, giver, awarded_at
		FROM deltas WHERE recipient = $1 ORDER BY awarded_at DESC
	`
	return r.queryEntries(ctx, query, username)
}

func (r *Repository) queryEntries(ctx context.Context, query, username string) ([]LedgerEntry, error) {
	rows, err := r.db.Query(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения леджера: %w", err)
	}
	defer rows.Close()

	var entries []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.PostLink, &e.PostTitle, &e.CommentID, &e.Counterparty, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountForPost возвращает число дельт, выданных под постом.
func (r *Repository) CountForPost(ctx context.Context, postID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM deltas WHERE post_id = $1`, postID,
	).Scan(&count)
	return count, err
}

// RecipientCounts возвращает число полученных дельт по пользователям
// начиная с указанного момента. Используется для лидербордов.
func (r *Repository) RecipientCounts(ctx context.Context, since time.Time) (map[string]int, error) {
	query := `
		SELECT recipient, COUNT(*)
		FROM deltas WHERE awarded_at >= $1
		GROUP BY recipient
	`
	rows, err := r.db.Query(ctx, query, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта дельт: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, err
		}
		counts[name] = n
	}
	return counts, rows.Err()
}

// --- Отказ от предупреждений о дельте в цитате ---

// AddOptOut вносит пользователя в список отказавшихся от предупреждений.
func (r *Repository) AddOptOut(ctx context.Context, username string) error {
	query := `
		INSERT INTO quoted_delta_optout (username)
		VALUES ($1)
		ON CONFLICT (username) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, username)
	return err
}

// IsOptedOut проверяет, отказался ли пользователь от предупреждений.
func (r *Repository) IsOptedOut(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM quoted_delta_optout WHERE username = $1)`, username,
	).Scan(&exists)
	return exists, err
}
