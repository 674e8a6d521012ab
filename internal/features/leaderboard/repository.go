// Package leaderboard — repository.go выполняет операции с таблицей leaderboards.
package leaderboard

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository работает с таблицей leaderboards.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий рейтингов.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ReplaceWindow атомарно заменяет содержимое окна.
func (r *Repository) ReplaceWindow(ctx context.Context, w Window, entries []Entry) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM leaderboards WHERE time_window = $1`, string(w)); err != nil {
		return fmt.Errorf("ошибка очистки окна %s: %w", w, err)
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(
			`INSERT INTO leaderboards (time_window, username, count, rank) VALUES ($1, $2, $3, $4)`,
			string(w), e.Username, e.Count, e.Rank,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("ошибка записи окна %s: %w", w, err)
	}

	return tx.Commit(ctx)
}

// GetWindow возвращает рейтинг окна по возрастанию ранга.
func (r *Repository) GetWindow(ctx context.Context, w Window) ([]Entry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT username, count, rank FROM leaderboards WHERE time_window = $1 ORDER BY rank`,
		string(w),
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения окна %s: %w", w, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Username, &e.Count, &e.Rank); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
