// Package bot — state.go хранит служебное состояние бота в БД.
// Сейчас это только отметка последней активности: по ней видно,
// что бот жив и опрашивает платформу.
package bot

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StateRepository работает с таблицей bot_state (ключ-значение).
type StateRepository struct {
	db *pgxpool.Pool
}

// NewStateRepository создаёт репозиторий состояния.
func NewStateRepository(db *pgxpool.Pool) *StateRepository {
	return &StateRepository{db: db}
}

// SetLastActivity сохраняет отметку последней активности.
func (r *StateRepository) SetLastActivity(ctx context.Context, t time.Time) error {
	query := `
		INSERT INTO bot_state (key, value)
		VALUES ('last_activity', $1)
		ON CONFLICT (key) DO UPDATE SET value = $1
	`
	_, err := r.db.Exec(ctx, query, strconv.FormatInt(t.Unix(), 10))
	return err
}

// LastActivity возвращает отметку последней активности.
// Нулевое время — отметки ещё нет.
func (r *StateRepository) LastActivity(ctx context.Context) (time.Time, error) {
	var value string
	err := r.db.QueryRow(ctx,
		`SELECT value FROM bot_state WHERE key = 'last_activity'`,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}

	epoch, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(epoch, 0), nil
}
