// Package articles хранит привязанные к постам статьи (WATT).
// models.go описывает структуру записи о статье.
package articles

import "time"

// Article — статья, привязанная к посту.
type Article struct {
	ID        int64     `db:"id"`
	PostID    string    `db:"post_id"` // fullname поста
	URL       string    `db:"url"`
	Title     string    `db:"title"`
	CreatedAt time.Time `db:"created_at"`
}
