// Package leaderboard реализует рейтинги получателей дельт по временным окнам.
// models.go описывает окна и строки рейтинга.
package leaderboard

import "time"

// Window — временное окно рейтинга.
type Window string

const (
	Daily   Window = "daily"
	Weekly  Window = "weekly"
	Monthly Window = "monthly"
	Yearly  Window = "yearly"
	AllTime Window = "alltime"
)

// Windows — все окна в порядке пересборки.
var Windows = []Window{Daily, Weekly, Monthly, Yearly, AllTime}

// Start возвращает начало окна относительно момента now.
// Для AllTime — нулевое время (вся история).
func (w Window) Start(now time.Time) time.Time {
	switch w {
	case Daily:
		return now.AddDate(0, 0, -1)
	case Weekly:
		return now.AddDate(0, 0, -7)
	case Monthly:
		return now.AddDate(0, -1, 0)
	case Yearly:
		return now.AddDate(-1, 0, 0)
	default:
		return time.Time{}
	}
}

// Entry — строка рейтинга. Rank — производная проекция: не хранится
// как источник истины, а пересчитывается при каждом изменении окна.
type Entry struct {
	Username string `db:"username"`
	Count    int    `db:"count"`
	Rank     int    `db:"rank"`
}
