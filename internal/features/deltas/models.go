// Package deltas реализует систему дельт: обнаружение маркера, валидацию,
// начисление/снятие и машину состояний обработки комментария.
// models.go описывает исходы валидации и записи леджера.
package deltas

// OutcomeKind — исход валидации дельты. Закрытый набор: рендер ответа
// делает исчерпывающий switch по нему.
type OutcomeKind string

const (
	OutcomeSuccess      OutcomeKind = "success"
	OutcomeFailOP       OutcomeKind = "fail_op"
	OutcomeFailDeltaBot OutcomeKind = "fail_deltabot"
	OutcomeFailSelf     OutcomeKind = "fail_self"
	// Зарезервированы: сейчас не выдаются валидатором
	OutcomeFailTooShort OutcomeKind = "fail_too_short"
	OutcomeFailIssues   OutcomeKind = "fail_issues"
)

// Outcome — исход валидации вместе с данными для подстановки в шаблон.
type Outcome struct {
	Kind      OutcomeKind
	Giver     string // кто даёт дельту
	Recipient string // кому даётся
}

// Detection — результат поиска маркера дельты в теле комментария.
type Detection struct {
	// HasDelta: маркер найден на строке вне цитаты — настоящая дельта
	HasDelta bool
	// DeltaInQuote: маркер найден внутри цитаты (повод для
	// предупреждающего личного сообщения, дельтой не является)
	DeltaInQuote bool
}

// AwardRecord — запись леджера об одной выданной дельте.
// Одна строка обслуживает оба списка: given (по giver) и received
// (по recipient).
type AwardRecord struct {
	CommentID string `db:"comment_id"`
	PostID    string `db:"post_id"`
	PostLink  string `db:"post_link"`
	PostTitle string `db:"post_title"`
	Giver     string `db:"giver"`
	Recipient string `db:"recipient"`
	AwardedAt int64  `db:"awarded_at"` // epoch seconds
}

// LedgerEntry — строка истории пользователя (список given или received).
type LedgerEntry struct {
	PostLink     string
	PostTitle    string
	CommentID    string
	Counterparty string
	CreatedAt    int64 // epoch seconds
}
