// Package reddit — client.go описывает контракт привязки к платформе.
// Весь остальной код зависит от этого интерфейса; конкретная HTTP-реализация
// живёт в http.go. Все вызовы синхронные и блокируют вызывающего.
package reddit

import "context"

// Client — операции против внешней платформы, которые нужны боту.
type Client interface {
	// BotUsername возвращает имя учётной записи бота.
	BotUsername() string

	// ThingByID читает объект по fullname.
	ThingByID(ctx context.Context, id string) (*Thing, error)
	// ThingByURL читает комментарий/пост по постоянной ссылке.
	ThingByURL(ctx context.Context, url string) (*Thing, error)

	// PopulateParentAndChildren заполняет Parent, Post и Children.
	PopulateParentAndChildren(ctx context.Context, t *Thing) error
	// PopulateChildren заполняет только Children.
	PopulateChildren(ctx context.Context, t *Thing) error

	// Reply отвечает на комментарий/пост и возвращает созданный комментарий.
	Reply(ctx context.Context, parentID, body string) (*Thing, error)
	// EditComment заменяет текст комментария бота.
	EditComment(ctx context.Context, id, body string) error
	// DeleteComment удаляет комментарий бота.
	DeleteComment(ctx context.Context, id string) error
	// DistinguishSticky помечает комментарий бота как закреплённый.
	DistinguishSticky(ctx context.Context, id string) error

	// SendMessage отправляет личное сообщение.
	SendMessage(ctx context.Context, to, subject, body string) error
	// ReplyToMessage отвечает на входящее личное сообщение.
	ReplyToMessage(ctx context.Context, id, body string) error
	// MarkRead помечает входящее сообщение прочитанным.
	MarkRead(ctx context.Context, id string) error

	// SetUserFlair выставляет флейр пользователя в сабреддите.
	SetUserFlair(ctx context.Context, username, text string) error
	// IsModerator проверяет, модератор ли пользователь в сабреддите.
	IsModerator(ctx context.Context, username string) (bool, error)

	// NewComments возвращает комментарии новее указанного fullname
	// (пустая строка = последняя пачка).
	NewComments(ctx context.Context, after string) ([]*Thing, error)
	// EditedComments возвращает недавно отредактированные комментарии.
	EditedComments(ctx context.Context) ([]*Thing, error)
	// UnreadMessages возвращает непрочитанные личные сообщения.
	UnreadMessages(ctx context.Context) ([]*Thing, error)
}
