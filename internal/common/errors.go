// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях бота.
// Таксономия: временные сбои внешнего сервиса (сообщение цикла теряется,
// переполлинг всё восстановит), нарушения инвариантов (паника, гасится
// на границе диспетчера) и дефекты конфигурации (падение на старте).
package common

import (
	"errors"
	"fmt"
)

// Ошибки обработки комментариев и наград
var (
	// ErrParentMissing — родительский комментарий/пост не удалось получить
	ErrParentMissing = errors.New("родительский элемент недоступен")
	// ErrAlreadyAwarded — по этому комментарию уже есть успешный ответ бота
	ErrAlreadyAwarded = errors.New("дельта уже начислена за этот комментарий")
	// ErrNothingToRemove — нет начисленной дельты, нечего снимать
	ErrNothingToRemove = errors.New("по этому комментарию нет начисленной дельты")
	// ErrTargetIsBot — попытка начислить дельту самому боту
	ErrTargetIsBot = errors.New("нельзя начислить дельту боту")
	// ErrAuthorDeleted — автор комментария удалён
	ErrAuthorDeleted = errors.New("автор комментария удалён")
)

// Ошибки owner-авторизации в личных сообщениях
var (
	// ErrNotModerator — отправитель не модератор и не авторизованный владелец
	ErrNotModerator = errors.New("команда доступна только модераторам")
	// ErrWrongPassword — неверный пароль владельца
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
	// ErrAuthDisabled — owner-авторизация выключена в конфигурации
	ErrAuthDisabled = errors.New("owner-авторизация выключена")
)

// InvariantError — нарушение внутреннего инварианта. Это не пользовательская
// ошибка: такой сбой фатален для текущей единицы работы и гасится
// recover-ом на границе диспетчера.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return "нарушение инварианта: " + e.Msg
}

// Invariant паникует с InvariantError, если условие нарушено.
func Invariant(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(&InvariantError{Msg: fmt.Sprintf(format, args...)})
	}
}
