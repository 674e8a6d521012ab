// Package common содержит общие утилиты, используемые во всём проекте.
package common

import (
	"runtime/debug"
	"time"

	log "github.com/sirupsen/logrus"
)

// Truncate обрезает строку до n символов для логов.
// Пример: Truncate("очень длинный комментарий", 10) → "очень длин..."
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// EpochSeconds возвращает время в секундах Unix.
// В леджере даты хранятся как epoch seconds.
func EpochSeconds(t time.Time) int64 {
	return t.Unix()
}

// RecoverFromPanic гасит панику в обработчике и логирует стек.
// Вызывать через defer на границе обработки одной единицы работы.
func RecoverFromPanic() {
	if r := recover(); r != nil {
		log.WithFields(log.Fields{
			"component": "panic_recovery",
			"panic":     r,
			"stack":     string(debug.Stack()),
		}).Error("ПАНИКА в обработчике — восстановлено")
	}
}
