// Package deltas — awarder.go мутирует счётчик во флейре и леджер.
// Начисление и снятие симметричны.
package deltas

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"deltabot/internal/common"
	"deltabot/internal/reddit"
)

// FlairWriter — часть клиента платформы, нужная awarder-у.
type FlairWriter interface {
	SetUserFlair(ctx context.Context, username, text string) error
}

// LedgerStore — операции леджера, нужные awarder-у.
type LedgerStore interface {
	Append(ctx context.Context, rec *AwardRecord) error
	RemoveByComment(ctx context.Context, commentID string) error
}

// Awarder начисляет и снимает дельты: флейр получателя плюс записи леджера.
//
// Запись флейра и запись леджера не транзакционны: падение между ними
// оставит их рассогласованными. Окно узкое — все награды идут через один
// консьюмер — и этот риск принят осознанно.
type Awarder struct {
	flair  FlairWriter
	ledger LedgerStore
	glyph  string
}

// NewAwarder создаёт awarder.
func NewAwarder(flair FlairWriter, ledger LedgerStore, glyph string) *Awarder {
	return &Awarder{flair: flair, ledger: ledger, glyph: glyph}
}

// ParseFlairCount извлекает счётчик дельт из текста флейра.
// Толерантный разбор: пустой или нечисловой флейр даёт 0, ошибок не бывает.
//
//	"3Δ"   → 3
//	""     → 0
//	"abcΔ" → 0
func ParseFlairCount(flair, glyph string) int {
	s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(flair), glyph))
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// FormatFlair собирает текст флейра из счётчика: "<count><glyph>".
func FormatFlair(count int, glyph string) string {
	return fmt.Sprintf("%d%s", count, glyph)
}

// Award начисляет одну дельту от giver получателю recipient.
// Счётчик всегда выводится инкрементом от ТЕКУЩЕГО прочитанного флейра,
// никогда не выставляется абсолютно. В леджер добавляется одна запись,
// обслуживающая оба списка: received получателя и given дающего.
func (a *Awarder) Award(ctx context.Context, giver, recipient *reddit.Thing) error {
	// Дельту получает только автор комментария, никогда автор поста
	common.Invariant(recipient.IsComment(), "награда не комментарию: %s (%s)", recipient.ID, recipient.Kind)

	count := ParseFlairCount(recipient.AuthorFlairText, a.glyph)
	newFlair := FormatFlair(count+1, a.glyph)
	if err := a.flair.SetUserFlair(ctx, recipient.Author, newFlair); err != nil {
		return fmt.Errorf("ошибка записи флейра: %w", err)
	}

	rec := &AwardRecord{
		CommentID: giver.ID,
		PostID:    giver.PostID(),
		PostLink:  postLink(giver),
		PostTitle: postTitle(giver),
		Giver:     giver.Author,
		Recipient: recipient.Author,
		AwardedAt: common.EpochSeconds(time.Now()),
	}
	if err := a.ledger.Append(ctx, rec); err != nil {
		return fmt.Errorf("ошибка записи леджера: %w", err)
	}

	log.WithFields(log.Fields{
		"giver":     giver.Author,
		"recipient": recipient.Author,
		"flair":     newFlair,
	}).Info("Дельта начислена")
	return nil
}

// Unaward снимает дельту, начисленную за комментарий giver:
// декремент флейра относительно текущего значения и удаление записи
// по comment id из леджера (автоматически из обоих списков).
func (a *Awarder) Unaward(ctx context.Context, giver, recipient *reddit.Thing) error {
	common.Invariant(recipient.IsComment(), "снятие награды не с комментария: %s (%s)", recipient.ID, recipient.Kind)

	count := ParseFlairCount(recipient.AuthorFlairText, a.glyph)
	if count > 0 {
		count--
	}
	newFlair := FormatFlair(count, a.glyph)
	if err := a.flair.SetUserFlair(ctx, recipient.Author, newFlair); err != nil {
		return fmt.Errorf("ошибка записи флейра: %w", err)
	}

	if err := a.ledger.RemoveByComment(ctx, giver.ID); err != nil {
		return fmt.Errorf("ошибка удаления из леджера: %w", err)
	}

	log.WithFields(log.Fields{
		"giver":     giver.Author,
		"recipient": recipient.Author,
		"flair":     newFlair,
	}).Info("Дельта снята")
	return nil
}

func postLink(t *reddit.Thing) string {
	if t.Post != nil {
		return t.Post.Permalink
	}
	return t.Permalink
}

func postTitle(t *reddit.Thing) string {
	if t.Post != nil {
		return t.Post.Title
	}
	return ""
}
