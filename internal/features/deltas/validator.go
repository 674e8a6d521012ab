// Package deltas — validator.go вычисляет исход начисления дельты.
// Чистая функция: никаких побочных эффектов, текст ответа рендерится
// отдельно по исходу.
package deltas

import "deltabot/internal/reddit"

// Validator проверяет, можно ли начислить дельту за комментарий.
type Validator struct {
	botName string
}

// NewValidator создаёт валидатор.
func NewValidator(botName string) *Validator {
	return &Validator{botName: botName}
}

// Validate применяет правила по порядку, первое совпадение решает:
//  1. родитель — сам пост или автор поста (OP) → FailCannotAwardOP
//  2. родитель — бот → FailCannotAwardDeltaBot
//  3. родитель — сам комментатор → FailCannotAwardSelf
//  4. иначе → Success
//
// Ожидает заполненные Parent и Post (PopulateParentAndChildren).
func (v *Validator) Validate(comment *reddit.Thing) Outcome {
	parent := comment.Parent
	post := comment.Post

	out := Outcome{Giver: comment.Author}
	if parent != nil {
		out.Recipient = parent.Author
	}

	switch {
	case parent == nil:
		// Родитель недоступен — считаем, что дельта адресована посту
		out.Kind = OutcomeFailOP
	case parent.IsPost() || (post != nil && parent.Author == post.Author):
		out.Kind = OutcomeFailOP
	case parent.Author == v.botName:
		out.Kind = OutcomeFailDeltaBot
	case parent.Author == comment.Author:
		out.Kind = OutcomeFailSelf
	default:
		out.Kind = OutcomeSuccess
	}
	return out
}
