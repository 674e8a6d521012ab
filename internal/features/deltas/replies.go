// Package deltas — replies.go: шаблоны ответов бота и детектор уже
// оставленных ответов.
//
// Идемпотентность у бота контентная: вместо учёта «обработанных ID»
// мы смотрим на непосредственных потомков комментария и сопоставляем их
// со скомпилированными из шаблонов регулярками. Такой механизм переживает
// перезапуск процесса и повторную доставку без отдельной бухгалтерии.
package deltas

import (
	"fmt"
	"regexp"
	"strings"

	"deltabot/internal/reddit"
)

// Категории ответов бота.
const (
	CategorySuccess   = "success"
	CategoryFail      = "fail"
	CategoryModerator = "moderator"
)

// Templates — канонические тексты ответов. Токены {giver} и {recipient}
// подставляются при рендере и превращаются в wildcard при компиляции
// детектора.
type Templates struct {
	Success      string
	FailOP       string
	FailDeltaBot string
	FailSelf     string
	Moderator    string
}

// DefaultTemplates возвращает тексты ответов по умолчанию.
func DefaultTemplates() *Templates {
	return &Templates{
		Success:      "Confirmed: 1 delta awarded to /u/{recipient}.",
		FailOP:       "You cannot award a delta to the OP of the post.",
		FailDeltaBot: "You cannot award a delta to DeltaBot.",
		FailSelf:     "You cannot award a delta to yourself.",
		Moderator:    "Confirmed by a moderator: 1 delta awarded to /u/{recipient}.",
	}
}

// Render возвращает текст ответа для исхода.
// switch исчерпывающий: новый OutcomeKind без ветки — дефект конфигурации.
func (t *Templates) Render(out Outcome) (string, error) {
	var tpl string
	switch out.Kind {
	case OutcomeSuccess:
		tpl = t.Success
	case OutcomeFailOP:
		tpl = t.FailOP
	case OutcomeFailDeltaBot:
		tpl = t.FailDeltaBot
	case OutcomeFailSelf:
		tpl = t.FailSelf
	case OutcomeFailTooShort, OutcomeFailIssues:
		// Зарезервированные исходы валидатор не выдаёт
		return "", fmt.Errorf("исход %q не имеет шаблона", out.Kind)
	default:
		return "", fmt.Errorf("неизвестный исход %q", out.Kind)
	}
	return substitute(tpl, out), nil
}

// RenderModerator возвращает текст модераторского ответа.
func (t *Templates) RenderModerator(out Outcome) string {
	return substitute(t.Moderator, out)
}

func substitute(tpl string, out Outcome) string {
	r := strings.NewReplacer(
		"{giver}", out.Giver,
		"{recipient}", out.Recipient,
	)
	return r.Replace(tpl)
}

// ReplyCheck — результат поиска уже оставленного ответа бота.
type ReplyCheck struct {
	HasReplied   bool
	WasSuccess   bool
	WasModerator bool
	Category     string
	Child        *reddit.Thing // найденный ответ бота
}

// ReplyDetector сопоставляет потомков комментария со скомпилированными
// шаблонами ответов.
type ReplyDetector struct {
	botName  string
	patterns []replyPattern
}

type replyPattern struct {
	category string
	re       *regexp.Regexp
}

// NewReplyDetector компилирует по одной регулярке на шаблон.
// Литеральный шаблон экранируется, токены подстановки заменяются на
// wildcard. Ответы рендерятся внутри произвольных шапок/подвалов,
// поэтому сопоставление — по подстроке, мультистрочное.
// Некомпилируемый шаблон — дефект конфигурации, падаем сразу.
func NewReplyDetector(botName string, tpls *Templates) (*ReplyDetector, error) {
	specs := []struct {
		category string
		tpl      string
	}{
		// Порядок важен: модераторский шаблон проверяется первым,
		// иначе success-шаблон перехватит его как свой
		{CategoryModerator, tpls.Moderator},
		{CategorySuccess, tpls.Success},
		{CategoryFail, tpls.FailOP},
		{CategoryFail, tpls.FailDeltaBot},
		{CategoryFail, tpls.FailSelf},
	}

	d := &ReplyDetector{botName: botName}
	for _, s := range specs {
		re, err := compileTemplate(s.tpl)
		if err != nil {
			return nil, fmt.Errorf("шаблон категории %s: %w", s.category, err)
		}
		d.patterns = append(d.patterns, replyPattern{category: s.category, re: re})
	}
	return d, nil
}

// compileTemplate превращает литеральный шаблон в регулярку:
// QuoteMeta, затем экранированные токены → ".*".
func compileTemplate(tpl string) (*regexp.Regexp, error) {
	quoted := regexp.QuoteMeta(tpl)
	for _, tok := range []string{"{giver}", "{recipient}"} {
		quoted = strings.ReplaceAll(quoted, regexp.QuoteMeta(tok), ".*")
	}
	return regexp.Compile("(?s)" + quoted)
}

// DidReply ищет среди НЕПОСРЕДСТВЕННЫХ потомков комментария первый ответ
// бота, совпавший с любым шаблоном. nil — бот ещё не отвечал.
func (d *ReplyDetector) DidReply(comment *reddit.Thing) *ReplyCheck {
	for _, child := range comment.Children {
		if child.Author != d.botName {
			continue
		}
		for _, p := range d.patterns {
			if p.re.MatchString(child.Body) {
				return &ReplyCheck{
					HasReplied:   true,
					WasSuccess:   p.category == CategorySuccess,
					WasModerator: p.category == CategoryModerator,
					Category:     p.category,
					Child:        child,
				}
			}
		}
	}
	return nil
}
