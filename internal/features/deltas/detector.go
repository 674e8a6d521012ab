// Package deltas — detector.go определяет, содержит ли комментарий маркер дельты.
package deltas

import "strings"

// Detect ищет маркеры дельты в теле комментария построчно.
// Маркер на строке вне цитаты — настоящая дельта. Маркер только внутри
// цитаты (префикс ">" или "&gt;") дельтой не считается, но помечается
// отдельным флагом для предупреждения автора.
func Detect(body string, tokens []string) Detection {
	var d Detection
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if !containsAny(trimmed, tokens) {
			continue
		}
		if isQuoted(trimmed) {
			d.DeltaInQuote = true
		} else {
			d.HasDelta = true
		}
	}
	return d
}

// isQuoted проверяет, является ли строка цитатой.
// Reddit отдаёт markdown-цитаты и как ">", и как HTML-сущность "&gt;".
func isQuoted(line string) bool {
	return strings.HasPrefix(line, ">") || strings.HasPrefix(line, "&gt;")
}

func containsAny(s string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(s, tok) {
			return true
		}
	}
	return false
}
