package deltas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testTokens = []string{"!delta", "Δ", "∆"}

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		hasDelta bool
		inQuote  bool
	}{
		{
			name:     "bang token",
			body:     "Good point. !delta",
			hasDelta: true,
		},
		{
			name:     "unicode glyph",
			body:     "Вы правы. Δ",
			hasDelta: true,
		},
		{
			name:     "alternate glyph",
			body:     "∆ for changing my view",
			hasDelta: true,
		},
		{
			name: "no token",
			body: "I still disagree entirely.",
		},
		{
			name:    "token only inside markdown quote",
			body:    "> Thanks, !delta\n\nWhy would you award that?",
			inQuote: true,
		},
		{
			name:    "token only inside html-escaped quote",
			body:    "&gt; Thanks, !delta\n\nWhy would you award that?",
			inQuote: true,
		},
		{
			name:     "quoted and real token",
			body:     "> here is a !delta from before\n\nAnd a fresh one: !delta",
			hasDelta: true,
			inQuote:  true,
		},
		{
			name:     "indented token still counts",
			body:     "   !delta   ",
			hasDelta: true,
		},
		{
			name: "empty body",
			body: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Detect(tt.body, testTokens)
			assert.Equal(t, tt.hasDelta, d.HasDelta, "HasDelta")
			assert.Equal(t, tt.inQuote, d.DeltaInQuote, "DeltaInQuote")
		})
	}
}
