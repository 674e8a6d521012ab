package deltas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deltabot/internal/reddit"
)

func TestRender(t *testing.T) {
	tpls := DefaultTemplates()

	body, err := tpls.Render(Outcome{Kind: OutcomeSuccess, Giver: "alice", Recipient: "bob"})
	require.NoError(t, err)
	assert.Equal(t, "Confirmed: 1 delta awarded to /u/bob.", body)

	body, err = tpls.Render(Outcome{Kind: OutcomeFailSelf, Giver: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "You cannot award a delta to yourself.", body)

	// зарезервированные исходы не имеют шаблона
	_, err = tpls.Render(Outcome{Kind: OutcomeFailTooShort})
	assert.Error(t, err)

	_, err = tpls.Render(Outcome{Kind: OutcomeKind("bogus")})
	assert.Error(t, err)
}

func newTestDetector(t *testing.T) *ReplyDetector {
	t.Helper()
	d, err := NewReplyDetector("DeltaBot", DefaultTemplates())
	require.NoError(t, err)
	return d
}

func botChild(body string) *reddit.Thing {
	return &reddit.Thing{Kind: reddit.KindComment, Author: "DeltaBot", Body: body}
}

func TestDidReply(t *testing.T) {
	d := newTestDetector(t)

	tests := []struct {
		name         string
		children     []*reddit.Thing
		hasReplied   bool
		wasSuccess   bool
		wasModerator bool
	}{
		{
			name: "no children",
		},
		{
			name:     "only human children",
			children: []*reddit.Thing{{Kind: reddit.KindComment, Author: "carol", Body: "nice"}},
		},
		{
			name:       "success reply",
			children:   []*reddit.Thing{botChild("Confirmed: 1 delta awarded to /u/bob.")},
			hasReplied: true,
			wasSuccess: true,
		},
		{
			name:       "fail reply",
			children:   []*reddit.Thing{botChild("You cannot award a delta to yourself.")},
			hasReplied: true,
		},
		{
			name:         "moderator reply is not mistaken for success",
			children:     []*reddit.Thing{botChild("Confirmed by a moderator: 1 delta awarded to /u/bob.")},
			hasReplied:   true,
			wasModerator: true,
		},
		{
			name: "reply wrapped in footer still matches",
			children: []*reddit.Thing{botChild(
				"Confirmed: 1 delta awarded to /u/bob.\n\n---\n\n^[ᴵ'ᵐ ᵃ ᵇᵒᵗ]",
			)},
			hasReplied: true,
			wasSuccess: true,
		},
		{
			name:     "bot chatter that matches nothing",
			children: []*reddit.Thing{botChild("This comment has been removed.")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := d.DidReply(&reddit.Thing{Children: tt.children})
			if !tt.hasReplied {
				assert.Nil(t, check)
				return
			}
			require.NotNil(t, check)
			assert.True(t, check.HasReplied)
			assert.Equal(t, tt.wasSuccess, check.WasSuccess)
			assert.Equal(t, tt.wasModerator, check.WasModerator)
			assert.NotNil(t, check.Child)
		})
	}
}

// Регулярка собирается из экранированного шаблона: спецсимволы вроде
// точки и слэша не должны превращаться в синтаксис.
func TestCompileTemplateEscapes(t *testing.T) {
	re, err := compileTemplate("Confirmed: 1 delta awarded to /u/{recipient}.")
	require.NoError(t, err)
	assert.True(t, re.MatchString("Confirmed: 1 delta awarded to /u/bob."))
	assert.False(t, re.MatchString("Confirmed? 1 delta awarded to /u/bob!"))
}
