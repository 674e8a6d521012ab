package deltas

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"deltabot/internal/reddit"
)

func TestValidate(t *testing.T) {
	v := NewValidator("DeltaBot")
	post := &reddit.Thing{ID: "p1", Kind: reddit.KindPost, Author: "op"}

	tests := []struct {
		name    string
		comment *reddit.Thing
		want    OutcomeKind
	}{
		{
			name: "parent is the post itself",
			comment: &reddit.Thing{
				Author: "alice",
				Parent: post,
				Post:   post,
			},
			want: OutcomeFailOP,
		},
		{
			name: "parent authored by op",
			comment: &reddit.Thing{
				Author: "alice",
				Parent: &reddit.Thing{Kind: reddit.KindComment, Author: "op"},
				Post:   post,
			},
			want: OutcomeFailOP,
		},
		{
			name: "parent missing",
			comment: &reddit.Thing{
				Author: "alice",
				Post:   post,
			},
			want: OutcomeFailOP,
		},
		{
			name: "parent is the bot",
			comment: &reddit.Thing{
				Author: "alice",
				Parent: &reddit.Thing{Kind: reddit.KindComment, Author: "DeltaBot"},
				Post:   post,
			},
			want: OutcomeFailDeltaBot,
		},
		{
			name: "self award",
			comment: &reddit.Thing{
				Author: "alice",
				Parent: &reddit.Thing{Kind: reddit.KindComment, Author: "alice"},
				Post:   post,
			},
			want: OutcomeFailSelf,
		},
		{
			name: "valid award",
			comment: &reddit.Thing{
				Author: "alice",
				Parent: &reddit.Thing{Kind: reddit.KindComment, Author: "bob"},
				Post:   post,
			},
			want: OutcomeSuccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := v.Validate(tt.comment)
			assert.Equal(t, tt.want, out.Kind)
			assert.Equal(t, tt.comment.Author, out.Giver)
		})
	}
}

// OP-правило приоритетнее self-правила: OP, дающий дельту самому себе
// под своим постом, получает ответ про OP.
func TestValidateRuleOrder(t *testing.T) {
	v := NewValidator("DeltaBot")
	post := &reddit.Thing{ID: "p1", Kind: reddit.KindPost, Author: "op"}

	out := v.Validate(&reddit.Thing{
		Author: "op",
		Parent: &reddit.Thing{Kind: reddit.KindComment, Author: "op"},
		Post:   post,
	})
	assert.Equal(t, OutcomeFailOP, out.Kind)
}
