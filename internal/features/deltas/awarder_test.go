package deltas

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deltabot/internal/reddit"
)

type fakeFlairWriter struct {
	flairs map[string]string
}

func newFakeFlairWriter() *fakeFlairWriter {
	return &fakeFlairWriter{flairs: make(map[string]string)}
}

func (f *fakeFlairWriter) SetUserFlair(_ context.Context, username, text string) error {
	f.flairs[username] = text
	return nil
}

type fakeLedger struct {
	records []*AwardRecord
}

func (l *fakeLedger) Append(_ context.Context, rec *AwardRecord) error {
	l.records = append(l.records, rec)
	return nil
}

func (l *fakeLedger) RemoveByComment(_ context.Context, commentID string) error {
	kept := l.records[:0]
	for _, r := range l.records {
		if r.CommentID != commentID {
			kept = append(kept, r)
		}
	}
	l.records = kept
	return nil
}

func TestParseFlairCount(t *testing.T) {
	tests := []struct {
		flair string
		want  int
	}{
		{"3Δ", 3},
		{"", 0},
		{"Δ", 0},
		{"abcΔ", 0},
		{"12Δ", 12},
		{" 7Δ ", 7},
		{"-2Δ", 0},
		{"5", 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseFlairCount(tt.flair, "Δ"), "flair %q", tt.flair)
	}
}

func TestAwardIncrementsFlairAndLedger(t *testing.T) {
	flair := newFakeFlairWriter()
	ledger := &fakeLedger{}
	a := NewAwarder(flair, ledger, "Δ")

	post := &reddit.Thing{ID: "p1", Kind: reddit.KindPost, Permalink: "/r/sub/p1", Title: "CMV: something"}
	recipient := &reddit.Thing{ID: "c1", Kind: reddit.KindComment, Author: "bob", AuthorFlairText: "2Δ"}
	giver := &reddit.Thing{ID: "c2", LinkID: "t3_p1", Kind: reddit.KindComment, Author: "alice", Post: post}

	require.NoError(t, a.Award(context.Background(), giver, recipient))

	assert.Equal(t, "3Δ", flair.flairs["bob"])
	require.Len(t, ledger.records, 1)
	rec := ledger.records[0]
	assert.Equal(t, "c2", rec.CommentID)
	assert.Equal(t, "alice", rec.Giver)
	assert.Equal(t, "bob", rec.Recipient)
	assert.Equal(t, "/r/sub/p1", rec.PostLink)
	assert.Equal(t, "CMV: something", rec.PostTitle)
}

func TestAwardFromEmptyFlair(t *testing.T) {
	flair := newFakeFlairWriter()
	a := NewAwarder(flair, &fakeLedger{}, "Δ")

	recipient := &reddit.Thing{ID: "c1", Kind: reddit.KindComment, Author: "bob"}
	giver := &reddit.Thing{ID: "c2", Kind: reddit.KindComment, Author: "alice"}

	require.NoError(t, a.Award(context.Background(), giver, recipient))
	assert.Equal(t, "1Δ", flair.flairs["bob"])
}

func TestUnawardDecrementsAndRemoves(t *testing.T) {
	flair := newFakeFlairWriter()
	ledger := &fakeLedger{records: []*AwardRecord{{CommentID: "c2", Giver: "alice", Recipient: "bob"}}}
	a := NewAwarder(flair, ledger, "Δ")

	recipient := &reddit.Thing{ID: "c1", Kind: reddit.KindComment, Author: "bob", AuthorFlairText: "3Δ"}
	giver := &reddit.Thing{ID: "c2", Kind: reddit.KindComment, Author: "alice"}

	require.NoError(t, a.Unaward(context.Background(), giver, recipient))

	assert.Equal(t, "2Δ", flair.flairs["bob"])
	assert.Empty(t, ledger.records)
}

// Декремент от нуля не уводит счётчик в минус.
func TestUnawardClampsAtZero(t *testing.T) {
	flair := newFakeFlairWriter()
	a := NewAwarder(flair, &fakeLedger{}, "Δ")

	recipient := &reddit.Thing{ID: "c1", Kind: reddit.KindComment, Author: "bob", AuthorFlairText: ""}
	giver := &reddit.Thing{ID: "c2", Kind: reddit.KindComment, Author: "alice"}

	require.NoError(t, a.Unaward(context.Background(), giver, recipient))
	assert.Equal(t, "0Δ", flair.flairs["bob"])
}

// Награда посту — нарушение инварианта, не тихий no-op.
func TestAwardToPostPanics(t *testing.T) {
	a := NewAwarder(newFakeFlairWriter(), &fakeLedger{}, "Δ")

	post := &reddit.Thing{ID: "p1", Kind: reddit.KindPost, Author: "op"}
	giver := &reddit.Thing{ID: "c2", Kind: reddit.KindComment, Author: "alice"}

	assert.Panics(t, func() {
		_ = a.Award(context.Background(), giver, post)
	})
}
