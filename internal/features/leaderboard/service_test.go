package leaderboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	counts map[string]int
	since  []time.Time
}

func (f *fakeSource) RecipientCounts(_ context.Context, since time.Time) (map[string]int, error) {
	f.since = append(f.since, since)
	return f.counts, nil
}

type fakeStore struct {
	windows map[Window][]Entry
}

func (f *fakeStore) ReplaceWindow(_ context.Context, w Window, entries []Entry) error {
	if f.windows == nil {
		f.windows = make(map[Window][]Entry)
	}
	f.windows[w] = entries
	return nil
}

func (f *fakeStore) GetWindow(_ context.Context, w Window) ([]Entry, error) {
	return f.windows[w], nil
}

func TestRank(t *testing.T) {
	entries := Rank(map[string]int{
		"carol": 5,
		"alice": 12,
		"bob":   5,
	})

	require.Len(t, entries, 3)
	assert.Equal(t, Entry{Username: "alice", Count: 12, Rank: 1}, entries[0])
	// при равном счёте порядок по имени
	assert.Equal(t, Entry{Username: "bob", Count: 5, Rank: 2}, entries[1])
	assert.Equal(t, Entry{Username: "carol", Count: 5, Rank: 3}, entries[2])
}

func TestRankEmpty(t *testing.T) {
	assert.Empty(t, Rank(nil))
}

func TestRebuildAllWindows(t *testing.T) {
	source := &fakeSource{counts: map[string]int{"alice": 2}}
	store := &fakeStore{}
	s := NewService(source, store, 100)
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Rebuild(context.Background()))

	assert.Len(t, store.windows, len(Windows))
	require.Len(t, source.since, len(Windows))
	assert.Equal(t, now.AddDate(0, 0, -1), source.since[0], "daily")
	assert.True(t, source.since[len(source.since)-1].IsZero(), "alltime covers full history")
}

func TestRebuildAppliesLimit(t *testing.T) {
	source := &fakeSource{counts: map[string]int{"a": 3, "b": 2, "c": 1}}
	store := &fakeStore{}
	s := NewService(source, store, 2)

	require.NoError(t, s.Rebuild(context.Background()))

	top, err := s.Top(context.Background(), AllTime)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "a", top[0].Username)
	assert.Equal(t, "b", top[1].Username)
}

func TestWindowStart(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 6, 14, 12, 0, 0, 0, time.UTC), Daily.Start(now))
	assert.Equal(t, time.Date(2024, 6, 8, 12, 0, 0, 0, time.UTC), Weekly.Start(now))
	assert.Equal(t, time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC), Monthly.Start(now))
	assert.Equal(t, time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC), Yearly.Start(now))
	assert.True(t, AllTime.Start(now).IsZero())
}
