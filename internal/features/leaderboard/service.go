// Package leaderboard — service.go содержит бизнес-логику рейтингов.
package leaderboard

import (
	"context"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
)

// CountSource отдаёт число полученных дельт по пользователям с момента since.
// Реализуется репозиторием леджера.
type CountSource interface {
	RecipientCounts(ctx context.Context, since time.Time) (map[string]int, error)
}

// WindowStore хранит строки рейтинга по окнам.
type WindowStore interface {
	ReplaceWindow(ctx context.Context, w Window, entries []Entry) error
	GetWindow(ctx context.Context, w Window) ([]Entry, error)
}

// Service пересобирает рейтинги из леджера.
type Service struct {
	source CountSource
	store  WindowStore
	limit  int

	now func() time.Time
}

// NewService создаёт сервис рейтингов. В каждом окне хранится не больше
// limit строк (0 = без ограничения).
func NewService(source CountSource, store WindowStore, limit int) *Service {
	return &Service{
		source: source,
		store:  store,
		limit:  limit,
		now:    time.Now,
	}
}

// Rebuild пересобирает все окна из леджера.
func (s *Service) Rebuild(ctx context.Context) error {
	now := s.now()
	for _, w := range Windows {
		counts, err := s.source.RecipientCounts(ctx, w.Start(now))
		if err != nil {
			return err
		}

		entries := Rank(counts)
		if s.limit > 0 && len(entries) > s.limit {
			entries = entries[:s.limit]
		}

		if err := s.store.ReplaceWindow(ctx, w, entries); err != nil {
			return err
		}
	}
	log.Debug("leaderboards rebuilt")
	return nil
}

// Top возвращает верх рейтинга окна.
func (s *Service) Top(ctx context.Context, w Window) ([]Entry, error) {
	return s.store.GetWindow(ctx, w)
}

// Rank превращает счётчики в отранжированный список: по убыванию числа
// дельт, при равенстве — по имени. Ранги 1..n.
func Rank(counts map[string]int) []Entry {
	entries := make([]Entry, 0, len(counts))
	for name, n := range counts {
		entries = append(entries, Entry{Username: name, Count: n})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Username < entries[j].Username
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
