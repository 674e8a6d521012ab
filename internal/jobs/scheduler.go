// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: ежечасная пересборка скользящих
// окон лидербордов и ежедневная полная пересборка.
package jobs

import (
	"context"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"deltabot/internal/features/leaderboard"
)

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron   *cron.Cron
	boards *leaderboard.Service
}

// NewScheduler создаёт планировщик задач.
func NewScheduler(boards *leaderboard.Service) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		boards: boards,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) {
	// Скользящие окна (daily/weekly/...) устаревают сами по себе,
	// без событий: пересборка каждый час
	s.cron.AddFunc("0 * * * *", func() {
		log.Debug("[CRON] пересборка лидербордов")
		if err := s.boards.Rebuild(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка пересборки лидербордов")
		}
	})

	// Полная пересборка в 00:05 — страховка от пропущенных обновлений
	s.cron.AddFunc("5 0 * * *", func() {
		log.Info("[CRON] Ежедневная полная пересборка лидербордов")
		if err := s.boards.Rebuild(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка полной пересборки")
		}
	})

	s.cron.Start()
	log.Info("Планировщик задач запущен")
}

// Stop останавливает планировщик, дождавшись текущих задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
