// Package lifecycle — политика перезапуска «сначала дорисуй, потом умри».
// Долгоживущий процесс со временем деградирует (память, токены, дрейф
// состояния платформы); после порога аптайма бот перезапускает сам себя,
// но только когда в обработке ноль единиц работы.
package lifecycle

import (
	"context"
	"os"
	"sync/atomic"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
)

// Manager отслеживает аптайм и счётчик единиц работы в обработке.
type Manager struct {
	startedAt time.Time
	maxUptime time.Duration
	inflight  atomic.Int64

	checkEvery time.Duration
	restart    func() error // подменяется в тестах
}

// NewManager создаёт менеджер перезапуска. maxUptime <= 0 выключает его.
func NewManager(maxUptime time.Duration) *Manager {
	return &Manager{
		startedAt:  time.Now(),
		maxUptime:  maxUptime,
		checkEvery: 30 * time.Second,
		restart:    reexec,
	}
}

// Inc отмечает взятую в обработку единицу работы.
func (m *Manager) Inc() { m.inflight.Add(1) }

// Dec отмечает завершённую единицу работы.
func (m *Manager) Dec() { m.inflight.Add(-1) }

// Inflight возвращает число единиц работы в обработке.
func (m *Manager) Inflight() int64 { return m.inflight.Load() }

// ShouldRestart сообщает, пора ли перезапускаться: аптайм превысил порог
// И в обработке пусто. Очереди в памяти при перезапуске теряются —
// это осознанная волатильность, переполлинг восстановит картину.
func (m *Manager) ShouldRestart(now time.Time) bool {
	if m.maxUptime <= 0 {
		return false
	}
	return now.Sub(m.startedAt) >= m.maxUptime && m.inflight.Load() == 0
}

// Run периодически проверяет условие перезапуска. Когда аптайм превышен,
// перезапуск откладывается до опустошения in-flight, затем процесс
// перезапускает себя и завершается.
func (m *Manager) Run(ctx context.Context) {
	if m.maxUptime <= 0 {
		return
	}

	ticker := time.NewTicker(m.checkEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !m.ShouldRestart(time.Now()) {
				continue
			}
			log.WithField("uptime", time.Since(m.startedAt).Round(time.Second)).
				Info("Порог аптайма достигнут, перезапускаемся")
			if err := m.restart(); err != nil {
				log.WithError(err).Error("Перезапуск не удался")
			}
		}
	}
}

// reexec заменяет текущий процесс новым экземпляром того же бинаря.
func reexec() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	return syscall.Exec(exe, os.Args, os.Environ())
}
