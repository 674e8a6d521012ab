// Package reddit — editgate.go ограничивает частоту edit-запросов.
// Все edit-вызовы процесса проходят через один шлюз: это сглаживает
// всплески и держит бота в пределах лимитов платформы независимо от того,
// какой компонент редактирует.
package reddit

import (
	"sync"
	"time"
)

// EditGate — общий на процесс ограничитель edit-запросов.
// Acquire усыпляет вызывающего до «следующего разрешённого edit»
// и безусловно сдвигает эту отметку вперёд.
type EditGate struct {
	mu       sync.Mutex
	next     time.Time
	interval time.Duration

	// подменяются в тестах
	now   func() time.Time
	sleep func(time.Duration)
}

// NewEditGate создаёт шлюз с заданным минимальным интервалом между edit.
func NewEditGate(interval time.Duration) *EditGate {
	return &EditGate{
		interval: interval,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Acquire блокирует вызывающего, пока не наступит разрешённое время,
// и сдвигает отметку на now+interval. Мьютекс держится на время сна —
// так конкурирующие вызовы выстраиваются в очередь.
func (g *EditGate) Acquire() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if wait := g.next.Sub(g.now()); wait > 0 {
		g.sleep(wait)
	}
	g.next = g.now().Add(g.interval)
}
