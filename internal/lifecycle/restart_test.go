package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShouldRestart(t *testing.T) {
	m := NewManager(time.Hour)
	m.startedAt = time.Now().Add(-2 * time.Hour)

	assert.True(t, m.ShouldRestart(time.Now()))

	// пока есть работа в обработке — перезапуск откладывается
	m.Inc()
	assert.False(t, m.ShouldRestart(time.Now()))

	m.Dec()
	assert.True(t, m.ShouldRestart(time.Now()))
}

func TestShouldRestartBeforeThreshold(t *testing.T) {
	m := NewManager(time.Hour)
	assert.False(t, m.ShouldRestart(time.Now()))
}

func TestShouldRestartDisabled(t *testing.T) {
	m := NewManager(0)
	m.startedAt = time.Now().Add(-100 * time.Hour)
	assert.False(t, m.ShouldRestart(time.Now()))
}

func TestInflightCounting(t *testing.T) {
	m := NewManager(time.Hour)

	m.Inc()
	m.Inc()
	assert.EqualValues(t, 2, m.Inflight())

	m.Dec()
	assert.EqualValues(t, 1, m.Inflight())
}
