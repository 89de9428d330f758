package screen

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rovshanmuradov/curve-launchpad/internal/logger"
)

func TestLogs_FilterByLevel(t *testing.T) {
	buf := logger.NewRingBuffer(16)
	log := zap.New(buf.Core(zapcore.DebugLevel))
	log.Debug("warming up")
	log.Info("pool created", zap.String("symbol", "ALPHA"))
	log.Warn("event dropped")
	log.Error("graduation failed")

	l := NewLogs(buf)
	l.SetSize(100, 20)
	l.Init()
	assert.Equal(t, 4, l.Shown())

	l.Update(tea.KeyMsg{Type: tea.KeyF2})
	assert.Equal(t, zapcore.WarnLevel, l.Level())
	assert.Equal(t, 2, l.Shown())
	assert.Contains(t, l.View(), "graduation failed")
	assert.NotContains(t, l.View(), "pool created")

	l.Update(tea.KeyMsg{Type: tea.KeyF3})
	assert.Equal(t, 1, l.Shown())

	l.Update(tea.KeyMsg{Type: tea.KeyF4})
	assert.Equal(t, 4, l.Shown())
}

func TestFormatEntry(t *testing.T) {
	line := formatEntry(logger.Entry{
		Time:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   zapcore.InfoLevel,
		Logger:  "sweeper",
		Message: "sweep finished",
		Fields:  map[string]interface{}{"graduated": 2, "failed": 0},
	})
	assert.Contains(t, line, "03:04:05")
	assert.Contains(t, line, "[sweeper] sweep finished")
	assert.Contains(t, line, "failed=0 graduated=2")
}
