package logger

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestRingBuffer_KeepsNewest(t *testing.T) {
	buf := NewRingBuffer(5)
	log := zap.New(buf.Core(zapcore.DebugLevel)).Named("test").With(zap.String("pool", "abc"))

	for i := 0; i < 10; i++ {
		log.Info(fmt.Sprintf("Log %d", i), zap.Int("i", i))
	}

	entries := buf.Recent(0)
	require.Len(t, entries, 5)
	assert.Equal(t, "Log 5", entries[0].Message)
	assert.Equal(t, "Log 9", entries[4].Message)
	assert.Equal(t, "abc", entries[4].Fields["pool"])
	assert.Equal(t, int64(9), entries[4].Fields["i"])
	assert.Equal(t, "test", entries[4].Logger)
	assert.Equal(t, uint64(10), buf.Total())

	last := buf.Recent(2)
	require.Len(t, last, 2)
	assert.Equal(t, "Log 8", last[0].Message)
}

func TestRingBuffer_LevelAndConcurrency(t *testing.T) {
	buf := NewRingBuffer(100)
	log := zap.New(buf.Core(zapcore.InfoLevel))

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				log.Debug("hidden")
				log.Info("shown")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(500), buf.Total())
	assert.Len(t, buf.Recent(0), 100)
}

func TestNew_WritesRotatingFile(t *testing.T) {
	dir := t.TempDir()
	buf := NewRingBuffer(8)
	cfg := &Config{LogFile: filepath.Join(dir, "launchpad.log"), MaxSize: 1}

	l, err := New(cfg, buf.Core(zapcore.InfoLevel))
	require.NoError(t, err)
	l.WithOperation("graduate").Info("Pool graduated")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"Pool graduated"`)
	assert.Contains(t, string(data), `"correlation_id"`)
	assert.Equal(t, "graduate", buf.Recent(1)[0].Fields["operation"])

	_, err = New(&Config{})
	assert.Error(t, err)
}

func TestJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades", "journal.csv")
	header := []string{"time", "pool", "side", "in", "out"}

	j, err := NewJournal(path, header, 20*time.Millisecond, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, j.Write([]string{"t1", "p", "buy", "10", "1"}))
	require.NoError(t, j.Write([]string{"t2", "p", "sell", "1", "9"}))
	require.NoError(t, j.Close())

	records, _ := j.Stats()
	assert.Equal(t, uint64(2), records)

	j2, err := NewJournal(path, header, time.Second, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, j2.Write([]string{"t3", "p", "buy", "5", "1"}))
	require.NoError(t, j2.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4, "header is written once")
	assert.Equal(t, header, rows[0])
	assert.Equal(t, "t3", rows[3][0])
}
