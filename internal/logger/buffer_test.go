package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLogBufferRingOrder(t *testing.T) {
	buffer, err := NewLogBuffer(3, "")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		buffer.Add(LogEntry{Level: "info", Message: fmt.Sprintf("m%d", i)})
	}

	logs := buffer.GetRecentLogs(0)
	require.Len(t, logs, 3)
	assert.Equal(t, "m2", logs[0].Message)
	assert.Equal(t, "m4", logs[2].Message)

	last := buffer.GetRecentLogs(2)
	require.Len(t, last, 2)
	assert.Equal(t, "m3", last[0].Message)

	assert.Equal(t, uint64(5), buffer.GetStats().Total)
	assert.Equal(t, uint64(0), buffer.GetStats().Spilled)
}

func TestLogBufferSpill(t *testing.T) {
	spillFile := filepath.Join(t.TempDir(), "logs", "spill.log")
	buffer, err := NewLogBuffer(2, spillFile)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		buffer.Add(LogEntry{Level: "info", Message: fmt.Sprintf("m%d", i)})
	}
	assert.Equal(t, uint64(2), buffer.GetStats().Spilled)
	require.NoError(t, buffer.Close())

	data, err := os.ReadFile(spillFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], `"m0"`)
	assert.Contains(t, lines[3], `"m3"`)
}

func TestLogBufferConcurrentAccess(t *testing.T) {
	buffer, err := NewLogBuffer(100, filepath.Join(t.TempDir(), "spill.log"))
	require.NoError(t, err)
	defer buffer.Close()

	done := buffer.StartPeriodicFlush(20 * time.Millisecond)
	defer close(done)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				buffer.Add(LogEntry{Level: "info", Message: fmt.Sprintf("g%d-%d", id, j)})
				_ = buffer.GetRecentLogs(5)
			}
		}(i)
	}
	wg.Wait()

	stats := buffer.GetStats()
	assert.Equal(t, uint64(1000), stats.Total)
	assert.Equal(t, uint64(900), stats.Spilled)
	assert.Len(t, buffer.GetRecentLogs(0), 100)
}

func TestBufferedLogger(t *testing.T) {
	buffer, err := NewLogBuffer(10, "")
	require.NoError(t, err)

	log, err := NewBuffered(false, buffer)
	require.NoError(t, err)

	log.Named("portfolio").Info("Portfolio synced", zap.Int("holdings", 3), zap.String("token", "secret"))
	log.Debug("hidden at info level")

	logs := buffer.GetRecentLogs(0)
	require.Len(t, logs, 1)
	entry := logs[0]
	assert.Equal(t, "info", entry.Level)
	assert.Equal(t, "portfolio", entry.Logger)
	assert.Equal(t, "Portfolio synced", entry.Message)
	assert.Equal(t, float64(3), entry.Fields["holdings"])
	assert.Equal(t, redacted, entry.Fields["token"])
	assert.False(t, entry.Timestamp.IsZero())

	_, err = NewBuffered(false, nil)
	assert.Error(t, err)
}

type syncBuffer struct {
	strings.Builder
}

func (s *syncBuffer) Sync() error { return nil }

func TestPrettyLoggerRedacts(t *testing.T) {
	var out syncBuffer
	log := NewPrettyTo(true, zapcore.AddSync(&out))

	log.With(zap.String("password", "hunter2")).Debug("Login attempt", zap.String("user", "alice"))

	text := out.String()
	assert.Contains(t, text, "Login attempt")
	assert.Contains(t, text, "alice")
	assert.NotContains(t, text, "hunter2")
	assert.Contains(t, text, redacted)
}
