package render

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogBufferWraps(t *testing.T) {
	lb := NewLogBuffer(3)
	assert.Nil(t, lb.Recent(10))
	assert.Equal(t, 0, lb.Len())

	for i, msg := range []string{"a", "b", "c", "d"} {
		lb.Add(LogEntry{Message: msg, Time: time.Unix(int64(i), 0)})
	}

	assert.Equal(t, 3, lb.Len())
	recent := lb.Recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "d", recent[0].Message)
	assert.Equal(t, "c", recent[1].Message)
	assert.Equal(t, "b", recent[2].Message)

	assert.Len(t, lb.Recent(2), 2)
}

func TestLogBufferHandler(t *testing.T) {
	lb := NewLogBuffer(10)
	logger := slog.New(NewLogBufferHandler(lb, slog.LevelInfo))

	logger.Debug("Hidden")
	logger.With("address", "127.0.0.1:1337").WithGroup("batch").Info("Sent", "size", 50)

	recent := lb.Recent(0)
	require.Len(t, recent, 1)
	assert.Equal(t, slog.LevelInfo, recent[0].Level)
	assert.Equal(t, "Sent address=127.0.0.1:1337 batch.size=50", recent[0].Message)
}

func TestFormatLogEntry(t *testing.T) {
	entry := LogEntry{
		Time:    time.Date(2024, 1, 1, 12, 30, 5, 0, time.Local),
		Level:   slog.LevelWarn,
		Message: "Play address 0",
	}
	assert.Equal(t, "12:30:05 [WRN] Play address 0", FormatLogEntry(entry))

	entry.Level = slog.Level(2)
	assert.Equal(t, "12:30:05 [???] Play address 0", FormatLogEntry(entry))
}
