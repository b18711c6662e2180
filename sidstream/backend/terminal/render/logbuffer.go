package render

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// LogEntry is one captured log line.
type LogEntry struct {
	Time    time.Time
	Level   slog.Level
	Message string
}

// LogBuffer keeps the last N log lines for the monitor's log pane.
type LogBuffer struct {
	mu    sync.RWMutex
	ring  []LogEntry
	next  int
	total int
}

func NewLogBuffer(capacity int) *LogBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &LogBuffer{ring: make([]LogEntry, capacity)}
}

// Add stores entry, overwriting the oldest one once full.
func (b *LogBuffer) Add(entry LogEntry) {
	b.mu.Lock()
	b.ring[b.next] = entry
	b.next = (b.next + 1) % len(b.ring)
	b.total++
	b.mu.Unlock()
}

// Len returns how many entries are currently held.
func (b *LogBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return min(b.total, len(b.ring))
}

// Recent returns up to n entries, newest first. n <= 0 returns all of them.
func (b *LogBuffer) Recent(n int) []LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	held := min(b.total, len(b.ring))
	if n <= 0 || n > held {
		n = held
	}
	if n == 0 {
		return nil
	}

	out := make([]LogEntry, 0, n)
	for pos := b.next - 1; len(out) < n; pos-- {
		if pos < 0 {
			pos += len(b.ring)
		}
		out = append(out, b.ring[pos])
	}
	return out
}

// LogBufferHandler is a slog.Handler feeding a LogBuffer. Each record
// becomes one line: the message followed by key=value pairs.
type LogBufferHandler struct {
	buffer *LogBuffer
	level  slog.Leveler
	bound  string // preformatted attrs from WithAttrs
	group  string
}

func NewLogBufferHandler(buffer *LogBuffer, level slog.Leveler) *LogBufferHandler {
	return &LogBufferHandler{buffer: buffer, level: level}
}

func (h *LogBufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *LogBufferHandler) Handle(_ context.Context, r slog.Record) error {
	line := strings.Builder{}
	line.WriteString(r.Message)
	line.WriteString(h.bound)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&line, h.group, a)
		return true
	})

	h.buffer.Add(LogEntry{Time: r.Time, Level: r.Level, Message: line.String()})
	return nil
}

func (h *LogBufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	bound := strings.Builder{}
	bound.WriteString(h.bound)
	for _, a := range attrs {
		appendAttr(&bound, h.group, a)
	}
	next.bound = bound.String()
	return &next
}

func (h *LogBufferHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.group = qualify(h.group, name)
	return &next
}

func appendAttr(sb *strings.Builder, group string, a slog.Attr) {
	fmt.Fprintf(sb, " %s=%v", qualify(group, a.Key), a.Value)
}

func qualify(group, key string) string {
	if group == "" {
		return key
	}
	return group + "." + key
}

var levelTags = map[slog.Level]string{
	slog.LevelDebug: "DBG",
	slog.LevelInfo:  "INF",
	slog.LevelWarn:  "WRN",
	slog.LevelError: "ERR",
}

// FormatLogEntry renders an entry as "hh:mm:ss [LVL] message".
func FormatLogEntry(entry LogEntry) string {
	tag, ok := levelTags[entry.Level]
	if !ok {
		tag = "???"
	}
	return entry.Time.Format("15:04:05") + " [" + tag + "] " + entry.Message
}
