package headless

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/valerio/go-sidstream/sidstream/backend"
	"github.com/valerio/go-sidstream/sidstream/timing"
)

// Backend implements the Backend interface for plain console output: a table
// with one row per transmitted snapshot, and periodic progress logs.
type Backend struct {
	config     backend.Config
	out        io.Writer
	frameCount int
}

// New creates a headless backend writing the register table to out.
// A nil writer disables the table, leaving only progress logs.
func New(out io.Writer) *Backend {
	return &Backend{out: out}
}

func (h *Backend) Init(config backend.Config) error {
	h.config = config
	if h.config.Window <= 0 {
		h.config.Window = timing.TicksPerSecond
	}

	slog.Info("Running headless mode", "address", config.Address, "window", h.config.Window)

	if h.out == nil {
		return nil
	}
	if _, err := fmt.Fprintf(h.out, "\n%5s | %-14s | %-14s | %-14s | %s\n", "#", "Voice 1", "Voice 2", "Voice 3", "Filter"); err != nil {
		return fmt.Errorf("failed to write table header: %w", err)
	}
	if _, err := fmt.Fprintln(h.out, strings.Repeat("-", 70)); err != nil {
		return fmt.Errorf("failed to write table header: %w", err)
	}
	return nil
}

// Update writes a table row and logs progress once per window
func (h *Backend) Update(frame backend.Frame) error {
	h.frameCount++

	if h.out != nil {
		if _, err := io.WriteString(h.out, FormatRow(frame)); err != nil {
			return fmt.Errorf("failed to write snapshot row: %w", err)
		}
	}

	if h.frameCount%h.config.Window == 0 {
		slog.Info("Playback progress",
			"frames", h.frameCount,
			"seconds", h.frameCount/timing.TicksPerSecond,
			"batches_acked", frame.Acked)
	}
	return nil
}

func (h *Backend) Cleanup() error {
	slog.Info("Headless playback completed", "frames", h.frameCount)
	if h.out != nil {
		_, err := fmt.Fprintln(h.out)
		return err
	}
	return nil
}

// FrameCount returns the number of rendered snapshots.
func (h *Backend) FrameCount() int {
	return h.frameCount
}

// FormatRow renders one snapshot as a table row: tick, one hex column per voice and the filter registers.
func FormatRow(frame backend.Frame) string {
	cols := frame.Snapshot.Columns()
	return fmt.Sprintf("%5d | %s | %s | %s | %s\n", frame.Tick, cols[0], cols[1], cols[2], cols[3])
}
