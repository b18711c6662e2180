package sidstream

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/valerio/go-sidstream/sidstream/stream"
)

// DefaultBufferWindows is how many batches the player may run ahead of the transport.
const DefaultBufferWindows = 4

// Session connects a Player to a Transport through a bounded queue: the
// player produces on one goroutine while the transport sends and waits for
// acknowledgements on another.
type Session struct {
	player        *Player
	transport     *stream.Transport
	bufferWindows int
	logger        *slog.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithBufferWindows sets the queue capacity in batches.
func WithBufferWindows(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.bufferWindows = n
		}
	}
}

// WithSessionLogger sets the logger, slog.Default() otherwise.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = l
	}
}

func NewSession(player *Player, transport *stream.Transport, opts ...SessionOption) *Session {
	s := &Session{
		player:        player,
		transport:     transport,
		bufferWindows: DefaultBufferWindows,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Capacity returns the queue size: bufferWindows batches plus their boundaries.
func (s *Session) Capacity() int {
	return s.bufferWindows * (s.player.Window() + 1)
}

// Run streams ticks snapshots (Unbounded for no limit) of the song selected
// with Player.Init, the default song if none was. It returns when both sides
// finished, or with the first error of either.
func (s *Session) Run(ctx context.Context, ticks int) error {
	items := make(chan stream.Item, s.Capacity())
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.transport.Run(ctx, items)
	})
	g.Go(func() error {
		return s.player.Run(ctx, ticks, items)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to stream song %d: %w", s.player.Song(), err)
	}

	stats := s.transport.Stats()
	s.logger.Info("Session finished", "batches", stats.Batches, "snapshots", stats.Snapshots, "bytes", stats.Bytes)
	return nil
}
