package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/urfave/cli"
	"golang.org/x/term"

	"github.com/valerio/go-sidstream/sidstream"
	"github.com/valerio/go-sidstream/sidstream/backend"
	"github.com/valerio/go-sidstream/sidstream/backend/headless"
	"github.com/valerio/go-sidstream/sidstream/backend/terminal"
	"github.com/valerio/go-sidstream/sidstream/psid"
	"github.com/valerio/go-sidstream/sidstream/statsview"
	"github.com/valerio/go-sidstream/sidstream/stream"
	"github.com/valerio/go-sidstream/sidstream/timing"
)

const defaultHost = "192.168.9.33"

func main() {
	app := cli.NewApp()
	app.Name = "sidstream"
	app.Description = "Plays a SID tune on an emulated 6502 and streams the SID registers to a hardware player"
	app.Usage = "sidstream [options] <SID file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.IntFlag{
			Name:  "song, s",
			Usage: "Song number to play, 1-based (0 = tune default)",
			Value: 0,
		},
		cli.IntFlag{
			Name:  "time, t",
			Usage: "Seconds to play (-1 = until interrupted)",
			Value: -1,
		},
		cli.StringFlag{
			Name:  "ip, i",
			Usage: "Address of the player receiving the registers",
			Value: defaultHost,
		},
		cli.IntFlag{
			Name:  "port, p",
			Usage: "TCP port of the player",
			Value: stream.DefaultPort,
		},
		cli.IntFlag{
			Name:  "window, w",
			Usage: "Snapshots per batch, one acknowledgement is awaited after each",
			Value: sidstream.DefaultWindow,
		},
		cli.IntFlag{
			Name:  "buffer",
			Usage: "Batches the emulation may run ahead of the network",
			Value: sidstream.DefaultBufferWindows,
		},
		cli.BoolFlag{
			Name:  "realtime",
			Usage: "Pace the emulation at 50Hz (same as --pacing adaptive)",
		},
		cli.StringFlag{
			Name:  "pacing",
			Usage: "Frame pacing: none, adaptive or ticker",
			Value: timing.PacingNone,
		},
		cli.DurationFlag{
			Name:  "ack-timeout",
			Usage: "Give up when the player does not acknowledge a batch in time (0 = wait forever)",
		},
		cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Do not connect, acknowledge every batch locally",
		},
		cli.BoolFlag{
			Name:  "monitor",
			Usage: "Show a live register monitor instead of the register table",
		},
		cli.BoolFlag{
			Name:  "quiet",
			Usage: "Do not print the register table",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable debug logging",
		},
		cli.BoolFlag{
			Name:  "statsview",
			Usage: "Serve runtime statistics on " + statsview.URL(""),
		},
	}
	app.Action = runStreamer

	err := app.Run(os.Args)
	if err != nil {
		slog.Error("Error running streamer", "error", err)
		os.Exit(1)
	}
}

func runStreamer(c *cli.Context) error {
	level := slog.LevelInfo
	if c.Bool("debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if c.NArg() < 1 {
		cli.ShowAppHelp(c)
		return errors.New("no SID file provided")
	}

	window := c.Int("window")
	if window <= 0 {
		return fmt.Errorf("invalid window %d: must be positive", window)
	}
	buffer := c.Int("buffer")
	if buffer <= 0 {
		return fmt.Errorf("invalid buffer %d: must be positive", buffer)
	}
	port := c.Int("port")
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port %d", port)
	}
	seconds := c.Int("time")
	if seconds < -1 {
		return fmt.Errorf("invalid time %d: use -1 to play until interrupted", seconds)
	}

	pacing := c.String("pacing")
	if c.Bool("realtime") && pacing == timing.PacingNone {
		pacing = timing.PacingAdaptive
	}
	switch pacing {
	case timing.PacingNone, timing.PacingAdaptive, timing.PacingTicker:
	default:
		return fmt.Errorf("unknown pacing %q", pacing)
	}

	if c.Bool("statsview") {
		statsview.Launch(statsview.DefaultAddress)
	}

	path := c.Args().Get(0)
	tune, err := psid.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	logTune(path, tune)

	limiter := timing.New(pacing)
	if ticker, ok := limiter.(*timing.TickerLimiter); ok {
		defer ticker.Stop()
	}

	player, err := sidstream.NewPlayer(tune,
		sidstream.WithWindow(window),
		sidstream.WithLimiter(limiter),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// init runs before the backend starts so it can show the resolved song
	player.Init(c.Int("song"))

	address := net.JoinHostPort(c.String("ip"), strconv.Itoa(port))
	b := newBackend(c)
	err = b.Init(backend.Config{
		Tune:    tune,
		Song:    player.Song(),
		Play:    player.PlayAddress(),
		Address: address,
		Window:  window,
		Callbacks: backend.Callbacks{
			OnQuit: cancel,
		},
	})
	if err != nil {
		return err
	}

	opts := []stream.Option{
		stream.WithObserver(backend.NewObserver(b)),
		stream.WithAckTimeout(c.Duration("ack-timeout")),
	}
	if c.Bool("dry-run") {
		slog.Info("Dry run, nothing will be sent")
		opts = append(opts, stream.WithDialer(stream.DiscardDialer{}))
	}
	transport := stream.New(address, opts...)

	session := sidstream.NewSession(player, transport, sidstream.WithBufferWindows(buffer))
	runErr := session.Run(ctx, timing.Ticks(seconds))

	if err := b.Cleanup(); err != nil {
		slog.Warn("Backend cleanup failed", "error", err)
	}

	if errors.Is(runErr, context.Canceled) {
		slog.Info("Interrupted", "batches", transport.Stats().Batches, "snapshots", transport.Stats().Snapshots)
		return nil
	}
	return runErr
}

func newBackend(c *cli.Context) backend.Backend {
	if c.Bool("monitor") {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return terminal.New()
		}
		slog.Warn("Standard output is not a terminal, falling back to the register table")
	}
	if c.Bool("quiet") {
		return headless.New(nil)
	}
	return headless.New(os.Stdout)
}

func logTune(path string, tune *psid.Tune) {
	slog.Info("Loaded tune",
		"file", path,
		"format", tune.Magic,
		"version", tune.Version,
		"name", tune.Name,
		"author", tune.Author,
		"released", tune.Released,
		"songs", tune.Songs,
		"start_song", tune.StartSong,
		"load", fmt.Sprintf("$%04X", tune.LoadAddress),
		"init", fmt.Sprintf("$%04X", tune.InitAddress),
		"play", fmt.Sprintf("$%04X", tune.PlayAddress),
	)
	for _, advisory := range tune.Advisories {
		slog.Warn("Tune advisory", "advisory", advisory.String())
	}
}
