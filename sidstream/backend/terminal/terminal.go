package terminal

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/valerio/go-sidstream/sidstream/backend"
	"github.com/valerio/go-sidstream/sidstream/backend/terminal/render"
	"github.com/valerio/go-sidstream/sidstream/sid"
	"github.com/valerio/go-sidstream/sidstream/timing"
)

const (
	infoHeight    = 6
	voicesHeight  = 6
	minTermWidth  = 80
	minTermHeight = 20
	logCapacity   = 100

	// DefaultRedrawInterval limits redraws while a batch is being sent.
	DefaultRedrawInterval = 100 * time.Millisecond
)

// Backend implements the Backend interface using tcell: a live register
// monitor with the tune information, decoded voices and recent logs.
type Backend struct {
	screen    tcell.Screen
	logBuffer *render.LogBuffer
	logLevel  *slog.LevelVar
	config    backend.Config
	prevLog   *slog.Logger

	redrawInterval time.Duration

	mu         sync.Mutex
	frame      backend.Frame
	running    bool
	done       chan struct{}
	lastDraw   time.Time
	drawnAcked int

	drawMu sync.Mutex
}

// Option configures the terminal backend.
type Option func(*Backend)

// WithScreen uses an existing screen instead of the process terminal.
func WithScreen(screen tcell.Screen) Option {
	return func(t *Backend) {
		t.screen = screen
	}
}

// WithRedrawInterval sets the minimum time between two redraws caused by
// snapshots of the same batch. Zero redraws on every snapshot.
func WithRedrawInterval(d time.Duration) Option {
	return func(t *Backend) {
		t.redrawInterval = d
	}
}

// New creates a new terminal backend
func New(opts ...Option) *Backend {
	t := &Backend{
		logLevel:       &slog.LevelVar{},
		redrawInterval: DefaultRedrawInterval,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Init takes over the terminal and redirects logging into the monitor.
func (t *Backend) Init(config backend.Config) error {
	t.config = config

	if t.screen == nil {
		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("failed to initialize terminal: %v", err)
		}
		t.screen = screen
	}
	if err := t.screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize terminal: %v", err)
	}

	t.logBuffer = render.NewLogBuffer(logCapacity)
	t.prevLog = slog.Default()
	slog.SetDefault(slog.New(render.NewLogBufferHandler(t.logBuffer, t.logLevel)))

	t.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	t.screen.Clear()

	t.running = true
	t.done = make(chan struct{})
	go t.pollEvents()

	slog.Info("Terminal backend initialized")
	t.draw()
	return nil
}

// Update records the latest snapshot. A whole batch arrives at once, so the
// monitor is redrawn when an acknowledgement came in since the last redraw,
// otherwise at most once per redraw interval.
func (t *Backend) Update(frame backend.Frame) error {
	t.mu.Lock()
	t.frame = frame
	redraw := t.running &&
		(frame.Acked != t.drawnAcked || time.Since(t.lastDraw) >= t.redrawInterval)
	t.mu.Unlock()

	if redraw {
		t.draw()
	}
	return nil
}

// Cleanup restores the terminal
func (t *Backend) Cleanup() error {
	t.mu.Lock()
	wasRunning := t.running
	t.running = false
	t.mu.Unlock()

	if wasRunning {
		t.screen.Fini()
		<-t.done
		slog.SetDefault(t.prevLog)
	}
	return nil
}

// pollEvents runs until the screen is finalized. The monitor must stay
// responsive while the transport waits for an acknowledgement, so input is
// not polled from Update.
func (t *Backend) pollEvents() {
	defer close(t.done)
	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return
		}

		switch ev := ev.(type) {
		case *tcell.EventKey:
			t.processKeyEvent(ev)
		case *tcell.EventResize:
			t.screen.Sync()
			t.draw()
		}
	}
}

func (t *Backend) processKeyEvent(ev *tcell.EventKey) {
	switch {
	case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyCtrlC, ev.Rune() == 'q':
		slog.Info("Quit requested")
		if t.config.Callbacks.OnQuit != nil {
			t.config.Callbacks.OnQuit()
		}
	case ev.Rune() == '+' || ev.Rune() == '=':
		t.changeLogLevel(-4)
	case ev.Rune() == '-' || ev.Rune() == '_':
		t.changeLogLevel(4)
	}
}

// changeLogLevel moves the log filter by delta, slog levels are 4 apart.
func (t *Backend) changeLogLevel(delta int) {
	oldLevel := t.logLevel.Level()
	newLevel := oldLevel + slog.Level(delta)
	if newLevel < slog.LevelDebug || newLevel > slog.LevelError {
		return
	}
	t.logLevel.Set(newLevel)
	slog.Info("Log filter changed", "from", oldLevel, "to", newLevel)
	t.draw()
}

func (t *Backend) draw() {
	t.drawMu.Lock()
	defer t.drawMu.Unlock()

	t.mu.Lock()
	frame := t.frame
	t.lastDraw = time.Now()
	t.drawnAcked = frame.Acked
	t.mu.Unlock()

	termWidth, termHeight := t.screen.Size()
	t.screen.Clear()

	if termWidth < minTermWidth || termHeight < minTermHeight {
		style := tcell.StyleDefault.Foreground(tcell.ColorRed)
		msg := fmt.Sprintf("Terminal too small! Need at least %dx%d", minTermWidth, minTermHeight)
		t.drawText(0, termHeight/2, termWidth, msg, style)
		t.screen.Show()
		return
	}

	t.drawBorders(termWidth, termHeight)
	t.drawInfo(frame, 2, 1, termWidth-4)
	t.drawVoices(frame.Snapshot, 2, infoHeight+2, termWidth-4)
	logsY := infoHeight + voicesHeight + 3
	t.drawLogs(2, logsY, termWidth-4, termHeight)
	t.screen.Show()
}

func (t *Backend) drawBorders(termWidth, termHeight int) {
	borderStyle := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	titleStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)

	for _, y := range []int{infoHeight + 1, infoHeight + voicesHeight + 2} {
		for x := 0; x < termWidth; x++ {
			t.screen.SetContent(x, y, '─', nil, borderStyle)
		}
	}

	t.drawText(1, 0, termWidth, " sidstream ", titleStyle)
	t.drawText(1, infoHeight+1, termWidth, " Registers ", titleStyle)
	title := fmt.Sprintf(" Logs [%s] (-/+ filter) ", t.logLevel.Level())
	t.drawText(1, infoHeight+voicesHeight+2, termWidth, title, titleStyle)

	helpText := " q/ESC=quit | Logs: +/- filter "
	t.drawText(0, termHeight-1, termWidth, helpText, borderStyle)
}

func (t *Backend) drawInfo(frame backend.Frame, x, y, width int) {
	style := tcell.StyleDefault.Foreground(tcell.ColorBlue)
	tune := t.config.Tune

	lines := []string{}
	if tune != nil {
		lines = append(lines,
			fmt.Sprintf("Title:    %s", tune.Name),
			fmt.Sprintf("Author:   %s", tune.Author),
			fmt.Sprintf("Released: %s", tune.Released),
			fmt.Sprintf("Song %d/%d  %s v%d  Load $%04X  Init $%04X  Play $%04X",
				t.config.Song, tune.Songs, tune.Magic, tune.Version,
				tune.LoadAddress, tune.InitAddress, t.config.Play),
		)
	}

	elapsed := frame.Tick / timing.TicksPerSecond
	lines = append(lines,
		fmt.Sprintf("Target:   %s", t.config.Address),
		fmt.Sprintf("Frame %d  (%02d:%02d)  Batches acked: %d", frame.Tick, elapsed/60, elapsed%60, frame.Acked),
	)

	for i, line := range lines {
		if i >= infoHeight {
			break
		}
		t.drawText(x, y+i, width, line, style)
	}
}

func (t *Backend) drawVoices(s sid.Snapshot, x, y, width int) {
	labelStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)
	gateStyle := tcell.StyleDefault.Foreground(tcell.ColorGreen)
	idleStyle := tcell.StyleDefault.Foreground(tcell.ColorGray)

	filter := s.Filter()
	for i := 0; i < 3; i++ {
		voice := s.Voice(i)
		style := idleStyle
		if voice.Gate() {
			style = gateStyle
		}
		routed := " "
		if filter.Routes(i) {
			routed = "F"
		}

		label := fmt.Sprintf("Voice %d ", i+1)
		t.drawText(x, y+i, width, label, labelStyle)
		t.drawText(x+len(label), y+i, width-len(label), voice.String()+" "+routed, style)
	}

	t.drawText(x, y+3, width, "Filter  ", labelStyle)
	t.drawText(x+8, y+3, width-8, filter.String(), idleStyle)

	cols := s.Columns()
	raw := fmt.Sprintf("Raw     %s %s %s %s", cols[0], cols[1], cols[2], cols[3])
	t.drawText(x, y+5, width, raw, idleStyle)
}

func (t *Backend) drawLogs(x, startY, width, termHeight int) {
	availableHeight := termHeight - startY - 1
	if width <= 0 || availableHeight <= 0 {
		return
	}

	logs := t.logBuffer.Recent(availableHeight)

	debugStyle := tcell.StyleDefault.Foreground(tcell.ColorGray)
	infoStyle := tcell.StyleDefault.Foreground(tcell.ColorBlue)
	warnStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)
	errStyle := tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)

	for i, logEntry := range logs {
		style := infoStyle
		switch logEntry.Level {
		case slog.LevelDebug:
			style = debugStyle
		case slog.LevelWarn:
			style = warnStyle
		case slog.LevelError:
			style = errStyle
		}

		logText := render.FormatLogEntry(logEntry)
		if len(logText) > width && width > 3 {
			logText = logText[:width-3] + "..."
		}
		t.drawText(x, startY+i, width, logText, style)
	}
}

func (t *Backend) drawText(x, y, width int, text string, style tcell.Style) {
	col := 0
	for _, ch := range text {
		if col >= width {
			break
		}
		t.screen.SetContent(x+col, y, ch, nil, style)
		col++
	}
}
