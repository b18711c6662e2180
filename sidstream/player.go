package sidstream

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/valerio/go-sidstream/sidstream/addr"
	"github.com/valerio/go-sidstream/sidstream/cpu"
	"github.com/valerio/go-sidstream/sidstream/driver"
	"github.com/valerio/go-sidstream/sidstream/memory"
	"github.com/valerio/go-sidstream/sidstream/psid"
	"github.com/valerio/go-sidstream/sidstream/sid"
	"github.com/valerio/go-sidstream/sidstream/stream"
	"github.com/valerio/go-sidstream/sidstream/timing"
)

// Unbounded plays until the context is cancelled.
const Unbounded = -1

// DefaultWindow is the number of snapshots per transmitted batch.
const DefaultWindow = 50

// Player owns the emulated machine of one playback: it runs the tune's init
// routine once and its play routine once per tick, capturing the SID
// registers after each call.
type Player struct {
	tune    *psid.Tune
	mem     *memory.Image
	cpu     *cpu.Processor
	driver  *driver.Driver
	limiter timing.Limiter
	window  int
	log     *slog.Logger

	song        int
	playAddress uint16
	initialized bool
	safetyStops int
}

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithWindow sets how many snapshots make up a batch.
func WithWindow(n int) PlayerOption {
	return func(p *Player) {
		if n > 0 {
			p.window = n
		}
	}
}

// WithLimiter paces the play calls, by default they run as fast as the consumer allows.
func WithLimiter(l timing.Limiter) PlayerOption {
	return func(p *Player) {
		p.limiter = l
	}
}

// WithMaxSteps lowers or raises the instruction ceiling of each routine call.
func WithMaxSteps(n int) PlayerOption {
	return func(p *Player) {
		p.driver.MaxSteps = n
	}
}

// WithPlayerLogger sets the logger. Without it the player follows slog.Default(),
// also when the default changes after construction.
func WithPlayerLogger(l *slog.Logger) PlayerOption {
	return func(p *Player) {
		p.log = l
	}
}

// NewPlayer loads the tune payload into a fresh memory image.
func NewPlayer(tune *psid.Tune, opts ...PlayerOption) (*Player, error) {
	mem := memory.New()
	if err := mem.Load(tune.LoadAddress, tune.Payload); err != nil {
		return nil, fmt.Errorf("failed to load tune: %w", err)
	}

	p := &Player{
		tune:    tune,
		mem:     mem,
		cpu:     cpu.New(mem),
		driver:  driver.New(),
		limiter: timing.NewNoOpLimiter(),
		window:  DefaultWindow,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Tune returns the tune being played.
func (p *Player) Tune() *psid.Tune { return p.tune }

// Memory exposes the machine memory, only safe to use while the player is not running.
func (p *Player) Memory() *memory.Image { return p.mem }

// Window returns the batch size.
func (p *Player) Window() int { return p.window }

// Song returns the song selected by Init.
func (p *Player) Song() int { return p.song }

// PlayAddress returns the resolved play routine address, valid after Init.
func (p *Player) PlayAddress() uint16 { return p.playAddress }

// SafetyStops returns how many routine calls were cut off by the instruction ceiling.
func (p *Player) SafetyStops() int { return p.safetyStops }

// Init selects a song (1-based, out of range means the default song), runs the
// init routine with the 0-based song index in A and resolves the play address.
func (p *Player) Init(song int) driver.Result {
	p.song = p.tune.ResolveSong(song)
	if p.tune.UsesTimer(p.song) {
		p.logger().Warn("Song requests CIA timer speed, playing at 50Hz", "song", p.song)
	}

	p.logger().Info("Initializing song", "song", p.song, "songs", p.tune.Songs, "init", hexAddr(p.tune.InitAddress))
	result := p.call(p.tune.InitAddress, uint8(p.song-1), -1)

	p.playAddress = p.tune.PlayAddress
	if p.playAddress == 0 {
		vector := addr.IRQVector
		if !p.mem.KernalVisible() {
			vector = addr.HardwareIRQVector
		}
		p.playAddress = p.mem.LoadAddress(vector)
		p.logger().Warn("Play address is 0, reading from interrupt vector",
			"vector", hexAddr(vector), "play", hexAddr(p.playAddress))
	}

	p.initialized = true
	return result
}

// Tick calls the play routine once and captures the registers.
func (p *Player) Tick(tick int) (sid.Snapshot, driver.Result) {
	result := p.call(p.playAddress, 0, tick)
	return sid.Capture(p.mem), result
}

// Run produces ticks snapshots (Unbounded for no limit) into out, with a batch
// boundary after every window, then a stream end. out is closed on return.
// Init is called with the default song if it has not been called before.
func (p *Player) Run(ctx context.Context, ticks int, out chan<- stream.Item) error {
	defer close(out)

	if !p.initialized {
		p.Init(0)
	}

	if ticks == Unbounded {
		p.logger().Info("Playing", "play", hexAddr(p.playAddress))
	} else {
		p.logger().Info("Playing", "play", hexAddr(p.playAddress), "seconds", ticks/timing.TicksPerSecond, "frames", ticks)
	}

	p.limiter.Reset()
	for tick := 0; ticks == Unbounded || tick < ticks; tick++ {
		if err := ctx.Err(); err != nil {
			p.endStream(out)
			return err
		}

		p.limiter.WaitForNextFrame()
		snapshot, _ := p.Tick(tick)

		if err := send(ctx, out, stream.SnapshotItem(tick, snapshot)); err != nil {
			p.endStream(out)
			return err
		}
		if (tick+1)%p.window == 0 {
			if err := send(ctx, out, stream.BatchBoundary()); err != nil {
				p.endStream(out)
				return err
			}
		}
	}

	if err := send(ctx, out, stream.StreamEnd()); err != nil {
		return err
	}
	p.logger().Info("Done playing", "safety_stops", p.safetyStops)
	return nil
}

// endStream offers a stream end without blocking, the consumer may already be gone.
func (p *Player) endStream(out chan<- stream.Item) {
	select {
	case out <- stream.StreamEnd():
	default:
	}
}

func send(ctx context.Context, out chan<- stream.Item, item stream.Item) error {
	select {
	case out <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// call runs one routine. A tick of -1 marks the init call.
func (p *Player) call(entry uint16, a uint8, tick int) driver.Result {
	result := p.driver.Run(p.cpu, driver.Request{Entry: entry, A: a})

	if result.State == driver.SafetyStopped {
		p.safetyStops++
		attrs := []any{
			"entry", hexAddr(entry),
			"tick", tick,
			"steps", result.Steps,
			"pc", p.cpu.Disassemble(result.PC),
			"registers", p.cpu.Registers(),
		}
		if p.safetyStops == 1 {
			p.logger().Warn("Routine hit the instruction ceiling, registers may be incomplete", attrs...)
		} else {
			p.logger().Debug("Routine hit the instruction ceiling", attrs...)
		}
	}
	return result
}

func (p *Player) logger() *slog.Logger {
	if p.log != nil {
		return p.log
	}
	return slog.Default()
}

func hexAddr(a uint16) string {
	return fmt.Sprintf("$%04X", a)
}
