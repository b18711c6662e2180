package timing

import "time"

// Limiter paces the frame loop.
type Limiter interface {
	// WaitForNextFrame blocks until it's time for the next frame.
	// Returns immediately if timing is behind schedule.
	WaitForNextFrame()

	// Reset resets the timing state, useful after pauses.
	Reset()
}

// NewNoOpLimiter returns a limiter that doesn't limit, frames are produced
// as fast as the consumer acknowledges them.
func NewNoOpLimiter() Limiter {
	return &noOpLimiter{}
}

type noOpLimiter struct{}

func (n *noOpLimiter) WaitForNextFrame() {}
func (n *noOpLimiter) Reset()            {}

// TicksPerSecond is the rate of the emulated vertical blank interrupt.
const TicksPerSecond = 50

// FrameDuration returns the target duration of a single frame.
func FrameDuration() time.Duration {
	return time.Second / TicksPerSecond
}

// Ticks converts a play time in seconds to a frame count. Negative means unbounded.
func Ticks(seconds int) int {
	if seconds < 0 {
		return -1
	}
	return seconds * TicksPerSecond
}

// Pacing names accepted by New.
const (
	PacingNone     = "none"
	PacingAdaptive = "adaptive"
	PacingTicker   = "ticker"
)

// New returns the limiter for a pacing name, falling back to no limiting.
func New(pacing string) Limiter {
	switch pacing {
	case PacingAdaptive:
		return NewAdaptiveLimiter()
	case PacingTicker:
		return NewTickerLimiter()
	}
	return NewNoOpLimiter()
}
