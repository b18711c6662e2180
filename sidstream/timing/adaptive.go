package timing

import (
	"log/slog"
	"time"
)

// maxLag is how far behind the schedule the limiter may fall before it gives
// up catching up, e.g. after the consumer held an acknowledgement back.
const maxLag = 5

// AdaptiveLimiter paces ticks against an absolute schedule: it sleeps most
// of the wait and spins the last millisecond, and corrects accumulated drift
// once per second.
type AdaptiveLimiter struct {
	interval time.Duration
	due      time.Time
	started  time.Time
	ticks    int64
}

func NewAdaptiveLimiter() *AdaptiveLimiter {
	a := &AdaptiveLimiter{interval: FrameDuration()}
	a.Reset()
	return a
}

func (a *AdaptiveLimiter) WaitForNextFrame() {
	now := time.Now()
	wait := a.due.Sub(now)

	switch {
	case wait > 2*time.Millisecond:
		time.Sleep(wait - time.Millisecond)
		a.spin()
	case wait > 0:
		a.spin()
	case wait < -maxLag*a.interval:
		slog.Debug("Tick schedule restarted", "behind_ms", (-wait).Milliseconds())
		a.due = now
	}

	a.due = a.due.Add(a.interval)
	a.ticks++

	if a.ticks%TicksPerSecond == 0 {
		a.correctDrift()
	}
}

func (a *AdaptiveLimiter) spin() {
	for time.Now().Before(a.due) {
	}
}

func (a *AdaptiveLimiter) correctDrift() {
	drift := time.Since(a.due)
	if drift.Abs() <= 10*time.Millisecond {
		return
	}
	a.due = a.due.Add(drift / 10)
	slog.Debug("Tick drift correction",
		"drift_ms", drift.Milliseconds(),
		"rate", float64(a.ticks)/time.Since(a.started).Seconds())
}

func (a *AdaptiveLimiter) Reset() {
	a.due = time.Now()
	a.started = a.due
	a.ticks = 0
}
