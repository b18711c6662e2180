package backend

import (
	"log/slog"

	"github.com/valerio/go-sidstream/sidstream/sid"
)

// Observer adapts a Backend to the transport's progress notifications.
type Observer struct {
	backend Backend
	acked   int
	failed  bool
}

func NewObserver(b Backend) *Observer {
	return &Observer{backend: b}
}

func (o *Observer) Sent(tick int, s sid.Snapshot) {
	err := o.backend.Update(Frame{Tick: tick, Snapshot: s, Acked: o.acked})
	if err != nil && !o.failed {
		o.failed = true
		slog.Warn("Backend update failed", "tick", tick, "error", err)
	}
}

func (o *Observer) Acked(batch int, _ byte) {
	o.acked = batch
}
