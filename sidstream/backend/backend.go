package backend

import (
	"github.com/valerio/go-sidstream/sidstream/psid"
	"github.com/valerio/go-sidstream/sidstream/sid"
)

// Backend presents playback to the user while snapshots are streamed.
// Backends are responsible for:
// - Rendering each transmitted snapshot to their specific output (table, terminal UI)
// - Reporting user requests to stop through the callbacks
type Backend interface {
	// Init configures the backend with the provided configuration.
	// This is a required step before calling Update.
	Init(config Config) error

	// Update renders one transmitted snapshot.
	Update(frame Frame) error

	// Cleanup resources when shutting down
	Cleanup() error
}

// Config holds configuration for backends
type Config struct {
	Tune      *psid.Tune
	Song      int
	Play      uint16
	Address   string    // Consumer endpoint
	Window    int       // Snapshots per batch
	Callbacks Callbacks // Callbacks for backend communication
}

// Callbacks allows backends to communicate with the session
type Callbacks struct {
	// OnQuit requests shutdown (e.g. q pressed in the monitor)
	OnQuit func()
}

// Frame is one snapshot as it leaves the transport.
type Frame struct {
	Tick     int
	Snapshot sid.Snapshot
	// Acked is the number of batches acknowledged by the peer so far.
	Acked int
}
