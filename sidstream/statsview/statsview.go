// Package statsview serves runtime statistics of the streamer over HTTP.
//
// After launch, charts of goroutines, heap and GC pauses are available at
//
//	localhost:12600/debug/statsview
//
// and the standard pprof endpoints at localhost:12600/debug/pprof/.
package statsview

import (
	"log/slog"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

// DefaultAddress is where the stats server listens unless told otherwise.
const DefaultAddress = "localhost:12600"

// Path of the chart page.
const Path = "/debug/statsview"

// URL returns the chart page for a server listening on address.
func URL(address string) string {
	if address == "" {
		address = DefaultAddress
	}
	return "http://" + address + Path
}

// Launch starts the stats server in a new goroutine. It runs for the
// lifetime of the process.
func Launch(address string) {
	if address == "" {
		address = DefaultAddress
	}

	go func() {
		viewer.SetConfiguration(viewer.WithAddr(address))
		mgr := statsview.New()
		if err := mgr.Start(); err != nil {
			slog.Warn("Stats server stopped", "address", address, "error", err)
		}
	}()

	slog.Info("Stats server available", "url", URL(address))
}
