// Package stream delivers register snapshots to a remote consumer.
//
// Snapshots are sent in batches as raw register bytes, 25 per snapshot, with
// no framing. After every batch but the last the transport blocks until the
// peer sends back a single byte, which is the only flow control of the
// protocol. The last batch is followed by closing the connection.
package stream

import (
	"context"
	"io"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/valerio/go-sidstream/sidstream/sid"
)

// DefaultPort is the TCP port consumers listen on.
const DefaultPort = 1337

// Observer is notified of transmission progress.
// Callbacks run on the transport goroutine and must not block for long.
type Observer interface {
	// Sent is called for each snapshot once its batch has been written.
	Sent(tick int, s sid.Snapshot)
	// Acked is called when the peer acknowledged batch number batch (1-based).
	Acked(batch int, ack byte)
}

// Stats are the transport counters.
type Stats struct {
	Batches   int64
	Snapshots int64
	Bytes     int64
}

// Transport drains a channel of Items into a single outbound connection.
type Transport struct {
	address    string
	dialer     Dialer
	observer   Observer
	ackTimeout time.Duration
	logger     *slog.Logger

	pending []Item

	batches   atomic.Int64
	snapshots atomic.Int64
	bytes     atomic.Int64
}

// Option configures a Transport.
type Option func(*Transport)

// WithDialer replaces the TCP dialer.
func WithDialer(d Dialer) Option {
	return func(t *Transport) {
		t.dialer = d
	}
}

// WithObserver registers an observer for sent snapshots and acknowledgements.
func WithObserver(o Observer) Option {
	return func(t *Transport) {
		t.observer = o
	}
}

// WithAckTimeout bounds the wait for the flow control byte. Zero waits forever.
func WithAckTimeout(d time.Duration) Option {
	return func(t *Transport) {
		t.ackTimeout = d
	}
}

// WithLogger sets the logger, slog.Default() otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transport) {
		t.logger = l
	}
}

// New creates a transport sending to address (host:port).
func New(address string, opts ...Option) *Transport {
	t := &Transport{
		address:  address,
		dialer:   NetDialer(),
		observer: nopObserver{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Address returns the configured endpoint.
func (t *Transport) Address() string {
	return t.address
}

// Stats returns a snapshot of the counters, safe to call from any goroutine.
func (t *Transport) Stats() Stats {
	return Stats{
		Batches:   t.batches.Load(),
		Snapshots: t.snapshots.Load(),
		Bytes:     t.bytes.Load(),
	}
}

// Run connects, then consumes items until a stream end, a closed channel, a
// connection failure or ctx cancellation. The connection is closed on return.
// A residual batch is flushed before a normal return.
func (t *Transport) Run(ctx context.Context, items <-chan Item) error {
	t.logger.Info("Connecting to server", "address", t.address)
	conn, err := t.dialer.DialContext(ctx, "tcp", t.address)
	if err != nil {
		return &ConnectionError{Op: "dial", Address: t.address, Err: err}
	}
	defer conn.Close()

	// unblocks a pending read or write
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	t.pending = t.pending[:0]
	for {
		var item Item
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item, ok = <-items:
		}

		if !ok || item.Kind == KindStreamEnd {
			if err := t.flush(conn, true); err != nil {
				return t.failure(ctx, err)
			}
			t.logger.Info("Stream finished", "batches", t.batches.Load(), "snapshots", t.snapshots.Load())
			return nil
		}

		switch item.Kind {
		case KindSnapshot:
			t.pending = append(t.pending, item)
		case KindBatchBoundary:
			if err := t.flush(conn, false); err != nil {
				return t.failure(ctx, err)
			}
		}
	}
}

// failure prefers the cancellation cause over the error of the closed connection.
func (t *Transport) failure(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// flush writes the pending batch in one write and waits for its flow control
// byte. The final batch is not acknowledged: the connection is closed right
// after it, and a consumer reading whole windows sees the short batch end there.
func (t *Transport) flush(conn net.Conn, final bool) error {
	if len(t.pending) == 0 {
		return nil
	}

	buf := make([]byte, 0, len(t.pending)*sid.Size)
	for _, item := range t.pending {
		buf = append(buf, item.Snapshot.Bytes()...)
	}

	if _, err := conn.Write(buf); err != nil {
		return &ConnectionError{Op: "write", Address: t.address, Err: err}
	}
	for _, item := range t.pending {
		t.observer.Sent(item.Tick, item.Snapshot)
	}

	batch := t.batches.Add(1)
	t.snapshots.Add(int64(len(t.pending)))
	t.bytes.Add(int64(len(buf)))
	t.logger.Debug("Batch sent", "batch", batch, "snapshots", len(t.pending), "bytes", len(buf), "final", final)
	t.pending = t.pending[:0]

	if final {
		return nil
	}

	ack, err := t.readAck(conn)
	if err != nil {
		return &ConnectionError{Op: "read", Address: t.address, Err: err}
	}

	t.logger.Debug("Received flow control byte", "batch", batch, "value", ack)
	t.observer.Acked(int(batch), ack)
	return nil
}

func (t *Transport) readAck(conn net.Conn) (byte, error) {
	if t.ackTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(t.ackTimeout)); err != nil {
			return 0, err
		}
	}

	var ack [1]byte
	if _, err := io.ReadFull(conn, ack[:]); err != nil {
		return 0, err
	}
	return ack[0], nil
}

type nopObserver struct{}

func (nopObserver) Sent(int, sid.Snapshot) {}
func (nopObserver) Acked(int, byte)        {}
