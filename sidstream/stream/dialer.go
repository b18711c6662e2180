package stream

import (
	"context"
	"io"
	"net"
	"sync"
	"time"
)

// DefaultDialTimeout bounds connection establishment of NetDialer.
const DefaultDialTimeout = 10 * time.Second

// Dialer opens the outbound connection of a Transport.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// NetDialer returns the TCP dialer used by default.
func NetDialer() Dialer {
	return &net.Dialer{Timeout: DefaultDialTimeout}
}

// DiscardDialer connects to nothing: every write is accepted and immediately
// acknowledged with a single byte.
type DiscardDialer struct{}

func (DiscardDialer) DialContext(_ context.Context, _, address string) (net.Conn, error) {
	return &discardConn{
		address: address,
		acks:    make(chan struct{}, 1),
		closed:  make(chan struct{}),
	}, nil
}

type discardConn struct {
	address   string
	acks      chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

func (c *discardConn) Write(p []byte) (int, error) {
	select {
	case <-c.closed:
		return 0, net.ErrClosed
	default:
	}
	select {
	case c.acks <- struct{}{}:
	default:
	}
	return len(p), nil
}

func (c *discardConn) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	select {
	case <-c.acks:
		p[0] = 1
		return 1, nil
	case <-c.closed:
		return 0, io.EOF
	}
}

func (c *discardConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *discardConn) LocalAddr() net.Addr                { return discardAddr("local") }
func (c *discardConn) RemoteAddr() net.Addr               { return discardAddr(c.address) }
func (c *discardConn) SetDeadline(_ time.Time) error      { return nil }
func (c *discardConn) SetReadDeadline(_ time.Time) error  { return nil }
func (c *discardConn) SetWriteDeadline(_ time.Time) error { return nil }

type discardAddr string

func (discardAddr) Network() string  { return "discard" }
func (a discardAddr) String() string { return string(a) }
