package stream

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-sidstream/sidstream/sid"
)

type recorder struct {
	mu    sync.Mutex
	ticks []int
	acks  []int
}

func (r *recorder) Sent(tick int, _ sid.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks = append(r.ticks, tick)
}

func (r *recorder) Acked(batch int, _ byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acks = append(r.acks, batch)
}

func snapshotFor(tick int) sid.Snapshot {
	var s sid.Snapshot
	for i := range s {
		s[i] = byte(tick + i)
	}
	return s
}

// produce emits n snapshots with a boundary every k, then a stream end.
func produce(n, k int) <-chan Item {
	items := make(chan Item, n+n/k+2)
	for tick := 0; tick < n; tick++ {
		items <- SnapshotItem(tick, snapshotFor(tick))
		if (tick+1)%k == 0 {
			items <- BatchBoundary()
		}
	}
	items <- StreamEnd()
	close(items)
	return items
}

// peer is a consumer that records every batch it reads.
type peer struct {
	listener net.Listener
	batches  [][]byte
	// early is set when data arrived before the acknowledgement was sent.
	early bool
	done  chan error
}

func listen(t *testing.T) *peer {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return &peer{listener: l, done: make(chan error, 1)}
}

func (p *peer) address() string {
	return p.listener.Addr().String()
}

// serve reads batches of the given sizes and acknowledges them, the last one
// only when ackLast is set, then waits for the close.
func (p *peer) serve(ackLast bool, sizes ...int) {
	go func() {
		conn, err := p.listener.Accept()
		if err != nil {
			p.done <- err
			return
		}
		defer conn.Close()

		for i, size := range sizes {
			buf := make([]byte, size*sid.Size)
			if _, err := io.ReadFull(conn, buf); err != nil {
				p.done <- err
				return
			}
			p.batches = append(p.batches, buf)
			if i == len(sizes)-1 && !ackLast {
				break
			}

			// nothing else may arrive until the batch is acknowledged
			conn.SetReadDeadline(time.Now().Add(30 * time.Millisecond))
			var early [1]byte
			if n, _ := conn.Read(early[:]); n > 0 {
				p.early = true
			}
			conn.SetReadDeadline(time.Time{})

			if _, err := conn.Write([]byte{0x01}); err != nil {
				p.done <- err
				return
			}
		}

		rest, err := io.ReadAll(conn)
		if err == nil && len(rest) > 0 {
			err = errors.New("unexpected trailing data")
		}
		p.done <- err
	}()
}

func (p *peer) wait(t *testing.T) {
	t.Helper()
	select {
	case err := <-p.done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("peer did not finish")
	}
}

func TestTransportBatches(t *testing.T) {
	testCases := []struct {
		desc  string
		n, k  int
		sizes []int
		acks  []int
	}{
		{desc: "exact windows", n: 6, k: 3, sizes: []int{3, 3}, acks: []int{1, 2}},
		{desc: "residual batch", n: 7, k: 3, sizes: []int{3, 3, 1}, acks: []int{1, 2}},
		{desc: "single short batch", n: 2, k: 50, sizes: []int{2}},
		{desc: "one full window", n: 50, k: 50, sizes: []int{50}, acks: []int{1}},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			p := listen(t)
			p.serve(tC.n%tC.k == 0, tC.sizes...)
			rec := &recorder{}

			tr := New(p.address(), WithObserver(rec))
			err := tr.Run(context.Background(), produce(tC.n, tC.k))
			require.NoError(t, err)
			p.wait(t)

			require.Len(t, p.batches, len(tC.sizes))
			assert.False(t, p.early, "batch sent before acknowledgement")

			tick := 0
			for _, batch := range p.batches {
				for off := 0; off < len(batch); off += sid.Size {
					want := snapshotFor(tick)
					assert.Equal(t, want[:], batch[off:off+sid.Size])
					tick++
				}
			}
			assert.Equal(t, tC.n, tick)

			stats := tr.Stats()
			assert.Equal(t, int64(len(tC.sizes)), stats.Batches)
			assert.Equal(t, int64(tC.n), stats.Snapshots)
			assert.Equal(t, int64(tC.n*sid.Size), stats.Bytes)
			assert.Len(t, rec.ticks, tC.n)
			assert.Equal(t, tC.acks, rec.acks)
		})
	}
}

func TestTransportSkipsEmptyBatches(t *testing.T) {
	p := listen(t)
	p.serve(false)

	items := make(chan Item, 4)
	items <- BatchBoundary()
	items <- BatchBoundary()
	items <- StreamEnd()
	close(items)

	require.NoError(t, New(p.address()).Run(context.Background(), items))
	p.wait(t)
	assert.Empty(t, p.batches)
}

func TestTransportClosedChannelFlushes(t *testing.T) {
	p := listen(t)
	p.serve(false, 2)

	items := make(chan Item, 2)
	items <- SnapshotItem(0, snapshotFor(0))
	items <- SnapshotItem(1, snapshotFor(1))
	close(items)

	require.NoError(t, New(p.address()).Run(context.Background(), items))
	p.wait(t)
	require.Len(t, p.batches, 1)
}

func TestTransportFinalBatchNotAcknowledged(t *testing.T) {
	testCases := []struct {
		desc  string
		items func() <-chan Item
		want  int
	}{
		{
			desc:  "residual batch before stream end",
			items: func() <-chan Item { return produce(7, 50) },
			want:  7,
		},
		{
			desc: "residual batch before channel close",
			items: func() <-chan Item {
				items := make(chan Item, 7)
				for tick := 0; tick < 7; tick++ {
					items <- SnapshotItem(tick, snapshotFor(tick))
				}
				close(items)
				return items
			},
			want: 7,
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			l, err := net.Listen("tcp", "127.0.0.1:0")
			require.NoError(t, err)
			defer l.Close()

			// reads everything it is sent and never acknowledges
			received := make(chan []byte, 1)
			go func() {
				conn, err := l.Accept()
				if err != nil {
					received <- nil
					return
				}
				defer conn.Close()
				data, _ := io.ReadAll(conn)
				received <- data
			}()

			rec := &recorder{}
			tr := New(l.Addr().String(), WithObserver(rec))
			result := make(chan error, 1)
			go func() {
				result <- tr.Run(context.Background(), tC.items())
			}()

			select {
			case err := <-result:
				require.NoError(t, err)
			case <-time.After(5 * time.Second):
				t.Fatal("transport waited for an acknowledgement of the final batch")
			}

			select {
			case data := <-received:
				assert.Len(t, data, tC.want*sid.Size)
			case <-time.After(5 * time.Second):
				t.Fatal("connection was not closed after the final batch")
			}

			assert.Equal(t, Stats{Batches: 1, Snapshots: int64(tC.want), Bytes: int64(tC.want * sid.Size)}, tr.Stats())
			assert.Len(t, rec.ticks, tC.want)
			assert.Empty(t, rec.acks)
		})
	}
}

func TestTransportDialFailure(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	address := l.Addr().String()
	l.Close()

	err = New(address).Run(context.Background(), produce(1, 1))

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "dial", connErr.Op)
	assert.Equal(t, address, connErr.Address)
}

func TestTransportPeerHangsUp(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		buf := make([]byte, sid.Size)
		io.ReadFull(conn, buf)
		conn.Close()
	}()

	err = New(l.Addr().String()).Run(context.Background(), produce(4, 1))

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "read", connErr.Op)
}

func TestTransportAckTimeout(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	release := make(chan struct{})
	defer close(release)
	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		<-release
	}()

	tr := New(l.Addr().String(), WithAckTimeout(50*time.Millisecond))
	err = tr.Run(context.Background(), produce(2, 1))

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "read", connErr.Op)
	assert.ErrorIs(t, err, os.ErrDeadlineExceeded)
}

func TestTransportCancelUnblocksRead(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	release := make(chan struct{})
	defer close(release)
	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		<-release
	}()

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		result <- New(l.Addr().String()).Run(ctx, produce(2, 1))
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-result:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("transport did not return after cancellation")
	}
}

func TestDiscardDialer(t *testing.T) {
	rec := &recorder{}
	tr := New("nowhere:1337", WithDialer(DiscardDialer{}), WithObserver(rec))

	require.NoError(t, tr.Run(context.Background(), produce(10, 4)))

	assert.Equal(t, Stats{Batches: 3, Snapshots: 10, Bytes: 250}, tr.Stats())
	assert.Equal(t, []int{1, 2}, rec.acks)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "snapshot", SnapshotItem(0, sid.Snapshot{}).Kind.String())
	assert.Equal(t, "batch-boundary", BatchBoundary().Kind.String())
	assert.Equal(t, "stream-end", StreamEnd().Kind.String())
}
