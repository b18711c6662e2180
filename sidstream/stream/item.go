package stream

import "github.com/valerio/go-sidstream/sidstream/sid"

// Kind tags the content of an Item.
type Kind uint8

const (
	// KindSnapshot carries one register snapshot.
	KindSnapshot Kind = iota
	// KindBatchBoundary closes the current batch: everything queued since the
	// previous boundary is transmitted and acknowledged before continuing.
	KindBatchBoundary
	// KindStreamEnd signals that the producer is done.
	KindStreamEnd
)

func (k Kind) String() string {
	switch k {
	case KindSnapshot:
		return "snapshot"
	case KindBatchBoundary:
		return "batch-boundary"
	case KindStreamEnd:
		return "stream-end"
	}
	return "unknown"
}

// Item is a single element of the hand-off channel between producer and transport.
type Item struct {
	Kind Kind
	// Tick is the zero-based frame index of a snapshot.
	Tick     int
	Snapshot sid.Snapshot
}

func SnapshotItem(tick int, s sid.Snapshot) Item {
	return Item{Kind: KindSnapshot, Tick: tick, Snapshot: s}
}

func BatchBoundary() Item {
	return Item{Kind: KindBatchBoundary}
}

func StreamEnd() Item {
	return Item{Kind: KindStreamEnd}
}
