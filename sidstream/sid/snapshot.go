// Package sid captures and decodes the register file of a MOS 6581/8580.
package sid

import (
	"encoding/hex"
	"strings"

	"github.com/valerio/go-sidstream/sidstream/addr"
	"github.com/valerio/go-sidstream/sidstream/bit"
)

// Size is the number of bytes in a snapshot.
const Size = addr.SIDRegisterCount

// HexSize is the length of the hex encoding of a snapshot.
const HexSize = Size * 2

// Reader is the memory a snapshot is captured from.
type Reader interface {
	LoadBytes(address uint16, b []byte)
}

// Snapshot is the content of $D400-$D418 at one point in time.
type Snapshot [Size]byte

// Capture copies the SID registers out of mem.
func Capture(mem Reader) Snapshot {
	var s Snapshot
	mem.LoadBytes(addr.SIDBase, s[:])
	return s
}

// String returns the upper-case hex encoding, two characters per register.
func (s Snapshot) String() string {
	return strings.ToUpper(hex.EncodeToString(s[:]))
}

// Bytes returns the raw register values.
func (s Snapshot) Bytes() []byte {
	return s[:]
}

// Voice returns the decoded registers of voice i (0, 1 or 2).
func (s Snapshot) Voice(i int) Voice {
	base := i * addr.VoiceStride
	r := s[base : base+addr.VoiceStride]
	return Voice{
		Frequency:      bit.Combine(r[1], r[0]),
		PulseWidth:     bit.Combine(r[3]&0x0F, r[2]),
		Control:        r[4],
		AttackDecay:    r[5],
		SustainRelease: r[6],
	}
}

// Filter returns the decoded filter and volume registers.
func (s Snapshot) Filter() Filter {
	lo := s[addr.FilterCutoffLo-addr.SIDBase]
	hi := s[addr.FilterCutoffHi-addr.SIDBase]
	return Filter{
		Cutoff:           uint16(hi)<<3 | uint16(lo&0x07),
		ResonanceRouting: s[addr.FilterResonance-addr.SIDBase],
		ModeVolume:       s[addr.FilterModeVol-addr.SIDBase],
	}
}

// Columns splits the hex encoding into voice 1, voice 2, voice 3 and filter columns.
func (s Snapshot) Columns() [4]string {
	h := s.String()
	stride := addr.VoiceStride * 2
	return [4]string{
		h[0:stride],
		h[stride : 2*stride],
		h[2*stride : 3*stride],
		h[3*stride:],
	}
}
