package psid

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/valerio/go-sidstream/sidstream/bit"
	"golang.org/x/text/encoding/charmap"
)

const (
	// MagicPSID marks a tune that only needs its init and play routines called.
	MagicPSID = "PSID"
	// MagicRSID marks a tune written for a real C64 environment.
	MagicRSID = "RSID"

	// MinHeaderSize is the size of a version 1 header.
	MinHeaderSize = 0x76
	// V2HeaderSize is the size of a version 2+ header.
	V2HeaderSize = 0x7C

	stringLength = 32
)

const (
	magicOffset       = 0x00
	versionOffset     = 0x05
	dataOffsetOffset  = 0x06
	loadAddressOffset = 0x08
	initAddressOffset = 0x0A
	playAddressOffset = 0x0C
	songsOffset       = 0x0E
	startSongOffset   = 0x10
	speedOffset       = 0x12
	nameOffset        = 0x16
	authorOffset      = 0x36
	releasedOffset    = 0x56
	flagsOffset       = 0x76
	startPageOffset   = 0x78
	pageLengthOffset  = 0x79
	secondSIDOffset   = 0x7A
	thirdSIDOffset    = 0x7B
)

// Tune is a parsed PSID/RSID file. Load and init address corrections have
// already been applied, the raw header values are kept alongside.
type Tune struct {
	Magic       string
	Version     uint8
	DataOffset  uint16
	LoadAddress uint16
	InitAddress uint16
	PlayAddress uint16
	Songs       uint16
	StartSong   uint16
	Speed       uint32
	Name        string
	Author      string
	Released    string

	// version 2+ fields, zero when the header does not carry them
	Flags      uint16
	StartPage  uint8
	PageLength uint8
	SecondSID  uint8
	ThirdSID   uint8

	RawLoadAddress uint16
	RawInitAddress uint16

	Payload    []byte
	Advisories []Advisory
}

// IsRSID reports whether the tune carries the non-preferred RSID tag.
func (t *Tune) IsRSID() bool {
	return t.Magic == MagicRSID
}

// UsesTimer reports whether the given 1-based song asks for CIA timer speed.
func (t *Tune) UsesTimer(song int) bool {
	idx := song - 1
	if idx < 0 {
		return false
	}
	if idx > 31 {
		idx = 31
	}
	return (t.Speed>>uint(idx))&1 != 0
}

// ResolveSong maps a requested 1-based song number to the one that will be
// played: out of range requests fall back to the default song.
func (t *Tune) ResolveSong(requested int) int {
	if requested >= 1 && requested <= int(t.Songs) {
		return requested
	}
	if t.StartSong == 0 {
		return 1
	}
	return int(t.StartSong)
}

// HasAdvisory reports whether the parser flagged the given advisory.
func (t *Tune) HasAdvisory(a Advisory) bool {
	for _, got := range t.Advisories {
		if got == a {
			return true
		}
	}
	return false
}

// Load reads and parses the tune file at path.
func Load(path string) (*Tune, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a PSID/RSID image.
func Parse(data []byte) (*Tune, error) {
	if len(data) < MinHeaderSize {
		return nil, formatErrorf("header too short: %d bytes, need at least %d", len(data), MinHeaderSize)
	}

	t := &Tune{
		Magic:       string(data[magicOffset : magicOffset+4]),
		Version:     data[versionOffset],
		DataOffset:  binary.BigEndian.Uint16(data[dataOffsetOffset:]),
		LoadAddress: binary.BigEndian.Uint16(data[loadAddressOffset:]),
		InitAddress: binary.BigEndian.Uint16(data[initAddressOffset:]),
		PlayAddress: binary.BigEndian.Uint16(data[playAddressOffset:]),
		Songs:       binary.BigEndian.Uint16(data[songsOffset:]),
		StartSong:   binary.BigEndian.Uint16(data[startSongOffset:]),
		Speed:       binary.BigEndian.Uint32(data[speedOffset:]),
		Name:        decodeString(data[nameOffset : nameOffset+stringLength]),
		Author:      decodeString(data[authorOffset : authorOffset+stringLength]),
		Released:    decodeString(data[releasedOffset : releasedOffset+stringLength]),
	}
	t.RawLoadAddress = t.LoadAddress
	t.RawInitAddress = t.InitAddress

	switch t.Magic {
	case MagicPSID:
	case MagicRSID:
		t.Advisories = append(t.Advisories, AdvisoryRSID)
	default:
		return nil, formatErrorf("unknown format tag %q", t.Magic)
	}

	if t.DataOffset >= V2HeaderSize && len(data) >= V2HeaderSize {
		t.Flags = binary.BigEndian.Uint16(data[flagsOffset:])
		t.StartPage = data[startPageOffset]
		t.PageLength = data[pageLengthOffset]
		t.SecondSID = data[secondSIDOffset]
		t.ThirdSID = data[thirdSIDOffset]
	}

	if t.Speed != 0 {
		t.Advisories = append(t.Advisories, AdvisoryTimerSpeed)
	}
	if t.SecondSID != 0 || t.ThirdSID != 0 {
		t.Advisories = append(t.Advisories, AdvisoryMultiSID)
	}

	start := int(t.DataOffset)
	if start > len(data) {
		return nil, formatErrorf("data offset $%04X beyond file length %d", t.DataOffset, len(data))
	}

	if t.LoadAddress == 0 {
		if start+2 > len(data) {
			return nil, formatErrorf("missing embedded load address at $%04X", t.DataOffset)
		}
		t.LoadAddress = bit.Combine(data[start+1], data[start])
		start += 2
		t.Advisories = append(t.Advisories, AdvisoryZeroLoad)
	}

	if t.InitAddress == 0 {
		t.InitAddress = t.LoadAddress
		t.Advisories = append(t.Advisories, AdvisoryZeroInit)
	}

	if t.PlayAddress == 0 {
		t.Advisories = append(t.Advisories, AdvisoryZeroPlay)
	}

	payload := data[start:]
	if len(payload) == 0 {
		return nil, formatErrorf("empty payload")
	}
	if int(t.LoadAddress)+len(payload) > 0x10000 {
		return nil, formatErrorf("payload of %d bytes at $%04X continues past end of C64 memory", len(payload), t.LoadAddress)
	}

	t.Payload = make([]byte, len(payload))
	copy(t.Payload, payload)

	return t, nil
}

// decodeString converts a NUL padded Latin-1 field into a trimmed string.
func decodeString(field []byte) string {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		field = field[:i]
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(field)
	if err != nil {
		return string(bytes.TrimRight(field, " "))
	}
	return string(bytes.TrimRight(decoded, " "))
}
