package sid

import (
	"fmt"
	"strings"
)

// Control register bits.
const (
	ControlGate     uint8 = 0x01
	ControlSync     uint8 = 0x02
	ControlRing     uint8 = 0x04
	ControlTest     uint8 = 0x08
	ControlTriangle uint8 = 0x10
	ControlSawtooth uint8 = 0x20
	ControlPulse    uint8 = 0x40
	ControlNoise    uint8 = 0x80
)

// Filter mode bits of $D418.
const (
	ModeLowPass   uint8 = 0x10
	ModeBandPass  uint8 = 0x20
	ModeHighPass  uint8 = 0x40
	ModeVoice3Off uint8 = 0x80
)

var waveforms = []struct {
	mask uint8
	name string
}{
	{ControlTriangle, "TRI"},
	{ControlSawtooth, "SAW"},
	{ControlPulse, "PUL"},
	{ControlNoise, "NOI"},
}

// Voice holds the decoded registers of one oscillator.
type Voice struct {
	Frequency      uint16
	PulseWidth     uint16
	Control        uint8
	AttackDecay    uint8
	SustainRelease uint8
}

// Gate reports whether the envelope is in its attack/decay/sustain phase.
func (v Voice) Gate() bool {
	return v.Control&ControlGate != 0
}

// Waveform names the selected waveforms, "---" when none.
func (v Voice) Waveform() string {
	var names []string
	for _, w := range waveforms {
		if v.Control&w.mask != 0 {
			names = append(names, w.name)
		}
	}
	if len(names) == 0 {
		return "---"
	}
	return strings.Join(names, "+")
}

// Attack, Decay, Sustain and Release return the envelope nibbles.
func (v Voice) Attack() uint8  { return v.AttackDecay >> 4 }
func (v Voice) Decay() uint8   { return v.AttackDecay & 0x0F }
func (v Voice) Sustain() uint8 { return v.SustainRelease >> 4 }
func (v Voice) Release() uint8 { return v.SustainRelease & 0x0F }

func (v Voice) String() string {
	gate := "-"
	if v.Gate() {
		gate = "G"
	}
	return fmt.Sprintf("F:%04X PW:%03X %-11s %s ADSR:%X%X%X%X",
		v.Frequency, v.PulseWidth, v.Waveform(), gate,
		v.Attack(), v.Decay(), v.Sustain(), v.Release())
}

// Filter holds the decoded filter and master volume registers.
type Filter struct {
	// Cutoff is the 11 bit cutoff frequency.
	Cutoff           uint16
	ResonanceRouting uint8
	ModeVolume       uint8
}

func (f Filter) Resonance() uint8 { return f.ResonanceRouting >> 4 }
func (f Filter) Volume() uint8    { return f.ModeVolume & 0x0F }

// Routes reports whether voice i (0, 1 or 2) is routed through the filter.
func (f Filter) Routes(i int) bool {
	return f.ResonanceRouting&(1<<i) != 0
}

// Mode names the enabled filter types, "---" when none.
func (f Filter) Mode() string {
	var names []string
	if f.ModeVolume&ModeLowPass != 0 {
		names = append(names, "LP")
	}
	if f.ModeVolume&ModeBandPass != 0 {
		names = append(names, "BP")
	}
	if f.ModeVolume&ModeHighPass != 0 {
		names = append(names, "HP")
	}
	if len(names) == 0 {
		return "---"
	}
	return strings.Join(names, "+")
}

func (f Filter) String() string {
	return fmt.Sprintf("FC:%03X RES:%X %-8s VOL:%X", f.Cutoff, f.Resonance(), f.Mode(), f.Volume())
}
