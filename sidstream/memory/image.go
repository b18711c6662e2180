package memory

import (
	"fmt"

	"github.com/beevik/go6502/cpu"

	"github.com/valerio/go-sidstream/sidstream/addr"
	"github.com/valerio/go-sidstream/sidstream/bit"
)

// Size of the addressable space.
const Size = 0x10000

// Image is a flat 64KiB C64 address space with no ROMs or I/O chips mapped in.
// An Image belongs to a single playback session and must not be shared.
// It is the memory the processor core executes against.
type Image struct {
	memory [Size]byte
}

var _ cpu.Memory = (*Image)(nil)

// New creates a zero-filled image with the processor port set to its power-on value.
func New() *Image {
	m := &Image{}
	m.memory[addr.ProcessorPort] = addr.DefaultProcessorPort
	return m
}

// Load copies payload into memory starting at address.
func (m *Image) Load(address uint16, payload []byte) error {
	if int(address)+len(payload) > Size {
		return fmt.Errorf("payload of %d bytes at $%04X runs past end of memory", len(payload), address)
	}
	copy(m.memory[address:], payload)
	return nil
}

// LoadByte returns the byte at address.
func (m *Image) LoadByte(address uint16) byte {
	return m.memory[address]
}

// LoadBytes fills b starting at address, wrapping at the end of memory.
func (m *Image) LoadBytes(address uint16, b []byte) {
	n := copy(b, m.memory[address:])
	if n < len(b) {
		copy(b[n:], m.memory[:])
	}
}

// LoadAddress reads a little-endian 16 bit value.
func (m *Image) LoadAddress(address uint16) uint16 {
	return bit.Combine(m.memory[address+1], m.memory[address])
}

// StoreByte stores value at address.
func (m *Image) StoreByte(address uint16, value byte) {
	m.memory[address] = value
}

// StoreBytes copies b into memory starting at address, wrapping at the end of memory.
func (m *Image) StoreBytes(address uint16, b []byte) {
	n := copy(m.memory[address:], b)
	if n < len(b) {
		copy(m.memory[:], b[n:])
	}
}

// Bank returns the memory configuration bits of the processor port.
func (m *Image) Bank() uint8 {
	return m.memory[addr.ProcessorPort] & addr.BankMask
}

// KernalVisible reports whether the KERNAL ROM, and its vectors, would be mapped in.
func (m *Image) KernalVisible() bool {
	return m.Bank() != addr.BankAllRAMWithIO
}
