// Package cpu runs tune code on the go6502 NMOS core, exposing the register
// access and single stepping the driver needs.
package cpu

import (
	"fmt"

	go6502 "github.com/beevik/go6502/cpu"
	"github.com/beevik/go6502/disasm"
)

// Processor is an NMOS 6502 executing against a single memory image.
type Processor struct {
	core *go6502.CPU
	mem  go6502.Memory
}

// New returns a processor in its power-on state, reading and writing mem.
func New(mem go6502.Memory) *Processor {
	return &Processor{
		core: go6502.NewCPU(go6502.NMOS, mem),
		mem:  mem,
	}
}

// Step executes a single instruction.
// Returns the amount of cycles that execution has taken.
func (p *Processor) Step() int {
	before := p.core.Cycles
	p.core.Step()
	return int(p.core.Cycles - before)
}

// PC returns the program counter.
func (p *Processor) PC() uint16 { return p.core.Reg.PC }

// SetPC moves the program counter.
func (p *Processor) SetPC(pc uint16) { p.core.Reg.PC = pc }

// SP returns the stack pointer.
func (p *Processor) SP() uint8 { return p.core.Reg.SP }

// SetSP moves the stack pointer.
func (p *Processor) SetSP(sp uint8) { p.core.Reg.SP = sp }

func (p *Processor) SetA(value uint8) { p.core.Reg.A = value }
func (p *Processor) SetX(value uint8) { p.core.Reg.X = value }
func (p *Processor) SetY(value uint8) { p.core.Reg.Y = value }

// Peek reads memory without side effects.
func (p *Processor) Peek(address uint16) byte { return p.mem.LoadByte(address) }

// Registers formats A, X, Y and SP for diagnostics.
func (p *Processor) Registers() string {
	r := p.core.Reg
	return fmt.Sprintf("A=$%02X X=$%02X Y=$%02X SP=$%02X", r.A, r.X, r.Y, r.SP)
}

// Disassemble decodes the instruction at pc as "$nnnn  MNEMONIC operand".
func (p *Processor) Disassemble(pc uint16) string {
	line, _ := disasm.Disassemble(p.mem, pc)
	return fmt.Sprintf("$%04X  %s", pc, line)
}
