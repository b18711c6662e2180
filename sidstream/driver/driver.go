// Package driver runs a 6502 subroutine until it has observably returned.
//
// A subroutine has no completion signal visible from outside the processor,
// so each run is a small state machine evaluated once per instruction step:
// the run completes when the initial call frame unwinds through RTS/RTI, when
// a BRK is reached, or when execution lands on one of the KERNAL interrupt
// exit routines while the KERNAL is mapped in. A hard step ceiling guarantees
// termination.
package driver

import (
	"github.com/valerio/go-sidstream/sidstream/addr"
)

// MaxSteps is the default instruction ceiling of a single run.
const MaxSteps = 1_000_000

// Opcodes inspected before every step.
const (
	opBRK uint8 = 0x00
	opRTI uint8 = 0x40
	opRTS uint8 = 0x60
)

// ResetSP is the stack pointer every run starts from.
const ResetSP uint8 = 0xFF

// Capability is the processor a Driver steps through.
type Capability interface {
	PC() uint16
	SetPC(pc uint16)
	SP() uint8
	SetSP(sp uint8)
	SetA(value uint8)
	SetX(value uint8)
	SetY(value uint8)
	// Peek reads memory as seen by the processor.
	Peek(address uint16) byte
	// Step executes one instruction and returns the cycles it took.
	Step() int
}

// Request describes one subroutine call.
type Request struct {
	Entry   uint16
	A, X, Y uint8
}

// State of a run.
type State uint8

const (
	Running State = iota
	Completed
	SafetyStopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Completed:
		return "completed"
	case SafetyStopped:
		return "safety-stopped"
	}
	return "unknown"
}

// Reason records which condition ended a run.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonReturn
	ReasonBreak
	ReasonKernalExit
	ReasonCeiling
)

func (r Reason) String() string {
	switch r {
	case ReasonReturn:
		return "return"
	case ReasonBreak:
		return "break"
	case ReasonKernalExit:
		return "kernal-exit"
	case ReasonCeiling:
		return "ceiling"
	}
	return "none"
}

// Result is the outcome of a run.
type Result struct {
	State  State
	Reason Reason
	Steps  int
	// PC after the last executed step.
	PC uint16
}

// Driver runs subroutines on a Capability.
type Driver struct {
	// MaxSteps bounds a single run. Zero means the package default.
	MaxSteps int
}

// New returns a driver with the default ceiling.
func New() *Driver {
	return &Driver{MaxSteps: MaxSteps}
}

// Run executes req on cpu until completion or until the ceiling is reached.
// Hitting the ceiling is not an error, callers inspect Result.State.
func (d *Driver) Run(cpu Capability, req Request) Result {
	ceiling := d.MaxSteps
	if ceiling <= 0 {
		ceiling = MaxSteps
	}

	cpu.SetPC(req.Entry)
	cpu.SetA(req.A)
	cpu.SetX(req.X)
	cpu.SetY(req.Y)
	cpu.SetSP(ResetSP)

	result := Result{State: Running}
	for result.State == Running {
		// the instruction that triggers completion is still executed
		pending := preStep(cpu)

		cpu.Step()
		result.Steps++

		switch {
		case pending != ReasonNone:
			result.State, result.Reason = Completed, pending
		case kernalExit(cpu):
			result.State, result.Reason = Completed, ReasonKernalExit
		case result.Steps >= ceiling:
			result.State, result.Reason = SafetyStopped, ReasonCeiling
		}
	}

	result.PC = cpu.PC()
	return result
}

func preStep(cpu Capability) Reason {
	opcode := cpu.Peek(cpu.PC())
	if (opcode == opRTI || opcode == opRTS) && cpu.SP() == ResetSP {
		return ReasonReturn
	}
	if opcode == opBRK {
		return ReasonBreak
	}
	return ReasonNone
}

func kernalExit(cpu Capability) bool {
	if cpu.Peek(addr.ProcessorPort)&addr.BankMask == addr.BankAllRAMWithIO {
		return false
	}
	pc := cpu.PC()
	return pc == addr.KernalIRQExit || pc == addr.KernalIRQReturn
}
