package addr

// CPU and memory map
const (
	// ProcessorPort is the 6510 on-chip I/O port, its low 3 bits select the memory configuration.
	ProcessorPort uint16 = 0x0001
	// Stack page base address.
	StackBase uint16 = 0x0100

	// DefaultProcessorPort is the power-on value: BASIC, KERNAL and I/O visible.
	DefaultProcessorPort uint8 = 0x37
	// BankMask extracts the memory configuration bits from the processor port.
	BankMask uint8 = 0x07
	// BankAllRAMWithIO is the configuration where the KERNAL ROM, and with it the
	// KERNAL interrupt vectors, is switched out.
	BankAllRAMWithIO uint8 = 0x05
)

// Interrupt vectors
const (
	// Software IRQ vector used by the KERNAL interrupt handler (CINV).
	IRQVector uint16 = 0x0314
	// Hardware IRQ/BRK vector.
	HardwareIRQVector uint16 = 0xFFFE
)

// KERNAL interrupt handler exit points
const (
	// KernalIRQExit is the full KERNAL IRQ handler tail (keyboard scan + return).
	KernalIRQExit uint16 = 0xEA31
	// KernalIRQReturn restores registers and returns from the interrupt.
	KernalIRQReturn uint16 = 0xEA81
)

// SID registers
// Reference: https://www.c64-wiki.com/wiki/SID
const (
	SIDBase uint16 = 0xD400
	SIDEnd  uint16 = 0xD418

	// Registers per voice block.
	VoiceStride = 7
	// Number of registers captured per snapshot, $D400 through $D418.
	// Untyped so byte counts can be computed in any integer type.
	SIDRegisterCount = 25

	FilterCutoffLo  uint16 = 0xD415
	FilterCutoffHi  uint16 = 0xD416
	FilterResonance uint16 = 0xD417
	FilterModeVol   uint16 = 0xD418
)
