package vmfunc

// Instruction is one packed instruction (§4.6's iABC-ish encoding,
// kept unpacked here for clarity rather than bit-packed into a single
// word; the register file is small enough that packing buys nothing in
// a Go implementation).
type Instruction struct {
	Op      Opcode
	A, B, C int // register or frame-slot operands, meaning depends on Op
	Imm     float64
}

// FunctionCode is a compiled function body (§4.6 "Output"): a flat
// instruction stream plus the spill-frame size the compiler decided it
// needed. Constants travel in each instruction's Imm field; Compile
// leaves Consts empty.
type FunctionCode struct {
	Instructions []Instruction
	Consts       []float64
	NumParams    int
	NumRegs      int
	FrameSize    int // parameter slots plus spill slots
}

// NumRegisters is the fixed register-file size of §4.6: r0-r4 hold
// values by expression depth, and deeper values spill to frame slots;
// r5-r7 are scratch registers for moving values in and out of those
// slots.
const NumRegisters = 8

// SpillBase is the first register the compiler treats as a spill
// register rather than a primary allocation target.
const SpillBase = 5
