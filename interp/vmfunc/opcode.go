// Package vmfunc implements the register byte-code compiler and VM of
// §4.6: a `function { ... }` literal parses to an Expr tree (interp
// package) which this package compiles to a flat instruction array and
// then executes against a small per-call register file. The package is
// deliberately float64-only and knows nothing of interp.Value, so that
// interp and vmfunc never import one another (the Expr tree is
// translated to this package's own Node shape at the call site).
package vmfunc

// Opcode enumerates the register VM's instruction set (§4.6), named
// after the trap/opcode spellings in the original function byte-code
// compiler (fncode.cpp): MOVE/LOAD/STORE/arithmetic/compare/branch,
// SYS1/SYS2 intrinsic traps, and a tiny stack discipline for calls.
type Opcode int

const (
	OpNop Opcode = iota
	OpMove
	OpLoad  // rA = Imm
	OpStore // frame[B] = rA  (spill to the call-stack frame)
	OpLoadI // rA = frame[B]  (reload a spilled value)
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpNeg
	OpAbs
	OpAddK // rA = rB + Imm (peephole-folded immediate form)
	OpSubK
	OpMulK
	OpCmp  // rd = sign(rs1 - rs2), used ahead of the S* family
	OpCmpK // rA = sign(rB - Imm)
	OpSeq
	OpSne
	OpSlt
	OpSle
	OpSgt
	OpSge
	OpJmp
	OpBeq
	OpBne
	OpBlt
	OpBle
	OpBgt
	OpBge
	OpSys1 // rA = trap1(C, rB) -- unary math intrinsic, C = Trap1 id
	OpSys2 // rA = trap2(Imm, rB, rC) -- binary math intrinsic, Imm = Trap2 id
	OpXeq  // reciprocal trap guarding a divide: if rs == 0, raise
	OpXle  // domain-guard trap: if rs <= 0, raise (log/ln of a non-positive value)
	OpXdz  // explicit divide-by-zero raise point (used by peephole when
	// a division's divisor folds to the constant zero)
	OpGrow // grow the spill frame to at least A slots
	OpPush
	OpPop
	OpCall // call a named user function value at runtime (member/nested call)
	OpRts
)

func (o Opcode) String() string {
	names := [...]string{
		"NOP", "MOVE", "LOAD", "STORE", "LOADI", "ADD", "SUB", "MUL", "DIV",
		"NEG", "ABS", "ADDK", "SUBK", "MULK", "CMP", "CMPK", "SEQ", "SNE",
		"SLT", "SLE", "SGT", "SGE", "JMP", "BEQ", "BNE", "BLT", "BLE", "BGT",
		"BGE", "SYS1", "SYS2", "XEQ", "XLE", "XDZ", "GROW", "PUSH", "POP",
		"CALL", "RTS",
	}
	if int(o) < len(names) {
		return names[o]
	}
	return "?"
}

// Trap1 enumerates the unary math intrinsics reachable through SYS1,
// mirroring fncode.cpp's TRAP_SYS1_* family (including the hyperbolic
// trig the original source added after the initial port, SPEC_FULL
// "Function compiler + VM additions").
type Trap1 int

const (
	Trap1Sin Trap1 = iota
	Trap1Cos
	Trap1Tan
	Trap1Asin
	Trap1Acos
	Trap1Atan
	Trap1Sinh
	Trap1Cosh
	Trap1Tanh
	Trap1Asinh
	Trap1Acosh
	Trap1Atanh
	Trap1Int
	Trap1Floor
	Trap1Ceil
	Trap1Sqrt
	Trap1Exp
	Trap1Ln
	Trap1Log
	Trap1Abs
)

// Trap2 enumerates the binary math intrinsics reachable through SYS2
// (fncode.cpp's TRAP_SYS2_* family).
type Trap2 int

const (
	Trap2Atan2 Trap2 = iota
	Trap2Pow
	Trap2Mod
	Trap2Div
	Trap2Min
	Trap2Max
)
