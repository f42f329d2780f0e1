package vmfunc

import (
	"fmt"
	"math"
)

// unaryTraps and binaryTraps name the intrinsic call targets an NCall
// node may reference; these mirror the TRAP_SYS1_*/TRAP_SYS2_* table of
// fncode.cpp, including the hyperbolic trig additions.
var unaryTraps = map[string]Trap1{
	"sin": Trap1Sin, "cos": Trap1Cos, "tan": Trap1Tan,
	"asin": Trap1Asin, "acos": Trap1Acos, "atan": Trap1Atan,
	"sinh": Trap1Sinh, "cosh": Trap1Cosh, "tanh": Trap1Tanh,
	"asinh": Trap1Asinh, "acosh": Trap1Acosh, "atanh": Trap1Atanh,
	"int": Trap1Int, "floor": Trap1Floor, "ceil": Trap1Ceil,
	"sqrt": Trap1Sqrt, "exp": Trap1Exp, "ln": Trap1Ln, "log": Trap1Log,
	"abs": Trap1Abs,
}

var binaryTraps = map[string]Trap2{
	"atan2": Trap2Atan2, "pow": Trap2Pow, "mod": Trap2Mod, "div": Trap2Div,
	"min": Trap2Min, "max": Trap2Max,
}

// compiler holds the codegen state for a single FunctionCode (§4.6).
type compiler struct {
	code     *FunctionCode
	maxSpill int
}

// Compile translates a parsed function body into byte code (§4.6
// "Output"). numParams fixes the register/frame slots reserved for the
// call's arguments.
func Compile(numParams int, root Node) (*FunctionCode, error) {
	c := &compiler{code: &FunctionCode{NumParams: numParams, NumRegs: NumRegisters}}
	root = fold(root)
	dst, err := c.gen(root, 0)
	if err != nil {
		return nil, err
	}
	c.emitReg(OpRts, c.toReg(dst, scratch0), 0, 0)
	c.code.FrameSize = numParams + c.maxSpill
	return c.code, nil
}

// emitReg appends a register-form instruction (A, B, C all name
// registers or are unused).
func (c *compiler) emitReg(op Opcode, a, b, cc int) int {
	c.code.Instructions = append(c.code.Instructions, Instruction{Op: op, A: a, B: b, C: cc})
	return len(c.code.Instructions) - 1
}

// emitImm appends an immediate-form instruction (Imm carries a
// constant operand rather than a register index).
func (c *compiler) emitImm(op Opcode, a, b int, imm float64) int {
	c.code.Instructions = append(c.code.Instructions, Instruction{Op: op, A: a, B: b, Imm: imm})
	return len(c.code.Instructions) - 1
}

// emitSys2 appends an OpSys2 instruction: A is the destination
// register, B and C the two source registers, and the trap id rides
// in Imm since all three int operand slots are already spoken for.
func (c *compiler) emitSys2(dst, src1, src2 int, trap Trap2) int {
	c.code.Instructions = append(c.code.Instructions, Instruction{Op: OpSys2, A: dst, B: src1, C: src2, Imm: float64(trap)})
	return len(c.code.Instructions) - 1
}

// loc names where an intermediate result lives: either one of the
// NumRegisters hardware registers, or a spilled slot in the call frame
// once expression depth exceeds SpillBase (§4.6 "register allocation
// discipline").
type loc struct {
	reg bool
	idx int
}

const (
	scratch0 = SpillBase
	scratch1 = SpillBase + 1
	scratch2 = SpillBase + 2
)

func (c *compiler) place(depth int) loc {
	if depth < SpillBase {
		return loc{reg: true, idx: depth}
	}
	slot := depth - SpillBase
	if slot+1 > c.maxSpill {
		c.maxSpill = slot + 1
	}
	return loc{reg: false, idx: slot}
}

// toReg materializes l into a hardware register, using scratch as the
// landing register if l is currently spilled.
func (c *compiler) toReg(l loc, scratch int) int {
	if l.reg {
		return l.idx
	}
	c.emitReg(OpLoadI, scratch, c.code.NumParams+l.idx, 0)
	return scratch
}

// store writes srcReg into dst, spilling to the frame if dst is not a
// hardware register.
func (c *compiler) store(dst loc, srcReg int) {
	if dst.reg {
		if dst.idx != srcReg {
			c.emitReg(OpMove, dst.idx, srcReg, 0)
		}
		return
	}
	c.emitReg(OpStore, srcReg, c.code.NumParams+dst.idx, 0)
}

// rawDst returns a hardware register to compute into before store()
// relocates the value to dst if dst is itself spilled.
func (c *compiler) rawDst(dst loc) int {
	if dst.reg {
		return dst.idx
	}
	return scratch2
}

func (c *compiler) gen(n Node, depth int) (loc, error) {
	switch n.Op {
	case NConst:
		dst := c.place(depth)
		out := c.rawDst(dst)
		c.emitImm(OpLoad, out, 0, n.Const)
		c.store(dst, out)
		return dst, nil
	case NParam:
		dst := c.place(depth)
		out := c.rawDst(dst)
		c.emitReg(OpLoadI, out, n.Param, 0)
		c.store(dst, out)
		return dst, nil
	case NNeg, NNot:
		return c.genUnaryArith(n, depth)
	case NAdd, NSub, NMul, NDiv, NPow:
		return c.genBinaryArith(n, depth)
	case NCmpEQ, NCmpNE, NCmpLT, NCmpLE, NCmpGT, NCmpGE:
		return c.genCompare(n, depth)
	case NAnd, NOr:
		return c.genLogical(n, depth)
	case NCall:
		return c.genCall(n, depth)
	case NCond:
		return c.genCond(n, depth)
	default:
		return loc{}, fmt.Errorf("vmfunc: unhandled node op %d", n.Op)
	}
}

var immOpcode = map[NodeOp]Opcode{NAdd: OpAddK, NSub: OpSubK, NMul: OpMulK}

// genBinaryArith implements the constant-immediate peephole of §4.6:
// when the right child folded to a constant, emit the *K immediate
// form directly instead of materializing the constant in a register
// first (asymmetric: only the right operand gets this treatment,
// matching fncode.cpp's own constant-folding pass).
func (c *compiler) genBinaryArith(n Node, depth int) (loc, error) {
	left, right := n.Children[0], n.Children[1]
	if right.Op == NConst && n.Op != NPow && n.Op != NDiv {
		lloc, err := c.gen(left, depth)
		if err != nil {
			return loc{}, err
		}
		lr := c.toReg(lloc, scratch0)
		dst := c.place(depth)
		out := c.rawDst(dst)
		c.emitImm(immOpcode[n.Op], out, lr, right.Const)
		c.store(dst, out)
		return dst, nil
	}
	if right.Op == NConst && n.Op == NDiv {
		lloc, err := c.gen(left, depth)
		if err != nil {
			return loc{}, err
		}
		lr := c.toReg(lloc, scratch0)
		dst := c.place(depth)
		out := c.rawDst(dst)
		if right.Const == 0 {
			c.emitReg(OpXdz, lr, 0, 0)
		}
		c.emitImm(OpLoad, scratch1, 0, right.Const)
		c.emitReg(OpDiv, out, lr, scratch1)
		c.store(dst, out)
		return dst, nil
	}
	lloc, err := c.gen(left, depth)
	if err != nil {
		return loc{}, err
	}
	rloc, err := c.gen(right, depth+1)
	if err != nil {
		return loc{}, err
	}
	lr := c.toReg(lloc, scratch0)
	rr := c.toReg(rloc, scratch1)
	dst := c.place(depth)
	out := c.rawDst(dst)
	switch n.Op {
	case NAdd:
		c.emitReg(OpAdd, out, lr, rr)
	case NSub:
		c.emitReg(OpSub, out, lr, rr)
	case NMul:
		c.emitReg(OpMul, out, lr, rr)
	case NDiv:
		c.emitReg(OpXeq, rr, 0, 0)
		c.emitReg(OpDiv, out, lr, rr)
	case NPow:
		c.emitSys2(out, lr, rr, Trap2Pow)
	}
	c.store(dst, out)
	return dst, nil
}

func (c *compiler) genUnaryArith(n Node, depth int) (loc, error) {
	cloc, err := c.gen(n.Children[0], depth)
	if err != nil {
		return loc{}, err
	}
	cr := c.toReg(cloc, scratch0)
	dst := c.place(depth)
	out := c.rawDst(dst)
	if n.Op == NNeg {
		c.emitReg(OpNeg, out, cr, 0)
	} else {
		c.emitImm(OpCmpK, out, cr, 0)
		c.emitReg(OpSeq, out, out, 0) // "not" == (x == 0)
	}
	c.store(dst, out)
	return dst, nil
}

var cmpOpcode = map[NodeOp]Opcode{
	NCmpEQ: OpSeq, NCmpNE: OpSne, NCmpLT: OpSlt, NCmpLE: OpSle, NCmpGT: OpSgt, NCmpGE: OpSge,
}

func (c *compiler) genCompare(n Node, depth int) (loc, error) {
	lloc, err := c.gen(n.Children[0], depth)
	if err != nil {
		return loc{}, err
	}
	rloc, err := c.gen(n.Children[1], depth+1)
	if err != nil {
		return loc{}, err
	}
	lr := c.toReg(lloc, scratch0)
	rr := c.toReg(rloc, scratch1)
	dst := c.place(depth)
	out := c.rawDst(dst)
	c.emitReg(OpCmp, out, lr, rr)
	c.emitReg(cmpOpcode[n.Op], out, out, 0)
	c.store(dst, out)
	return dst, nil
}

// genLogical implements short-circuit && / || via branch instructions
// rather than materializing both operands unconditionally (§4.4).
func (c *compiler) genLogical(n Node, depth int) (loc, error) {
	lloc, err := c.gen(n.Children[0], depth)
	if err != nil {
		return loc{}, err
	}
	lr := c.toReg(lloc, scratch0)
	dst := c.place(depth)
	out := c.rawDst(dst)
	c.emitReg(OpMove, out, lr, 0)
	var branch int
	if n.Op == NAnd {
		branch = c.emitReg(OpBeq, out, 0, 0) // if falsy, skip right side
	} else {
		branch = c.emitReg(OpBne, out, 0, 0) // if truthy, skip right side
	}
	rloc, err := c.gen(n.Children[1], depth)
	if err != nil {
		return loc{}, err
	}
	rr := c.toReg(rloc, scratch1)
	c.emitReg(OpMove, out, rr, 0)
	c.code.Instructions[branch].B = len(c.code.Instructions)
	c.store(dst, out)
	return dst, nil
}

// genCond compiles select(cond, neg, zero[, pos]) to branches rather
// than evaluating every arm unconditionally (§4.6 "select() branch
// compilation").
func (c *compiler) genCond(n Node, depth int) (loc, error) {
	condLoc, err := c.gen(n.Children[0], depth)
	if err != nil {
		return loc{}, err
	}
	condReg := c.toReg(condLoc, scratch0)
	dst := c.place(depth)
	out := c.rawDst(dst)

	bge := c.emitReg(OpBge, condReg, 0, 0) // cond >= 0 -> skip the negative arm
	negLoc, err := c.gen(n.Children[1], depth)
	if err != nil {
		return loc{}, err
	}
	c.emitReg(OpMove, out, c.toReg(negLoc, scratch1), 0)
	doneJmp := c.emitReg(OpJmp, 0, 0, 0)
	c.code.Instructions[bge].B = len(c.code.Instructions)

	if len(n.Children) == 4 {
		bgt := c.emitReg(OpBgt, condReg, 0, 0) // cond > 0 -> positive arm
		zeroLoc, err := c.gen(n.Children[2], depth)
		if err != nil {
			return loc{}, err
		}
		c.emitReg(OpMove, out, c.toReg(zeroLoc, scratch1), 0)
		doneJmp2 := c.emitReg(OpJmp, 0, 0, 0)
		c.code.Instructions[bgt].B = len(c.code.Instructions)
		posLoc, err := c.gen(n.Children[3], depth)
		if err != nil {
			return loc{}, err
		}
		c.emitReg(OpMove, out, c.toReg(posLoc, scratch1), 0)
		c.code.Instructions[doneJmp2].A = len(c.code.Instructions)
	} else {
		zeroLoc, err := c.gen(n.Children[2], depth)
		if err != nil {
			return loc{}, err
		}
		c.emitReg(OpMove, out, c.toReg(zeroLoc, scratch1), 0)
	}
	c.code.Instructions[doneJmp].A = len(c.code.Instructions)
	c.store(dst, out)
	return dst, nil
}

func (c *compiler) genCall(n Node, depth int) (loc, error) {
	if n.Name == "select" {
		return c.genCond(Node{Op: NCond, Children: n.Children}, depth)
	}
	regs := make([]int, len(n.Children))
	for i, child := range n.Children {
		l, err := c.gen(child, depth+i)
		if err != nil {
			return loc{}, err
		}
		regs[i] = c.toReg(l, SpillBase+(i%3))
	}
	dst := c.place(depth)
	out := c.rawDst(dst)
	if t1, ok := unaryTraps[n.Name]; ok {
		if len(regs) != 1 {
			return loc{}, fmt.Errorf("vmfunc: %s expects 1 argument, got %d", n.Name, len(regs))
		}
		if t1 == Trap1Ln || t1 == Trap1Log {
			c.emitReg(OpXle, regs[0], 0, 0)
		}
		c.emitReg(OpSys1, out, regs[0], int(t1))
		c.store(dst, out)
		return dst, nil
	}
	if t2, ok := binaryTraps[n.Name]; ok {
		if len(regs) != 2 {
			return loc{}, fmt.Errorf("vmfunc: %s expects 2 arguments, got %d", n.Name, len(regs))
		}
		if t2 == Trap2Div || t2 == Trap2Mod {
			c.emitReg(OpXeq, regs[1], 0, 0)
		}
		c.emitSys2(out, regs[0], regs[1], t2)
		c.store(dst, out)
		return dst, nil
	}
	return loc{}, fmt.Errorf("vmfunc: unknown intrinsic %q", n.Name)
}

// fold performs the bottom-up constant-folding peephole pass of §4.6:
// any node whose children are both NConst after recursion collapses to
// a single NConst; commutative arithmetic (add/mul) additionally sorts
// a lone constant child to the right so genBinaryArith's immediate-form
// peephole can fire. This mirrors the asymmetric constant folding in
// fncode.cpp, which only ever looks for the constant on the right.
func fold(n Node) Node {
	for i := range n.Children {
		n.Children[i] = fold(n.Children[i])
	}
	switch n.Op {
	case NAdd, NSub, NMul, NDiv, NPow:
		l, r := n.Children[0], n.Children[1]
		if l.Op == NConst && r.Op == NConst {
			return Node{Op: NConst, Const: foldConst(n.Op, l.Const, r.Const)}
		}
		if (n.Op == NAdd || n.Op == NMul) && l.Op == NConst && r.Op != NConst {
			n.Children[0], n.Children[1] = r, l
			l, r = r, l
		}
		// identity elimination, right operand only (fncode.cpp only ever
		// special-cases the right-hand child of +/-/*//).
		if r.Op == NConst {
			if (n.Op == NAdd || n.Op == NSub) && r.Const == 0 {
				return l
			}
			if (n.Op == NMul || n.Op == NDiv) && r.Const == 1 {
				return l
			}
		}
	case NNeg:
		if n.Children[0].Op == NConst {
			return Node{Op: NConst, Const: -n.Children[0].Const}
		}
	}
	return n
}

func foldConst(op NodeOp, a, b float64) float64 {
	switch op {
	case NAdd:
		return a + b
	case NSub:
		return a - b
	case NMul:
		return a * b
	case NDiv:
		if b == 0 {
			return 0
		}
		return a / b
	case NPow:
		return math.Pow(a, b)
	default:
		return 0
	}
}
