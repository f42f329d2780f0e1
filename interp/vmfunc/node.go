package vmfunc

// NodeOp enumerates the input tree's node kinds. A Node tree is the
// compiler's only input; the interp package builds one from its own
// Expr tree (interp.Expr) at the `function { ... }` literal site,
// keeping vmfunc ignorant of interp.Value and avoiding an import cycle.
type NodeOp int

const (
	NConst NodeOp = iota
	NParam
	NAdd
	NSub
	NMul
	NDiv
	NPow
	NNeg
	NNot
	NAnd
	NOr
	NCmpEQ
	NCmpNE
	NCmpLT
	NCmpLE
	NCmpGT
	NCmpGE
	NCall // Name identifies a Trap1/Trap2 intrinsic or "select"
	NCond // select()-style: Children = [cond, neg, zero, pos?]
)

// Node is one input-tree node handed to Compile.
type Node struct {
	Op       NodeOp
	Const    float64
	Param    int // valid when Op == NParam
	Name     string
	Children []Node
}
