package interp

import (
	"errors"
	"fmt"

	"github.com/sdlray/sdlc/interp/vmfunc"
)

// compileFunction is the FunctionCompileFn wired into every Evaluator
// created by NewParser (§4.6 "Input" / "Output"): it translates the
// evaluator's Expr tree, already closed over its enclosing scope by
// closeOverOuterScope, into vmfunc's own Node shape and hands it to
// vmfunc.Compile. Keeping the translation here rather than in vmfunc
// keeps that package ignorant of interp.Value and avoids an import
// cycle (§9 design note).
func (c *Compiler) compileFunction(params []string, body Expr) (*FunctionValue, error) {
	paramIndex := make(map[string]int, len(params))
	for i, p := range params {
		paramIndex[p] = i
	}
	root, err := exprToNode(paramIndex, body)
	if err != nil {
		return nil, err
	}
	code, err := vmfunc.Compile(len(params), root)
	if err != nil {
		return nil, err
	}
	return &FunctionValue{Code: code, Params: params}, nil
}

var exprBinaryOp = map[ExprOp]vmfunc.NodeOp{
	OpAdd: vmfunc.NAdd, OpSub: vmfunc.NSub, OpMul: vmfunc.NMul, OpDiv: vmfunc.NDiv, OpPow: vmfunc.NPow,
	OpAnd: vmfunc.NAnd, OpOr: vmfunc.NOr,
	OpCmpEQ: vmfunc.NCmpEQ, OpCmpNE: vmfunc.NCmpNE, OpCmpLT: vmfunc.NCmpLT,
	OpCmpLE: vmfunc.NCmpLE, OpCmpGT: vmfunc.NCmpGT, OpCmpGE: vmfunc.NCmpGE,
}

// Invoke evaluates a compiled function value at the given arguments
// (§4.6 "Output"), translating a VM-level domain trap into the
// RuntimeError spec.md's render-time seed scenarios describe (e.g.
// "function(x){1/x}" at 0 raising a DivisionByZero RuntimeError)
// rather than leaking vmfunc's own error type across the package
// boundary.
func (fv *FunctionValue) Invoke(pos SourcePosition, args []float64) (float64, error) {
	code, ok := fv.Code.(*vmfunc.FunctionCode)
	if !ok || code == nil {
		return 0, NewRuntimeError(pos, fv.Name, "function value has no compiled code")
	}
	if len(args) != len(fv.Params) {
		return 0, NewRuntimeError(pos, fv.Name, "expected %d argument(s), got %d", len(fv.Params), len(args))
	}
	v, err := vmfunc.Run(code, args)
	if err != nil {
		var domErr *vmfunc.DomainError
		if errors.As(err, &domErr) {
			return 0, NewRuntimeError(pos, fv.Name, "%v", domErr)
		}
		return 0, NewRuntimeError(pos, fv.Name, "%v", err)
	}
	return v, nil
}

func exprToNode(paramIndex map[string]int, e Expr) (vmfunc.Node, error) {
	switch e.Op {
	case OpConstant:
		return vmfunc.Node{Op: vmfunc.NConst, Const: e.Const}, nil
	case OpVariable:
		idx, ok := paramIndex[e.Name]
		if !ok {
			return vmfunc.Node{}, fmt.Errorf("vmfunc: %q is not a function parameter", e.Name)
		}
		return vmfunc.Node{Op: vmfunc.NParam, Param: idx}, nil
	case OpNeg:
		child, err := exprToNode(paramIndex, e.Children[0])
		if err != nil {
			return vmfunc.Node{}, err
		}
		return vmfunc.Node{Op: vmfunc.NNeg, Children: []vmfunc.Node{child}}, nil
	case OpNot:
		child, err := exprToNode(paramIndex, e.Children[0])
		if err != nil {
			return vmfunc.Node{}, err
		}
		return vmfunc.Node{Op: vmfunc.NNot, Children: []vmfunc.Node{child}}, nil
	case OpAdd, OpSub, OpMul, OpDiv, OpPow, OpAnd, OpOr,
		OpCmpEQ, OpCmpNE, OpCmpLT, OpCmpLE, OpCmpGT, OpCmpGE:
		left, err := exprToNode(paramIndex, e.Children[0])
		if err != nil {
			return vmfunc.Node{}, err
		}
		right, err := exprToNode(paramIndex, e.Children[1])
		if err != nil {
			return vmfunc.Node{}, err
		}
		return vmfunc.Node{Op: exprBinaryOp[e.Op], Children: []vmfunc.Node{left, right}}, nil
	case OpCond:
		children := make([]vmfunc.Node, len(e.Children))
		for i, ch := range e.Children {
			n, err := exprToNode(paramIndex, ch)
			if err != nil {
				return vmfunc.Node{}, err
			}
			children[i] = n
		}
		return vmfunc.Node{Op: vmfunc.NCond, Children: children}, nil
	case OpCall:
		children := make([]vmfunc.Node, len(e.Children))
		for i, ch := range e.Children {
			n, err := exprToNode(paramIndex, ch)
			if err != nil {
				return vmfunc.Node{}, err
			}
			children[i] = n
		}
		return vmfunc.Node{Op: vmfunc.NCall, Name: e.Name, Children: children}, nil
	case OpMember:
		return vmfunc.Node{}, fmt.Errorf("vmfunc: member access on function parameters is not supported")
	default:
		return vmfunc.Node{}, fmt.Errorf("vmfunc: unhandled expression node %d", e.Op)
	}
}
