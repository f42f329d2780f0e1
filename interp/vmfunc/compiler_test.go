package vmfunc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func compileAndRun(t *testing.T, numParams int, root Node, params ...float64) float64 {
	t.Helper()
	code, err := Compile(numParams, root)
	require.NoError(t, err)
	v, err := Run(code, params)
	require.NoError(t, err)
	return v
}

func TestCompileConstant(t *testing.T) {
	v := compileAndRun(t, 0, Node{Op: NConst, Const: 42})
	assert.Equal(t, 42.0, v)
}

func TestCompileParamArithmetic(t *testing.T) {
	// x*x + y*y, evaluated at (3, 4): sqrt-free sum of squares is 25.
	sq := func(i int) Node {
		return Node{Op: NMul, Children: []Node{{Op: NParam, Param: i}, {Op: NParam, Param: i}}}
	}
	root := Node{Op: NAdd, Children: []Node{sq(0), sq(1)}}
	v := compileAndRun(t, 2, root, 3, 4)
	assert.Equal(t, 25.0, v)
}

func TestCompileSqrtCall(t *testing.T) {
	sq := func(i int) Node {
		return Node{Op: NMul, Children: []Node{{Op: NParam, Param: i}, {Op: NParam, Param: i}}}
	}
	sumSq := Node{Op: NAdd, Children: []Node{sq(0), sq(1)}}
	root := Node{Op: NCall, Name: "sqrt", Children: []Node{sumSq}}
	v := compileAndRun(t, 2, root, 3, 4)
	assert.Equal(t, 5.0, v)
}

func TestCompileConstantFolding(t *testing.T) {
	root := Node{Op: NAdd, Children: []Node{
		{Op: NConst, Const: 2},
		{Op: NMul, Children: []Node{{Op: NConst, Const: 3}, {Op: NConst, Const: 4}}},
	}}
	code, err := Compile(0, root)
	require.NoError(t, err)
	// the whole tree is constant; only the RTS loading the folded value
	// should remain once folding collapses everything.
	assert.LessOrEqual(t, len(code.Instructions), 2)
	v, err := Run(code, nil)
	require.NoError(t, err)
	assert.Equal(t, 14.0, v)
}

func TestCompileDivisionByZeroTrap(t *testing.T) {
	root := Node{Op: NDiv, Children: []Node{
		{Op: NParam, Param: 0}, {Op: NParam, Param: 1},
	}}
	code, err := Compile(2, root)
	require.NoError(t, err)
	_, err = Run(code, []float64{1, 0})
	require.Error(t, err)
	var domErr *DomainError
	assert.ErrorAs(t, err, &domErr)
}

func TestCompileSelect(t *testing.T) {
	root := Node{Op: NCond, Children: []Node{
		{Op: NParam, Param: 0},
		{Op: NConst, Const: -1},
		{Op: NConst, Const: 0},
		{Op: NConst, Const: 1},
	}}
	code, err := Compile(1, root)
	require.NoError(t, err)
	for _, tc := range []struct {
		in, want float64
	}{{-5, -1}, {0, 0}, {5, 1}} {
		v, err := Run(code, []float64{tc.in})
		require.NoError(t, err)
		assert.Equal(t, tc.want, v, "select(%g)", tc.in)
	}
}

func TestCompileLogicalShortCircuit(t *testing.T) {
	root := Node{Op: NAnd, Children: []Node{
		{Op: NParam, Param: 0}, {Op: NParam, Param: 1},
	}}
	code, err := Compile(2, root)
	require.NoError(t, err)
	v, err := Run(code, []float64{0, 1})
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
	v, err = Run(code, []float64{1, 1})
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)
}

func TestCompilePowNegativeExponentConstantFold(t *testing.T) {
	root := Node{Op: NPow, Children: []Node{{Op: NConst, Const: 2}, {Op: NConst, Const: -2}}}
	v := compileAndRun(t, 0, root)
	assert.InDelta(t, 0.25, v, 1e-12)
}

func TestReentrantContextsIndependent(t *testing.T) {
	sq := Node{Op: NMul, Children: []Node{{Op: NParam, Param: 0}, {Op: NParam, Param: 0}}}
	code, err := Compile(1, sq)
	require.NoError(t, err)
	c1, c2 := NewContext(code), NewContext(code)
	v1, err := c1.Run(code, []float64{3})
	require.NoError(t, err)
	v2, err := c2.Run(code, []float64{100})
	require.NoError(t, err)
	assert.Equal(t, 9.0, v1)
	assert.Equal(t, 10000.0, v2)
}

// TestConcurrentReentrancy drives the same FunctionCode from many
// goroutines, each with its own Context, confirming independent call
// frames don't share register/spill state (§8 property 6 "function
// re-entrancy").
func TestConcurrentReentrancy(t *testing.T) {
	sq := Node{Op: NMul, Children: []Node{{Op: NParam, Param: 0}, {Op: NParam, Param: 0}}}
	code, err := Compile(1, sq)
	require.NoError(t, err)

	var g errgroup.Group
	results := make([]float64, 64)
	for i := 0; i < len(results); i++ {
		i := i
		g.Go(func() error {
			ctx := NewContext(code)
			v, err := ctx.Run(code, []float64{float64(i)})
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		})
	}
	require.NoError(t, g.Wait())
	for i, v := range results {
		assert.Equal(t, float64(i*i), v)
	}
}

func TestDeepSpillNesting(t *testing.T) {
	// build a deeply right-nested addition to force register spilling
	// past SpillBase (§4.6 "register allocation discipline").
	// The leaves are parameters: constant leaves would be folded into a
	// single constant before code generation and never spill.
	root := Node{Op: NParam, Param: 0}
	want := 1.0
	for i := 1; i <= 20; i++ {
		root = Node{Op: NAdd, Children: []Node{{Op: NParam, Param: 0}, root}}
		want += 1
	}
	v := compileAndRun(t, 1, root, 1)
	assert.Equal(t, want, v)
}

func TestTrapDomainErrorOnLogOfNonPositive(t *testing.T) {
	root := Node{Op: NCall, Name: "ln", Children: []Node{{Op: NParam, Param: 0}}}
	code, err := Compile(1, root)
	require.NoError(t, err)
	_, err = Run(code, []float64{-1})
	require.Error(t, err)
	var domErr *DomainError
	assert.ErrorAs(t, err, &domErr)
}

func TestHyperbolicTrigTraps(t *testing.T) {
	root := Node{Op: NCall, Name: "sinh", Children: []Node{{Op: NParam, Param: 0}}}
	v := compileAndRun(t, 1, root, 1.0)
	assert.InDelta(t, math.Sinh(1.0), v, 1e-12)
}
