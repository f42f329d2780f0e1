package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDeclare(t *testing.T, src string) *SymbolTable {
	t.Helper()
	c := New(Options{})
	sym, err := c.Compile("test.pov", []byte(src), nil)
	require.NoError(t, err)
	return sym
}

func TestDeclareArithmetic(t *testing.T) {
	sym := mustDeclare(t, "#declare x = 2 + 3 * 4;\n")
	e, ok := sym.Find("x")
	require.True(t, ok)
	assert.Equal(t, TagScalar, e.Value.Tag)
	assert.Equal(t, 14.0, e.Value.Scalar)
}

func TestVectorMemberSum(t *testing.T) {
	sym := mustDeclare(t, "#declare v = <1, 2, 3>; #declare s = v.x + v.y + v.z;\n")
	e, ok := sym.Find("s")
	require.True(t, ok)
	assert.Equal(t, 6.0, e.Value.Scalar)
}

func TestColorAddition(t *testing.T) {
	sym := mustDeclare(t, "#declare c = rgb <1,0,0> + rgb <0,1,0>;\n")
	e, ok := sym.Find("c")
	require.True(t, ok)
	require.Equal(t, TagColor, e.Value.Tag)
	assert.Equal(t, 1.0, e.Value.Col.Red)
	assert.Equal(t, 1.0, e.Value.Col.Green)
	assert.Equal(t, 0.0, e.Value.Col.Blue)
}

func TestMacroInvocation(t *testing.T) {
	sym := mustDeclare(t, "#macro add(a,b) a + b #end\n#declare r = add(10, 20);\n")
	e, ok := sym.Find("r")
	require.True(t, ok)
	assert.Equal(t, 30.0, e.Value.Scalar)
}

func TestMacroParameterCountEnforced(t *testing.T) {
	c := New(Options{})
	_, err := c.Compile("test.pov", []byte("#macro add(a,b) a + b #end\n#declare r = add(10);\n"), nil)
	require.Error(t, err)
	_, err = c.Compile("test.pov", []byte("#macro add(a,b) a + b #end\n#declare r = add(1,2,3);\n"), nil)
	require.Error(t, err)
}

func TestForLoopAccumulation(t *testing.T) {
	sym := mustDeclare(t, "#declare s = 0;\n#for(i, 1, 5) #declare s = s + i; #end\n")
	e, ok := sym.Find("s")
	require.True(t, ok)
	assert.Equal(t, 15.0, e.Value.Scalar)
}

func TestLocalScopingEndsAtMacroBoundary(t *testing.T) {
	c := New(Options{})
	sym, err := c.Compile("test.pov", []byte("#macro inner() #local y = 5; #declare captured = y; #end\ninner()\n"), nil)
	require.NoError(t, err)
	captured, ok := sym.Find("captured")
	require.True(t, ok)
	assert.Equal(t, 5.0, captured.Value.Scalar)
	_, ok = sym.Find("y")
	assert.False(t, ok, "y declared #local inside the macro must not survive past its #end")
}

func TestUndefinedIdentifierIsSymbolError(t *testing.T) {
	c := New(Options{})
	_, err := c.Compile("test.pov", []byte("#declare x = x;\n"), nil)
	require.Error(t, err)
	var symErr *SymbolError
	assert.ErrorAs(t, err, &symErr)
}

func TestUnterminatedCommentIsLexError(t *testing.T) {
	c := New(Options{})
	_, err := c.Compile("test.pov", []byte("/* this comment never ends\n#declare x = 1;\n"), nil)
	require.Error(t, err)
	var lexErr *LexError
	assert.ErrorAs(t, err, &lexErr)
}

func TestCopySemanticsVectorNotAliased(t *testing.T) {
	sym := mustDeclare(t, "#declare a = <1,2,3>;\n#declare b = a;\n#declare a = <9,9,9>;\n")
	bv, ok := sym.Find("b")
	require.True(t, ok)
	assert.Equal(t, [4]float64{1, 2, 3}, bv.Value.Vec)
}

func TestArithmeticBroadcastScalarPlusVector(t *testing.T) {
	sym := mustDeclare(t, "#declare v = 2 + <1,2,3>;\n")
	e, ok := sym.Find("v")
	require.True(t, ok)
	assert.Equal(t, [4]float64{3, 4, 5}, e.Value.Vec)
}

func TestFunctionInvokeSqrtOfSumOfSquares(t *testing.T) {
	sym := mustDeclare(t, "#declare f = function(x, y) { sqrt(x*x + y*y) };\n")
	e, ok := sym.Find("f")
	require.True(t, ok)
	require.Equal(t, TagFunction, e.Value.Tag)
	v, err := e.Value.Function.Invoke(SourcePosition{}, []float64{3, 4})
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)
}

func TestFunctionInvokeDivisionByZeroIsRuntimeError(t *testing.T) {
	sym := mustDeclare(t, "#declare f = function(x) { 1/x };\n")
	e, ok := sym.Find("f")
	require.True(t, ok)
	_, err := e.Value.Function.Invoke(SourcePosition{}, []float64{0})
	require.Error(t, err)
	var runErr *RuntimeError
	assert.ErrorAs(t, err, &runErr)
}

func TestSphereSceneBuildsOneObject(t *testing.T) {
	c := New(Options{})
	scene := NewDefaultScene()
	_, err := c.Compile("test.pov", []byte("sphere { <0,0,0>, 1 }\n"), scene)
	require.NoError(t, err)
	require.Len(t, scene.Objects, 1)
	obj := scene.Objects[0]
	assert.Equal(t, "sphere", obj.Kind())
	assert.Equal(t, [4]float64{0, 0, 0, 0}, obj.Vectors[0])
	assert.Equal(t, 1.0, obj.Vectors[1][0])
}
