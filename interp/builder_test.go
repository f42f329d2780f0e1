package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildScene(t *testing.T, src string) *DefaultScene {
	t.Helper()
	c := New(Options{})
	scene := NewDefaultScene()
	_, err := c.Compile("builder_test.pov", []byte(src), scene)
	require.NoError(t, err)
	return scene
}

func TestBuilderCSGUnionHasChildren(t *testing.T) {
	scene := buildScene(t, "union { sphere { <0,0,0>, 1 } box { <0,0,0>, <1,1,1> } }\n")
	require.Len(t, scene.Objects, 1)
	u := scene.Objects[0]
	assert.Equal(t, "union", u.Kind())
	require.Len(t, u.Children, 2)
	assert.Equal(t, "sphere", u.Children[0].Kind())
	assert.Equal(t, "box", u.Children[1].Kind())
}

func TestBuilderPlainTextureLayeringAllowed(t *testing.T) {
	scene := buildScene(t, `
sphere { <0,0,0>, 1
  texture { texture { pigment { color rgb <1,0,0> } } }
}
`)
	require.Len(t, scene.Objects, 1)
	tex := scene.Objects[0].Texture
	require.NotNil(t, tex)
	assert.Equal(t, "tiles", tex.Form)
	require.Len(t, tex.Layers, 1)
	assert.Equal(t, 1.0, tex.Layers[0].Pigment.Color.Red)
}

func TestBuilderPatternedTextureCannotBeLayeredFurther(t *testing.T) {
	c := New(Options{})
	scene := NewDefaultScene()
	src := `
sphere { <0,0,0>, 1
  texture {
    texture { pigment { color_map { [0 color rgb <0,0,0>] [1 color rgb <1,1,1>] } } }
    texture { pigment { color rgb <1,0,0> } }
  }
}
`
	_, err := c.Compile("builder_test.pov", []byte(src), scene)
	require.Error(t, err)
	var perr *ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestBuilderColorMapBlendMapExplicitKeys(t *testing.T) {
	scene := buildScene(t, `
sphere { <0,0,0>, 1
  pigment { color_map { [0.0 color rgb <0,0,0>] [1.0 color rgb <1,1,1>] } }
}
`)
	pig := scene.Objects[0].Pigment
	require.NotNil(t, pig)
	require.Len(t, pig.BlendMap, 2)
	assert.Equal(t, 0.0, pig.BlendMap[0].Key)
	assert.Equal(t, 1.0, pig.BlendMap[1].Key)
}

func TestBuilderDefaultBlockAppliesToLaterObjects(t *testing.T) {
	scene := buildScene(t, `
default { texture { pigment { color rgb <0,1,0> } } }
sphere { <0,0,0>, 1 }
`)
	require.Len(t, scene.Objects, 1)
	tex := scene.Objects[0].Texture
	require.NotNil(t, tex)
	require.NotNil(t, tex.Pigment)
	assert.Equal(t, 1.0, tex.Pigment.Color.Green)
}

func TestBuilderPrototypeOverrideAbsorbsTypedIdentifier(t *testing.T) {
	scene := buildScene(t, `
#declare proto = sphere { <0,0,0>, 1 pigment { color rgb <1,0,0> } }
sphere { proto scale <2,2,2> }
`)
	require.Len(t, scene.Objects, 1)
	obj := scene.Objects[0]
	require.NotNil(t, obj.Pigment)
	assert.Equal(t, 1.0, obj.Pigment.Color.Red)
	assert.Equal(t, 2.0, obj.Transform.Matrix[0][0])
}

func TestBuilderTranslateScaleComposition(t *testing.T) {
	scene := buildScene(t, "box { <0,0,0>, <1,1,1> translate <1,2,3> scale <2,2,2> }\n")
	obj := scene.Objects[0]
	p := applyTransform(obj.Transform, [3]float64{0, 0, 0})
	// translate then scale (local-frame composition order, §4.5): the
	// origin is first moved to (1,2,3), then the whole frame is scaled.
	assert.InDelta(t, 2.0, p[0], 1e-9)
	assert.InDelta(t, 4.0, p[1], 1e-9)
	assert.InDelta(t, 6.0, p[2], 1e-9)
}

// applyTransform applies t to a point in row-vector convention,
// matching how translateTransform/scaleTransform populate Matrix.
func applyTransform(t Transform, p [3]float64) [3]float64 {
	row := [4]float64{p[0], p[1], p[2], 1}
	var out [4]float64
	for j := 0; j < 4; j++ {
		var sum float64
		for k := 0; k < 4; k++ {
			sum += row[k] * t.Matrix[k][j]
		}
		out[j] = sum
	}
	return [3]float64{out[0], out[1], out[2]}
}

func TestBuilderCameraAndLight(t *testing.T) {
	scene := buildScene(t, `
camera { location <0,0,-5> look_at <0,0,0> angle 45 }
light_source { <10,10,-10> color rgb <1,1,1> }
`)
	require.Len(t, scene.Cameras, 1)
	require.Len(t, scene.Lights, 1)
	assert.Equal(t, 45.0, scene.Cameras[0].Angle)
	assert.Equal(t, 1.0, scene.Lights[0].Color.Red)
}
