package interp

import (
	"fmt"
	"math"
)

// ObjectNode is one CSG primitive or composite produced by the scene
// builder front-end (§4.5). It satisfies SceneNode and is otherwise
// opaque to the compiler; only this file and a host renderer ever
// inspect its fields.
type ObjectNode struct {
	TypeName  string
	Transform Transform
	Floats    []float64  // primitive-specific scalars; leading parameters (including a radius) are stored in Vectors
	Vectors   [][4]float64
	Children  []*ObjectNode // CSG members, or the single child of a modifier-only wrapper
	Texture   *TextureNode
	Pigment   *PigmentNode
	Normal    *NormalNode
	Finish    *FinishNode
}

func (o *ObjectNode) Kind() string { return o.TypeName }

// PigmentNode holds a solid color or a pattern plus its color blend
// map (§4.5 "Blend maps").
type PigmentNode struct {
	Pattern  string
	Color    Color
	BlendMap []BlendMapEntry
}

func (p *PigmentNode) Kind() string { return "pigment" }

// NormalNode holds a perturbation pattern and its bump amount.
type NormalNode struct {
	Pattern string
	Amount  float64
}

func (n *NormalNode) Kind() string { return "normal" }

// FinishNode holds the finish-block reflectance coefficients recovered
// from parser_materials.cpp's Parse_Finish (SPEC_FULL "scene builder
// front-end additions" draws the field list from there).
type FinishNode struct {
	Ambient    float64
	Diffuse    float64
	Phong      float64
	PhongSize  float64
	Specular   float64
	Roughness  float64
	Reflection float64
}

func (f *FinishNode) Kind() string { return "finish" }

// TextureNode is one of Plain/Tiles/MaterialMap/Patterned (§4.5
// "Textures"). Only Plain textures may be layered onto another
// texture; attempting to layer any other kind is a parse error.
type TextureNode struct {
	Form     string // "plain", "tiles", "material_map", "patterned"
	Pigment  *PigmentNode
	Normal   *NormalNode
	Finish   *FinishNode
	Layers   []*TextureNode // "tiles": exactly two
	Pattern  string         // "patterned": the pattern function name
	BlendMap []BlendMapEntry
}

func (t *TextureNode) Kind() string { return "texture" }

// CameraNode and LightNode carry the minimal viewing/lighting state a
// renderer needs; the compiler never interprets them.
type CameraNode struct {
	Type     string
	Location [4]float64
	LookAt   [4]float64
	Angle    float64
}

func (c *CameraNode) Kind() string { return "camera" }

type LightNode struct {
	Location [4]float64
	Color    Color
	Shadowless bool
}

func (l *LightNode) Kind() string { return "light_source" }

// objectKeywords names the primitive scene keywords the default builder
// dispatches on, each mapped to its number of leading parameters (§4.5,
// §6.2); the CSG keywords are in csgKeywords. A host embedding this package
// can swap in its own SceneBuilder entirely; this one exists so the
// compiler is runnable end to end without an external renderer.
var objectKeywords = map[string]int{
	"sphere": 2, "box": 2, "plane": 2, "cylinder": 3, "cone": 4,
}

var csgKeywords = map[string]bool{
	"union": true, "intersection": true, "difference": true, "merge": true,
}

// DefaultScene is the reference SceneBuilder implementation (§4.5,
// §6.3): it accumulates every top-level object/camera/light/default
// statement into a Scene, applying modifiers and blend maps exactly as
// the grammar allows, without attempting any rendering of its own
// (rendering is an explicit Non-goal, §1).
type DefaultScene struct {
	Objects  []*ObjectNode
	Cameras  []*CameraNode
	Lights   []*LightNode
	defaults map[string]SceneNode
}

// NewDefaultScene returns an empty scene ready to receive Dispatch calls.
func NewDefaultScene() *DefaultScene {
	return &DefaultScene{defaults: map[string]SceneNode{}}
}

// DefaultsFor returns the scene-wide default modifier installed for
// kind (e.g. "texture"), or nil if none was set via a `default { }`
// block (§4.5 "`default { texture { ... } }` block").
func (s *DefaultScene) DefaultsFor(kind string) SceneNode {
	return s.defaults[kind]
}

// SetDefaults installs mod as the scene-wide default for its own Kind().
func (s *DefaultScene) SetDefaults(mod SceneNode) {
	s.defaults[mod.Kind()] = mod
}

// Dispatch implements SceneBuilder, routing a top-level lead token to
// the matching builder procedure (§4.5 step 1-6).
func (s *DefaultScene) Dispatch(p *Parser, lead Token) error {
	switch {
	case lead.Text == "camera":
		cam, err := s.buildCamera(p)
		if err != nil {
			return err
		}
		s.Cameras = append(s.Cameras, cam)
		return nil
	case lead.Text == "light_source":
		light, err := s.buildLight(p)
		if err != nil {
			return err
		}
		s.Lights = append(s.Lights, light)
		return nil
	case lead.Text == "default":
		return s.buildDefaultBlock(p)
	case lead.Text == "texture":
		tex, err := s.buildTexture(p)
		if err != nil {
			return err
		}
		_ = tex // a bare top-level texture{} is legal only as a #declare target; nothing to register here
		return nil
	case objectKeywords[lead.Text] > 0 || csgKeywords[lead.Text]:
		obj, err := s.buildObject(p, lead.Text)
		if err != nil {
			return err
		}
		s.Objects = append(s.Objects, obj)
		return nil
	case lead.Kind == TokenObjectID:
		return s.applyStandaloneModifiers(p, lead)
	default:
		return NewParseError(lead.Pos, "unrecognized scene statement %q", lead.Text)
	}
}

// applyStandaloneModifiers handles "SomeObject translate <1,0,0>;"-style
// statements that further modify a previously #declared object in
// place (§4.5 "type-specific identifier absorption" extended to
// top-level re-modification).
func (s *DefaultScene) applyStandaloneModifiers(p *Parser, lead Token) error {
	obj, ok := lead.Ref.Value.Node.(*ObjectNode)
	if !ok {
		return NewTypeError(lead.Pos, "%q does not name an object", lead.Text)
	}
	for {
		t, err := p.lex.Peek()
		if err != nil {
			return err
		}
		if t.Kind == TokenPunct && t.Text == ";" {
			p.lex.Next()
			return nil
		}
		if err := s.applyModifier(p, obj); err != nil {
			return err
		}
	}
}

// buildObject implements the §4.5 skeleton for a primitive or CSG
// object: consume the body braces, absorb a same-typed prototype if
// one leads the body, parse primitive-specific numeric/vector
// parameters or CSG children, then apply trailing modifiers.
func (s *DefaultScene) buildObject(p *Parser, typeName string) (*ObjectNode, error) {
	if err := p.expectOp("{"); err != nil {
		return nil, err
	}
	obj := &ObjectNode{TypeName: typeName, Transform: IdentityTransform()}

	if t, err := p.lex.Peek(); err != nil {
		return nil, err
	} else if t.Kind == TokenObjectID {
		if proto, ok := t.Ref.Value.Node.(*ObjectNode); ok && proto.TypeName == typeName {
			p.lex.Next()
			*obj = *proto // prototype + override idiom (§4.5)
			if nt, err := p.lex.Peek(); err != nil {
				return nil, err
			} else if nt.Kind == TokenPunct && nt.Text == "," {
				p.lex.Next() // a trailing comma after the prototype reference is optional
			}
		}
	}

	if csgKeywords[typeName] {
		for {
			t, err := p.lex.Peek()
			if err != nil {
				return nil, err
			}
			if t.Kind == TokenPunct && t.Text == "}" {
				break
			}
			if objectKeywords[t.Text] > 0 || csgKeywords[t.Text] {
				p.lex.Next()
				child, err := s.buildObject(p, t.Text)
				if err != nil {
					return nil, err
				}
				obj.Children = append(obj.Children, child)
				continue
			}
			if err := s.applyModifier(p, obj); err != nil {
				return nil, err
			}
		}
	} else {
		n := objectKeywords[typeName]
		for len(obj.Vectors) < n {
			v, err := p.eval.EvalExpr()
			if err != nil {
				return nil, err
			}
			vec, err := valueAsVector4(v)
			if err != nil {
				return nil, err
			}
			obj.Vectors = append(obj.Vectors, vec)
			nt, err := p.lex.Peek()
			if err != nil {
				return nil, err
			}
			if nt.Kind == TokenPunct && nt.Text == "," {
				p.lex.Next()
			}
		}
		for {
			t, err := p.lex.Peek()
			if err != nil {
				return nil, err
			}
			if t.Kind == TokenPunct && t.Text == "}" {
				break
			}
			if err := s.applyModifier(p, obj); err != nil {
				return nil, err
			}
		}
	}
	if err := p.expectOp("}"); err != nil {
		return nil, err
	}
	if obj.Texture == nil {
		if def, ok := s.DefaultsFor("texture").(*TextureNode); ok {
			obj.Texture = def
		}
	}
	return obj, nil
}

// applyModifier implements ApplyModifier(node, modifier) (§4.5 "Object
// modifier absorption order"): recognizes one body keyword of an
// object block and composes it onto obj, or fails with a parse error
// if the lead token is unrecognized (the caller has already peeked it,
// so no unget is needed on failure: every branch below first consumes
// the token it dispatched on).
func (s *DefaultScene) applyModifier(p *Parser, obj *ObjectNode) error {
	t, err := p.lex.Next()
	if err != nil {
		return err
	}
	switch t.Text {
	case "texture":
		p.lex.Unget(t)
		tex, err := s.buildTexture(p)
		if err != nil {
			return err
		}
		obj.Texture = tex
	case "pigment":
		p.lex.Unget(t)
		pig, err := s.buildPigment(p)
		if err != nil {
			return err
		}
		obj.Pigment = pig
	case "normal":
		p.lex.Unget(t)
		n, err := s.buildNormal(p)
		if err != nil {
			return err
		}
		obj.Normal = n
	case "finish":
		p.lex.Unget(t)
		f, err := s.buildFinish(p)
		if err != nil {
			return err
		}
		obj.Finish = f
	case "translate":
		v, err := p.eval.EvalExpr()
		if err != nil {
			return err
		}
		vec, err := valueAsVector4(v)
		if err != nil {
			return err
		}
		obj.Transform = obj.Transform.Compose(translateTransform(vec))
	case "scale":
		v, err := p.eval.EvalExpr()
		if err != nil {
			return err
		}
		vec, err := valueAsVector4(v)
		if err != nil {
			return err
		}
		obj.Transform = obj.Transform.Compose(scaleTransform(vec))
	case "rotate":
		v, err := p.eval.EvalExpr()
		if err != nil {
			return err
		}
		vec, err := valueAsVector4(v)
		if err != nil {
			return err
		}
		obj.Transform = obj.Transform.Compose(rotateTransform(vec))
	case "matrix":
		m, err := s.parseMatrixLiteral(p)
		if err != nil {
			return err
		}
		obj.Transform = obj.Transform.Compose(m)
	case "transform":
		name, err := p.expectIdentifierName()
		if err != nil {
			return err
		}
		entry, ok := p.sym.Find(name)
		if !ok || entry.Value.Tag != TagTransform {
			return NewSymbolError(t.Pos, "%q does not name a transform", name)
		}
		obj.Transform = obj.Transform.Compose(entry.Value.Transform)
	default:
		return NewParseError(t.Pos, "unexpected token %q inside %s", t.Text, obj.TypeName)
	}
	return nil
}

func (s *DefaultScene) parseMatrixLiteral(p *Parser) (Transform, error) {
	if err := p.expectOp("<"); err != nil {
		return Transform{}, err
	}
	var vals [12]float64
	for i := 0; i < 12; i++ {
		v, err := p.eval.EvalExpr()
		if err != nil {
			return Transform{}, err
		}
		if v.Tag != TagScalar {
			return Transform{}, NewTypeError(p.lex.Pos(), "matrix component %d must be a scalar", i)
		}
		vals[i] = v.Scalar
		if i < 11 {
			if err := p.expectOp(","); err != nil {
				return Transform{}, err
			}
		}
	}
	if err := p.expectOp(">"); err != nil {
		return Transform{}, err
	}
	m := IdentityTransform()
	m.Matrix = [4][4]float64{
		{vals[0], vals[3], vals[6], 0},
		{vals[1], vals[4], vals[7], 0},
		{vals[2], vals[5], vals[8], 0},
		{vals[9], vals[10], vals[11], 1},
	}
	m.Inverse = m.Matrix // matrix inversion is a renderer concern, not this front-end's
	return m, nil
}

func translateTransform(v [4]float64) Transform {
	m := IdentityTransform()
	m.Matrix[3][0], m.Matrix[3][1], m.Matrix[3][2] = v[0], v[1], v[2]
	m.Inverse[3][0], m.Inverse[3][1], m.Inverse[3][2] = -v[0], -v[1], -v[2]
	return m
}

func scaleTransform(v [4]float64) Transform {
	m := IdentityTransform()
	m.Matrix[0][0], m.Matrix[1][1], m.Matrix[2][2] = v[0], v[1], v[2]
	m.Inverse[0][0], m.Inverse[1][1], m.Inverse[2][2] = 1/v[0], 1/v[1], 1/v[2]
	return m
}

// rotateTransform builds a composed X*Y*Z rotation from a degrees
// vector, leaving the inverse as the matrix transpose (orthonormal for
// pure rotation).
func rotateTransform(v [4]float64) Transform {
	const degToRad = 3.14159265358979323846 / 180
	rx, ry, rz := v[0]*degToRad, v[1]*degToRad, v[2]*degToRad
	m := IdentityTransform()
	m.Matrix = mulMat4(rotX(rx), mulMat4(rotY(ry), rotZ(rz)))
	m.Inverse = transposeMat4(m.Matrix)
	return m
}

func rotX(a float64) [4][4]float64 {
	c, sn := math.Cos(a), math.Sin(a)
	m := IdentityTransform().Matrix
	m[1][1], m[1][2] = c, sn
	m[2][1], m[2][2] = -sn, c
	return m
}

func rotY(a float64) [4][4]float64 {
	c, sn := math.Cos(a), math.Sin(a)
	m := IdentityTransform().Matrix
	m[0][0], m[0][2] = c, -sn
	m[2][0], m[2][2] = sn, c
	return m
}

func rotZ(a float64) [4][4]float64 {
	c, sn := math.Cos(a), math.Sin(a)
	m := IdentityTransform().Matrix
	m[0][0], m[0][1] = c, sn
	m[1][0], m[1][1] = -sn, c
	return m
}

func transposeMat4(m [4][4]float64) [4][4]float64 {
	var out [4][4]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[j][i] = m[i][j]
		}
	}
	return out
}

func (s *DefaultScene) buildCamera(p *Parser) (*CameraNode, error) {
	if err := p.expectOp("{"); err != nil {
		return nil, err
	}
	cam := &CameraNode{Type: "perspective"}
	for {
		t, err := p.lex.Next()
		if err != nil {
			return nil, err
		}
		if t.Kind == TokenPunct && t.Text == "}" {
			return cam, nil
		}
		switch t.Text {
		case "perspective", "orthographic", "panoramic":
			cam.Type = t.Text
		case "location":
			v, err := p.eval.EvalExpr()
			if err != nil {
				return nil, err
			}
			cam.Location, err = valueAsVector4(v)
			if err != nil {
				return nil, err
			}
		case "look_at":
			v, err := p.eval.EvalExpr()
			if err != nil {
				return nil, err
			}
			cam.LookAt, err = valueAsVector4(v)
			if err != nil {
				return nil, err
			}
		case "angle":
			v, err := p.eval.EvalExpr()
			if err != nil {
				return nil, err
			}
			if v.Tag != TagScalar {
				return nil, NewTypeError(t.Pos, "camera angle must be a scalar")
			}
			cam.Angle = v.Scalar
		default:
			return nil, NewParseError(t.Pos, "unexpected token %q inside camera", t.Text)
		}
	}
}

func (s *DefaultScene) buildLight(p *Parser) (*LightNode, error) {
	if err := p.expectOp("{"); err != nil {
		return nil, err
	}
	light := &LightNode{}
	v, err := p.eval.EvalExpr()
	if err != nil {
		return nil, err
	}
	light.Location, err = valueAsVector4(v)
	if err != nil {
		return nil, err
	}
	for {
		t, err := p.lex.Next()
		if err != nil {
			return nil, err
		}
		if t.Kind == TokenPunct && t.Text == "}" {
			return light, nil
		}
		switch t.Text {
		case "color":
			cv, err := p.eval.EvalExpr()
			if err != nil {
				return nil, err
			}
			if cv.Tag != TagColor {
				return nil, NewTypeError(t.Pos, "light_source color must be a color")
			}
			light.Color = cv.Col
		case "shadowless":
			light.Shadowless = true
		default:
			return nil, NewParseError(t.Pos, "unexpected token %q inside light_source", t.Text)
		}
	}
}

func (s *DefaultScene) buildDefaultBlock(p *Parser) error {
	if err := p.expectOp("{"); err != nil {
		return err
	}
	for {
		t, err := p.lex.Next()
		if err != nil {
			return err
		}
		if t.Kind == TokenPunct && t.Text == "}" {
			return nil
		}
		switch t.Text {
		case "texture":
			p.lex.Unget(t)
			tex, err := s.buildTexture(p)
			if err != nil {
				return err
			}
			s.SetDefaults(tex)
		case "pigment":
			p.lex.Unget(t)
			pig, err := s.buildPigment(p)
			if err != nil {
				return err
			}
			s.SetDefaults(&TextureNode{Form: "plain", Pigment: pig})
		case "finish":
			p.lex.Unget(t)
			fin, err := s.buildFinish(p)
			if err != nil {
				return err
			}
			def, _ := s.defaults["texture"].(*TextureNode)
			if def == nil {
				def = &TextureNode{Form: "plain"}
			}
			def.Finish = fin
			s.SetDefaults(def)
		default:
			return NewParseError(t.Pos, "unexpected token %q inside default", t.Text)
		}
	}
}

// buildTexture implements the §4.5 "Textures" production: Plain
// (pigment + optional normal/finish), Tiles (two layered textures),
// MaterialMap, or Patterned (pattern + blend map). Only Plain textures
// may themselves be layered further.
func (s *DefaultScene) buildTexture(p *Parser) (*TextureNode, error) {
	if err := consumeKeyword(p, "texture"); err != nil {
		return nil, err
	}
	if err := p.expectOp("{"); err != nil {
		return nil, err
	}
	tex := &TextureNode{Form: "plain"}
	if t, err := p.lex.Peek(); err != nil {
		return nil, err
	} else if t.Kind == TokenTextureID {
		if proto, ok := t.Ref.Value.Node.(*TextureNode); ok {
			p.lex.Next()
			*tex = *proto
		}
	}
	for {
		t, err := p.lex.Next()
		if err != nil {
			return nil, err
		}
		if t.Kind == TokenPunct && t.Text == "}" {
			return tex, nil
		}
		switch t.Text {
		case "pigment":
			p.lex.Unget(t)
			pig, err := s.buildPigment(p)
			if err != nil {
				return nil, err
			}
			tex.Pigment = pig
		case "normal":
			p.lex.Unget(t)
			n, err := s.buildNormal(p)
			if err != nil {
				return nil, err
			}
			tex.Normal = n
		case "finish":
			p.lex.Unget(t)
			f, err := s.buildFinish(p)
			if err != nil {
				return nil, err
			}
			tex.Finish = f
		case "texture":
			if tex.Form != "plain" || len(tex.Layers) > 0 && tex.Pigment != nil {
				return nil, NewParseError(t.Pos, "cannot layer a texture onto a patterned or tiled texture")
			}
			p.lex.Unget(t)
			layer, err := s.buildTexture(p)
			if err != nil {
				return nil, err
			}
			tex.Form = "tiles"
			tex.Layers = append(tex.Layers, layer)
		default:
			return nil, NewParseError(t.Pos, "unexpected token %q inside texture", t.Text)
		}
	}
}

func (s *DefaultScene) buildPigment(p *Parser) (*PigmentNode, error) {
	if err := consumeKeyword(p, "pigment"); err != nil {
		return nil, err
	}
	if err := p.expectOp("{"); err != nil {
		return nil, err
	}
	pig := &PigmentNode{Pattern: "solid"}
	for {
		t, err := p.lex.Next()
		if err != nil {
			return nil, err
		}
		if t.Kind == TokenPunct && t.Text == "}" {
			return pig, nil
		}
		switch t.Text {
		case "color":
			cv, err := p.eval.EvalExpr()
			if err != nil {
				return nil, err
			}
			if cv.Tag != TagColor {
				return nil, NewTypeError(t.Pos, "pigment color must be a color")
			}
			pig.Color = cv.Col
		case "color_map":
			bm, err := s.buildBlendMap(p)
			if err != nil {
				return nil, err
			}
			pig.BlendMap = bm
		default:
			pig.Pattern = t.Text
		}
	}
}

func (s *DefaultScene) buildNormal(p *Parser) (*NormalNode, error) {
	if err := consumeKeyword(p, "normal"); err != nil {
		return nil, err
	}
	if err := p.expectOp("{"); err != nil {
		return nil, err
	}
	n := &NormalNode{Amount: 1}
	first := true
	for {
		t, err := p.lex.Peek()
		if err != nil {
			return nil, err
		}
		if t.Kind == TokenPunct && t.Text == "}" {
			p.lex.Next()
			return n, nil
		}
		if first && t.Kind == TokenIdentifier {
			p.lex.Next()
			n.Pattern = t.Text
			first = false
			continue
		}
		first = false
		v, err := p.eval.EvalExpr()
		if err != nil {
			return nil, err
		}
		if v.Tag == TagScalar {
			n.Amount = v.Scalar
		}
	}
}

func (s *DefaultScene) buildFinish(p *Parser) (*FinishNode, error) {
	if err := consumeKeyword(p, "finish"); err != nil {
		return nil, err
	}
	if err := p.expectOp("{"); err != nil {
		return nil, err
	}
	f := &FinishNode{}
	for {
		t, err := p.lex.Next()
		if err != nil {
			return nil, err
		}
		if t.Kind == TokenPunct && t.Text == "}" {
			return f, nil
		}
		field := map[string]*float64{
			"ambient": &f.Ambient, "diffuse": &f.Diffuse, "phong": &f.Phong,
			"phong_size": &f.PhongSize, "specular": &f.Specular,
			"roughness": &f.Roughness, "reflection": &f.Reflection,
		}[t.Text]
		if field == nil {
			return nil, NewParseError(t.Pos, "unexpected token %q inside finish", t.Text)
		}
		v, err := p.eval.EvalExpr()
		if err != nil {
			return nil, err
		}
		if v.Tag != TagScalar {
			return nil, NewTypeError(t.Pos, "finish %q requires a scalar", t.Text)
		}
		*field = v.Scalar
	}
}

// buildBlendMap implements §4.5 "Blend maps": either the explicit
// `[key value]` form or an inline list with keys interpolated 0..1.
func (s *DefaultScene) buildBlendMap(p *Parser) ([]BlendMapEntry, error) {
	if err := p.expectOp("{"); err != nil {
		return nil, err
	}
	var entries []BlendMapEntry
	explicit := false
	if t, err := p.lex.Peek(); err != nil {
		return nil, err
	} else if t.Kind == TokenPunct && t.Text == "[" {
		explicit = true
	}
	for {
		t, err := p.lex.Peek()
		if err != nil {
			return nil, err
		}
		if t.Kind == TokenPunct && t.Text == "}" {
			p.lex.Next()
			break
		}
		var key float64
		if explicit {
			if err := p.expectOp("["); err != nil {
				return nil, err
			}
			kv, err := p.eval.EvalExpr()
			if err != nil {
				return nil, err
			}
			if kv.Tag != TagScalar {
				return nil, NewTypeError(t.Pos, "blend map key must be a scalar")
			}
			key = kv.Scalar
		} else {
			key = float64(len(entries))
		}
		if ct, err := p.lex.Peek(); err != nil {
			return nil, err
		} else if ct.Text == "color" {
			p.lex.Next()
		}
		val, err := p.eval.EvalExpr()
		if err != nil {
			return nil, err
		}
		entries = append(entries, BlendMapEntry{Key: key, Value: val})
		if explicit {
			if err := p.expectOp("]"); err != nil {
				return nil, err
			}
		}
		nt, err := p.lex.Peek()
		if err != nil {
			return nil, err
		}
		if nt.Kind == TokenPunct && nt.Text == "," {
			p.lex.Next()
		}
	}
	if !explicit {
		for i := range entries {
			if len(entries) > 1 {
				entries[i].Key = float64(i) / float64(len(entries)-1)
			}
		}
	}
	return entries, nil
}

// consumeKeyword consumes the next token and requires its spelling to
// match text, regardless of token kind (a scene keyword like "texture"
// lexes as a plain identifier, not punctuation, unlike the braces
// expectOp checks).
func consumeKeyword(p *Parser, text string) error {
	t, err := p.lex.Next()
	if err != nil {
		return err
	}
	if t.Text != text {
		return NewParseError(t.Pos, "expected %q, found %q", text, t.Text)
	}
	return nil
}

func valueAsVector4(v Value) ([4]float64, error) {
	switch v.Tag {
	case TagScalar:
		return [4]float64{v.Scalar, v.Scalar, v.Scalar, 0}, nil
	case TagVector2, TagVector3, TagVector4:
		return v.Vec, nil
	default:
		return [4]float64{}, fmt.Errorf("expected a scalar or vector, got %s", v.Tag)
	}
}
