package interp

// SceneBuilder receives every top-level token the directive processor
// and macro invocation do not themselves consume (§2 "a scene keyword
// routes to a specialized builder", §4.5, §6.3). The compiler treats
// scene-graph construction as external: a SceneBuilder is injected via
// Parser.SetScene, and DefaultScene (builder.go) is the implementation
// this package provides.
type SceneBuilder interface {
	// Dispatch is called with the lead token of one top-level scene
	// statement (a scene keyword, or a promoted object/texture/etc.
	// identifier continuing an assignment-like usage). It consumes
	// whatever tokens belong to that statement itself.
	Dispatch(p *Parser, lead Token) error
}

// Parser is the top-level driver of §2: it owns the Lexer, SymbolTable,
// Evaluator and Directives, and runs the main token-routing loop. It
// plays the role of the teacher's Interpreter, minus any executable
// byte-code of its own (that lives in the vmfunc package).
type Parser struct {
	lex   *Lexer
	sym   *SymbolTable
	eval  *Evaluator
	dir   *Directives
	scene SceneBuilder

	opt   Options
	diags *Diagnostics

	activeVersion string
	compiler      *Compiler
}

// NewParser creates a Parser reading src under streamName, sharing the
// Compiler's options, diagnostics sink, and function-compiler hook.
func NewParser(c *Compiler, streamName string, src []byte) *Parser {
	p := &Parser{
		opt:           c.opt,
		diags:         &c.diags,
		activeVersion: c.opt.Version,
		compiler:      c,
	}
	p.lex = NewLexer(streamName, src, p.diags, c.opt.Includes, c.opt.Streams)
	p.lex.legacy = c.opt.LegacyComments
	p.sym = NewSymbolTable()
	p.eval = NewEvaluator(p.lex, p.sym, p.diags)
	p.eval.compile = c.compileFunction
	p.dir = newDirectives(p)
	p.lex.SetLookup(func(name string) *SymbolEntry {
		e, ok := p.sym.Find(name)
		if !ok {
			return nil
		}
		return e
	})
	p.lex.SetSkip(p.dir.Skipping)
	return p
}

// SetScene installs the external scene-graph builder (§6.3). A Parser
// with no builder installed still fully processes directives and
// expressions; it simply rejects scene keywords it cannot route.
func (p *Parser) SetScene(b SceneBuilder) { p.scene = b }

// SymbolTable exposes the live symbol table, e.g. so a host program can
// pre-seed clock/width/height before Run.
func (p *Parser) SymbolTable() *SymbolTable { return p.sym }

// Run drives the top-level loop described in §2: repeatedly request the
// next token, and route it to the directive processor, to macro
// invocation, or to the scene builder.
func (p *Parser) Run() error {
	for {
		t, err := p.lex.Next()
		if err != nil {
			return err
		}
		switch {
		case t.Kind == TokenEOF:
			return nil
		case t.Kind == TokenDirective:
			if !DirectiveKeywords[t.Text] {
				return NewParseError(t.Pos, "unknown directive #%s", t.Text)
			}
			if err := p.dir.Dispatch(t); err != nil {
				return err
			}
		case t.Kind == TokenMacroID:
			if err := p.invokeMacro(t); err != nil {
				return err
			}
		case t.Kind == TokenPunct && t.Text == ";":
			// empty statement
		default:
			if p.scene == nil {
				return NewParseError(t.Pos, "unexpected token %q at top level", t.Text)
			}
			if err := p.scene.Dispatch(p, t); err != nil {
				return err
			}
		}
	}
}

// invokeMacro implements §4.4 step 3: parses the parenthesized argument
// list, binds each formal parameter either by value-copy or, for a bare
// identifier argument, by ParameterRef, pushes a fresh symbol-table
// frame, and seeks the lexer to the macro body recorded at #macro
// declaration time. The matching #end (handleEnd's CondInvokingMacro
// case) pops the frame and seeks back to the statement following the
// call.
func (p *Parser) invokeMacro(t Token) error {
	mv := t.Ref.Value.Macro
	if err := p.expectOp("("); err != nil {
		return err
	}
	args := make([]Value, 0, len(mv.Params))
	first, err := p.lex.Peek()
	if err != nil {
		return err
	}
	if !(first.Kind == TokenPunct && first.Text == ")") {
		for {
			v, err := p.parseMacroArg()
			if err != nil {
				return err
			}
			args = append(args, v)
			nt, err := p.lex.Next()
			if err != nil {
				return err
			}
			if nt.Kind == TokenPunct && nt.Text == "," {
				continue
			}
			if nt.Kind == TokenPunct && nt.Text == ")" {
				break
			}
			return NewParseError(nt.Pos, "expected ',' or ')' in call to macro %q", mv.Name)
		}
	} else {
		p.lex.Next()
	}
	if len(args) > len(mv.Params) {
		return NewSymbolError(t.Pos, "macro %q takes %d parameters, got %d", mv.Name, len(mv.Params), len(args))
	}
	for len(args) < len(mv.Params) {
		i := len(args)
		if i >= len(mv.Optional) || !mv.Optional[i] {
			return NewSymbolError(t.Pos, "macro %q requires %d parameters, got %d", mv.Name, len(mv.Params), len(args))
		}
		args = append(args, Value{Tag: TagUndefined})
	}
	returnPos := p.lex.CurrentStreamPos()
	depth := p.sym.Depth()
	p.sym.PushFrame(mv.Name)
	for i, name := range mv.Params {
		p.sym.AddLocal(name, args[i])
	}
	p.dir.push(CondFrame{Kind: CondInvokingMacro, ReturnPos: returnPos, SavedFrameDepth: depth})
	return p.seekTo(mv.Start)
}

// parseMacroArg implements the by-reference special case: a bare
// identifier naming an existing symbol, with nothing else composing an
// expression around it, is passed as a ParameterRef rather than a copy
// (§4.4 step 3, §9 "outstanding references").
func (p *Parser) parseMacroArg() (Value, error) {
	t1, err := p.lex.Next()
	if err != nil {
		return Value{}, err
	}
	if t1.Ref != nil {
		t2, err := p.lex.Peek()
		if err != nil {
			return Value{}, err
		}
		if t2.Kind == TokenPunct && (t2.Text == "," || t2.Text == ")") {
			entry := t1.Ref
			owner := p.sym.OwnerDepth(entry)
			if owner < 0 {
				return Value{}, NewSymbolError(t1.Pos, "cannot take a reference to %q", t1.Text)
			}
			return MakeParameterRef(p.sym.FrameAt(owner), t1.Text, entry), nil
		}
	}
	p.lex.Unget(t1)
	v, err := p.eval.EvalExpr()
	if err != nil {
		return Value{}, err
	}
	return v.Copy(), nil
}

// expectIdentifierName consumes a plain or type-promoted identifier
// token and returns its spelling, used throughout the directive
// processor for names following #declare/#local/#macro/etc.
func (p *Parser) expectIdentifierName() (string, error) {
	t, err := p.lex.Next()
	if err != nil {
		return "", err
	}
	switch t.Kind {
	case TokenIdentifier, TokenFloatID, TokenVectorID, TokenColorID, TokenStringID,
		TokenTransformID, TokenObjectID, TokenTextureID, TokenPigmentID, TokenNormalID,
		TokenFinishID, TokenFunctionID, TokenMacroID, TokenDictionaryID, TokenArrayID, TokenFileID:
		return t.Text, nil
	default:
		return "", NewParseError(t.Pos, "expected an identifier, found %q", t.Text)
	}
}

// expectOp consumes a specific punctuation token, failing otherwise.
func (p *Parser) expectOp(text string) error {
	t, err := p.lex.Next()
	if err != nil {
		return err
	}
	if t.Kind != TokenPunct || t.Text != text {
		return NewParseError(t.Pos, "expected %q, found %q", text, t.Text)
	}
	return nil
}

// expectStmtEnd consumes the trailing ';' most directives require.
func (p *Parser) expectStmtEnd() error {
	return p.expectOp(";")
}

// currentStreamPos bookmarks the lexer's current read position (§9).
func (p *Parser) currentStreamPos() streamPosition {
	return p.lex.CurrentStreamPos()
}

// seekTo restores the lexer to a previously captured bookmark (§9).
func (p *Parser) seekTo(pos streamPosition) error {
	return p.lex.Seek(pos)
}
