package interp

import (
	"fmt"

	"golang.org/x/mod/semver"
)

// CondKind enumerates the condition-stack states of §4.3.
type CondKind int

const (
	CondRoot CondKind = iota
	CondWhile
	CondFor
	CondIfTrue
	CondIfFalse
	CondElse
	CondSwitch
	CondCaseTrue
	CondCaseFalse
	CondSkipToEnd
	CondInvokingMacro
	CondDecryingMacro
)

func (k CondKind) String() string {
	names := [...]string{
		"Root", "WhileCond", "ForCond", "IfTrue", "IfFalse", "Else",
		"Switch", "CaseTrue", "CaseFalse", "SkipToEnd", "InvokingMacro",
		"DecryingMacro",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "?"
}

// CondFrame is one entry of the directive processor's condition stack
// (§4.3).
type CondFrame struct {
	Kind CondKind

	// WhileCond / ForCond
	LoopStart streamPosition // bookmark to seek back to for the next iteration
	LoopVar   string
	LoopEnd   float64
	LoopStep  float64

	// Switch
	SwitchValue float64
	CaseMatched bool // whether any #case/#range has matched yet in this switch

	// InvokingMacro
	ReturnPos       streamPosition
	SavedFrameDepth int
}

// Directives drives the directive processor of §4.3: it owns the
// condition stack and consults/mutates the Lexer's skip state and the
// SymbolTable on every "#"-prefixed token the main driver loop routes to
// it.
type Directives struct {
	cond  []CondFrame
	p     *Parser
	files map[string]*FileHandle
}

func newDirectives(p *Parser) *Directives {
	return &Directives{p: p, files: map[string]*FileHandle{}}
}

// Skipping reports whether the lexer should currently suppress ordinary
// tokens, consulted by Lexer.Next via the injected SkipState (§9).
func (d *Directives) Skipping() bool {
	if len(d.cond) == 0 {
		return false
	}
	switch d.cond[len(d.cond)-1].Kind {
	case CondIfFalse, CondElse, CondCaseFalse, CondSkipToEnd, CondDecryingMacro:
		return true
	default:
		return false
	}
}

func (d *Directives) push(f CondFrame) { d.cond = append(d.cond, f) }

func (d *Directives) pop() (CondFrame, bool) {
	if len(d.cond) == 0 {
		return CondFrame{}, false
	}
	f := d.cond[len(d.cond)-1]
	d.cond = d.cond[:len(d.cond)-1]
	return f, true
}

func (d *Directives) top() *CondFrame {
	if len(d.cond) == 0 {
		return nil
	}
	return &d.cond[len(d.cond)-1]
}

// Dispatch handles one directive keyword already consumed from the
// lexer (the leading "#" and keyword text), driving the lexer/evaluator/
// symbol table as needed (§4.3).
func (d *Directives) Dispatch(kw Token) error {
	if d.Skipping() {
		switch kw.Text {
		case "if", "ifdef", "ifndef", "while", "for", "switch", "macro":
			// A nested construct opened inside a branch we already know
			// is dead: its contents are unreachable regardless of how
			// its own condition would evaluate, and the tokens that
			// would feed that evaluation are themselves being discarded
			// by the lexer's skip filter (§9). Consume it whole.
			return d.scanToMatchingEnd()
		case "else", "end", "case", "range", "default", "break":
			// These close or transition whatever frame is causing the
			// skip (or an enclosing #switch's arm) and must still run
			// their real handler to keep the condition stack in sync.
		default:
			// An ordinary statement (#declare, #include, ...) inside a
			// dead branch: its body tokens are already discarded by the
			// lexer's skip filter, so there is nothing to do.
			return nil
		}
	}
	switch kw.Text {
	case "declare", "local":
		return d.handleDeclare(kw)
	case "undef":
		return d.handleUndef(kw)
	case "include":
		return d.handleInclude(kw)
	case "version":
		return d.handleVersion(kw)
	case "if":
		return d.handleIf(kw)
	case "ifdef":
		return d.handleIfdef(kw, true)
	case "ifndef":
		return d.handleIfdef(kw, false)
	case "else":
		return d.handleElse(kw)
	case "end":
		return d.handleEnd(kw)
	case "while":
		return d.handleWhile(kw)
	case "for":
		return d.handleFor(kw)
	case "break":
		return d.handleBreak(kw)
	case "switch":
		return d.handleSwitch(kw)
	case "case":
		return d.handleCase(kw)
	case "range":
		return d.handleRange(kw)
	case "default":
		return d.handleDefaultCase(kw)
	case "macro":
		return d.handleMacroDecl(kw)
	case "fopen":
		return d.handleFopen(kw)
	case "fclose":
		return d.handleFclose(kw)
	case "read":
		return d.handleRead(kw)
	case "write":
		return d.handleWrite(kw)
	case "debug":
		return d.handleDebug(kw)
	case "warning":
		return d.handleWarningDirective(kw)
	case "error":
		return d.handleErrorDirective(kw)
	case "charset":
		return d.handleCharset(kw)
	default:
		// A macro invocation is a bare macro name, routed by Parser.Run
		// rather than through Dispatch; the driver loop only calls Dispatch
		// for recognized DirectiveKeywords, so reaching here means the
		// lexer misclassified — report it as a parse error.
		return NewParseError(kw.Pos, "unknown directive #%s", kw.Text)
	}
}

func (d *Directives) handleDeclare(kw Token) error {
	name, err := d.p.expectIdentifierName()
	if err != nil {
		return err
	}
	if err := d.p.expectOp("="); err != nil {
		return err
	}
	v, err := d.p.eval.EvalExpr()
	if err != nil {
		return err
	}
	var tagChanged bool
	if kw.Text == "declare" {
		_, tagChanged = d.p.sym.AddGlobal(name, v.Copy())
	} else {
		_, tagChanged = d.p.sym.AddLocal(name, v.Copy())
	}
	if tagChanged && d.p.opt.StrictRedefine {
		d.p.diags.Warn(kw.Pos, "redeclaring %q with a different type", name)
	}
	return d.p.expectStmtEnd()
}

func (d *Directives) handleUndef(kw Token) error {
	name, err := d.p.expectIdentifierName()
	if err != nil {
		return err
	}
	d.p.sym.Remove(name)
	return d.p.expectStmtEnd()
}

func (d *Directives) handleInclude(kw Token) error {
	t, err := d.p.lex.Next()
	if err != nil {
		return err
	}
	if t.Kind != TokenString {
		return NewParseError(t.Pos, "#include expects a quoted file name")
	}
	return d.p.lex.PushInclude(StringOf(t.String))
}

func (d *Directives) handleVersion(kw Token) error {
	// #version also accepts the bare form "#version;" which re-asserts
	// the current default (used after #version unofficial or at EOF in
	// real scene files); only evaluate an expression when one follows.
	t, err := d.p.lex.Peek()
	if err != nil {
		return err
	}
	if t.Kind == TokenPunct && t.Text == ";" {
		d.p.lex.Next()
		return nil
	}
	v, err := d.p.eval.EvalExpr()
	if err != nil {
		return err
	}
	f, ok := scalarOf(v)
	if !ok {
		return NewTypeError(kw.Pos, "#version expects a numeric version")
	}
	declared := "v" + fmt.Sprintf("%.1f.0", f)
	current := "v" + d.p.opt.Version
	if !semver.IsValid(declared) {
		return NewParseError(kw.Pos, "malformed #version value %v", f)
	}
	if semver.Compare(declared, current) > 0 {
		d.p.diags.Warn(kw.Pos, "#version %v is newer than the compiler's %s", f, d.p.opt.Version)
	}
	d.p.activeVersion = declared
	return d.p.expectStmtEnd()
}

func (d *Directives) handleCharset(kw Token) error {
	d.p.diags.Warn(kw.Pos, "#charset is obsolete; input is always treated as UTF-8")
	_, err := d.p.lex.Next() // consume the charset name token
	if err != nil {
		return err
	}
	return d.p.expectStmtEnd()
}

func (d *Directives) handleIf(kw Token) error {
	v, err := d.p.eval.EvalExpr()
	if err != nil {
		return err
	}
	if asBool(v) {
		d.push(CondFrame{Kind: CondIfTrue})
	} else {
		d.push(CondFrame{Kind: CondIfFalse})
	}
	return nil
}

func (d *Directives) handleIfdef(kw Token, wantDefined bool) error {
	if err := d.p.expectOp("("); err != nil {
		return err
	}
	name, err := d.p.expectIdentifierName()
	if err != nil {
		return err
	}
	if err := d.p.expectOp(")"); err != nil {
		return err
	}
	_, defined := d.p.sym.Find(name)
	if defined == wantDefined {
		d.push(CondFrame{Kind: CondIfTrue})
	} else {
		d.push(CondFrame{Kind: CondIfFalse})
	}
	return nil
}

func (d *Directives) handleElse(kw Token) error {
	f, ok := d.pop()
	if !ok {
		return NewParseError(kw.Pos, "#else without matching #if")
	}
	switch f.Kind {
	case CondIfTrue:
		d.push(CondFrame{Kind: CondElse})
	case CondIfFalse:
		d.push(CondFrame{Kind: CondIfTrue})
	default:
		return NewParseError(kw.Pos, "#else inside unsupported construct %s", f.Kind)
	}
	return nil
}

func (d *Directives) handleEnd(kw Token) error {
	f, ok := d.pop()
	if !ok {
		return NewParseError(kw.Pos, "#end without matching opening directive")
	}
	switch f.Kind {
	case CondIfTrue, CondIfFalse, CondElse:
		return nil
	case CondSwitch:
		return nil
	case CondCaseTrue, CondCaseFalse:
		sf, ok := d.pop()
		if !ok || sf.Kind != CondSwitch {
			return NewParseError(kw.Pos, "#end inside #switch arm with no enclosing #switch")
		}
		return nil
	case CondSkipToEnd:
		return nil
	case CondWhile:
		if err := d.p.seekTo(f.LoopStart); err != nil {
			return err
		}
		v, err := d.p.eval.EvalExpr()
		if err != nil {
			return err
		}
		if asBool(v) {
			d.push(f)
		} else {
			d.push(CondFrame{Kind: CondSkipToEnd})
		}
		return nil
	case CondFor:
		return d.advanceFor(f)
	case CondInvokingMacro:
		d.p.sym.PopFrame()
		return d.p.seekTo(f.ReturnPos)
	case CondDecryingMacro:
		return nil
	default:
		return NewParseError(kw.Pos, "#end inside unsupported construct %s", f.Kind)
	}
}

func (d *Directives) advanceFor(f CondFrame) error {
	entry, ok := d.p.sym.Find(f.LoopVar)
	if !ok {
		return fmt.Errorf("#for loop variable %q vanished", f.LoopVar)
	}
	next := entry.Value.Scalar + f.LoopStep
	done := (f.LoopStep > 0 && next > f.LoopEnd) || (f.LoopStep < 0 && next < f.LoopEnd) || f.LoopStep == 0
	if done {
		return nil
	}
	d.p.sym.AddLocal(f.LoopVar, Value{Tag: TagScalar, Scalar: next})
	if err := d.p.seekTo(f.LoopStart); err != nil {
		return err
	}
	d.push(f)
	return nil
}

func (d *Directives) handleWhile(kw Token) error {
	pos := d.p.currentStreamPos()
	v, err := d.p.eval.EvalExpr()
	if err != nil {
		return err
	}
	if asBool(v) {
		d.push(CondFrame{Kind: CondWhile, LoopStart: pos})
	} else {
		d.push(CondFrame{Kind: CondSkipToEnd})
	}
	return nil
}

func (d *Directives) handleFor(kw Token) error {
	if err := d.p.expectOp("("); err != nil {
		return err
	}
	name, err := d.p.expectIdentifierName()
	if err != nil {
		return err
	}
	if err := d.p.expectOp(","); err != nil {
		return err
	}
	startV, err := d.p.eval.EvalExpr()
	if err != nil {
		return err
	}
	if err := d.p.expectOp(","); err != nil {
		return err
	}
	endV, err := d.p.eval.EvalExpr()
	if err != nil {
		return err
	}
	step := 1.0
	t, err := d.p.lex.Peek()
	if err != nil {
		return err
	}
	if t.Kind == TokenPunct && t.Text == "," {
		d.p.lex.Next()
		stepV, err := d.p.eval.EvalExpr()
		if err != nil {
			return err
		}
		step, _ = scalarOf(stepV)
	}
	if err := d.p.expectOp(")"); err != nil {
		return err
	}
	start, _ := scalarOf(startV)
	end, _ := scalarOf(endV)
	d.p.sym.AddLocal(name, Value{Tag: TagScalar, Scalar: start})
	pos := d.p.currentStreamPos()
	done := (step > 0 && start > end) || (step < 0 && start < end) || step == 0
	if done {
		d.push(CondFrame{Kind: CondSkipToEnd})
		return nil
	}
	d.push(CondFrame{Kind: CondFor, LoopStart: pos, LoopVar: name, LoopEnd: end, LoopStep: step})
	return nil
}

func (d *Directives) handleBreak(kw Token) error {
	// unwind the innermost loop/switch-arm frame, turning it into a
	// no-op skip state so the matching #end does not restart the
	// iteration or fall into a later #case/#range/#default.
	for i := len(d.cond) - 1; i >= 0; i-- {
		switch d.cond[i].Kind {
		case CondWhile, CondFor:
			d.cond[i] = CondFrame{Kind: CondSkipToEnd}
			return nil
		case CondCaseTrue, CondCaseFalse:
			d.cond[i].Kind = CondCaseFalse
			for j := i - 1; j >= 0; j-- {
				if d.cond[j].Kind == CondSwitch {
					d.cond[j].CaseMatched = true
					break
				}
			}
			return nil
		case CondSwitch:
			d.cond[i].CaseMatched = true
			return nil
		}
	}
	return NewParseError(kw.Pos, "#break outside #while/#for/#switch")
}

// popCaseSwitchFrame closes the immediately preceding #case/#range/
// #default arm, if one is open on top of the condition stack, and
// returns the owning #switch frame beneath it — each new arm implicitly
// closes the previous one without its own #end, mirroring #else's
// pop-then-push transition between an #if's arms (§4.3 "#switch").
func (d *Directives) popCaseSwitchFrame(kw Token, directive string) (*CondFrame, error) {
	top := d.top()
	if top != nil && (top.Kind == CondCaseTrue || top.Kind == CondCaseFalse) {
		d.pop()
		top = d.top()
	}
	if top == nil || top.Kind != CondSwitch {
		return nil, NewParseError(kw.Pos, "#%s outside #switch", directive)
	}
	return top, nil
}

func (d *Directives) handleSwitch(kw Token) error {
	if err := d.p.expectOp("("); err != nil {
		return err
	}
	v, err := d.p.eval.EvalExpr()
	if err != nil {
		return err
	}
	if err := d.p.expectOp(")"); err != nil {
		return err
	}
	f, _ := scalarOf(v)
	d.push(CondFrame{Kind: CondSwitch, SwitchValue: f})
	return nil
}

func (d *Directives) handleCase(kw Token) error {
	top, err := d.popCaseSwitchFrame(kw, "case")
	if err != nil {
		return err
	}
	v, err := d.p.eval.EvalExpr()
	if err != nil {
		return err
	}
	f, _ := scalarOf(v)
	if !top.CaseMatched && f == top.SwitchValue {
		top.CaseMatched = true
		d.push(CondFrame{Kind: CondCaseTrue})
	} else {
		d.push(CondFrame{Kind: CondCaseFalse})
	}
	return nil
}

func (d *Directives) handleRange(kw Token) error {
	top, err := d.popCaseSwitchFrame(kw, "range")
	if err != nil {
		return err
	}
	lo, err := d.p.eval.EvalExpr()
	if err != nil {
		return err
	}
	if err := d.p.expectOp(","); err != nil {
		return err
	}
	hi, err := d.p.eval.EvalExpr()
	if err != nil {
		return err
	}
	lf, _ := scalarOf(lo)
	hf, _ := scalarOf(hi)
	if !top.CaseMatched && top.SwitchValue >= lf && top.SwitchValue <= hf {
		top.CaseMatched = true
		d.push(CondFrame{Kind: CondCaseTrue})
	} else {
		d.push(CondFrame{Kind: CondCaseFalse})
	}
	return nil
}

func (d *Directives) handleDefaultCase(kw Token) error {
	top, err := d.popCaseSwitchFrame(kw, "default")
	if err != nil {
		return err
	}
	if !top.CaseMatched {
		top.CaseMatched = true
		d.push(CondFrame{Kind: CondCaseTrue})
	} else {
		d.push(CondFrame{Kind: CondCaseFalse})
	}
	return nil
}

func (d *Directives) handleMacroDecl(kw Token) error {
	name, err := d.p.expectIdentifierName()
	if err != nil {
		return err
	}
	if err := d.p.expectOp("("); err != nil {
		return err
	}
	var params []string
	var optional []bool
	t, err := d.p.lex.Peek()
	if err != nil {
		return err
	}
	if !(t.Kind == TokenPunct && t.Text == ")") {
		for {
			pname, err := d.p.expectIdentifierName()
			if err != nil {
				return err
			}
			params = append(params, pname)
			nt, err := d.p.lex.Peek()
			if err != nil {
				return err
			}
			opt := false
			if nt.Kind == TokenPunct && nt.Text == "(" {
				// "(Optional Foo)"-style trailing modifier is not part of
				// core grammar; keep parity with plain optional marker.
				opt = true
			}
			optional = append(optional, opt)
			nt2, err := d.p.lex.Next()
			if err != nil {
				return err
			}
			if nt2.Kind == TokenPunct && nt2.Text == "," {
				continue
			}
			if nt2.Kind == TokenPunct && nt2.Text == ")" {
				break
			}
			return NewParseError(nt2.Pos, "expected ',' or ')' in macro parameter list")
		}
	} else {
		d.p.lex.Next()
	}
	pos := d.p.currentStreamPos()
	mv := &MacroValue{Name: name, Start: pos, Params: params, Optional: optional, DefSite: kw.Pos}
	d.p.sym.AddGlobal(name, Value{Tag: TagMacro, Macro: mv})
	// skip the macro body now; it is only executed on invocation.
	d.push(CondFrame{Kind: CondDecryingMacro})
	if err := d.scanToMatchingEnd(); err != nil {
		return err
	}
	d.pop()
	return nil
}

// scanToMatchingEnd consumes tokens (tracking nested #if/#ifdef/#ifndef/
// #while/#for/#macro/#switch openers) until the #end that matches the
// construct just opened, without executing or evaluating anything in
// between — used both to skip a #macro body (§4.3 "Macros") and to skip
// a nested conditional/loop/switch opened inside an already-dead branch,
// where its own condition tokens are unreachable regardless of how they
// would evaluate.
func (d *Directives) scanToMatchingEnd() error {
	depth := 1
	for depth > 0 {
		t, err := d.p.lex.Next()
		if err != nil {
			return err
		}
		if t.Kind == TokenEOF {
			return NewParseError(t.Pos, "unexpected end of file inside macro/conditional body")
		}
		if t.Kind != TokenDirective {
			continue
		}
		switch t.Text {
		case "if", "ifdef", "ifndef", "while", "for", "macro", "switch":
			depth++
		case "end":
			depth--
		}
	}
	return nil
}

func (d *Directives) handleFopen(kw Token) error {
	name, err := d.p.expectIdentifierName()
	if err != nil {
		return err
	}
	pathT, err := d.p.lex.Next()
	if err != nil {
		return err
	}
	if pathT.Kind != TokenString {
		return NewParseError(pathT.Pos, "#fopen expects a quoted path")
	}
	modeT, err := d.p.lex.Next()
	if err != nil {
		return err
	}
	var mode FileMode
	switch modeT.Text {
	case "read":
		mode = FileRead
	case "write":
		mode = FileWrite
	case "append":
		mode = FileAppend
	default:
		return NewParseError(modeT.Pos, "#fopen mode must be read, write, or append")
	}
	fh := &FileHandle{ID: newHandleID(), Path: StringOf(pathT.String), Mode: mode}
	if mode == FileRead {
		r, err := d.p.opt.Streams.OpenRead(fh.Path)
		if err != nil {
			return NewIOError(kw.Pos, "cannot open %q for reading: %v", fh.Path, err)
		}
		fh.Reader = newLineReader(r)
	} else {
		w, err := d.p.opt.Streams.OpenWrite(fh.Path, mode)
		if err != nil {
			return NewIOError(kw.Pos, "cannot open %q for writing: %v", fh.Path, err)
		}
		fh.Writer = w
	}
	d.files[name] = fh
	d.p.sym.AddGlobal(name, Value{Tag: TagFileHandle, File: fh})
	return d.p.expectStmtEnd()
}

func (d *Directives) handleFclose(kw Token) error {
	name, err := d.p.expectIdentifierName()
	if err != nil {
		return err
	}
	if fh, ok := d.files[name]; ok {
		fh.Close()
		delete(d.files, name)
	}
	d.p.sym.Remove(name)
	return d.p.expectStmtEnd()
}

func (d *Directives) handleRead(kw Token) error {
	if err := d.p.expectOp("("); err != nil {
		return err
	}
	handleName, err := d.p.expectIdentifierName()
	if err != nil {
		return err
	}
	fh, ok := d.files[handleName]
	if !ok {
		return NewIOError(kw.Pos, "%q is not an open file handle", handleName)
	}
	for {
		if err := d.p.expectOp(","); err != nil {
			return err
		}
		ident, err := d.p.expectIdentifierName()
		if err != nil {
			return err
		}
		line, eof := fh.Reader.readValue()
		if eof {
			d.p.sym.AddLocal(ident, Value{Tag: TagUndefined})
		} else {
			var f float64
			if _, serr := fmt.Sscanf(line, "%g", &f); serr == nil {
				d.p.sym.AddLocal(ident, Value{Tag: TagScalar, Scalar: f})
			} else {
				d.p.sym.AddLocal(ident, NewStringValue(line))
			}
		}
		t, err := d.p.lex.Peek()
		if err != nil {
			return err
		}
		if t.Kind == TokenPunct && t.Text == ")" {
			d.p.lex.Next()
			break
		}
	}
	return d.p.expectStmtEnd()
}

func (d *Directives) handleWrite(kw Token) error {
	if err := d.p.expectOp("("); err != nil {
		return err
	}
	handleName, err := d.p.expectIdentifierName()
	if err != nil {
		return err
	}
	fh, ok := d.files[handleName]
	if !ok {
		return NewIOError(kw.Pos, "%q is not an open file handle", handleName)
	}
	for {
		t, err := d.p.lex.Peek()
		if err != nil {
			return err
		}
		if t.Kind == TokenPunct && t.Text == ")" {
			d.p.lex.Next()
			break
		}
		if err := d.p.expectOp(","); err != nil {
			return err
		}
		v, err := d.p.eval.EvalExpr()
		if err != nil {
			return err
		}
		if fh.Writer != nil {
			fh.Writer.WriteString(v.String())
		}
	}
	return d.p.expectStmtEnd()
}

func (d *Directives) handleDebug(kw Token) error {
	v, err := d.p.eval.EvalExpr()
	if err != nil {
		return err
	}
	fmt.Fprint(d.p.opt.Stderr, v.String())
	return d.p.expectStmtEnd()
}

func (d *Directives) handleWarningDirective(kw Token) error {
	v, err := d.p.eval.EvalExpr()
	if err != nil {
		return err
	}
	d.p.diags.Warn(kw.Pos, "%s", v.String())
	return d.p.expectStmtEnd()
}

func (d *Directives) handleErrorDirective(kw Token) error {
	v, err := d.p.eval.EvalExpr()
	if err != nil {
		return err
	}
	return NewParseError(kw.Pos, "%s", v.String())
}
