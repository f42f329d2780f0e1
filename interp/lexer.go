package interp

import (
	"fmt"
	"io"
	"strings"
)

// maxIncludeDepth bounds the stack of open input streams (§3.1).
const maxIncludeDepth = 32

// braceKind distinguishes the three bracket families the lexer tracks so
// that a mismatched closer can report its opener's position (§4.1).
type braceKind int

const (
	braceCurly braceKind = iota
	braceParen
	braceAngle
)

type openBrace struct {
	kind braceKind
	pos  SourcePosition
}

// inputStream is one entry of the lexer's include stack (§3.1, §4.1).
type inputStream struct {
	name   string
	data   []byte
	offset int
	line   int
	col    int
}

func (s *inputStream) pos() SourcePosition {
	return SourcePosition{File: s.name, Line: s.line, Column: s.col, Offset: s.offset}
}

func (s *inputStream) eof() bool { return s.offset >= len(s.data) }

func (s *inputStream) peekByte() byte {
	if s.eof() {
		return 0
	}
	return s.data[s.offset]
}

func (s *inputStream) advance() byte {
	c := s.data[s.offset]
	s.offset++
	if c == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return c
}

// LookupFn resolves an identifier spelling against the live symbol
// table, letting the lexer promote a plain identifier token to a typed
// *_ID token class (§4.1, §9 "context sensitive lexing"). It is injected
// by the parser rather than owned by the lexer, per the §9 design note.
type LookupFn func(name string) *SymbolEntry

// SkipState reports whether the directive processor's condition stack
// (§4.3) currently wants tokens suppressed; the lexer consults it on
// every call to decide whether to actually tokenize or fast-skip.
type SkipState func() bool

// Lexer converts a chain of text streams into a token stream (§4.1). It
// owns no symbol-table or condition-stack state itself: both are
// injected via LookupFn/SkipState at construction, matching the
// decoupling direction recommended by §9.
type Lexer struct {
	streams  []*inputStream
	braces   []openBrace
	lookahead []Token
	lookup   LookupFn
	skip     SkipState
	resolver IncludeResolver
	streamsF StreamFactory
	diags    *Diagnostics
	legacy   bool // nestable block comments, pre-3.5 compatibility mode
}

// NewLexer creates a Lexer over the given root source. name is used for
// diagnostics and as the base of relative #include resolution.
func NewLexer(name string, src []byte, diags *Diagnostics, resolver IncludeResolver, sf StreamFactory) *Lexer {
	src = stripBOM(src)
	l := &Lexer{
		diags:    diags,
		resolver: resolver,
		streamsF: sf,
	}
	l.streams = []*inputStream{{name: name, data: src, line: 1, col: 1}}
	return l
}

func stripBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}

// SetLookup installs the identifier-resolution callback (§9).
func (l *Lexer) SetLookup(fn LookupFn) { l.lookup = fn }

// SetSkip installs the directive-processor skip predicate (§9).
func (l *Lexer) SetSkip(fn SkipState) { l.skip = fn }

func (l *Lexer) top() *inputStream {
	if len(l.streams) == 0 {
		return nil
	}
	return l.streams[len(l.streams)-1]
}

// PushInclude opens path as a new top-of-stack input stream (§4.1).
func (l *Lexer) PushInclude(path string) error {
	if len(l.streams) >= maxIncludeDepth {
		return NewResourceError(l.Pos(), "#include nesting exceeds %d levels", maxIncludeDepth)
	}
	resolved := path
	if l.resolver != nil {
		var err error
		resolved, err = l.resolver.Resolve(path, PurposeInclude)
		if err != nil {
			return NewIOError(l.Pos(), "cannot resolve include %q: %v", path, err)
		}
	}
	var data []byte
	if l.streamsF != nil {
		r, err := l.streamsF.OpenRead(resolved)
		if err != nil {
			return NewIOError(l.Pos(), "cannot open include %q: %v", resolved, err)
		}
		defer r.Close()
		b, err := io.ReadAll(r)
		if err != nil {
			return NewIOError(l.Pos(), "cannot read include %q: %v", resolved, err)
		}
		data = b
	}
	l.streams = append(l.streams, &inputStream{name: resolved, data: stripBOM(data), line: 1, col: 1})
	return nil
}

// PopInclude closes the current top-of-stack stream, returning to its
// parent. It is a no-op (returns false) at the root stream.
func (l *Lexer) PopInclude() bool {
	if len(l.streams) <= 1 {
		return false
	}
	l.streams = l.streams[:len(l.streams)-1]
	return true
}

// Pos reports the current position in the active stream.
func (l *Lexer) Pos() SourcePosition {
	if s := l.top(); s != nil {
		return s.pos()
	}
	return SourcePosition{}
}

// CurrentStreamPos captures a bookmark to the active stream's current
// read position, used by the directive processor to remember the start
// of a #while/#for body or a #macro definition (§9 "seek by (stream-id,
// byte-offset) pairs").
func (l *Lexer) CurrentStreamPos() streamPosition {
	s := l.top()
	if s == nil {
		return streamPosition{}
	}
	return streamPosition{Stream: s.name, Offset: s.offset, Line: s.line, Col: s.col}
}

// Seek restores the lexer to a previously captured bookmark. The target
// stream must still be open somewhere on the include stack (a macro or
// loop body may never cross an #include boundary outward); any streams
// pushed above it are popped first, and the pending one-token lookahead
// buffer is discarded since it may hold a token read from a now-stale
// position.
func (l *Lexer) Seek(pos streamPosition) error {
	for i := len(l.streams) - 1; i >= 0; i-- {
		if l.streams[i].name == pos.Stream {
			l.streams = l.streams[:i+1]
			s := l.streams[i]
			s.offset, s.line, s.col = pos.Offset, pos.Line, pos.Col
			l.lookahead = nil
			return nil
		}
	}
	return NewParseError(l.Pos(), "cannot seek back into closed stream %q", pos.Stream)
}

// Unget pushes back up to one token so the next Next() call returns it
// again (§4.1: lookahead depth one).
func (l *Lexer) Unget(t Token) {
	l.lookahead = append(l.lookahead, t)
}

// Peek returns the next token without consuming it.
func (l *Lexer) Peek() (Token, error) {
	t, err := l.Next()
	if err != nil {
		return t, err
	}
	l.Unget(t)
	return t, nil
}

// Next returns the next token, expanding includes, skipping whitespace
// and comments, and honoring the injected SkipState (§4.1, §4.3).
func (l *Lexer) Next() (Token, error) {
	if n := len(l.lookahead); n > 0 {
		t := l.lookahead[n-1]
		l.lookahead = l.lookahead[:n-1]
		return t, nil
	}
	for {
		t, err := l.scanOne()
		if err != nil {
			return Token{}, err
		}
		if t.Kind == TokenEOF {
			if l.PopInclude() {
				continue
			}
			return t, nil
		}
		if l.skip != nil && l.skip() && t.Kind != TokenDirective {
			// While skipping (inside a false #if/#while branch etc.), the
			// directive processor still wants to see directive tokens
			// themselves so it can track nested #if/#end; everything
			// else is discarded here rather than handed to the parser.
			continue
		}
		return t, nil
	}
}

func (l *Lexer) skipWhitespaceAndComments() error {
	s := l.top()
	for !s.eof() {
		c := s.peekByte()
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			s.advance()
		case c == '/' && s.offset+1 < len(s.data) && s.data[s.offset+1] == '/':
			for !s.eof() && s.peekByte() != '\n' {
				s.advance()
			}
		case c == '/' && s.offset+1 < len(s.data) && s.data[s.offset+1] == '*':
			if err := l.skipBlockComment(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
	return nil
}

func (l *Lexer) skipBlockComment() error {
	s := l.top()
	start := s.pos()
	s.advance() // '/'
	s.advance() // '*'
	depth := 1
	for depth > 0 {
		if s.eof() {
			return NewLexError(start, "unterminated block comment")
		}
		if s.peekByte() == '/' && s.offset+1 < len(s.data) && s.data[s.offset+1] == '*' && l.legacy {
			s.advance()
			s.advance()
			depth++
			continue
		}
		if s.peekByte() == '*' && s.offset+1 < len(s.data) && s.data[s.offset+1] == '/' {
			s.advance()
			s.advance()
			depth--
			continue
		}
		s.advance()
	}
	return nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (l *Lexer) scanOne() (Token, error) {
	if err := l.skipWhitespaceAndComments(); err != nil {
		return Token{}, err
	}
	s := l.top()
	if s.eof() {
		return Token{Kind: TokenEOF, Pos: s.pos()}, nil
	}
	c := s.peekByte()

	switch {
	case c == '#':
		return l.scanDirective()
	case c == '"':
		return l.scanString()
	case isDigit(c) || (c == '.' && s.offset+1 < len(s.data) && isDigit(s.data[s.offset+1])):
		return l.scanNumber()
	case isIdentStart(c):
		return l.scanIdentifier()
	default:
		return l.scanPunct()
	}
}

func (l *Lexer) scanDirective() (Token, error) {
	s := l.top()
	pos := s.pos()
	s.advance() // '#'
	if s.eof() || !isIdentStart(s.peekByte()) {
		return Token{}, NewLexError(pos, "'#' not followed by a directive keyword")
	}
	start := s.offset
	for !s.eof() && isIdentCont(s.peekByte()) {
		s.advance()
	}
	word := string(s.data[start:s.offset])
	return Token{Kind: TokenDirective, Text: word, Pos: pos}, nil
}

func (l *Lexer) scanString() (Token, error) {
	s := l.top()
	pos := s.pos()
	s.advance() // opening quote
	var units []uint16
	for {
		if s.eof() {
			return Token{}, NewLexError(pos, "unterminated string literal")
		}
		c := s.advance()
		if c == '"' {
			break
		}
		if c != '\\' {
			units = append(units, encodeUCS2(string(rune(c)))...)
			continue
		}
		if s.eof() {
			return Token{}, NewLexError(pos, "unterminated escape sequence")
		}
		e := s.advance()
		switch e {
		case 'n':
			units = append(units, '\n')
		case 'r':
			units = append(units, '\r')
		case 't':
			units = append(units, '\t')
		case '"':
			units = append(units, '"')
		case '\\':
			units = append(units, '\\')
		case 'u':
			if s.offset+4 > len(s.data) {
				return Token{}, NewLexError(pos, "incomplete \\u escape")
			}
			hex := string(s.data[s.offset : s.offset+4])
			for i := 0; i < 4; i++ {
				s.advance()
			}
			u, err := decodeEscapedUnicode(hex)
			if err != nil {
				return Token{}, NewLexError(pos, "invalid \\u escape %q", hex)
			}
			units = append(units, u)
		default:
			return Token{}, NewLexError(pos, "invalid escape sequence \\%c", e)
		}
	}
	return Token{Kind: TokenString, String: units, Pos: pos, Text: decodeUCS2(units)}, nil
}

func (l *Lexer) scanNumber() (Token, error) {
	s := l.top()
	pos := s.pos()
	start := s.offset
	if s.peekByte() == '+' || s.peekByte() == '-' {
		s.advance()
	}
	for !s.eof() && isDigit(s.peekByte()) {
		s.advance()
	}
	if !s.eof() && s.peekByte() == '.' {
		// greedily consume digits.digits; a trailing '.' with no digit
		// following reverts to an integer token, per §4.1.
		if s.offset+1 < len(s.data) && isDigit(s.data[s.offset+1]) {
			s.advance()
			for !s.eof() && isDigit(s.peekByte()) {
				s.advance()
			}
		}
	}
	if !s.eof() && (s.peekByte() == 'e' || s.peekByte() == 'E') {
		save := s.offset
		saveLine, saveCol := s.line, s.col
		s.advance()
		if !s.eof() && (s.peekByte() == '+' || s.peekByte() == '-') {
			s.advance()
		}
		if s.eof() || !isDigit(s.peekByte()) {
			s.offset, s.line, s.col = save, saveLine, saveCol
		} else {
			for !s.eof() && isDigit(s.peekByte()) {
				s.advance()
			}
		}
	}
	text := string(s.data[start:s.offset])
	var f float64
	if _, err := fmt.Sscanf(text, "%g", &f); err != nil {
		return Token{}, NewLexError(pos, "malformed numeric literal %q", text)
	}
	return Token{Kind: TokenFloat, Float: f, Text: text, Pos: pos}, nil
}

func (l *Lexer) scanIdentifier() (Token, error) {
	s := l.top()
	pos := s.pos()
	start := s.offset
	for !s.eof() && isIdentCont(s.peekByte()) {
		s.advance()
	}
	word := string(s.data[start:s.offset])
	lower := strings.ToLower(word)
	if reservedWords[lower] {
		return Token{Kind: TokenReserved, Text: lower, Pos: pos}, nil
	}
	tok := Token{Kind: TokenIdentifier, Text: word, Pos: pos}
	if l.lookup != nil {
		if entry := l.lookup(word); entry != nil {
			tok.Ref = entry
			tok.Kind = tokenKindForTag(entry.Value.Tag)
		}
	}
	return tok, nil
}

func tokenKindForTag(tag Tag) TokenKind {
	switch tag {
	case TagScalar:
		return TokenFloatID
	case TagVector2, TagVector3, TagVector4:
		return TokenVectorID
	case TagColor:
		return TokenColorID
	case TagString:
		return TokenStringID
	case TagTransform:
		return TokenTransformID
	case TagObject:
		return TokenObjectID
	case TagTexture:
		return TokenTextureID
	case TagPigment:
		return TokenPigmentID
	case TagNormal:
		return TokenNormalID
	case TagFinish:
		return TokenFinishID
	case TagFunction:
		return TokenFunctionID
	case TagMacro:
		return TokenMacroID
	case TagDictionary:
		return TokenDictionaryID
	case TagArray:
		return TokenArrayID
	case TagFileHandle:
		return TokenFileID
	default:
		return TokenIdentifier
	}
}

var twoCharPunct = map[string]bool{
	"<=": true, ">=": true, "!=": true, "&&": true, "||": true,
}

func (l *Lexer) scanPunct() (Token, error) {
	s := l.top()
	pos := s.pos()
	c := s.advance()
	text := string(c)
	if !s.eof() {
		two := text + string(s.peekByte())
		if twoCharPunct[two] {
			s.advance()
			text = two
		}
	}
	switch c {
	case '{':
		l.braces = append(l.braces, openBrace{braceCurly, pos})
	case '}':
		if err := l.popBrace(braceCurly, pos); err != nil {
			return Token{}, err
		}
	case '(':
		l.braces = append(l.braces, openBrace{braceParen, pos})
	case ')':
		if err := l.popBrace(braceParen, pos); err != nil {
			return Token{}, err
		}
	case '<':
		if text == "<" {
			l.braces = append(l.braces, openBrace{braceAngle, pos})
		}
	case '>':
		if text == ">" && len(l.braces) > 0 && l.braces[len(l.braces)-1].kind == braceAngle {
			l.braces = l.braces[:len(l.braces)-1]
		}
	}
	return Token{Kind: TokenPunct, Text: text, Pos: pos}, nil
}

func (l *Lexer) popBrace(kind braceKind, pos SourcePosition) error {
	if len(l.braces) == 0 {
		return NewParseError(pos, "unmatched closing bracket")
	}
	if top := l.braces[len(l.braces)-1]; top.kind != kind {
		return NewParseError(pos, "unmatched closing bracket; innermost open bracket is at %s", top.pos)
	}
	l.braces = l.braces[:len(l.braces)-1]
	return nil
}

// OpenBracePositions exposes the unmatched opener positions, used to
// produce "missing '}'" diagnostics pointing at the original opener
// (§4.5 "Failure").
func (l *Lexer) OpenBracePositions() []SourcePosition {
	out := make([]SourcePosition, len(l.braces))
	for i, b := range l.braces {
		out[i] = b.pos
	}
	return out
}
