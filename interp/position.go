package interp

import "fmt"

// SourcePosition locates a byte within one of the parser's open input
// streams: the originating file name, 1-based line and column, and the
// raw byte offset from the start of that stream.
type SourcePosition struct {
	File   string
	Line   int
	Column int
	Offset int
}

func (p SourcePosition) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// IsValid reports whether p was ever set by the lexer, as opposed to the
// zero value used by synthetic nodes (builtins, default values).
func (p SourcePosition) IsValid() bool {
	return p.Line > 0
}
