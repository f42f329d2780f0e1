package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scanAll drains a fresh lexer over src with no lookup/skip injected,
// returning every token up to and including TokenEOF.
func scanAll(t *testing.T, src string) []Token {
	t.Helper()
	var diags Diagnostics
	lex := NewLexer("lex_test.pov", []byte(src), &diags, nil, nil)
	var toks []Token
	for {
		tok, err := lex.Next()
		require.NoError(t, err)
		toks = append(toks, tok)
		if tok.Kind == TokenEOF {
			break
		}
	}
	return toks
}

func TestLexerTokenizesPunctFloatIdentifier(t *testing.T) {
	toks := scanAll(t, "box { <0,0,0>, 1 }")
	var kinds []TokenKind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []TokenKind{
		TokenIdentifier, TokenPunct, TokenPunct,
		TokenFloat, TokenPunct, TokenFloat, TokenPunct, TokenFloat, TokenPunct,
		TokenPunct, TokenFloat, TokenPunct, TokenEOF,
	}, kinds)
}

func TestLexerPositionsPartitionSource(t *testing.T) {
	// §8 property 1: every non-whitespace, non-comment byte belongs to
	// exactly one token's [Offset, Offset+len(Text)) span, and spans are
	// emitted in non-decreasing offset order with no overlap.
	src := "#declare x = 1 + 2; // trailing\n#declare y = x * 3;\n"
	toks := scanAll(t, src)
	prevEnd := -1
	for _, tok := range toks {
		if tok.Kind == TokenEOF {
			continue
		}
		require.GreaterOrEqual(t, tok.Pos.Offset, prevEnd, "token %q at %d overlaps previous span ending %d", tok.Text, tok.Pos.Offset, prevEnd)
		prevEnd = tok.Pos.Offset + len(tok.Text)
	}
}

func TestLexerUnterminatedStringIsLexError(t *testing.T) {
	var diags Diagnostics
	lex := NewLexer("lex_test.pov", []byte(`#declare s = "never closed`), &diags, nil, nil)
	var err error
	for {
		var tok Token
		tok, err = lex.Next()
		if err != nil || tok.Kind == TokenEOF {
			break
		}
	}
	require.Error(t, err)
	var lexErr *LexError
	assert.ErrorAs(t, err, &lexErr)
}

func TestLexerMismatchedBraceReportsOpenerPosition(t *testing.T) {
	var diags Diagnostics
	lex := NewLexer("lex_test.pov", []byte("box { <0,0,0>, 1 )"), &diags, nil, nil)
	var err error
	for {
		var tok Token
		tok, err = lex.Next()
		if err != nil || tok.Kind == TokenEOF {
			break
		}
	}
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lex_test.pov:1:5")
}

func TestLexerUngetReplaysExactToken(t *testing.T) {
	var diags Diagnostics
	lex := NewLexer("lex_test.pov", []byte("alpha beta"), &diags, nil, nil)
	first, err := lex.Next()
	require.NoError(t, err)
	assert.Equal(t, "alpha", first.Text)
	lex.Unget(first)
	replayed, err := lex.Next()
	require.NoError(t, err)
	assert.Equal(t, first, replayed)
	second, err := lex.Next()
	require.NoError(t, err)
	assert.Equal(t, "beta", second.Text)
}

func TestLexerDirectiveTokenKind(t *testing.T) {
	toks := scanAll(t, "#declare x = 1;")
	require.NotEmpty(t, toks)
	assert.Equal(t, TokenDirective, toks[0].Kind)
	assert.Equal(t, "declare", toks[0].Text)
}
