package interp

// TokenKind is the category tag carried by every Token (§3.1).
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenFloat
	TokenString
	TokenIdentifier
	TokenReserved
	TokenDirective // a "#"-prefixed keyword, e.g. #declare
	TokenPunct     // {, }, (, ), <, >, comma, semicolon, operators

	// Promoted identifier classes (§4.1 "lexer-symbol-table interface"):
	// once an identifier resolves in the symbol table to a known-type
	// value, its token is reclassified to one of these so the parser can
	// dispatch on kind alone.
	TokenFloatID
	TokenVectorID
	TokenColorID
	TokenStringID
	TokenTransformID
	TokenObjectID
	TokenTextureID
	TokenPigmentID
	TokenNormalID
	TokenFinishID
	TokenFunctionID
	TokenMacroID
	TokenDictionaryID
	TokenArrayID
	TokenFileID
)

func (k TokenKind) String() string {
	names := map[TokenKind]string{
		TokenEOF: "EOF", TokenFloat: "FLOAT", TokenString: "STRING",
		TokenIdentifier: "IDENTIFIER", TokenReserved: "RESERVED",
		TokenDirective: "DIRECTIVE", TokenPunct: "PUNCT",
		TokenFloatID: "FLOAT_ID", TokenVectorID: "VECTOR_ID",
		TokenColorID: "COLOR_ID", TokenStringID: "STRING_ID",
		TokenTransformID: "TRANSFORM_ID", TokenObjectID: "OBJECT_ID",
		TokenTextureID: "TEXTURE_ID", TokenPigmentID: "PIGMENT_ID",
		TokenNormalID: "NORMAL_ID", TokenFinishID: "FINISH_ID",
		TokenFunctionID: "FUNCTION_ID", TokenMacroID: "MACRO_ID",
		TokenDictionaryID: "DICTIONARY_ID", TokenArrayID: "ARRAY_ID",
		TokenFileID: "FILE_ID",
	}
	if n, ok := names[k]; ok {
		return n
	}
	return "?"
}

// Token carries a category tag, the literal text (identifier spelling,
// reserved word, or punctuation), the source position, and one literal
// payload depending on Kind (§3.1).
type Token struct {
	Kind   TokenKind
	Text   string // identifier spelling / reserved word / punctuation / directive name
	Pos    SourcePosition
	Float  float64
	String []uint16
	// Ref, when Kind has been promoted to one of the *ID kinds, points at
	// the resolved symbol so the parser does not need a second lookup.
	Ref *SymbolEntry
}

// reservedWords is consulted by the lexer's identifier scanner (§4.1).
// It intentionally only lists words that change parser behavior; plain
// scene keywords (sphere, box, ...) are recognized by the scene builder
// front-end instead, exactly as the spec separates "reserved word"
// classification from "scene keyword" dispatch in §2/§4.5.
var reservedWords = map[string]bool{
	"and": true, "or": true, "not": true,

	"red": true, "green": true, "blue": true, "filter": true, "transmit": true, "gray": true,

	"sin": true, "cos": true, "tan": true, "asin": true, "acos": true, "atan": true, "atan2": true,
	"sinh": true, "cosh": true, "tanh": true, "asinh": true, "acosh": true, "atanh": true,
	"pow": true, "log": true, "ln": true, "exp": true, "sqrt": true, "sqr": true, "abs": true,
	"floor": true, "ceil": true, "int": true, "mod": true, "div": true, "select": true,
	"min": true, "max": true, "radians": true, "degrees": true,
	"vlength": true, "vnormalize": true, "vdot": true, "vcross": true, "vrotate": true,
	"vaxis_rotate": true, "vturbulence": true,
	"str": true, "concat": true, "strlen": true, "substr": true, "strupr": true, "strlwr": true,
	"chr": true, "asc": true, "val": true, "datetime": true, "strcmp": true, "vstr": true,
	"rgb2hsv": true, "hsv2rgb": true,
	"rand": true, "seed": true, "clock": true, "defined": true, "dimensions": true, "dimension_size": true,

	"rgb": true, "rgbf": true, "rgbt": true, "rgbft": true, "function": true, "array": true,
}

// DirectiveKeywords lists every "#"-prefixed keyword the directive
// processor (§4.3) recognizes.
var DirectiveKeywords = map[string]bool{
	"declare": true, "local": true, "undef": true, "include": true, "version": true,
	"if": true, "ifdef": true, "ifndef": true, "else": true, "end": true,
	"while": true, "for": true, "break": true,
	"switch": true, "case": true, "range": true, "default": true,
	"macro": true, "fopen": true, "fclose": true, "read": true, "write": true,
	"debug": true, "warning": true, "error": true, "charset": true,
}
