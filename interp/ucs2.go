package interp

import (
	"encoding/binary"
	"unicode/utf16"

	"golang.org/x/text/encoding/unicode"
)

// ucs2Encoding pins down the transformation used for the String value
// lattice member (§3.2: "String (UCS-2)"). We use golang.org/x/text's
// UTF-16 codec (UCS-2 is its BMP-only subset) rather than hand rolling
// surrogate-pair math, matching the teacher's habit of reaching for an
// x/... package instead of a stdlib-only encoder.
var ucs2Encoding = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// encodeUCS2 converts a Go (UTF-8) string into UCS-2 code units, as
// produced by string literal lexing (§4.1) and #read (§4.3), via
// ucs2Encoding's transform.Encoder so the byte-level codec, not a
// hand-rolled utf16 call, is what actually runs on this path.
func encodeUCS2(s string) []uint16 {
	b, err := ucs2Encoding.NewEncoder().Bytes([]byte(s))
	if err != nil {
		// a lone unpaired surrogate can reach here from a malformed
		// \uXXXX escape; fall back to utf16's permissive encoding
		// rather than dropping the string value entirely.
		return utf16.Encode([]rune(s))
	}
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return units
}

// decodeUCS2 converts UCS-2 code units back into a Go string, used
// whenever a string value crosses the builder interface (§6.3) or is
// written by #write (§4.3), via ucs2Encoding's transform.Decoder.
func decodeUCS2(units []uint16) string {
	b := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(b[i*2:], u)
	}
	out, err := ucs2Encoding.NewDecoder().Bytes(b)
	if err != nil {
		return string(utf16.Decode(units))
	}
	return string(out)
}

// decodeEscapedUnicode turns a lexed "\uXXXX" escape (§4.1) into its
// UCS-2 code unit by parsing the hex digits directly; the shared codec
// is not used here.
func decodeEscapedUnicode(hex string) (uint16, error) {
	var v uint32
	for _, c := range hex {
		v <<= 4
		switch {
		case c >= '0' && c <= '9':
			v |= uint32(c - '0')
		case c >= 'a' && c <= 'f':
			v |= uint32(c-'a') + 10
		case c >= 'A' && c <= 'F':
			v |= uint32(c-'A') + 10
		default:
			return 0, errInvalidUnicodeEscape
		}
	}
	return uint16(v), nil
}

var errInvalidUnicodeEscape = newUCS2Error("invalid \\u escape")

type ucs2Error struct{ msg string }

func (e *ucs2Error) Error() string  { return e.msg }
func newUCS2Error(msg string) error { return &ucs2Error{msg} }
