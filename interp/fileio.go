package interp

import (
	"bufio"
	"io"

	"github.com/google/uuid"
)

// newHandleID mints a unique identifier for a #fopen'd file handle
// (§6.3 "Resource identity"), grounded on the
// pack's use of github.com/google/uuid for externally visible handle
// identity.
func newHandleID() string {
	return uuid.NewString()
}

// lineReader buffers a #fopen'd read-mode stream so #read can pull one
// line at a time without re-reading the whole file per call (§4.3
// "#read"). Several values on one line are not split apart.
type lineReader struct {
	sc *bufio.Scanner
}

func newLineReader(r io.Reader) *lineReader {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanLines)
	return &lineReader{sc: sc}
}

// readValue returns the next line without its line terminator (other
// whitespace is kept), or ("", true) once the stream is exhausted.
func (lr *lineReader) readValue() (string, bool) {
	if !lr.sc.Scan() {
		return "", true
	}
	return lr.sc.Text(), false
}
