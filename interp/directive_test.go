package interp

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"
)

// memoryArchive is an IncludeResolver/StreamFactory pair backed by a
// txtar fixture (each "-- name --" section becomes one includable
// file), letting #include tests exercise multi-file fixtures without
// touching the real filesystem.
type memoryArchive struct {
	files map[string][]byte
}

func newMemoryArchive(txt string) *memoryArchive {
	a := txtar.Parse([]byte(txt))
	files := make(map[string][]byte, len(a.Files))
	for _, f := range a.Files {
		files[f.Name] = f.Data
	}
	return &memoryArchive{files: files}
}

func (m *memoryArchive) Resolve(path string, _ FilePurpose) (string, error) {
	if _, ok := m.files[path]; !ok {
		return "", fmt.Errorf("no such fixture file %q", path)
	}
	return path, nil
}

func (m *memoryArchive) OpenRead(path string) (io.ReadCloser, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("no such fixture file %q", path)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryArchive) OpenWrite(path string, mode FileMode) (io.WriteCloser, error) {
	return nil, fmt.Errorf("memoryArchive is read-only")
}

func TestIncludeDirectivePullsInDeclarations(t *testing.T) {
	arc := newMemoryArchive(`
-- colors.inc --
#declare red_tint = rgb <1, 0, 0>;
-- main.pov --
#include "colors.inc"
#declare c = red_tint + rgb <0, 1, 0>;
`)
	c := New(Options{Includes: arc, Streams: arc})
	sym, err := c.Compile("main.pov", arc.files["main.pov"], nil)
	require.NoError(t, err)
	e, ok := sym.Find("c")
	require.True(t, ok)
	require.Equal(t, TagColor, e.Value.Tag)
	assert.Equal(t, 1.0, e.Value.Col.Red)
	assert.Equal(t, 1.0, e.Value.Col.Green)
}

func TestIncludeMissingFileIsIOError(t *testing.T) {
	arc := newMemoryArchive(`
-- main.pov --
#include "missing.inc"
`)
	c := New(Options{Includes: arc, Streams: arc})
	_, err := c.Compile("main.pov", arc.files["main.pov"], nil)
	require.Error(t, err)
	var ioErr *IOError
	assert.ErrorAs(t, err, &ioErr)
}
