package interp

import (
	"io"
	"os"
)

// FilePurpose tags why the parser is asking the environment to resolve
// or open a path (§6.5): an #include, a #fopen data file, or a
// height_field/image-indexed resource the external scene-graph module
// will itself open.
type FilePurpose int

const (
	PurposeInclude FilePurpose = iota
	PurposeDataFile
	PurposeResource
)

// IncludeResolver is the environment collaborator of §6.5: given a
// relative path and a purpose tag, it returns an absolute path.
type IncludeResolver interface {
	Resolve(path string, purpose FilePurpose) (string, error)
}

// StreamFactory is the other environment collaborator of §6.5: given a
// resolved path, it returns a readable or writable text stream.
type StreamFactory interface {
	OpenRead(path string) (io.ReadCloser, error)
	OpenWrite(path string, mode FileMode) (io.WriteCloser, error)
}

// OSEnvironment is the default IncludeResolver/StreamFactory pair,
// resolving against the real filesystem relative to a configured set of
// search directories — the simplest environment that satisfies §6.5
// without pulling in any file-system search logic (explicitly a
// Non-goal, §1).
type OSEnvironment struct {
	SearchPaths []string
}

func (e *OSEnvironment) Resolve(path string, _ FilePurpose) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	for _, dir := range e.SearchPaths {
		candidate := dir + string(os.PathSeparator) + path
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return path, nil
}

func (e *OSEnvironment) OpenRead(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

func (e *OSEnvironment) OpenWrite(path string, mode FileMode) (io.WriteCloser, error) {
	flag := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if mode == FileAppend {
		flag = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	return os.OpenFile(path, flag, 0o644)
}

// Options configures a Compiler, following the teacher's Options{Stdin,
// Stdout, Stderr, Args, Env, ...} shape (interp.Options in
// breadchris-yaegi/interp/interp.go).
type Options struct {
	// Version is the declared #version default consulted before the
	// scene file overrides it with its own #version directive (§9 open
	// question: one canonical default set).
	Version string

	// StrictRedefine turns a tag-changing #declare redefinition from a
	// silent replace into a warning (§4.2 "Redefinition").
	StrictRedefine bool

	// ExperimentalFlags lists language extensions allowed without
	// triggering the "experimental feature used" diagnostic (§6.4).
	ExperimentalFlags []string

	// LegacyComments enables nestable /* */ comments (§4.1).
	LegacyComments bool

	Includes IncludeResolver
	Streams  StreamFactory

	Stdout io.Writer
	Stderr io.Writer
}

// CurrentLanguageVersion is the compiled-in default scene-language
// version, compared against a scene's #version directive via
// golang.org/x/mod/semver (see directive.go).
const CurrentLanguageVersion = "3.8.0"

// Compiler is the top-level entry point, analogous to the teacher's
// *interp.Interpreter: it owns the include-path resolver, stream
// factory, and experimental-flag set, and exposes Compile as the
// moral equivalent of Interpreter.Eval.
type Compiler struct {
	opt            Options
	experimental   map[string]bool
	usedExperiment map[string]bool
	diags          Diagnostics
}

// New returns a new Compiler, defaulting unset Options fields the way
// interp.New defaults Stdin/Stdout/Stderr/Args.
func New(opt Options) *Compiler {
	c := &Compiler{opt: opt, experimental: map[string]bool{}, usedExperiment: map[string]bool{}}
	if c.opt.Version == "" {
		c.opt.Version = CurrentLanguageVersion
	}
	if c.opt.Stdout == nil {
		c.opt.Stdout = os.Stdout
	}
	if c.opt.Stderr == nil {
		c.opt.Stderr = os.Stderr
	}
	if c.opt.Includes == nil {
		c.opt.Includes = &OSEnvironment{}
	}
	if c.opt.Streams == nil {
		c.opt.Streams = &OSEnvironment{}
	}
	for _, f := range opt.ExperimentalFlags {
		c.experimental[f] = true
	}
	return c
}

// Diagnostics returns every warning/error accumulated by the most recent
// Compile call.
func (c *Compiler) Diagnostics() []Diagnostic { return c.diags.All() }

// Compile parses and directive-processes src under streamName, routing
// every top-level scene statement to scene (§2). A nil scene still
// fully exercises directives, the symbol table, and the expression
// evaluator; it only rejects a bare scene-graph statement at the top
// level.
func (c *Compiler) Compile(streamName string, src []byte, scene SceneBuilder) (*SymbolTable, error) {
	c.diags = Diagnostics{}
	p := NewParser(c, streamName, src)
	if scene != nil {
		p.SetScene(scene)
	}
	if err := p.Run(); err != nil {
		return p.SymbolTable(), err
	}
	return p.SymbolTable(), nil
}

// markExperimentalUse records use of an experimental/beta language
// extension so a summary warning can be emitted at end of parsing
// (§6.4).
func (c *Compiler) markExperimentalUse(feature string, pos SourcePosition) {
	c.usedExperiment[feature] = true
	if !c.experimental[feature] {
		c.diags.Warn(pos, "use of experimental feature %q (enable via ExperimentalFlags to silence)", feature)
	}
}
