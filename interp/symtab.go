package interp

import "sort"

// SymbolEntry holds one binding in a Frame (§3.3): its name, a
// reference count protecting it from destruction while
// ParameterRefs still point at it, an optional deprecation notice, and
// its tagged value. Generation is bumped whenever the entry's storage is
// replaced or destroyed, so a stale ParameterRef can be diagnosed rather
// than silently reading replaced data (§9 "generational indices").
type SymbolEntry struct {
	Name       string
	Value      Value
	RefCount   int
	Generation uint64
	Deprecated bool
	DeprecMsg  string
}

// Frame is one scope on the symbol-table stack (§3.3). A Dictionary
// value's child scope is itself a *Frame, so dictionaries participate in
// `.key` lookups as ordinary frames without being visible to plain name
// lookup (§4.2).
type Frame struct {
	entries map[string]*SymbolEntry
	order   []string // insertion order, for deterministic dictionary iteration
	global  bool
	// macroFrame, when set, names the macro whose invocation pushed this
	// frame — used only for diagnostics.
	macroFrame string
}

func newFrame(global bool) *Frame {
	return &Frame{entries: map[string]*SymbolEntry{}, global: global}
}

func (f *Frame) lookupLocal(name string) (*SymbolEntry, bool) {
	e, ok := f.entries[name]
	return e, ok
}

func (f *Frame) set(name string, v Value) *SymbolEntry {
	if e, ok := f.entries[name]; ok {
		e.Value = v
		e.Generation++
		return e
	}
	e := &SymbolEntry{Name: name, Value: v, Generation: 1}
	f.entries[name] = e
	f.order = append(f.order, name)
	return e
}

func (f *Frame) remove(name string) {
	if _, ok := f.entries[name]; !ok {
		return
	}
	delete(f.entries, name)
	for i, n := range f.order {
		if n == name {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}

// SortedNames returns entry names in alphabetical order, for
// deterministic dictionary iteration.
func (f *Frame) SortedNames() []string {
	out := append([]string(nil), f.order...)
	sort.Strings(out) // dictionaries iterate by key, not insertion, per most scene usages
	return out
}

func (f *Frame) deepCopy() *Frame {
	nf := newFrame(false)
	for _, name := range f.order {
		e := f.entries[name]
		nf.set(name, e.Value.Copy())
	}
	return nf
}

// SymbolTable is the stack of nested scopes described in §3.3. Frame
// index 0 is always the global frame.
type SymbolTable struct {
	frames []*Frame
}

// NewSymbolTable returns a table with just the global frame pushed.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{frames: []*Frame{newFrame(true)}}
}

func (st *SymbolTable) Global() *Frame { return st.frames[0] }

// Innermost returns the frame new `#local` declarations write to: the
// nearest non-global frame, or the global frame itself if none is open
// (§4.2).
func (st *SymbolTable) Innermost() *Frame {
	return st.frames[len(st.frames)-1]
}

// PushFrame opens a new scope, e.g. for a macro invocation or an
// explicit #local block (§3.3).
func (st *SymbolTable) PushFrame(label string) *Frame {
	f := newFrame(false)
	f.macroFrame = label
	st.frames = append(st.frames, f)
	return f
}

// PopFrame closes the innermost scope, destroying every entry whose
// reference count has reached zero and leaving the rest to be reclaimed
// once their outstanding ParameterRefs are dropped (§3.3 invariants).
func (st *SymbolTable) PopFrame() {
	n := len(st.frames)
	if n <= 1 {
		return
	}
	f := st.frames[n-1]
	st.frames = st.frames[:n-1]
	for _, name := range f.order {
		e := f.entries[name]
		if e.RefCount <= 0 {
			e.Value.Destroy()
		}
	}
}

// Find searches frames innermost-outward and returns the first match
// (§3.3 invariant 1).
func (st *SymbolTable) Find(name string) (*SymbolEntry, bool) {
	for i := len(st.frames) - 1; i >= 0; i-- {
		if e, ok := st.frames[i].lookupLocal(name); ok {
			return e, true
		}
	}
	return nil, false
}

// AddGlobal writes to the global frame, implementing #declare (§4.2).
// If an entry by this name already exists with the same tag, its old
// value is destroyed and replaced; a tag change is allowed but the
// caller (directive processor) decides whether to warn under
// StrictRedefine.
func (st *SymbolTable) AddGlobal(name string, v Value) (entry *SymbolEntry, tagChanged bool) {
	g := st.Global()
	if old, ok := g.lookupLocal(name); ok {
		tagChanged = old.Value.Tag != v.Tag
		old.Value.Destroy()
	}
	return g.set(name, v), tagChanged
}

// AddLocal writes to the innermost non-global frame, implementing
// #local (§4.2).
func (st *SymbolTable) AddLocal(name string, v Value) (entry *SymbolEntry, tagChanged bool) {
	f := st.Innermost()
	if old, ok := f.lookupLocal(name); ok {
		tagChanged = old.Value.Tag != v.Tag
		old.Value.Destroy()
	}
	return f.set(name, v), tagChanged
}

// Remove deletes the innermost binding of name (searching frames
// innermost-outward), implementing #undef
// (§6.2, SPEC_FULL "Directive processor additions").
func (st *SymbolTable) Remove(name string) {
	for i := len(st.frames) - 1; i >= 0; i-- {
		if _, ok := st.frames[i].lookupLocal(name); ok {
			st.frames[i].remove(name)
			return
		}
	}
}

// Depth reports the number of currently open frames, used by the
// evaluator to decide whether an identifier reference crosses a macro
// boundary and should become a ParameterRef (§4.4 step 3).
func (st *SymbolTable) Depth() int { return len(st.frames) }

// FrameAt returns the frame at stack index i (0 = global).
func (st *SymbolTable) FrameAt(i int) *Frame { return st.frames[i] }

// OwnerDepth returns the stack index of the frame owning entry, or -1 if
// it cannot be located (already popped).
func (st *SymbolTable) OwnerDepth(entry *SymbolEntry) int {
	for i, f := range st.frames {
		for _, name := range f.order {
			if f.entries[name] == entry {
				return i
			}
		}
	}
	return -1
}

// MakeParameterRef installs a pass-by-reference handle to entry, used
// when a macro parameter slot receives an outer-scope identifier by
// reference instead of by copy (§4.4 step 3).
func MakeParameterRef(frame *Frame, name string, entry *SymbolEntry) Value {
	entry.RefCount++
	return Value{Tag: TagParameterRef, ParamRef: &ParameterRef{Frame: frame, Name: name, Generation: entry.Generation}}
}

// ResolveParameterRef dereferences a ParameterRef, returning an error if
// the referenced entry has since been replaced or destroyed (its
// generation has advanced past the one captured at reference-creation
// time), per the §9 "dangling access" design.
func ResolveParameterRef(ref *ParameterRef) (*SymbolEntry, bool) {
	e, ok := ref.Frame.lookupLocal(ref.Name)
	if !ok || e.Generation != ref.Generation {
		return nil, false
	}
	return e, true
}
