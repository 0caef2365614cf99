package parser

import "fmt"

// Symbol is a label defined somewhere in the source, bound to the byte offset (header
// inclusive) of the instruction it prefixes.
type Symbol struct {
	Name       string
	Offset     uint32
	Defined    bool
	Span       Span
	References []Span
}

// SymbolTable maps label names to byte offsets. Built during the assembler's first pass;
// `call`/`jne` targets may reference a label before it is defined in source order, so
// Reference creates a placeholder entry that Define later fills in.
type SymbolTable struct {
	symbols map[string]*Symbol
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{symbols: make(map[string]*Symbol)}
}

// Define binds name to offset. Returns an error if name was already defined — BitBox has no
// notion of re-declaring a label.
func (st *SymbolTable) Define(name string, offset uint32, span Span) error {
	if sym, ok := st.symbols[name]; ok && sym.Defined {
		return fmt.Errorf("label %q already defined", name)
	}
	sym, ok := st.symbols[name]
	if !ok {
		sym = &Symbol{Name: name}
		st.symbols[name] = sym
	}
	sym.Offset = offset
	sym.Defined = true
	sym.Span = span
	return nil
}

// Reference records a use of name (from call/jne) so ResolveForwardReferences can report any
// label that is used but never defined.
func (st *SymbolTable) Reference(name string, span Span) {
	sym, ok := st.symbols[name]
	if !ok {
		sym = &Symbol{Name: name}
		st.symbols[name] = sym
	}
	sym.References = append(sym.References, span)
}

// Get returns the offset bound to name, or an error if it was never defined.
func (st *SymbolTable) Get(name string) (uint32, error) {
	sym, ok := st.symbols[name]
	if !ok || !sym.Defined {
		return 0, fmt.Errorf("unknown label %q", name)
	}
	return sym.Offset, nil
}

// ResolveForwardReferences returns the name of a referenced-but-undefined label (an arbitrary
// one if there are several), or
// "" if every reference resolved. Called once after the first pass completes.
func (st *SymbolTable) ResolveForwardReferences() string {
	for name, sym := range st.symbols {
		if len(sym.References) > 0 && !sym.Defined {
			return name
		}
	}
	return ""
}

// Lookup returns the symbol for name without requiring it to be defined, for diagnostics.
func (st *SymbolTable) Lookup(name string) (*Symbol, bool) {
	sym, ok := st.symbols[name]
	return sym, ok
}

// All returns every defined symbol, name to byte offset, for tooling (the debugger, the
// session service) that wants to resolve addresses back to label names.
func (st *SymbolTable) All() map[string]uint32 {
	out := make(map[string]uint32, len(st.symbols))
	for name, sym := range st.symbols {
		if sym.Defined {
			out[name] = sym.Offset
		}
	}
	return out
}
