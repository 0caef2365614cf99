package tools

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bitbox-lang/bitbox/instr"
	"github.com/bitbox-lang/bitbox/parser"
)

// ReferenceType indicates how a label is used: a label is either the thing .entry names, a
// call target, or a jne branch target.
type ReferenceType int

const (
	RefDefinition ReferenceType = iota
	RefEntry
	RefCall
	RefBranch
)

func (r ReferenceType) String() string {
	switch r {
	case RefDefinition:
		return "definition"
	case RefEntry:
		return "entry"
	case RefCall:
		return "call"
	case RefBranch:
		return "branch"
	default:
		return "unknown"
	}
}

// Reference is a single use or definition site of a label.
type Reference struct {
	Type ReferenceType
	Row  int
	Col  int
}

// Symbol is a label and every place it is defined and referenced.
type Symbol struct {
	Name       string
	Definition *Reference
	References []*Reference
	IsEntry    bool
}

// XRefGenerator builds a cross-reference table from a parsed program: collectDefinitions
// walks Items for LabelDef, collectReferences walks Items for FormLabel/FormReg2Label
// instructions plus the program's entry declaration.
type XRefGenerator struct {
	program *parser.Program
	symbols map[string]*Symbol
}

func NewXRefGenerator() *XRefGenerator {
	return &XRefGenerator{symbols: make(map[string]*Symbol)}
}

// Generate parses input and returns the label→Symbol cross-reference table.
func (x *XRefGenerator) Generate(input, filename string) (map[string]*Symbol, error) {
	p, lexErr := parser.NewParser(input, filename)
	if lexErr != nil {
		return nil, fmt.Errorf("lex error: %w", lexErr)
	}
	program, errs := p.Parse()
	if errs != nil {
		return nil, fmt.Errorf("parse error: %w", errs)
	}

	x.program = program
	x.collectDefinitions()
	x.collectReferences()
	return x.symbols, nil
}

func (x *XRefGenerator) symbol(name string) *Symbol {
	sym, ok := x.symbols[name]
	if !ok {
		sym = &Symbol{Name: name}
		x.symbols[name] = sym
	}
	return sym
}

func (x *XRefGenerator) collectDefinitions() {
	for _, item := range x.program.Items {
		if item.Label == nil {
			continue
		}
		sym := x.symbol(item.Label.Name)
		sym.Definition = &Reference{Type: RefDefinition, Row: item.Label.Span.RowStart, Col: item.Label.Span.ColStart}
		if item.Label.Name == x.program.EntryName {
			sym.IsEntry = true
		}
	}
}

func (x *XRefGenerator) collectReferences() {
	if x.program.HasEntry {
		sym := x.symbol(x.program.EntryName)
		sym.IsEntry = true
		sym.References = append(sym.References, &Reference{
			Type: RefEntry,
			Row:  x.program.EntrySpan.RowStart,
			Col:  x.program.EntrySpan.ColStart,
		})
	}

	for _, item := range x.program.Items {
		switch item.Instr.Op.Form() {
		case instr.FormLabel:
			refType := RefBranch
			if item.Instr.Op == instr.Call {
				refType = RefCall
			}
			sym := x.symbol(item.Instr.Label)
			sym.References = append(sym.References, &Reference{Type: refType, Row: item.Instr.Span.RowStart, Col: item.Instr.Span.ColStart})
		case instr.FormReg2Label:
			sym := x.symbol(item.Instr.Label)
			sym.References = append(sym.References, &Reference{Type: RefBranch, Row: item.Instr.Span.RowStart, Col: item.Instr.Span.ColStart})
		}
	}
}

// XRefReport renders a Generate result as a human-readable text report.
type XRefReport struct {
	symbols []*Symbol
}

func NewXRefReport(symbols map[string]*Symbol) *XRefReport {
	sorted := make([]*Symbol, 0, len(symbols))
	for _, sym := range symbols {
		sorted = append(sorted, sym)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return &XRefReport{symbols: sorted}
}

func (r *XRefReport) String() string {
	var sb strings.Builder
	sb.WriteString("Label Cross-Reference\n")
	sb.WriteString("======================\n\n")

	for _, sym := range r.symbols {
		fmt.Fprintf(&sb, "%-24s", sym.Name)
		if sym.IsEntry {
			sb.WriteString(" [entry]")
		}
		sb.WriteString("\n")

		if sym.Definition != nil {
			fmt.Fprintf(&sb, "  Defined:    line %d\n", sym.Definition.Row+1)
		} else {
			sb.WriteString("  Defined:    (undefined)\n")
		}

		if len(sym.References) == 0 {
			sb.WriteString("  Referenced: (never)\n")
		} else {
			byType := make(map[ReferenceType][]*Reference)
			for _, ref := range sym.References {
				byType[ref.Type] = append(byType[ref.Type], ref)
			}
			for _, refType := range []ReferenceType{RefEntry, RefCall, RefBranch} {
				refs := byType[refType]
				if len(refs) == 0 {
					continue
				}
				lines := make([]string, len(refs))
				for i, ref := range refs {
					lines[i] = fmt.Sprintf("%d", ref.Row+1)
				}
				fmt.Fprintf(&sb, "    %-8s: line(s) %s\n", refType, strings.Join(lines, ", "))
			}
		}
		sb.WriteByte('\n')
	}

	total, defined, unused := len(r.symbols), 0, 0
	for _, sym := range r.symbols {
		if sym.Definition != nil {
			defined++
		}
		if len(sym.References) == 0 {
			unused++
		}
	}
	fmt.Fprintf(&sb, "Total labels: %d, defined: %d, undefined: %d, unreferenced: %d\n",
		total, defined, total-defined, unused)
	return sb.String()
}
