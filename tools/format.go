// Package tools provides source-level utilities for BitBox assembly: a formatter, a linter,
// and a cross-reference generator, all built on the parser's Program IR rather than
// re-parsing text themselves. The lexer discards comments, so the IR has none to preserve
// and the formatter cannot round-trip them.
package tools

import (
	"fmt"
	"strings"

	"github.com/bitbox-lang/bitbox/instr"
	"github.com/bitbox-lang/bitbox/parser"
)

// FormatStyle selects a formatting profile.
type FormatStyle int

const (
	FormatDefault FormatStyle = iota
	FormatCompact
	FormatExpanded
)

// FormatOptions controls the formatter's column layout.
type FormatOptions struct {
	Style             FormatStyle
	InstructionColumn int
	AlignOperands     bool
	IndentSize        int
}

// DefaultFormatOptions returns the standard layout: labels at column 0, instructions
// indented to column 2, one space between opcode and operands.
func DefaultFormatOptions() *FormatOptions {
	return &FormatOptions{
		Style:             FormatDefault,
		InstructionColumn: 2,
		AlignOperands:     true,
		IndentSize:        2,
	}
}

// CompactFormatOptions minimizes whitespace: no indentation, single spaces throughout.
func CompactFormatOptions() *FormatOptions {
	return &FormatOptions{Style: FormatCompact, InstructionColumn: 0, AlignOperands: false}
}

// ExpandedFormatOptions widens the indentation for readability.
func ExpandedFormatOptions() *FormatOptions {
	return &FormatOptions{Style: FormatExpanded, InstructionColumn: 4, AlignOperands: true, IndentSize: 4}
}

// Formatter pretty-prints a parsed BitBox program back into source form.
type Formatter struct {
	options *FormatOptions
}

// NewFormatter creates a Formatter. A nil options uses DefaultFormatOptions.
func NewFormatter(options *FormatOptions) *Formatter {
	if options == nil {
		options = DefaultFormatOptions()
	}
	return &Formatter{options: options}
}

// Format parses input and renders it back out in this formatter's style. Parse errors abort
// formatting — there is nothing sensible to print for a program that did not parse.
func (f *Formatter) Format(input, filename string) (string, error) {
	p, lexErr := parser.NewParser(input, filename)
	if lexErr != nil {
		return "", fmt.Errorf("lex error: %w", lexErr)
	}
	program, errs := p.Parse()
	if errs != nil {
		return "", fmt.Errorf("parse error: %w", errs)
	}

	var out strings.Builder
	fmt.Fprintf(&out, ".entry %s\n", program.EntryName)
	for _, item := range program.Items {
		if item.Label != nil {
			out.WriteString(item.Label.Name)
			out.WriteString(":\n")
		}
		f.formatInstruction(&out, item.Instr)
	}
	return out.String(), nil
}

func (f *Formatter) indent(out *strings.Builder) {
	if f.options.Style == FormatCompact {
		return
	}
	out.WriteString(strings.Repeat(" ", f.options.InstructionColumn))
}

func (f *Formatter) formatInstruction(out *strings.Builder, in parser.Instruction) {
	f.indent(out)
	out.WriteString(in.Op.String())
	switch in.Op.Form() {
	case instr.FormReg1, instr.FormReg2, instr.FormReg3, instr.FormImm:
		fmt.Fprintf(out, "[%s]", in.Type)
	}

	sep := " "

	switch in.Op.Form() {
	case instr.FormNoArgs:
		// nothing further
	case instr.FormReg1:
		fmt.Fprintf(out, "%s%%%d", sep, in.Regs[0])
	case instr.FormReg2:
		fmt.Fprintf(out, "%s%%%d %%%d", sep, in.Regs[0], in.Regs[1])
	case instr.FormReg3:
		fmt.Fprintf(out, "%s%%%d %%%d %%%d", sep, in.Regs[0], in.Regs[1], in.Regs[2])
	case instr.FormImm:
		fmt.Fprintf(out, "%s%%%d %d", sep, in.Regs[0], leUintForFormat(in.Imm))
	case instr.FormLabel:
		fmt.Fprintf(out, " %s", in.Label)
	case instr.FormReg2Label:
		fmt.Fprintf(out, "%s%%%d %%%d %s", sep, in.Regs[0], in.Regs[1], in.Label)
	}
	out.WriteByte('\n')
}

func leUintForFormat(b []byte) uint64 {
	var v uint64
	for i, by := range b {
		v |= uint64(by) << (8 * uint(i))
	}
	return v
}

// FormatString formats input with default options.
func FormatString(input, filename string) (string, error) {
	return NewFormatter(DefaultFormatOptions()).Format(input, filename)
}

// FormatStringWithStyle formats input with the named style.
func FormatStringWithStyle(input, filename string, style FormatStyle) (string, error) {
	var options *FormatOptions
	switch style {
	case FormatCompact:
		options = CompactFormatOptions()
	case FormatExpanded:
		options = ExpandedFormatOptions()
	default:
		options = DefaultFormatOptions()
	}
	return NewFormatter(options).Format(input, filename)
}
