package parser

import "github.com/bitbox-lang/bitbox/instr"

// Instruction is the parser's typed intermediate representation of one instruction: an
// opcode, a type tag, and operands in the form the opcode's family dictates. Labels are
// unresolved symbol names at this stage; the assembler resolves them to byte offsets.
type Instruction struct {
	Op    instr.Opcode
	Type  instr.Type
	Regs  [3]uint8 // meaningful count depends on Op.Form()
	Imm   []byte   // FormImm only: little-endian, len == Type.ByteWidth()
	Label string   // FormLabel/FormReg2Label only: unresolved symbol name
	Span  Span
}

// EncodedSize returns the instruction's size in bytes once assembled, including the
// opcode+type header.
func (i Instruction) EncodedSize() int {
	return instr.EncodedSize(i.Op, i.Type)
}

// LabelDef is a label binding that precedes a Text item.
type LabelDef struct {
	Name string
	Span Span
}

// Text is one assembly-level unit: an instruction plus the label (if any) bound to its
// starting offset.
type Text struct {
	Label *LabelDef
	Instr Instruction
}

// Program is the parser's complete output: the declared entry point plus the ordered
// sequence of text items.
type Program struct {
	EntryName string
	EntrySpan Span
	HasEntry  bool
	Items     []Text
}
