// Package instr defines the opcode, type tag, and operand-form vocabulary shared by the
// parser, assembler, and VM packages.
package instr

import "fmt"

// Opcode is a single byte identifying a BitBox instruction. Numbering is part of the wire
// format and must stay stable between the assembler and the VM.
type Opcode uint8

const (
	Load     Opcode = 0
	Store    Opcode = 1
	Copy     Opcode = 2
	Aloc     Opcode = 3
	Push     Opcode = 4
	Pop      Opcode = 5
	Add      Opcode = 6
	Sub      Opcode = 7
	Div      Opcode = 8
	Mul      Opcode = 9
	Inc      Opcode = 10
	Eq       Opcode = 11
	Jne      Opcode = 12
	Hult     Opcode = 13
	PrintReg Opcode = 14
	Call     Opcode = 15
	And      Opcode = 16
	Or       Opcode = 17
	Shr      Opcode = 18
	Return   Opcode = 19
	Syscall  Opcode = 20
)

// Form describes the operand shape an instruction carries. Modeled as a tagged variant
// rather than a class hierarchy: encoding size and decode both switch on Form.
type Form int

const (
	FormNoArgs Form = iota
	FormReg1
	FormReg2
	FormReg3
	FormImm
	FormLabel
	FormReg2Label
)

// mnemonics maps every reserved word to its opcode. Built once; used by both the lexer's
// keyword table and diagnostics.
var mnemonics = map[string]Opcode{
	"load":     Load,
	"store":    Store,
	"copy":     Copy,
	"aloc":     Aloc,
	"push":     Push,
	"pop":      Pop,
	"add":      Add,
	"sub":      Sub,
	"div":      Div,
	"mul":      Mul,
	"inc":      Inc,
	"eq":       Eq,
	"jne":      Jne,
	"hult":     Hult,
	"printreg": PrintReg,
	"call":     Call,
	"and":      And,
	"or":       Or,
	"shr":      Shr,
	"return":   Return,
	"syscall":  Syscall,
}

var names = func() map[Opcode]string {
	m := make(map[Opcode]string, len(mnemonics))
	for name, op := range mnemonics {
		m[op] = name
	}
	return m
}()

// Lookup returns the opcode for a reserved word and whether it is one.
func Lookup(word string) (Opcode, bool) {
	op, ok := mnemonics[word]
	return op, ok
}

// String returns the mnemonic for an opcode, or a hex fallback for unknown values.
func (o Opcode) String() string {
	if name, ok := names[o]; ok {
		return name
	}
	return fmt.Sprintf("opcode(0x%02x)", uint8(o))
}

// Valid reports whether the byte is a known opcode (0..20).
func (o Opcode) Valid() bool {
	_, ok := names[o]
	return ok
}

// Form returns the operand shape for the opcode family. Panics on an opcode that was not
// checked with Valid first — callers at the decode boundary must validate first.
func (o Opcode) Form() Form {
	switch o {
	case Hult, Return, Syscall:
		return FormNoArgs
	case Push, Pop, Inc, PrintReg, Aloc:
		return FormReg1
	case Store, Copy:
		return FormReg2
	case Add, Sub, Div, Mul, Eq, And, Or, Shr:
		return FormReg3
	case Load:
		return FormImm
	case Call:
		return FormLabel
	case Jne:
		return FormReg2Label
	default:
		panic(fmt.Sprintf("instr: Form called on unknown opcode %d", o))
	}
}

// OperandSize returns the number of operand bytes following the opcode+type header for the
// given form. For FormImm the width depends on the type tag's byte width.
func OperandSize(form Form, t Type) int {
	switch form {
	case FormNoArgs:
		return 0
	case FormReg1:
		return 1
	case FormReg2:
		return 2
	case FormReg3:
		return 3
	case FormImm:
		return 1 + t.ByteWidth()
	case FormLabel:
		return 4
	case FormReg2Label:
		return 6
	default:
		panic("instr: unknown operand form")
	}
}

// EncodedSize returns the total byte size of an instruction with the given opcode and type,
// including the 1-byte opcode and 1-byte type header.
func EncodedSize(op Opcode, t Type) int {
	return 2 + OperandSize(op.Form(), t)
}
