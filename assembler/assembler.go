// Package assembler implements the two-pass symbol resolution and image serialization that
// turns the parser's typed IR into a binary image.
package assembler

import (
	"encoding/binary"
	"fmt"

	"github.com/bitbox-lang/bitbox/image"
	"github.com/bitbox-lang/bitbox/instr"
	"github.com/bitbox-lang/bitbox/parser"
)

// LabelError is returned when assembly references a label with no definition anywhere in
// the program.
type LabelError struct {
	Name string
	Span parser.Span
}

func (e *LabelError) Error() string {
	return fmt.Sprintf("unknown label %q", e.Name)
}

// Assembler performs the first-pass offset assignment and second-pass image emission.
type Assembler struct {
	program *parser.Program
	symbols *parser.SymbolTable
	offsets []uint32 // offsets[i] is the byte offset of program.Items[i], set by firstPass
}

func New(program *parser.Program) *Assembler {
	return &Assembler{program: program, symbols: parser.NewSymbolTable()}
}

// Assemble runs both passes and returns the complete image, or the first error
// encountered (missing entry label, duplicate label, or a reference to an undefined one).
func (a *Assembler) Assemble() ([]byte, error) {
	if err := a.firstPass(); err != nil {
		return nil, err
	}
	return a.secondPass()
}

// firstPass walks items in source order, assigning each one the byte offset equal to
// (header size + sum of sizes of preceding items), and records every labeled item's name
// in the symbol table. Encoded size depends solely on (opcode, type), so this pass never
// needs to look at operand values.
func (a *Assembler) firstPass() error {
	offset := uint32(image.HeaderSize)
	a.offsets = make([]uint32, len(a.program.Items))
	for i, item := range a.program.Items {
		if item.Label != nil {
			if err := a.symbols.Define(item.Label.Name, offset, item.Label.Span); err != nil {
				return err
			}
		}
		a.offsets[i] = offset
		offset += uint32(item.Instr.EncodedSize())
	}
	return nil
}

// secondPass emits the header followed by each instruction's bytes in source order.
func (a *Assembler) secondPass() ([]byte, error) {
	entryOffset, err := a.symbols.Get(a.program.EntryName)
	if err != nil {
		return nil, &LabelError{Name: a.program.EntryName, Span: a.program.EntrySpan}
	}

	var code []byte
	for _, item := range a.program.Items {
		bytes, err := a.encodeInstruction(item.Instr)
		if err != nil {
			return nil, err
		}
		code = append(code, bytes...)
	}

	header := image.Encode(image.Header{TextLength: uint32(len(code)), EntryOffset: entryOffset})
	return append(header, code...), nil
}

// encodeInstruction writes one instruction's opcode, type, and operand bytes in the
// deterministic order its form defines.
func (a *Assembler) encodeInstruction(in parser.Instruction) ([]byte, error) {
	buf := []byte{byte(in.Op), byte(in.Type)}

	switch in.Op.Form() {
	case instr.FormNoArgs:
		// nothing further
	case instr.FormReg1:
		buf = append(buf, in.Regs[0])
	case instr.FormReg2:
		buf = append(buf, in.Regs[0], in.Regs[1])
	case instr.FormReg3:
		buf = append(buf, in.Regs[0], in.Regs[1], in.Regs[2])
	case instr.FormImm:
		buf = append(buf, in.Regs[0])
		buf = append(buf, in.Imm...)
	case instr.FormLabel:
		target, err := a.symbols.Get(in.Label)
		if err != nil {
			return nil, &LabelError{Name: in.Label, Span: in.Span}
		}
		var targetBytes [4]byte
		binary.LittleEndian.PutUint32(targetBytes[:], target)
		buf = append(buf, targetBytes[:]...)
	case instr.FormReg2Label:
		target, err := a.symbols.Get(in.Label)
		if err != nil {
			return nil, &LabelError{Name: in.Label, Span: in.Span}
		}
		var targetBytes [4]byte
		binary.LittleEndian.PutUint32(targetBytes[:], target)
		buf = append(buf, in.Regs[0], in.Regs[1])
		buf = append(buf, targetBytes[:]...)
	}

	return buf, nil
}

// Symbols exposes the resolved symbol table, useful for debugger/service tooling that
// wants to map addresses back to label names.
func (a *Assembler) Symbols() *parser.SymbolTable {
	return a.symbols
}

// InstructionOffsets returns the byte offset assigned to each of Program.Items, in the
// same order, for tooling (the debugger, the session service) that needs to map a pc back
// to the source line that produced the instruction there. Valid only after Assemble (or
// firstPass) has run.
func (a *Assembler) InstructionOffsets() []uint32 {
	return a.offsets
}
