package instr

import "fmt"

// NumRegisters is the fixed register file size; valid register indices are 0..31.
const NumRegisters = 32

// ErrRegisterOutOfBounds is returned (wrapped with context) whenever a register byte is >= 32,
// both at assembly time and at VM decode time, per the spec's "bounds error" requirement.
type ErrRegisterOutOfBounds struct {
	Index int
}

func (e *ErrRegisterOutOfBounds) Error() string {
	return fmt.Sprintf("register index %d out of bounds (must be < %d)", e.Index, NumRegisters)
}

// ValidRegister reports whether r is a legal register index.
func ValidRegister(r int) bool {
	return r >= 0 && r < NumRegisters
}
