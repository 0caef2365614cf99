// Package vm implements the BitBox fetch/decode/execute loop and its register, stack, and
// heap state: a flat, unconditional register file with no condition flags, no pipelined
// PC-in-register quirk, and a single unsegmented, unpermissioned heap.
package vm

import "github.com/bitbox-lang/bitbox/instr"

// Registers is the fixed 32-slot, 64-bit-unsigned register file.
type Registers struct {
	R [instr.NumRegisters]uint64
}

// Get returns the value of register r. Callers at the decode boundary are responsible for
// having already validated r < NumRegisters.
func (r *Registers) Get(reg uint8) uint64 {
	return r.R[reg]
}

// Set assigns the value of register reg.
func (r *Registers) Set(reg uint8, value uint64) {
	r.R[reg] = value
}

// Reset zeroes every register.
func (r *Registers) Reset() {
	for i := range r.R {
		r.R[i] = 0
	}
}
