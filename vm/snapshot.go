package vm

import "github.com/bitbox-lang/bitbox/instr"

// RegisterSnapshot captures the register file at a point in time for change detection,
// used by the debugger to highlight which registers an instruction touched. pc is tracked
// separately from the register file, so it is not part of the snapshot.
type RegisterSnapshot struct {
	R [instr.NumRegisters]uint64
}

// Capture records the current contents of regs into the snapshot.
func (s *RegisterSnapshot) Capture(regs *Registers) {
	s.R = regs.R
}

// Changed returns the indices of registers that differ between s and other.
func (s *RegisterSnapshot) Changed(other *RegisterSnapshot) []int {
	var changed []int
	for i := range s.R {
		if s.R[i] != other.R[i] {
			changed = append(changed, i)
		}
	}
	return changed
}

// Get returns the snapshotted value of register reg, or 0 if reg is out of range.
func (s *RegisterSnapshot) Get(reg int) uint64 {
	if reg >= 0 && reg < len(s.R) {
		return s.R[reg]
	}
	return 0
}
