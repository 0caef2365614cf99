package vm

import "fmt"

// SyscallWrite is the single syscall number BitBox defines: write a buffer from the heap to
// stdout.
const SyscallWrite = 0

// dispatchSyscall implements the "syscall" instruction. R0 selects the syscall number; for
// SyscallWrite, R1 is the heap pointer and R2 the length.
//
// A malformed read (pointer+length past the heap) is a VM-integrity error and halts the run
// rather than continuing on a bad request.
func (v *VM) dispatchSyscall() error {
	num := v.Registers.Get(0)
	switch num {
	case SyscallWrite:
		ptr := v.Registers.Get(1)
		length := v.Registers.Get(2)
		data, err := v.Heap.Bytes(ptr, length)
		if err != nil {
			return fmt.Errorf("syscall write: %w", err)
		}
		if _, err := v.Stdout.Write(data); err != nil {
			return fmt.Errorf("syscall write: %w", err)
		}
		v.flush()
		return nil
	default:
		return fmt.Errorf("unknown syscall number %d", num)
	}
}
