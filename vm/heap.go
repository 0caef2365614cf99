package vm

import (
	"encoding/binary"
	"fmt"
)

// Heap is BitBox's single contiguous, monotonically-growable byte vector: aloc extends it,
// there is no free operation, no permissions, and no alignment requirement.
type Heap struct {
	data []byte
}

// Grow extends the heap by n zero bytes ("aloc r"). n==0 is a no-op.
func (h *Heap) Grow(n uint64) {
	if n == 0 {
		return
	}
	h.data = append(h.data, make([]byte, n)...)
}

// Len returns the current heap length in bytes.
func (h *Heap) Len() int {
	return len(h.data)
}

// StoreWidth writes value to the heap at addr using the given byte width (1/2/4/8),
// little-endian, growing the heap if addr+width exceeds its current length. This backs the
// `store` instruction, whose width is determined by the instruction's type tag.
func (h *Heap) StoreWidth(addr uint64, width int, value uint64) error {
	end := addr + uint64(width)
	if end > uint64(len(h.data)) {
		h.data = append(h.data, make([]byte, end-uint64(len(h.data)))...)
	}
	switch width {
	case 1:
		h.data[addr] = byte(value)
	case 2:
		binary.LittleEndian.PutUint16(h.data[addr:], uint16(value))
	case 4:
		binary.LittleEndian.PutUint32(h.data[addr:], uint32(value))
	case 8:
		binary.LittleEndian.PutUint64(h.data[addr:], value)
	default:
		return fmt.Errorf("unsupported store width %d", width)
	}
	return nil
}

// LoadWidth reads a little-endian value of the given byte width (1/2/4/8) at addr, without
// mutating the heap. The VM's instruction set has no heap-read opcode, so this exists purely
// for external observers — the debugger's `x`/`print` commands and watchpoint polling —
// that need to inspect heap contents the running program itself cannot read back.
func (h *Heap) LoadWidth(addr uint64, width int) (uint64, error) {
	end := addr + uint64(width)
	if end > uint64(len(h.data)) {
		return 0, fmt.Errorf("heap read at %d (width %d) exceeds heap length %d", addr, width, len(h.data))
	}
	switch width {
	case 1:
		return uint64(h.data[addr]), nil
	case 2:
		return uint64(binary.LittleEndian.Uint16(h.data[addr:])), nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(h.data[addr:])), nil
	case 8:
		return binary.LittleEndian.Uint64(h.data[addr:]), nil
	default:
		return 0, fmt.Errorf("unsupported load width %d", width)
	}
}

// Bytes returns a read-only view of length bytes starting at addr, for syscall 0 (write).
func (h *Heap) Bytes(addr, length uint64) ([]byte, error) {
	end := addr + length
	if end > uint64(len(h.data)) {
		return nil, fmt.Errorf("heap read [%d:%d] exceeds heap length %d", addr, end, len(h.data))
	}
	return h.data[addr:end], nil
}

// WriteByte writes a single byte at addr, growing the heap if needed. Used by argv seeding.
func (h *Heap) WriteByte(addr uint64, b byte) {
	if addr >= uint64(len(h.data)) {
		h.data = append(h.data, make([]byte, addr-uint64(len(h.data))+1)...)
	}
	h.data[addr] = b
}
