package vm_test

import (
	"bytes"
	"testing"

	"github.com/bitbox-lang/bitbox/image"
	"github.com/bitbox-lang/bitbox/instr"
	"github.com/bitbox-lang/bitbox/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildImage assembles a minimal image with a single instruction's raw bytes appended as
// the entry point's code, for tests that need to drive the VM's decode boundary directly
// rather than going through the assembler.
func buildImage(code []byte) []byte {
	h := image.Header{TextLength: uint32(len(code)), EntryOffset: image.HeaderSize}
	return append(image.Encode(h), code...)
}

func TestInvalidOpcodeIsFatal(t *testing.T) {
	img := buildImage([]byte{0xFF, 0x00})
	machine := vm.New(img, image.HeaderSize)
	assert.Error(t, machine.Run())
}

func TestInvalidTypeIsFatal(t *testing.T) {
	img := buildImage([]byte{byte(instr.Load), 0x7F, 0x00, 0x00})
	machine := vm.New(img, image.HeaderSize)
	assert.Error(t, machine.Run())
}

func TestRegisterOutOfBoundsAtDecodeIsFatal(t *testing.T) {
	// push[u32] %32 -- register byte 32 is one past the valid range.
	img := buildImage([]byte{byte(instr.Push), byte(instr.NewType(false, 32)), 32})
	machine := vm.New(img, image.HeaderSize)
	assert.Error(t, machine.Run())
}

func TestStackUnderflowOnReturn(t *testing.T) {
	img := buildImage([]byte{byte(instr.Return), 0x00})
	machine := vm.New(img, image.HeaderSize)
	assert.Error(t, machine.Run())
}

func TestAlocZeroIsNoop(t *testing.T) {
	u64 := instr.NewType(false, 64)
	code := []byte{
		byte(instr.Load), byte(u64), 0x00, // reg 0
		0, 0, 0, 0, 0, 0, 0, 0, // imm 0
		byte(instr.Aloc), byte(u64), 0x00, // aloc %0 (0 bytes)
		byte(instr.Hult), 0x00,
	}
	img := buildImage(code)
	machine := vm.New(img, image.HeaderSize)
	require.NoError(t, machine.Run())
	assert.Equal(t, 0, machine.Heap.Len())
}

func TestRegisterIsolation(t *testing.T) {
	u8 := instr.NewType(false, 8)
	code := []byte{
		byte(instr.Load), byte(u8), 0x00, 100,
		byte(instr.Hult), 0x00,
	}
	img := buildImage(code)
	machine := vm.New(img, image.HeaderSize)
	require.NoError(t, machine.Run())
	assert.Equal(t, uint64(100), machine.Registers.Get(0))
	for r := 1; r < instr.NumRegisters; r++ {
		assert.Equal(t, uint64(0), machine.Registers.Get(uint8(r)), "register %d", r)
	}
}

func TestSeedArgv(t *testing.T) {
	img := buildImage([]byte{byte(instr.Hult), 0x00})
	machine := vm.New(img, image.HeaderSize)
	machine.SeedArgv([]string{"one", "two"})

	assert.Equal(t, uint64(2), machine.Registers.Get(0))
	require.Len(t, machine.Stack, 2)

	top := machine.Stack[len(machine.Stack)-1]
	offset := uint32(top)
	length := uint32(top >> 32)
	data, err := machine.Heap.Bytes(uint64(offset), uint64(length))
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))
}

func TestPrintRegWritesDecimal(t *testing.T) {
	u32 := instr.NewType(false, 32)
	code := []byte{
		byte(instr.Load), byte(u32), 0x00, 42, 0, 0, 0,
		byte(instr.PrintReg), byte(u32), 0x00,
		byte(instr.Hult), 0x00,
	}
	img := buildImage(code)
	machine := vm.New(img, image.HeaderSize)
	var out bytes.Buffer
	machine.Stdout = &out
	require.NoError(t, machine.Run())
	assert.Equal(t, "42\n", out.String())
}
