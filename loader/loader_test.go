package loader_test

import (
	"bytes"
	"testing"

	"github.com/bitbox-lang/bitbox/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, src string) *bytes.Buffer {
	t.Helper()
	img, err := loader.AssembleSource(src, "test.bb")
	require.NoError(t, err)

	machine, err := loader.LoadImage(img, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	machine.Stdout = &out
	require.NoError(t, machine.Run())
	return &out
}

func TestLoadAndHalt(t *testing.T) {
	run(t, ".entry main\nmain:\n  load[u8] %0 100\n  hult\n")
}

func TestPushPop(t *testing.T) {
	img, err := loader.AssembleSource(".entry main\nmain:\n  load[u32] %0 10\n  push[u32] %0\n  pop[u32] %1\n  hult\n", "t.bb")
	require.NoError(t, err)
	machine, err := loader.LoadImage(img, nil)
	require.NoError(t, err)
	require.NoError(t, machine.Run())
	assert.Equal(t, uint64(10), machine.Registers.Get(0))
	assert.Equal(t, uint64(10), machine.Registers.Get(1))
}

func TestArithmetic(t *testing.T) {
	img, err := loader.AssembleSource(".entry main\nmain:\n  load[u32] %0 123\n  load[u32] %1 321\n  add[u32] %2 %0 %1\n  hult\n", "t.bb")
	require.NoError(t, err)
	machine, err := loader.LoadImage(img, nil)
	require.NoError(t, err)
	require.NoError(t, machine.Run())
	assert.Equal(t, uint64(444), machine.Registers.Get(2))
}

func TestFibonacciLoop(t *testing.T) {
	src := `.entry main
main:
  load[u64] %0 1
  load[u64] %1 1
  load[u64] %2 93
  load[u64] %3 2
loop:
  push[u64] %1
  add[u64] %1 %0 %1
  pop[u64] %0
  inc[u64] %3
  jne %3 %2 loop
  hult
`
	img, err := loader.AssembleSource(src, "t.bb")
	require.NoError(t, err)
	machine, err := loader.LoadImage(img, nil)
	require.NoError(t, err)
	require.NoError(t, machine.Run())
	assert.Equal(t, uint64(12200160415121876738), machine.Registers.Get(1))
}

func TestCallReturn(t *testing.T) {
	src := `.entry main
my_add:
  add[u32] %0 %1 %0
  return
main:
  load[u32] %0 123
  load[u32] %1 321
  call my_add
  hult
`
	img, err := loader.AssembleSource(src, "t.bb")
	require.NoError(t, err)
	machine, err := loader.LoadImage(img, nil)
	require.NoError(t, err)
	require.NoError(t, machine.Run())
	assert.Equal(t, uint64(444), machine.Registers.Get(0))
	assert.Equal(t, uint64(321), machine.Registers.Get(1))
}

func TestHeapWriteAndSyscall(t *testing.T) {
	src := `.entry main
main:
  load[u8] %0 6
  aloc[u8] %0
  load[u8] %1 72
  load[u8] %2 0
  store[u8] %2 %1
  load[u8] %1 101
  inc[u8] %2
  store[u8] %2 %1
  load[u8] %1 108
  inc[u8] %2
  store[u8] %2 %1
  inc[u8] %2
  store[u8] %2 %1
  load[u8] %1 111
  inc[u8] %2
  store[u8] %2 %1
  load[u8] %1 10
  inc[u8] %2
  store[u8] %2 %1
  load[u64] %0 0
  load[u64] %1 0
  load[u64] %2 6
  syscall
  hult
`
	out := run(t, src)
	assert.Equal(t, "Hello\n", out.String())
}

func TestStackUnderflowIsFatal(t *testing.T) {
	img, err := loader.AssembleSource(".entry main\nmain:\n  pop[u32] %0\n  hult\n", "t.bb")
	require.NoError(t, err)
	machine, err := loader.LoadImage(img, nil)
	require.NoError(t, err)
	assert.Error(t, machine.Run())
}

func TestAssembleSourceWithModeOverride(t *testing.T) {
	src := ".entry first\n.entry second\nsecond:\n  hult\n"
	_, err := loader.AssembleSourceWithMode(src, "t.bb", "override")
	require.NoError(t, err)
}

func TestAssembleSourceWithModeError(t *testing.T) {
	src := ".entry first\n.entry second\nsecond:\n  hult\n"
	_, err := loader.AssembleSourceWithMode(src, "t.bb", "error")
	require.Error(t, err)
}
