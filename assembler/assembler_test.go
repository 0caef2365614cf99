package assembler_test

import (
	"testing"

	"github.com/bitbox-lang/bitbox/assembler"
	"github.com/bitbox-lang/bitbox/image"
	"github.com/bitbox-lang/bitbox/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assemble(t *testing.T, src string) []byte {
	t.Helper()
	p, lexErr := parser.NewParser(src, "test.bb")
	require.Nil(t, lexErr)
	program, errs := p.Parse()
	require.Nil(t, errs)
	img, err := assembler.New(program).Assemble()
	require.NoError(t, err)
	return img
}

func TestHeaderRoundTrip(t *testing.T) {
	img := assemble(t, ".entry main\nmain:\n  load[u8] %0 100\n  hult\n")
	assert.Equal(t, "BBVM", string(img[0:4]))

	h, err := image.Decode(img)
	require.NoError(t, err)
	assert.Equal(t, uint32(image.HeaderSize), h.EntryOffset)
}

func TestSizeLaw(t *testing.T) {
	img := assemble(t, ".entry main\nmain:\n  load[u32] %0 10\n  push[u32] %0\n  pop[u32] %1\n  hult\n")
	h, err := image.Decode(img)
	require.NoError(t, err)
	assert.Equal(t, len(img)-image.HeaderSize, int(h.TextLength))
}

func TestUnknownLabelFailsAssembly(t *testing.T) {
	p, lexErr := parser.NewParser(".entry main\nmain:\n  call missing\n  hult\n", "test.bb")
	require.Nil(t, lexErr)
	program, errs := p.Parse()
	require.Nil(t, errs)

	_, err := assembler.New(program).Assemble()
	require.Error(t, err)
	var labelErr *assembler.LabelError
	require.ErrorAs(t, err, &labelErr)
	assert.Equal(t, "missing", labelErr.Name)
}

func TestForwardLabelReferenceResolves(t *testing.T) {
	// call precedes the label it targets in source order.
	img := assemble(t, ".entry main\nmain:\n  call later\n  hult\nlater:\n  return\n")
	require.NotEmpty(t, img)
}

func TestFibonacciLoopAssemblesAndSizes(t *testing.T) {
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
  printreg[u64] %1
  hult
`
	img := assemble(t, src)
	h, err := image.Decode(img)
	require.NoError(t, err)
	assert.Equal(t, uint32(image.HeaderSize), h.EntryOffset)
}
