package instr_test

import (
	"testing"

	"github.com/bitbox-lang/bitbox/instr"
	"github.com/stretchr/testify/assert"
)

func TestTypeSignAndWidth(t *testing.T) {
	u32 := instr.NewType(false, 32)
	assert.False(t, u32.Signed())
	assert.Equal(t, 32, u32.BitWidth())
	assert.Equal(t, 4, u32.ByteWidth())
	assert.Equal(t, "u32", u32.String())

	i64 := instr.NewType(true, 64)
	assert.True(t, i64.Signed())
	assert.Equal(t, 64, i64.BitWidth())
	assert.Equal(t, "i64", i64.String())
}

func TestTypeVoid(t *testing.T) {
	assert.False(t, instr.TypeVoid.Signed())
	assert.Equal(t, 0, instr.TypeVoid.BitWidth())
	assert.True(t, instr.TypeVoid.Valid())
	assert.Equal(t, "void", instr.TypeVoid.String())
}

func TestTypeValidWidths(t *testing.T) {
	for _, w := range []int{8, 16, 32, 64, 128} {
		assert.True(t, instr.NewType(false, w).Valid())
	}
	assert.False(t, instr.NewType(false, 24).Valid())
}

func TestLookupType(t *testing.T) {
	ty, ok := instr.LookupType("u16")
	assert.True(t, ok)
	assert.Equal(t, instr.NewType(false, 16), ty)

	_, ok = instr.LookupType("f32")
	assert.False(t, ok)
}
