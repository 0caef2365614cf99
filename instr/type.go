package instr

import "fmt"

// Type is the wire encoding of a type tag attached to every instruction. Void is 0;
// otherwise the high bit carries signedness (1 = signed, per this project's convention —
// the original source has one decoder that inverts it, which this implementation does not
// reproduce) and the low 7 bits carry the bit width.
type Type uint8

const TypeVoid Type = 0

const signBit = 0x80

// NewType builds a Type tag from a signedness flag and a bit width. The width must be one
// of 8/16/32/64/128; callers at the parse boundary validate this before constructing one.
func NewType(signed bool, width int) Type {
	t := Type(width)
	if signed {
		t |= signBit
	}
	return t
}

// Signed reports whether the high bit is set. Void is unsigned by convention.
func (t Type) Signed() bool {
	return t != TypeVoid && t&signBit != 0
}

// BitWidth returns the declared bit width, or 0 for Void.
func (t Type) BitWidth() int {
	if t == TypeVoid {
		return 0
	}
	return int(t &^ signBit)
}

// ByteWidth returns BitWidth/8.
func (t Type) ByteWidth() int {
	return t.BitWidth() / 8
}

// Valid reports whether t is Void or has one of the supported bit widths.
func (t Type) Valid() bool {
	if t == TypeVoid {
		return true
	}
	switch t.BitWidth() {
	case 8, 16, 32, 64, 128:
		return true
	default:
		return false
	}
}

// typeNames maps source identifiers to Type values, used by the parser's type-bracket syntax.
var typeNames = map[string]Type{
	"u8":   NewType(false, 8),
	"u16":  NewType(false, 16),
	"u32":  NewType(false, 32),
	"u64":  NewType(false, 64),
	"u128": NewType(false, 128),
	"i8":   NewType(true, 8),
	"i16":  NewType(true, 16),
	"i32":  NewType(true, 32),
	"i64":  NewType(true, 64),
	"i128": NewType(true, 128),
}

// LookupType resolves a source-level type identifier such as "u32" to its Type tag.
func LookupType(word string) (Type, bool) {
	t, ok := typeNames[word]
	return t, ok
}

func (t Type) String() string {
	if t == TypeVoid {
		return "void"
	}
	prefix := "u"
	if t.Signed() {
		prefix = "i"
	}
	return fmt.Sprintf("%s%d", prefix, t.BitWidth())
}
