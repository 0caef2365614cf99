package debugger

import (
	"testing"

	"github.com/bitbox-lang/bitbox/vm"
)

func TestExpressionEvaluator_Numbers(t *testing.T) {
	eval := NewExpressionEvaluator()
	machine := vm.New(nil, 0)
	symbols := make(map[string]uint32)

	tests := []struct {
		name string
		expr string
		want uint64
	}{
		{"Decimal", "42", 42},
		{"Hex", "0x100", 0x100},
		{"Hex uppercase", "0X1A", 0x1A},
		{"Binary", "0b1010", 0b1010},
		{"Negative", "-1", 0xFFFFFFFFFFFFFFFF},
		{"Large hex", "0xFFFFFFFFFFFFFFFF", 0xFFFFFFFFFFFFFFFF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval.EvaluateExpression(tt.expr, machine, symbols)
			if err != nil {
				t.Fatalf("EvaluateExpression() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("EvaluateExpression() = 0x%X, want 0x%X", got, tt.want)
			}
		})
	}
}

func TestExpressionEvaluator_Registers(t *testing.T) {
	eval := NewExpressionEvaluator()
	machine := vm.New(nil, 0)
	symbols := make(map[string]uint32)

	machine.Registers.Set(0, 100)
	machine.Registers.Set(5, 200)
	machine.Registers.Set(31, 0x3000)

	tests := []struct {
		name string
		expr string
		want uint64
	}{
		{"R0", "%0", 100},
		{"R5", "%5", 200},
		{"R31", "%31", 0x3000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval.EvaluateExpression(tt.expr, machine, symbols)
			if err != nil {
				t.Fatalf("EvaluateExpression() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("EvaluateExpression() = 0x%X, want 0x%X", got, tt.want)
			}
		})
	}
}

func TestExpressionEvaluator_Symbols(t *testing.T) {
	eval := NewExpressionEvaluator()
	machine := vm.New(nil, 0)
	symbols := map[string]uint32{
		"main":  0x1000,
		"loop":  0x2000,
		"entry": 0x3000,
	}

	tests := []struct {
		name string
		expr string
		want uint64
	}{
		{"main", "main", 0x1000},
		{"loop", "loop", 0x2000},
		{"entry", "entry", 0x3000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval.EvaluateExpression(tt.expr, machine, symbols)
			if err != nil {
				t.Fatalf("EvaluateExpression() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("EvaluateExpression() = 0x%X, want 0x%X", got, tt.want)
			}
		})
	}
}

func TestExpressionEvaluator_Heap(t *testing.T) {
	eval := NewExpressionEvaluator()
	machine := vm.New(nil, 0)
	machine.Heap.Grow(4096)

	dataAddr := uint64(0x100)
	symbols := map[string]uint32{
		"data": uint32(dataAddr),
	}

	if err := machine.Heap.StoreWidth(dataAddr, 8, 0x12345678); err != nil {
		t.Fatalf("StoreWidth failed: %v", err)
	}
	if err := machine.Heap.StoreWidth(dataAddr+0x100, 8, 0xABCDEF00); err != nil {
		t.Fatalf("StoreWidth failed: %v", err)
	}

	tests := []struct {
		name string
		expr string
		want uint64
	}{
		{"Bracket notation", "[0x100]", 0x12345678},
		{"Star notation", "*0x200", 0xABCDEF00},
		{"Symbol in brackets", "[data]", 0x12345678},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval.EvaluateExpression(tt.expr, machine, symbols)
			if err != nil {
				t.Fatalf("EvaluateExpression() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("EvaluateExpression() = 0x%X, want 0x%X", got, tt.want)
			}
		})
	}
}

func TestExpressionEvaluator_Arithmetic(t *testing.T) {
	eval := NewExpressionEvaluator()
	machine := vm.New(nil, 0)
	symbols := make(map[string]uint32)

	tests := []struct {
		name string
		expr string
		want uint64
	}{
		{"Addition", "10 + 20", 30},
		{"Subtraction", "50 - 20", 30},
		{"Multiplication", "5 * 6", 30},
		{"Division", "60 / 2", 30},
		{"Hex addition", "0x10 + 0x20", 0x30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval.EvaluateExpression(tt.expr, machine, symbols)
			if err != nil {
				t.Fatalf("EvaluateExpression() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("EvaluateExpression() = 0x%X, want 0x%X", got, tt.want)
			}
		})
	}
}

func TestExpressionEvaluator_Bitwise(t *testing.T) {
	eval := NewExpressionEvaluator()
	machine := vm.New(nil, 0)
	symbols := make(map[string]uint32)

	tests := []struct {
		name string
		expr string
		want uint64
	}{
		{"AND", "0xFF & 0x0F", 0x0F},
		{"OR", "0xF0 | 0x0F", 0xFF},
		{"XOR", "0xFF ^ 0x0F", 0xF0},
		{"Left shift", "1 << 4", 16},
		{"Right shift", "16 >> 2", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval.EvaluateExpression(tt.expr, machine, symbols)
			if err != nil {
				t.Fatalf("EvaluateExpression() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("EvaluateExpression() = 0x%X, want 0x%X", got, tt.want)
			}
		})
	}
}

func TestExpressionEvaluator_RegisterOperations(t *testing.T) {
	eval := NewExpressionEvaluator()
	machine := vm.New(nil, 0)
	symbols := make(map[string]uint32)

	machine.Registers.Set(0, 10)
	machine.Registers.Set(1, 20)

	tests := []struct {
		name string
		expr string
		want uint64
	}{
		{"Register addition", "%0 + %1", 30},
		{"Register with constant", "%0 + 5", 15},
		{"Register subtraction", "%1 - %0", 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval.EvaluateExpression(tt.expr, machine, symbols)
			if err != nil {
				t.Fatalf("EvaluateExpression() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("EvaluateExpression() = 0x%X, want 0x%X", got, tt.want)
			}
		})
	}
}

func TestExpressionEvaluator_ValueHistory(t *testing.T) {
	eval := NewExpressionEvaluator()
	machine := vm.New(nil, 0)
	symbols := make(map[string]uint32)

	val1, err := eval.EvaluateExpression("42", machine, symbols)
	if err != nil {
		t.Fatalf("EvaluateExpression() error = %v", err)
	}
	val2, err := eval.EvaluateExpression("100", machine, symbols)
	if err != nil {
		t.Fatalf("EvaluateExpression() error = %v", err)
	}

	if eval.GetValueNumber() != 2 {
		t.Errorf("ValueNumber = %d, want 2", eval.GetValueNumber())
	}

	got1, err := eval.GetValue(1)
	if err != nil {
		t.Fatalf("GetValue(1) error = %v", err)
	}
	if got1 != val1 {
		t.Errorf("GetValue(1) = %d, want %d", got1, val1)
	}

	got2, err := eval.GetValue(2)
	if err != nil {
		t.Fatalf("GetValue(2) error = %v", err)
	}
	if got2 != val2 {
		t.Errorf("GetValue(2) = %d, want %d", got2, val2)
	}

	if _, err := eval.GetValue(999); err == nil {
		t.Error("Expected error for invalid value number")
	}
}

func TestExpressionEvaluator_BooleanEvaluation(t *testing.T) {
	eval := NewExpressionEvaluator()
	machine := vm.New(nil, 0)
	symbols := make(map[string]uint32)

	machine.Registers.Set(0, 42)

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"Zero is false", "0", false},
		{"Non-zero is true", "42", true},
		{"Register non-zero", "%0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval.Evaluate(tt.expr, machine, symbols)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpressionEvaluator_Errors(t *testing.T) {
	eval := NewExpressionEvaluator()
	machine := vm.New(nil, 0)
	symbols := make(map[string]uint32)

	tests := []struct {
		name string
		expr string
	}{
		{"Empty expression", ""},
		{"Unknown symbol", "unknown_symbol"},
		{"Invalid register", "%99"},
		{"Division by zero", "10 / 0"},
		{"Invalid hex", "0xGGGG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := eval.EvaluateExpression(tt.expr, machine, symbols); err == nil {
				t.Error("Expected error but got none")
			}
		})
	}
}

func TestExpressionEvaluator_Reset(t *testing.T) {
	eval := NewExpressionEvaluator()
	machine := vm.New(nil, 0)
	symbols := make(map[string]uint32)

	if _, err := eval.EvaluateExpression("42", machine, symbols); err != nil {
		t.Fatalf("EvaluateExpression() error = %v", err)
	}
	if _, err := eval.EvaluateExpression("100", machine, symbols); err != nil {
		t.Fatalf("EvaluateExpression() error = %v", err)
	}

	if eval.GetValueNumber() != 2 {
		t.Error("Value number should be 2 before reset")
	}

	eval.Reset()

	if eval.GetValueNumber() != 0 {
		t.Error("Value number should be 0 after reset")
	}
	if len(eval.valueHistory) != 0 {
		t.Error("Value history should be empty after reset")
	}
}
