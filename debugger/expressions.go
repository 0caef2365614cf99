package debugger

import (
	"fmt"

	"github.com/bitbox-lang/bitbox/vm"
)

// ExpressionEvaluator evaluates debugger expressions (breakpoint conditions, `print`
// arguments, watch targets) by tokenizing with ExprLexer and parsing with ExprParser, and
// keeps a history of evaluated values addressable as $1, $2, ...
type ExpressionEvaluator struct {
	valueHistory []uint64
}

func NewExpressionEvaluator() *ExpressionEvaluator {
	return &ExpressionEvaluator{}
}

// EvaluateExpression evaluates expr and records the result in history.
func (e *ExpressionEvaluator) EvaluateExpression(expr string, machine *vm.VM, labels map[string]uint32) (uint64, error) {
	result, err := e.evaluate(expr, machine, labels)
	if err != nil {
		return 0, err
	}
	e.valueHistory = append(e.valueHistory, result)
	return result, nil
}

// Evaluate evaluates expr as a breakpoint condition: non-zero is true.
func (e *ExpressionEvaluator) Evaluate(expr string, machine *vm.VM, labels map[string]uint32) (bool, error) {
	result, err := e.evaluate(expr, machine, labels)
	if err != nil {
		return false, err
	}
	return result != 0, nil
}

// GetValueNumber returns how many values are in history so far.
func (e *ExpressionEvaluator) GetValueNumber() int {
	return len(e.valueHistory)
}

// GetValue returns the 1-indexed historical value $number.
func (e *ExpressionEvaluator) GetValue(number int) (uint64, error) {
	if number < 1 || number > len(e.valueHistory) {
		return 0, fmt.Errorf("value $%d not in history", number)
	}
	return e.valueHistory[number-1], nil
}

func (e *ExpressionEvaluator) evaluate(expr string, machine *vm.VM, labels map[string]uint32) (uint64, error) {
	if expr == "" {
		return 0, fmt.Errorf("empty expression")
	}
	tokens := NewExprLexer(expr).TokenizeAll()
	parser := NewExprParser(tokens, machine, labels, e)
	return parser.Parse()
}

// Reset clears the value history.
func (e *ExpressionEvaluator) Reset() {
	e.valueHistory = e.valueHistory[:0]
}
