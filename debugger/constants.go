package debugger

// TUI display update cadence, in VM steps, during continuous "run" execution.
const DisplayUpdateFrequency = 100

// Code view context: lines of source shown before/after pc in the full and compact views.
const (
	CodeContextLinesBefore        = 20
	CodeContextLinesAfter         = 80
	CodeContextLinesBeforeCompact = 5
	CodeContextLinesAfterCompact  = 10
)

// Heap hex dump view dimensions.
const (
	HeapDisplayRows    = 16
	HeapDisplayColumns = 16
)

// Value stack view depth, in 64-bit cells.
const (
	StackDisplayCells       = 16
	StackInspectionMaxDepth = 16
)

// Register view layout: BitBox has 32 registers (%0..%31), shown 8 per row.
const (
	RegisterViewRows  = 6
	RegisterGroupSize = 8
)
