package vm

import (
	"fmt"
	"io"
	"time"
)

// TraceEntry is one recorded instruction execution, written by RecordInstruction after Step.
type TraceEntry struct {
	Sequence        uint64
	Address         uint32
	Disassembly     string
	RegisterChanges map[int]uint64
	Duration        time.Duration
}

// ExecutionTrace records a bounded history of instruction executions for the debugger and
// the CLI's -trace flag. Registers are addressed by index throughout, not by name.
type ExecutionTrace struct {
	Enabled       bool
	Writer        io.Writer
	IncludeTiming bool
	MaxEntries    int

	entries   []TraceEntry
	startTime time.Time
	lastRegs  RegisterSnapshot
}

// NewExecutionTrace creates an enabled trace writer; Start resets its entries and timing.
func NewExecutionTrace(w io.Writer) *ExecutionTrace {
	return &ExecutionTrace{
		Enabled:       true,
		Writer:        w,
		IncludeTiming: true,
		MaxEntries:    100000,
		entries:       make([]TraceEntry, 0, 1024),
	}
}

// Start resets the trace and begins timing from now.
func (t *ExecutionTrace) Start(regs *Registers) {
	t.startTime = time.Now()
	t.entries = t.entries[:0]
	t.lastRegs.Capture(regs)
}

// RecordInstruction appends one entry describing the instruction the VM just executed at
// address (its pc before the step), diffing registers against the last recorded snapshot.
func (t *ExecutionTrace) RecordInstruction(v *VM, address uint32, disasm string) {
	if !t.Enabled {
		return
	}
	if t.MaxEntries > 0 && len(t.entries) >= t.MaxEntries {
		return
	}

	var now RegisterSnapshot
	now.Capture(&v.Registers)

	changes := make(map[int]uint64)
	for _, i := range t.lastRegs.Changed(&now) {
		changes[i] = now.Get(i)
	}
	t.lastRegs = now

	entry := TraceEntry{
		Sequence:        uint64(len(t.entries)),
		Address:         address,
		Disassembly:     disasm,
		RegisterChanges: changes,
	}
	if t.IncludeTiming {
		entry.Duration = time.Since(t.startTime)
	}
	t.entries = append(t.entries, entry)

	if t.Writer != nil {
		fmt.Fprintf(t.Writer, "%08x  %-28s %v\n", entry.Address, entry.Disassembly, changes)
	}
}

// Entries returns the recorded trace entries.
func (t *ExecutionTrace) Entries() []TraceEntry {
	return t.entries
}
