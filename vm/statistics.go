package vm

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/bitbox-lang/bitbox/instr"
)

// Statistics tracks execution-wide counters for the CLI's -stats flag and the debugger's
// profiling view: per-mnemonic counts and the hottest instruction addresses. BitBox's
// call/return are unconditional, so there is no branch-prediction miss rate to track.
type Statistics struct {
	Enabled bool

	TotalInstructions uint64
	ExecutionTime     time.Duration

	InstructionCounts map[string]uint64
	HotPath           map[uint32]uint64

	HeapBytesRead    uint64
	HeapBytesWritten uint64
	StackPushes      uint64
	StackPops        uint64

	startTime time.Time
}

// NewStatistics creates an enabled, zeroed statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{
		Enabled:           true,
		InstructionCounts: make(map[string]uint64),
		HotPath:           make(map[uint32]uint64),
	}
}

// Start resets all counters and begins timing.
func (s *Statistics) Start() {
	s.startTime = time.Now()
	s.TotalInstructions = 0
	s.InstructionCounts = make(map[string]uint64)
	s.HotPath = make(map[uint32]uint64)
	s.HeapBytesRead = 0
	s.HeapBytesWritten = 0
	s.StackPushes = 0
	s.StackPops = 0
}

// RecordInstruction tallies one executed instruction at address.
func (s *Statistics) RecordInstruction(op instr.Opcode, address uint32) {
	if !s.Enabled {
		return
	}
	s.TotalInstructions++
	s.InstructionCounts[op.String()]++
	s.HotPath[address]++
}

// Finish stops timing and records the total elapsed duration.
func (s *Statistics) Finish() {
	s.ExecutionTime = time.Since(s.startTime)
}

// Summary renders a human-readable report, most-executed instructions first.
func (s *Statistics) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "instructions executed: %d\n", s.TotalInstructions)
	fmt.Fprintf(&b, "execution time: %s\n", s.ExecutionTime)
	if s.ExecutionTime > 0 {
		perSec := float64(s.TotalInstructions) / s.ExecutionTime.Seconds()
		fmt.Fprintf(&b, "instructions/sec: %.0f\n", perSec)
	}

	type count struct {
		name string
		n    uint64
	}
	counts := make([]count, 0, len(s.InstructionCounts))
	for name, n := range s.InstructionCounts {
		counts = append(counts, count{name, n})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].n > counts[j].n })
	for _, c := range counts {
		fmt.Fprintf(&b, "  %-10s %d\n", c.name, c.n)
	}
	return b.String()
}

// ExportJSON writes the full counter set as indented JSON, for the CLI's -stats flag when
// bbconfig's statistics.format is "json".
func (s *Statistics) ExportJSON(w io.Writer) error {
	data := map[string]interface{}{
		"total_instructions": s.TotalInstructions,
		"execution_time_ms":  s.ExecutionTime.Milliseconds(),
		"instruction_counts": s.InstructionCounts,
		"hot_path":           s.HotPath,
		"heap_bytes_read":    s.HeapBytesRead,
		"heap_bytes_written": s.HeapBytesWritten,
		"stack_pushes":       s.StackPushes,
		"stack_pops":         s.StackPops,
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ExportCSV writes one row per instruction mnemonic plus a summary row, for bbconfig's
// statistics.format "csv".
func (s *Statistics) ExportCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"metric", "value"}); err != nil {
		return err
	}
	rows := [][]string{
		{"total_instructions", fmt.Sprintf("%d", s.TotalInstructions)},
		{"execution_time_ms", fmt.Sprintf("%d", s.ExecutionTime.Milliseconds())},
		{"heap_bytes_read", fmt.Sprintf("%d", s.HeapBytesRead)},
		{"heap_bytes_written", fmt.Sprintf("%d", s.HeapBytesWritten)},
		{"stack_pushes", fmt.Sprintf("%d", s.StackPushes)},
		{"stack_pops", fmt.Sprintf("%d", s.StackPops)},
	}
	if err := writer.WriteAll(rows); err != nil {
		return err
	}

	names := make([]string, 0, len(s.InstructionCounts))
	for name := range s.InstructionCounts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writer.Write([]string{"instr:" + name, fmt.Sprintf("%d", s.InstructionCounts[name])}); err != nil {
			return err
		}
	}
	return nil
}
