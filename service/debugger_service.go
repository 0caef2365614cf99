// Package service wraps a *debugger.Debugger in a mutex-guarded API that the HTTP session
// server (and, in principle, any other front end) can call from multiple goroutines at once:
// one goroutine runs the VM's step loop while others handle incoming control/query requests.
// There is no stdin syscall to wrap (the VM's only syscall is a write), and there is no
// disassemble-from-an-arbitrary-address operation (BitBox instructions are variable width and
// only decodable by stepping through them), so GetSourceMap exposes the assembler's own
// pc->source-line map instead.
package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/bitbox-lang/bitbox/debugger"
	"github.com/bitbox-lang/bitbox/vm"
)

// stepsBeforeYield bounds how many VM steps RunUntilHalt executes before briefly yielding the
// goroutine, so a long-running guest program doesn't starve concurrent state queries.
const stepsBeforeYield = 1000

// DebuggerService is a thread-safe facade over one VM/debugger pair, shared by the HTTP
// session handlers and the WebSocket streaming goroutine for a single session.
//
// Lock ordering: DebuggerService holds its own sync.RWMutex (s.mu) guarding every field here,
// including the embedded *debugger.Debugger. Debugger itself has no internal lock of its own,
// so there is only one lock to reason about: always acquire s.mu before touching s.debugger or
// s.vm, and release it before any call that might block (VM.Step never blocks today, but
// RunUntilHalt still releases the lock around each Step so queries are never starved for the
// the loop's whole duration).
type DebuggerService struct {
	mu       sync.RWMutex
	vm       *vm.VM
	debugger *debugger.Debugger

	running      bool
	atBreakpoint bool
	breakReason  string
}

// NewDebuggerService wraps machine in a fresh debugger and service.
func NewDebuggerService(machine *vm.VM) *DebuggerService {
	return &DebuggerService{
		vm:       machine,
		debugger: debugger.NewDebugger(machine),
	}
}

// LoadDebugInfo attaches the symbol table, source map, and entry offset produced by
// assembling the session's program, so breakpoints can be set by label and the debugger can
// report source context.
func (s *DebuggerService) LoadDebugInfo(symbols map[string]uint32, sourceMap map[uint32]string, entryOffset uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debugger.LoadSymbols(symbols)
	s.debugger.LoadSourceMap(sourceMap)
	s.debugger.SetEntryOffset(entryOffset)
}

// VM returns the underlying VM, for callers (the session manager's OutputWriter wiring) that
// need it before or after the service's own lock-guarded operations.
func (s *DebuggerService) VM() *vm.VM {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vm
}

// GetRegisterState returns a snapshot of every register plus pc.
func (s *DebuggerService) GetRegisterState() RegisterState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var regs RegisterState
	for i := 0; i < 32; i++ {
		regs.Registers[i] = s.vm.Registers.Get(uint8(i))
	}
	regs.PC = s.vm.PC()
	return regs
}

// GetStack returns up to count value-stack cells from the top down.
func (s *DebuggerService) GetStack(count int) []StackEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.vm.Stack)
	if count > n {
		count = n
	}
	entries := make([]StackEntry, 0, count)
	for i := 0; i < count; i++ {
		entries = append(entries, StackEntry{Index: i, Value: s.vm.Stack[n-1-i]})
	}
	return entries
}

// GetHeap returns length bytes of heap starting at address, truncated if the heap is shorter.
func (s *DebuggerService) GetHeap(address, length uint64) (HeapRegion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if uint64(s.vm.Heap.Len()) < address {
		return HeapRegion{Address: address}, nil
	}
	if address+length > uint64(s.vm.Heap.Len()) {
		length = uint64(s.vm.Heap.Len()) - address
	}
	data, err := s.vm.Heap.Bytes(address, length)
	if err != nil {
		return HeapRegion{}, err
	}
	return HeapRegion{Address: address, Data: data}, nil
}

// Step executes a single instruction, honoring any breakpoint/watchpoint hit at the current
// pc first (matching debugger.RunCLI's own ordering) instead of always stepping blindly.
func (s *DebuggerService) Step() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if shouldBreak, reason := s.debugger.ShouldBreak(); shouldBreak {
		s.atBreakpoint = true
		s.breakReason = reason
		return nil
	}
	s.atBreakpoint = false

	if err := s.vm.Step(); err != nil {
		return err
	}
	return nil
}

// Continue marks the session as running; the actual loop is driven by RunUntilHalt, called
// from its own goroutine so the HTTP handler that triggered it can return immediately.
func (s *DebuggerService) Continue() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.atBreakpoint = false
}

// Pause stops RunUntilHalt's loop at its next iteration.
func (s *DebuggerService) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

// IsRunning reports whether RunUntilHalt's loop is currently active.
func (s *DebuggerService) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// RunUntilHalt steps the VM until it halts, errors, or a breakpoint/watchpoint fires, yielding
// briefly every stepsBeforeYield iterations so concurrent state queries are never starved.
// Returns immediately if Pause was already called before the goroutine running this got
// scheduled.
func (s *DebuggerService) RunUntilHalt() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	steps := 0
	for {
		s.mu.Lock()
		if !s.running {
			s.mu.Unlock()
			return nil
		}

		if shouldBreak, reason := s.debugger.ShouldBreak(); shouldBreak {
			s.running = false
			s.atBreakpoint = true
			s.breakReason = reason
			s.mu.Unlock()
			return nil
		}

		err := s.vm.Step()
		halted := s.vm.State == vm.StateHalted
		s.mu.Unlock()

		if err != nil {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return err
		}
		if halted {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return nil
		}

		steps++
		if steps >= stepsBeforeYield {
			steps = 0
			time.Sleep(time.Millisecond)
		}
	}
}

// StepOver runs past the instruction at pc, stopping at its return point rather than
// descending into a call, then halting or erroring exactly as RunUntilHalt does.
func (s *DebuggerService) StepOver() error {
	s.mu.Lock()
	s.debugger.SetStepOver()
	s.mu.Unlock()
	return s.stepLoop()
}

// StepOut runs until the current step mode reports completion (see debugger.SetStepOut's own
// doc comment on why this degrades to single-stepping for BitBox's shared call/return stack).
func (s *DebuggerService) StepOut() error {
	s.mu.Lock()
	s.debugger.SetStepOut()
	s.mu.Unlock()
	return s.stepLoop()
}

// stepLoop is RunUntilHalt's loop body, reused by StepOver/StepOut: it runs until ShouldBreak
// fires (the step mode's own completion condition, a breakpoint, or a watchpoint), the VM
// halts, or a runtime error occurs.
func (s *DebuggerService) stepLoop() error {
	for {
		s.mu.Lock()
		if shouldBreak, reason := s.debugger.ShouldBreak(); shouldBreak {
			s.atBreakpoint = true
			s.breakReason = reason
			s.mu.Unlock()
			return nil
		}

		err := s.vm.Step()
		halted := s.vm.State == vm.StateHalted
		s.mu.Unlock()

		if err != nil {
			return err
		}
		if halted {
			return nil
		}
	}
}

// GetSourceMap returns a copy of the session's pc-to-source-line map.
func (s *DebuggerService) GetSourceMap() map[uint32]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[uint32]string, len(s.debugger.SourceMap))
	for k, v := range s.debugger.SourceMap {
		out[k] = v
	}
	return out
}

// GetExecutionState reports the session's current ExecutionState.
func (s *DebuggerService) GetExecutionState() ExecutionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return VMStateToExecution(s.vm.State, s.atBreakpoint)
}

// Reset rewinds the VM to its entry point and clears run state, leaving breakpoints and
// watchpoints in place (use ClearAllBreakpoints/ClearAllWatchpoints to drop those too).
func (s *DebuggerService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vm.Reset(s.debugger.EntryOffset)
	s.running = false
	s.atBreakpoint = false
}

// AddBreakpoint sets a breakpoint at addrStr, which may be a label or a numeric offset.
func (s *DebuggerService) AddBreakpoint(addrStr string, temporary bool, condition string) (BreakpointInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr, err := s.debugger.ResolveAddress(addrStr)
	if err != nil {
		return BreakpointInfo{}, err
	}
	bp := s.debugger.Breakpoints.AddBreakpoint(addr, temporary, condition)
	return toBreakpointInfo(bp), nil
}

// RemoveBreakpoint deletes the breakpoint at addr.
func (s *DebuggerService) RemoveBreakpoint(addr uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debugger.Breakpoints.DeleteBreakpointAt(addr)
}

// GetBreakpoints returns every breakpoint currently set.
func (s *DebuggerService) GetBreakpoints() []BreakpointInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bps := s.debugger.Breakpoints.GetAllBreakpoints()
	out := make([]BreakpointInfo, len(bps))
	for i, bp := range bps {
		out[i] = toBreakpointInfo(bp)
	}
	return out
}

// ClearAllBreakpoints removes every breakpoint.
func (s *DebuggerService) ClearAllBreakpoints() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debugger.Breakpoints.Clear()
}

func toBreakpointInfo(bp *debugger.Breakpoint) BreakpointInfo {
	return BreakpointInfo{
		ID:        bp.ID,
		Address:   bp.Address,
		Enabled:   bp.Enabled,
		Temporary: bp.Temporary,
		Condition: bp.Condition,
	}
}

// AddRegisterWatch watches register reg for changes.
func (s *DebuggerService) AddRegisterWatch(reg uint8) (WatchpointInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if reg >= 32 {
		return WatchpointInfo{}, fmt.Errorf("register %%%d out of range", reg)
	}
	wp := s.debugger.Watchpoints.AddRegisterWatch(fmt.Sprintf("%%%d", reg), reg)
	return toWatchpointInfo(wp), nil
}

// AddHeapWatch watches width bytes of heap at address for changes.
func (s *DebuggerService) AddHeapWatch(address uint64, width int) (WatchpointInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wp := s.debugger.Watchpoints.AddHeapWatch(fmt.Sprintf("heap[0x%x:%d]", address, width), address, width)
	return toWatchpointInfo(wp), nil
}

// RemoveWatchpoint deletes the watchpoint with the given ID.
func (s *DebuggerService) RemoveWatchpoint(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debugger.Watchpoints.DeleteWatchpoint(id)
}

// GetWatchpoints returns every watchpoint currently set.
func (s *DebuggerService) GetWatchpoints() []WatchpointInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wps := s.debugger.Watchpoints.GetAllWatchpoints()
	out := make([]WatchpointInfo, len(wps))
	for i, wp := range wps {
		out[i] = toWatchpointInfo(wp)
	}
	return out
}

func toWatchpointInfo(wp *debugger.Watchpoint) WatchpointInfo {
	kind := "register"
	if wp.Kind == debugger.WatchHeap {
		kind = "heap"
	}
	return WatchpointInfo{ID: wp.ID, Expression: wp.Expression, Kind: kind, Enabled: wp.Enabled}
}

// GetSymbols returns a copy of the session's resolved symbol table.
func (s *DebuggerService) GetSymbols() map[string]uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]uint32, len(s.debugger.Symbols))
	for k, v := range s.debugger.Symbols {
		out[k] = v
	}
	return out
}

// ExecuteCommand runs one debugger REPL command line and returns its captured output.
func (s *DebuggerService) ExecuteCommand(cmdLine string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.debugger.ExecuteCommand(cmdLine)
	return s.debugger.GetOutput(), err
}

// EvaluateExpression evaluates expr against current VM state.
func (s *DebuggerService) EvaluateExpression(expr string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debugger.Evaluator.EvaluateExpression(expr, s.vm, s.debugger.Symbols)
}

// EnableTrace turns on execution tracing, recording into an in-memory buffer retrievable via
// GetTrace.
func (s *DebuggerService) EnableTrace() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vm.Trace == nil {
		s.vm.Trace = vm.NewExecutionTrace(nil)
	}
	s.vm.Trace.Enabled = true
	s.vm.Trace.Start(&s.vm.Registers)
}

// DisableTrace turns off execution tracing without discarding recorded entries.
func (s *DebuggerService) DisableTrace() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vm.Trace != nil {
		s.vm.Trace.Enabled = false
	}
}

// GetTrace returns the entries recorded so far.
func (s *DebuggerService) GetTrace() []vm.TraceEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.vm.Trace == nil {
		return nil
	}
	return s.vm.Trace.Entries()
}

// EnableStatistics turns on performance-counter collection.
func (s *DebuggerService) EnableStatistics() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vm.Stats == nil {
		s.vm.Stats = vm.NewStatistics()
	}
	s.vm.Stats.Start()
}

// DisableStatistics stops updating the performance counters.
func (s *DebuggerService) DisableStatistics() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vm.Stats != nil {
		s.vm.Stats.Enabled = false
	}
}

// GetStatistics finalizes and returns the session's performance counters.
func (s *DebuggerService) GetStatistics() (*vm.Statistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vm.Stats == nil {
		return nil, fmt.Errorf("statistics not enabled")
	}
	s.vm.Stats.Finish()
	return s.vm.Stats, nil
}
