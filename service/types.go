package service

import "github.com/bitbox-lang/bitbox/vm"

// RegisterState is a point-in-time snapshot of the VM's register file and pc, serialized over
// the session API. There is no condition-code register to carry.
type RegisterState struct {
	Registers [32]uint64 `json:"registers"`
	PC        uint32     `json:"pc"`
}

// BreakpointInfo is a breakpoint as exposed to API/UI clients.
type BreakpointInfo struct {
	ID        int    `json:"id"`
	Address   uint32 `json:"address"`
	Enabled   bool   `json:"enabled"`
	Temporary bool   `json:"temporary"`
	Condition string `json:"condition,omitempty"`
}

// WatchpointInfo is a watchpoint as exposed to API/UI clients.
type WatchpointInfo struct {
	ID         int    `json:"id"`
	Expression string `json:"expression"`
	Kind       string `json:"kind"` // "register" or "heap"
	Enabled    bool   `json:"enabled"`
}

// StackEntry is a single value-stack cell, indexed from the top down.
type StackEntry struct {
	Index int    `json:"index"`
	Value uint64 `json:"value"`
}

// HeapRegion is a contiguous slice of heap bytes returned by a memory read.
type HeapRegion struct {
	Address uint64 `json:"address"`
	Data    []byte `json:"data"`
}

// ExecutionState is the service-level view of why a session's VM is not currently stepping.
type ExecutionState string

const (
	StateRunning    ExecutionState = "running"
	StateHalted     ExecutionState = "halted"
	StateBreakpoint ExecutionState = "breakpoint"
	StateError      ExecutionState = "error"
)

// VMStateToExecution converts the VM's own state plus the debugger's breakpoint-pause flag
// into the service's wire-level ExecutionState. vm.State has no "paused at breakpoint" status
// of its own, so atBreakpoint is threaded through explicitly by the caller, which is the only
// layer that knows a run loop stopped because Debugger.ShouldBreak said so rather than
// because the VM halted or errored.
func VMStateToExecution(state vm.State, atBreakpoint bool) ExecutionState {
	if atBreakpoint {
		return StateBreakpoint
	}
	switch state {
	case vm.StateRunning:
		return StateRunning
	case vm.StateHalted:
		return StateHalted
	case vm.StateError:
		return StateError
	default:
		return StateHalted
	}
}
