package api

import (
	"time"

	"github.com/bitbox-lang/bitbox/service"
)

// SessionCreateRequest represents a request to create a new session. Exactly one of Source
// and Image must be set: Source is assembled fresh, Image is a base64-encoded pre-built
// .bbimg.
type SessionCreateRequest struct {
	Source string   `json:"source,omitempty"`
	Image  string   `json:"image,omitempty"` // base64-encoded .bbimg
	Argv   []string `json:"argv,omitempty"`
}

// SessionCreateResponse represents the response from creating a session
type SessionCreateResponse struct {
	SessionID string            `json:"sessionId"`
	CreatedAt time.Time         `json:"createdAt"`
	Symbols   map[string]uint32 `json:"symbols,omitempty"`
}

// SessionStatusResponse represents the current status of a session
type SessionStatusResponse struct {
	SessionID string `json:"sessionId"`
	State     string `json:"state"`
	PC        uint32 `json:"pc"`
	Error     string `json:"error,omitempty"`
}

// RegistersResponse represents the current register state: BitBox's 32 general-purpose
// registers plus pc. There is no condition-code register to report.
type RegistersResponse struct {
	Registers [32]uint64 `json:"registers"`
	PC        uint32     `json:"pc"`
}

// StackResponse represents a snapshot of the value stack, top entry first.
type StackResponse struct {
	Entries []service.StackEntry `json:"entries"`
}

// HeapRequest represents a request for heap data
type HeapRequest struct {
	Address uint64 `json:"address"`
	Length  uint64 `json:"length"`
}

// HeapResponse represents heap data
type HeapResponse struct {
	Address uint64 `json:"address"`
	Data    []byte `json:"data"`
}

// BreakpointRequest represents a request to add a breakpoint. Address accepts either a
// label name or a 0x-prefixed/decimal literal, resolved the same way the CLI debugger
// resolves addresses.
type BreakpointRequest struct {
	Address   string `json:"address"`
	Temporary bool   `json:"temporary,omitempty"`
	Condition string `json:"condition,omitempty"`
}

// BreakpointResponse represents a single breakpoint
type BreakpointResponse struct {
	ID        int    `json:"id"`
	Address   uint32 `json:"address"`
	Enabled   bool   `json:"enabled"`
	Temporary bool   `json:"temporary"`
	Condition string `json:"condition,omitempty"`
}

// BreakpointsResponse represents a list of breakpoints
type BreakpointsResponse struct {
	Breakpoints []BreakpointResponse `json:"breakpoints"`
}

// WatchpointRequest represents a request to add a watchpoint. Kind is "register" or "heap";
// for a register watch Register names the register index, for a heap watch Address/Width
// name the byte range to watch.
type WatchpointRequest struct {
	Kind     string `json:"kind"`
	Register uint8  `json:"register,omitempty"`
	Address  uint64 `json:"address,omitempty"`
	Width    int    `json:"width,omitempty"`
}

// WatchpointResponse represents a single watchpoint
type WatchpointResponse struct {
	ID         int    `json:"id"`
	Expression string `json:"expression"`
	Kind       string `json:"kind"`
	Enabled    bool   `json:"enabled"`
}

// WatchpointsResponse represents a list of watchpoints
type WatchpointsResponse struct {
	Watchpoints []WatchpointResponse `json:"watchpoints"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// SuccessResponse represents a simple success response
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// CommandRequest represents a line-oriented debugger command, e.g. "break main" or
// "print %0".
type CommandRequest struct {
	Command string `json:"command"`
}

// CommandResponse represents the textual output of a debugger command.
type CommandResponse struct {
	Output string `json:"output"`
}

// ExpressionRequest represents a request to evaluate a debugger expression.
type ExpressionRequest struct {
	Expression string `json:"expression"`
}

// ExpressionResponse represents the result of evaluating a debugger expression.
type ExpressionResponse struct {
	Value uint64 `json:"value"`
}

// TraceEntryInfo represents one recorded instruction in an execution trace.
type TraceEntryInfo struct {
	Sequence        uint64         `json:"sequence"`
	Address         uint32         `json:"address"`
	Disassembly     string         `json:"disassembly"`
	RegisterChanges map[int]uint64 `json:"registerChanges,omitempty"`
	DurationNanos   int64          `json:"durationNanos,omitempty"`
}

// TraceDataResponse represents a full recorded execution trace.
type TraceDataResponse struct {
	Entries []TraceEntryInfo `json:"entries"`
}

// StatisticsResponse represents accumulated performance statistics for a session.
type StatisticsResponse struct {
	TotalInstructions uint64            `json:"totalInstructions"`
	ExecutionNanos    int64             `json:"executionNanos"`
	InstructionCounts map[string]uint64 `json:"instructionCounts,omitempty"`
	HeapBytesRead     uint64            `json:"heapBytesRead"`
	HeapBytesWritten  uint64            `json:"heapBytesWritten"`
	StackPushes       uint64            `json:"stackPushes"`
	StackPops         uint64            `json:"stackPops"`
	Summary           string            `json:"summary"`
}

// ExampleInfo describes one bundled example program available to clients of the session
// service (the playground-style "load an example" affordance common to assembler web UIs).
type ExampleInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ExamplesResponse lists the available example programs.
type ExamplesResponse struct {
	Examples []ExampleInfo `json:"examples"`
}

// ExampleContentResponse returns the source of one example program.
type ExampleContentResponse struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

// ConfigResponse mirrors bbconfig.Config's session-relevant fields back to clients that want
// to display or tweak server-side execution limits.
type ConfigResponse struct {
	Execution  ExecutionConfig  `json:"execution"`
	Debugger   DebuggerConfig   `json:"debugger"`
	Trace      TraceConfig      `json:"trace"`
	Statistics StatisticsConfig `json:"statistics"`
}

// ExecutionConfig mirrors bbconfig.Config.VM.
type ExecutionConfig struct {
	MaxSteps       uint64 `json:"maxSteps"`
	HeapHint       uint64 `json:"heapHint"`
	BufferedStdout bool   `json:"bufferedStdout"`
}

// DebuggerConfig mirrors bbconfig.Config.Debugger.
type DebuggerConfig struct {
	HistorySize        int  `json:"historySize"`
	PersistBreakpoints bool `json:"persistBreakpoints"`
	SourceContext      int  `json:"sourceContext"`
	ShowRegisters      bool `json:"showRegisters"`
}

// DisplayConfig holds a client-side display preference (number base). No request or response
// in this package carries it, and the session service does not interpret it.
type DisplayConfig struct {
	NumberBase int `json:"numberBase,omitempty"`
}

// TraceConfig mirrors bbconfig.Config.Trace.
type TraceConfig struct {
	IncludeTiming bool `json:"includeTiming"`
	MaxEntries    int  `json:"maxEntries"`
}

// StatisticsConfig mirrors bbconfig.Config.Statistics.
type StatisticsConfig struct {
	Format string `json:"format"`
}

// Event represents a WebSocket event
type Event struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// StateEvent represents a state change event
type StateEvent struct {
	State     string     `json:"state"`
	PC        uint32     `json:"pc"`
	Registers [32]uint64 `json:"registers"`
}

// OutputEvent represents console output
type OutputEvent struct {
	Stream  string `json:"stream"`  // "stdout" or "stderr"
	Content string `json:"content"` // Output content
}

// ExecutionEvent represents execution events like breakpoints
type ExecutionEvent struct {
	Event   string `json:"event"` // "breakpoint_hit", "error", "halted"
	Address uint32 `json:"address,omitempty"`
	Symbol  string `json:"symbol,omitempty"`
	Message string `json:"message,omitempty"`
}

// ToRegisterResponse converts service.RegisterState to API response
func ToRegisterResponse(regs service.RegisterState) *RegistersResponse {
	return &RegistersResponse{Registers: regs.Registers, PC: regs.PC}
}

// ToBreakpointResponse converts service.BreakpointInfo to API response
func ToBreakpointResponse(bp service.BreakpointInfo) BreakpointResponse {
	return BreakpointResponse{
		ID:        bp.ID,
		Address:   bp.Address,
		Enabled:   bp.Enabled,
		Temporary: bp.Temporary,
		Condition: bp.Condition,
	}
}

// ToWatchpointResponse converts service.WatchpointInfo to API response
func ToWatchpointResponse(wp service.WatchpointInfo) WatchpointResponse {
	return WatchpointResponse{ID: wp.ID, Expression: wp.Expression, Kind: wp.Kind, Enabled: wp.Enabled}
}

// ToTraceEntryInfo converts a vm.TraceEntry to its wire representation.
func ToTraceEntryInfo(seq uint64, address uint32, disasm string, changes map[int]uint64, durationNanos int64) TraceEntryInfo {
	return TraceEntryInfo{
		Sequence:        seq,
		Address:         address,
		Disassembly:     disasm,
		RegisterChanges: changes,
		DurationNanos:   durationNanos,
	}
}
