package debugger

import (
	"fmt"
	"strings"

	"github.com/bitbox-lang/bitbox/instr"
	"github.com/bitbox-lang/bitbox/vm"
)

// Debugger holds all interactive-debugging state around a running VM: breakpoints,
// watchpoints, command history, the expression evaluator, and the symbol/source maps used to
// resolve labels and annotate the current pc.
type Debugger struct {
	VM *vm.VM

	Breakpoints *BreakpointManager
	Watchpoints *WatchpointManager
	History     *CommandHistory
	Evaluator   *ExpressionEvaluator

	Running           bool
	StepMode          StepMode
	StepOverCallDepth int
	StepOverPC        uint32

	// Symbols maps label names to their byte offset in the image.
	Symbols map[string]uint32
	// SourceMap maps byte offsets to the source line that produced them.
	SourceMap map[uint32]string

	// EntryOffset is where `run`/`reset` rewind pc to; set once via SetEntryOffset after load.
	EntryOffset uint32

	LastCommand string
	Output      strings.Builder
}

type StepMode int

const (
	StepNone StepMode = iota
	StepSingle
	StepOver
	StepOut
)

func NewDebugger(machine *vm.VM) *Debugger {
	return &Debugger{
		VM:          machine,
		Breakpoints: NewBreakpointManager(),
		Watchpoints: NewWatchpointManager(),
		History:     NewCommandHistory(),
		Evaluator:   NewExpressionEvaluator(),
		StepMode:    StepNone,
		Symbols:     make(map[string]uint32),
		SourceMap:   make(map[uint32]string),
	}
}

func (d *Debugger) LoadSymbols(symbols map[string]uint32) {
	d.Symbols = symbols
}

func (d *Debugger) LoadSourceMap(sourceMap map[uint32]string) {
	d.SourceMap = sourceMap
}

// SetEntryOffset records where the program starts, for `run` and `reset` to rewind to.
func (d *Debugger) SetEntryOffset(offset uint32) {
	d.EntryOffset = offset
}

// ResolveAddress resolves addrStr as a label first, falling back to a decimal or 0x-hex
// literal offset.
func (d *Debugger) ResolveAddress(addrStr string) (uint32, error) {
	if addr, exists := d.Symbols[addrStr]; exists {
		return addr, nil
	}

	var addr uint32
	if strings.HasPrefix(addrStr, "0x") || strings.HasPrefix(addrStr, "0X") {
		if _, err := fmt.Sscanf(addrStr, "0x%x", &addr); err != nil {
			return 0, fmt.Errorf("invalid address: %s", addrStr)
		}
	} else {
		if _, err := fmt.Sscanf(addrStr, "%d", &addr); err != nil {
			return 0, fmt.Errorf("invalid address: %s", addrStr)
		}
	}
	return addr, nil
}

// ExecuteCommand parses and dispatches one line of debugger input. An empty line repeats the
// last command, matching gdb/lldb's convention for continuing step/next with a bare Enter.
func (d *Debugger) ExecuteCommand(cmdLine string) error {
	cmdLine = strings.TrimSpace(cmdLine)
	if cmdLine == "" {
		cmdLine = d.LastCommand
	}
	if cmdLine != "" {
		d.History.Add(cmdLine)
		d.LastCommand = cmdLine
	}

	parts := strings.Fields(cmdLine)
	if len(parts) == 0 {
		return nil
	}
	// gdb-style "x/8xb addr": split the format suffix off into its own argument.
	if strings.HasPrefix(parts[0], "x/") {
		parts = append([]string{"x", parts[0][1:]}, parts[1:]...)
	}

	cmd := strings.ToLower(parts[0])
	return d.handleCommand(cmd, parts[1:])
}

func (d *Debugger) handleCommand(cmd string, args []string) error {
	switch cmd {
	case "run", "r":
		return d.cmdRun(args)
	case "continue", "c":
		return d.cmdContinue(args)
	case "step", "s", "si":
		return d.cmdStep(args)
	case "next", "n":
		return d.cmdNext(args)
	case "finish", "fin":
		return d.cmdFinish(args)

	case "break", "b":
		return d.cmdBreak(args)
	case "tbreak", "tb":
		return d.cmdTBreak(args)
	case "delete", "d":
		return d.cmdDelete(args)
	case "enable":
		return d.cmdEnable(args)
	case "disable":
		return d.cmdDisable(args)

	case "watch", "w":
		return d.cmdWatch(args)

	case "print", "p":
		return d.cmdPrint(args)
	case "x":
		return d.cmdExamine(args)
	case "info", "i":
		return d.cmdInfo(args)
	case "regs":
		return d.showRegisters()
	case "backtrace", "bt", "where":
		return d.cmdBacktrace(args)
	case "list", "l":
		return d.cmdList(args)

	case "set":
		return d.cmdSet(args)

	case "load":
		return d.cmdLoad(args)
	case "reset":
		return d.cmdReset(args)

	case "help", "h", "?":
		return d.cmdHelp(args)

	default:
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmd)
	}
}

// ShouldBreak reports whether execution should pause at the VM's current pc, and why.
func (d *Debugger) ShouldBreak() (bool, string) {
	pc := d.VM.PC()

	switch d.StepMode {
	case StepSingle:
		d.StepMode = StepNone
		return true, "single step"

	case StepOver:
		if pc == d.StepOverPC {
			d.StepMode = StepNone
			return true, "step over complete"
		}

	case StepOut:
		// BitBox's call/return share the value stack with ordinary push/pop, so there is no
		// reliable frame boundary to step out to; StepOut degrades to single-stepping.
		d.StepMode = StepSingle
	}

	if bp := d.Breakpoints.GetBreakpoint(pc); bp != nil {
		if !bp.Enabled {
			return false, ""
		}

		if bp.Condition != "" {
			result, err := d.Evaluator.Evaluate(bp.Condition, d.VM, d.Symbols)
			if err != nil {
				return true, fmt.Sprintf("breakpoint %d (condition error: %v)", bp.ID, err)
			}
			if !result {
				return false, ""
			}
		}

		bp.HitCount++
		if bp.Temporary {
			_ = d.Breakpoints.DeleteBreakpoint(bp.ID)
		}
		return true, fmt.Sprintf("breakpoint %d", bp.ID)
	}

	if wp, changed := d.Watchpoints.CheckWatchpoints(d.VM); wp != nil && changed {
		return true, fmt.Sprintf("watchpoint %d: %s", wp.ID, wp.Expression)
	}

	return false, ""
}

func (d *Debugger) GetOutput() string {
	output := d.Output.String()
	d.Output.Reset()
	return output
}

func (d *Debugger) Printf(format string, args ...interface{}) {
	d.Output.WriteString(fmt.Sprintf(format, args...))
}

func (d *Debugger) Println(args ...interface{}) {
	d.Output.WriteString(fmt.Sprintln(args...))
}

// callInstructionWidth is the byte length of a call instruction: opcode(1) + type(1) +
// target(4), per instr.FormLabel.
const callInstructionWidth = 6

// SetStepOver arranges to run past the instruction at pc, stopping at its return point if it
// is a call rather than stepping into it. Recognizing a call is a plain opcode comparison
// against the decoded byte at pc; BitBox has no predicated instructions to account for.
func (d *Debugger) SetStepOver() {
	op, ok := d.VM.PeekOpcode()
	if ok && op == instr.Call {
		d.StepOverPC = d.VM.PC() + callInstructionWidth
		d.StepMode = StepOver
	} else {
		d.StepMode = StepSingle
	}
	d.Running = true
}

// SetStepOut configures the debugger to run until the current function returns.
func (d *Debugger) SetStepOut() {
	d.StepMode = StepOut
	d.Running = true
}
