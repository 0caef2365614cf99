package debugger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bitbox-lang/bitbox/instr"
	"github.com/bitbox-lang/bitbox/vm"
)

// Command handler implementations, operating on BitBox's 32 general registers, LIFO value
// stack, and byte-addressable heap. Register and heap watches are both handled by watch
// (see watchpoints.go); there is no behavioral distinction between watching a register and
// watching a heap address, so one command covers both.

func (d *Debugger) cmdRun(args []string) error {
	d.VM.Reset(d.EntryOffset)
	d.Running = true
	d.StepMode = StepNone
	d.Println("Starting program execution...")
	return nil
}

func (d *Debugger) cmdContinue(args []string) error {
	if d.VM.State == vm.StateHalted {
		return fmt.Errorf("program is not running")
	}
	d.VM.State = vm.StateRunning
	d.Running = true
	d.StepMode = StepNone
	d.Println("Continuing...")
	return nil
}

func (d *Debugger) cmdStep(args []string) error {
	d.StepMode = StepSingle
	d.Running = true
	return nil
}

func (d *Debugger) cmdNext(args []string) error {
	d.SetStepOver()
	return nil
}

func (d *Debugger) cmdFinish(args []string) error {
	d.SetStepOut()
	return nil
}

func (d *Debugger) cmdBreak(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: break <address|label> [if <condition>]")
	}

	address, err := d.ResolveAddress(args[0])
	if err != nil {
		return err
	}

	var condition string
	if len(args) > 1 && strings.ToLower(args[1]) == "if" {
		condition = strings.Join(args[2:], " ")
	}

	bp := d.Breakpoints.AddBreakpoint(address, false, condition)
	if condition != "" {
		d.Printf("Breakpoint %d at 0x%08X (condition: %s)\n", bp.ID, address, condition)
	} else {
		d.Printf("Breakpoint %d at 0x%08X\n", bp.ID, address)
	}
	return nil
}

func (d *Debugger) cmdTBreak(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: tbreak <address|label>")
	}

	address, err := d.ResolveAddress(args[0])
	if err != nil {
		return err
	}

	bp := d.Breakpoints.AddBreakpoint(address, true, "")
	d.Printf("Temporary breakpoint %d at 0x%08X\n", bp.ID, address)
	return nil
}

func (d *Debugger) cmdDelete(args []string) error {
	if len(args) == 0 {
		d.Breakpoints.Clear()
		d.Println("All breakpoints deleted")
		return nil
	}

	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid breakpoint ID: %s", args[0])
	}
	if err := d.Breakpoints.DeleteBreakpoint(id); err != nil {
		return err
	}
	d.Printf("Breakpoint %d deleted\n", id)
	return nil
}

func (d *Debugger) cmdEnable(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: enable <breakpoint-id>")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid breakpoint ID: %s", args[0])
	}
	if err := d.Breakpoints.EnableBreakpoint(id); err != nil {
		return err
	}
	d.Printf("Breakpoint %d enabled\n", id)
	return nil
}

func (d *Debugger) cmdDisable(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: disable <breakpoint-id>")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid breakpoint ID: %s", args[0])
	}
	if err := d.Breakpoints.DisableBreakpoint(id); err != nil {
		return err
	}
	d.Printf("Breakpoint %d disabled\n", id)
	return nil
}

// cmdWatch sets a watchpoint on a register (`%3`) or a heap location (`[0x10]`, default
// 8-byte width, or `[0x10:4]` for an explicit width).
func (d *Debugger) cmdWatch(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: watch <%%register|[address[:width]]>")
	}

	expression := strings.Join(args, " ")
	wp, err := d.addWatchFromExpression(expression)
	if err != nil {
		return err
	}

	if err := d.Watchpoints.InitializeWatchpoint(wp.ID, d.VM); err != nil {
		d.Watchpoints.DeleteWatchpoint(wp.ID)
		return err
	}
	d.Printf("Watchpoint %d: %s\n", wp.ID, expression)
	return nil
}

func (d *Debugger) addWatchFromExpression(expr string) (*Watchpoint, error) {
	expr = strings.TrimSpace(expr)

	if strings.HasPrefix(expr, "%") {
		n, err := strconv.Atoi(expr[1:])
		if err != nil || !instr.ValidRegister(n) {
			return nil, fmt.Errorf("invalid register: %s", expr)
		}
		return d.Watchpoints.AddRegisterWatch(expr, uint8(n)), nil
	}

	if strings.HasPrefix(expr, "[") && strings.HasSuffix(expr, "]") {
		body := strings.TrimSuffix(strings.TrimPrefix(expr, "["), "]")
		width := 8
		addrStr := body
		if idx := strings.Index(body, ":"); idx >= 0 {
			addrStr = body[:idx]
			w, err := strconv.Atoi(body[idx+1:])
			if err != nil {
				return nil, fmt.Errorf("invalid watch width: %s", body[idx+1:])
			}
			width = w
		}
		addr, err := parseHeapAddress(addrStr)
		if err != nil {
			return nil, err
		}
		return d.Watchpoints.AddHeapWatch(expr, addr, width), nil
	}

	return nil, fmt.Errorf("invalid watch expression: %s (use %%N or [address])", expr)
}

func parseHeapAddress(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}

func (d *Debugger) cmdPrint(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: print <expression>")
	}

	expression := strings.Join(args, " ")
	result, err := d.Evaluator.EvaluateExpression(expression, d.VM, d.Symbols)
	if err != nil {
		return err
	}
	d.Printf("$%d = 0x%X (%d)\n", d.Evaluator.GetValueNumber(), result, result)
	return nil
}

// cmdExamine examines heap contents at an address: `x[/nfu] <address>` where n is a count, f
// is a format (x/d/u/o/t), and u is a unit width (b/h/w/g for 1/2/4/8 bytes).
func (d *Debugger) cmdExamine(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: x[/nfu] <address>\n  n: count, f: format (x/d/u/o/t), u: unit size (b/h/w/g)")
	}

	count := 1
	format := 'x'
	unit := 'w'
	addrArg := args[0]

	if strings.HasPrefix(args[0], "/") {
		formatStr := args[0][1:]
		if len(args) < 2 {
			return fmt.Errorf("missing address")
		}
		addrArg = args[1]

		i := 0
		for i < len(formatStr) && formatStr[i] >= '0' && formatStr[i] <= '9' {
			i++
		}
		if i > 0 {
			if n, err := strconv.Atoi(formatStr[:i]); err == nil {
				count = n
			}
			formatStr = formatStr[i:]
		}
		if len(formatStr) > 0 {
			format = rune(formatStr[0])
			formatStr = formatStr[1:]
		}
		if len(formatStr) > 0 {
			unit = rune(formatStr[0])
		}
	}

	address, err := parseHeapAddress(addrArg)
	if err != nil {
		return err
	}

	width := 4
	switch unit {
	case 'b':
		width = 1
	case 'h':
		width = 2
	case 'g':
		width = 8
	}

	d.Printf("0x%X:", address)
	for i := 0; i < count; i++ {
		value, err := d.VM.Heap.LoadWidth(address, width)
		if err != nil {
			return err
		}
		address += uint64(width)

		switch format {
		case 'd':
			d.Printf(" %d", int64(value))
		case 'u':
			d.Printf(" %d", value)
		case 'o':
			d.Printf(" %o", value)
		case 't':
			d.Printf(" %b", value)
		default:
			d.Printf(" 0x%0*X", width*2, value)
		}
	}
	d.Println()
	return nil
}

func (d *Debugger) cmdInfo(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: info <registers|breakpoints|watchpoints|stack|heap>")
	}

	switch strings.ToLower(args[0]) {
	case "registers", "reg", "r":
		return d.showRegisters()
	case "breakpoints", "break", "b":
		return d.showBreakpoints()
	case "watchpoints", "watch", "w":
		return d.showWatchpoints()
	case "stack", "s":
		return d.showStack()
	case "heap":
		d.Printf("Heap length: %d bytes\n", d.VM.Heap.Len())
		return nil
	default:
		return fmt.Errorf("unknown info command: %s", args[0])
	}
}

func (d *Debugger) showRegisters() error {
	d.Println("Registers:")
	for row := 0; row < RegisterViewRows; row++ {
		var line strings.Builder
		for col := 0; col < RegisterGroupSize; col++ {
			reg := row*RegisterGroupSize + col
			if reg >= instr.NumRegisters {
				break
			}
			fmt.Fprintf(&line, "%%%-3d=0x%016X  ", reg, d.VM.Registers.Get(uint8(reg)))
		}
		d.Println(strings.TrimRight(line.String(), " "))
	}
	d.Printf("  pc = 0x%08X\n", d.VM.PC())
	return nil
}

func (d *Debugger) showBreakpoints() error {
	breakpoints := d.Breakpoints.GetAllBreakpoints()
	if len(breakpoints) == 0 {
		d.Println("No breakpoints")
		return nil
	}

	d.Println("Breakpoints:")
	for _, bp := range breakpoints {
		status := "enabled"
		if !bp.Enabled {
			status = "disabled"
		}
		temp := ""
		if bp.Temporary {
			temp = " (temporary)"
		}
		condition := ""
		if bp.Condition != "" {
			condition = fmt.Sprintf(" if %s", bp.Condition)
		}
		d.Printf("  %d: 0x%08X %s%s%s (hit %d times)\n", bp.ID, bp.Address, status, temp, condition, bp.HitCount)
	}
	return nil
}

func (d *Debugger) showWatchpoints() error {
	watchpoints := d.Watchpoints.GetAllWatchpoints()
	if len(watchpoints) == 0 {
		d.Println("No watchpoints")
		return nil
	}

	d.Println("Watchpoints:")
	for _, wp := range watchpoints {
		status := "enabled"
		if !wp.Enabled {
			status = "disabled"
		}
		d.Printf("  %d: %s %s (hit %d times, last value: 0x%X)\n", wp.ID, wp.Expression, status, wp.HitCount, wp.LastValue)
	}
	return nil
}

func (d *Debugger) showStack() error {
	d.Printf("Value stack (%d cells, top first):\n", len(d.VM.Stack))
	depth := StackDisplayCells
	for i := len(d.VM.Stack) - 1; i >= 0 && depth > 0; i-- {
		d.Printf("  [%d] 0x%016X (%d)\n", len(d.VM.Stack)-1-i, d.VM.Stack[i], d.VM.Stack[i])
		depth--
	}
	return nil
}

// cmdBacktrace prints the current pc and, best-effort, the top of the value stack as
// candidate return addresses. BitBox's call/return push/pop the same stack ordinary push/pop
// instructions use, so there is no reliable frame boundary to reconstruct a real call chain —
// this is an approximation, not a guaranteed backtrace.
func (d *Debugger) cmdBacktrace(args []string) error {
	d.Println("Call stack (approximate — return addresses are indistinguishable from pushed data):")
	d.Printf("  #0  pc=0x%08X\n", d.VM.PC())

	depth := StackInspectionMaxDepth
	for i := len(d.VM.Stack) - 1; i >= 0 && depth > 0; i-- {
		d.Printf("  #%d  stack[%d]=0x%X\n", len(d.VM.Stack)-i, i, d.VM.Stack[i])
		depth--
	}
	return nil
}

func (d *Debugger) cmdList(args []string) error {
	pc := d.VM.PC()

	if source, exists := d.SourceMap[pc]; exists {
		d.Printf("=> 0x%08X: %s\n", pc, source)
	} else {
		d.Printf("=> 0x%08X: <no source>\n", pc)
	}

	for offset := uint32(1); offset <= 8; offset++ {
		addr := pc + offset
		if source, exists := d.SourceMap[addr]; exists {
			d.Printf("   0x%08X: %s\n", addr, source)
		}
	}
	return nil
}

// cmdSet modifies a register (`set %3 = 42`) or heap cell (`set *0x10 = 42`).
func (d *Debugger) cmdSet(args []string) error {
	if len(args) < 3 || args[1] != "=" {
		return fmt.Errorf("usage: set <%%register|*address> = <value>")
	}

	target := args[0]
	value, err := d.Evaluator.EvaluateExpression(args[2], d.VM, d.Symbols)
	if err != nil {
		return err
	}

	if strings.HasPrefix(target, "*") {
		addr, err := parseHeapAddress(target[1:])
		if err != nil {
			return err
		}
		if err := d.VM.Heap.StoreWidth(addr, 8, value); err != nil {
			return err
		}
		d.Printf("Heap 0x%X set to 0x%X\n", addr, value)
		return nil
	}

	if !strings.HasPrefix(target, "%") {
		return fmt.Errorf("invalid target: %s (use %%N or *address)", target)
	}
	n, err := strconv.Atoi(target[1:])
	if err != nil || !instr.ValidRegister(n) {
		return fmt.Errorf("invalid register: %s", target)
	}
	d.VM.Registers.Set(uint8(n), value)
	d.Printf("Register %s set to 0x%X\n", target, value)
	return nil
}

func (d *Debugger) cmdLoad(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: load <filename>")
	}
	d.Printf("load is not supported mid-session; restart with bitbox debug %s instead\n", args[0])
	return nil
}

func (d *Debugger) cmdReset(args []string) error {
	d.VM.Reset(d.EntryOffset)
	d.Println("VM reset")
	return nil
}

func (d *Debugger) cmdHelp(args []string) error {
	if len(args) > 0 {
		return d.showCommandHelp(args[0])
	}

	d.Println("BitBox Debugger Commands:")
	d.Println()
	d.Println("Execution Control:")
	d.Println("  run (r)           - Start program execution")
	d.Println("  continue (c)      - Continue execution")
	d.Println("  step (s, si)      - Execute single instruction")
	d.Println("  next (n)          - Step over calls")
	d.Println("  finish (fin)      - Step out of current function")
	d.Println()
	d.Println("Breakpoints:")
	d.Println("  break (b) <addr>  - Set breakpoint")
	d.Println("  tbreak (tb) <addr>- Set temporary breakpoint")
	d.Println("  delete (d) [id]   - Delete breakpoint(s)")
	d.Println("  enable <id>       - Enable breakpoint")
	d.Println("  disable <id>      - Disable breakpoint")
	d.Println()
	d.Println("Watchpoints:")
	d.Println("  watch (w) <expr>  - Watch a register (%N) or heap cell ([addr[:width]])")
	d.Println()
	d.Println("Inspection:")
	d.Println("  print (p) <expr>  - Evaluate expression")
	d.Println("  x[/nfu] <addr>    - Examine heap")
	d.Println("  info (i) <what>   - Show information (registers/breakpoints/watchpoints/stack/heap)")
	d.Println("  backtrace (bt)    - Show approximate call stack")
	d.Println("  list (l)          - List source code near pc")
	d.Println()
	d.Println("Modification:")
	d.Println("  set <var> = <val> - Modify register/heap")
	d.Println()
	d.Println("Control:")
	d.Println("  reset             - Reset VM")
	d.Println("  help (h, ?)       - Show this help")
	d.Println()
	d.Println("Type 'help <command>' for detailed help on a specific command.")
	return nil
}

func (d *Debugger) showCommandHelp(cmd string) error {
	helpText := map[string]string{
		"break": "break <address|label> [if <condition>]\n  Set a breakpoint at the specified address or label.\n  Optional condition will be evaluated each time.",
		"step":  "step\n  Execute a single instruction.",
		"next":  "next\n  Step over calls (execute until the instruction after a call returns).",
		"print": "print <expression>\n  Evaluate and print an expression.\n  Expressions can include registers (%N), heap reads ([addr]), labels, and arithmetic.",
		"x":     "x[/nfu] <address>\n  Examine heap contents.\n  n: count, f: format (x/d/u/o/t), u: unit (b/h/w/g)",
		"info":  "info <registers|breakpoints|watchpoints|stack|heap>\n  Display information about program state.",
		"watch": "watch <%%register|[address[:width]]>\n  Break when the register or heap cell's value changes.",
	}

	if help, exists := helpText[cmd]; exists {
		d.Println(help)
		return nil
	}
	return fmt.Errorf("no help available for command: %s", cmd)
}
