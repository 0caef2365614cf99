package vm

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/bitbox-lang/bitbox/instr"
)

// State distinguishes why the VM's Run loop returned. There is no breakpoint state here;
// that belongs to the debugger package, which stops the loop between steps rather than the
// VM knowing about it.
type State int

const (
	StateRunning State = iota
	StateHalted
	StateError
)

// VM is BitBox's fetch/decode/execute machine: a program counter into an immutable image,
// 32 general registers, a LIFO value stack, and a growable heap. The run loop is
// unconditional and has no cycle cap by default; a cap is offered only as an optional,
// config-driven guard (see bbconfig and MaxSteps).
type VM struct {
	pc        uint32
	Registers Registers
	Stack     []uint64
	Heap      Heap
	running   bool

	image []byte // immutable for the VM's lifetime

	Stdout io.Writer

	State    State
	LastErr  error
	MaxSteps uint64 // 0 = unbounded; set from bbconfig to guard against runaway programs
	steps    uint64

	// Trace and Stats are optional diagnostics hooks; both are nil unless a caller
	// (the CLI, the debugger, or the session service) explicitly enables them.
	Trace *ExecutionTrace
	Stats *Statistics
}

// New creates a VM over img, positioned at entryOffset (as decoded from the image header).
func New(img []byte, entryOffset uint32) *VM {
	return &VM{
		pc:      entryOffset,
		image:   img,
		running: true,
		State:   StateRunning,
		Stdout:  bufio.NewWriter(os.Stdout),
	}
}

// PC returns the current program counter (byte offset into the image).
func (v *VM) PC() uint32 { return v.pc }

// PeekOpcode returns the opcode byte at the current pc without advancing it, or false if pc
// is out of bounds. Exists for the debugger's step-over command, which needs to know whether
// the instruction about to execute is a call before deciding whether to run to its return.
func (v *VM) PeekOpcode() (instr.Opcode, bool) {
	if int(v.pc) >= len(v.image) {
		return 0, false
	}
	return instr.Opcode(v.image[v.pc]), true
}

// Running reports whether the loop should keep stepping.
func (v *VM) Running() bool { return v.running }

// Reset rewinds the VM to a fresh run of the same image starting at entryOffset: registers,
// stack, and heap are cleared, and execution state returns to running. The image itself is
// never touched. Exists for the debugger's `run`/`reset` commands, which restart a session
// without re-assembling or re-loading.
func (v *VM) Reset(entryOffset uint32) {
	v.pc = entryOffset
	v.Registers.Reset()
	v.Stack = nil
	v.Heap = Heap{}
	v.running = true
	v.State = StateRunning
	v.LastErr = nil
	v.steps = 0
}

// errFatal marks the VM halted-on-error and records the cause; the fetch/decode/execute
// loop is fail-fast for VM errors, unlike the parser's batch model.
func (v *VM) errFatal(err error) error {
	v.running = false
	v.State = StateError
	v.LastErr = err
	return err
}

func (v *VM) readByte() (byte, error) {
	if int(v.pc) >= len(v.image) {
		return 0, fmt.Errorf("pc 0x%x out of image bounds (length %d)", v.pc, len(v.image))
	}
	b := v.image[v.pc]
	v.pc++
	return b, nil
}

func (v *VM) readBytes(n int) ([]byte, error) {
	if int(v.pc)+n > len(v.image) {
		return nil, fmt.Errorf("pc 0x%x: reading %d bytes exceeds image bounds (length %d)", v.pc, n, len(v.image))
	}
	b := v.image[v.pc : int(v.pc)+n]
	v.pc += uint32(n)
	return b, nil
}

func leUint(b []byte) uint64 {
	var v uint64
	for i, by := range b {
		v |= uint64(by) << (8 * uint(i))
	}
	return v
}

// Step executes exactly one fetch/decode/execute cycle.
func (v *VM) Step() error {
	if !v.running {
		return nil
	}
	v.steps++
	if v.MaxSteps > 0 && v.steps > v.MaxSteps {
		return v.errFatal(fmt.Errorf("exceeded max steps (%d)", v.MaxSteps))
	}

	startPC := v.pc

	opByte, err := v.readByte()
	if err != nil {
		return v.errFatal(err)
	}
	op := instr.Opcode(opByte)
	if !op.Valid() {
		return v.errFatal(fmt.Errorf("invalid opcode 0x%02x at pc 0x%x", opByte, v.pc-1))
	}

	typeByte, err := v.readByte()
	if err != nil {
		return v.errFatal(err)
	}
	t := instr.Type(typeByte)
	if !t.Valid() {
		return v.errFatal(fmt.Errorf("invalid type tag 0x%02x at pc 0x%x", typeByte, v.pc-1))
	}

	var regs [3]uint8
	var imm []byte
	var target uint32

	switch op.Form() {
	case instr.FormNoArgs:
	case instr.FormReg1, instr.FormReg2, instr.FormReg3:
		n := instr.OperandSize(op.Form(), t)
		bs, err := v.readBytes(n)
		if err != nil {
			return v.errFatal(err)
		}
		for i := 0; i < n; i++ {
			if !instr.ValidRegister(int(bs[i])) {
				return v.errFatal(&instr.ErrRegisterOutOfBounds{Index: int(bs[i])})
			}
			regs[i] = bs[i]
		}
	case instr.FormImm:
		rb, err := v.readByte()
		if err != nil {
			return v.errFatal(err)
		}
		if !instr.ValidRegister(int(rb)) {
			return v.errFatal(&instr.ErrRegisterOutOfBounds{Index: int(rb)})
		}
		regs[0] = rb
		imm, err = v.readBytes(t.ByteWidth())
		if err != nil {
			return v.errFatal(err)
		}
	case instr.FormLabel:
		bs, err := v.readBytes(4)
		if err != nil {
			return v.errFatal(err)
		}
		target = uint32(leUint(bs))
	case instr.FormReg2Label:
		bs, err := v.readBytes(2)
		if err != nil {
			return v.errFatal(err)
		}
		for i := 0; i < 2; i++ {
			if !instr.ValidRegister(int(bs[i])) {
				return v.errFatal(&instr.ErrRegisterOutOfBounds{Index: int(bs[i])})
			}
			regs[i] = bs[i]
		}
		tb, err := v.readBytes(4)
		if err != nil {
			return v.errFatal(err)
		}
		target = uint32(leUint(tb))
	}

	if err := v.execute(op, t, regs, imm, target); err != nil {
		return err
	}

	if v.Stats != nil {
		v.Stats.RecordInstruction(op, startPC)
	}
	if v.Trace != nil {
		v.Trace.RecordInstruction(v, startPC, fmt.Sprintf("%s[%s]", op, t))
	}
	return nil
}

func (v *VM) push(val uint64) {
	v.Stack = append(v.Stack, val)
}

func (v *VM) pop() (uint64, error) {
	if len(v.Stack) == 0 {
		return 0, fmt.Errorf("stack underflow")
	}
	n := len(v.Stack) - 1
	val := v.Stack[n]
	v.Stack = v.Stack[:n]
	return val, nil
}

// execute carries out the decoded instruction. All arithmetic is performed on 64-bit
// unsigned registers regardless of the declared type tag; the tag governs only immediate
// width and heap access width.
func (v *VM) execute(op instr.Opcode, t instr.Type, regs [3]uint8, imm []byte, target uint32) error {
	r := &v.Registers
	switch op {
	case instr.Load:
		r.Set(regs[0], leUint(imm))
	case instr.Copy:
		r.Set(regs[0], r.Get(regs[1]))
	case instr.Store:
		if err := v.Heap.StoreWidth(r.Get(regs[0]), t.ByteWidth(), r.Get(regs[1])); err != nil {
			return v.errFatal(err)
		}
	case instr.Aloc:
		v.Heap.Grow(r.Get(regs[0]))
	case instr.Push:
		v.push(r.Get(regs[0]))
	case instr.Pop:
		val, err := v.pop()
		if err != nil {
			return v.errFatal(err)
		}
		r.Set(regs[0], val)
	case instr.Add:
		r.Set(regs[0], r.Get(regs[1])+r.Get(regs[2]))
	case instr.Sub:
		r.Set(regs[0], r.Get(regs[1])-r.Get(regs[2]))
	case instr.Div:
		rhs := r.Get(regs[2])
		if rhs == 0 {
			return v.errFatal(fmt.Errorf("division by zero"))
		}
		r.Set(regs[0], r.Get(regs[1])/rhs)
	case instr.Mul:
		r.Set(regs[0], r.Get(regs[1])*r.Get(regs[2]))
	case instr.And:
		r.Set(regs[0], r.Get(regs[1])&r.Get(regs[2]))
	case instr.Or:
		r.Set(regs[0], r.Get(regs[1])|r.Get(regs[2]))
	case instr.Shr:
		r.Set(regs[0], r.Get(regs[1])>>r.Get(regs[2]))
	case instr.Eq:
		if r.Get(regs[1]) == r.Get(regs[2]) {
			r.Set(regs[0], 1)
		} else {
			r.Set(regs[0], 0)
		}
	case instr.Inc:
		r.Set(regs[0], r.Get(regs[0])+1)
	case instr.Jne:
		if r.Get(regs[0]) != r.Get(regs[1]) {
			v.pc = target
		}
	case instr.Call:
		v.push(uint64(v.pc))
		v.pc = target
	case instr.Return:
		val, err := v.pop()
		if err != nil {
			return v.errFatal(err)
		}
		v.pc = uint32(val)
	case instr.PrintReg:
		fmt.Fprintf(v.Stdout, "%d\n", r.Get(regs[0]))
	case instr.Hult:
		v.running = false
		v.State = StateHalted
	case instr.Syscall:
		if err := v.dispatchSyscall(); err != nil {
			return v.errFatal(err)
		}
	default:
		return v.errFatal(fmt.Errorf("unimplemented opcode %s", op))
	}
	return nil
}

// Run steps the VM until it halts or hits a fatal error, flushing Stdout on exit if it
// implements a Flush method (the default bufio.Writer does).
func (v *VM) Run() error {
	for v.running {
		if err := v.Step(); err != nil {
			v.flush()
			return err
		}
	}
	v.flush()
	return v.LastErr
}

type flusher interface{ Flush() error }

func (v *VM) flush() {
	if f, ok := v.Stdout.(flusher); ok {
		_ = f.Flush()
	}
}
