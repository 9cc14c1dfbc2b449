package vm

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/xplshn/tanc/pkg/asm"
	"github.com/xplshn/tanc/pkg/config"
	"github.com/xplshn/tanc/pkg/runtime"
)

var (
	ErrStepLimit      = errors.New("step limit exceeded")
	ErrStackUnderflow = errors.New("operand stack underflow")
	ErrBadAddress     = errors.New("memory access out of range")
	ErrTypeMismatch   = errors.New("operand type mismatch")
	ErrBadJump        = errors.New("jump target out of range")
	ErrDivideByZero   = errors.New("unguarded division by zero")
)

// cancelCheckInterval is how many steps run between context checks.
const cancelCheckInterval = 1 << 14

// Word is one operand stack entry.
type Word struct {
	IsFloat bool
	I       int32
	F       float64
}

func Int(v int32) Word     { return Word{I: v} }
func Float(v float64) Word { return Word{IsFloat: true, F: v} }

func (w Word) String() string {
	if w.IsFloat {
		return fmt.Sprintf("%g", w.F)
	}
	return fmt.Sprintf("%d", w.I)
}

// Stats summarises a run.
type Stats struct {
	Steps     int64
	PeakStack int
	HeapBytes int64
}

func (s Stats) String() string {
	return fmt.Sprintf("%s steps, peak operand stack %s words, %s heap",
		humanize.Comma(s.Steps), humanize.Comma(int64(s.PeakStack)), humanize.IBytes(uint64(s.HeapBytes)))
}

type Machine struct {
	prog      *Program
	mem       []byte
	stack     []Word
	pc        int
	out       io.Writer
	stepLimit int64
	stats     Stats
}

// New loads prog into a fresh memory of cfg.MemorySize bytes.
func New(prog *Program, cfg *config.Config, out io.Writer) (*Machine, error) {
	if len(prog.Data) > cfg.MemorySize {
		return nil, fmt.Errorf("program data needs %s, memory is %s",
			humanize.IBytes(uint64(len(prog.Data))), humanize.IBytes(uint64(cfg.MemorySize)))
	}
	m := &Machine{
		prog:      prog,
		mem:       make([]byte, cfg.MemorySize),
		out:       out,
		stepLimit: cfg.StepLimit,
	}
	copy(m.mem, prog.Data)
	return m, nil
}

func (m *Machine) Stats() Stats { return m.stats }

// Symbol reads the integer word stored at a data label.
func (m *Machine) Symbol(label string) (int32, error) {
	addr, ok := m.prog.Symbols[label]
	if !ok {
		return 0, fmt.Errorf("no data label %s", label)
	}
	b, err := m.span(addr, 4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

// Stack returns a copy of the operand stack, bottom first.
func (m *Machine) Stack() []Word { return append([]Word(nil), m.stack...) }

func (m *Machine) push(w Word) {
	m.stack = append(m.stack, w)
	if len(m.stack) > m.stats.PeakStack {
		m.stats.PeakStack = len(m.stack)
	}
}

func (m *Machine) pop() (Word, error) {
	if len(m.stack) == 0 {
		return Word{}, ErrStackUnderflow
	}
	w := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return w, nil
}

func (m *Machine) popInt() (int32, error) {
	w, err := m.pop()
	if err != nil {
		return 0, err
	}
	if w.IsFloat {
		return 0, fmt.Errorf("%w: expected integer, found float %g", ErrTypeMismatch, w.F)
	}
	return w.I, nil
}

func (m *Machine) popFloat() (float64, error) {
	w, err := m.pop()
	if err != nil {
		return 0, err
	}
	if !w.IsFloat {
		return 0, fmt.Errorf("%w: expected float, found integer %d", ErrTypeMismatch, w.I)
	}
	return w.F, nil
}

func (m *Machine) popInts() (a, b int32, err error) {
	if b, err = m.popInt(); err != nil {
		return
	}
	a, err = m.popInt()
	return
}

func (m *Machine) popFloats() (a, b float64, err error) {
	if b, err = m.popFloat(); err != nil {
		return
	}
	a, err = m.popFloat()
	return
}

func (m *Machine) span(addr int32, n int) ([]byte, error) {
	if addr < 0 || int(addr)+n > len(m.mem) {
		return nil, fmt.Errorf("%w: address %d", ErrBadAddress, addr)
	}
	return m.mem[addr : int(addr)+n], nil
}

func (m *Machine) jump(target int32) error {
	if target < 0 || int(target) > len(m.prog.Code) {
		return fmt.Errorf("%w: %d", ErrBadJump, target)
	}
	m.pc = int(target)
	return nil
}

// Run executes from the first instruction until Halt or the end of code.
func (m *Machine) Run(ctx context.Context) error {
	m.pc = 0
	for m.pc < len(m.prog.Code) {
		if m.stepLimit > 0 && m.stats.Steps >= m.stepLimit {
			return fmt.Errorf("%w after %s steps", ErrStepLimit, humanize.Comma(m.stats.Steps))
		}
		if m.stats.Steps%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		m.stats.Steps++

		pc := m.pc
		in := m.prog.Code[pc]
		m.pc++
		halted, err := m.step(in, m.prog.Targets[pc])
		if err != nil {
			return fmt.Errorf("instruction %d (%s): %w", pc, in.Op, err)
		}
		if halted {
			break
		}
	}
	m.recordHeap()
	return nil
}

// recordHeap measures how far the allocator's free pointer has moved.
func (m *Machine) recordHeap() {
	next, ok1 := m.prog.Symbols[runtime.HeapNextFree]
	start, ok2 := m.prog.Symbols[runtime.HeapMemoryStart]
	if !ok1 || !ok2 {
		return
	}
	if b, err := m.span(next, 4); err == nil {
		m.stats.HeapBytes = int64(int32(binary.LittleEndian.Uint32(b)) - start)
	}
}

func (m *Machine) step(in asm.Instruction, target int32) (bool, error) {
	switch in.Op {
	case asm.Nop:

	case asm.PushI:
		m.push(Int(int32(in.Int)))
	case asm.PushF:
		m.push(Float(in.Float))
	case asm.PushD:
		m.push(Int(target))
	case asm.Pop:
		if _, err := m.pop(); err != nil {
			return false, err
		}
	case asm.Duplicate:
		if len(m.stack) == 0 {
			return false, ErrStackUnderflow
		}
		m.push(m.stack[len(m.stack)-1])
	case asm.Exchange:
		n := len(m.stack)
		if n < 2 {
			return false, ErrStackUnderflow
		}
		m.stack[n-1], m.stack[n-2] = m.stack[n-2], m.stack[n-1]

	case asm.Add, asm.Subtract, asm.Multiply, asm.Divide, asm.And, asm.Or, asm.BTAnd, asm.BTOr:
		a, b, err := m.popInts()
		if err != nil {
			return false, err
		}
		r, err := intOp(in.Op, a, b)
		if err != nil {
			return false, err
		}
		m.push(Int(r))
	case asm.FAdd, asm.FSubtract, asm.FMultiply, asm.FDivide:
		a, b, err := m.popFloats()
		if err != nil {
			return false, err
		}
		m.push(Float(floatOp(in.Op, a, b)))
	case asm.Negate, asm.BNegate, asm.BTNegate, asm.ConvertF:
		a, err := m.popInt()
		if err != nil {
			return false, err
		}
		switch in.Op {
		case asm.Negate:
			m.push(Int(-a))
		case asm.BNegate:
			m.push(Int(boolInt(a == 0)))
		case asm.BTNegate:
			m.push(Int(^a))
		case asm.ConvertF:
			m.push(Float(float64(a)))
		}
	case asm.FNegate, asm.ConvertI:
		f, err := m.popFloat()
		if err != nil {
			return false, err
		}
		if in.Op == asm.FNegate {
			m.push(Float(-f))
		} else {
			m.push(Int(int32(f)))
		}

	case asm.LoadC, asm.LoadI, asm.LoadF:
		return false, m.load(in.Op)
	case asm.StoreC, asm.StoreI, asm.StoreF:
		return false, m.store(in.Op)

	case asm.Jump:
		return false, m.jump(target)
	case asm.JumpTrue, asm.JumpFalse, asm.JumpPos, asm.JumpNeg:
		v, err := m.popInt()
		if err != nil {
			return false, err
		}
		var taken bool
		switch in.Op {
		case asm.JumpTrue:
			taken = v != 0
		case asm.JumpFalse:
			taken = v == 0
		case asm.JumpPos:
			taken = v > 0
		case asm.JumpNeg:
			taken = v < 0
		}
		if taken {
			return false, m.jump(target)
		}
	case asm.JumpFZero, asm.JumpFPos, asm.JumpFNeg:
		f, err := m.popFloat()
		if err != nil {
			return false, err
		}
		var taken bool
		switch in.Op {
		case asm.JumpFZero:
			taken = f == 0
		case asm.JumpFPos:
			taken = f > 0
		case asm.JumpFNeg:
			taken = f < 0
		}
		if taken {
			return false, m.jump(target)
		}

	case asm.Call:
		m.push(Int(int32(m.pc)))
		return false, m.jump(target)
	case asm.CallV:
		dest, err := m.popInt()
		if err != nil {
			return false, err
		}
		m.push(Int(int32(m.pc)))
		return false, m.jump(dest)
	case asm.Return:
		dest, err := m.popInt()
		if err != nil {
			return false, err
		}
		return false, m.jump(dest)
	case asm.PushPC:
		m.push(Int(int32(m.pc - 1)))

	case asm.Halt:
		return true, nil
	case asm.Printf:
		return false, m.printf()
	case asm.Memtop:
		m.push(Int(int32(len(m.mem))))

	default:
		return false, fmt.Errorf("cannot execute %s", in.Op)
	}
	return false, nil
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func intOp(op asm.Opcode, a, b int32) (int32, error) {
	switch op {
	case asm.Add:
		return a + b, nil
	case asm.Subtract:
		return a - b, nil
	case asm.Multiply:
		return a * b, nil
	case asm.Divide:
		if b == 0 {
			return 0, ErrDivideByZero
		}
		return a / b, nil
	case asm.And:
		return boolInt(a != 0 && b != 0), nil
	case asm.Or:
		return boolInt(a != 0 || b != 0), nil
	case asm.BTAnd:
		return a & b, nil
	case asm.BTOr:
		return a | b, nil
	}
	panic("vm: not an integer operator: " + op.String())
}

func floatOp(op asm.Opcode, a, b float64) float64 {
	switch op {
	case asm.FAdd:
		return a + b
	case asm.FSubtract:
		return a - b
	case asm.FMultiply:
		return a * b
	case asm.FDivide:
		return a / b
	}
	panic("vm: not a float operator: " + op.String())
}

// load replaces the address on top of the stack with the value stored
// there.
func (m *Machine) load(op asm.Opcode) error {
	addr, err := m.popInt()
	if err != nil {
		return err
	}
	switch op {
	case asm.LoadC:
		b, err := m.span(addr, 1)
		if err != nil {
			return err
		}
		m.push(Int(int32(b[0])))
	case asm.LoadI:
		b, err := m.span(addr, 4)
		if err != nil {
			return err
		}
		m.push(Int(int32(binary.LittleEndian.Uint32(b))))
	case asm.LoadF:
		b, err := m.span(addr, 8)
		if err != nil {
			return err
		}
		m.push(Float(math.Float64frombits(binary.LittleEndian.Uint64(b))))
	}
	return nil
}

// store consumes [... addr value].
func (m *Machine) store(op asm.Opcode) error {
	if op == asm.StoreF {
		v, err := m.popFloat()
		if err != nil {
			return err
		}
		addr, err := m.popInt()
		if err != nil {
			return err
		}
		b, err := m.span(addr, 8)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint64(b, math.Float64bits(v))
		return nil
	}

	v, err := m.popInt()
	if err != nil {
		return err
	}
	addr, err := m.popInt()
	if err != nil {
		return err
	}
	if op == asm.StoreC {
		b, err := m.span(addr, 1)
		if err != nil {
			return err
		}
		b[0] = byte(v)
		return nil
	}
	b, err := m.span(addr, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, uint32(v))
	return nil
}
