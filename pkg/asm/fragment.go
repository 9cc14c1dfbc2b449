package asm

import (
	"fmt"
	"strings"
)

// Kind tags what a fragment leaves on the operand stack.
type Kind int

const (
	Void Kind = iota
	Value
	Address
)

func (k Kind) String() string {
	switch k {
	case Value:
		return "value"
	case Address:
		return "address"
	}
	return "void"
}

// Fragment is an ordered instruction sequence tagged with the kind of
// result it produces.
type Fragment struct {
	Kind   Kind
	Instrs []Instruction
}

func NewVoid() *Fragment    { return &Fragment{Kind: Void} }
func NewValue() *Fragment   { return &Fragment{Kind: Value} }
func NewAddress() *Fragment { return &Fragment{Kind: Address} }

func (f *Fragment) IsVoid() bool    { return f.Kind == Void }
func (f *Fragment) IsValue() bool   { return f.Kind == Value }
func (f *Fragment) IsAddress() bool { return f.Kind == Address }

// MarkValue retags an address fragment after the caller has appended the
// load that turns it into a value. Value fragments never go back.
func (f *Fragment) MarkValue() {
	if f.Kind == Void {
		panic("asm: void fragment cannot become a value")
	}
	f.Kind = Value
}

func (f *Fragment) add(instr Instruction) *Fragment {
	f.Instrs = append(f.Instrs, instr)
	return f
}

// Add appends an operand-less instruction.
func (f *Fragment) Add(op Opcode) *Fragment {
	if op.operand() != noOperand {
		panic(fmt.Sprintf("asm: %s requires an operand", op))
	}
	return f.add(Instruction{Op: op})
}

func (f *Fragment) AddInt(op Opcode, v int64) *Fragment {
	if op.operand() != intOperand {
		panic(fmt.Sprintf("asm: %s does not take an integer operand", op))
	}
	return f.add(Instruction{Op: op, Int: v})
}

func (f *Fragment) AddFloat(op Opcode, v float64) *Fragment {
	if op.operand() != floatOperand {
		panic(fmt.Sprintf("asm: %s does not take a float operand", op))
	}
	return f.add(Instruction{Op: op, Float: v})
}

func (f *Fragment) AddLabel(op Opcode, label string) *Fragment {
	if op.operand() != labelOperand {
		panic(fmt.Sprintf("asm: %s does not take a label operand", op))
	}
	return f.add(Instruction{Op: op, Text: label})
}

func (f *Fragment) AddString(op Opcode, s string) *Fragment {
	if op.operand() != stringOperand {
		panic(fmt.Sprintf("asm: %s does not take a string operand", op))
	}
	return f.add(Instruction{Op: op, Text: s})
}

// Shorthands for the most common instructions.
func (f *Fragment) PushI(v int64) *Fragment      { return f.AddInt(PushI, v) }
func (f *Fragment) PushF(v float64) *Fragment    { return f.AddFloat(PushF, v) }
func (f *Fragment) PushD(label string) *Fragment { return f.AddLabel(PushD, label) }
func (f *Fragment) Label(label string) *Fragment { return f.AddLabel(Label, label) }
func (f *Fragment) Jump(label string) *Fragment  { return f.AddLabel(Jump, label) }

// Comment attaches a note to the most recently added instruction.
func (f *Fragment) Comment(text string) *Fragment {
	if n := len(f.Instrs); n > 0 {
		f.Instrs[n-1].Comment = text
	}
	return f
}

// Append copies other's instructions onto f. The kind of f is unchanged.
func (f *Fragment) Append(other *Fragment) *Fragment {
	f.Instrs = append(f.Instrs, other.Instrs...)
	return f
}

// AppendValue appends a fragment that must yield a value. An address
// fragment is first completed with load, the fetch for the static type of
// its node, and retagged; other has no further consumer after this.
func (f *Fragment) AppendValue(other *Fragment, load Opcode) *Fragment {
	switch other.Kind {
	case Void:
		panic("asm: expected a value fragment, got void")
	case Address:
		other.Add(load)
		other.MarkValue()
	}
	return f.Append(other)
}

// Len is the number of instructions, labels and data directives included.
func (f *Fragment) Len() int { return len(f.Instrs) }

// Ops lists the opcodes in order; tests compare instruction shapes with it.
func (f *Fragment) Ops() []Opcode {
	ops := make([]Opcode, len(f.Instrs))
	for i, in := range f.Instrs {
		ops[i] = in.Op
	}
	return ops
}

func (f *Fragment) String() string {
	var sb strings.Builder
	for _, in := range f.Instrs {
		sb.WriteString(in.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
