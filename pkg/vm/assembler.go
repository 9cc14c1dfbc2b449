// Package vm assembles program fragments and runs them on an emulated
// stack machine
package vm

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/xplshn/tanc/pkg/asm"
)

// Program is an assembled image: code with resolved jump targets and the
// initial contents of data memory.
type Program struct {
	Code    []asm.Instruction
	Targets []int32 // resolved label operand per instruction
	Data    []byte
	Labels  map[string]int32 // code labels to instruction indices
	Symbols map[string]int32 // data labels to addresses
}

type fixup struct {
	at    int
	label string
}

// Assemble lays data directives out from address 0 in the order they
// appear, wherever they appear, and gives each code label the index of the
// next code instruction.
func Assemble(frag *asm.Fragment) (*Program, error) {
	p := &Program{
		Labels:  make(map[string]int32),
		Symbols: make(map[string]int32),
	}
	var fixups []fixup

	for _, in := range frag.Instrs {
		switch in.Op {
		case asm.Label:
			if err := p.define(in.Text); err != nil {
				return nil, err
			}
			p.Labels[in.Text] = int32(len(p.Code))
		case asm.DLabel:
			if err := p.define(in.Text); err != nil {
				return nil, err
			}
			p.Symbols[in.Text] = int32(len(p.Data))
		case asm.DataC:
			p.Data = append(p.Data, byte(in.Int))
		case asm.DataI:
			p.Data = binary.LittleEndian.AppendUint32(p.Data, uint32(int32(in.Int)))
		case asm.DataF:
			p.Data = binary.LittleEndian.AppendUint64(p.Data, math.Float64bits(in.Float))
		case asm.DataS:
			p.Data = append(p.Data, in.Text...)
			p.Data = append(p.Data, 0)
		case asm.DataZ:
			if in.Int < 0 {
				return nil, fmt.Errorf("DataZ with negative size %d", in.Int)
			}
			p.Data = append(p.Data, make([]byte, in.Int)...)
		case asm.DataD:
			fixups = append(fixups, fixup{at: len(p.Data), label: in.Text})
			p.Data = append(p.Data, 0, 0, 0, 0)
		default:
			p.Code = append(p.Code, in)
		}
	}

	p.Targets = make([]int32, len(p.Code))
	for i, in := range p.Code {
		if !hasLabelOperand(in.Op) {
			continue
		}
		target, err := p.resolve(in.Text)
		if err != nil {
			return nil, fmt.Errorf("instruction %d (%s): %w", i, in.Op, err)
		}
		p.Targets[i] = target
	}
	for _, f := range fixups {
		target, err := p.resolve(f.label)
		if err != nil {
			return nil, fmt.Errorf("DataD at %d: %w", f.at, err)
		}
		binary.LittleEndian.PutUint32(p.Data[f.at:], uint32(target))
	}
	return p, nil
}

func (p *Program) define(label string) error {
	_, code := p.Labels[label]
	_, data := p.Symbols[label]
	if code || data {
		return fmt.Errorf("label %s defined twice", label)
	}
	return nil
}

// resolve finds a label in either namespace; data labels are addresses and
// code labels are instruction indices.
func (p *Program) resolve(label string) (int32, error) {
	if addr, ok := p.Symbols[label]; ok {
		return addr, nil
	}
	if idx, ok := p.Labels[label]; ok {
		return idx, nil
	}
	return 0, fmt.Errorf("undefined label %s", label)
}

func hasLabelOperand(op asm.Opcode) bool {
	switch op {
	case asm.PushD, asm.Jump, asm.JumpTrue, asm.JumpFalse, asm.JumpPos, asm.JumpNeg,
		asm.JumpFZero, asm.JumpFPos, asm.JumpFNeg, asm.Call:
		return true
	}
	return false
}
