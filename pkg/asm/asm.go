// Package asm models the instruction stream of the abstract stack machine
package asm

import (
	"fmt"
	"strconv"
	"strings"
)

type Opcode int

const (
	Nop Opcode = iota

	PushI
	PushF
	PushD
	Pop
	Duplicate
	Exchange

	Add
	Subtract
	Negate
	Multiply
	Divide
	FAdd
	FSubtract
	FNegate
	FMultiply
	FDivide
	ConvertF
	ConvertI

	And
	Or
	BNegate
	BTAnd
	BTOr
	BTNegate

	LoadC
	LoadI
	LoadF
	StoreC
	StoreI
	StoreF

	Label
	DLabel
	DataC
	DataI
	DataF
	DataS
	DataZ
	DataD

	Jump
	JumpTrue
	JumpFalse
	JumpPos
	JumpNeg
	JumpFZero
	JumpFPos
	JumpFNeg
	Call
	CallV
	Return
	PushPC

	Halt
	Printf
	Memtop

	opcodeCount
)

var opcodeNames = [...]string{
	Nop: "Nop", PushI: "PushI", PushF: "PushF", PushD: "PushD", Pop: "Pop",
	Duplicate: "Duplicate", Exchange: "Exchange",
	Add: "Add", Subtract: "Subtract", Negate: "Negate", Multiply: "Multiply", Divide: "Divide",
	FAdd: "FAdd", FSubtract: "FSubtract", FNegate: "FNegate", FMultiply: "FMultiply", FDivide: "FDivide",
	ConvertF: "ConvertF", ConvertI: "ConvertI",
	And: "And", Or: "Or", BNegate: "BNegate", BTAnd: "BTAnd", BTOr: "BTOr", BTNegate: "BTNegate",
	LoadC: "LoadC", LoadI: "LoadI", LoadF: "LoadF", StoreC: "StoreC", StoreI: "StoreI", StoreF: "StoreF",
	Label: "Label", DLabel: "DLabel", DataC: "DataC", DataI: "DataI", DataF: "DataF",
	DataS: "DataS", DataZ: "DataZ", DataD: "DataD",
	Jump: "Jump", JumpTrue: "JumpTrue", JumpFalse: "JumpFalse", JumpPos: "JumpPos", JumpNeg: "JumpNeg",
	JumpFZero: "JumpFZero", JumpFPos: "JumpFPos", JumpFNeg: "JumpFNeg",
	Call: "Call", CallV: "CallV", Return: "Return", PushPC: "PushPC",
	Halt: "Halt", Printf: "Printf", Memtop: "Memtop",
}

func (op Opcode) String() string {
	if op >= 0 && op < opcodeCount {
		return opcodeNames[op]
	}
	return "Opcode(" + strconv.Itoa(int(op)) + ")"
}

type operandKind int

const (
	noOperand operandKind = iota
	intOperand
	floatOperand
	labelOperand
	stringOperand
)

func (op Opcode) operand() operandKind {
	switch op {
	case PushI, DataC, DataI, DataZ:
		return intOperand
	case PushF, DataF:
		return floatOperand
	case PushD, Label, DLabel, DataD, Jump, JumpTrue, JumpFalse, JumpPos, JumpNeg,
		JumpFZero, JumpFPos, JumpFNeg, Call:
		return labelOperand
	case DataS:
		return stringOperand
	}
	return noOperand
}

// IsData reports whether op declares static data rather than code.
func (op Opcode) IsData() bool {
	switch op {
	case DLabel, DataC, DataI, DataF, DataS, DataZ, DataD:
		return true
	}
	return false
}

// Instruction is one machine instruction. Only the operand field matching
// the opcode is meaningful; Text holds labels and string data.
type Instruction struct {
	Op      Opcode
	Int     int64
	Float   float64
	Text    string
	Comment string
}

func (i Instruction) String() string {
	var sb strings.Builder
	if i.Op != Label && i.Op != DLabel {
		sb.WriteString("        ")
	}
	sb.WriteString(i.Op.String())
	switch i.Op.operand() {
	case intOperand:
		fmt.Fprintf(&sb, " %d", i.Int)
	case floatOperand:
		fmt.Fprintf(&sb, " %s", strconv.FormatFloat(i.Float, 'g', -1, 64))
	case labelOperand:
		fmt.Fprintf(&sb, " %s", i.Text)
	case stringOperand:
		fmt.Fprintf(&sb, " %q", i.Text)
	}
	if i.Comment != "" {
		fmt.Fprintf(&sb, "  %% %s", i.Comment)
	}
	return sb.String()
}
