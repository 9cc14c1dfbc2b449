package codegen

import (
	"fmt"

	"github.com/xplshn/tanc/pkg/asm"
	"github.com/xplshn/tanc/pkg/ast"
	"github.com/xplshn/tanc/pkg/runtime"
	"github.com/xplshn/tanc/pkg/signatures"
	"github.com/xplshn/tanc/pkg/token"
	"github.com/xplshn/tanc/pkg/types"
)

// operator emits whatever the signature chosen by the checker asks for.
func (g *Generator) operator(node *ast.Node, d *ast.OperatorNode) *asm.Fragment {
	if node.Sig == nil || node.Sig.IsNull() {
		panic(fmt.Sprintf("codegen: operator %s has no signature", d.Op))
	}
	operands := d.Operands
	if d.Op == token.Cast {
		operands = operands[1:]
	}

	switch v := node.Sig.Variant.(type) {
	case signatures.Opcode:
		frag := asm.NewValue()
		for _, o := range operands {
			frag.Append(g.value(o))
		}
		if v.Op != asm.Nop {
			frag.Add(v.Op)
		}
		return frag
	case signatures.Expansion:
		switch v.Kind {
		case signatures.ShortCircuitAnd:
			return g.shortCircuit(operands, asm.JumpFalse, asm.And)
		case signatures.ShortCircuitOr:
			return g.shortCircuit(operands, asm.JumpTrue, asm.Or)
		case signatures.Compare:
			return g.compare(v.Op, operands)
		}
		frag := asm.NewValue()
		for _, o := range operands {
			frag.Append(g.value(o))
		}
		switch v.Kind {
		case signatures.ArrayLength:
			frag.PushI(runtime.ArrayLengthOffset).Add(asm.Add).Add(asm.LoadI)
		case signatures.IntToBool, signatures.CharToBool:
			frag.Add(asm.BNegate).Add(asm.BNegate)
		case signatures.IntToChar:
			frag.PushI(127).Add(asm.BTAnd)
		case signatures.IntDivide:
			frag.Add(asm.Duplicate).AddLabel(asm.JumpFalse, runtime.IntDivideByZero)
			frag.Add(asm.Divide)
		case signatures.FloatDivide:
			frag.Add(asm.Duplicate).AddLabel(asm.JumpFZero, runtime.FloatDivideByZero)
			frag.Add(asm.FDivide)
		default:
			panic(fmt.Sprintf("codegen: unhandled expansion %s", v.Kind))
		}
		return frag
	}
	panic(fmt.Sprintf("codegen: unknown variant %T", node.Sig.Variant))
}

// compare subtracts the operands and branches on the sign of the
// difference, leaving 1 or 0.
func (g *Generator) compare(op token.Type, operands []*ast.Node) *asm.Fragment {
	labeller := g.labels.NewLabeller("compare")
	trueLabel := labeller.New("true")
	falseLabel := labeller.New("false")
	zeroLabel := labeller.New("zero")
	joinLabel := labeller.New("join")

	isFloat := operands[0].Typ == types.Float
	pos, neg, zero := asm.JumpPos, asm.JumpNeg, asm.JumpFalse
	frag := asm.NewValue()
	frag.Append(g.value(operands[0]))
	frag.Append(g.value(operands[1]))
	if isFloat {
		pos, neg, zero = asm.JumpFPos, asm.JumpFNeg, asm.JumpFZero
		frag.Add(asm.FSubtract)
	} else {
		frag.Add(asm.Subtract)
	}

	withZero := false
	switch op {
	case token.Gt:
		frag.AddLabel(pos, trueLabel).Jump(falseLabel)
	case token.Lt:
		frag.AddLabel(neg, trueLabel).Jump(falseLabel)
	case token.EqEq:
		frag.AddLabel(zero, trueLabel).Jump(falseLabel)
	case token.Neq:
		if isFloat {
			differLabel := labeller.New("differ")
			frag.Add(asm.Duplicate)
			frag.AddLabel(pos, differLabel)
			frag.AddLabel(neg, trueLabel)
			frag.Jump(falseLabel)
			frag.Label(differLabel).Add(asm.Pop).Jump(trueLabel)
		} else {
			frag.AddLabel(asm.JumpTrue, trueLabel).Jump(falseLabel)
		}
	case token.Gte, token.Lte:
		branch := pos
		if op == token.Lte {
			branch = neg
		}
		frag.Add(asm.Duplicate)
		frag.AddLabel(branch, trueLabel)
		frag.AddLabel(zero, zeroLabel)
		frag.Jump(falseLabel)
		withZero = true
	default:
		panic(fmt.Sprintf("codegen: %s is not a comparison", op))
	}

	if withZero {
		frag.Label(trueLabel).Add(asm.Pop)
		frag.Label(zeroLabel)
		frag.PushI(1).Jump(joinLabel)
	} else {
		frag.Label(trueLabel)
		frag.PushI(1).Jump(joinLabel)
	}
	frag.Label(falseLabel)
	frag.PushI(0)
	frag.Label(joinLabel)
	return frag
}

// shortCircuit evaluates the right operand only when the left one does not
// already decide the result. test is the jump that fires on the deciding
// value of the left operand.
func (g *Generator) shortCircuit(operands []*ast.Node, test, combine asm.Opcode) *asm.Fragment {
	labeller := g.labels.NewLabeller("short-circuit")
	shortLabel := labeller.New("short")
	trueLabel := labeller.New("true")
	falseLabel := labeller.New("false")
	joinLabel := labeller.New("join")

	decided := falseLabel
	if test == asm.JumpTrue {
		decided = trueLabel
	}

	frag := asm.NewValue()
	frag.Append(g.value(operands[0]))
	frag.Add(asm.Duplicate).AddLabel(test, shortLabel)
	frag.Append(g.value(operands[1]))
	frag.Add(combine)
	frag.AddLabel(asm.JumpFalse, falseLabel).Jump(trueLabel)
	frag.Label(shortLabel).Add(asm.Pop).Jump(decided)
	frag.Label(trueLabel).PushI(1).Jump(joinLabel)
	frag.Label(falseLabel).PushI(0)
	frag.Label(joinLabel)
	return frag
}
