package codegen

import (
	"fmt"

	"github.com/xplshn/tanc/pkg/asm"
	"github.com/xplshn/tanc/pkg/ast"
	"github.com/xplshn/tanc/pkg/runtime"
	"github.com/xplshn/tanc/pkg/token"
	"github.com/xplshn/tanc/pkg/types"
)

var separatorFormats = map[token.Type]string{
	token.PrintSpace:   runtime.SpacePrintFormat,
	token.PrintNewline: runtime.NewlinePrintFormat,
	token.PrintTab:     runtime.TabPrintFormat,
}

func (g *Generator) print(d *ast.PrintNode) *asm.Fragment {
	frag := asm.NewVoid()
	for _, item := range d.Items {
		if sep, ok := item.Data.(*ast.PrintSeparatorNode); ok {
			frag.PushD(separatorFormats[sep.Kind]).Add(asm.Printf)
			continue
		}
		frag.Append(g.value(item))
		g.printValue(frag, item.Typ)
	}
	return frag
}

// printValue prints the value of type t sitting on top of the stack.
func (g *Generator) printValue(frag *asm.Fragment, t types.Type) {
	switch t := t.(type) {
	case types.Primitive:
		switch t {
		case types.Integer:
			frag.PushD(runtime.IntegerPrintFormat)
		case types.Float:
			frag.PushD(runtime.FloatPrintFormat)
		case types.Character:
			frag.PushD(runtime.CharacterPrintFormat)
		case types.String:
			frag.PushI(runtime.StringHeaderSize).Add(asm.Add)
			frag.PushD(runtime.StringPrintFormat)
		case types.Boolean:
			labeller := g.labels.NewLabeller("print-boolean")
			trueLabel, joinLabel := labeller.New("true"), labeller.New("join")
			frag.AddLabel(asm.JumpTrue, trueLabel)
			frag.PushD(runtime.BooleanFalseString).Jump(joinLabel)
			frag.Label(trueLabel).PushD(runtime.BooleanTrueString)
			frag.Label(joinLabel).PushD(runtime.BooleanPrintFormat)
		default:
			panic(fmt.Sprintf("codegen: cannot print %s", t))
		}
		frag.Add(asm.Printf)
	case *types.Function:
		frag.Add(asm.Pop)
		frag.PushD(runtime.FunctionPrintFormat).Add(asm.Printf)
	case *types.Array:
		g.printArray(frag, t.Subtype)
	default:
		panic(fmt.Sprintf("codegen: cannot print %s", t))
	}
}

// printArray prints "[e0, e1, ...]". The cursor cells are saved on the
// operand stack first so nested arrays can reuse them.
func (g *Generator) printArray(frag *asm.Fragment, subtype types.Type) {
	labeller := g.labels.NewLabeller("print-array")
	loopLabel := labeller.New("loop")
	firstLabel := labeller.New("first")
	endLabel := labeller.New("end")

	// [... array] -> [... old1 old2 array]
	loadTemp(frag, runtime.PrintTemp1)
	frag.Add(asm.Exchange)
	loadTemp(frag, runtime.PrintTemp2)
	frag.Add(asm.Exchange)

	storeTemp(frag, runtime.PrintTemp1)
	frag.PushD(runtime.PrintTemp2).PushI(0).Add(asm.StoreI)
	frag.PushD(runtime.OpenPrintFormat).Add(asm.Printf)

	frag.Label(loopLabel)
	loadTemp(frag, runtime.PrintTemp2)
	loadTemp(frag, runtime.PrintTemp1)
	frag.PushI(runtime.ArrayLengthOffset).Add(asm.Add).Add(asm.LoadI)
	frag.Add(asm.Subtract)
	frag.AddLabel(asm.JumpFalse, endLabel)

	loadTemp(frag, runtime.PrintTemp2)
	frag.AddLabel(asm.JumpFalse, firstLabel)
	frag.PushD(runtime.SeparatorPrintFormat).Add(asm.Printf)
	frag.Label(firstLabel)

	loadTemp(frag, runtime.PrintTemp1)
	frag.PushI(runtime.ArrayHeaderSize).Add(asm.Add)
	loadTemp(frag, runtime.PrintTemp2)
	frag.PushI(int64(subtype.Size())).Add(asm.Multiply)
	frag.Add(asm.Add)
	frag.Add(loadOp(subtype))
	g.printValue(frag, subtype)

	frag.PushD(runtime.PrintTemp2)
	loadTemp(frag, runtime.PrintTemp2)
	frag.PushI(1).Add(asm.Add)
	frag.Add(asm.StoreI)
	frag.Jump(loopLabel)

	frag.Label(endLabel)
	frag.PushD(runtime.ClosePrintFormat).Add(asm.Printf)
	storeTemp(frag, runtime.PrintTemp2)
	storeTemp(frag, runtime.PrintTemp1)
}
