package codegen

import (
	"github.com/xplshn/tanc/pkg/asm"
	"github.com/xplshn/tanc/pkg/ast"
	"github.com/xplshn/tanc/pkg/config"
	"github.com/xplshn/tanc/pkg/runtime"
	"github.com/xplshn/tanc/pkg/types"
)

// Frame layout, relative to the frame pointer.
const (
	returnAddressOffset = -8
	dynamicLinkOffset   = -4
)

// call pushes the arguments onto the memory stack in order, calls through
// the function value and picks the result up from the top of the stack.
func (g *Generator) call(node *ast.Node, d *ast.FuncCallNode) *asm.Fragment {
	fnType := d.Func.Typ.(*types.Function)

	frag := asm.NewValue()
	for i, arg := range d.Args {
		param := fnType.Params[i]
		adjustStackPointer(frag, -param.Size())
		frag.PushD(runtime.StackPointer).Add(asm.LoadI)
		frag.Append(g.value(arg))
		frag.Add(storeOp(param))
	}
	frag.Append(g.value(d.Func))
	frag.Add(asm.CallV)

	if ret := fnType.Return; !types.IsVoid(ret) {
		frag.PushD(runtime.StackPointer).Add(asm.LoadI).Add(loadOp(ret))
		adjustStackPointer(frag, ret.Size())
	} else {
		frag.Kind = asm.Void
	}
	return frag
}

// function emits a body between its start label and its exit handshake.
func (g *Generator) function(info *funcInfo) *asm.Fragment {
	d := info.decl
	g.funcStack = append(g.funcStack, info)
	defer func() { g.funcStack = g.funcStack[:len(g.funcStack)-1] }()

	frag := asm.NewVoid()
	frag.Label(info.start)
	if d.Name != "" {
		frag.Comment(d.Name)
	}

	// [... ret] return address and dynamic link go just below the arguments
	frag.PushD(runtime.StackPointer).Add(asm.LoadI)
	frag.PushI(-returnAddressOffset).Add(asm.Subtract)
	frag.Add(asm.Exchange).Add(asm.StoreI)

	frag.PushD(runtime.StackPointer).Add(asm.LoadI)
	frag.PushI(-dynamicLinkOffset).Add(asm.Subtract)
	frag.PushD(runtime.FramePointer).Add(asm.LoadI)
	frag.Add(asm.StoreI)

	frag.PushD(runtime.FramePointer)
	frag.PushD(runtime.StackPointer).Add(asm.LoadI)
	frag.Add(asm.StoreI)
	adjustStackPointer(frag, -d.FrameSize)
	checkStackOverflow(frag)

	frag.Append(g.statement(d.Body))
	if !types.IsVoid(d.ReturnType) || !g.cfg.IsFeatureEnabled(config.FeatImplicitVoidReturn) {
		frag.Jump(runtime.FunctionRunoff)
	}

	frag.Append(g.exitHandshake(info))
	return frag
}

// checkStackOverflow traps when the stack pointer has dropped below the
// heap's free pointer, i.e. the new frame overlaps heap records.
func checkStackOverflow(frag *asm.Fragment) {
	frag.PushD(runtime.StackPointer).Add(asm.LoadI)
	frag.PushD(runtime.HeapNextFree).Add(asm.LoadI)
	frag.Add(asm.Subtract)
	frag.AddLabel(asm.JumpNeg, runtime.HeapExhausted)
}

// exitHandshake unwinds the frame. It is entered with the return value, if
// any, on the operand stack and leaves it at the new top of the memory
// stack.
func (g *Generator) exitHandshake(info *funcInfo) *asm.Fragment {
	d := info.decl
	retSize := d.ReturnType.Size()

	frag := asm.NewVoid()
	frag.Label(info.exit)
	frag.PushD(runtime.FramePointer).Add(asm.LoadI)
	frag.PushI(-returnAddressOffset).Add(asm.Subtract)
	frag.Add(asm.LoadI)

	frag.PushD(runtime.FramePointer)
	frag.PushD(runtime.FramePointer).Add(asm.LoadI)
	frag.PushI(-dynamicLinkOffset).Add(asm.Subtract)
	frag.Add(asm.LoadI)
	frag.Add(asm.StoreI)

	adjustStackPointer(frag, d.FrameSize+d.ArgSize-retSize)
	storeTemp(frag, runtime.FuncReturnAddrTemp)
	if !types.IsVoid(d.ReturnType) {
		frag.PushD(runtime.StackPointer).Add(asm.LoadI)
		frag.Add(asm.Exchange)
		frag.Add(storeOp(d.ReturnType))
	}
	loadTemp(frag, runtime.FuncReturnAddrTemp)
	frag.Add(asm.Return)
	return frag
}

func (g *Generator) returnStmt(d *ast.ReturnNode) *asm.Fragment {
	info := g.funcStack[len(g.funcStack)-1]
	frag := asm.NewVoid()
	if d.Expr != nil {
		frag.Append(g.value(d.Expr))
	}
	frag.Jump(info.exit)
	return frag
}
