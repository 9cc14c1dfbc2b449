package codegen

import (
	"fmt"

	"github.com/xplshn/tanc/pkg/asm"
	"github.com/xplshn/tanc/pkg/ast"
	"github.com/xplshn/tanc/pkg/config"
	"github.com/xplshn/tanc/pkg/runtime"
	"github.com/xplshn/tanc/pkg/types"
)

// funcInfo is a function body waiting to be emitted, with the labels its
// address and its return statements refer to.
type funcInfo struct {
	node  *ast.Node
	decl  *ast.FuncDeclNode
	start string
	exit  string
}

// Generator turns a checked, promoted tree into one program fragment. All
// generation state lives here, so independent generators never interfere.
type Generator struct {
	labels    *asm.LabelContext
	cfg       *config.Config
	pending   []*funcInfo
	funcStack []*funcInfo
	strings   *stringTable
}

func NewGenerator(cfg *config.Config) *Generator {
	return &Generator{
		labels:  asm.NewLabelContext(),
		cfg:     cfg,
		strings: newStringTable(cfg.IsFeatureEnabled(config.FeatStringDedup)),
	}
}

// Generate emits the whole program image: initialization, the runtime
// environment, global storage, $$main, every function body reachable from
// the program, string constants and finally the memory manager.
func (g *Generator) Generate(root *ast.Node) *asm.Fragment {
	prog := root.Data.(*ast.ProgramNode)

	code := asm.NewVoid()
	code.Append(runtime.MemoryManagerInit())
	code.Append(runtime.CallStackInit())
	code.Append(runtime.Environment())
	code.AddLabel(asm.DLabel, runtime.GlobalMemoryBlock).AddInt(asm.DataZ, int64(prog.GlobalSize))

	code.Label(runtime.MainLabel)
	for _, fn := range prog.Funcs {
		d := fn.Data.(*ast.FuncDeclNode)
		info := g.enqueue(fn)
		code.Append(d.Binding.GenerateAddress())
		code.PushD(info.start).Comment(d.Name)
		code.Add(asm.StoreI)
	}
	code.Append(g.statement(prog.Main))
	code.Add(asm.Halt)

	for len(g.pending) > 0 {
		info := g.pending[0]
		g.pending = g.pending[1:]
		code.Append(g.function(info))
	}

	code.Append(g.strings.data)
	code.Append(runtime.MemoryManager())
	return code
}

// enqueue assigns labels to a function and schedules its body.
func (g *Generator) enqueue(fn *ast.Node) *funcInfo {
	labeller := g.labels.NewLabeller("function")
	info := &funcInfo{
		node:  fn,
		decl:  fn.Data.(*ast.FuncDeclNode),
		start: labeller.New("start"),
		exit:  labeller.New("exit"),
	}
	g.pending = append(g.pending, info)
	return info
}

func (g *Generator) statement(node *ast.Node) *asm.Fragment {
	switch d := node.Data.(type) {
	case *ast.BlockNode:
		frag := asm.NewVoid()
		for _, stmt := range d.Stmts {
			frag.Append(g.statement(stmt))
		}
		return frag
	case *ast.VarDeclNode:
		frag := asm.NewVoid()
		frag.Append(d.Binding.GenerateAddress())
		frag.Append(g.value(d.Init))
		frag.Add(storeOp(d.Binding.Type))
		return frag
	case *ast.AssignNode:
		frag := asm.NewVoid()
		frag.Append(g.address(d.Target))
		frag.Append(g.value(d.Value))
		frag.Add(storeOp(d.Target.Typ))
		return frag
	case *ast.PrintNode:
		return g.print(d)
	case *ast.CallStmtNode:
		frag := asm.NewVoid()
		frag.Append(g.expr(d.Call))
		if !types.IsVoid(d.Call.Typ) {
			frag.Add(asm.Pop)
		}
		return frag
	case *ast.ReturnNode:
		return g.returnStmt(d)
	case *ast.IfNode:
		return g.ifStmt(d)
	case *ast.WhileNode:
		return g.whileStmt(d)
	}
	panic(fmt.Sprintf("codegen: unexpected statement %s", node.Type))
}

func (g *Generator) ifStmt(d *ast.IfNode) *asm.Fragment {
	labeller := g.labels.NewLabeller("if")
	elseLabel, joinLabel := labeller.New("else"), labeller.New("join")

	frag := asm.NewVoid()
	frag.Append(g.value(d.Cond))
	frag.AddLabel(asm.JumpFalse, elseLabel)
	frag.Append(g.statement(d.ThenBody))
	frag.Jump(joinLabel)
	frag.Label(elseLabel)
	if d.ElseBody != nil {
		frag.Append(g.statement(d.ElseBody))
	}
	frag.Label(joinLabel)
	return frag
}

func (g *Generator) whileStmt(d *ast.WhileNode) *asm.Fragment {
	labeller := g.labels.NewLabeller("while")
	startLabel, joinLabel := labeller.New("start"), labeller.New("join")

	frag := asm.NewVoid()
	frag.Label(startLabel)
	frag.Append(g.value(d.Cond))
	frag.AddLabel(asm.JumpFalse, joinLabel)
	frag.Append(g.statement(d.Body))
	frag.Jump(startLabel)
	frag.Label(joinLabel)
	return frag
}

// expr generates an expression. Identifiers and index expressions come back
// as address fragments, everything else as values.
func (g *Generator) expr(node *ast.Node) *asm.Fragment {
	switch d := node.Data.(type) {
	case *ast.NumberNode:
		return asm.NewValue().PushI(int64(d.Value))
	case *ast.FloatNumberNode:
		return asm.NewValue().PushF(d.Value)
	case *ast.CharNode:
		return asm.NewValue().PushI(int64(d.Value))
	case *ast.BoolNode:
		if d.Value {
			return asm.NewValue().PushI(1)
		}
		return asm.NewValue().PushI(0)
	case *ast.StringNode:
		return asm.NewValue().PushD(g.strings.label(g.labels, d.Value))
	case *ast.IdentNode:
		return d.Binding.GenerateAddress()
	case *ast.IndexNode:
		return g.index(d)
	case *ast.OperatorNode:
		return g.operator(node, d)
	case *ast.ArrayLiteralNode:
		return g.arrayLiteral(node, d)
	case *ast.ArrayAllocNode:
		return g.arrayAlloc(d)
	case *ast.FuncCallNode:
		return g.call(node, d)
	case *ast.FuncDeclNode:
		info := g.enqueue(node)
		return asm.NewValue().PushD(info.start)
	}
	panic(fmt.Sprintf("codegen: unexpected expression %s", node.Type))
}

// value generates node and loads through the result if it is an address.
func (g *Generator) value(node *ast.Node) *asm.Fragment {
	frag := asm.NewValue()
	frag.AppendValue(g.expr(node), loadOp(node.Typ))
	return frag
}

// address generates an assignment target.
func (g *Generator) address(node *ast.Node) *asm.Fragment {
	frag := g.expr(node)
	if !frag.IsAddress() {
		panic(fmt.Sprintf("codegen: %s is not addressable", node.Type))
	}
	return frag
}
