// Package ast defines the types used to represent the Abstract Syntax Tree (AST)
package ast

import (
	"github.com/xplshn/tanc/pkg/signatures"
	"github.com/xplshn/tanc/pkg/symtab"
	"github.com/xplshn/tanc/pkg/token"
	"github.com/xplshn/tanc/pkg/types"
)

// NodeType defines the kind of a node in the AST
type NodeType int

const (
	// Expressions
	Number NodeType = iota
	FloatNumber
	Char
	String
	Bool
	Ident
	Operator
	TypeLiteral
	ArrayLiteral
	ArrayAlloc
	Index
	FuncCall
	Lambda

	// Statements
	Program
	FuncDecl
	Param
	VarDecl
	Assign
	Print
	PrintSeparator
	CallStmt
	Return
	If
	While
	Block
)

var nodeNames = [...]string{
	Number: "Number", FloatNumber: "FloatNumber", Char: "Char", String: "String", Bool: "Bool",
	Ident: "Ident", Operator: "Operator", TypeLiteral: "TypeLiteral", ArrayLiteral: "ArrayLiteral",
	ArrayAlloc: "ArrayAlloc", Index: "Index", FuncCall: "FuncCall", Lambda: "Lambda",
	Program: "Program", FuncDecl: "FuncDecl", Param: "Param", VarDecl: "VarDecl", Assign: "Assign",
	Print: "Print", PrintSeparator: "PrintSeparator", CallStmt: "CallStmt", Return: "Return",
	If: "If", While: "While", Block: "Block",
}

func (t NodeType) String() string { return nodeNames[t] }

// Node represents a node in the Abstract Syntax Tree
type Node struct {
	Type   NodeType
	Tok    token.Token
	Parent *Node
	Data   interface{}
	Typ    types.Type            // Set by the type checker
	Sig    *signatures.Signature // Set on Operator nodes by the type checker
}

// --- Node Data Structs ---
// Data is always held by pointer so rewrites can replace child slots.
type NumberNode struct{ Value int32 }
type FloatNumberNode struct{ Value float64 }
type CharNode struct{ Value byte }
type StringNode struct{ Value string }
type BoolNode struct{ Value bool }
type IdentNode struct {
	Name    string
	Binding *symtab.Binding
}

// OperatorNode covers unary and binary operators, 'length' and casts. A cast
// has Op token.Cast and Operands [TypeLiteral, expr].
type OperatorNode struct {
	Op       token.Type
	Operands []*Node
}
type TypeLiteralNode struct{ Type types.Type }
type ArrayLiteralNode struct{ Elems []*Node }
type ArrayAllocNode struct {
	ElemType types.Type
	Length   *Node
}
type IndexNode struct{ Array, Index *Node }
type FuncCallNode struct {
	Func *Node
	Args []*Node
}

// FuncDeclNode backs both named subroutines and lambdas. The checker fills
// in the frame and argument sizes.
type FuncDeclNode struct {
	Name       string
	Params     []*Node
	ReturnType types.Type
	Body       *Node
	Binding    *symtab.Binding
	FrameSize  int
	ArgSize    int
}
type ParamNode struct {
	Name    string
	Type    types.Type
	Binding *symtab.Binding
}
type ProgramNode struct {
	Funcs      []*Node
	Main       *Node
	GlobalSize int
}
type VarDeclNode struct {
	Name    string
	IsConst bool
	Init    *Node
	Binding *symtab.Binding
}
type AssignNode struct{ Target, Value *Node }
type PrintNode struct{ Items []*Node }
type PrintSeparatorNode struct{ Kind token.Type }
type CallStmtNode struct{ Call *Node }
type ReturnNode struct {
	Expr *Node
	Func *Node // enclosing FuncDecl or Lambda, set by the type checker
}
type IfNode struct{ Cond, ThenBody, ElseBody *Node }
type WhileNode struct{ Cond, Body *Node }
type BlockNode struct{ Stmts []*Node }

// --- Node Constructors ---

func newNode(tok token.Token, nodeType NodeType, data interface{}, children ...*Node) *Node {
	node := &Node{Type: nodeType, Tok: tok, Data: data}
	for _, child := range children {
		if child != nil {
			child.Parent = node
		}
	}
	return node
}

func NewNumber(tok token.Token, value int32) *Node {
	return newNode(tok, Number, &NumberNode{Value: value})
}
func NewFloatNumber(tok token.Token, value float64) *Node {
	return newNode(tok, FloatNumber, &FloatNumberNode{Value: value})
}
func NewChar(tok token.Token, value byte) *Node {
	return newNode(tok, Char, &CharNode{Value: value})
}
func NewString(tok token.Token, value string) *Node {
	return newNode(tok, String, &StringNode{Value: value})
}
func NewBool(tok token.Token, value bool) *Node {
	return newNode(tok, Bool, &BoolNode{Value: value})
}
func NewIdent(tok token.Token, name string) *Node {
	return newNode(tok, Ident, &IdentNode{Name: name})
}
func NewOperator(tok token.Token, op token.Type, operands ...*Node) *Node {
	return newNode(tok, Operator, &OperatorNode{Op: op, Operands: operands}, operands...)
}
func NewTypeLiteral(tok token.Token, typ types.Type) *Node {
	node := newNode(tok, TypeLiteral, &TypeLiteralNode{Type: typ})
	node.Typ = types.NewLiteral(typ)
	return node
}

// NewCast wraps expr in a conversion to target.
func NewCast(tok token.Token, target types.Type, expr *Node) *Node {
	return NewOperator(tok, token.Cast, NewTypeLiteral(tok, target), expr)
}
func NewArrayLiteral(tok token.Token, elems []*Node) *Node {
	return newNode(tok, ArrayLiteral, &ArrayLiteralNode{Elems: elems}, elems...)
}
func NewArrayAlloc(tok token.Token, elemType types.Type, length *Node) *Node {
	return newNode(tok, ArrayAlloc, &ArrayAllocNode{ElemType: elemType, Length: length}, length)
}
func NewIndex(tok token.Token, array, index *Node) *Node {
	return newNode(tok, Index, &IndexNode{Array: array, Index: index}, array, index)
}
func NewFuncCall(tok token.Token, fn *Node, args []*Node) *Node {
	node := newNode(tok, FuncCall, &FuncCallNode{Func: fn, Args: args}, fn)
	for _, arg := range args {
		arg.Parent = node
	}
	return node
}
func NewFuncDecl(tok token.Token, name string, params []*Node, returnType types.Type, body *Node) *Node {
	return newFunc(tok, FuncDecl, name, params, returnType, body)
}
func NewLambda(tok token.Token, params []*Node, returnType types.Type, body *Node) *Node {
	return newFunc(tok, Lambda, "", params, returnType, body)
}
func newFunc(tok token.Token, nodeType NodeType, name string, params []*Node, returnType types.Type, body *Node) *Node {
	node := newNode(tok, nodeType, &FuncDeclNode{
		Name: name, Params: params, ReturnType: returnType, Body: body,
	}, body)
	for _, p := range params {
		p.Parent = node
	}
	return node
}
func NewParam(tok token.Token, name string, typ types.Type) *Node {
	return newNode(tok, Param, &ParamNode{Name: name, Type: typ})
}
func NewProgram(tok token.Token, funcs []*Node, main *Node) *Node {
	node := newNode(tok, Program, &ProgramNode{Funcs: funcs, Main: main}, main)
	for _, f := range funcs {
		f.Parent = node
	}
	return node
}
func NewVarDecl(tok token.Token, name string, isConst bool, init *Node) *Node {
	return newNode(tok, VarDecl, &VarDeclNode{Name: name, IsConst: isConst, Init: init}, init)
}
func NewAssign(tok token.Token, target, value *Node) *Node {
	return newNode(tok, Assign, &AssignNode{Target: target, Value: value}, target, value)
}
func NewPrint(tok token.Token, items []*Node) *Node {
	return newNode(tok, Print, &PrintNode{Items: items}, items...)
}
func NewPrintSeparator(tok token.Token, kind token.Type) *Node {
	return newNode(tok, PrintSeparator, &PrintSeparatorNode{Kind: kind})
}
func NewCallStmt(tok token.Token, call *Node) *Node {
	return newNode(tok, CallStmt, &CallStmtNode{Call: call}, call)
}
func NewReturn(tok token.Token, expr *Node) *Node {
	return newNode(tok, Return, &ReturnNode{Expr: expr}, expr)
}
func NewIf(tok token.Token, cond, thenBody, elseBody *Node) *Node {
	return newNode(tok, If, &IfNode{Cond: cond, ThenBody: thenBody, ElseBody: elseBody}, cond, thenBody, elseBody)
}
func NewWhile(tok token.Token, cond, body *Node) *Node {
	return newNode(tok, While, &WhileNode{Cond: cond, Body: body}, cond, body)
}
func NewBlock(tok token.Token, stmts []*Node) *Node {
	return newNode(tok, Block, &BlockNode{Stmts: stmts}, stmts...)
}

// Children lists n's direct children in evaluation order.
func (n *Node) Children() []*Node {
	var out []*Node
	add := func(nodes ...*Node) {
		for _, c := range nodes {
			if c != nil {
				out = append(out, c)
			}
		}
	}
	switch d := n.Data.(type) {
	case *OperatorNode:
		add(d.Operands...)
	case *ArrayLiteralNode:
		add(d.Elems...)
	case *ArrayAllocNode:
		add(d.Length)
	case *IndexNode:
		add(d.Array, d.Index)
	case *FuncCallNode:
		add(d.Func)
		add(d.Args...)
	case *FuncDeclNode:
		add(d.Params...)
		add(d.Body)
	case *ProgramNode:
		add(d.Funcs...)
		add(d.Main)
	case *VarDeclNode:
		add(d.Init)
	case *AssignNode:
		add(d.Target, d.Value)
	case *PrintNode:
		add(d.Items...)
	case *CallStmtNode:
		add(d.Call)
	case *ReturnNode:
		add(d.Expr)
	case *IfNode:
		add(d.Cond, d.ThenBody, d.ElseBody)
	case *WhileNode:
		add(d.Cond, d.Body)
	case *BlockNode:
		add(d.Stmts...)
	}
	return out
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the children of that node.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children() {
		Walk(c, fn)
	}
}
