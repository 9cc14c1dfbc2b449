package typeChecker

import (
	"strings"

	"github.com/xplshn/tanc/pkg/ast"
	"github.com/xplshn/tanc/pkg/config"
	"github.com/xplshn/tanc/pkg/promotion"
	"github.com/xplshn/tanc/pkg/signatures"
	"github.com/xplshn/tanc/pkg/symtab"
	"github.com/xplshn/tanc/pkg/token"
	"github.com/xplshn/tanc/pkg/types"
	"github.com/xplshn/tanc/pkg/util"
)

type TypeChecker struct {
	currentScope *symtab.Scope
	globalScope  *symtab.Scope
	funcStack    []*ast.Node
	reg          *signatures.Registry
	promoter     *promotion.Resolver
	cfg          *config.Config
	rep          *util.Reporter
}

func NewTypeChecker(cfg *config.Config, rep *util.Reporter, reg *signatures.Registry) *TypeChecker {
	globalScope := symtab.NewProgramScope()
	tc := &TypeChecker{
		currentScope: globalScope,
		globalScope:  globalScope,
		reg:          reg,
		promoter:     promotion.NewResolver(reg),
		cfg:          cfg,
		rep:          rep,
	}
	tc.promoter.OnPromote = func(node *ast.Node, chain []types.Type) {
		rep.Warn(config.WarnPromotion, node.Tok, "implicit conversion from %s to %s", node.Typ, chain[len(chain)-1])
	}
	return tc
}

func (tc *TypeChecker) enterScope() { tc.currentScope = tc.currentScope.Enter() }
func (tc *TypeChecker) exitScope()  { tc.currentScope = tc.currentScope.Leave() }

func (tc *TypeChecker) currentFunc() *ast.Node {
	if len(tc.funcStack) == 0 {
		return nil
	}
	return tc.funcStack[len(tc.funcStack)-1]
}

func (tc *TypeChecker) promotionsEnabled() bool {
	return tc.cfg.IsFeatureEnabled(config.FeatPromotion)
}

// fail reports an error at node and marks it ill-typed.
func (tc *TypeChecker) fail(node *ast.Node, format string, args ...interface{}) {
	tc.rep.Error(node.Tok, format, args...)
	node.Typ = types.Error
}

// Check decorates the program tree with types, bindings and signatures and
// returns the promotions to apply before code generation.
func (tc *TypeChecker) Check(root *ast.Node) []promotion.Pending {
	prog := root.Data.(*ast.ProgramNode)
	tc.collectGlobals(prog)
	for _, fn := range prog.Funcs {
		tc.checkFunction(fn, tc.globalScope)
	}
	tc.checkNode(prog.Main)
	prog.GlobalSize = tc.globalScope.AllocatedSize()
	return tc.promoter.Pending()
}

// collectGlobals binds every subroutine name first so calls may precede the
// definition of their callee.
func (tc *TypeChecker) collectGlobals(prog *ast.ProgramNode) {
	for _, fn := range prog.Funcs {
		d := fn.Data.(*ast.FuncDeclNode)
		fn.Typ = functionType(d)
		binding, err := tc.globalScope.Declare(d.Name, fn.Typ, false)
		if err != nil {
			tc.rep.Error(fn.Tok, "%v", err)
			continue
		}
		d.Binding = binding
	}
}

func functionType(d *ast.FuncDeclNode) *types.Function {
	params := make([]types.Type, len(d.Params))
	for i, p := range d.Params {
		params[i] = p.Data.(*ast.ParamNode).Type
	}
	return types.NewFunction(d.ReturnType, params...)
}

// checkFunction checks a subroutine or lambda defined in scope. Parameters
// get their own scope so their offsets can be fixed once the list is known.
func (tc *TypeChecker) checkFunction(node *ast.Node, scope *symtab.Scope) {
	d := node.Data.(*ast.FuncDeclNode)
	if node.Typ == nil {
		node.Typ = functionType(d)
	}

	paramScope := scope.NewParameterScope()
	for _, p := range d.Params {
		pd := p.Data.(*ast.ParamNode)
		p.Typ = pd.Type
		if types.IsVoid(pd.Type) {
			tc.fail(p, "parameter %q cannot be VOID", pd.Name)
			continue
		}
		binding, err := paramScope.Declare(pd.Name, pd.Type, true)
		if err != nil {
			tc.fail(p, "%v", err)
			continue
		}
		pd.Binding = binding
	}
	paramScope.CloseParameters()

	bodyScope := paramScope.NewProcedureScope()
	saved := tc.currentScope
	tc.currentScope = bodyScope
	tc.funcStack = append(tc.funcStack, node)
	tc.checkNode(d.Body)
	tc.funcStack = tc.funcStack[:len(tc.funcStack)-1]
	tc.currentScope = saved

	d.ArgSize = paramScope.AllocatedSize()
	d.FrameSize = bodyScope.AllocatedSize()
}

func (tc *TypeChecker) checkNode(node *ast.Node) {
	if node == nil {
		return
	}
	switch node.Type {
	case ast.Block:
		tc.checkBlock(node)
	case ast.VarDecl:
		tc.checkVarDecl(node)
	case ast.Assign:
		tc.checkAssign(node)
	case ast.Print:
		for _, item := range node.Data.(*ast.PrintNode).Items {
			if item.Type != ast.PrintSeparator {
				tc.checkExpr(item)
			}
		}
	case ast.CallStmt:
		tc.checkExpr(node.Data.(*ast.CallStmtNode).Call)
	case ast.Return:
		tc.checkReturn(node)
	case ast.If:
		d := node.Data.(*ast.IfNode)
		tc.checkExprAsCondition(d.Cond)
		tc.checkNode(d.ThenBody)
		tc.checkNode(d.ElseBody)
	case ast.While:
		d := node.Data.(*ast.WhileNode)
		tc.checkExprAsCondition(d.Cond)
		tc.checkNode(d.Body)
	default:
		tc.checkExpr(node)
	}
}

func (tc *TypeChecker) checkBlock(node *ast.Node) {
	d := node.Data.(*ast.BlockNode)
	tc.enterScope()
	returned := false
	for _, stmt := range d.Stmts {
		if returned {
			tc.rep.Warn(config.WarnUnreachableCode, stmt.Tok, "unreachable code after return")
			returned = false
		}
		tc.checkNode(stmt)
		if stmt.Type == ast.Return {
			returned = true
		}
	}
	tc.exitScope()
}

func (tc *TypeChecker) checkVarDecl(node *ast.Node) {
	d := node.Data.(*ast.VarDeclNode)
	typ := tc.checkExpr(d.Init)
	node.Typ = typ

	if parent := tc.currentScope.Parent; parent != nil && parent.Lookup(d.Name) != nil {
		tc.rep.Warn(config.WarnExtra, node.Tok, "declaration of %q shadows an outer declaration", d.Name)
	}
	binding, err := tc.currentScope.Declare(d.Name, typ, !d.IsConst)
	if err != nil {
		tc.fail(node, "%v", err)
		return
	}
	d.Binding = binding
}

func (tc *TypeChecker) checkAssign(node *ast.Node) {
	d := node.Data.(*ast.AssignNode)
	valueType := tc.checkExpr(d.Value)
	targetType := tc.checkExpr(d.Target)
	if types.IsError(valueType) || types.IsError(targetType) {
		node.Typ = types.Error
		return
	}

	if d.Target.Type == ast.Ident {
		ident := d.Target.Data.(*ast.IdentNode)
		if ident.Binding != nil && !ident.Binding.Mutable {
			tc.fail(node, "reassignment to const identifier %q", ident.Name)
			return
		}
	}
	if !targetType.Equals(valueType) {
		tc.fail(node, "operator := not defined for types %s", typeList(targetType, valueType))
		return
	}
	node.Typ = valueType
}

func (tc *TypeChecker) checkReturn(node *ast.Node) {
	d := node.Data.(*ast.ReturnNode)
	fn := tc.currentFunc()
	if fn == nil {
		tc.checkExpr(d.Expr)
		tc.fail(node, "return outside of a function")
		return
	}
	d.Func = fn
	retType := fn.Data.(*ast.FuncDeclNode).ReturnType

	if d.Expr == nil {
		if !types.IsVoid(retType) {
			tc.fail(node, "return without value in non-void function")
			return
		}
		node.Typ = types.Void
		return
	}

	exprType := tc.checkExpr(d.Expr)
	if types.IsError(exprType) {
		node.Typ = types.Error
		return
	}
	if types.IsVoid(retType) || !retType.Equals(exprType) {
		tc.fail(node, "return type %s does not match function return type %s", exprType, retType)
		return
	}
	node.Typ = exprType
}

func (tc *TypeChecker) checkExprAsCondition(node *ast.Node) {
	typ := tc.checkExpr(node)
	if !types.IsError(typ) && typ != types.Boolean {
		tc.fail(node, "condition must be BOOLEAN, found %s", typ)
	}
}

// checkExpr types an expression tree bottom-up and returns node.Typ.
func (tc *TypeChecker) checkExpr(node *ast.Node) types.Type {
	if node == nil {
		return types.Void
	}
	switch d := node.Data.(type) {
	case *ast.NumberNode:
		node.Typ = types.Integer
	case *ast.FloatNumberNode:
		node.Typ = types.Float
	case *ast.CharNode:
		node.Typ = types.Character
	case *ast.StringNode:
		node.Typ = types.String
	case *ast.BoolNode:
		node.Typ = types.Boolean
	case *ast.TypeLiteralNode:
		node.Typ = types.NewLiteral(d.Type)
	case *ast.IdentNode:
		tc.checkIdent(node, d)
	case *ast.OperatorNode:
		tc.checkOperator(node, d)
	case *ast.ArrayLiteralNode:
		tc.checkArrayLiteral(node, d)
	case *ast.ArrayAllocNode:
		tc.checkArrayAlloc(node, d)
	case *ast.IndexNode:
		tc.checkIndex(node, d)
	case *ast.FuncCallNode:
		tc.checkFuncCall(node, d)
	case *ast.FuncDeclNode:
		tc.checkFunction(node, tc.currentScope)
	default:
		tc.fail(node, "unexpected %s in expression", node.Type)
	}
	return node.Typ
}

func (tc *TypeChecker) checkIdent(node *ast.Node, d *ast.IdentNode) {
	binding := tc.currentScope.Lookup(d.Name)
	if binding == nil {
		tc.fail(node, "identifier %q used before definition", d.Name)
		return
	}
	if tc.currentScope.IsCapture(binding) {
		tc.fail(node, "cannot capture local %q of an enclosing function", d.Name)
		return
	}
	d.Binding = binding
	node.Typ = binding.Type
}

func (tc *TypeChecker) operandTypes(operands []*ast.Node) ([]types.Type, bool) {
	ts := make([]types.Type, len(operands))
	ok := true
	for i, operand := range operands {
		ts[i] = tc.checkExpr(operand)
		if types.IsError(ts[i]) {
			ok = false
		}
	}
	return ts, ok
}

func (tc *TypeChecker) checkOperator(node *ast.Node, d *ast.OperatorNode) {
	actuals, ok := tc.operandTypes(d.Operands)
	if !ok {
		node.Typ = types.Error
		return
	}

	sig := tc.reg.Lookup(d.Op, actuals)
	if sig.IsNull() && tc.promotionsEnabled() {
		sig = tc.promoter.Operator(node)
	}
	if sig.IsNull() {
		tc.fail(node, "operator %s not defined for types %s", operatorName(d.Op), typeList(actuals...))
		return
	}
	node.Sig = sig
	node.Typ = sig.ResultType()
}

func (tc *TypeChecker) checkArrayLiteral(node *ast.Node, d *ast.ArrayLiteralNode) {
	actuals, ok := tc.operandTypes(d.Elems)
	if !ok {
		node.Typ = types.Error
		return
	}
	elemType := actuals[0]
	for _, t := range actuals[1:] {
		if elemType.Equals(t) {
			continue
		}
		if !tc.promotionsEnabled() {
			elemType = types.Error
			break
		}
		elemType, _ = tc.promoter.ArrayLiteral(node)
		break
	}
	if types.IsError(elemType) {
		tc.fail(node, "array literal elements must share one type, found %s", typeList(actuals...))
		return
	}
	if types.IsVoid(elemType) {
		tc.fail(node, "cannot use VOID function as an expression")
		return
	}
	node.Typ = types.NewArray(elemType)
}

func (tc *TypeChecker) checkArrayAlloc(node *ast.Node, d *ast.ArrayAllocNode) {
	lengthType := tc.checkExpr(d.Length)
	if types.IsError(lengthType) {
		node.Typ = types.Error
		return
	}
	if lengthType != types.Integer && !(tc.promotionsEnabled() && tc.promoter.ArrayLength(node)) {
		tc.fail(node, "array length must be INTEGER, found %s", lengthType)
		return
	}
	node.Typ = types.NewArray(d.ElemType)
}

func (tc *TypeChecker) checkIndex(node *ast.Node, d *ast.IndexNode) {
	actuals, ok := tc.operandTypes([]*ast.Node{d.Array, d.Index})
	if !ok {
		node.Typ = types.Error
		return
	}
	arr, isArray := actuals[0].(*types.Array)
	if !isArray || actuals[1] != types.Integer {
		tc.fail(node, "operator [] not defined for types %s", typeList(actuals...))
		return
	}
	node.Typ = arr.Subtype
}

func (tc *TypeChecker) checkFuncCall(node *ast.Node, d *ast.FuncCallNode) {
	calleeType := tc.checkExpr(d.Func)
	argTypes, ok := tc.operandTypes(d.Args)
	if types.IsError(calleeType) || !ok {
		node.Typ = types.Error
		return
	}

	fn, isFunc := calleeType.(*types.Function)
	if !isFunc {
		tc.fail(node, "invoking function on non-function type %s", calleeType)
		return
	}
	if len(d.Args) != len(fn.Params) {
		tc.fail(node, "function expects %d arguments, got %d", len(fn.Params), len(d.Args))
		return
	}
	if !fn.Equals(types.NewFunction(fn.Return, argTypes...)) &&
		!(tc.promotionsEnabled() && tc.promoter.Arguments(node, fn.Params)) {
		tc.fail(node, "cannot call %s with argument types %s", fn, typeList(argTypes...))
		return
	}
	if types.IsVoid(fn.Return) && (node.Parent == nil || node.Parent.Type != ast.CallStmt) {
		tc.fail(node, "cannot use VOID function as an expression")
		return
	}
	node.Typ = fn.Return
}

func operatorName(op token.Type) string {
	if op == token.Cast {
		return "cast"
	}
	return op.String()
}

func typeList(ts ...types.Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
