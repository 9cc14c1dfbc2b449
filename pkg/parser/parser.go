package parser

import (
	"strconv"

	"github.com/xplshn/tanc/pkg/ast"
	"github.com/xplshn/tanc/pkg/config"
	"github.com/xplshn/tanc/pkg/token"
	"github.com/xplshn/tanc/pkg/types"
	"github.com/xplshn/tanc/pkg/util"
)

// Parser holds the state for the parsing process
type Parser struct {
	tokens   []token.Token
	pos      int
	current  token.Token
	previous token.Token
	rep      *util.Reporter
	cfg      *config.Config
}

// syntaxError unwinds to the nearest statement boundary after a report.
type syntaxError struct{}

// NewParser creates and initializes a new Parser from a token stream
func NewParser(tokens []token.Token, rep *util.Reporter, cfg *config.Config) *Parser {
	p := &Parser{tokens: tokens, rep: rep, cfg: cfg}
	if len(tokens) > 0 {
		p.current = p.tokens[0]
	}
	return p
}

// Parser helpers
func (p *Parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.previous = p.current
		p.pos++
		p.current = p.tokens[p.pos]
	} else {
		p.previous = p.current
	}
}

func (p *Parser) check(tokType token.Type) bool {
	return p.current.Type == tokType
}

func (p *Parser) match(tokType token.Type) bool {
	if !p.check(tokType) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expect(tokType token.Type, message string) token.Token {
	if p.check(tokType) {
		p.advance()
		return p.previous
	}
	p.fail(p.current, "%s", message)
	return token.Token{}
}

func (p *Parser) fail(tok token.Token, format string, args ...interface{}) {
	p.rep.Error(tok, format, args...)
	panic(syntaxError{})
}

// synchronize skips to just past the next ';' or to a '}' so parsing can
// resume with the following statement.
func (p *Parser) synchronize() {
	for !p.check(token.EOF) {
		if p.match(token.Semi) {
			return
		}
		if p.check(token.RBrace) || p.check(token.LBrace) {
			return
		}
		p.advance()
	}
}

// Parse parses a whole program. On syntax errors it still returns a tree;
// callers must check the reporter before using it.
func (p *Parser) Parse() (root *ast.Node) {
	tok := p.current
	var funcs []*ast.Node
	for p.check(token.Subr) {
		if fn := p.guardedFunc(); fn != nil {
			funcs = append(funcs, fn)
		}
	}
	var main *ast.Node
	if p.match(token.Main) {
		main = p.guarded(p.parseBlockStmt)
	} else {
		p.rep.Error(p.current, "expected 'main' block, found %s", describe(p.current))
	}
	if main == nil {
		main = ast.NewBlock(tok, nil)
	}
	if !p.check(token.EOF) {
		p.rep.Error(p.current, "unexpected %s after main block", describe(p.current))
	}
	return ast.NewProgram(tok, funcs, main)
}

// guarded runs parse and, on a syntax error, resynchronizes and returns nil.
func (p *Parser) guarded(parse func() *ast.Node) (node *ast.Node) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(syntaxError); !ok {
				panic(r)
			}
			p.synchronize()
			node = nil
		}
	}()
	return parse()
}

// guardedFunc is guarded for whole subroutine definitions: a broken header
// discards the body that follows it.
func (p *Parser) guardedFunc() *ast.Node {
	fn := p.guarded(p.parseFuncDecl)
	if fn == nil && p.check(token.LBrace) {
		p.skipBalanced()
	}
	return fn
}

func (p *Parser) skipBalanced() {
	depth := 0
	for !p.check(token.EOF) {
		switch {
		case p.match(token.LBrace):
			depth++
		case p.match(token.RBrace):
			if depth--; depth <= 0 {
				return
			}
		default:
			p.advance()
		}
	}
}

func describe(tok token.Token) string {
	switch tok.Type {
	case token.Ident:
		return "identifier '" + tok.Value + "'"
	case token.EOF:
		return "end of input"
	case token.Number, token.FloatNumber, token.String, token.Char:
		return tok.Type.String()
	}
	return "'" + tok.Type.String() + "'"
}

// Type Parsing
func (p *Parser) startsType() bool {
	switch p.current.Type {
	case token.Bool, token.CharKeyword, token.Int, token.Float, token.StringKeyword, token.LBracket, token.Lt:
		return true
	}
	return false
}

func (p *Parser) parseReturnType() types.Type {
	if p.match(token.Void) {
		return types.Void
	}
	return p.parseType()
}

func (p *Parser) parseType() types.Type {
	tok := p.current
	switch {
	case p.match(token.Bool):
		return types.Boolean
	case p.match(token.CharKeyword):
		return types.Character
	case p.match(token.Int):
		return types.Integer
	case p.match(token.Float):
		return types.Float
	case p.match(token.StringKeyword):
		return types.String
	case p.match(token.LBracket):
		sub := p.parseType()
		p.expect(token.RBracket, "expected ']' after array element type")
		return types.NewArray(sub)
	case p.match(token.Lt):
		var params []types.Type
		if !p.check(token.Arrow) {
			for {
				params = append(params, p.parseType())
				if !p.match(token.Comma) {
					break
				}
			}
		}
		p.expect(token.Arrow, "expected '->' in function type")
		ret := p.parseReturnType()
		p.expect(token.Gt, "expected '>' to close function type")
		return types.NewFunction(ret, params...)
	}
	p.fail(tok, "expected a type, found %s", describe(tok))
	return types.Error
}

// Expression Parsing
func getBinaryOpPrecedence(op token.Type) int {
	switch op {
	case token.Star, token.Slash:
		return 5
	case token.Plus, token.Minus:
		return 4
	case token.Lt, token.Gt, token.Lte, token.Gte, token.EqEq, token.Neq:
		return 3
	case token.AndAnd:
		return 2
	case token.OrOr:
		return 1
	default:
		return -1
	}
}

func (p *Parser) parseExpr() *ast.Node {
	return p.parseBinaryExpr(1)
}

func (p *Parser) parseBinaryExpr(minPrec int) *ast.Node {
	left := p.parseUnaryExpr()
	for {
		op := p.current.Type
		prec := getBinaryOpPrecedence(op)
		if prec < minPrec {
			break
		}
		opTok := p.current
		p.advance()
		right := p.parseBinaryExpr(prec + 1)
		left = ast.NewOperator(opTok, op, left, right)
		if prec == 3 && getBinaryOpPrecedence(p.current.Type) == 3 {
			p.fail(p.current, "comparison operators do not chain")
		}
	}
	return left
}

func (p *Parser) parseUnaryExpr() *ast.Node {
	tok := p.current
	if p.match(token.Not) || p.match(token.Minus) || p.match(token.Plus) || p.match(token.Length) {
		operand := p.parseUnaryExpr()
		return ast.NewOperator(tok, tok.Type, operand)
	}
	return p.parsePostfixExpr()
}

func (p *Parser) parsePostfixExpr() *ast.Node {
	expr := p.parsePrimaryExpr()
	for {
		tok := p.current
		switch {
		case p.match(token.LParen):
			expr = ast.NewFuncCall(tok, expr, p.parseArgs())
		case p.match(token.LBracket):
			index := p.parseExpr()
			p.expect(token.RBracket, "expected ']' after array index")
			expr = ast.NewIndex(tok, expr, index)
		default:
			return expr
		}
	}
}

func (p *Parser) parseArgs() []*ast.Node {
	var args []*ast.Node
	if !p.check(token.RParen) {
		for {
			args = append(args, p.parseExpr())
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.expect(token.RParen, "expected ')' after function arguments")
	return args
}

func (p *Parser) parsePrimaryExpr() *ast.Node {
	tok := p.current
	switch {
	case p.match(token.Number):
		val, _ := strconv.ParseInt(tok.Value, 10, 32)
		return ast.NewNumber(tok, int32(val))
	case p.match(token.FloatNumber):
		val, _ := strconv.ParseFloat(tok.Value, 64)
		return ast.NewFloatNumber(tok, val)
	case p.match(token.Char):
		var c byte
		if len(tok.Value) > 0 {
			c = tok.Value[0]
		}
		return ast.NewChar(tok, c)
	case p.match(token.String):
		return ast.NewString(tok, tok.Value)
	case p.match(token.True):
		return ast.NewBool(tok, true)
	case p.match(token.False):
		return ast.NewBool(tok, false)
	case p.match(token.Ident):
		return ast.NewIdent(tok, tok.Value)
	case p.match(token.LParen):
		expr := p.parseExpr()
		p.expect(token.RParen, "expected ')' after expression")
		return expr
	case p.check(token.Lt):
		return p.parseCast()
	case p.match(token.LBracket):
		var elems []*ast.Node
		for {
			elems = append(elems, p.parseExpr())
			if !p.match(token.Comma) {
				break
			}
		}
		p.expect(token.RBracket, "expected ']' after array elements")
		return ast.NewArrayLiteral(tok, elems)
	case p.match(token.New):
		p.expect(token.LBracket, "expected '[' after 'new'")
		elem := p.parseType()
		p.expect(token.RBracket, "expected ']' after array element type")
		p.expect(token.LParen, "expected '(' before array length")
		length := p.parseExpr()
		p.expect(token.RParen, "expected ')' after array length")
		return ast.NewArrayAlloc(tok, elem, length)
	case p.match(token.Subr):
		if !p.cfg.IsFeatureEnabled(config.FeatLambdas) {
			p.rep.Error(tok, "anonymous subroutines are disabled (-Fno-lambdas)")
		}
		ret := p.parseReturnType()
		params := p.parseParams()
		body := p.parseBlockStmt()
		return ast.NewLambda(tok, params, ret, body)
	}
	p.fail(tok, "expected an expression, found %s", describe(tok))
	return nil
}

// parseCast parses '<' type '>' '(' expr ')'.
func (p *Parser) parseCast() *ast.Node {
	tok := p.expect(token.Lt, "expected '<'")
	target := p.parseType()
	p.expect(token.Gt, "expected '>' after cast type")
	p.expect(token.LParen, "expected '(' after cast type")
	expr := p.parseExpr()
	p.expect(token.RParen, "expected ')' after cast operand")
	return ast.NewCast(tok, target, expr)
}

// Statement and Declaration Parsing
func (p *Parser) parseFuncDecl() *ast.Node {
	tok := p.expect(token.Subr, "expected 'subr'")
	ret := p.parseReturnType()
	name := p.expect(token.Ident, "expected subroutine name")
	params := p.parseParams()
	body := p.parseBlockStmt()
	return ast.NewFuncDecl(tok, name.Value, params, ret, body)
}

func (p *Parser) parseParams() []*ast.Node {
	p.expect(token.LParen, "expected '(' before parameter list")
	var params []*ast.Node
	if !p.check(token.RParen) {
		for {
			typeTok := p.current
			var typ types.Type
			if p.match(token.Void) {
				typ = types.Void
			} else {
				typ = p.parseType()
			}
			name := p.expect(token.Ident, "expected parameter name")
			params = append(params, ast.NewParam(typeTok, name.Value, typ))
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.expect(token.RParen, "expected ')' after parameter list")
	return params
}

func (p *Parser) parseBlockStmt() *ast.Node {
	tok := p.expect(token.LBrace, "expected '{' to start a block")
	var stmts []*ast.Node
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		if stmt := p.guarded(p.parseStmt); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	p.expect(token.RBrace, "expected '}' after block")
	return ast.NewBlock(tok, stmts)
}

func (p *Parser) parseStmt() *ast.Node {
	tok := p.current
	switch {
	case p.match(token.Const), p.match(token.Var):
		name := p.expect(token.Ident, "expected identifier in declaration")
		p.expect(token.Define, "expected ':=' in declaration")
		init := p.parseExpr()
		p.expect(token.Semi, "expected ';' after declaration")
		return ast.NewVarDecl(name, name.Value, tok.Type == token.Const, init)
	case p.match(token.Print):
		return p.parsePrint(tok)
	case p.match(token.Call):
		call := p.parseExpr()
		if call.Type != ast.FuncCall {
			p.fail(call.Tok, "'call' must be followed by a subroutine invocation")
		}
		p.expect(token.Semi, "expected ';' after call statement")
		return ast.NewCallStmt(tok, call)
	case p.match(token.Return):
		var expr *ast.Node
		if !p.check(token.Semi) {
			expr = p.parseExpr()
		}
		p.expect(token.Semi, "expected ';' after return")
		return ast.NewReturn(tok, expr)
	case p.check(token.If):
		return p.parseIf()
	case p.match(token.While):
		cond := p.parseExpr()
		body := p.parseBlockStmt()
		return ast.NewWhile(tok, cond, body)
	case p.check(token.LBrace):
		return p.parseBlockStmt()
	}

	target := p.parseExpr()
	if target.Type != ast.Ident && target.Type != ast.Index {
		p.fail(target.Tok, "invalid target for assignment")
	}
	defTok := p.expect(token.Define, "expected ':=' in assignment")
	value := p.parseExpr()
	p.expect(token.Semi, "expected ';' after assignment")
	return ast.NewAssign(defTok, target, value)
}

func (p *Parser) parseIf() *ast.Node {
	tok := p.expect(token.If, "expected 'if'")
	cond := p.parseExpr()
	thenBody := p.parseBlockStmt()
	var elseBody *ast.Node
	if p.match(token.Else) {
		if p.check(token.If) {
			elseBody = p.parseIf()
		} else {
			elseBody = p.parseBlockStmt()
		}
	}
	return ast.NewIf(tok, cond, thenBody, elseBody)
}

// parsePrint reads items up to ';'. An expression must be followed by a
// separator unless it is the last item.
func (p *Parser) parsePrint(tok token.Token) *ast.Node {
	var items []*ast.Node
	expectSeparator := false
	for !p.check(token.Semi) {
		switch p.current.Type {
		case token.PrintSep:
			p.advance()
		case token.PrintSpace, token.PrintNewline, token.PrintTab:
			items = append(items, ast.NewPrintSeparator(p.current, p.current.Type))
			p.advance()
		default:
			if expectSeparator {
				p.fail(p.current, "expected a print separator or ';', found %s", describe(p.current))
			}
			items = append(items, p.parseExpr())
			expectSeparator = true
			continue
		}
		expectSeparator = false
	}
	p.advance()
	return ast.NewPrint(tok, items)
}
