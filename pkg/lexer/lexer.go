package lexer

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/xplshn/tanc/pkg/token"
	"github.com/xplshn/tanc/pkg/util"
)

type Lexer struct {
	source    []rune
	fileIndex int
	pos       int
	line      int
	column    int
	rep       *util.Reporter
}

func NewLexer(source []rune, fileIndex int, rep *util.Reporter) *Lexer {
	return &Lexer{
		source: source, fileIndex: fileIndex, line: 1, column: 1, rep: rep,
	}
}

// Tokenize scans the whole input, EOF token included.
func (l *Lexer) Tokenize() []token.Token {
	var toks []token.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

func (l *Lexer) Next() token.Token {
	for {
		l.skipWhitespaceAndComments()
		startPos, startCol, startLine := l.pos, l.column, l.line

		if l.isAtEnd() {
			return l.makeToken(token.EOF, "", startPos, startCol, startLine)
		}

		ch := l.peek()
		if unicode.IsLetter(ch) || ch == '_' || ch == '@' {
			return l.identifierOrKeyword(startPos, startCol, startLine)
		}
		if unicode.IsDigit(ch) {
			return l.numberLiteral(startPos, startCol, startLine)
		}

		l.advance()
		switch ch {
		case '(': return l.makeToken(token.LParen, "", startPos, startCol, startLine)
		case ')': return l.makeToken(token.RParen, "", startPos, startCol, startLine)
		case '{': return l.makeToken(token.LBrace, "", startPos, startCol, startLine)
		case '}': return l.makeToken(token.RBrace, "", startPos, startCol, startLine)
		case '[': return l.makeToken(token.LBracket, "", startPos, startCol, startLine)
		case ']': return l.makeToken(token.RBracket, "", startPos, startCol, startLine)
		case ';': return l.makeToken(token.Semi, "", startPos, startCol, startLine)
		case ',': return l.makeToken(token.Comma, "", startPos, startCol, startLine)
		case '+': return l.makeToken(token.Plus, "", startPos, startCol, startLine)
		case '*': return l.makeToken(token.Star, "", startPos, startCol, startLine)
		case '/': return l.makeToken(token.Slash, "", startPos, startCol, startLine)
		case '-': return l.matchThen('>', token.Arrow, token.Minus, startPos, startCol, startLine)
		case '!': return l.matchThen('=', token.Neq, token.Not, startPos, startCol, startLine)
		case '<': return l.matchThen('=', token.Lte, token.Lt, startPos, startCol, startLine)
		case '>': return l.matchThen('=', token.Gte, token.Gt, startPos, startCol, startLine)
		case ':':
			if l.match('=') {
				return l.makeToken(token.Define, "", startPos, startCol, startLine)
			}
		case '=':
			if l.match('=') {
				return l.makeToken(token.EqEq, "", startPos, startCol, startLine)
			}
		case '&':
			if l.match('&') {
				return l.makeToken(token.AndAnd, "", startPos, startCol, startLine)
			}
		case '|':
			if l.match('|') {
				return l.makeToken(token.OrOr, "", startPos, startCol, startLine)
			}
		case '\\':
			return l.printSeparator(startPos, startCol, startLine)
		case '"':
			return l.stringLiteral(startPos, startCol, startLine)
		case '\'':
			return l.charLiteral(startPos, startCol, startLine)
		case '%':
			return l.octalCharLiteral(startPos, startCol, startLine)
		}

		l.rep.Error(l.makeToken(token.EOF, "", startPos, startCol, startLine), "unexpected character '%c'", ch)
	}
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() rune {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

func (l *Lexer) advance() rune {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
	return ch
}

func (l *Lexer) match(expected rune) bool {
	if l.isAtEnd() || l.source[l.pos] != expected {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) makeToken(tokType token.Type, value string, startPos, startCol, startLine int) token.Token {
	return token.Token{
		Type: tokType, Value: value, FileIndex: l.fileIndex,
		Line: startLine, Column: startCol, Len: l.pos - startPos,
	}
}

func (l *Lexer) matchThen(expected rune, thenType, elseType token.Type, sPos, sCol, sLine int) token.Token {
	if l.match(expected) {
		return l.makeToken(thenType, "", sPos, sCol, sLine)
	}
	return l.makeToken(elseType, "", sPos, sCol, sLine)
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch l.peek() {
		case ' ', '\t', '\n', '\r':
			l.advance()
		case '#':
			l.comment()
		default:
			return
		}
	}
}

// comment skips "# ... #" or "# ... <newline>".
func (l *Lexer) comment() {
	l.advance()
	for !l.isAtEnd() {
		switch l.advance() {
		case '#', '\n':
			return
		}
	}
}

func (l *Lexer) identifierOrKeyword(startPos, startCol, startLine int) token.Token {
	for unicode.IsLetter(l.peek()) || unicode.IsDigit(l.peek()) || l.peek() == '_' || l.peek() == '@' {
		l.advance()
	}
	value := string(l.source[startPos:l.pos])
	if tokType, isKeyword := token.KeywordMap[value]; isKeyword {
		return l.makeToken(tokType, "", startPos, startCol, startLine)
	}
	return l.makeToken(token.Ident, value, startPos, startCol, startLine)
}

func (l *Lexer) digits() {
	for unicode.IsDigit(l.peek()) {
		l.advance()
	}
}

func (l *Lexer) numberLiteral(startPos, startCol, startLine int) token.Token {
	l.digits()
	if l.peek() != '.' {
		tok := l.makeToken(token.Number, string(l.source[startPos:l.pos]), startPos, startCol, startLine)
		if _, err := strconv.ParseInt(tok.Value, 10, 32); err != nil {
			l.rep.Error(tok, "integer constant %s does not fit in 32 bits", tok.Value)
			tok.Value = "0"
		}
		return tok
	}

	l.advance()
	if !unicode.IsDigit(l.peek()) {
		tok := l.makeToken(token.FloatNumber, "0", startPos, startCol, startLine)
		l.rep.Error(tok, "malformed floating-point literal: no digits after '.'")
		return tok
	}
	l.digits()
	if l.peek() == 'e' || l.peek() == 'E' {
		l.advance()
		if l.peek() == '+' || l.peek() == '-' {
			l.advance()
		}
		if !unicode.IsDigit(l.peek()) {
			tok := l.makeToken(token.FloatNumber, "0", startPos, startCol, startLine)
			l.rep.Error(tok, "malformed floating-point literal: exponent has no digits")
			return tok
		}
		l.digits()
	}
	return l.makeToken(token.FloatNumber, string(l.source[startPos:l.pos]), startPos, startCol, startLine)
}

func (l *Lexer) printSeparator(startPos, startCol, startLine int) token.Token {
	switch l.peek() {
	case 's':
		l.advance()
		return l.makeToken(token.PrintSpace, "", startPos, startCol, startLine)
	case 'n':
		l.advance()
		return l.makeToken(token.PrintNewline, "", startPos, startCol, startLine)
	case 't':
		l.advance()
		return l.makeToken(token.PrintTab, "", startPos, startCol, startLine)
	}
	return l.makeToken(token.PrintSep, "", startPos, startCol, startLine)
}

func (l *Lexer) stringLiteral(startPos, startCol, startLine int) token.Token {
	var sb strings.Builder
	for !l.isAtEnd() && l.peek() != '\n' {
		c := l.advance()
		if c == '"' {
			return l.makeToken(token.String, sb.String(), startPos, startCol, startLine)
		}
		sb.WriteRune(c)
	}
	tok := l.makeToken(token.String, sb.String(), startPos, startCol, startLine)
	l.rep.Error(tok, "unterminated string literal")
	return tok
}

func (l *Lexer) charLiteral(startPos, startCol, startLine int) token.Token {
	c := l.advance()
	tok := l.makeToken(token.Char, "", startPos, startCol, startLine)
	if c > unicode.MaxASCII || c == 0 {
		l.rep.Error(tok, "character literal must be ASCII")
		return tok
	}
	if !l.match('\'') {
		l.rep.Error(tok, "unterminated character literal")
		return tok
	}
	tok = l.makeToken(token.Char, string(c), startPos, startCol, startLine)
	return tok
}

// octalCharLiteral scans %o, %oo or %ooo.
func (l *Lexer) octalCharLiteral(startPos, startCol, startLine int) token.Token {
	val, n := 0, 0
	for n < 3 && l.peek() >= '0' && l.peek() <= '7' {
		val = val*8 + int(l.advance()-'0')
		n++
	}
	tok := l.makeToken(token.Char, string(rune(val)), startPos, startCol, startLine)
	switch {
	case n == 0:
		l.rep.Error(tok, "expected octal digits after '%%'")
	case val > unicode.MaxASCII:
		l.rep.Error(tok, "character constant %%%o exceeds 127", val)
		tok.Value = "\x00"
	}
	return tok
}
