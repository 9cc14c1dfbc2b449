package token

type Type int

const (
	EOF Type = iota
	Ident
	Number
	FloatNumber
	Char
	String

	// Keywords
	Main
	Subr
	Const
	Var
	Print
	Call
	Return
	If
	Else
	While
	New
	Length
	True
	False
	Bool
	CharKeyword
	Int
	Float
	StringKeyword
	Void

	// Punctuation
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Semi
	Comma
	Define
	Arrow
	PrintSep
	PrintSpace
	PrintNewline
	PrintTab

	// Operators
	Plus
	Minus
	Star
	Slash
	EqEq
	Neq
	Lt
	Gt
	Lte
	Gte
	AndAnd
	OrOr
	Not

	// Cast is never produced by the lexer; the parser tags explicit and
	// inserted casts with it so the signature registry can key on it.
	Cast
)

var KeywordMap = map[string]Type{
	"main":   Main,
	"subr":   Subr,
	"const":  Const,
	"var":    Var,
	"print":  Print,
	"call":   Call,
	"return": Return,
	"if":     If,
	"else":   Else,
	"while":  While,
	"new":    New,
	"length": Length,
	"true":   True,
	"false":  False,
	"bool":   Bool,
	"char":   CharKeyword,
	"int":    Int,
	"float":  Float,
	"string": StringKeyword,
	"void":   Void,
}

var punctStrings = map[Type]string{
	LParen: "(", RParen: ")", LBrace: "{", RBrace: "}", LBracket: "[", RBracket: "]",
	Semi: ";", Comma: ",", Define: ":=", Arrow: "->",
	PrintSep: "\\", PrintSpace: "\\s", PrintNewline: "\\n", PrintTab: "\\t",
	Plus: "+", Minus: "-", Star: "*", Slash: "/",
	EqEq: "==", Neq: "!=", Lt: "<", Gt: ">", Lte: "<=", Gte: ">=",
	AndAnd: "&&", OrOr: "||", Not: "!", Cast: "<>()",
	EOF: "end of input", Ident: "identifier", Number: "integer constant",
	FloatNumber: "float constant", Char: "character constant", String: "string constant",
}

// Reverse mapping from Type to the keyword or punctuator text
var TypeStrings = make(map[Type]string)

func init() {
	for str, typ := range KeywordMap {
		TypeStrings[typ] = str
	}
	for typ, str := range punctStrings {
		TypeStrings[typ] = str
	}
}

func (t Type) String() string {
	if s, ok := TypeStrings[t]; ok {
		return s
	}
	return "?"
}

type Token struct {
	Type      Type
	Value     string
	FileIndex int
	Line      int
	Column    int
	Len       int
}
