package lexer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/tanc/pkg/token"
	"github.com/xplshn/tanc/pkg/util"
)

func scan(t *testing.T, src string) ([]token.Token, *util.Reporter) {
	t.Helper()
	rep := util.NewReporter(nil, nil, nil)
	return NewLexer([]rune(src), 0, rep).Tokenize(), rep
}

func kinds(toks []token.Token) []token.Type {
	out := make([]token.Type, len(toks))
	for i, tok := range toks {
		out[i] = tok.Type
	}
	return out
}

func TestTokenKinds(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []token.Type
	}{
		{"declaration", "var x := 3;", []token.Type{token.Var, token.Ident, token.Define, token.Number, token.Semi, token.EOF}},
		{"operators", "-> - != ! <= < >= > == && ||", []token.Type{
			token.Arrow, token.Minus, token.Neq, token.Not, token.Lte, token.Lt,
			token.Gte, token.Gt, token.EqEq, token.AndAnd, token.OrOr, token.EOF,
		}},
		{"print separators", `print a \s b \n \t \;`, []token.Type{
			token.Print, token.Ident, token.PrintSpace, token.Ident, token.PrintNewline,
			token.PrintTab, token.PrintSep, token.Semi, token.EOF,
		}},
		{"comments", "x # to hash # y # to end of line\nz", []token.Type{token.Ident, token.Ident, token.Ident, token.EOF}},
		{"type keywords", "bool char int float string void", []token.Type{
			token.Bool, token.CharKeyword, token.Int, token.Float, token.StringKeyword, token.Void, token.EOF,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, rep := scan(t, tt.src)
			if rep.HasErrors() {
				t.Fatalf("unexpected errors: %v", rep.Messages())
			}
			if diff := cmp.Diff(tt.want, kinds(toks)); diff != "" {
				t.Errorf("token kinds (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLiteralValues(t *testing.T) {
	toks, rep := scan(t, `42 3.25 1.5e-3 2.0E4 'q' %101 "hi there" my_var@2`)
	if rep.HasErrors() {
		t.Fatalf("unexpected errors: %v", rep.Messages())
	}
	type lit struct {
		Type  token.Type
		Value string
	}
	var got []lit
	for _, tok := range toks {
		got = append(got, lit{tok.Type, tok.Value})
	}
	want := []lit{
		{token.Number, "42"},
		{token.FloatNumber, "3.25"},
		{token.FloatNumber, "1.5e-3"},
		{token.FloatNumber, "2.0E4"},
		{token.Char, "q"},
		{token.Char, "A"},
		{token.String, "hi there"},
		{token.Ident, "my_var@2"},
		{token.EOF, ""},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("literals (-want +got):\n%s", diff)
	}
}

func TestPositions(t *testing.T) {
	toks, _ := scan(t, "main {\n  print 12;\n}")
	num := toks[3]
	if num.Type != token.Number || num.Line != 2 || num.Column != 9 || num.Len != 2 {
		t.Errorf("got %+v, want number at 2:9 with length 2", num)
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"too large", "4294967296", "integer constant 4294967296 does not fit in 32 bits"},
		{"no fraction digits", "3.", "malformed floating-point literal: no digits after '.'"},
		{"empty exponent", "3.0e", "malformed floating-point literal: exponent has no digits"},
		{"unterminated string", "\"abc\nx", "unterminated string literal"},
		{"octal range", "%200", "character constant %200 exceeds 127"},
		{"stray character", "x $ y", "unexpected character '$'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, rep := scan(t, tt.src)
			msgs := rep.Messages()
			if len(msgs) != 1 || msgs[0] != tt.want {
				t.Errorf("errors = %q, want [%q]", msgs, tt.want)
			}
		})
	}
}
