package signatures

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/tanc/pkg/asm"
	"github.com/xplshn/tanc/pkg/token"
	"github.com/xplshn/tanc/pkg/types"
)

func TestLookupPicksVariant(t *testing.T) {
	reg := Default()
	tests := []struct {
		name string
		key  token.Type
		args []types.Type
		want Variant
		res  types.Type
	}{
		{"int add", token.Plus, []types.Type{types.Integer, types.Integer}, Opcode{asm.Add}, types.Integer},
		{"float add", token.Plus, []types.Type{types.Float, types.Float}, Opcode{asm.FAdd}, types.Float},
		{"unary plus", token.Plus, []types.Type{types.Float}, Opcode{asm.Nop}, types.Float},
		{"unary minus", token.Minus, []types.Type{types.Integer}, Opcode{asm.Negate}, types.Integer},
		{"int divide", token.Slash, []types.Type{types.Integer, types.Integer}, Expansion{Kind: IntDivide}, types.Integer},
		{"char compare", token.Lt, []types.Type{types.Character, types.Character}, Expansion{Kind: Compare, Op: token.Lt}, types.Boolean},
		{"string equality", token.EqEq, []types.Type{types.String, types.String}, Expansion{Kind: Compare, Op: token.EqEq}, types.Boolean},
		{"not", token.Not, []types.Type{types.Boolean}, Opcode{asm.BNegate}, types.Boolean},
		{"and", token.AndAnd, []types.Type{types.Boolean, types.Boolean}, Expansion{Kind: ShortCircuitAnd}, types.Boolean},
		{"length", token.Length, []types.Type{types.NewArray(types.NewArray(types.Float))}, Expansion{Kind: ArrayLength}, types.Integer},
		{"int to float", token.Cast, []types.Type{types.NewLiteral(types.Float), types.Integer}, Opcode{asm.ConvertF}, types.Float},
		{"int to char", token.Cast, []types.Type{types.NewLiteral(types.Character), types.Integer}, Expansion{Kind: IntToChar}, types.Character},
		{"char to int", token.Cast, []types.Type{types.NewLiteral(types.Integer), types.Character}, Opcode{asm.Nop}, types.Integer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := reg.Lookup(tt.key, tt.args)
			if sig.IsNull() {
				t.Fatalf("no signature for %s %v", tt.key, tt.args)
			}
			if diff := cmp.Diff(tt.want, sig.Variant); diff != "" {
				t.Errorf("variant mismatch (-want +got):\n%s", diff)
			}
			if !sig.ResultType().Equals(tt.res) {
				t.Errorf("result = %s, want %s", sig.ResultType(), tt.res)
			}
		})
	}
}

func TestLookupRejects(t *testing.T) {
	reg := Default()
	tests := []struct {
		name string
		key  token.Type
		args []types.Type
	}{
		{"mixed add", token.Plus, []types.Type{types.Integer, types.Float}},
		{"char add", token.Plus, []types.Type{types.Character, types.Character}},
		{"bool ordering", token.Lt, []types.Type{types.Boolean, types.Boolean}},
		{"length of int", token.Length, []types.Type{types.Integer}},
		{"float to bool", token.Cast, []types.Type{types.NewLiteral(types.Boolean), types.Float}},
		{"unknown key", token.Comma, []types.Type{types.Integer}},
		{"arity", token.Star, []types.Type{types.Integer}},
		{"error operand", token.Plus, []types.Type{types.Error, types.Integer}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if sig := reg.Lookup(tt.key, tt.args); !sig.IsNull() {
				t.Errorf("expected no match, got %s", sig)
			}
		})
	}
}

func TestArrayCastUnifiesPerCheck(t *testing.T) {
	reg := Default()
	ints := types.NewArray(types.Integer)
	floats := types.NewArray(types.Float)

	sig := reg.Lookup(token.Cast, []types.Type{types.NewLiteral(ints), ints})
	if sig.IsNull() {
		t.Fatal("identity cast [INTEGER] -> [INTEGER] rejected")
	}
	if !sig.ResultType().Equals(ints) {
		t.Errorf("result = %s, want %s", sig.ResultType(), ints)
	}
	if got := reg.Lookup(token.Cast, []types.Type{types.NewLiteral(ints), floats}); !got.IsNull() {
		t.Errorf("[FLOAT] -> [INTEGER] accepted by %s", got)
	}
	// The earlier binding must not leak into a fresh check.
	if got := reg.Lookup(token.Cast, []types.Type{types.NewLiteral(floats), floats}); got.IsNull() {
		t.Error("identity cast [FLOAT] -> [FLOAT] rejected after an [INTEGER] check")
	}
}

func TestRegistrationOrder(t *testing.T) {
	reg := NewRegistry()
	first := New(0, Opcode{asm.Add}, types.Integer, types.Integer)
	second := New(0, Opcode{asm.Subtract}, types.Integer, types.Integer)
	reg.Register(token.Plus, first, second)
	if got := reg.Lookup(token.Plus, []types.Type{types.Integer}); got != first {
		t.Errorf("Lookup returned %v, want the first registered signature", got)
	}
	if first.Key != token.Plus {
		t.Errorf("Register did not stamp the key: %v", first.Key)
	}
}

func TestNullSignature(t *testing.T) {
	if Null.Accepts(nil) {
		t.Error("null signature accepted an empty operand list")
	}
	if !types.IsError(Null.ResultType()) {
		t.Errorf("null result = %s, want ERROR", Null.ResultType())
	}
}
