package signatures

import (
	"github.com/xplshn/tanc/pkg/asm"
	"github.com/xplshn/tanc/pkg/token"
	"github.com/xplshn/tanc/pkg/types"
)

var (
	boolT  = types.Boolean
	charT  = types.Character
	intT   = types.Integer
	floatT = types.Float
	strT   = types.String
)

func op(o asm.Opcode) Variant        { return Opcode{Op: o} }
func expand(k ExpansionKind) Variant { return Expansion{Kind: k} }
func compare(key token.Type) Variant { return Expansion{Kind: Compare, Op: key} }
func lit(t types.Type) types.Type    { return types.NewLiteral(t) }

func castSig(v Variant, to, from types.Type) *Signature {
	return New(token.Cast, v, to, lit(to), from)
}

// Default builds the language's operator table. Signatures carrying type
// variables are rebound on every lookup, so each compilation takes its own
// registry rather than sharing one across goroutines.
func Default() *Registry {
	r := NewRegistry()

	r.Register(token.Plus,
		New(0, op(asm.Nop), intT, intT),
		New(0, op(asm.Nop), floatT, floatT),
		New(0, op(asm.Add), intT, intT, intT),
		New(0, op(asm.FAdd), floatT, floatT, floatT),
	)
	r.Register(token.Minus,
		New(0, op(asm.Negate), intT, intT),
		New(0, op(asm.FNegate), floatT, floatT),
		New(0, op(asm.Subtract), intT, intT, intT),
		New(0, op(asm.FSubtract), floatT, floatT, floatT),
	)
	r.Register(token.Star,
		New(0, op(asm.Multiply), intT, intT, intT),
		New(0, op(asm.FMultiply), floatT, floatT, floatT),
	)
	r.Register(token.Slash,
		New(0, expand(IntDivide), intT, intT, intT),
		New(0, expand(FloatDivide), floatT, floatT, floatT),
	)

	for _, key := range []token.Type{token.Gt, token.Gte, token.Lt, token.Lte} {
		r.Register(key,
			New(0, compare(key), boolT, intT, intT),
			New(0, compare(key), boolT, floatT, floatT),
			New(0, compare(key), boolT, charT, charT),
		)
	}
	for _, key := range []token.Type{token.EqEq, token.Neq} {
		r.Register(key,
			New(0, compare(key), boolT, intT, intT),
			New(0, compare(key), boolT, floatT, floatT),
			New(0, compare(key), boolT, charT, charT),
			New(0, compare(key), boolT, boolT, boolT),
			New(0, compare(key), boolT, strT, strT),
		)
	}

	r.Register(token.AndAnd, New(0, expand(ShortCircuitAnd), boolT, boolT, boolT))
	r.Register(token.OrOr, New(0, expand(ShortCircuitOr), boolT, boolT, boolT))
	r.Register(token.Not, New(0, op(asm.BNegate), boolT, boolT))

	elem := types.NewVariable("T")
	r.Register(token.Length,
		New(0, expand(ArrayLength), intT, types.NewArray(elem)).WithVariables(elem),
	)

	castElem := types.NewVariable("T")
	r.Register(token.Cast,
		castSig(op(asm.Nop), boolT, boolT),
		castSig(op(asm.Nop), charT, charT),
		castSig(op(asm.Nop), intT, intT),
		castSig(op(asm.Nop), floatT, floatT),
		castSig(op(asm.Nop), strT, strT),
		castSig(op(asm.Nop), types.NewArray(castElem), types.NewArray(castElem)).WithVariables(castElem),
		castSig(op(asm.Nop), intT, charT),
		castSig(op(asm.ConvertF), floatT, intT),
		castSig(op(asm.ConvertI), intT, floatT),
		castSig(expand(IntToBool), boolT, intT),
		castSig(expand(IntToChar), charT, intT),
		castSig(expand(CharToBool), boolT, charT),
	)
	return r
}
