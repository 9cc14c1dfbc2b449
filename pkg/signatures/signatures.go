// Package signatures holds the operator and cast signature tables
package signatures

import (
	"fmt"
	"strings"

	"github.com/xplshn/tanc/pkg/asm"
	"github.com/xplshn/tanc/pkg/token"
	"github.com/xplshn/tanc/pkg/types"
)

// Variant is how a matched signature turns into code: a single opcode or
// a named multi-instruction expansion.
type Variant interface{ isVariant() }

type Opcode struct{ Op asm.Opcode }

type ExpansionKind int

const (
	ArrayLength ExpansionKind = iota
	IntToBool
	IntToChar
	CharToBool
	IntDivide
	FloatDivide
	Compare
	ShortCircuitAnd
	ShortCircuitOr
)

var expansionNames = [...]string{
	ArrayLength: "array-length", IntToBool: "int-to-bool", IntToChar: "int-to-char",
	CharToBool: "char-to-bool", IntDivide: "int-divide", FloatDivide: "float-divide",
	Compare: "compare", ShortCircuitAnd: "and", ShortCircuitOr: "or",
}

func (k ExpansionKind) String() string { return expansionNames[k] }

// Expansion names custom code. Op is set for Compare and records which
// comparison it is.
type Expansion struct {
	Kind ExpansionKind
	Op   token.Type
}

func (Opcode) isVariant()    {}
func (Expansion) isVariant() {}

type Signature struct {
	Key     token.Type
	Params  []types.Type
	Result  types.Type
	Variant Variant

	vars []*types.Variable
	null bool
}

func New(key token.Type, variant Variant, result types.Type, params ...types.Type) *Signature {
	return &Signature{Key: key, Params: params, Result: result, Variant: variant}
}

// WithVariables attaches the type variables the parameters mention, so
// Accepts can unbind them before every check.
func (s *Signature) WithVariables(vars ...*types.Variable) *Signature {
	s.vars = append(s.vars, vars...)
	return s
}

// Null is returned for failed lookups; it accepts nothing.
var Null = &Signature{null: true, Result: types.Error}

func (s *Signature) IsNull() bool { return s.null }

func (s *Signature) Accepts(actuals []types.Type) bool {
	if s.null || len(actuals) != len(s.Params) {
		return false
	}
	s.resetVariables()
	for i, p := range s.Params {
		if !p.Equals(actuals[i]) {
			return false
		}
	}
	return true
}

func (s *Signature) resetVariables() {
	for _, v := range s.vars {
		v.Reset()
	}
}

// ResultType is the result with type variables replaced by what they were
// bound to in the last successful Accepts.
func (s *Signature) ResultType() types.Type { return substitute(s.Result) }

func substitute(t types.Type) types.Type {
	switch t := t.(type) {
	case *types.Variable:
		if b := t.Bound(); b != nil {
			return b
		}
	case *types.Array:
		return types.NewArray(substitute(t.Subtype))
	}
	return t
}

func (s *Signature) String() string {
	if s.null {
		return "<null signature>"
	}
	parts := make([]string, len(s.Params))
	for i, p := range s.Params {
		parts[i] = p.String()
	}
	return fmt.Sprintf("%s(%s) -> %s", s.Key, strings.Join(parts, ", "), s.Result)
}

// Registry maps operator keys to their signatures in registration order.
type Registry struct {
	table map[token.Type][]*Signature
}

func NewRegistry() *Registry {
	return &Registry{table: make(map[token.Type][]*Signature)}
}

func (r *Registry) Register(key token.Type, sigs ...*Signature) {
	for _, s := range sigs {
		s.Key = key
	}
	r.table[key] = append(r.table[key], sigs...)
}

// Lookup returns the first signature for key that accepts actuals, or Null.
func (r *Registry) Lookup(key token.Type, actuals []types.Type) *Signature {
	for _, s := range r.table[key] {
		if s.Accepts(actuals) {
			return s
		}
	}
	return Null
}
