// Package types defines the static types of the source language
package types

import "strings"

// Type is implemented by every static type. Size is in bytes.
type Type interface {
	Size() int
	String() string
	Equals(other Type) bool
}

type Primitive int

const (
	Boolean Primitive = iota
	Character
	Integer
	Float
	String
	Void
	Error
)

var primitiveInfo = [...]struct {
	name string
	size int
}{
	Boolean:   {"BOOLEAN", 1},
	Character: {"CHARACTER", 1},
	Integer:   {"INTEGER", 4},
	Float:     {"FLOAT", 8},
	String:    {"STRING", 4},
	Void:      {"VOID", 0},
	Error:     {"ERROR", 0},
}

func (p Primitive) Size() int      { return primitiveInfo[p].size }
func (p Primitive) String() string { return primitiveInfo[p].name }

func (p Primitive) Equals(other Type) bool {
	if v, ok := other.(*Variable); ok {
		return v.Equals(p)
	}
	o, ok := other.(Primitive)
	return ok && o == p
}

// Array is a reference to a heap array record.
type Array struct{ Subtype Type }

func NewArray(subtype Type) *Array { return &Array{Subtype: subtype} }

func (a *Array) Size() int      { return 4 }
func (a *Array) String() string { return "[" + a.Subtype.String() + "]" }

// Equals unwraps both arrays in lockstep while both sides are arrays and
// compares what remains. A type variable met on the way unifies with the
// other side at that depth.
func (a *Array) Equals(other Type) bool {
	if v, ok := other.(*Variable); ok {
		return v.Equals(a)
	}
	o, ok := other.(*Array)
	if !ok {
		return false
	}
	s1, s2 := a.Subtype, o.Subtype
	for {
		if v, ok := s1.(*Variable); ok {
			return v.Equals(s2)
		}
		if v, ok := s2.(*Variable); ok {
			return v.Equals(s1)
		}
		a1, ok1 := s1.(*Array)
		a2, ok2 := s2.(*Array)
		if !ok1 || !ok2 {
			break
		}
		s1, s2 = a1.Subtype, a2.Subtype
	}
	p1, ok1 := s1.(Primitive)
	p2, ok2 := s2.(Primitive)
	if ok1 || ok2 {
		return ok1 && ok2 && p1 == p2
	}
	return s1.Equals(s2)
}

// Function is the type of a subroutine value.
type Function struct {
	Params []Type
	Return Type
}

func NewFunction(ret Type, params ...Type) *Function {
	return &Function{Params: params, Return: ret}
}

func (f *Function) Size() int { return 4 }

func (f *Function) String() string {
	var sb strings.Builder
	sb.WriteString("<")
	for i, p := range f.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.String())
	}
	if len(f.Params) > 0 {
		sb.WriteString(" ")
	}
	sb.WriteString("-> ")
	sb.WriteString(f.Return.String())
	sb.WriteString(">")
	return sb.String()
}

func (f *Function) Equals(other Type) bool {
	if v, ok := other.(*Variable); ok {
		return v.Equals(f)
	}
	o, ok := other.(*Function)
	if !ok || len(o.Params) != len(f.Params) {
		return false
	}
	for i := range f.Params {
		if !f.Params[i].Equals(o.Params[i]) {
			return false
		}
	}
	return f.Return.Equals(o.Return)
}

// Variable is a type variable used while matching signatures. It binds to
// the first type it is compared with and stays bound until Reset.
type Variable struct {
	Name  string
	bound Type
}

func NewVariable(name string) *Variable { return &Variable{Name: name} }

func (v *Variable) Size() int      { return 0 }
func (v *Variable) String() string { return "<" + v.Name + ">" }
func (v *Variable) Bound() Type    { return v.bound }

func (v *Variable) Reset() { v.bound = nil }

func (v *Variable) Equals(other Type) bool {
	if _, ok := other.(*Variable); ok {
		panic("types: equality attempted between two type variables")
	}
	if v.bound == nil {
		v.bound = other
		return true
	}
	return v.bound.Equals(other)
}

// Literal wraps a type so it can flow through the cast machinery as an
// operand.
type Literal struct{ Type Type }

func NewLiteral(t Type) *Literal { return &Literal{Type: t} }

func (l *Literal) Size() int      { return 0 }
func (l *Literal) String() string { return "TYPE(" + l.Type.String() + ")" }

func (l *Literal) Equals(other Type) bool {
	o, ok := other.(*Literal)
	return ok && l.Type.Equals(o.Type)
}

// IsReference reports whether values of t are pointers to records.
func IsReference(t Type) bool {
	switch t := t.(type) {
	case *Array:
		return true
	case Primitive:
		return t == String
	}
	return false
}

func IsError(t Type) bool {
	p, ok := t.(Primitive)
	return ok && p == Error
}

func IsVoid(t Type) bool {
	p, ok := t.(Primitive)
	return ok && p == Void
}

// FromKeyword maps a primitive type keyword to its type.
func FromKeyword(name string) (Type, bool) {
	switch name {
	case "bool":
		return Boolean, true
	case "char":
		return Character, true
	case "int":
		return Integer, true
	case "float":
		return Float, true
	case "string":
		return String, true
	case "void":
		return Void, true
	}
	return nil, false
}
