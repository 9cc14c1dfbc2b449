package types

import "testing"

func TestSizes(t *testing.T) {
	tests := []struct {
		typ  Type
		want int
	}{
		{Boolean, 1},
		{Character, 1},
		{Integer, 4},
		{String, 4},
		{Float, 8},
		{Void, 0},
		{NewArray(Float), 4},
		{NewFunction(Integer, Float), 4},
	}
	for _, tt := range tests {
		if got := tt.typ.Size(); got != tt.want {
			t.Errorf("%s.Size() = %d, want %d", tt.typ, got, tt.want)
		}
	}
}

func TestArrayEquality(t *testing.T) {
	tests := []struct {
		name string
		a, b Type
		want bool
	}{
		{"same primitive", NewArray(Integer), NewArray(Integer), true},
		{"different primitive", NewArray(Integer), NewArray(Float), false},
		{"nested same", NewArray(NewArray(Character)), NewArray(NewArray(Character)), true},
		{"nested different leaf", NewArray(NewArray(Character)), NewArray(NewArray(Integer)), false},
		{"depth mismatch", NewArray(NewArray(Integer)), NewArray(Integer), false},
		{"array vs primitive", NewArray(Integer), Integer, false},
		{"function leaves", NewArray(NewFunction(Integer)), NewArray(NewFunction(Integer)), true},
		{"function leaves differ", NewArray(NewFunction(Integer)), NewArray(NewFunction(Float)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equals(tt.b); got != tt.want {
				t.Errorf("%s == %s: got %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestVariableUnifiesOnce(t *testing.T) {
	v := NewVariable("T")
	if !v.Equals(Integer) {
		t.Fatal("unbound variable should accept INTEGER")
	}
	if v.Equals(Float) {
		t.Fatal("variable bound to INTEGER accepted FLOAT")
	}
	if !v.Equals(Integer) {
		t.Fatal("variable bound to INTEGER rejected INTEGER")
	}
	v.Reset()
	if !v.Equals(Float) {
		t.Fatal("reset variable should accept FLOAT")
	}
}

func TestArrayOfVariable(t *testing.T) {
	v := NewVariable("T")
	param := NewArray(v)
	if !param.Equals(NewArray(NewArray(Integer))) {
		t.Fatal("[T] should accept [[INTEGER]]")
	}
	if got, ok := v.Bound().(*Array); !ok || !got.Equals(NewArray(Integer)) {
		t.Fatalf("T bound to %v, want [INTEGER]", v.Bound())
	}
	if param.Equals(NewArray(NewArray(Float))) {
		t.Fatal("[T] with T=[INTEGER] accepted [[FLOAT]]")
	}
}

func TestLiteral(t *testing.T) {
	if !NewLiteral(Integer).Equals(NewLiteral(Integer)) {
		t.Error("TYPE(INTEGER) should equal TYPE(INTEGER)")
	}
	if NewLiteral(Integer).Equals(Integer) {
		t.Error("a type literal must not equal the plain type")
	}
}

func TestFunctionString(t *testing.T) {
	f := NewFunction(Float, Integer, NewArray(Character))
	if got, want := f.String(), "<INTEGER, [CHARACTER] -> FLOAT>"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got, want := NewFunction(Void).String(), "<-> VOID>"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestIsReference(t *testing.T) {
	if !IsReference(String) || !IsReference(NewArray(Integer)) {
		t.Error("strings and arrays are references")
	}
	if IsReference(Integer) || IsReference(NewFunction(Void)) {
		t.Error("integers and functions are not references")
	}
}
