package symtab

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/tanc/pkg/asm"
	"github.com/xplshn/tanc/pkg/types"
)

func declare(t *testing.T, s *Scope, name string, typ types.Type) *Binding {
	t.Helper()
	b, err := s.Declare(name, typ, true)
	if err != nil {
		t.Fatalf("Declare(%q): %v", name, err)
	}
	return b
}

func TestProgramScopeOffsets(t *testing.T) {
	s := NewProgramScope()
	a := declare(t, s, "a", types.Integer)
	b := declare(t, s, "b", types.Float)
	c := declare(t, s, "c", types.Character)
	got := []int{a.Offset, b.Offset, c.Offset}
	if diff := cmp.Diff([]int{0, 4, 12}, got); diff != "" {
		t.Errorf("offsets (-want +got):\n%s", diff)
	}
	if s.AllocatedSize() != 13 {
		t.Errorf("AllocatedSize() = %d, want 13", s.AllocatedSize())
	}
	if a.Location != Global {
		t.Errorf("program bindings must be global")
	}
}

func TestSubscopeHighWaterMark(t *testing.T) {
	s := NewProgramScope()
	declare(t, s, "x", types.Integer)
	inner := s.Enter()
	declare(t, inner, "y", types.Float)
	inner.Leave()
	z := declare(t, s, "z", types.Integer)
	if z.Offset != 4 {
		t.Errorf("z.Offset = %d, want 4 (storage released on Leave)", z.Offset)
	}
	if s.AllocatedSize() != 12 {
		t.Errorf("AllocatedSize() = %d, want 12", s.AllocatedSize())
	}
}

func TestParameterOffsets(t *testing.T) {
	params := NewProgramScope().NewParameterScope()
	a := declare(t, params, "a", types.Integer)
	b := declare(t, params, "b", types.Float)
	c := declare(t, params, "c", types.Boolean)
	params.CloseParameters()

	// The caller pushes a first, so a sits highest.
	got := []int{a.Offset, b.Offset, c.Offset}
	if diff := cmp.Diff([]int{9, 1, 0}, got); diff != "" {
		t.Errorf("parameter offsets (-want +got):\n%s", diff)
	}
	if params.AllocatedSize() != 13 {
		t.Errorf("argument size = %d, want 13", params.AllocatedSize())
	}
}

func TestProcedureScope(t *testing.T) {
	body := NewProgramScope().NewParameterScope().NewProcedureScope()
	if body.AllocatedSize() != 8 {
		t.Fatalf("empty frame = %d, want 8", body.AllocatedSize())
	}
	x := declare(t, body, "x", types.Integer)
	y := declare(t, body, "y", types.Float)
	if x.Offset != -12 || y.Offset != -20 {
		t.Errorf("offsets = %d, %d, want -12, -20", x.Offset, y.Offset)
	}
	if body.AllocatedSize() != 20 {
		t.Errorf("frame size = %d, want 20", body.AllocatedSize())
	}
}

func TestRedeclaration(t *testing.T) {
	s := NewProgramScope()
	declare(t, s, "x", types.Integer)
	if _, err := s.Declare("x", types.Float, true); err == nil {
		t.Error("redeclaring x in the same scope should fail")
	}
	inner := s.Enter()
	if _, err := inner.Declare("x", types.Float, true); err != nil {
		t.Errorf("shadowing in a nested scope: %v", err)
	}
}

func TestLookupAndCapture(t *testing.T) {
	prog := NewProgramScope()
	g := declare(t, prog, "g", types.Integer)
	params := prog.NewParameterScope()
	p := declare(t, params, "p", types.Integer)
	params.CloseParameters()
	body := params.NewProcedureScope()
	local := declare(t, body, "l", types.Integer)

	if body.Lookup("g") != g || body.Lookup("p") != p {
		t.Fatal("lookup did not walk to enclosing scopes")
	}
	if body.Lookup("missing") != nil {
		t.Error("lookup of an undeclared name should be nil")
	}

	lambda := body.NewParameterScope().NewProcedureScope()
	if lambda.IsCapture(g) {
		t.Error("globals are never captures")
	}
	if !lambda.IsCapture(local) || !lambda.IsCapture(p) {
		t.Error("locals of the enclosing function must be reported as captures")
	}
	if body.IsCapture(local) {
		t.Error("a function's own locals are not captures")
	}
}

func TestGenerateAddress(t *testing.T) {
	s := NewProgramScope()
	g := declare(t, s, "g", types.Integer)
	frag := g.GenerateAddress()
	if !frag.IsAddress() {
		t.Fatalf("kind = %s, want address", frag.Kind)
	}
	if diff := cmp.Diff([]asm.Opcode{asm.PushD, asm.PushI, asm.Add}, frag.Ops()); diff != "" {
		t.Errorf("global address (-want +got):\n%s", diff)
	}

	body := s.NewParameterScope().NewProcedureScope()
	l := declare(t, body, "l", types.Integer)
	want := []asm.Opcode{asm.PushD, asm.LoadI, asm.PushI, asm.Add}
	if diff := cmp.Diff(want, l.GenerateAddress().Ops()); diff != "" {
		t.Errorf("frame address (-want +got):\n%s", diff)
	}
}
