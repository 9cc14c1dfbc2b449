package compiler

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/tanc/pkg/config"
	"github.com/xplshn/tanc/pkg/runtime"
	"github.com/xplshn/tanc/pkg/vm"
)

func runSource(t *testing.T, cfg *config.Config, src string) string {
	t.Helper()
	if cfg == nil {
		cfg = config.NewConfig()
	}
	var diag, out bytes.Buffer
	c := New(cfg)
	c.Diagnostics = &diag
	if _, err := c.CompileAndRun(context.Background(), "test.tan", []byte(src), &out); err != nil {
		t.Fatalf("CompileAndRun: %v\n%s", err, diag.String())
	}
	return out.String()
}

func TestPrograms(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"precedence", "main { print 2 + 3 * 4; }", "14"},
		{"int arithmetic", "main { print 7 / 2 \\s 0 - 7 / 2 \\s -(3 - 10) * 2; }", "3 -3 14"},
		{"float arithmetic", "main { print 1.5 * 4.0 - 0.25; }", "5.750000"},
		{"array literal", "main { var a := [1, 2, 3]; print a; }", "[1, 2, 3]"},
		{"nested arrays", "main { print [[1, 2], [3]] \\s [['a'], ['b', 'c']]; }", "[[1, 2], [3]] [[a], [b, c]]"},
		{"float array", "main { print [1.5, 2.5]; }", "[1.500000, 2.500000]"},
		{"empty new array", "main { var a := new [int](3); print a \\s length a; }", "[0, 0, 0] 3"},
		{"array round trip", `
main {
	var a := new [int](5);
	var i := 0;
	while i < 5 { a[i] := i * i; i := i + 1; }
	print a \s a[4];
}`, "[0, 1, 4, 9, 16] 16"},
		{"array assignment through alias", "main { var a := [1, 2]; var b := a; b[0] := 9; print a; }", "[9, 2]"},
		{"integer divide by zero", "main { print 5 / 0; }", "Runtime error: integer divide by zero\n"},
		{"float divide by zero", "main { print 1.0 / 0.0; }", "Runtime error: float divide by zero\n"},
		{"negative index", "main { var a := new [int](5); print a[-1]; }", "Runtime error: negative index used for array\n"},
		{"index past the end", "main { var a := new [int](5); print a[5]; }", "Runtime error: index out of bounds\n"},
		{"negative length", "main { var a := new [int](0 - 1); }", "Runtime error: index out of bounds\n"},
		{"output before trap is kept", "main { print 1; print [1][1]; print 2; }", "1Runtime error: index out of bounds\n"},
		{"booleans", "main { print true \\s false \\s !true \\s <bool>(5) \\s <bool>('a'); }", "true false false true true"},
		{"int comparisons", "main { print 3 <= 2 \\s 2 <= 2 \\s 3 >= 2 \\s 1 > 2 \\s 1 == 1 \\s 1 != 1; }", "false true true false true false"},
		{"float comparisons", "main { print 1.5 >= 1.5 \\s 2.5 != 2.5 \\s 0.5 < 1.0 \\s 2.0 > 3.0 \\s 0.5 != 1.5; }", "true false true false true"},
		{"char and string equality", `main { print 'a' < 'b' \s "x" == "x"; }`, "true true"},
		{"separators", `main { print "a" \t "b" \n "c" \ 'd'; }`, "a\tb\ncd"},
		{"casts", "main { print <int>(2.9) \\s <float>(2) \\s <char>(65 + 128) \\s <int>('A'); }", "2 2.000000 A 65"},
		{"promotion char to int", "main { var c := 'a'; print c + 1; }", "98"},
		{"promotion char to float", "main { print 'a' * 1.5; }", "145.500000"},
		{"promotion in array literal", "main { print [1, 2.5] \\s ['a', 1]; }", "[1.000000, 2.500000] [97, 1]"},
		{"promotion of call argument", "subr float half(float x) { return x / 2.0; } main { print half(3); }", "1.500000"},
		{"while loop", "main { var i := 0; while i < 3 { print i; i := i + 1; } }", "012"},
		{"else if", `
subr string sign(int n) {
	if n < 0 { return "-"; } else if n == 0 { return "0"; } else { return "+"; }
}
main { print sign(0 - 5) \ sign(0) \ sign(5); }`, "-0+"},
		{"recursion", `
subr int fact(int n) {
	if n <= 1 { return 1; }
	return n * fact(n - 1);
}
main { print fact(10); }`, "3628800"},
		{"float result with three int arguments", `
subr float avg(int a, int b, int c) { return <float>(a + b + c) / 3.0; }
main { print avg(1, 2, 4); }`, "2.333333"},
		{"array parameter", `
subr int sum([int] a, int i) {
	if i == length a { return 0; }
	return a[i] + sum(a, i + 1);
}
main { print sum([1, 2, 3, 4], 0); }`, "10"},
		{"mixed parameter sizes", `
subr char pick(bool b, float f, char c, int i) {
	if b { return c; }
	return <char>(i);
}
main { print pick(true, 1.0, 'z', 66) \ pick(false, 2.0, 'z', 66); }`, "zB"},
		{"locals in nested blocks", `
subr int f(int x) {
	var a := x + 1;
	if a > 0 { var b := a * 2; a := b; }
	return a;
}
main { print f(3) \s f(0 - 5); }`, "8 -4"},
		{"void call statement", `
subr void hello(string who) { print "hello, " \ who; return; }
main { call hello("world"); }`, "hello, world"},
		{"discarded result", `
subr int side() { print "!"; return 1; }
main { call side(); call side(); }`, "!!"},
		{"functions as values", `
subr int twice(int x) { return x * 2; }
subr int apply(<int -> int> f, int x) { return f(x); }
main { var g := twice; print apply(g, 21) \s g; }`, "42 <function>"},
		{"lambda", "main { var sq := subr int (int x) { return x * x; }; print sq(7); }", "49"},
		{"lambda inside function", `
subr <int -> int> adder() { return subr int (int x) { return x + 100; }; }
main { var f := adder(); print f(1); }`, "101"},
		{"function runoff", "subr int f() { print 1; } main { print f(); }", "1Runtime error: code run off the end of a function\n"},
		{"void runoff traps", "subr void f() { print 1; } main { call f(); print 2; }", "1Runtime error: code run off the end of a function\n"},
		{"heap exhausted", "main { var a := new [int](1000000); }", "Runtime error: heap exhausted\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runSource(t, nil, tt.src); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestShortCircuit(t *testing.T) {
	src := `
subr bool t() { print "t"; return true; }
subr bool f() { print "f"; return false; }
main {
	print false && t(); print \n;
	print true || t(); print \n;
	print true && t(); print \n;
	print false || f(); print \n;
	print f() && t();
}`
	want := "false\ntrue\nttrue\nffalse\nffalse"
	if got := runSource(t, nil, src); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestImplicitVoidReturn(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatImplicitVoidReturn, true)
	got := runSource(t, cfg, "subr void f() { print 1; } main { call f(); print 2; }")
	if got != "12" {
		t.Errorf("output = %q, want %q", got, "12")
	}
}

// Calls must leave the stack and frame pointers where they found them.
func TestCallsRestoreStack(t *testing.T) {
	src := `
subr int fib(int n) {
	if n < 2 { return n; }
	return fib(n - 1) + fib(n - 2);
}
subr float avg(int a, int b, int c) { return <float>(a + b + c) / 3.0; }
subr void nothing() { return; }
main {
	var i := 0;
	while i < 50 {
		var x := avg(i, fib(10), 3);
		call avg(1, 2, 3);
		call nothing();
		i := i + 1;
	}
	print fib(15);
}`
	cfg := config.NewConfig()
	unit, err := New(cfg).Compile("stack.tan", []byte(src))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	prog, err := vm.Assemble(unit.Program)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	var out bytes.Buffer
	m, err := vm.New(prog, cfg, &out)
	if err != nil {
		t.Fatalf("vm.New: %v", err)
	}
	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "610" {
		t.Errorf("output = %q, want %q", out.String(), "610")
	}
	for _, label := range []string{runtime.StackPointer, runtime.FramePointer} {
		got, err := m.Symbol(label)
		if err != nil {
			t.Fatalf("Symbol(%s): %v", label, err)
		}
		if int(got) != cfg.MemorySize {
			t.Errorf("%s = %d after run, want %d", label, got, cfg.MemorySize)
		}
	}
	if n := len(m.Stack()); n != 0 {
		t.Errorf("operand stack holds %d words after run, want 0", n)
	}
}

// Runaway recursion traps once the call stack reaches the heap.
func TestStackMeetsHeap(t *testing.T) {
	cfg := config.NewConfig()
	cfg.MemorySize = 64 << 10
	src := `
subr int down(int n) { return down(n + 1); }
main {
	var a := [1, 2, 3];
	print a;
	print down(0);
}`
	want := "[1, 2, 3]Runtime error: heap exhausted\n"
	if got := runSource(t, cfg, src); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestCompileErrors(t *testing.T) {
	var diag bytes.Buffer
	c := New(config.NewConfig())
	c.Diagnostics = &diag
	unit, err := c.Compile("bad.tan", []byte("main {\n  print x;\n}\n"))
	if !errors.Is(err, ErrCompile) {
		t.Fatalf("Compile error = %v, want %v", err, ErrCompile)
	}
	if unit.Program != nil {
		t.Error("code was generated despite errors")
	}
	if diff := cmp.Diff([]string{`identifier "x" used before definition`}, unit.Reporter.Messages()); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(diag.String(), "bad.tan:2:9: error:") {
		t.Errorf("diagnostic = %q, want a bad.tan:2:9 location", diag.String())
	}
	if _, err := c.Run(context.Background(), unit, &bytes.Buffer{}); err == nil {
		t.Error("Run accepted a unit without a program")
	}
}

func TestProgress(t *testing.T) {
	var progress bytes.Buffer
	c := New(config.NewConfig())
	c.Progress = &progress
	if _, err := c.CompileAndRun(context.Background(), "p.tan", []byte("main { print 1 + 1.0; }"), &bytes.Buffer{}); err != nil {
		t.Fatalf("CompileAndRun: %v", err)
	}
	for _, want := range []string{"Type checking...", "Inserting 1 implicit conversion(s)...", "Running..."} {
		if !strings.Contains(progress.String(), want) {
			t.Errorf("progress output lacks %q:\n%s", want, progress.String())
		}
	}
}

func TestStepLimit(t *testing.T) {
	cfg := config.NewConfig()
	cfg.StepLimit = 10_000
	_, err := New(cfg).CompileAndRun(context.Background(), "loop.tan", []byte("main { while true { } }"), &bytes.Buffer{})
	if !errors.Is(err, vm.ErrStepLimit) {
		t.Errorf("error = %v, want %v", err, vm.ErrStepLimit)
	}
}
