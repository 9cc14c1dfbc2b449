package codegen

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/tanc/pkg/asm"
	"github.com/xplshn/tanc/pkg/config"
	"github.com/xplshn/tanc/pkg/lexer"
	"github.com/xplshn/tanc/pkg/parser"
	"github.com/xplshn/tanc/pkg/promotion"
	"github.com/xplshn/tanc/pkg/runtime"
	"github.com/xplshn/tanc/pkg/signatures"
	"github.com/xplshn/tanc/pkg/typeChecker"
	"github.com/xplshn/tanc/pkg/types"
	"github.com/xplshn/tanc/pkg/util"
)

func generate(t *testing.T, cfg *config.Config, src string) *asm.Fragment {
	t.Helper()
	if cfg == nil {
		cfg = config.NewConfig()
	}
	rep := util.NewReporter(nil, cfg, nil)
	root := parser.NewParser(lexer.NewLexer([]rune(src), 0, rep).Tokenize(), rep, cfg).Parse()
	reg := signatures.Default()
	pending := typeChecker.NewTypeChecker(cfg, rep, reg).Check(root)
	if rep.HasErrors() {
		t.Fatalf("compile errors: %v", rep.Messages())
	}
	promotion.Apply(reg, pending)
	return NewGenerator(cfg).Generate(root)
}

// lines renders instrs without indentation or comments.
func lines(instrs []asm.Instruction) []string {
	out := make([]string, len(instrs))
	for i, in := range instrs {
		in.Comment = ""
		out[i] = strings.TrimSpace(in.String())
	}
	return out
}

// mainBody returns the instructions between $$main and the first Halt after
// it, skipping the function-address stores.
func mainBody(t *testing.T, prog *asm.Fragment) []string {
	t.Helper()
	all := lines(prog.Instrs)
	start := -1
	for i, l := range all {
		if l == "Label "+runtime.MainLabel {
			start = i + 1
			break
		}
	}
	if start < 0 {
		t.Fatalf("no %s label", runtime.MainLabel)
	}
	for i := start; i < len(all); i++ {
		if all[i] == "Halt" {
			return all[start:i]
		}
	}
	t.Fatalf("no Halt after %s", runtime.MainLabel)
	return nil
}

func indexOf(all []string, line string) int { return indexFrom(all, line, 0) }

func indexFrom(all []string, line string, from int) int {
	for i := from; i < len(all); i++ {
		if all[i] == line {
			return i
		}
	}
	return -1
}

func TestStorageOps(t *testing.T) {
	tests := []struct {
		typ         types.Type
		load, store asm.Opcode
	}{
		{types.Boolean, asm.LoadC, asm.StoreC},
		{types.Character, asm.LoadC, asm.StoreC},
		{types.Integer, asm.LoadI, asm.StoreI},
		{types.String, asm.LoadI, asm.StoreI},
		{types.Float, asm.LoadF, asm.StoreF},
		{types.NewArray(types.Float), asm.LoadI, asm.StoreI},
		{types.NewFunction(types.Void), asm.LoadI, asm.StoreI},
	}
	for _, tt := range tests {
		if got := loadOp(tt.typ); got != tt.load {
			t.Errorf("loadOp(%s) = %s, want %s", tt.typ, got, tt.load)
		}
		if got := storeOp(tt.typ); got != tt.store {
			t.Errorf("storeOp(%s) = %s, want %s", tt.typ, got, tt.store)
		}
	}
}

func TestMainBody(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "global declaration",
			src:  "main { var x := 3; }",
			want: []string{
				"PushD $global-memory-block", "PushI 0", "Add",
				"PushI 3",
				"StoreI",
			},
		},
		{
			name: "guarded integer division",
			src:  "main { print 5 / 2; }",
			want: []string{
				"PushI 5", "PushI 2",
				"Duplicate", "JumpFalse $$i-divide-by-zero", "Divide",
				"PushD $print-format-integer", "Printf",
			},
		},
		{
			name: "guarded float division",
			src:  "main { print 1.5 / 0.5; }",
			want: []string{
				"PushF 1.5", "PushF 0.5",
				"Duplicate", "JumpFZero $$f-divide-by-zero", "FDivide",
				"PushD $print-format-float", "Printf",
			},
		},
		{
			name: "comparison printed as boolean",
			src:  "main { print 1 < 2; }",
			want: []string{
				"PushI 1", "PushI 2", "Subtract",
				"JumpNeg -compare-1-true", "Jump -compare-1-false",
				"Label -compare-1-true", "PushI 1", "Jump -compare-1-join",
				"Label -compare-1-false", "PushI 0",
				"Label -compare-1-join",
				"JumpTrue -print-boolean-2-true",
				"PushD $boolean-false-string", "Jump -print-boolean-2-join",
				"Label -print-boolean-2-true", "PushD $boolean-true-string",
				"Label -print-boolean-2-join", "PushD $print-format-boolean", "Printf",
			},
		},
		{
			name: "inserted promotion",
			src:  "main { print 1 + 2.5; }",
			want: []string{
				"PushI 1", "ConvertF", "PushF 2.5", "FAdd",
				"PushD $print-format-float", "Printf",
			},
		},
		{
			name: "casts that change nothing emit nothing",
			src:  "main { print <int>('a'); }",
			want: []string{"PushI 97", "PushD $print-format-integer", "Printf"},
		},
		{
			name: "separators",
			src:  `main { print 1 \s \t \n; }`,
			want: []string{
				"PushI 1", "PushD $print-format-integer", "Printf",
				"PushD $print-format-space", "Printf",
				"PushD $print-format-tab", "Printf",
				"PushD $print-format-newline", "Printf",
			},
		},
		{
			name: "length",
			src:  "main { print length [1]; }",
			want: []string{
				"PushI 20", "Call $$mem-manager-allocate",
				"Duplicate", "PushI 7", "StoreI",
				"Duplicate", "PushI 4", "Add", "PushI 0", "StoreI",
				"Duplicate", "PushI 8", "Add", "PushI 4", "StoreI",
				"Duplicate", "PushI 12", "Add", "PushI 1", "StoreI",
				"Duplicate", "PushI 16", "Add", "PushI 1", "StoreI",
				"PushI 12", "Add", "LoadI",
				"PushD $print-format-integer", "Printf",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mainBody(t, generate(t, nil, tt.src))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("main body mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestProgramLayout(t *testing.T) {
	prog := generate(t, nil, `
subr int twice(int x) { return x * 2; }
main { print twice(4); }`)
	all := lines(prog.Instrs)

	order := []string{
		"PushD " + runtime.HeapNextFree,
		"Jump " + runtime.MainLabel,
		"Label " + runtime.GeneralRuntimeError,
		"DLabel " + runtime.GlobalMemoryBlock,
		"Label " + runtime.MainLabel,
		"Halt",
		"Label -function-1-start",
		"Label -function-1-exit",
		"Label " + runtime.MemManagerAlloc,
		"DLabel " + runtime.HeapMemoryStart,
	}
	last := -1
	for _, want := range order {
		i := indexFrom(all, want, last+1)
		if i < 0 {
			t.Fatalf("%q missing after %q", want, all[max(last, 0)])
		}
		last = i
	}

	var dlabels []string
	for _, in := range prog.Instrs {
		if in.Op == asm.DLabel {
			dlabels = append(dlabels, in.Text)
		}
	}
	if got := dlabels[len(dlabels)-1]; got != runtime.HeapMemoryStart {
		t.Errorf("last data label = %s, want %s", got, runtime.HeapMemoryStart)
	}
}

func TestFunctionAddressStored(t *testing.T) {
	prog := generate(t, nil, `
subr void f() { return; }
main { call f(); }`)
	all := lines(prog.Instrs)
	i := indexOf(all, "Label "+runtime.MainLabel)
	want := []string{
		"PushD $global-memory-block", "PushI 0", "Add",
		"PushD -function-1-start", "StoreI",
	}
	if diff := cmp.Diff(want, all[i+1:i+1+len(want)]); diff != "" {
		t.Errorf("function address store mismatch (-want +got):\n%s", diff)
	}
}

func TestFunctionRunoff(t *testing.T) {
	src := `
subr void f() { print 1; }
main { call f(); }`
	runoff := "Jump " + runtime.FunctionRunoff

	all := lines(generate(t, nil, src).Instrs)
	exit := indexOf(all, "Label -function-1-exit")
	if exit < 1 || all[exit-1] != runoff {
		t.Errorf("default: instruction before exit = %q, want %q", all[exit-1], runoff)
	}

	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatImplicitVoidReturn, true)
	all = lines(generate(t, cfg, src).Instrs)
	exit = indexOf(all, "Label -function-1-exit")
	if all[exit-1] == runoff {
		t.Errorf("implicit void return: body still jumps to %s", runtime.FunctionRunoff)
	}
}

func TestPrologueChecksStack(t *testing.T) {
	all := lines(generate(t, nil, "subr int f(int n) { return n; } main { print f(1); }").Instrs)
	start := indexOf(all, "Label -function-1-start")
	exit := indexFrom(all, "Label -function-1-exit", start)
	if start < 0 || exit < 0 {
		t.Fatalf("function labels missing:\n%s", strings.Join(all, "\n"))
	}
	want := []string{
		"PushD $stack-pointer", "LoadI",
		"PushD $heap-next-free", "LoadI",
		"Subtract", "JumpNeg $$heap-exhausted",
	}
	body := all[start:exit]
	i := indexOf(body, "JumpNeg $$heap-exhausted")
	if i < len(want)-1 {
		t.Fatalf("no stack check in function body:\n%s", strings.Join(body, "\n"))
	}
	if diff := cmp.Diff(want, body[i-len(want)+1:i+1]); diff != "" {
		t.Errorf("stack check mismatch (-want +got):\n%s", diff)
	}
}

func TestExitHandshake(t *testing.T) {
	prog := generate(t, nil, `
subr float f(int a, int b, int c) { return 1.0; }
main { print f(1, 2, 3); }`)
	all := lines(prog.Instrs)
	exit := indexOf(all, "Label -function-1-exit")
	want := []string{
		"Label -function-1-exit",
		"PushD $frame-pointer", "LoadI", "PushI 8", "Subtract", "LoadI",
		"PushD $frame-pointer",
		"PushD $frame-pointer", "LoadI", "PushI 4", "Subtract", "LoadI",
		"StoreI",
		// frame 8 + args 12 - float 8
		"PushD $stack-pointer", "PushD $stack-pointer", "LoadI", "PushI 12", "Add", "StoreI",
		"PushD $func-return-addr-temp", "Exchange", "StoreI",
		"PushD $stack-pointer", "LoadI", "Exchange", "StoreF",
		"PushD $func-return-addr-temp", "LoadI", "Return",
	}
	if diff := cmp.Diff(want, all[exit:exit+len(want)]); diff != "" {
		t.Errorf("exit handshake mismatch (-want +got):\n%s", diff)
	}
}

func TestLambdaBodiesAreFlushed(t *testing.T) {
	prog := generate(t, nil, `
main {
	var f := subr int (int x) { return x + 1; };
	var g := subr void () { print "hi"; };
	print f(1);
	call g();
}`)
	all := lines(prog.Instrs)
	halt := indexFrom(all, "Halt", indexOf(all, "Label "+runtime.MainLabel))
	for _, label := range []string{"Label -function-1-start", "Label -function-2-start"} {
		if i := indexOf(all, label); i < halt {
			t.Errorf("%q at %d, want after Halt at %d", label, i, halt)
		}
	}
}

func TestStringDedup(t *testing.T) {
	src := `main { print "a" \ "b" \ "a"; }`
	count := func(prog *asm.Fragment) int {
		n := 0
		for _, in := range prog.Instrs {
			if in.Op == asm.DLabel && strings.HasPrefix(in.Text, "-string-") {
				n++
			}
		}
		return n
	}

	if got := count(generate(t, nil, src)); got != 2 {
		t.Errorf("with dedup: %d string records, want 2", got)
	}
	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatStringDedup, false)
	if got := count(generate(t, cfg, src)); got != 3 {
		t.Errorf("without dedup: %d string records, want 3", got)
	}
}

func TestStringTable(t *testing.T) {
	labels := asm.NewLabelContext()
	for _, tt := range []struct {
		dedup bool
		want  int
	}{{true, 2}, {false, 3}} {
		st := newStringTable(tt.dedup)
		first := st.label(labels, "x")
		st.label(labels, "y")
		again := st.label(labels, "x")
		if got := st.Len(); got != tt.want {
			t.Errorf("dedup=%v: Len() = %d, want %d", tt.dedup, got, tt.want)
		}
		if (first == again) != tt.dedup {
			t.Errorf("dedup=%v: labels for repeated text %q and %q", tt.dedup, first, again)
		}
	}
}

func TestArrayHeader(t *testing.T) {
	got := mainBody(t, generate(t, nil, "main { var a := [1.5]; }"))
	want := []string{
		"Duplicate", "PushI 7", "StoreI",
		"Duplicate", "PushI 4", "Add", "PushI 0", "StoreI",
		"Duplicate", "PushI 8", "Add", "PushI 8", "StoreI",
		"Duplicate", "PushI 12", "Add", "PushI 1", "StoreI",
	}
	start := indexOf(got, "Call "+runtime.MemManagerAlloc)
	if start < 0 || start+1+len(want) > len(got) {
		t.Fatalf("no allocation call in main:\n%s", strings.Join(got, "\n"))
	}
	if diff := cmp.Diff(want, got[start+1:start+1+len(want)]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
}

func TestTextBackend(t *testing.T) {
	prog := generate(t, nil, "main { print 1; }")
	buf, err := NewTextBackend().Generate(prog, config.NewConfig())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if diff := cmp.Diff(prog.String(), buf.String()); diff != "" {
		t.Errorf("listing mismatch (-want +got):\n%s", diff)
	}
	if _, err := NewTextBackend().Generate(asm.NewVoid(), config.NewConfig()); err == nil {
		t.Error("expected an error for an empty program")
	}
}
