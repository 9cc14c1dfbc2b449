// Package compiler strings the stages together: source text to checked
// tree, tree to program fragment, fragment to a run on the emulator.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/xplshn/tanc/pkg/asm"
	"github.com/xplshn/tanc/pkg/ast"
	"github.com/xplshn/tanc/pkg/codegen"
	"github.com/xplshn/tanc/pkg/config"
	"github.com/xplshn/tanc/pkg/lexer"
	"github.com/xplshn/tanc/pkg/parser"
	"github.com/xplshn/tanc/pkg/promotion"
	"github.com/xplshn/tanc/pkg/signatures"
	"github.com/xplshn/tanc/pkg/typeChecker"
	"github.com/xplshn/tanc/pkg/util"
	"github.com/xplshn/tanc/pkg/vm"
)

// ErrCompile is returned when any stage reported an error. The diagnostics
// themselves have already been written by the reporter.
var ErrCompile = errors.New("compilation failed")

// Unit is one compiled source file.
type Unit struct {
	Name     string
	Tree     *ast.Node
	Program  *asm.Fragment
	Reporter *util.Reporter
}

type Compiler struct {
	cfg *config.Config

	// Diagnostics receives errors and warnings; nil discards them.
	Diagnostics io.Writer
	// Progress receives one line per stage; nil keeps quiet.
	Progress io.Writer
}

func New(cfg *config.Config) *Compiler {
	return &Compiler{cfg: cfg}
}

func (c *Compiler) progress(format string, args ...interface{}) {
	if c.Progress != nil {
		fmt.Fprintf(c.Progress, format+"\n", args...)
	}
}

// Compile runs every stage up to code generation. Generation is skipped if
// an earlier stage reported an error, in which case the returned unit still
// carries the tree and the reporter.
func (c *Compiler) Compile(name string, source []byte) (*Unit, error) {
	content := []rune(string(source))
	rep := util.NewReporter(c.Diagnostics, c.cfg, []util.SourceFileRecord{{Name: name, Content: content}})
	unit := &Unit{Name: name, Reporter: rep}

	c.progress("Tokenizing '%s'...", name)
	tokens := lexer.NewLexer(content, 0, rep).Tokenize()

	c.progress("Parsing tokens into AST...")
	unit.Tree = parser.NewParser(tokens, rep, c.cfg).Parse()
	if rep.HasErrors() {
		return unit, fmt.Errorf("%w: %d error(s)", ErrCompile, rep.ErrorCount())
	}

	c.progress("Type checking...")
	reg := signatures.Default()
	pending := typeChecker.NewTypeChecker(c.cfg, rep, reg).Check(unit.Tree)
	if rep.HasErrors() {
		return unit, fmt.Errorf("%w: %d error(s)", ErrCompile, rep.ErrorCount())
	}

	if len(pending) > 0 {
		c.progress("Inserting %d implicit conversion(s)...", len(pending))
		promotion.Apply(reg, pending)
	}

	c.progress("Generating code...")
	unit.Program = codegen.NewGenerator(c.cfg).Generate(unit.Tree)
	return unit, nil
}

// Run assembles the unit's program and executes it, writing program output
// to out. Runtime traps are ordinary program output; the error is only set
// for faults of the machine itself.
func (c *Compiler) Run(ctx context.Context, unit *Unit, out io.Writer) (vm.Stats, error) {
	if unit.Program == nil {
		return vm.Stats{}, fmt.Errorf("%s: nothing to run", unit.Name)
	}
	c.progress("Assembling %d instructions...", unit.Program.Len())
	prog, err := vm.Assemble(unit.Program)
	if err != nil {
		return vm.Stats{}, fmt.Errorf("assemble: %w", err)
	}
	m, err := vm.New(prog, c.cfg, out)
	if err != nil {
		return vm.Stats{}, fmt.Errorf("load: %w", err)
	}
	c.progress("Running...")
	err = m.Run(ctx)
	return m.Stats(), err
}

// CompileAndRun is Compile followed by Run.
func (c *Compiler) CompileAndRun(ctx context.Context, name string, source []byte, out io.Writer) (vm.Stats, error) {
	unit, err := c.Compile(name, source)
	if err != nil {
		return vm.Stats{}, err
	}
	return c.Run(ctx, unit, out)
}
