package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/xplshn/tanc/pkg/ast"
	"github.com/xplshn/tanc/pkg/cli"
	"github.com/xplshn/tanc/pkg/codegen"
	"github.com/xplshn/tanc/pkg/compiler"
	"github.com/xplshn/tanc/pkg/config"
	"github.com/xplshn/tanc/pkg/util"
)

func main() {
	app := cli.NewApp("tanc")
	app.Synopsis = "[options] <input.tan>"
	app.Description = "A compiler for a small imperative language with arrays and first-class subroutines, targeting an abstract stack machine."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/tanc>"
	app.Since = 2025

	var (
		outFile   string
		run       bool
		dumpAsm   bool
		dumpAST   bool
		verbose   bool
		stats     bool
		memory    int64
		stepLimit int64
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "", "Write the assembly listing to <file>.", "file")
	fs.Bool(&run, "run", "r", false, "Execute the program on the emulator.")
	fs.Bool(&dumpAsm, "dump-asm", "d", false, "Print the assembly listing and exit.")
	fs.Bool(&dumpAST, "dump-ast", "", false, "Print the checked syntax tree and exit.")
	fs.Bool(&verbose, "verbose", "v", false, "Report each compilation stage on stderr.")
	fs.Bool(&stats, "stats", "", false, "Print emulator statistics after a run.")
	fs.Int(&memory, "memory", "", config.DefaultMemorySize, "Emulator memory size (accepts k/m/g suffixes).", "size")
	fs.Int(&stepLimit, "step-limit", "", config.DefaultStepLimit, "Stop the emulator after <n> instructions (0 for no limit).", "n")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(inputFiles []string) error {
		cfg.ApplyFlagGroups(warningFlags, featureFlags)
		if memory <= 0 {
			util.Fatal("--memory must be positive, got %d", memory)
		}
		cfg.MemorySize = int(memory)
		cfg.StepLimit = stepLimit

		if len(inputFiles) != 1 {
			util.Fatal("expected exactly one input file, got %d", len(inputFiles))
		}
		path := inputFiles[0]
		source, err := os.ReadFile(path)
		if err != nil {
			util.Fatal("could not read file '%s': %v", path, err)
		}

		c := compiler.New(cfg)
		c.Diagnostics = os.Stderr
		if verbose {
			c.Progress = os.Stderr
		}

		unit, err := c.Compile(path, source)
		if err != nil {
			if errors.Is(err, compiler.ErrCompile) {
				fmt.Fprintf(os.Stderr, "tanc: %d error(s) in '%s'\n", unit.Reporter.ErrorCount(), path)
				os.Exit(1)
			}
			util.Fatal("%v", err)
		}

		if dumpAST {
			ast.Fprint(os.Stdout, unit.Tree)
			return nil
		}

		if dumpAsm || outFile != "" {
			listing, err := codegen.NewTextBackend().Generate(unit.Program, cfg)
			if err != nil {
				util.Fatal("assembly listing failed: %v", err)
			}
			if dumpAsm {
				fmt.Print(listing.String())
				return nil
			}
			if err := os.WriteFile(outFile, listing.Bytes(), 0o644); err != nil {
				util.Fatal("could not write '%s': %v", outFile, err)
			}
			if verbose {
				fmt.Fprintf(os.Stderr, "Wrote %s of assembly to '%s'\n", humanize.IBytes(uint64(listing.Len())), outFile)
			}
		}

		if run || outFile == "" {
			st, err := c.Run(context.Background(), unit, os.Stdout)
			if stats {
				fmt.Fprintf(os.Stderr, "tanc: %s\n", st)
			}
			if err != nil {
				util.Fatal("emulator: %v", err)
			}
		}
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
