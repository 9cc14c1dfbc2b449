package util

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/xplshn/tanc/pkg/config"
	"github.com/xplshn/tanc/pkg/token"
)

// SourceFileRecord tracks the name and content of a single source file.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

type Diagnostic struct {
	Severity Severity
	Tok      token.Token
	Message  string
	Warning  config.Warning
}

// Reporter formats diagnostics against the source files and counts errors.
// Analysis keeps going after an error; callers check HasErrors between
// stages.
type Reporter struct {
	Diagnostics []Diagnostic

	files  []SourceFileRecord
	out    io.Writer
	color  bool
	cfg    *config.Config
	errors int
}

func NewReporter(out io.Writer, cfg *config.Config, files []SourceFileRecord) *Reporter {
	return &Reporter{out: out, cfg: cfg, files: files, color: IsColorTerminal(out)}
}

// IsColorTerminal reports whether w is a terminal, native or Cygwin/MSYS.
func IsColorTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd())) || isatty.IsCygwinTerminal(f.Fd())
}

func (r *Reporter) HasErrors() bool { return r.errors > 0 }
func (r *Reporter) ErrorCount() int { return r.errors }

// Error records an error at tok and prints it with a source excerpt.
func (r *Reporter) Error(tok token.Token, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.errors++
	r.Diagnostics = append(r.Diagnostics, Diagnostic{Severity: SeverityError, Tok: tok, Message: msg})
	r.emit(tok, r.paint("31", "error:"), msg)
}

// Warn reports a warning if wt is enabled.
func (r *Reporter) Warn(wt config.Warning, tok token.Token, format string, args ...interface{}) {
	if r.cfg != nil && !r.cfg.IsWarningEnabled(wt) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	r.Diagnostics = append(r.Diagnostics, Diagnostic{Severity: SeverityWarning, Tok: tok, Message: msg, Warning: wt})
	if r.cfg != nil {
		msg += fmt.Sprintf(" [-W%s]", r.cfg.Warnings[wt].Name)
	}
	r.emit(tok, r.paint("33", "warning:"), msg)
}

// Messages returns the text of every recorded error.
func (r *Reporter) Messages() []string {
	var out []string
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			out = append(out, d.Message)
		}
	}
	return out
}

func (r *Reporter) paint(code, s string) string {
	if !r.color {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

func (r *Reporter) emit(tok token.Token, label, msg string) {
	if r.out == nil {
		return
	}
	filename, line, col := r.findFileAndLine(tok)
	fmt.Fprintf(r.out, "%s:%d:%d: %s %s\n", filename, line, col, label, msg)
	r.printErrorLine(tok)
}

// findFileAndLine converts a global token to a file-specific location
func (r *Reporter) findFileAndLine(tok token.Token) (filename string, line, col int) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(r.files) {
		return "unknown", tok.Line, tok.Column
	}
	return r.files[tok.FileIndex].Name, tok.Line, tok.Column
}

// printErrorLine prints the source line and a caret indicating the error position
func (r *Reporter) printErrorLine(tok token.Token) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(r.files) || tok.Line == 0 {
		return
	}
	content := r.files[tok.FileIndex].Content
	lineStart, lineNum := 0, tok.Line
	for i, ch := range content {
		if lineNum <= 1 {
			break
		}
		if ch == '\n' {
			lineNum--
			lineStart = i + 1
		}
	}
	lineEnd := len(content)
	for i := lineStart; i < len(content); i++ {
		if content[i] == '\n' {
			lineEnd = i
			break
		}
	}
	fmt.Fprintf(r.out, "  %s\n", string(content[lineStart:lineEnd]))

	caret := "^"
	if tok.Len > 1 {
		caret += strings.Repeat("~", tok.Len-1)
	}
	fmt.Fprintf(r.out, "  %s%s\n", strings.Repeat(" ", max(tok.Column-1, 0)), r.paint("32", caret))
}

// Fatal prints a driver-level error and exits the program
func Fatal(format string, args ...interface{}) {
	label := "error:"
	if IsColorTerminal(os.Stderr) {
		label = "\033[31merror:\033[0m"
	}
	fmt.Fprintf(os.Stderr, "tanc: %s ", label)
	fmt.Fprintf(os.Stderr, format, args...)
	fmt.Fprintln(os.Stderr)
	os.Exit(1)
}
