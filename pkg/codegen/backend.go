package codegen

import (
	"bytes"
	"fmt"

	"github.com/xplshn/tanc/pkg/asm"
	"github.com/xplshn/tanc/pkg/config"
)

// Backend is the interface that all output backends must implement.
type Backend interface {
	// Generate takes a program fragment and a configuration, and produces
	// the target representation as a byte buffer.
	Generate(prog *asm.Fragment, cfg *config.Config) (*bytes.Buffer, error)
}

// TextBackend renders the program as assembler listing, one instruction per
// line, the form accepted by the emulator's assembler.
type TextBackend struct{}

func NewTextBackend() *TextBackend { return &TextBackend{} }

func (b *TextBackend) Generate(prog *asm.Fragment, cfg *config.Config) (*bytes.Buffer, error) {
	if prog == nil || prog.Len() == 0 {
		return nil, fmt.Errorf("empty program")
	}
	var buf bytes.Buffer
	for _, in := range prog.Instrs {
		buf.WriteString(in.String())
		buf.WriteByte('\n')
	}
	return &buf, nil
}
