// Package runtime builds the fixed parts of every program image: the entry
// jump, print formats, runtime error dispatch, scratch cells, the call stack
// and the heap allocator.
package runtime

import "github.com/xplshn/tanc/pkg/asm"

const generalErrorFormat = "$errors-general-message"

// Trap is a runtime error entry point and the message it reports.
type Trap struct {
	Label   string
	Message string
}

// Traps lists the runtime errors in the order their blocks are emitted.
var Traps = []Trap{
	{IntDivideByZero, IntDivideByZeroMessage},
	{FloatDivideByZero, FloatDivideByZeroMessage},
	{NegativeIndex, NegativeIndexMessage},
	{OutOfBoundsIndex, OutOfBoundsIndexMessage},
	{FunctionRunoff, FunctionRunoffMessage},
	{HeapExhausted, HeapExhaustedMessage},
}

var printFormats = []struct{ label, format string }{
	{IntegerPrintFormat, "%d"},
	{FloatPrintFormat, "%f"},
	{BooleanPrintFormat, "%s"},
	{CharacterPrintFormat, "%c"},
	{StringPrintFormat, "%s"},
	{FunctionPrintFormat, "<function>"},
	{NewlinePrintFormat, "\n"},
	{TabPrintFormat, "\t"},
	{SpacePrintFormat, " "},
	{OpenPrintFormat, "["},
	{ClosePrintFormat, "]"},
	{SeparatorPrintFormat, ", "},
	{BooleanTrueString, "true"},
	{BooleanFalseString, "false"},
}

var scratchCells = []string{
	ArrayTemp1, ArrayTemp2,
	PrintTemp1, PrintTemp2,
	IndexTemp1, IndexTemp2,
	FuncReturnAddrTemp,
}

// Environment is the code that runs right after initialization: it jumps
// over its own data and error blocks into $$main.
func Environment() *asm.Fragment {
	frag := asm.NewVoid()
	frag.Jump(MainLabel)
	frag.AddLabel(asm.DLabel, EatLocationZero).AddInt(asm.DataZ, 8)
	frag.AddLabel(asm.DLabel, StackPointer).AddInt(asm.DataI, 0)
	frag.AddLabel(asm.DLabel, FramePointer).AddInt(asm.DataI, 0)

	for _, f := range printFormats {
		frag.AddLabel(asm.DLabel, f.label).AddString(asm.DataS, f.format)
	}
	for _, cell := range scratchCells {
		frag.AddLabel(asm.DLabel, cell).AddInt(asm.DataI, 0)
	}

	frag.Append(errorBlocks())
	return frag
}

// errorBlocks emits the shared error printer and one entry per trap. Each
// entry pushes its message and jumps to the shared block, which prints it
// and halts.
func errorBlocks() *asm.Fragment {
	frag := asm.NewVoid()
	frag.AddLabel(asm.DLabel, generalErrorFormat).AddString(asm.DataS, "Runtime error: %s\n")
	frag.Label(GeneralRuntimeError)
	frag.PushD(generalErrorFormat)
	frag.Add(asm.Printf)
	frag.Add(asm.Halt)

	for _, trap := range Traps {
		message := messageLabel(trap.Label)
		frag.AddLabel(asm.DLabel, message).AddString(asm.DataS, trap.Message)
		frag.Label(trap.Label)
		frag.PushD(message)
		frag.Jump(GeneralRuntimeError)
	}
	return frag
}

// messageLabel derives "$errors-x" from a trap label "$$x".
func messageLabel(trap string) string {
	return "$errors-" + trap[2:]
}
