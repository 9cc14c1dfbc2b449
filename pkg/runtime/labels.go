package runtime

// Labels shared between the runtime image and generated code.
const (
	EatLocationZero = "$eat-location-zero"
	MainLabel       = "$$main"

	GlobalMemoryBlock = "$global-memory-block"
	StackPointer      = "$stack-pointer"
	FramePointer      = "$frame-pointer"
	HeapNextFree      = "$heap-next-free"
	HeapMemoryStart   = "$heap-memory-start"
	MemManagerAlloc   = "$$mem-manager-allocate"

	IntegerPrintFormat   = "$print-format-integer"
	FloatPrintFormat     = "$print-format-float"
	BooleanPrintFormat   = "$print-format-boolean"
	CharacterPrintFormat = "$print-format-character"
	StringPrintFormat    = "$print-format-string"
	FunctionPrintFormat  = "$print-format-function"
	NewlinePrintFormat   = "$print-format-newline"
	TabPrintFormat       = "$print-format-tab"
	SpacePrintFormat     = "$print-format-space"
	OpenPrintFormat      = "$print-format-open-bracket"
	ClosePrintFormat     = "$print-format-close-bracket"
	SeparatorPrintFormat = "$print-format-separator"
	BooleanTrueString    = "$boolean-true-string"
	BooleanFalseString   = "$boolean-false-string"

	GeneralRuntimeError = "$$general-runtime-error"
	IntDivideByZero     = "$$i-divide-by-zero"
	FloatDivideByZero   = "$$f-divide-by-zero"
	NegativeIndex       = "$$negative-index"
	OutOfBoundsIndex    = "$$out-of-bounds-index"
	FunctionRunoff      = "$$function-runoff"
	HeapExhausted       = "$$heap-exhausted"

	ArrayTemp1         = "$array-temp-1"
	ArrayTemp2         = "$array-temp-2"
	PrintTemp1         = "$print-temp-1"
	PrintTemp2         = "$print-temp-2"
	IndexTemp1         = "$index-temp-1"
	IndexTemp2         = "$index-temp-2"
	FuncReturnAddrTemp = "$func-return-addr-temp"
)

// Trap messages, printed through the general runtime error block.
const (
	IntDivideByZeroMessage   = "integer divide by zero"
	FloatDivideByZeroMessage = "float divide by zero"
	NegativeIndexMessage     = "negative index used for array"
	OutOfBoundsIndexMessage  = "index out of bounds"
	FunctionRunoffMessage    = "code run off the end of a function"
	HeapExhaustedMessage     = "heap exhausted"
)
