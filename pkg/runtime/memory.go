package runtime

import "github.com/xplshn/tanc/pkg/asm"

const (
	memManagerCursor   = "$mem-manager-cursor"
	memManagerZeroLoop = "$$mem-manager-zero-loop"
	memManagerZeroDone = "$$mem-manager-zero-done"
)

// Array record header. Elements follow the header at
// base+ArrayHeaderSize+i*subtypeSize.
const (
	ArrayTypeTag       = 7
	ArrayReferenceFlag = 4

	ArrayTagOffset         = 0
	ArrayFlagsOffset       = 4
	ArraySubtypeSizeOffset = 8
	ArrayLengthOffset      = 12
	ArrayHeaderSize        = 16
)

// String record: tag, status and length words followed by the bytes and a
// terminating NUL.
const (
	StringTypeTag    = 3
	StringStatus     = 9
	StringHeaderSize = 12
)

// StringRecord emits a string constant under label.
func StringRecord(label, text string) *asm.Fragment {
	frag := asm.NewVoid()
	frag.AddLabel(asm.DLabel, label)
	frag.AddInt(asm.DataI, StringTypeTag)
	frag.AddInt(asm.DataI, StringStatus)
	frag.AddInt(asm.DataI, int64(len(text)))
	frag.AddString(asm.DataS, text)
	return frag
}

// MemoryManagerInit points the free pointer at the start of the heap.
func MemoryManagerInit() *asm.Fragment {
	frag := asm.NewVoid()
	frag.PushD(HeapNextFree)
	frag.PushD(HeapMemoryStart)
	frag.Add(asm.StoreI)
	return frag
}

// CallStackInit starts both the stack and frame pointers at the top of
// memory; the stack grows downward.
func CallStackInit() *asm.Fragment {
	frag := asm.NewVoid()
	frag.PushD(StackPointer).Add(asm.Memtop).Add(asm.StoreI)
	frag.PushD(FramePointer).Add(asm.Memtop).Add(asm.StoreI)
	return frag
}

// MemoryManager emits the allocator routine and, last of all data, the
// heap start marker.
//
// Called with [... size] it returns [... base]: the free pointer is bumped
// by size, trapping if the heap would run into the call stack. The block is
// zeroed since the heap may grow into bytes the stack used earlier.
func MemoryManager() *asm.Fragment {
	frag := asm.NewVoid()
	frag.AddLabel(asm.DLabel, HeapNextFree).AddInt(asm.DataI, 0)
	frag.AddLabel(asm.DLabel, memManagerCursor).AddInt(asm.DataI, 0)

	frag.Label(MemManagerAlloc)
	frag.Add(asm.Exchange)                     // [ret size]
	frag.PushD(HeapNextFree).Add(asm.LoadI)    // [ret size base]
	frag.Add(asm.Exchange)                     // [ret base size]
	frag.PushD(HeapNextFree).Add(asm.LoadI)    // [ret base size base]
	frag.Add(asm.Add)                          // [ret base next]
	frag.Add(asm.Duplicate)                    // [ret base next next]
	frag.PushD(StackPointer).Add(asm.LoadI)    // [ret base next next sp]
	frag.Add(asm.Subtract)                     // [ret base next next-sp]
	frag.AddLabel(asm.JumpPos, HeapExhausted)  // [ret base next]
	frag.PushD(HeapNextFree).Add(asm.Exchange) // [ret base &free next]
	frag.Add(asm.StoreI)                       // [ret base]

	frag.Add(asm.Duplicate)
	frag.PushD(memManagerCursor).Add(asm.Exchange).Add(asm.StoreI)
	frag.Label(memManagerZeroLoop)
	frag.PushD(memManagerCursor).Add(asm.LoadI)
	frag.PushD(HeapNextFree).Add(asm.LoadI)
	frag.Add(asm.Subtract)
	frag.AddLabel(asm.JumpFalse, memManagerZeroDone)
	frag.PushD(memManagerCursor).Add(asm.LoadI).PushI(0).Add(asm.StoreC)
	frag.PushD(memManagerCursor)
	frag.PushD(memManagerCursor).Add(asm.LoadI).PushI(1).Add(asm.Add)
	frag.Add(asm.StoreI)
	frag.Jump(memManagerZeroLoop)
	frag.Label(memManagerZeroDone)

	frag.Add(asm.Exchange) // [base ret]
	frag.Add(asm.Return)

	frag.AddLabel(asm.DLabel, HeapMemoryStart)
	return frag
}
