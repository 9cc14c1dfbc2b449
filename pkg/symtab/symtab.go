// Package symtab implements scopes, their memory allocators and the
// bindings code generation uses to address storage.
package symtab

import (
	"fmt"

	"github.com/xplshn/tanc/pkg/asm"
	"github.com/xplshn/tanc/pkg/runtime"
	"github.com/xplshn/tanc/pkg/types"
)

type Location int

const (
	Global Location = iota // offset into $global-memory-block
	Frame                  // offset from the frame pointer
)

// Binding is a declared name with its storage recipe.
type Binding struct {
	Name     string
	Type     types.Type
	Mutable  bool
	Location Location
	Offset   int

	frame *frame
	Next  *Binding
}

// GenerateAddress emits the code that leaves the binding's address on the
// operand stack.
func (b *Binding) GenerateAddress() *asm.Fragment {
	frag := asm.NewAddress()
	switch b.Location {
	case Global:
		frag.PushD(runtime.GlobalMemoryBlock)
	case Frame:
		frag.PushD(runtime.FramePointer).Add(asm.LoadI)
	}
	frag.PushI(int64(b.Offset)).Add(asm.Add).Comment(b.Name)
	return frag
}

func (b *Binding) String() string {
	base := runtime.GlobalMemoryBlock
	if b.Location == Frame {
		base = runtime.FramePointer
	}
	return fmt.Sprintf("%s %s @ %s%+d", b.Name, b.Type, base, b.Offset)
}

// frame identifies the activation record a scope allocates into.
type frame struct{ depth int }

type Scope struct {
	Symbols *Binding
	Parent  *Scope

	alloc allocator
	frame *frame
}

// NewProgramScope returns the outermost scope, backed by the global block.
func NewProgramScope() *Scope {
	return &Scope{alloc: &positiveAllocator{}, frame: &frame{}}
}

// NewParameterScope opens the parameter list of a function defined inside s.
// Call CloseParameters once every parameter is declared.
func (s *Scope) NewParameterScope() *Scope {
	return &Scope{Parent: s, alloc: &parameterAllocator{}, frame: &frame{depth: s.frame.depth + 1}}
}

// NewProcedureScope opens the body of a function. The first 8 bytes below
// the frame pointer hold the return address and the dynamic link.
func (s *Scope) NewProcedureScope() *Scope {
	return &Scope{Parent: s, alloc: newNegativeAllocator(8), frame: s.frame}
}

// Enter opens a nested block sharing s's allocator. Storage claimed inside
// is released by Leave, though the high-water mark remains.
func (s *Scope) Enter() *Scope {
	s.alloc.save()
	return &Scope{Parent: s, alloc: s.alloc, frame: s.frame}
}

func (s *Scope) Leave() *Scope {
	s.alloc.restore()
	return s.Parent
}

func (s *Scope) AllocatedSize() int { return s.alloc.maxAllocated() }

// Declare allocates storage for name in s.
func (s *Scope) Declare(name string, typ types.Type, mutable bool) (*Binding, error) {
	if existing := s.lookupLocal(name); existing != nil {
		return existing, fmt.Errorf("identifier %q already defined in this scope", name)
	}
	loc := Global
	if _, ok := s.alloc.(*positiveAllocator); !ok {
		loc = Frame
	}
	b := &Binding{
		Name: name, Type: typ, Mutable: mutable, Location: loc,
		Offset: s.alloc.allocate(typ.Size()), frame: s.frame, Next: s.Symbols,
	}
	if pa, ok := s.alloc.(*parameterAllocator); ok {
		pa.bindings = append(pa.bindings, b)
	}
	s.Symbols = b
	return b, nil
}

// CloseParameters fixes parameter offsets so the first argument sits
// highest above the frame pointer, matching the order callers push them.
func (s *Scope) CloseParameters() {
	pa, ok := s.alloc.(*parameterAllocator)
	if !ok {
		panic("symtab: CloseParameters on a non-parameter scope")
	}
	prefix := 0
	for _, b := range pa.bindings {
		size := b.Type.Size()
		b.Offset = pa.used - (prefix + size)
		prefix += size
	}
}

func (s *Scope) lookupLocal(name string) *Binding {
	for b := s.Symbols; b != nil; b = b.Next {
		if b.Name == name {
			return b
		}
	}
	return nil
}

func (s *Scope) Lookup(name string) *Binding {
	for sc := s; sc != nil; sc = sc.Parent {
		if b := sc.lookupLocal(name); b != nil {
			return b
		}
	}
	return nil
}

// IsCapture reports whether b lives in the frame of an enclosing function
// rather than the one s allocates into.
func (s *Scope) IsCapture(b *Binding) bool {
	return b.Location == Frame && b.frame != s.frame
}

type allocator interface {
	allocate(size int) int
	save()
	restore()
	maxAllocated() int
}

type positiveAllocator struct {
	used, max int
	saved     []int
}

func (a *positiveAllocator) allocate(size int) int {
	offset := a.used
	a.used += size
	a.max = max(a.max, a.used)
	return offset
}

func (a *positiveAllocator) save() { a.saved = append(a.saved, a.used) }

func (a *positiveAllocator) restore() {
	n := len(a.saved) - 1
	a.used, a.saved = a.saved[n], a.saved[:n]
}

func (a *positiveAllocator) maxAllocated() int { return a.max }

// negativeAllocator hands out offsets below the frame pointer.
type negativeAllocator struct{ positiveAllocator }

func newNegativeAllocator(reserved int) *negativeAllocator {
	a := &negativeAllocator{}
	a.positiveAllocator.allocate(reserved)
	return a
}

func (a *negativeAllocator) allocate(size int) int {
	a.positiveAllocator.allocate(size)
	return -a.used
}

type parameterAllocator struct {
	positiveAllocator
	bindings []*Binding
}
