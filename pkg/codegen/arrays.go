package codegen

import (
	"github.com/xplshn/tanc/pkg/asm"
	"github.com/xplshn/tanc/pkg/ast"
	"github.com/xplshn/tanc/pkg/runtime"
	"github.com/xplshn/tanc/pkg/types"
)

// index leaves the address of array[index], trapping on a negative index
// or one past the end.
func (g *Generator) index(d *ast.IndexNode) *asm.Fragment {
	frag := asm.NewAddress()
	frag.Append(g.value(d.Array))
	frag.Append(g.value(d.Index))
	storeTemp(frag, runtime.IndexTemp2)
	storeTemp(frag, runtime.IndexTemp1)

	loadTemp(frag, runtime.IndexTemp2)
	frag.AddLabel(asm.JumpNeg, runtime.NegativeIndex)

	// length - 1 - index < 0 means out of bounds
	loadTemp(frag, runtime.IndexTemp1)
	frag.PushI(runtime.ArrayLengthOffset).Add(asm.Add).Add(asm.LoadI)
	frag.PushI(1).Add(asm.Subtract)
	loadTemp(frag, runtime.IndexTemp2)
	frag.Add(asm.Subtract)
	frag.AddLabel(asm.JumpNeg, runtime.OutOfBoundsIndex)

	loadTemp(frag, runtime.IndexTemp1)
	frag.PushI(runtime.ArrayHeaderSize).Add(asm.Add)
	loadTemp(frag, runtime.IndexTemp2)
	loadTemp(frag, runtime.IndexTemp1)
	frag.PushI(runtime.ArraySubtypeSizeOffset).Add(asm.Add).Add(asm.LoadI)
	frag.Add(asm.Multiply)
	frag.Add(asm.Add)
	return frag
}

// writeHeader fills in the header of the record whose base is on top of
// the stack, leaving the base in place. length is emitted by pushLength.
func writeHeader(frag *asm.Fragment, subtype types.Type, pushLength func(*asm.Fragment)) {
	flags := int64(0)
	if types.IsReference(subtype) {
		flags = runtime.ArrayReferenceFlag
	}
	headerField(frag, runtime.ArrayTagOffset, func(f *asm.Fragment) { f.PushI(runtime.ArrayTypeTag) })
	headerField(frag, runtime.ArrayFlagsOffset, func(f *asm.Fragment) { f.PushI(flags) })
	headerField(frag, runtime.ArraySubtypeSizeOffset, func(f *asm.Fragment) { f.PushI(int64(subtype.Size())) })
	headerField(frag, runtime.ArrayLengthOffset, pushLength)
}

// headerField stores one header word at base+offset, keeping the base.
func headerField(frag *asm.Fragment, offset int64, push func(*asm.Fragment)) {
	frag.Add(asm.Duplicate)
	if offset != 0 {
		frag.PushI(offset).Add(asm.Add)
	}
	push(frag)
	frag.Add(asm.StoreI)
}

// arrayAlloc emits new [T](n): a zeroed record of n elements.
func (g *Generator) arrayAlloc(d *ast.ArrayAllocNode) *asm.Fragment {
	size := d.ElemType.Size()
	frag := asm.NewValue()
	frag.Append(g.value(d.Length))
	frag.Add(asm.Duplicate).AddLabel(asm.JumpNeg, runtime.OutOfBoundsIndex)
	storeTemp(frag, runtime.ArrayTemp1)

	loadTemp(frag, runtime.ArrayTemp1)
	frag.PushI(int64(size)).Add(asm.Multiply)
	frag.PushI(runtime.ArrayHeaderSize).Add(asm.Add)
	frag.AddLabel(asm.Call, runtime.MemManagerAlloc)

	writeHeader(frag, d.ElemType, func(f *asm.Fragment) {
		loadTemp(f, runtime.ArrayTemp1)
	})
	return frag
}

// arrayLiteral allocates a record sized for the elements and stores each
// one in order.
func (g *Generator) arrayLiteral(node *ast.Node, d *ast.ArrayLiteralNode) *asm.Fragment {
	subtype := node.Typ.(*types.Array).Subtype
	size := subtype.Size()
	n := len(d.Elems)

	frag := asm.NewValue()
	frag.PushI(int64(runtime.ArrayHeaderSize + n*size))
	frag.AddLabel(asm.Call, runtime.MemManagerAlloc)
	writeHeader(frag, subtype, func(f *asm.Fragment) {
		f.PushI(int64(n))
	})
	for i, elem := range d.Elems {
		frag.Add(asm.Duplicate)
		frag.PushI(int64(runtime.ArrayHeaderSize + i*size)).Add(asm.Add)
		frag.Append(g.value(elem))
		frag.Add(storeOp(subtype))
	}
	return frag
}
