package codegen

import (
	"github.com/cespare/xxhash/v2"
	"github.com/xplshn/tanc/pkg/asm"
	"github.com/xplshn/tanc/pkg/runtime"
	"github.com/xplshn/tanc/pkg/types"
)

// loadOp is the fetch matching how values of t are stored.
func loadOp(t types.Type) asm.Opcode {
	switch t {
	case types.Boolean, types.Character:
		return asm.LoadC
	case types.Float:
		return asm.LoadF
	}
	return asm.LoadI
}

func storeOp(t types.Type) asm.Opcode {
	switch t {
	case types.Boolean, types.Character:
		return asm.StoreC
	case types.Float:
		return asm.StoreF
	}
	return asm.StoreI
}

// adjustStackPointer adds delta to $stack-pointer.
func adjustStackPointer(frag *asm.Fragment, delta int) {
	if delta == 0 {
		return
	}
	frag.PushD(runtime.StackPointer)
	frag.PushD(runtime.StackPointer).Add(asm.LoadI)
	frag.PushI(int64(delta)).Add(asm.Add)
	frag.Add(asm.StoreI)
}

// storeTemp pops the top of the stack into a scratch cell.
func storeTemp(frag *asm.Fragment, cell string) {
	frag.PushD(cell).Add(asm.Exchange).Add(asm.StoreI)
}

func loadTemp(frag *asm.Fragment, cell string) {
	frag.PushD(cell).Add(asm.LoadI)
}

type stringEntry struct {
	label string
	text  string
}

// stringTable emits string records. With deduplication on, equal texts
// share one record, found by the xxhash of the text.
type stringTable struct {
	dedup  bool
	byHash map[uint64][]stringEntry
	data   *asm.Fragment
}

func newStringTable(dedup bool) *stringTable {
	return &stringTable{dedup: dedup, byHash: make(map[uint64][]stringEntry), data: asm.NewVoid()}
}

func (t *stringTable) label(labels *asm.LabelContext, text string) string {
	h := xxhash.Sum64String(text)
	if t.dedup {
		for _, e := range t.byHash[h] {
			if e.text == text {
				return e.label
			}
		}
	}
	label := labels.NewLabeller("string").New("")
	t.byHash[h] = append(t.byHash[h], stringEntry{label: label, text: text})
	t.data.Append(runtime.StringRecord(label, text))
	return label
}

// Len is the number of records emitted.
func (t *stringTable) Len() int {
	n := 0
	for _, entries := range t.byHash {
		n += len(entries)
	}
	return n
}
