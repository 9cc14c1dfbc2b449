// Package promotion finds implicit widening conversions (char to int, char
// or int to float) that make an otherwise ill-typed node acceptable, and
// inserts the matching cast nodes once checking is over.
package promotion

import (
	"github.com/xplshn/tanc/pkg/ast"
	"github.com/xplshn/tanc/pkg/signatures"
	"github.com/xplshn/tanc/pkg/token"
	"github.com/xplshn/tanc/pkg/types"
)

// Pending is a recorded promotion: the node held in Slot gets wrapped in one
// cast per Chain entry, innermost first.
type Pending struct {
	Slot  **ast.Node
	Chain []types.Type
}

var (
	toInteger   = []types.Type{types.Integer}
	toFloat     = []types.Type{types.Float}
	charToFloat = []types.Type{types.Integer, types.Float}
)

type Resolver struct {
	reg     *signatures.Registry
	pending []Pending

	// OnPromote, when set, is called for every promotion recorded.
	OnPromote func(node *ast.Node, chain []types.Type)
}

func NewResolver(reg *signatures.Registry) *Resolver {
	return &Resolver{reg: reg}
}

// Pending returns the promotions recorded so far.
func (r *Resolver) Pending() []Pending { return r.pending }

func (r *Resolver) record(slot **ast.Node, chain []types.Type) {
	r.pending = append(r.pending, Pending{Slot: slot, Chain: chain})
	if r.OnPromote != nil {
		r.OnPromote(*slot, chain)
	}
}

// Operator resolves an operator or cast node whose operand types match no
// signature. Casts keep their type-literal operand as is. It returns the
// signature matched after promotion, or signatures.Null.
func (r *Resolver) Operator(node *ast.Node) *signatures.Signature {
	d := node.Data.(*ast.OperatorNode)
	first := 0
	if d.Op == token.Cast {
		first = 1
	}
	actuals := make([]types.Type, len(d.Operands))
	for i, operand := range d.Operands {
		actuals[i] = operand.Typ
	}

	match := func(ts []types.Type) bool {
		return !r.reg.Lookup(d.Op, ts).IsNull()
	}
	final, chains, ok := widen(actuals, first, match)
	if !ok {
		return signatures.Null
	}
	for i, chain := range chains {
		if chain != nil {
			r.record(&d.Operands[i], chain)
		}
	}
	return r.reg.Lookup(d.Op, final)
}

// Arguments resolves call arguments against a fixed parameter list.
func (r *Resolver) Arguments(node *ast.Node, params []types.Type) bool {
	d := node.Data.(*ast.FuncCallNode)
	if len(d.Args) != len(params) {
		return false
	}
	actuals := make([]types.Type, len(d.Args))
	for i, arg := range d.Args {
		actuals[i] = arg.Typ
	}

	match := func(ts []types.Type) bool {
		for i, p := range params {
			if !p.Equals(ts[i]) {
				return false
			}
		}
		return true
	}
	_, chains, ok := widen(actuals, 0, match)
	if !ok {
		return false
	}
	for i, chain := range chains {
		if chain != nil {
			r.record(&d.Args[i], chain)
		}
	}
	return true
}

// ArrayLiteral promotes mixed char, int and float elements to a common
// element type. Either every element ends up INTEGER (chars widened) or every
// element ends up FLOAT; a partial promotion is abandoned.
func (r *Resolver) ArrayLiteral(node *ast.Node) (types.Type, bool) {
	d := node.Data.(*ast.ArrayLiteralNode)

	chains := make([][]types.Type, len(d.Elems))
	all := true
	for i, elem := range d.Elems {
		switch elem.Typ {
		case types.Character:
			chains[i] = toInteger
		case types.Integer:
		default:
			all = false
		}
	}
	if all {
		r.recordAll(d.Elems, chains)
		return types.Integer, true
	}

	chains = make([][]types.Type, len(d.Elems))
	for i, elem := range d.Elems {
		switch elem.Typ {
		case types.Character:
			chains[i] = charToFloat
		case types.Integer:
			chains[i] = toFloat
		case types.Float:
		default:
			return types.Error, false
		}
	}
	r.recordAll(d.Elems, chains)
	return types.Float, true
}

func (r *Resolver) recordAll(elems []*ast.Node, chains [][]types.Type) {
	for i, chain := range chains {
		if chain != nil {
			r.record(&elems[i], chain)
		}
	}
}

// ArrayLength widens a CHARACTER length of new [T](n) to INTEGER.
func (r *Resolver) ArrayLength(node *ast.Node) bool {
	d := node.Data.(*ast.ArrayAllocNode)
	if d.Length.Typ != types.Character {
		return false
	}
	r.record(&d.Length, toInteger)
	return true
}

// widen runs the two promotion passes over actuals[first:]. The first pass
// retypes CHARACTER operands to INTEGER one at a time, keeping a retyping
// only when match then holds. The second does the same for CHARACTER and
// INTEGER operands going to FLOAT. It returns the promoted types and the
// cast chain for every operand that changed.
func widen(actuals []types.Type, first int, match func([]types.Type) bool) ([]types.Type, [][]types.Type, bool) {
	ts := append([]types.Type(nil), actuals...)
	chains := make([][]types.Type, len(ts))

	for i := first; i < len(ts); i++ {
		if ts[i] != types.Character {
			continue
		}
		ts[i] = types.Integer
		if match(ts) {
			chains[i] = toInteger
		} else {
			ts[i] = types.Character
		}
	}
	if match(ts) {
		return ts, chains, true
	}

	for i := first; i < len(ts); i++ {
		var chain []types.Type
		switch ts[i] {
		case types.Character:
			chain = charToFloat
		case types.Integer:
			chain = toFloat
		default:
			continue
		}
		was := ts[i]
		ts[i] = types.Float
		if match(ts) {
			chains[i] = chain
		} else {
			ts[i] = was
		}
	}
	if match(ts) {
		return ts, chains, true
	}
	return nil, nil, false
}

// Apply wraps every pending slot in its cast chain. Each inserted cast gets
// its signature and result type, so the tree stays fully decorated.
func Apply(reg *signatures.Registry, pending []Pending) {
	for _, p := range pending {
		node := *p.Slot
		parent := node.Parent
		for _, target := range p.Chain {
			cast := ast.NewCast(node.Tok, target, node)
			operands := cast.Data.(*ast.OperatorNode).Operands
			cast.Sig = reg.Lookup(token.Cast, []types.Type{operands[0].Typ, node.Typ})
			cast.Typ = cast.Sig.ResultType()
			node = cast
		}
		node.Parent = parent
		*p.Slot = node
	}
}
