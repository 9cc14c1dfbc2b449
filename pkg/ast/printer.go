package ast

import (
	"fmt"
	"io"
	"strings"
)

// Fprint writes an indented dump of the tree rooted at n, one node per line
// with its type annotation when the checker has set one.
func Fprint(w io.Writer, n *Node) {
	fprint(w, n, 0)
}

func fprint(w io.Writer, n *Node, depth int) {
	fmt.Fprintf(w, "%s%s", strings.Repeat("  ", depth), describe(n))
	if n.Typ != nil {
		fmt.Fprintf(w, " : %s", n.Typ)
	}
	fmt.Fprintln(w)
	for _, c := range n.Children() {
		fprint(w, c, depth+1)
	}
}

func describe(n *Node) string {
	switch d := n.Data.(type) {
	case *NumberNode:
		return fmt.Sprintf("Number %d", d.Value)
	case *FloatNumberNode:
		return fmt.Sprintf("FloatNumber %g", d.Value)
	case *CharNode:
		return fmt.Sprintf("Char %q", rune(d.Value))
	case *StringNode:
		return fmt.Sprintf("String %q", d.Value)
	case *BoolNode:
		return fmt.Sprintf("Bool %t", d.Value)
	case *IdentNode:
		return "Ident " + d.Name
	case *OperatorNode:
		return "Operator " + d.Op.String()
	case *TypeLiteralNode:
		return "TypeLiteral " + d.Type.String()
	case *ArrayAllocNode:
		return "ArrayAlloc " + d.ElemType.String()
	case *FuncDeclNode:
		if n.Type == Lambda {
			return "Lambda -> " + d.ReturnType.String()
		}
		return fmt.Sprintf("FuncDecl %s -> %s", d.Name, d.ReturnType)
	case *ParamNode:
		return fmt.Sprintf("Param %s %s", d.Name, d.Type)
	case *VarDeclNode:
		kind := "var"
		if d.IsConst {
			kind = "const"
		}
		return fmt.Sprintf("VarDecl %s %s", kind, d.Name)
	case *PrintSeparatorNode:
		return "PrintSeparator " + d.Kind.String()
	}
	return n.Type.String()
}
