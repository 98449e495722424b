// Package formatter renders expression trees for terminals.
package formatter

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"

	"github.com/opal-lang/exprparse/core/ast"
	"github.com/opal-lang/exprparse/core/invariant"
)

type styles struct {
	root, op, call, variable, number, missing func(a ...interface{}) string
}

func newStyles(useColor bool) styles {
	paint := func(attrs ...color.Attribute) func(a ...interface{}) string {
		c := color.New(attrs...)
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	return styles{
		root:     paint(color.FgHiBlack),
		op:       paint(color.FgYellow, color.Bold),
		call:     paint(color.FgCyan, color.Bold),
		variable: paint(color.FgGreen),
		number:   paint(color.FgBlue),
		missing:  paint(color.FgRed, color.Bold),
	}
}

// Tree renders a tree with box-drawing guides, one node per line:
//
//	root
//	└─ +
//	   ├─ -
//	   │  ├─ 31
//	   │  └─ 91
//	   └─ 21
//
// Unset slots are shown as "_".
func Tree(w io.Writer, n ast.Node, useColor bool) {
	invariant.NotNil(w, "writer")

	s := newStyles(useColor)
	_, _ = fmt.Fprintln(w, label(n, s))
	renderChildren(w, n, "", s)
}

func renderChildren(w io.Writer, n ast.Node, indent string, s styles) {
	children := childrenOf(n)
	for i, child := range children {
		isLast := i == len(children)-1

		prefix, next := "├─ ", "│  "
		if isLast {
			prefix, next = "└─ ", "   "
		}

		_, _ = fmt.Fprintf(w, "%s%s%s\n", indent, prefix, label(child, s))
		if child != nil {
			renderChildren(w, child, indent+next, s)
		}
	}
}

// childrenOf lists the slots of n in display order. FnArgs is flattened into
// its call.
func childrenOf(n ast.Node) []ast.Node {
	switch n := n.(type) {
	case *ast.Root:
		return []ast.Node{n.Child}
	case *ast.BinaryOp:
		return []ast.Node{n.Left, n.Right}
	case *ast.UnaryOp:
		return []ast.Node{n.Operand}
	case *ast.FnCall:
		if n.Args == nil {
			return nil
		}
		return n.Args.Args
	case *ast.FnArgs:
		return n.Args
	default:
		return nil
	}
}

func label(n ast.Node, s styles) string {
	switch n := n.(type) {
	case nil:
		return s.missing("_")
	case *ast.Root:
		return s.root("root")
	case *ast.BinaryOp:
		return s.op(n.Op)
	case *ast.UnaryOp:
		return s.op(n.Op)
	case *ast.FnCall:
		return s.call(n.Name + "()")
	case *ast.FnArgs:
		return s.root("args")
	case *ast.VarRef:
		return s.variable("$" + n.Name)
	case *ast.Natural:
		return s.number(strconv.FormatUint(n.Value, 10))
	default:
		return fmt.Sprintf("(unknown node type: %T)", n)
	}
}

// ShouldUseColor determines if color output should be used.
// Respects --no-color flag and NO_COLOR environment variable.
func ShouldUseColor(noColorFlag bool) bool {
	if noColorFlag {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	// Check if stdout is a terminal
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
