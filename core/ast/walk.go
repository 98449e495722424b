package ast

// Walk visits n and its descendants depth-first in pre-order. Returning false
// from fn skips the children of the node just visited. Unset slots are skipped.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}

	switch v := n.(type) {
	case *Root:
		Walk(v.Child, fn)
	case *BinaryOp:
		Walk(v.Left, fn)
		Walk(v.Right, fn)
	case *UnaryOp:
		Walk(v.Operand, fn)
	case *FnCall:
		if v.Args != nil {
			Walk(v.Args, fn)
		}
	case *FnArgs:
		for _, arg := range v.Args {
			Walk(arg, fn)
		}
	}
}

// Equal reports whether a and b are structurally identical trees.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}

	switch x := a.(type) {
	case *Root:
		return Equal(x.Child, b.(*Root).Child)
	case *BinaryOp:
		y := b.(*BinaryOp)
		return x.Op == y.Op && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *UnaryOp:
		y := b.(*UnaryOp)
		return x.Op == y.Op && Equal(x.Operand, y.Operand)
	case *FnCall:
		y := b.(*FnCall)
		return x.Name == y.Name && x.Args.Len() == y.Args.Len() && equalArgs(x.Args, y.Args)
	case *FnArgs:
		y := b.(*FnArgs)
		return x.Len() == y.Len() && equalArgs(x, y)
	case *VarRef:
		return x.Name == b.(*VarRef).Name
	case *Natural:
		return x.Value == b.(*Natural).Value
	}
	return false
}

func equalArgs(x, y *FnArgs) bool {
	for i := 0; i < x.Len(); i++ {
		if !Equal(x.Args[i], y.Args[i]) {
			return false
		}
	}
	return true
}

// Count returns the number of nodes in the tree rooted at n.
func Count(n Node) int {
	total := 0
	Walk(n, func(Node) bool {
		total++
		return true
	})
	return total
}
