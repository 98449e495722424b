package ast

// Builder helpers construct fully formed trees, mostly for tests and for
// decoding canonical forms. They bypass the slot checks because every slot is
// filled exactly once at construction.

// NewRoot creates a root holding child.
func NewRoot(child Node) *Root {
	return &Root{Child: child}
}

// Nat creates a natural literal.
func Nat(value uint64) *Natural {
	return &Natural{Value: value}
}

// Var creates a variable reference: a.b.c
func Var(name string) *VarRef {
	return &VarRef{Name: name}
}

// Bin creates a binary operation: left op right
func Bin(op string, left, right Node) *BinaryOp {
	return &BinaryOp{
		Op:    op,
		Left:  left,
		Right: right,
	}
}

// Unary creates a unary operation: op operand
func Unary(op string, operand Node) *UnaryOp {
	return &UnaryOp{
		Op:      op,
		Operand: operand,
	}
}

// Args creates an argument list.
func Args(args ...Node) *FnArgs {
	if len(args) == 0 {
		return &FnArgs{}
	}
	return &FnArgs{Args: args}
}

// Call creates a function call: name(args...)
func Call(name string, args ...Node) *FnCall {
	return NewFnCall(name, Args(args...))
}
