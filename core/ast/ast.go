// Package ast defines the expression tree produced by the parser.
//
// The node set is closed: Root, BinaryOp, UnaryOp, FnCall, FnArgs, VarRef and
// Natural are the only implementations of Node. Operations that depend on the
// variant switch on the concrete type rather than going through a shared
// interface method.
//
// Child attachment goes through typed setters that report ErrSlotOccupied or
// ErrNoSlot instead of panicking. AppendChild and PrependChild dispatch to the
// setter matching the variant's tail and head slots.
package ast

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrSlotOccupied is returned when attaching to a slot that is already set.
	ErrSlotOccupied = errors.New("slot already set")
	// ErrNoSlot is returned when the node variant has no slot for the attachment.
	ErrNoSlot = errors.New("node has no such slot")
	// ErrNilChild is returned when attaching a nil node.
	ErrNilChild = errors.New("child must not be nil")
)

// Kind identifies the node variant.
type Kind uint8

const (
	KindRoot Kind = iota
	KindBinaryOp
	KindUnaryOp
	KindFnCall
	KindFnArgs
	KindVarRef
	KindNatural
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "Root"
	case KindBinaryOp:
		return "BinaryOp"
	case KindUnaryOp:
		return "UnaryOp"
	case KindFnCall:
		return "FnCall"
	case KindFnArgs:
		return "FnArgs"
	case KindVarRef:
		return "VarRef"
	case KindNatural:
		return "Natural"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Node is implemented by every AST variant in this package and nowhere else.
type Node interface {
	Kind() Kind
	String() string
	node()
}

// Root holds the single top-level expression of a parse.
type Root struct {
	Child Node
}

// BinaryOp is an infix arithmetic operation.
type BinaryOp struct {
	Op    string
	Left  Node
	Right Node
}

// UnaryOp is reserved for prefix operators; the grammar does not produce it yet.
type UnaryOp struct {
	Op      string
	Operand Node
}

// FnCall is a call of a dotted callee name with an argument list.
type FnCall struct {
	Name string
	Args *FnArgs
}

// FnArgs is the ordered argument list of a call.
type FnArgs struct {
	Args []Node
}

// VarRef references a (possibly dotted) variable name, without any $ prefix.
type VarRef struct {
	Name string
}

// Natural is an unsigned integer literal.
type Natural struct {
	Value uint64
}

func (*Root) node()     {}
func (*BinaryOp) node() {}
func (*UnaryOp) node()  {}
func (*FnCall) node()   {}
func (*FnArgs) node()   {}
func (*VarRef) node()   {}
func (*Natural) node()  {}

func (*Root) Kind() Kind     { return KindRoot }
func (*BinaryOp) Kind() Kind { return KindBinaryOp }
func (*UnaryOp) Kind() Kind  { return KindUnaryOp }
func (*FnCall) Kind() Kind   { return KindFnCall }
func (*FnArgs) Kind() Kind   { return KindFnArgs }
func (*VarRef) Kind() Kind   { return KindVarRef }
func (*Natural) Kind() Kind  { return KindNatural }

// NewFnCall builds a fully formed call. A nil args list becomes an empty one.
func NewFnCall(name string, args *FnArgs) *FnCall {
	if args == nil {
		args = &FnArgs{}
	}
	return &FnCall{Name: name, Args: args}
}

// NewNatural parses decimal digits into a Natural node.
func NewNatural(digits string) (*Natural, error) {
	v, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("natural %q: %w", digits, err)
	}
	return &Natural{Value: v}, nil
}

// SetChild sets the root's only child.
func (r *Root) SetChild(child Node) error {
	if child == nil {
		return ErrNilChild
	}
	if r.Child != nil {
		return fmt.Errorf("%w: root child", ErrSlotOccupied)
	}
	r.Child = child
	return nil
}

// SetLeft sets the left operand.
func (b *BinaryOp) SetLeft(child Node) error {
	if child == nil {
		return ErrNilChild
	}
	if b.Left != nil {
		return fmt.Errorf("%w: left operand of %q", ErrSlotOccupied, b.Op)
	}
	b.Left = child
	return nil
}

// SetRight sets the right operand.
func (b *BinaryOp) SetRight(child Node) error {
	if child == nil {
		return ErrNilChild
	}
	if b.Right != nil {
		return fmt.Errorf("%w: right operand of %q", ErrSlotOccupied, b.Op)
	}
	b.Right = child
	return nil
}

// SetOperand sets the operand of a unary operator.
func (u *UnaryOp) SetOperand(child Node) error {
	if child == nil {
		return ErrNilChild
	}
	if u.Operand != nil {
		return fmt.Errorf("%w: operand of %q", ErrSlotOccupied, u.Op)
	}
	u.Operand = child
	return nil
}

// Append pushes an argument to the end of the list.
func (a *FnArgs) Append(child Node) error {
	if child == nil {
		return ErrNilChild
	}
	a.Args = append(a.Args, child)
	return nil
}

// Len returns the number of arguments.
func (a *FnArgs) Len() int {
	if a == nil {
		return 0
	}
	return len(a.Args)
}

// AppendChild attaches child to the tail slot of parent.
func AppendChild(parent, child Node) error {
	switch p := parent.(type) {
	case *Root:
		return p.SetChild(child)
	case *BinaryOp:
		return p.SetRight(child)
	case *UnaryOp:
		return p.SetOperand(child)
	case *FnArgs:
		return p.Append(child)
	default:
		return fmt.Errorf("%w: cannot append to %s", ErrNoSlot, parent.Kind())
	}
}

// PrependChild attaches child to the head slot of parent.
func PrependChild(parent, child Node) error {
	switch p := parent.(type) {
	case *BinaryOp:
		return p.SetLeft(child)
	default:
		return fmt.Errorf("%w: cannot prepend to %s", ErrNoSlot, parent.Kind())
	}
}

func (r *Root) String() string {
	if r.Child == nil {
		return "(root)"
	}
	return "(root " + r.Child.String() + ")"
}

func (b *BinaryOp) String() string {
	return "(" + b.Op + " " + str(b.Left) + " " + str(b.Right) + ")"
}

func (u *UnaryOp) String() string {
	return "(" + u.Op + " " + str(u.Operand) + ")"
}

func (c *FnCall) String() string {
	return "(call " + c.Name + " " + str(c.Args) + ")"
}

func (a *FnArgs) String() string {
	if a == nil {
		return "(args)"
	}
	parts := make([]string, 0, len(a.Args)+1)
	parts = append(parts, "(args")
	for _, arg := range a.Args {
		parts = append(parts, str(arg))
	}
	return strings.Join(parts, " ") + ")"
}

func (v *VarRef) String() string {
	return "(var " + v.Name + ")"
}

func (n *Natural) String() string {
	return strconv.FormatUint(n.Value, 10)
}

// str renders an unset slot as "_".
func str(n Node) string {
	if n == nil {
		return "_"
	}
	return n.String()
}
