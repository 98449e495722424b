// Package astfmt serialises expression trees.
//
// A tree is first converted to its canonical form, a plain struct with one
// shape for every variant. The canonical form has a deterministic CBOR
// encoding used for fingerprinting and a JSON document encoding checked
// against an embedded JSON Schema.
package astfmt

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/opal-lang/exprparse/core/ast"
	"github.com/opal-lang/exprparse/core/invariant"
)

// CanonicalVersion is the version of the canonical layout.
const CanonicalVersion uint8 = 1

// maxNesting bounds CBOR decoding depth. Operator chains nest to the left, so
// long sums need far more than the decoder default.
const maxNesting = 4096

// Node type tags used in the canonical form.
const (
	TypeRoot    = "root"
	TypeBinary  = "binary"
	TypeUnary   = "unary"
	TypeCall    = "call"
	TypeVar     = "var"
	TypeNatural = "natural"
)

var (
	// ErrUnsetSlot is returned when canonicalising a tree with an empty slot.
	ErrUnsetSlot = errors.New("unset child slot")
	// ErrMalformed is returned when a canonical node cannot be rebuilt.
	ErrMalformed = errors.New("malformed canonical node")
)

// Canonical is the versioned canonical form of a tree.
type Canonical struct {
	Version uint8
	Tree    CanonicalNode
}

// CanonicalNode is a union of every AST variant. Type selects which fields
// are meaningful.
type CanonicalNode struct {
	Type string `json:"type"`

	// BinaryOp and UnaryOp
	Op string `json:"op,omitempty"`

	// FnCall and VarRef
	Name string `json:"name,omitempty"`

	// Natural
	Value uint64 `json:"value,omitempty"`

	// Root
	Child *CanonicalNode `json:"child,omitempty"`

	// BinaryOp
	Left  *CanonicalNode `json:"left,omitempty"`
	Right *CanonicalNode `json:"right,omitempty"`

	// UnaryOp
	Operand *CanonicalNode `json:"operand,omitempty"`

	// FnCall
	Args []CanonicalNode `json:"args,omitempty"`
}

// Canonicalize converts a fully formed tree into canonical form.
func Canonicalize(n ast.Node) (*Canonical, error) {
	tree, err := toCanonicalNode(n)
	if err != nil {
		return nil, err
	}
	return &Canonical{Version: CanonicalVersion, Tree: tree}, nil
}

func toCanonicalNode(node ast.Node) (CanonicalNode, error) {
	switch n := node.(type) {
	case *ast.Root:
		child, err := canonicalChild(n.Child, "root child")
		if err != nil {
			return CanonicalNode{}, err
		}
		return CanonicalNode{Type: TypeRoot, Child: child}, nil
	case *ast.BinaryOp:
		return canonicalizeBinaryOp(n)
	case *ast.UnaryOp:
		operand, err := canonicalChild(n.Operand, "operand of "+n.Op)
		if err != nil {
			return CanonicalNode{}, err
		}
		return CanonicalNode{Type: TypeUnary, Op: n.Op, Operand: operand}, nil
	case *ast.FnCall:
		return canonicalizeFnCall(n)
	case *ast.VarRef:
		return CanonicalNode{Type: TypeVar, Name: n.Name}, nil
	case *ast.Natural:
		return CanonicalNode{Type: TypeNatural, Value: n.Value}, nil
	case nil:
		return CanonicalNode{}, ErrUnsetSlot
	default:
		return CanonicalNode{}, fmt.Errorf("unknown node type: %T", node)
	}
}

func canonicalChild(n ast.Node, what string) (*CanonicalNode, error) {
	if n == nil {
		return nil, fmt.Errorf("%s: %w", what, ErrUnsetSlot)
	}
	cn, err := toCanonicalNode(n)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return &cn, nil
}

func canonicalizeBinaryOp(n *ast.BinaryOp) (CanonicalNode, error) {
	left, err := canonicalChild(n.Left, "left")
	if err != nil {
		return CanonicalNode{}, err
	}
	right, err := canonicalChild(n.Right, "right")
	if err != nil {
		return CanonicalNode{}, err
	}
	return CanonicalNode{
		Type:  TypeBinary,
		Op:    n.Op,
		Left:  left,
		Right: right,
	}, nil
}

func canonicalizeFnCall(n *ast.FnCall) (CanonicalNode, error) {
	cn := CanonicalNode{Type: TypeCall, Name: n.Name}
	if n.Args.Len() == 0 {
		return cn, nil
	}

	cn.Args = make([]CanonicalNode, len(n.Args.Args))
	for i, arg := range n.Args.Args {
		ca, err := toCanonicalNode(arg)
		if err != nil {
			return CanonicalNode{}, fmt.Errorf("arg %d of %s: %w", i, n.Name, err)
		}
		cn.Args[i] = ca
	}
	return cn, nil
}

// Node rebuilds the tree held by the canonical form.
func (c *Canonical) Node() (ast.Node, error) {
	return c.Tree.Node()
}

// Node rebuilds an AST node. Children are attached through the typed setters,
// so a canonical form that names a slot twice or misses one is rejected.
func (cn *CanonicalNode) Node() (ast.Node, error) {
	switch cn.Type {
	case TypeRoot:
		root := &ast.Root{}
		if err := attach(root, cn.Child, "child", ast.AppendChild); err != nil {
			return nil, err
		}
		return root, nil

	case TypeBinary:
		if cn.Op == "" {
			return nil, fmt.Errorf("%w: binary without operator", ErrMalformed)
		}
		op := &ast.BinaryOp{Op: cn.Op}
		if err := attach(op, cn.Right, "right", ast.AppendChild); err != nil {
			return nil, err
		}
		if err := attach(op, cn.Left, "left", ast.PrependChild); err != nil {
			return nil, err
		}
		return op, nil

	case TypeUnary:
		if cn.Op == "" {
			return nil, fmt.Errorf("%w: unary without operator", ErrMalformed)
		}
		op := &ast.UnaryOp{Op: cn.Op}
		if err := attach(op, cn.Operand, "operand", ast.AppendChild); err != nil {
			return nil, err
		}
		return op, nil

	case TypeCall:
		if cn.Name == "" {
			return nil, fmt.Errorf("%w: call without name", ErrMalformed)
		}
		args := &ast.FnArgs{}
		for i := range cn.Args {
			if err := attach(args, &cn.Args[i], fmt.Sprintf("arg %d", i), ast.AppendChild); err != nil {
				return nil, err
			}
		}
		return ast.NewFnCall(cn.Name, args), nil

	case TypeVar:
		if cn.Name == "" {
			return nil, fmt.Errorf("%w: var without name", ErrMalformed)
		}
		return &ast.VarRef{Name: cn.Name}, nil

	case TypeNatural:
		return &ast.Natural{Value: cn.Value}, nil

	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformed, cn.Type)
	}
}

func attach(parent ast.Node, child *CanonicalNode, slot string, fn func(parent, child ast.Node) error) error {
	invariant.NotNil(parent, "parent")
	if child == nil {
		return fmt.Errorf("%w: %s %s missing", ErrMalformed, parent.Kind(), slot)
	}
	n, err := child.Node()
	if err != nil {
		return fmt.Errorf("%s: %w", slot, err)
	}
	if err := fn(parent, n); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformed, err)
	}
	return nil
}

// MarshalBinary produces deterministic CBOR encoding of the canonical form.
// Equal trees always encode to identical bytes.
func (c *Canonical) MarshalBinary() ([]byte, error) {
	encMode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
	}

	// Alias drops the method set so the encoder does not recurse into
	// MarshalBinary.
	type canonicalAlias Canonical
	data, err := encMode.Marshal((*canonicalAlias)(c))
	if err != nil {
		return nil, fmt.Errorf("CBOR encoding failed: %w", err)
	}
	return data, nil
}

// UnmarshalBinary decodes CBOR produced by MarshalBinary.
func (c *Canonical) UnmarshalBinary(data []byte) error {
	decMode, err := cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
		MaxNestedLevels: maxNesting,
	}.DecMode()
	if err != nil {
		return fmt.Errorf("failed to create CBOR decoder: %w", err)
	}

	type canonicalAlias Canonical
	var out canonicalAlias
	if err := decMode.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("CBOR decoding failed: %w", err)
	}
	if out.Version != CanonicalVersion {
		return fmt.Errorf("unsupported canonical version %d (want %d)", out.Version, CanonicalVersion)
	}

	*c = Canonical(out)
	return nil
}

// Fingerprint is the BLAKE2b-256 digest of a tree's canonical CBOR encoding.
type Fingerprint [32]byte

func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Hash computes the fingerprint of the canonical form.
func (c *Canonical) Hash() (Fingerprint, error) {
	data, err := c.MarshalBinary()
	if err != nil {
		return Fingerprint{}, err
	}
	return blake2b.Sum256(data), nil
}

// Hash canonicalises n and returns its fingerprint. Structurally equal trees
// share a fingerprint.
func Hash(n ast.Node) (Fingerprint, error) {
	c, err := Canonicalize(n)
	if err != nil {
		return Fingerprint{}, err
	}
	return c.Hash()
}
