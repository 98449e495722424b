package parser

import (
	"github.com/opal-lang/exprparse/core/ast"
	"github.com/opal-lang/exprparse/runtime/match"
)

// State is the value every grammar rule produces: where parsing stopped and
// the node built for the consumed text.
type State struct {
	Cursor match.Cursor
	Node   ast.Node
}

// Status classifies the outcome of a top-level parse.
type Status uint8

const (
	StatusComplete      Status = iota // Whole input consumed, Root is set
	StatusIncomplete                  // Input left over or nothing matched
	StatusInternalError               // Grammar or AST construction bug
)

func (s Status) String() string {
	switch s {
	case StatusComplete:
		return "complete"
	case StatusIncomplete:
		return "incomplete"
	case StatusInternalError:
		return "internal error"
	default:
		return "unknown"
	}
}

// Result represents the outcome of parsing one input buffer
type Result struct {
	Status      Status
	Root        *ast.Root       // Set only when Status is StatusComplete
	Cursor      match.Cursor    // Where parsing stopped
	Err         error           // *IncompleteError or *invariant.Violation
	Telemetry   *ParseTelemetry // Performance metrics (nil if disabled)
	DebugEvents []DebugEvent    // Debug events (nil if disabled)
}

// OK reports whether the whole input was parsed.
func (r *Result) OK() bool {
	return r.Status == StatusComplete
}

// Pos returns the byte offset where parsing stopped.
func (r *Result) Pos() int {
	return r.Cursor.Pos()
}

// Remaining returns the unconsumed input.
func (r *Result) Remaining() string {
	return r.Cursor.Remaining()
}

// Expr returns the parsed expression, or nil when the parse did not complete.
func (r *Result) Expr() ast.Node {
	if r.Root == nil {
		return nil
	}
	return r.Root.Child
}
