// Package validation checks parsed expressions against a table of known
// functions and variables.
package validation

import (
	"fmt"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/opal-lang/exprparse/core/ast"
)

// Variadic marks a function that accepts any number of arguments.
const Variadic = -1

// Symbols is the set of names an expression may refer to. A nil or empty
// table disables the corresponding check.
type Symbols struct {
	Functions map[string]int // name -> arity, or Variadic
	Variables []string
}

// WarningKind classifies a Warning.
type WarningKind int

const (
	UnknownFunction WarningKind = iota
	ArityMismatch
	UnknownVariable
)

func (k WarningKind) String() string {
	switch k {
	case UnknownFunction:
		return "unknown-function"
	case ArityMismatch:
		return "arity-mismatch"
	case UnknownVariable:
		return "unknown-variable"
	default:
		return fmt.Sprintf("WarningKind(%d)", int(k))
	}
}

// Warning is a problem found in an otherwise well-formed tree.
type Warning struct {
	Kind       WarningKind
	Name       string   // Callee or variable name
	Node       ast.Node // Offending FnCall or VarRef
	Want, Got  int      // Declared and supplied arity (ArityMismatch only)
	Suggestion string   // Closest known name, if any
	Message    string
}

func (w Warning) String() string {
	if w.Suggestion == "" {
		return w.Message
	}
	return fmt.Sprintf("%s (did you mean '%s'?)", w.Message, w.Suggestion)
}

// Check walks the tree in pre-order and reports every call and variable
// reference that does not agree with symbols.
func Check(n ast.Node, symbols Symbols) []Warning {
	functions := sortedKeys(symbols.Functions)
	variables := make(map[string]bool, len(symbols.Variables))
	for _, v := range symbols.Variables {
		variables[v] = true
	}

	var warnings []Warning
	ast.Walk(n, func(node ast.Node) bool {
		switch node := node.(type) {
		case *ast.FnCall:
			if w, ok := checkCall(node, symbols.Functions, functions); ok {
				warnings = append(warnings, w)
			}
		case *ast.VarRef:
			if len(variables) == 0 || variables[node.Name] {
				break
			}
			warnings = append(warnings, Warning{
				Kind:       UnknownVariable,
				Name:       node.Name,
				Node:       node,
				Suggestion: findClosestMatch(node.Name, symbols.Variables),
				Message:    fmt.Sprintf("unknown variable: %s", node.Name),
			})
		}
		return true
	})
	return warnings
}

func checkCall(call *ast.FnCall, arities map[string]int, names []string) (Warning, bool) {
	if len(arities) == 0 {
		return Warning{}, false
	}

	arity, known := arities[call.Name]
	if !known {
		return Warning{
			Kind:       UnknownFunction,
			Name:       call.Name,
			Node:       call,
			Suggestion: findClosestMatch(call.Name, names),
			Message:    fmt.Sprintf("unknown function: %s", call.Name),
		}, true
	}

	got := call.Args.Len()
	if arity == Variadic || arity == got {
		return Warning{}, false
	}
	return Warning{
		Kind:    ArityMismatch,
		Name:    call.Name,
		Node:    call,
		Want:    arity,
		Got:     got,
		Message: fmt.Sprintf("%s expects %d argument%s, got %d", call.Name, arity, plural(arity), got),
	}, true
}

// findClosestMatch finds the closest string match using fuzzy matching
func findClosestMatch(target string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}

	ranks := fuzzy.RankFindFold(target, candidates)
	if len(ranks) == 0 {
		return ""
	}
	sort.Stable(ranks)
	return ranks[0].Target
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
