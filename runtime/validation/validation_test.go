package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/exprparse/core/ast"
	"github.com/opal-lang/exprparse/runtime/parser"
)

var testSymbols = Symbols{
	Functions: map[string]int{
		"max":      2,
		"min":      2,
		"abs":      1,
		"sum":      Variadic,
		"math.pow": 2,
	},
	Variables: []string{"count", "total", "config.limit"},
}

func parse(t *testing.T, input string) ast.Node {
	t.Helper()
	res := parser.Parse(input)
	require.True(t, res.OK(), "parse %q: %v", input, res.Err)
	return res.Root
}

func TestCheckClean(t *testing.T) {
	for _, input := range []string{
		"1 + 2",
		"max(count, total) * 2",
		"sum()",
		"sum(1, 2, 3, 4)",
		"math.pow($config.limit, 2)",
		"abs(min(count, 0))",
	} {
		t.Run(input, func(t *testing.T) {
			assert.Empty(t, Check(parse(t, input), testSymbols))
		})
	}
}

func TestCheckUnknownFunction(t *testing.T) {
	warnings := Check(parse(t, "mx(1, 2)"), testSymbols)
	require.Len(t, warnings, 1)

	w := warnings[0]
	assert.Equal(t, UnknownFunction, w.Kind)
	assert.Equal(t, "mx", w.Name)
	assert.Equal(t, "max", w.Suggestion)
	assert.Equal(t, "unknown function: mx (did you mean 'max'?)", w.String())
	assert.Equal(t, ast.KindFnCall, w.Node.Kind())
}

func TestCheckUnknownFunctionWithoutSuggestion(t *testing.T) {
	warnings := Check(parse(t, "qqq()"), testSymbols)
	require.Len(t, warnings, 1)
	assert.Empty(t, warnings[0].Suggestion)
	assert.Equal(t, "unknown function: qqq", warnings[0].String())
}

func TestCheckArityMismatch(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		got     int
		message string
	}{
		{"max(1)", 2, 1, "max expects 2 arguments, got 1"},
		{"abs()", 1, 0, "abs expects 1 argument, got 0"},
		{"abs(1, 2, 3)", 1, 3, "abs expects 1 argument, got 3"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			warnings := Check(parse(t, tt.input), testSymbols)
			require.Len(t, warnings, 1)

			w := warnings[0]
			assert.Equal(t, ArityMismatch, w.Kind)
			assert.Equal(t, tt.want, w.Want)
			assert.Equal(t, tt.got, w.Got)
			assert.Equal(t, tt.message, w.Message)
		})
	}
}

func TestCheckUnknownVariable(t *testing.T) {
	warnings := Check(parse(t, "cnt + $total"), testSymbols)
	require.Len(t, warnings, 1)

	w := warnings[0]
	assert.Equal(t, UnknownVariable, w.Kind)
	assert.Equal(t, "cnt", w.Name)
	assert.Equal(t, "count", w.Suggestion)
}

func TestCheckReportsInPreOrder(t *testing.T) {
	warnings := Check(parse(t, "foo(bar, max(baz)) + qux"), testSymbols)

	var got []string
	for _, w := range warnings {
		got = append(got, w.Kind.String()+":"+w.Name)
	}
	assert.Equal(t, []string{
		"unknown-function:foo",
		"unknown-variable:bar",
		"arity-mismatch:max",
		"unknown-variable:baz",
		"unknown-variable:qux",
	}, got)
}

func TestCheckEmptyTablesDisableChecks(t *testing.T) {
	tree := parse(t, "anything(x, y, z) + whatever")

	assert.Empty(t, Check(tree, Symbols{}))
	assert.Len(t, Check(tree, Symbols{Variables: []string{"x"}}), 3, "only variables checked")
	assert.Len(t, Check(tree, Symbols{Functions: map[string]int{"f": 0}}), 1, "only functions checked")
}

func TestWarningKindString(t *testing.T) {
	assert.Equal(t, "unknown-function", UnknownFunction.String())
	assert.Equal(t, "arity-mismatch", ArityMismatch.String())
	assert.Equal(t, "unknown-variable", UnknownVariable.String())
	assert.Equal(t, "WarningKind(9)", WarningKind(9).String())
}
