package lexer

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/opal-lang/exprparse/runtime/match"
)

type result struct {
	OK        bool
	Matched   string
	Remaining string
}

func apply(m match.Matcher, input string) result {
	c, ok := match.Apply(m, input)
	if !ok {
		return result{}
	}
	return result{OK: true, Matched: c.Matched(), Remaining: c.Remaining()}
}

func TestLexicalRules(t *testing.T) {
	tests := []struct {
		name  string
		rule  match.Matcher
		input string
		want  result
	}{
		{"whitespace discarded", Whitespace, " \t\r\n x", result{true, "", "x"}},
		{"whitespace none", Whitespace, "x", result{true, "", "x"}},
		{"letter lower", Letter, "ab", result{true, "a", "b"}},
		{"letter upper", Letter, "Zb", result{true, "Z", "b"}},
		{"letter rejects digit", Letter, "1", result{}},
		{"letter rejects underscore", Letter, "_", result{}},
		{"ident char underscore", IdentChar, "_a", result{true, "_", "a"}},
		{"digit", Digit, "7", result{true, "7", ""}},

		{"name single letter", Name, "x+1", result{true, "x", "+1"}},
		{"name with digits and underscores", Name, "arg_0b(z)", result{true, "arg_0b", "(z)"}},
		{"name must start with letter", Name, "0abc", result{}},
		{"name rejects leading underscore", Name, "_abc", result{}},

		{"dotted name plain", DottedName, "var", result{true, "var", ""}},
		{"dotted name", DottedName, "a.b.c)", result{true, "a.b.c", ")"}},
		{"dotted name whitespace dropped", DottedName, "a . b", result{true, "a.b", ""}},
		{"dotted name dangling dot", DottedName, "a.", result{}},

		{"natural zero", Natural, "0", result{true, "0", ""}},
		{"natural", Natural, "12034", result{true, "12034", ""}},
		{"natural leading zero stops after zero", Natural, "01234", result{true, "0", "1234"}},
		{"natural rejects letter", Natural, "x1", result{}},

		{"dollar present", Dollar, "$x", result{true, "", "x"}},
		{"dollar absent", Dollar, "x", result{true, "", "x"}},

		{"token skips whitespace", Token(Natural), "   42 ", result{true, "42", " "}},
		{"symbol", Symbol('*', '/', '%'), " % 2", result{true, "%", " 2"}},
		{"symbol mismatch", Symbol('+', '-'), " * 2", result{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := apply(tt.rule, tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
