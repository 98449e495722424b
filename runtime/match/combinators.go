package match

import (
	"github.com/opal-lang/exprparse/core/invariant"
)

// Matcher tries to consume input at a cursor. On success it returns the
// advanced cursor and true; on failure it returns the zero Cursor and false.
type Matcher func(Cursor) (Cursor, bool)

// Apply runs m against a fresh cursor over input.
func Apply(m Matcher, input string) (Cursor, bool) {
	return m(New(input))
}

// CharRange matches one rune in [lo, hi]. It fails at end of input because
// there is nothing left to consume, even when EOF falls inside the range.
func CharRange(lo, hi rune) Matcher {
	invariant.Precondition(lo <= hi, "empty character range [%q, %q]", lo, hi)

	return func(c Cursor) (Cursor, bool) {
		r, size := c.next()
		if size == 0 || r < lo || r > hi {
			return Cursor{}, false
		}
		return c.advance(size), true
	}
}

// Char matches exactly the rune ch.
func Char(ch rune) Matcher {
	return CharRange(ch, ch)
}

// Literal matches the runes of s in order.
func Literal(s string) Matcher {
	invariant.Precondition(s != "", "literal must not be empty")

	ms := make([]Matcher, 0, len(s))
	for _, r := range s {
		ms = append(ms, Char(r))
	}
	return Seq(ms...)
}

// Seq matches every matcher in order, each starting where the previous one
// stopped. The matched text is the concatenation of the sub-matches.
func Seq(ms ...Matcher) Matcher {
	invariant.Precondition(len(ms) > 0, "sequence needs at least one matcher")

	return func(c Cursor) (Cursor, bool) {
		cur := c
		var acc span
		for _, m := range ms {
			next, ok := m(cur)
			if !ok {
				return Cursor{}, false
			}
			acc.add(next)
			cur = next
		}
		return acc.at(cur), true
	}
}

// Alt returns the first alternative that matches. Order matters: an earlier
// alternative wins even when a later one would consume more.
func Alt(ms ...Matcher) Matcher {
	invariant.Precondition(len(ms) > 0, "alternation needs at least one matcher")

	return func(c Cursor) (Cursor, bool) {
		for _, m := range ms {
			if next, ok := m(c); ok {
				return next, true
			}
		}
		return Cursor{}, false
	}
}

// Optional never fails. When m does not match, the original position is
// returned with nothing matched.
func Optional(m Matcher) Matcher {
	return func(c Cursor) (Cursor, bool) {
		if next, ok := m(c); ok {
			return next, true
		}
		return c.unmatched(), true
	}
}

// ZeroOrMore applies m until it fails and never fails itself. An iteration
// that consumes nothing ends the loop.
func ZeroOrMore(m Matcher) Matcher {
	return func(c Cursor) (Cursor, bool) {
		cur := c.unmatched()
		var acc span
		for {
			next, ok := m(cur)
			if !ok || next.pos == cur.pos {
				break
			}
			acc.add(next)
			cur = next
		}
		return acc.at(cur), true
	}
}

// OneOrMore matches m at least once.
func OneOrMore(m Matcher) Matcher {
	return Seq(m, ZeroOrMore(m))
}

// Quantified applies a regular-expression style quantifier: '?' is Optional,
// '*' is ZeroOrMore and '+' is OneOrMore. Any other symbol is a grammar bug and
// panics when the matcher is built.
func Quantified(m Matcher, q rune) Matcher {
	switch q {
	case '?':
		return Optional(m)
	case '*':
		return ZeroOrMore(m)
	case '+':
		return OneOrMore(m)
	}

	invariant.Precondition(false, "unknown quantifier %q", q)
	return nil
}

// Discard runs m and drops its matched text, keeping the advanced position.
func Discard(m Matcher) Matcher {
	return func(c Cursor) (Cursor, bool) {
		next, ok := m(c)
		if !ok {
			return Cursor{}, false
		}
		return next.unmatched(), true
	}
}
