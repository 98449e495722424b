// Package lexer holds the lexical rules of the expression language. Every rule
// is a plain composition of runtime/match primitives; there is no token stream.
//
//	name       := letter (identifierChar | digit)*
//	dottedName := (name ws '.' ws)* name
//	natural    := '0' | '1'..'9' digit*
//
// natural does not reject leading zeros: on "01234" it matches "0" and leaves
// "1234" for the caller.
package lexer

import "github.com/opal-lang/exprparse/runtime/match"

var (
	Name = match.Seq(
		Letter,
		match.Optional(match.Quantified(match.Alt(IdentChar, Digit), '+')),
	)

	DottedName = match.Seq(
		match.ZeroOrMore(match.Seq(Name, Whitespace, match.Char('.'), Whitespace)),
		Name,
	)

	Natural = match.Alt(
		match.Char('0'),
		match.Seq(NonZeroDigit, match.ZeroOrMore(Digit)),
	)

	// Dollar consumes an optional '$' sigil without recording it.
	Dollar = match.Discard(match.Optional(match.Char('$')))
)

// Token skips leading whitespace and then matches m.
func Token(m match.Matcher) match.Matcher {
	return match.Seq(Whitespace, m)
}

// Symbol skips leading whitespace and then matches one of the given runes.
func Symbol(chars ...rune) match.Matcher {
	alts := make([]match.Matcher, 0, len(chars))
	for _, ch := range chars {
		alts = append(alts, match.Char(ch))
	}
	return Token(match.Alt(alts...))
}
