package lexer

import "github.com/opal-lang/exprparse/runtime/match"

// Character classes. Identifiers are ASCII only.
//
//	whitespace     := (' ' | '\t' | '\n' | '\r')*   discarded
//	letter         := 'a'..'z' | 'A'..'Z'
//	identifierChar := letter | '_'
//	digit          := '0'..'9'
var (
	Whitespace = match.Discard(match.ZeroOrMore(match.Alt(
		match.Char(' '),
		match.Char('\t'),
		match.Char('\n'),
		match.Char('\r'),
	)))

	Letter = match.Alt(
		match.CharRange('a', 'z'),
		match.CharRange('A', 'Z'),
	)

	IdentChar = match.Alt(Letter, match.Char('_'))

	Digit = match.CharRange('0', '9')

	NonZeroDigit = match.CharRange('1', '9')
)
