// Package match is the combinator engine underneath the expression grammar.
//
// A Cursor is an immutable position in the input together with the text the
// most recent operation consumed. A Matcher takes a cursor and either returns
// an advanced cursor or reports failure; it never changes the cursor it was
// given. Backtracking therefore costs nothing: after a failed alternative the
// caller simply keeps using the cursor it already holds.
package match

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// EOF is the rune Peek reports once the input is exhausted.
const EOF rune = 0

// Cursor is a position in an input buffer. The unconsumed suffix is derived
// from an offset into the shared input, so copying a Cursor never copies text.
//
// The matched text is the span input[start:end]. Only when a discarded run
// splits it is the text copied out into matched, with joined set.
type Cursor struct {
	input      string
	pos        int
	start, end int
	matched    string
	joined     bool
}

// New returns a cursor at the start of input with nothing matched.
func New(input string) Cursor {
	return Cursor{input: input}
}

// Input returns the whole buffer the cursor walks over.
func (c Cursor) Input() string {
	return c.input
}

// Pos returns the byte offset of the first unconsumed character.
func (c Cursor) Pos() int {
	return c.pos
}

// Remaining returns the unconsumed suffix.
func (c Cursor) Remaining() string {
	return c.input[c.pos:]
}

// Matched returns the text consumed by the operation that produced c.
// It is not cumulative over the whole parse.
func (c Cursor) Matched() string {
	if c.joined {
		return c.matched
	}
	return c.input[c.start:c.end]
}

// Complete reports whether the whole input has been consumed.
func (c Cursor) Complete() bool {
	return c.pos >= len(c.input)
}

// Peek returns the next rune, or EOF when the input is exhausted.
func (c Cursor) Peek() rune {
	r, size := c.next()
	if size == 0 {
		return EOF
	}
	return r
}

// WithMatched returns a copy of c whose matched text is s.
func (c Cursor) WithMatched(s string) Cursor {
	if s == "" {
		return c.unmatched()
	}
	c.matched, c.joined = s, true
	return c
}

func (c Cursor) String() string {
	return fmt.Sprintf("Cursor{pos: %d, matched: %q, remaining: %q}", c.pos, c.Matched(), c.Remaining())
}

// unmatched returns c at the same position with nothing matched.
func (c Cursor) unmatched() Cursor {
	return Cursor{input: c.input, pos: c.pos, start: c.pos, end: c.pos}
}

// next decodes the rune at the cursor; size is 0 at end of input.
func (c Cursor) next() (rune, int) {
	if c.pos >= len(c.input) {
		return EOF, 0
	}
	return utf8.DecodeRuneInString(c.input[c.pos:])
}

// advance consumes n bytes and records them as matched.
func (c Cursor) advance(n int) Cursor {
	return Cursor{
		input: c.input,
		pos:   c.pos + n,
		start: c.pos,
		end:   c.pos + n,
	}
}

// span accumulates the matched text of consecutive matches. Adjacent spans
// extend in place; text is copied into buf only once a gap appears.
type span struct {
	start, end int
	buf        *strings.Builder
}

func (s *span) add(c Cursor) {
	if c.joined {
		s.split(c.input)
		s.buf.WriteString(c.matched)
		return
	}
	if c.start == c.end {
		return
	}
	switch {
	case s.buf != nil:
		s.buf.WriteString(c.input[c.start:c.end])
	case s.start == s.end:
		s.start, s.end = c.start, c.end
	case s.end == c.start:
		s.end = c.end
	default:
		s.split(c.input)
		s.buf.WriteString(c.input[c.start:c.end])
	}
}

// split moves the span so far into buf.
func (s *span) split(input string) {
	if s.buf != nil {
		return
	}
	s.buf = &strings.Builder{}
	s.buf.WriteString(input[s.start:s.end])
}

// at returns c carrying the accumulated matched text.
func (s *span) at(c Cursor) Cursor {
	out := c.unmatched()
	if s.buf != nil {
		out.matched, out.joined = s.buf.String(), true
		return out
	}
	out.start, out.end = s.start, s.end
	return out
}
