package parser

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrIncomplete is matched by every *IncompleteError.
var ErrIncomplete = errors.New("incomplete parse")

// snippetLimit bounds how much of the unconsumed input an error message quotes.
const snippetLimit = 24

// IncompleteError reports input that the grammar could not consume.
// Pos is the byte offset where consumption stopped.
type IncompleteError struct {
	Pos       int
	Remaining string
}

func (e *IncompleteError) Error() string {
	if e.Remaining == "" {
		return fmt.Sprintf("%s: no expression at offset %d", ErrIncomplete, e.Pos)
	}
	return fmt.Sprintf("%s: unexpected input at offset %d: %q", ErrIncomplete, e.Pos, snippet(e.Remaining))
}

func (e *IncompleteError) Unwrap() error {
	return ErrIncomplete
}

func snippet(s string) string {
	if utf8.RuneCountInString(s) <= snippetLimit {
		return s
	}
	n := 0
	for i := range s {
		if n == snippetLimit {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
