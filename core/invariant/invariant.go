// Package invariant provides contract assertions for the expression parser.
//
// Assertions guard programming errors in grammar composition and AST
// construction: a slot filled twice, a child attached to a node that has no
// such slot, an unknown repetition quantifier. They never guard user input;
// input that does not match is ordinary control flow and is reported through
// absent results.
//
// All assertion functions panic with a *Violation. Public entry points that
// must not crash the caller defer Recover to turn the violation back into an
// error, keeping it distinct from an ordinary parse failure.
package invariant

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
)

// Violation is the panic value raised by every failed assertion.
type Violation struct {
	Kind    string // PRECONDITION, POSTCONDITION or INVARIANT
	Message string
	File    string
	Line    int
}

func (v *Violation) Error() string {
	msg := fmt.Sprintf("%s VIOLATION: %s", v.Kind, v.Message)
	if v.File != "" {
		msg += fmt.Sprintf("\n  at %s:%d", v.File, v.Line)
	}
	return msg
}

// Precondition checks an input contract at function entry.
//
// Example:
//
//	func Quantified(m Matcher, q rune) Matcher {
//	    invariant.Precondition(q == '?' || q == '+' || q == '*', "unknown quantifier %q", q)
//	    // ...
//	}
func Precondition(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("PRECONDITION", format, args...)
	}
}

// Postcondition checks an output contract before function return.
func Postcondition(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("POSTCONDITION", format, args...)
	}
}

// Invariant checks internal consistency during function execution.
func Invariant(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("INVARIANT", format, args...)
	}
}

// NotNil panics if value is nil, including a typed nil such as (*T)(nil)
// stored in an interface.
func NotNil(value interface{}, name string) {
	if isNilValue(value) {
		fail("PRECONDITION", "%s must not be nil", name)
	}
}

func isNilValue(value interface{}) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return v.IsNil()
	default:
		return false
	}
}

// ExpectNoError panics if err is not nil.
// Used where a failure can only mean the grammar itself is wrong, e.g. a
// typed AST setter reporting an occupied slot.
//
// Example:
//
//	err := op.SetLeft(acc)
//	invariant.ExpectNoError(err, "attach left operand")
func ExpectNoError(err error, msg string) {
	if err != nil {
		fail("INVARIANT", "%s must not fail: %v", msg, err)
	}
}

// Recover converts a pending *Violation panic into an error stored in errp.
// Any other panic value is re-raised. It must be called directly by defer:
//
//	func (p *Parser) Parse(input string) (res *Result) {
//	    var err error
//	    defer invariant.Recover(&err)
//	    ...
//	}
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	v, ok := r.(*Violation)
	if !ok {
		panic(r)
	}
	*errp = v
}

// AsViolation reports whether err is (or wraps) a *Violation.
func AsViolation(err error) (*Violation, bool) {
	var v *Violation
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

// fail panics with a *Violation carrying the first caller outside this package.
func fail(kind, format string, args ...interface{}) {
	v := &Violation{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}

	// Skip runtime.Callers, fail() and the exported wrapper.
	pc := make([]uintptr, 4)
	n := runtime.Callers(3, pc)
	frames := runtime.CallersFrames(pc[:n])
	if frame, ok := frames.Next(); ok {
		v.File = frame.File
		v.Line = frame.Line
	}

	panic(v)
}
