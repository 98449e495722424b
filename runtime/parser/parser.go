// Package parser is the recursive-descent grammar of the expression language.
//
//	expr    := term (('+' | '-') term)*
//	term    := factor (('*' | '/' | '%') factor)*
//	factor  := id | '(' expr ')'
//	id      := fcall | value | var
//	fcall   := ['$'] dottedName '(' args ')'
//	args    := [expr (',' expr)*]
//	var     := ['$'] dottedName
//	value   := number
//	number  := natural
//
// Every rule takes a cursor and returns a State holding the advanced cursor
// and the AST node built from what it consumed, or false when it does not
// match. A rule that fails leaves nothing behind, so callers try the next
// alternative with the cursor they already hold.
//
// fcall is tried before var because both start with a dotted name. Binary
// operators fold to the left: "a - b + c" is "(a - b) + c".
package parser

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/opal-lang/exprparse/core/ast"
	"github.com/opal-lang/exprparse/core/invariant"
	"github.com/opal-lang/exprparse/runtime/lexer"
	"github.com/opal-lang/exprparse/runtime/match"
)

var (
	naturalToken = lexer.Token(lexer.Natural)
	nameToken    = match.Seq(lexer.Whitespace, lexer.Dollar, lexer.DottedName)
	callOpen     = match.Char('(')
	openParen    = lexer.Symbol('(')
	closeParen   = lexer.Symbol(')')
	comma        = lexer.Symbol(',')
	mulOp        = lexer.Symbol('*', '/', '%')
	addOp        = lexer.Symbol('+', '-')
)

// rule is the signature shared by every grammar production.
type rule func(match.Cursor) (State, bool)

// Parser runs the grammar. It keeps per-parse telemetry and debug buffers and
// is not safe for concurrent use; create one per goroutine.
type Parser struct {
	config      *ParserConfig
	telemetry   *ParseTelemetry
	debugEvents []DebugEvent
	start       rule // top-level production, Expr
}

// New creates a parser with the given options.
func New(opts ...ParserOpt) *Parser {
	config := &ParserConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(config)
	}
	p := &Parser{config: config}
	p.start = p.Expr
	return p
}

// Parse parses input as a single expression with a fresh parser.
func Parse(input string, opts ...ParserOpt) *Result {
	return New(opts...).Parse(input)
}

// Parse parses the whole input as one expression. Trailing whitespace is
// allowed. Invariant violations raised while building the tree are reported
// as StatusInternalError rather than as an incomplete parse.
func (p *Parser) Parse(input string) *Result {
	p.reset()
	log := p.config.logger

	var start time.Time
	if p.config.telemetry >= TelemetryTiming {
		start = time.Now()
	}

	log.Debug("parse started", zap.Int("bytes", len(input)))

	begin := match.New(input)
	root, end, err := p.parseRoot(begin)

	if p.telemetry != nil && p.config.telemetry >= TelemetryTiming {
		p.telemetry.ParseTime = time.Since(start)
	}

	res := &Result{
		Cursor:      end,
		Telemetry:   p.telemetry,
		DebugEvents: p.debugEvents,
	}

	switch {
	case err != nil:
		res.Status = StatusInternalError
		res.Cursor = begin
		res.Err = err
		log.Error("internal parser error", zap.Error(err))
	case root == nil:
		res.Status = StatusIncomplete
		res.Err = &IncompleteError{Pos: end.Pos(), Remaining: end.Remaining()}
	default:
		invariant.Postcondition(end.Complete(), "complete parse must consume all input, %d bytes left", len(end.Remaining()))
		res.Status = StatusComplete
		res.Root = root
	}

	log.Debug("parse finished",
		zap.Stringer("status", res.Status),
		zap.Int("pos", res.Pos()),
	)

	return res
}

// parseRoot runs expr over the input and wraps it in a Root. A nil root with
// a nil error means the input was not fully consumed; end is then where
// consumption stopped.
func (p *Parser) parseRoot(c match.Cursor) (root *ast.Root, end match.Cursor, err error) {
	end = c
	defer invariant.Recover(&err)

	st, ok := p.start(c)
	if !ok {
		return nil, c, nil
	}

	end, _ = lexer.Whitespace(st.Cursor)
	if !end.Complete() {
		return nil, end, nil
	}

	root = &ast.Root{}
	p.built()
	invariant.ExpectNoError(ast.AppendChild(root, st.Node), "attach root expression")
	return root, end, nil
}

func (p *Parser) reset() {
	p.telemetry = nil
	p.debugEvents = nil
	if p.config.telemetry >= TelemetryBasic {
		p.telemetry = &ParseTelemetry{}
	}
	if p.config.debug > DebugOff {
		p.debugEvents = make([]DebugEvent, 0, 64)
	}
}

// Natural parses an unsigned integer literal. Numerals that overflow uint64
// do not match.
func (p *Parser) Natural(c match.Cursor) (st State, ok bool) {
	p.enter("natural", c)
	defer func() { p.exit("natural", st, ok) }()

	next, ok := naturalToken(c)
	if !ok {
		return State{}, false
	}
	n, err := ast.NewNatural(next.Matched())
	if err != nil {
		return State{}, false
	}
	p.built()
	return State{Cursor: next, Node: n}, true
}

// Number parses a numeric literal. Only naturals exist today.
func (p *Parser) Number(c match.Cursor) (State, bool) {
	return p.Natural(c)
}

// Value parses a literal value.
func (p *Parser) Value(c match.Cursor) (State, bool) {
	return p.Number(c)
}

// Var parses a variable reference. The stored name has no '$' prefix and no
// whitespace around dots.
func (p *Parser) Var(c match.Cursor) (st State, ok bool) {
	p.enter("var", c)
	defer func() { p.exit("var", st, ok) }()

	next, ok := nameToken(c)
	if !ok {
		return State{}, false
	}
	p.built()
	return State{Cursor: next, Node: &ast.VarRef{Name: next.Matched()}}, true
}

// Args parses a comma separated argument list. An empty list matches without
// consuming anything; a comma not followed by an expression fails the rule.
func (p *Parser) Args(c match.Cursor) (st State, ok bool) {
	p.enter("args", c)
	defer func() { p.exit("args", st, ok) }()

	args := &ast.FnArgs{}
	p.built()

	first, ok := p.Expr(c)
	if !ok {
		return State{Cursor: c.WithMatched(""), Node: args}, true
	}
	invariant.ExpectNoError(ast.AppendChild(args, first.Node), "append first argument")

	cur := first.Cursor
	for {
		sep, ok := comma(cur)
		if !ok {
			break
		}
		arg, ok := p.Expr(sep)
		if !ok {
			return State{}, false
		}
		invariant.ExpectNoError(ast.AppendChild(args, arg.Node), "append argument")
		cur = arg.Cursor
	}

	return State{Cursor: cur, Node: args}, true
}

// FnCall parses a call. The '(' must follow the callee name directly; any
// missing piece fails the whole rule.
func (p *Parser) FnCall(c match.Cursor) (st State, ok bool) {
	p.enter("fcall", c)
	defer func() { p.exit("fcall", st, ok) }()

	name, ok := nameToken(c)
	if !ok {
		return State{}, false
	}
	open, ok := callOpen(name)
	if !ok {
		return State{}, false
	}
	args, ok := p.Args(open)
	if !ok {
		return State{}, false
	}
	end, ok := closeParen(args.Cursor)
	if !ok {
		return State{}, false
	}

	fnArgs, isArgs := args.Node.(*ast.FnArgs)
	invariant.Invariant(isArgs, "args rule produced %T", args.Node)
	p.built()
	return State{Cursor: end, Node: ast.NewFnCall(name.Matched(), fnArgs)}, true
}

// ID parses a call, a literal or a variable, in that order.
func (p *Parser) ID(c match.Cursor) (st State, ok bool) {
	p.enter("id", c)
	defer func() { p.exit("id", st, ok) }()

	for _, alt := range []rule{p.FnCall, p.Value, p.Var} {
		if st, ok := alt(c); ok {
			return st, true
		}
	}
	return State{}, false
}

// Factor parses an id or a parenthesised expression.
func (p *Parser) Factor(c match.Cursor) (st State, ok bool) {
	p.enter("factor", c)
	defer func() { p.exit("factor", st, ok) }()

	if st, ok := p.ID(c); ok {
		return st, true
	}

	open, ok := openParen(c)
	if !ok {
		return State{}, false
	}
	inner, ok := p.Expr(open)
	if !ok {
		return State{}, false
	}
	end, ok := closeParen(inner.Cursor)
	if !ok {
		return State{}, false
	}
	return State{Cursor: end, Node: inner.Node}, true
}

// Term parses multiplicative operators.
func (p *Parser) Term(c match.Cursor) (st State, ok bool) {
	p.enter("term", c)
	defer func() { p.exit("term", st, ok) }()

	return p.foldLeft(c, p.Factor, mulOp)
}

// Expr parses additive operators.
func (p *Parser) Expr(c match.Cursor) (st State, ok bool) {
	p.enter("expr", c)
	defer func() { p.exit("expr", st, ok) }()

	return p.foldLeft(c, p.Term, addOp)
}

// foldLeft parses operand (op operand)*. Each extension is built as a new
// BinaryOp holding its right operand; the accumulated tree then becomes its
// left operand and the new node becomes the accumulator.
func (p *Parser) foldLeft(c match.Cursor, operand rule, op match.Matcher) (State, bool) {
	acc, ok := operand(c)
	if !ok {
		return State{}, false
	}

	for {
		ext, ok := p.extension(acc.Cursor, operand, op)
		if !ok {
			return acc, true
		}
		invariant.ExpectNoError(ast.PrependChild(ext.Node, acc.Node), "attach left operand")
		acc = ext
	}
}

// extension parses "op operand" into a BinaryOp with only its right slot set.
func (p *Parser) extension(c match.Cursor, operand rule, op match.Matcher) (State, bool) {
	opCur, ok := op(c)
	if !ok {
		return State{}, false
	}
	rhs, ok := operand(opCur)
	if !ok {
		return State{}, false
	}

	node := &ast.BinaryOp{Op: opCur.Matched()}
	p.built()
	invariant.ExpectNoError(ast.AppendChild(node, rhs.Node), "attach right operand")
	return State{Cursor: rhs.Cursor, Node: node}, true
}

func (p *Parser) built() {
	if p.telemetry != nil {
		p.telemetry.NodesBuilt++
	}
}

func (p *Parser) enter(name string, c match.Cursor) {
	if p.telemetry != nil {
		p.telemetry.RuleCalls++
	}
	if p.config.debug > DebugOff {
		p.recordDebugEvent("enter_"+name, c.Pos(), "")
	}
}

func (p *Parser) exit(name string, st State, ok bool) {
	if !ok && p.telemetry != nil {
		p.telemetry.Backtracks++
	}
	if p.config.debug == DebugOff {
		return
	}

	pos := st.Cursor.Pos()
	context := "no match"
	if ok {
		context = "ok"
		if p.config.debug >= DebugDetailed {
			context = fmt.Sprintf("ok node=%s", st.Node)
		}
	}
	p.recordDebugEvent("exit_"+name, pos, context)
}

// recordDebugEvent records debug events when debug tracing is enabled
func (p *Parser) recordDebugEvent(event string, pos int, context string) {
	if p.config.debug == DebugOff || p.debugEvents == nil {
		return
	}

	p.debugEvents = append(p.debugEvents, DebugEvent{
		Timestamp: time.Now(),
		Event:     event,
		Pos:       pos,
		Context:   context,
	})
}
