package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opal-lang/exprparse/core/ast"
	"github.com/opal-lang/exprparse/core/astfmt"
	"github.com/opal-lang/exprparse/core/astfmt/formatter"
	"github.com/opal-lang/exprparse/internal/config"
	"github.com/opal-lang/exprparse/runtime/parser"
)

func newParseCmd(a *app) *cobra.Command {
	var (
		file   string
		format string
		watch  bool
	)

	cmd := &cobra.Command{
		Use:   "parse [expr]",
		Short: "Parse an expression and print its syntax tree",
		Long: `Parse an expression and print its syntax tree.

The expression is read from the argument, from --file, or from stdin.
Formats: sexpr (default), tree, json, cbor.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFmt, err := a.outputFormat(format)
			if err != nil {
				return err
			}

			if watch {
				if file == "" || file == "-" {
					return withCode(ExitInvalidArguments, fmt.Errorf("--watch needs --file with a path"))
				}
				return a.watch(cmd.Context(), file, func(src string) error {
					return a.parseAndRender(src, outFmt)
				})
			}

			src, err := a.readSource(args, file)
			if err != nil {
				return err
			}
			return a.parseAndRender(src, outFmt)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the expression from a file (- for stdin)")
	cmd.Flags().StringVar(&format, "format", "", "Output format: "+strings.Join(config.Formats, ", "))
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-parse --file whenever it changes")
	return cmd
}

// outputFormat resolves --format against the config file.
func (a *app) outputFormat(flag string) (string, error) {
	if flag == "" {
		return a.cfg.Output.Format, nil
	}
	for _, f := range config.Formats {
		if f == flag {
			return flag, nil
		}
	}
	return "", withCode(ExitInvalidArguments, fmt.Errorf("unsupported format '%s'. Use one of: %s", flag, strings.Join(config.Formats, ", ")))
}

func (a *app) parseAndRender(src, format string) error {
	res, err := a.parse(src)
	if err != nil {
		return err
	}
	return a.render(a.stdout, src, res.Expr(), format)
}

// parse runs the parser with the configured options and maps the result
// status onto an exit code.
func (a *app) parse(src string) (*parser.Result, error) {
	opts := append(a.cfg.ParserOpts(), parser.WithLogger(a.logger))
	res := parser.Parse(src, opts...)
	a.report(res)

	switch res.Status {
	case parser.StatusComplete:
		return res, nil
	case parser.StatusIncomplete:
		return res, withCode(ExitIncomplete, res.Err)
	default:
		return res, withCode(ExitInternalError, res.Err)
	}
}

// report prints telemetry and debug events enabled in the config to stderr.
func (a *app) report(res *parser.Result) {
	if t := res.Telemetry; t != nil {
		a.logger.Debug("parse telemetry",
			zap.Int("rule_calls", t.RuleCalls),
			zap.Int("backtracks", t.Backtracks),
			zap.Int("nodes_built", t.NodesBuilt),
			zap.Duration("parse_time", t.ParseTime),
		)
		fmt.Fprintf(a.stderr, "telemetry: %d rule calls, %d backtracks, %d nodes", t.RuleCalls, t.Backtracks, t.NodesBuilt)
		if t.ParseTime > 0 {
			fmt.Fprintf(a.stderr, ", %s", t.ParseTime)
		}
		fmt.Fprintln(a.stderr)
	}
	for _, ev := range res.DebugEvents {
		if ev.Context == "" {
			fmt.Fprintf(a.stderr, "debug: %-14s @%d\n", ev.Event, ev.Pos)
			continue
		}
		fmt.Fprintf(a.stderr, "debug: %-14s @%d %s\n", ev.Event, ev.Pos, ev.Context)
	}
}

// render writes expression n in the given format. src is recorded in JSON
// documents and may be empty.
func (a *app) render(w io.Writer, src string, n ast.Node, format string) error {
	switch format {
	case config.FormatSExpr:
		_, err := fmt.Fprintln(w, n)
		return withCode(ExitIOError, err)

	case config.FormatTree:
		formatter.Tree(w, n, a.cfg.UseColor(a.noColor))
		return nil

	case config.FormatJSON:
		doc, err := astfmt.NewDocument(src, n)
		if err != nil {
			return withCode(ExitInternalError, err)
		}
		return withCode(ExitIOError, doc.WriteJSON(w))

	case config.FormatCBOR:
		c, err := astfmt.Canonicalize(n)
		if err != nil {
			return withCode(ExitInternalError, err)
		}
		data, err := c.MarshalBinary()
		if err != nil {
			return withCode(ExitInternalError, err)
		}
		_, err = w.Write(data)
		return withCode(ExitIOError, err)

	default:
		return withCode(ExitInvalidArguments, fmt.Errorf("unsupported format '%s'", format))
	}
}
