package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opal-lang/exprparse/runtime/parser"
	"github.com/opal-lang/exprparse/runtime/validation"
)

// Issue rules that are not validation warnings.
const (
	ruleIncomplete = "incomplete"
	ruleInternal   = "internal-error"
	ruleIO         = "io-error"
)

// Issue is one problem reported by check.
type Issue struct {
	File    string
	Line    int // 1-based; 0 for file-level problems
	Column  int // 1-based rune column; 0 when unknown
	Source  string
	Rule    string
	Message string
	Warning bool
}

type fileReport struct {
	exprs  int
	issues []Issue
	code   int
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check [files...]",
		Short: "Parse and validate files holding one expression per line",
		Long: `Parse every non-empty line of the given files and check calls and
variables against the symbols section of the config file.

Lines that do not parse are errors. Unknown names and arity mismatches are
warnings and do not change the exit code.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.check(cmd.Context(), args)
		},
	}
}

func (a *app) check(ctx context.Context, files []string) error {
	symbols := a.cfg.ValidationSymbols()
	reports := make([]fileReport, len(files))

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(a.stderr),
		progressbar.OptionSetVisibility(len(files) > 1 && isTerminal(a.stderr)),
		progressbar.OptionSetDescription("checking"),
		progressbar.OptionEnableColorCodes(a.cfg.UseColor(a.noColor)),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))

	// limit the number of workers
	sem := make(chan struct{}, runtime.NumCPU())
	var wg sync.WaitGroup

loop:
	for i, path := range files {
		select {
		case <-ctx.Done():
			break loop
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-sem }()

			reports[i] = a.checkFile(path, symbols)
			_ = bar.Add(1)
		}(i, path)
	}
	wg.Wait()
	_ = bar.Finish()

	if err := ctx.Err(); err != nil {
		return withCode(ExitInternalError, err)
	}

	styles := newIssueStyles(a.cfg.UseColor(a.noColor))
	var exprs, errs, warnings, code int
	for _, r := range reports {
		exprs += r.exprs
		for _, issue := range r.issues {
			fmt.Fprint(a.stdout, styles.format(issue))
			if issue.Warning {
				warnings++
			} else {
				errs++
			}
		}
		if r.code > code {
			code = r.code
		}
	}

	fmt.Fprintf(a.stdout, "checked %d expression%s in %d file%s: %d error%s, %d warning%s\n",
		exprs, plural(exprs), len(files), plural(len(files)), errs, plural(errs), warnings, plural(warnings))

	if code != ExitSuccess {
		return withCode(code, fmt.Errorf("%d error%s found", errs, plural(errs)))
	}
	return nil
}

// checkFile parses and validates every non-empty line of path with its own
// parser.
func (a *app) checkFile(path string, symbols validation.Symbols) fileReport {
	content, err := os.ReadFile(path)
	if err != nil {
		a.logger.Error("Error reading file", zap.String("file", path), zap.Error(err))
		return fileReport{
			code:   ExitIOError,
			issues: []Issue{{File: path, Rule: ruleIO, Message: err.Error()}},
		}
	}

	p := parser.New(append(a.cfg.ParserOpts(), parser.WithLogger(a.logger))...)
	var report fileReport

	for i, line := range strings.Split(string(content), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		report.exprs++

		res := p.Parse(line)
		switch res.Status {
		case parser.StatusComplete:
			for _, w := range validation.Check(res.Root, symbols) {
				report.issues = append(report.issues, Issue{
					File:    path,
					Line:    i + 1,
					Source:  line,
					Rule:    w.Kind.String(),
					Message: w.String(),
					Warning: true,
				})
			}

		case parser.StatusIncomplete:
			report.issues = append(report.issues, Issue{
				File:    path,
				Line:    i + 1,
				Column:  utf8.RuneCountInString(line[:res.Pos()]) + 1,
				Source:  line,
				Rule:    ruleIncomplete,
				Message: incompleteMessage(res),
			})
			report.code = max(report.code, ExitIncomplete)

		default:
			report.issues = append(report.issues, Issue{
				File:    path,
				Line:    i + 1,
				Source:  line,
				Rule:    ruleInternal,
				Message: res.Err.Error(),
			})
			report.code = max(report.code, ExitInternalError)
		}
	}

	a.logger.Debug("Checked file", zap.String("file", path), zap.Int("expressions", report.exprs), zap.Int("issues", len(report.issues)))
	return report
}

func incompleteMessage(res *parser.Result) string {
	if strings.TrimSpace(res.Remaining()) == "" {
		return "expected an expression"
	}
	return "unexpected input"
}

type issueStyles struct {
	errorStyle, warningStyle, ruleStyle, fileStyle, lineStyle, messageStyle *color.Color
}

func newIssueStyles(useColor bool) issueStyles {
	style := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	return issueStyles{
		errorStyle:   style(color.FgRed, color.Bold),
		warningStyle: style(color.FgHiYellow, color.Bold),
		ruleStyle:    style(color.FgYellow, color.Bold),
		fileStyle:    style(color.FgCyan, color.Bold),
		lineStyle:    style(color.FgBlue, color.Bold),
		messageStyle: style(color.FgRed, color.Bold),
	}
}

// format renders an issue as
//
//	error: incomplete
//	 --> exprs.txt:3:7
//	  |
//	3 | 1 + 2 )
//	  |       ^ unexpected input
func (s issueStyles) format(issue Issue) string {
	var b strings.Builder

	if issue.Warning {
		b.WriteString(s.warningStyle.Sprint("warning: "))
	} else {
		b.WriteString(s.errorStyle.Sprint("error: "))
	}
	b.WriteString(s.ruleStyle.Sprint(issue.Rule) + "\n")

	location := issue.File
	if issue.Line > 0 {
		location += fmt.Sprintf(":%d", issue.Line)
		if issue.Column > 0 {
			location += fmt.Sprintf(":%d", issue.Column)
		}
	}
	b.WriteString(s.lineStyle.Sprint(" --> ") + s.fileStyle.Sprint(location) + "\n")

	if issue.Source == "" {
		b.WriteString(s.lineStyle.Sprint("  | ") + s.messageStyle.Sprint(issue.Message) + "\n\n")
		return b.String()
	}

	lineNumber := fmt.Sprintf("%d", issue.Line)
	padding := strings.Repeat(" ", len(lineNumber))
	b.WriteString(s.lineStyle.Sprintf("%s |\n", padding))
	b.WriteString(s.lineStyle.Sprintf("%s | ", lineNumber) + issue.Source + "\n")
	b.WriteString(s.lineStyle.Sprintf("%s | ", padding))
	if issue.Column > 0 {
		b.WriteString(strings.Repeat(" ", issue.Column-1) + s.messageStyle.Sprint("^ "))
	}
	b.WriteString(s.messageStyle.Sprint(issue.Message) + "\n\n")
	return b.String()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fileInfo, err := f.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
