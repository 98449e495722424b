package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/exprparse/core/astfmt"
)

type runResult struct {
	stdout string
	stderr string
	err    error
}

func (r runResult) code() int { return exitCode(r.err) }

// run executes the root command with the given stdin and arguments.
func run(t *testing.T, stdin io.Reader, args ...string) runResult {
	t.Helper()
	return runContext(t, context.Background(), stdin, args...)
}

func runContext(t *testing.T, ctx context.Context, stdin io.Reader, args ...string) runResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	a := &app{stdin: stdin, stdout: &stdout, stderr: &stderr}
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return runResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"default sexpr", []string{"parse", "31 * 91 + 21"}, "(+ (* 31 91) 21)\n"},
		{"explicit sexpr", []string{"parse", "--format", "sexpr", "$fn($a, 2)"}, "(call fn (args (var a) 2))\n"},
		{"tree", []string{"parse", "--no-color", "--format", "tree", "1 + 2"}, "+\n├─ 1\n└─ 2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := run(t, nil, tt.args...)
			require.NoError(t, r.err)
			assert.Equal(t, tt.want, r.stdout)
			assert.Empty(t, r.stderr)
		})
	}
}

func TestParseJSONDocument(t *testing.T) {
	r := run(t, nil, "parse", "--format", "json", "a - 1")
	require.NoError(t, r.err)

	doc, err := astfmt.DecodeDocument([]byte(r.stdout))
	require.NoError(t, err)
	assert.Equal(t, astfmt.DocumentVersion, doc.Version)
	assert.Equal(t, "a - 1", doc.Source)

	n, err := doc.Node()
	require.NoError(t, err)
	assert.Equal(t, "(- (var a) 1)", n.String())
}

func TestParseCBOR(t *testing.T) {
	r := run(t, nil, "parse", "--format", "cbor", "f(1, 2) % 3")
	require.NoError(t, r.err)

	var c astfmt.Canonical
	require.NoError(t, c.UnmarshalBinary([]byte(r.stdout)))
	n, err := c.Node()
	require.NoError(t, err)
	assert.Equal(t, "(% (call f (args 1 2)) 3)", n.String())
}

func TestParseInputSources(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "expr.txt", "2 * (3 + 4)\n")

	tests := []struct {
		name  string
		stdin io.Reader
		args  []string
	}{
		{"argument", nil, []string{"parse", "2 * (3 + 4)"}},
		{"file", nil, []string{"parse", "-f", path}},
		{"explicit stdin", strings.NewReader("2*(3+4)"), []string{"parse", "-f", "-"}},
		{"piped stdin", strings.NewReader("2 * (3+4)"), []string{"parse"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := run(t, tt.stdin, tt.args...)
			require.NoError(t, r.err)
			assert.Equal(t, "(* 2 (+ 3 4))\n", r.stdout)
		})
	}
}

func TestParseErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		stdin    io.Reader
		args     []string
		wantCode int
		wantErr  string
	}{
		{"incomplete", nil, []string{"parse", "1 + 2 *"}, ExitIncomplete, "incomplete"},
		{"empty", nil, []string{"parse", ""}, ExitIncomplete, "incomplete"},
		{"unknown format", nil, []string{"parse", "--format", "xml", "1"}, ExitInvalidArguments, "unsupported format 'xml'"},
		{"argument and file", nil, []string{"parse", "-f", "x.txt", "1"}, ExitInvalidArguments, "not both"},
		{"no input", nil, []string{"parse"}, ExitInvalidArguments, "no input"},
		{"missing file", nil, []string{"parse", "-f", filepath.Join(dir, "missing.txt")}, ExitIOError, "error opening file"},
		{"too many args", nil, []string{"parse", "1", "2"}, ExitInvalidArguments, "accepts at most 1 arg"},
		{"watch without file", nil, []string{"parse", "--watch", "1"}, ExitInvalidArguments, "--watch needs --file"},
		{"watch on stdin", nil, []string{"parse", "--watch", "-f", "-"}, ExitInvalidArguments, "--watch needs --file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := run(t, tt.stdin, tt.args...)
			require.Error(t, r.err)
			assert.Equal(t, tt.wantCode, r.code())
			assert.Contains(t, r.err.Error(), tt.wantErr)
			assert.Empty(t, r.stdout)
		})
	}
}

func TestParseConfig(t *testing.T) {
	dir := t.TempDir()

	t.Run("format from yaml", func(t *testing.T) {
		cfg := writeFile(t, dir, "tree.yaml", "output:\n  format: tree\n  color: never\n")
		r := run(t, nil, "--config", cfg, "parse", "1 + 2")
		require.NoError(t, r.err)
		assert.Equal(t, "+\n├─ 1\n└─ 2\n", r.stdout)
	})

	t.Run("flag overrides config", func(t *testing.T) {
		cfg := writeFile(t, dir, "tree.toml", "[output]\nformat = \"tree\"\n")
		r := run(t, nil, "--config", cfg, "parse", "--format", "sexpr", "1 + 2")
		require.NoError(t, r.err)
		assert.Equal(t, "(+ 1 2)\n", r.stdout)
	})

	t.Run("telemetry and debug", func(t *testing.T) {
		cfg := writeFile(t, dir, "trace.yml", "parser:\n  telemetry: basic\n  debug: paths\n")
		r := run(t, nil, "--config", cfg, "parse", "1")
		require.NoError(t, r.err)
		assert.Equal(t, "1\n", r.stdout)
		assert.Contains(t, r.stderr, "telemetry: ")
		assert.Contains(t, r.stderr, "debug: enter_expr")
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := writeFile(t, dir, "bad.yaml", "output:\n  format: xml\n")
		r := run(t, nil, "--config", cfg, "parse", "1")
		assert.Equal(t, ExitInvalidArguments, r.code())
		assert.Contains(t, r.err.Error(), "output.format")
	})

	t.Run("unsupported config type", func(t *testing.T) {
		cfg := writeFile(t, dir, "config.ini", "")
		r := run(t, nil, "--config", cfg, "parse", "1")
		assert.Equal(t, ExitInvalidArguments, r.code())
	})

	t.Run("missing config", func(t *testing.T) {
		r := run(t, nil, "--config", filepath.Join(dir, "absent.yaml"), "parse", "1")
		assert.Equal(t, ExitIOError, r.code())
	})
}

func TestHash(t *testing.T) {
	fingerprint := func(t *testing.T, expr string) string {
		t.Helper()
		r := run(t, nil, "hash", expr)
		require.NoError(t, r.err)
		sum := strings.TrimSpace(r.stdout)
		assert.Len(t, sum, 64)
		return sum
	}

	base := fingerprint(t, "max($a, 2) + b.c")
	assert.Equal(t, base, fingerprint(t, "  max( a ,2 )+$b . c "))
	assert.Equal(t, base, fingerprint(t, "(max(a, 2)) + ((b.c))"))
	assert.NotEqual(t, base, fingerprint(t, "max(a, 2) - b.c"))
	assert.NotEqual(t, base, fingerprint(t, "max(2, a) + b.c"))

	r := run(t, nil, "hash", "1 +")
	assert.Equal(t, ExitIncomplete, r.code())
}

func TestDecodeRoundTrip(t *testing.T) {
	const expr = "$fn($arg0(z), 21) / 7"
	want := run(t, nil, "parse", expr).stdout

	for _, format := range []string{"json", "cbor"} {
		t.Run(format, func(t *testing.T) {
			encoded := run(t, nil, "parse", "--format", format, expr)
			require.NoError(t, encoded.err)

			r := run(t, strings.NewReader(encoded.stdout), "decode")
			require.NoError(t, r.err)
			assert.Equal(t, want, r.stdout)

			r = run(t, strings.NewReader(encoded.stdout), "decode", "--from", format, "-")
			require.NoError(t, r.err)
			assert.Equal(t, want, r.stdout)
		})
	}

	t.Run("from file to json keeps source", func(t *testing.T) {
		encoded := run(t, nil, "parse", "--format", "json", expr)
		path := writeFile(t, t.TempDir(), "tree.json", encoded.stdout)

		r := run(t, nil, "decode", "--format", "json", path)
		require.NoError(t, r.err)
		assert.Equal(t, encoded.stdout, r.stdout)
	})
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		args     []string
		wantCode int
	}{
		{"invalid json", "{", []string{"decode"}, ExitIncomplete},
		{"schema violation", `{"version":"v1.0.0","tree":{"type":"binary","op":"^"}}`, []string{"decode"}, ExitIncomplete},
		{"garbage cbor", "\xff\x00", []string{"decode"}, ExitIncomplete},
		{"unknown encoding", "{}", []string{"decode", "--from", "xml"}, ExitInvalidArguments},
		{"unknown output format", "{}", []string{"decode", "--format", "xml"}, ExitInvalidArguments},
		{"missing file", "", []string{"decode", "no-such-file.cbor"}, ExitIOError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := run(t, strings.NewReader(tt.input), tt.args...)
			require.Error(t, r.err)
			assert.Equal(t, tt.wantCode, r.code())
		})
	}
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "symbols.yaml", `symbols:
  functions:
    max: 2
    count: -1
  variables: [x, y]
`)

	t.Run("clean files", func(t *testing.T) {
		a := writeFile(t, dir, "a.txt", "max(x, y)\n\ncount(1, 2, 3) * x\n")
		b := writeFile(t, dir, "b.txt", "1 + 2\r\n")

		r := run(t, nil, "--no-color", "--config", cfg, "check", a, b)
		require.NoError(t, r.err)
		assert.Equal(t, "checked 3 expressions in 2 files: 0 errors, 0 warnings\n", r.stdout)
	})

	t.Run("warnings keep exit code", func(t *testing.T) {
		path := writeFile(t, dir, "warn.txt", "mx(x, 1)\nmax(1, 2, 3)\nz + 1\n")

		r := run(t, nil, "--no-color", "--config", cfg, "check", path)
		require.NoError(t, r.err)
		assert.Contains(t, r.stdout, "warning: unknown-function\n --> "+path+":1\n")
		assert.Contains(t, r.stdout, "unknown function: mx (did you mean 'max'?)")
		assert.Contains(t, r.stdout, "max expects 2 arguments, got 3")
		assert.Contains(t, r.stdout, "unknown variable: z")
		assert.Contains(t, r.stdout, "checked 3 expressions in 1 file: 0 errors, 3 warnings\n")
	})

	t.Run("parse errors", func(t *testing.T) {
		path := writeFile(t, dir, "bad.txt", "1 + 2\n1 + 2 *\n")

		r := run(t, nil, "--no-color", "--config", cfg, "check", path)
		require.Error(t, r.err)
		assert.Equal(t, ExitIncomplete, r.code())

		want := "error: incomplete\n" +
			" --> " + path + ":2:7\n" +
			"  |\n" +
			"2 | 1 + 2 *\n" +
			"  |       ^ unexpected input\n\n"
		assert.Contains(t, r.stdout, want)
		assert.Contains(t, r.stdout, "checked 2 expressions in 1 file: 1 error, 0 warnings\n")
	})

	t.Run("unreadable file", func(t *testing.T) {
		good := writeFile(t, dir, "good.txt", "1\n")
		missing := filepath.Join(dir, "missing.txt")

		r := run(t, nil, "--no-color", "check", good, missing)
		assert.Equal(t, ExitIOError, r.code())
		assert.Contains(t, r.stdout, "error: io-error\n --> "+missing+"\n")
	})

	t.Run("no files", func(t *testing.T) {
		r := run(t, nil, "check")
		assert.Equal(t, ExitInvalidArguments, r.code())
	})
}

func TestWatchStopsOnCancel(t *testing.T) {
	path := writeFile(t, t.TempDir(), "expr.txt", "6 / 3")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := runContext(t, ctx, nil, "parse", "--watch", "-f", path)
	require.NoError(t, r.err)
	assert.Equal(t, "(/ 6 3)\n", r.stdout)
}

func TestWatchReportsErrorsAndContinues(t *testing.T) {
	path := writeFile(t, t.TempDir(), "expr.txt", "6 /")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := runContext(t, ctx, nil, "parse", "--watch", "-f", path)
	require.NoError(t, r.err)
	assert.Empty(t, r.stdout)
	assert.Contains(t, r.stderr, "Error: ")
}

// syncBuffer is a bytes.Buffer safe to read while a command writes to it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchReparsesLastWriteOfBurst(t *testing.T) {
	path := writeFile(t, t.TempDir(), "expr.txt", "1 + 2")

	var stdout, stderr syncBuffer
	a := &app{stdout: &stdout, stderr: &stderr}
	cmd := newRootCmd(a)
	cmd.SetArgs([]string{"parse", "--watch", "-f", path})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	require.Eventually(t, func() bool { return stdout.String() == "(+ 1 2)\n" },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("3 * 4"), 0o644))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("5 - 6"), 0o644))

	assert.Eventually(t, func() bool { return strings.HasSuffix(stdout.String(), "(- 5 6)\n") },
		2*time.Second, 10*time.Millisecond, "stdout: %q", stdout.String())
	assert.Empty(t, stderr.String())
}

func TestExitCode(t *testing.T) {
	base := errors.New("boom")

	assert.Equal(t, ExitSuccess, exitCode(nil))
	assert.Equal(t, ExitInvalidArguments, exitCode(base))
	assert.Equal(t, ExitIOError, exitCode(withCode(ExitIOError, base)))
	assert.Nil(t, withCode(ExitIOError, nil))

	// the innermost code wins
	wrapped := withCode(ExitInternalError, withCode(ExitIncomplete, base))
	assert.Equal(t, ExitIncomplete, exitCode(wrapped))
	assert.ErrorIs(t, wrapped, base)
}

func TestHasPipedInput(t *testing.T) {
	assert.True(t, hasPipedInput(strings.NewReader("1")))
	assert.False(t, hasPipedInput(nil))

	f, err := os.CreateTemp(t.TempDir(), "stdin")
	require.NoError(t, err)
	defer f.Close()
	assert.True(t, hasPipedInput(f))
}
