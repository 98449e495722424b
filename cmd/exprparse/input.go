package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// readSource handles the 4 modes of input:
// 1. Expression given as the only argument
// 2. Explicit stdin with -f -
// 3. File input with -f path
// 4. Piped input when neither is given
func (a *app) readSource(args []string, file string) (string, error) {
	switch {
	case len(args) > 0 && file != "":
		return "", withCode(ExitInvalidArguments, errors.New("give an expression or --file, not both"))
	case len(args) > 0:
		return args[0], nil
	case file == "-":
		return readAll(a.stdin, "stdin")
	case file != "":
		content, err := os.ReadFile(file)
		if err != nil {
			return "", withCode(ExitIOError, fmt.Errorf("error opening file %s: %w", file, err))
		}
		return string(content), nil
	case hasPipedInput(a.stdin):
		return readAll(a.stdin, "stdin")
	default:
		return "", withCode(ExitInvalidArguments, errors.New("no input: give an expression, --file, or pipe to stdin"))
	}
}

func readAll(r io.Reader, name string) (string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", withCode(ExitIOError, fmt.Errorf("error reading %s: %w", name, err))
	}
	return string(content), nil
}

// hasPipedInput detects if there's data piped to stdin. Readers that are not
// files are always treated as piped.
func hasPipedInput(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return r != nil
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}

	// Check if stdin is not a character device (i.e., it's piped)
	// Note: We don't check Size() > 0 because pipes may not report size correctly
	return (stat.Mode() & os.ModeCharDevice) == 0
}
