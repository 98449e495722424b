package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opal-lang/exprparse/core/ast"
	"github.com/opal-lang/exprparse/core/astfmt"
	"github.com/opal-lang/exprparse/internal/config"
)

func newDecodeCmd(a *app) *cobra.Command {
	var (
		from   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "Read a JSON or CBOR tree written by parse and print it",
		Long: `Read a tree written by "parse --format json" or "parse --format cbor"
and print it in another format. JSON documents are checked against the
document schema first. Without a file the tree is read from stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFmt, err := a.outputFormat(format)
			if err != nil {
				return err
			}

			data, err := a.readEncoded(args)
			if err != nil {
				return err
			}

			n, src, err := decodeTree(data, from)
			if err != nil {
				return withCode(ExitIncomplete, err)
			}
			return a.render(a.stdout, src, n, outFmt)
		},
	}

	cmd.Flags().StringVar(&from, "from", "auto", "Input encoding: auto, json, cbor")
	cmd.Flags().StringVar(&format, "format", "", "Output format: "+strings.Join(config.Formats, ", "))
	return cmd
}

func (a *app) readEncoded(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return nil, withCode(ExitIOError, fmt.Errorf("error reading stdin: %w", err))
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, withCode(ExitIOError, fmt.Errorf("error opening file %s: %w", args[0], err))
	}
	return data, nil
}

// decodeTree decodes a JSON document or canonical CBOR. With "auto", input
// starting with '{' is JSON.
func decodeTree(data []byte, from string) (ast.Node, string, error) {
	if from == "auto" {
		from = "cbor"
		if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
			from = "json"
		}
	}

	switch from {
	case "json":
		doc, err := astfmt.DecodeDocument(data)
		if err != nil {
			return nil, "", err
		}
		n, err := doc.Node()
		return n, doc.Source, err

	case "cbor":
		var c astfmt.Canonical
		if err := c.UnmarshalBinary(data); err != nil {
			return nil, "", err
		}
		n, err := c.Node()
		return n, "", err

	default:
		return nil, "", withCode(ExitInvalidArguments, fmt.Errorf("unsupported input encoding '%s'. Use auto, json or cbor", from))
	}
}
