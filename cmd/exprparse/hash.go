package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opal-lang/exprparse/core/astfmt"
)

func newHashCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "hash [expr]",
		Short: "Print the BLAKE2b-256 fingerprint of an expression's tree",
		Long: `Print the BLAKE2b-256 fingerprint of an expression's tree.

The fingerprint covers the tree only: expressions that differ in whitespace,
'$' prefixes or redundant parentheses share a fingerprint.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := a.readSource(args, file)
			if err != nil {
				return err
			}
			res, err := a.parse(src)
			if err != nil {
				return err
			}

			sum, err := astfmt.Hash(res.Expr())
			if err != nil {
				return withCode(ExitInternalError, err)
			}
			_, err = fmt.Fprintln(a.stdout, sum)
			return withCode(ExitIOError, err)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the expression from a file (- for stdin)")
	return cmd
}
