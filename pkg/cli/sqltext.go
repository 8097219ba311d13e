package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	sqltext "github.com/reportly-app/reportly/pkg/sql"
)

func newFormatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "format [file]",
		Short: "Reformat a SQL script",
		Long: `Uppercase SQL keywords, collapse whitespace and start each major clause
on its own line. Reads stdin when no file is given.`,
		Example: `  reportly format monthly_sales.sql
  cat query.sql | reportly format`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return transformSQL(cmd, args, sqltext.Format)
		},
	}
}

func newHighlightCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "highlight [file]",
		Short: "Render a SQL script as highlighted HTML",
		Long: `Escape the script for HTML and wrap keywords and functions in spans with
the sql-keyword and sql-function classes. Reads stdin when no file is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return transformSQL(cmd, args, sqltext.Highlight)
		},
	}
}

func transformSQL(cmd *cobra.Command, args []string, fn func(string) string) error {
	input, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), fn(string(input)))
	return err
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return data, nil
}
