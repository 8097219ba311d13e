// Package cli provides the reportly command-line interface: the HTTP server,
// schema migrations and offline access to the report assembler and SQL
// formatter.
package cli

import (
	"github.com/spf13/cobra"
)

// rootOptions are flags shared by every subcommand.
type rootOptions struct {
	configPath string
	version    string
}

// NewRootCmd creates and returns the root command.
func NewRootCmd(version string) *cobra.Command {
	opts := &rootOptions{version: version}

	rootCmd := &cobra.Command{
		Use:   "reportly",
		Short: "Reportly - SQL script library and spreadsheet reports",
		Long: `Reportly keeps a versioned library of SQL scripts and turns tabular data
into branded Excel reports.

Run "reportly serve" for the web API, or use render/format/highlight offline.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: ./config.yaml)")

	rootCmd.AddCommand(newServeCommand(opts))
	rootCmd.AddCommand(newMigrateCommand(opts))
	rootCmd.AddCommand(newRenderCommand())
	rootCmd.AddCommand(newFormatCommand())
	rootCmd.AddCommand(newHighlightCommand())
	rootCmd.AddCommand(newVersionCommand(version))

	return rootCmd
}

func newVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write([]byte("reportly " + version + "\n"))
			return err
		},
	}
}
