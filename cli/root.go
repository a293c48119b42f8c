package cli

import (
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"deptnorm/internal/config"
)

// RootCmd wires the command tree against the real filesystem and stdout.
func RootCmd() *cobra.Command {
	return NewRootCmd(afero.NewOsFs(), os.Stdout)
}

// NewRootCmd builds the command tree over fs, writing reports to out.
func NewRootCmd(fs afero.Fs, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "deptnorm",
		Short:         "Standardize DEPARTMENT labels in delimited datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	root.PersistentFlags().String("config", "", "YAML config file (default ./"+config.DefaultFile+" when present)")
	root.PersistentFlags().String("env-file", ".env", "Environment file loaded before configuration")
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error, disabled)")
	root.PersistentFlags().Bool("log-json", false, "Emit logs as JSON")

	root.AddCommand(
		StandardizeCmd(fs),
		ExportCmd(fs),
	)
	return root
}
