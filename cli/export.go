package cli

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"deptnorm/internal/report"
)

// ExportCmd runs the same standardization with a short summary.
func ExportCmd(fs afero.Fs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Standardize the department column and export with a short summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, fs, report.Brief)
		},
	}
	addRunFlags(cmd)
	return cmd
}
