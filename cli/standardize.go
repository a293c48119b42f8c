package cli

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"deptnorm/internal/report"
)

// StandardizeCmd runs the standardization with full diagnostics.
func StandardizeCmd(fs afero.Fs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "standardize",
		Short: "Standardize the department column and print a detailed analysis",
		Long: `Standardize the department column of a delimited dataset.

Leading and trailing spaces are stripped, the abbreviations Out/out/OUT
become "Out-patient" and Inp/inp/INP become "In-patient". Other values are
kept as they are and listed as unmapped. The report covers the values
before and after, the mapping table, validation figures and a sample of
records.`,
		Example: `  deptnorm standardize --input data/mapped/df_final.csv --output Data_Department_Standardized.csv
  deptnorm standardize --input 'data/mapped/df_final_*.csv' --output out.csv --strict`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, fs, report.Full)
		},
	}
	addRunFlags(cmd)
	return cmd
}
