package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"deptnorm/internal/config"
	"deptnorm/internal/logger"
	"deptnorm/internal/report"
	"deptnorm/internal/source"
	"deptnorm/internal/standardize"
)

// flagKeys maps command-line flags onto configuration paths.
var flagKeys = map[string]string{
	"input":         "input.path",
	"column":        "input.column",
	"encoding":      "input.encoding",
	"delimiter":     "input.delimiter",
	"null-values":   "input.null_values",
	"sniff":         "input.sniff",
	"output":        "output.path",
	"crlf":          "output.crlf",
	"format":        "report.format",
	"sample-column": "report.sample_column",
	"sample-size":   "report.sample_size",
	"strict":        "report.strict",
	"log-level":     "log.level",
	"log-json":      "log.json",
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("input", "i", "", "Input file or glob (newest match wins)")
	f.StringP("output", "o", "", "Output file, overwritten if it exists")
	f.StringP("column", "c", "", "Department column name (case-insensitive)")
	f.String("encoding", "", "Input encoding (utf-8, latin-1, windows-1252, utf-16, ...)")
	f.String("delimiter", "", "Field delimiter")
	f.String("null-values", "", "Comma-separated cell texts read as missing")
	f.Bool("sniff", true, "Reject input that does not look like text")
	f.Bool("crlf", false, "Write CRLF line endings")
	f.StringP("format", "f", "", "Report format (text, json, yaml)")
	f.String("sample-column", "", "Column shown next to department in the sample")
	f.Int("sample-size", 0, "Number of sample records in the detailed report")
	f.Bool("strict", false, "Fail without writing when values remain unmapped")
}

func loadConfig(cmd *cobra.Command, fs afero.Fs) (*config.Config, error) {
	flags := cmd.Flags()
	envFile, err := flags.GetString("env-file")
	if err != nil {
		return nil, fmt.Errorf("failed to get env-file flag: %w", err)
	}
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	file, err := flags.GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}

	overrides := make(map[string]any)
	flags.Visit(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			overrides[key] = f.Value.String()
		}
	})
	return config.Load(fs, config.LoadOptions{File: file, Overrides: overrides})
}

func run(cmd *cobra.Command, fs afero.Fs, detail report.Detail) error {
	cfg, err := loadConfig(cmd, fs)
	if err != nil {
		return err
	}

	log := logger.NewLogger(&logger.Config{
		Level:      logger.LogLevel(cfg.Log.Level),
		Output:     cmd.ErrOrStderr(),
		JSON:       cfg.Log.JSON,
		TimeFormat: "15:04:05",
	})
	ctx := logger.ContextWithLogger(cmd.Context(), log)

	summary, err := standardize.Run(ctx, fs, standardize.Options{
		InputPath:    cfg.Input.Path,
		OutputPath:   cfg.Output.Path,
		Column:       cfg.Input.Column,
		Encoding:     cfg.Input.Encoding,
		Delimiter:    cfg.Input.DelimiterRune(),
		NullValues:   cfg.Input.NullValues,
		Sniff:        cfg.Input.Sniff,
		CRLF:         cfg.Output.CRLF,
		SampleColumn: cfg.Report.SampleColumn,
		SampleSize:   cfg.Report.SampleSize,
		Strict:       cfg.Report.Strict,
	})

	out := cmd.OutOrStdout()
	format := report.Format(cfg.Report.Format)
	if err != nil {
		if rerr := writeFailure(out, summary, format, detail, err); rerr != nil {
			log.Error("Failed to write report", "error", rerr)
		}
		return err
	}
	return report.Write(out, summary, format, detail)
}

// writeFailure prints what is known about a failed run. Failures without a
// dedicated report are left to the caller's error line.
func writeFailure(w io.Writer, summary *report.Summary, format report.Format, detail report.Detail, err error) error {
	if summary != nil {
		return report.Write(w, summary, format, detail)
	}
	if format != report.FormatText {
		return nil
	}
	var colErr *standardize.ColumnNotFoundError
	if errors.As(err, &colErr) {
		return report.WriteColumnNotFound(w, colErr.Column, colErr.Available)
	}
	var nfErr *source.NotFoundError
	if errors.As(err, &nfErr) {
		return report.WriteInputNotFound(w, nfErr.Path, nfErr.Dir, nfErr.Siblings)
	}
	return nil
}

// PrintError writes a one-line styled error.
func PrintError(w io.Writer, err error) {
	if err == nil {
		return
	}
	style := lipgloss.NewRenderer(w).NewStyle().
		Foreground(lipgloss.Color("#FF6B6B")).
		Bold(true)
	fmt.Fprintln(w, style.Render("Error: "+err.Error()))
}
