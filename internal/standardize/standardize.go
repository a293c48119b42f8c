// Package standardize rewrites the department column of a delimited
// dataset into canonical labels and reports what changed.
package standardize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"deptnorm/internal/department"
	"deptnorm/internal/logger"
	"deptnorm/internal/report"
	"deptnorm/internal/source"
	"deptnorm/internal/table"
)

const flushEvery = 100_000

// Options is everything a run needs; nothing is read from globals.
type Options struct {
	InputPath  string
	OutputPath string
	Column     string

	Encoding   string
	Delimiter  rune
	NullValues []string
	Sniff      bool
	CRLF       bool

	SampleColumn string
	SampleSize   int

	// Strict fails the run, without writing, when any non-null value is
	// left outside the canonical labels.
	Strict bool
}

// Run streams the input through the normalizer into OutputPath.
//
// The output is written to a temporary file and only replaces OutputPath
// once every row has been processed, so a failed run never leaves a
// partial file. A missing column is detected before anything is created.
// In strict mode the summary is returned together with *UnmappedError.
func Run(ctx context.Context, fs afero.Fs, opts Options) (*report.Summary, error) {
	runID := uuid.NewString()
	log := logger.FromContext(ctx).With("run_id", runID)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	/* Resolve input ------------------------------------------------------ */
	input, err := source.Resolve(fs, opts.InputPath)
	if err != nil {
		return nil, err
	}
	if sameFile(input, opts.OutputPath) {
		return nil, fmt.Errorf("refusing to overwrite input %s", input)
	}
	if opts.Sniff {
		if err := source.Sniff(fs, input); err != nil {
			return nil, err
		}
	}

	/* Open input and locate columns -------------------------------------- */
	in, err := table.Open(fs, input, table.ReaderOptions{
		Encoding:  opts.Encoding,
		Delimiter: opts.Delimiter,
	})
	if err != nil {
		return nil, err
	}
	defer in.Close()

	header := in.Header()
	col := in.Index(opts.Column)
	if col == -1 {
		return nil, &ColumnNotFoundError{Column: opts.Column, Available: slices.Clone(header)}
	}
	sampleIdx := -1
	if opts.SampleColumn != "" {
		sampleIdx = in.Index(opts.SampleColumn)
	}
	log.Info("Loading dataset", "path", input, "columns", len(header), "column", header[col])

	/* Open output -------------------------------------------------------- */
	out, err := table.Create(fs, opts.OutputPath, table.WriterOptions{
		Delimiter: opts.Delimiter,
		CRLF:      opts.CRLF,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := out.Abort(); err != nil {
			log.Warn("Failed to clean up partial output", "error", err)
		}
	}()
	if err := out.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	/* Stream rows -------------------------------------------------------- */
	nulls := table.NewNullSet(opts.NullValues)
	stats := report.NewCollector(opts.SampleSize)

	for {
		row, err := in.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		raw := parseCell(row[col], nulls)
		normalized := department.Normalize(raw)
		obs := report.Observation{
			Raw:        raw,
			Cleaned:    department.Clean(raw),
			Normalized: normalized,
			Label:      department.Null(),
		}
		if sampleIdx >= 0 {
			obs.Label = parseCell(row[sampleIdx], nulls)
		}
		stats.Observe(obs)

		row[col] = normalized.Text
		if err := out.Write(row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", in.Row(), err)
		}
		if in.Row()%flushEvery == 0 {
			if err := out.Flush(); err != nil {
				return nil, err
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			log.Debug("Progress", "rows", in.Row()-1)
		}
	}

	summary := stats.Summary()
	summary.RunID = runID
	summary.InputPath = input
	summary.OutputPath = opts.OutputPath
	summary.Column = header[col]
	summary.Columns = len(header)
	summary.SampleColumn = opts.SampleColumn

	if len(summary.Unmapped) > 0 {
		log.Warn("Unmapped values remain", "count", len(summary.Unmapped), "values", summary.Unmapped)
		if opts.Strict {
			return summary, &UnmappedError{Values: summary.Unmapped}
		}
	}

	/* Commit ------------------------------------------------------------- */
	if err := out.Commit(); err != nil {
		return nil, err
	}
	info, err := fs.Stat(opts.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("stat output: %w", err)
	}
	summary.Saved = true
	summary.OutputBytes = info.Size()

	log.Info("Dataset saved", "path", opts.OutputPath, "records", summary.Records, "bytes", summary.OutputBytes)
	return summary, nil
}

func parseCell(cell string, nulls table.NullSet) department.Value {
	if nulls.Contains(cell) {
		return department.Null()
	}
	return department.Of(cell)
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
