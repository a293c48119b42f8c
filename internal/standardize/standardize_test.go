package standardize

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deptnorm/internal/department"
	"deptnorm/internal/logger"
	"deptnorm/internal/source"
	"deptnorm/internal/table"
)

/* Helpers -------------------------------------------------------------- */

const (
	dataDir = "/data"
	inPath  = "/data/in.csv"
	outPath = "/data/out.csv"
)

func testContext(t *testing.T) context.Context {
	return logger.ContextWithLogger(t.Context(), logger.NewLogger(logger.TestConfig()))
}

func newFs(t *testing.T) afero.Fs {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(dataDir, 0o755))
	return fs
}

func writeCSV(t *testing.T, fs afero.Fs, path string, rows [][]string) {
	t.Helper()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.WriteAll(rows))
	require.NoError(t, afero.WriteFile(fs, path, buf.Bytes(), 0o644))
}

func readCSV(t *testing.T, fs afero.Fs, path string) [][]string {
	t.Helper()
	f, err := fs.Open(path)
	require.NoError(t, err)
	defer f.Close()
	all, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return all
}

func column(rows [][]string, idx int) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows[1:] {
		out = append(out, r[idx])
	}
	return out
}

func options() Options {
	return Options{
		InputPath:  inPath,
		OutputPath: outPath,
		Column:       "DEPARTMENT",
		NullValues:   table.DefaultNullValues,
		SampleColumn: "ORGANISM_NAME",
		SampleSize:   10,
	}
}

func assertNoOutput(t *testing.T, fs afero.Fs) {
	t.Helper()
	entries, err := afero.ReadDir(fs, dataDir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, filepath.Base(inPath), e.Name(), "unexpected file left behind")
	}
}

/* Run ------------------------------------------------------------------ */

func TestRun(t *testing.T) {
	t.Run("Should standardize the five-row dataset", func(t *testing.T) {
		fs := newFs(t)
		writeCSV(t, fs, inPath, [][]string{
			{"ORGANISM_NAME", "DEPARTMENT"},
			{"E. coli", "Out"},
			{"K. pneumoniae", " inp "},
			{"S. aureus", "ICU"},
			{"P. aeruginosa", ""},
			{"E. faecalis", "OUT"},
		})

		summary, err := Run(testContext(t), fs, options())
		require.NoError(t, err)

		got := readCSV(t, fs, outPath)
		assert.Equal(t, []string{"ORGANISM_NAME", "DEPARTMENT"}, got[0])
		assert.Equal(t, []string{department.OutPatient, department.InPatient, "ICU", "", department.OutPatient}, column(got, 1))
		assert.Equal(t, []string{"E. coli", "K. pneumoniae", "S. aureus", "P. aeruginosa", "E. faecalis"}, column(got, 0))

		assert.Equal(t, []string{"ICU"}, summary.Unmapped)
		assert.Equal(t, 5, summary.Records)
		assert.Equal(t, 2, summary.Columns)
		assert.Equal(t, 2, summary.OutPatient)
		assert.Equal(t, 1, summary.InPatient)
		assert.Equal(t, 1, summary.NullBefore)
		assert.Equal(t, inPath, summary.InputPath)
		assert.NotEmpty(t, summary.RunID)
		assert.True(t, summary.Saved)
		assert.Positive(t, summary.OutputBytes)
		require.Len(t, summary.Sample, 4)
		assert.Equal(t, "S. aureus", summary.Sample[2].Label)
	})

	t.Run("Should match the column case-insensitively", func(t *testing.T) {
		fs := newFs(t)
		writeCSV(t, fs, inPath, [][]string{{"id", "department"}, {"1", "inp"}})

		_, err := Run(testContext(t), fs, options())
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"id", "department"}, {"1", department.InPatient}}, readCSV(t, fs, outPath))
	})

	t.Run("Should keep other columns verbatim", func(t *testing.T) {
		fs := newFs(t)
		writeCSV(t, fs, inPath, [][]string{
			{"AGE", "DEPARTMENT", "NOTE"},
			{"NA", "NA", " spaced "},
			{"1.50", " nan ", "nan"},
		})

		_, err := Run(testContext(t), fs, options())
		require.NoError(t, err)
		assert.Equal(t, [][]string{
			{"AGE", "DEPARTMENT", "NOTE"},
			{"NA", "", " spaced "},
			{"1.50", "", "nan"},
		}, readCSV(t, fs, outPath))
	})

	t.Run("Should be idempotent across runs", func(t *testing.T) {
		fs := newFs(t)
		writeCSV(t, fs, inPath, [][]string{
			{"id", "DEPARTMENT"}, {"1", "Out"}, {"2", " INP"}, {"3", "ER "}, {"4", ""}, {"5", "nan"},
		})
		_, err := Run(testContext(t), fs, options())
		require.NoError(t, err)
		first, err := afero.ReadFile(fs, outPath)
		require.NoError(t, err)

		opts := options()
		opts.InputPath = outPath
		opts.OutputPath = "/data/again.csv"
		_, err = Run(testContext(t), fs, opts)
		require.NoError(t, err)
		second, err := afero.ReadFile(fs, "/data/again.csv")
		require.NoError(t, err)

		assert.Equal(t, string(first), string(second))
	})

	t.Run("Should keep null records when the department is the only column", func(t *testing.T) {
		fs := newFs(t)
		require.NoError(t, afero.WriteFile(fs, inPath, []byte("DEPARTMENT\nOut\nnan\nINP\n"), 0o644))

		summary, err := Run(testContext(t), fs, options())
		require.NoError(t, err)
		assert.Equal(t, 3, summary.Records)
		assert.Equal(t, 1, summary.NullBefore)

		data, err := afero.ReadFile(fs, outPath)
		require.NoError(t, err)
		assert.Equal(t, "DEPARTMENT\nOut-patient\n\"\"\nIn-patient\n", string(data))
		assert.Equal(t, [][]string{{"DEPARTMENT"}, {department.OutPatient}, {""}, {department.InPatient}}, readCSV(t, fs, outPath))

		opts := options()
		opts.InputPath = outPath
		opts.OutputPath = "/data/again.csv"
		again, err := Run(testContext(t), fs, opts)
		require.NoError(t, err)
		assert.Equal(t, 3, again.Records)
		assert.Equal(t, 1, again.NullBefore)

		second, err := afero.ReadFile(fs, "/data/again.csv")
		require.NoError(t, err)
		assert.Equal(t, string(data), string(second))
	})

	t.Run("Should handle a large file", func(t *testing.T) {
		fs := newFs(t)
		rows := [][]string{{"id", "DEPARTMENT"}}
		for i := range 1000 {
			val := "Out"
			if i%2 == 1 {
				val = "inp"
			}
			rows = append(rows, []string{fmt.Sprintf("%d", i), val})
		}
		writeCSV(t, fs, inPath, rows)

		summary, err := Run(testContext(t), fs, options())
		require.NoError(t, err)
		assert.Equal(t, 500, summary.OutPatient)
		assert.Equal(t, 500, summary.InPatient)
		assert.InDelta(t, 100.0, summary.SuccessRate, 1e-9)
		assert.Empty(t, summary.Unmapped)
		assert.Len(t, readCSV(t, fs, outPath), 1001)
	})

	t.Run("Should use the configured delimiter for input and output", func(t *testing.T) {
		fs := newFs(t)
		require.NoError(t, afero.WriteFile(fs, inPath, []byte("id;DEPARTMENT\n1;OUT\n"), 0o644))

		opts := options()
		opts.Delimiter = ';'
		_, err := Run(testContext(t), fs, opts)
		require.NoError(t, err)

		data, err := afero.ReadFile(fs, outPath)
		require.NoError(t, err)
		assert.Equal(t, "id;DEPARTMENT\n1;Out-patient\n", string(data))
	})
}

func TestRun_Failures(t *testing.T) {
	t.Run("Should report a missing column without creating output", func(t *testing.T) {
		fs := newFs(t)
		writeCSV(t, fs, inPath, [][]string{{"id", "WARD"}, {"1", "Out"}})

		summary, err := Run(testContext(t), fs, options())
		require.ErrorIs(t, err, ErrColumnNotFound)
		assert.Nil(t, summary)

		var colErr *ColumnNotFoundError
		require.ErrorAs(t, err, &colErr)
		assert.Equal(t, []string{"id", "WARD"}, colErr.Available)
		assertNoOutput(t, fs)
	})

	t.Run("Should report a missing input with its siblings", func(t *testing.T) {
		fs := newFs(t)
		writeCSV(t, fs, "/data/other.csv", [][]string{{"DEPARTMENT"}})

		_, err := Run(testContext(t), fs, options())
		require.ErrorIs(t, err, source.ErrNotFound)

		var nf *source.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, []string{"other.csv"}, nf.Siblings)
	})

	t.Run("Should fail strict runs with unmapped values and write nothing", func(t *testing.T) {
		fs := newFs(t)
		writeCSV(t, fs, inPath, [][]string{{"DEPARTMENT"}, {"Out"}, {"ER"}, {"ICU"}, {"ER"}})

		opts := options()
		opts.Strict = true
		summary, err := Run(testContext(t), fs, opts)
		require.ErrorIs(t, err, ErrUnmapped)
		require.NotNil(t, summary)
		assert.Equal(t, []string{"ER", "ICU"}, summary.Unmapped)
		assert.False(t, summary.Saved)
		assertNoOutput(t, fs)
	})

	t.Run("Should pass strict runs when everything maps", func(t *testing.T) {
		fs := newFs(t)
		writeCSV(t, fs, inPath, [][]string{{"id", "DEPARTMENT"}, {"1", "Out"}, {"2", ""}})

		opts := options()
		opts.Strict = true
		summary, err := Run(testContext(t), fs, opts)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.NullBefore)
		assert.True(t, summary.Saved)
	})

	t.Run("Should abort on invalid encoding and leave no partial file", func(t *testing.T) {
		fs := newFs(t)
		require.NoError(t, afero.WriteFile(fs, inPath, []byte("DEPARTMENT\nOut\nInp\xff\n"), 0o644))

		_, err := Run(testContext(t), fs, options())
		require.ErrorIs(t, err, table.ErrInvalidEncoding)
		assert.Contains(t, err.Error(), "row 3")
		assertNoOutput(t, fs)
	})

	t.Run("Should abort on a malformed row", func(t *testing.T) {
		fs := newFs(t)
		require.NoError(t, afero.WriteFile(fs, inPath, []byte("id,DEPARTMENT\n1,Out\n2,\"Inp\n"), 0o644))

		_, err := Run(testContext(t), fs, options())
		require.Error(t, err)
		assertNoOutput(t, fs)
	})

	t.Run("Should reject binary input when sniffing", func(t *testing.T) {
		fs := newFs(t)
		require.NoError(t, afero.WriteFile(fs, inPath, []byte("PK\x03\x04\x14\x00\x06\x00\x08\x00\x00\x00!\x00"), 0o644))

		opts := options()
		opts.Sniff = true
		_, err := Run(testContext(t), fs, opts)
		require.ErrorIs(t, err, source.ErrNotText)
		assertNoOutput(t, fs)
	})

	t.Run("Should refuse to overwrite its input", func(t *testing.T) {
		fs := newFs(t)
		writeCSV(t, fs, inPath, [][]string{{"DEPARTMENT"}, {"Out"}})

		opts := options()
		opts.OutputPath = inPath
		_, err := Run(testContext(t), fs, opts)
		require.ErrorContains(t, err, "refusing to overwrite input")
	})

	t.Run("Should stop on a canceled context", func(t *testing.T) {
		fs := newFs(t)
		writeCSV(t, fs, inPath, [][]string{{"DEPARTMENT"}, {"Out"}})

		ctx, cancel := context.WithCancel(testContext(t))
		cancel()
		_, err := Run(ctx, fs, options())
		require.ErrorIs(t, err, context.Canceled)
		assertNoOutput(t, fs)
	})
}

func TestRun_GlobInput(t *testing.T) {
	fs := newFs(t)
	older := "/data/df_final_2025-06-10.csv"
	newer := "/data/df_final_2025-06-12.csv"
	writeCSV(t, fs, older, [][]string{{"DEPARTMENT"}, {"Out"}})
	writeCSV(t, fs, newer, [][]string{{"DEPARTMENT"}, {"Inp"}})
	now := time.Now()
	require.NoError(t, fs.Chtimes(older, now, now.Add(-time.Hour)))
	require.NoError(t, fs.Chtimes(newer, now, now))

	opts := options()
	opts.InputPath = "/data/df_final_*.csv"
	summary, err := Run(testContext(t), fs, opts)
	require.NoError(t, err)
	assert.Equal(t, newer, summary.InputPath)
	assert.Equal(t, 1, summary.InPatient)
}

func TestRun_OverwritesExistingOutput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.csv")
	out := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(in, []byte("DEPARTMENT\nOUT\n"), 0o644))
	require.NoError(t, os.WriteFile(out, []byte("stale contents that are longer than the result\n"), 0o644))

	opts := options()
	opts.InputPath = in
	opts.OutputPath = out
	_, err := Run(testContext(t), afero.NewOsFs(), opts)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "DEPARTMENT\nOut-patient\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
