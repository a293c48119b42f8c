package table

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

const outputPerm os.FileMode = 0o644

// WriterOptions configures the output dialect. A zero Delimiter means ','.
type WriterOptions struct {
	Delimiter rune
	CRLF      bool
}

// Writer writes records to a temporary file beside the destination.
// Nothing appears at the destination until Commit; Abort removes the
// temporary file and is a no-op after a successful Commit.
type Writer struct {
	fs   afero.Fs
	path string
	tmp  afero.File
	bw   *bufio.Writer
	csv  *csv.Writer
	eol  string
	done bool
}

// Create starts a write to path on fs.
func Create(fs afero.Fs, path string, opts WriterOptions) (*Writer, error) {
	tmp, err := afero.TempFile(fs, filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	bw := bufio.NewWriterSize(tmp, bufSize)
	cw := csv.NewWriter(bw)
	if opts.Delimiter != 0 {
		cw.Comma = opts.Delimiter
	}
	cw.UseCRLF = opts.CRLF
	eol := "\n"
	if opts.CRLF {
		eol = "\r\n"
	}
	return &Writer{fs: fs, path: path, tmp: tmp, bw: bw, csv: cw, eol: eol}, nil
}

// Write appends one record. A record made of a single empty field is
// written as a quoted empty string so it does not become a blank line,
// which readers skip.
func (w *Writer) Write(rec []string) error {
	if len(rec) != 1 || rec[0] != "" {
		return w.csv.Write(rec)
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return err
	}
	_, err := w.bw.WriteString(`""` + w.eol)
	return err
}

// Flush pushes buffered records to the temporary file.
func (w *Writer) Flush() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if err := w.bw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// Commit flushes, closes and renames the temporary file over the
// destination, replacing any existing file.
func (w *Writer) Commit() error {
	if w.done {
		return errors.New("output already committed")
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if err := w.tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := w.fs.Rename(w.tmp.Name(), w.path); err != nil {
		return fmt.Errorf("commit output: %w", err)
	}
	w.done = true
	if err := w.fs.Chmod(w.path, outputPerm); err != nil {
		return fmt.Errorf("chmod output: %w", err)
	}
	return nil
}

// Abort discards the temporary file.
func (w *Writer) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	w.tmp.Close()
	if err := w.fs.Remove(w.tmp.Name()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove partial output: %w", err)
	}
	return nil
}
