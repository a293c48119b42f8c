// Package table streams delimited text files with a header row.
package table

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/spf13/afero"
	"golang.org/x/text/transform"
)

const bufSize = 4 << 20 // 4 MiB

// ErrNoHeader is returned by Open for an input without any row.
var ErrNoHeader = errors.New("missing header row")

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// DefaultNullValues are the cell texts read as missing, matching what
// common dataframe readers treat as NA by default.
var DefaultNullValues = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

// NullSet is a set of exact cell texts that mean "missing".
type NullSet map[string]struct{}

// NewNullSet builds a set from values.
func NewNullSet(values []string) NullSet {
	s := make(NullSet, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// Contains matches exactly; cells are not trimmed first.
func (s NullSet) Contains(cell string) bool {
	_, ok := s[cell]
	return ok
}

// ReaderOptions selects the input dialect. An empty Encoding means UTF-8
// and a zero Delimiter means ','.
type ReaderOptions struct {
	Encoding  string
	Delimiter rune
}

// Reader yields records after the header. Records are reused between calls.
type Reader struct {
	file     afero.File
	csv      *csv.Reader
	header   []string
	validate bool
	row      int
}

// Open opens path on fs and reads the header row.
func Open(fs afero.Fs, path string, opts ReaderOptions) (*Reader, error) {
	dec, validate, err := decoder(opts.Encoding)
	if err != nil {
		return nil, err
	}
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}

	// A UTF-8 BOM is dropped before decoding so that single-byte
	// encodings do not turn it into text.
	raw := bufio.NewReaderSize(f, bufSize)
	if b, _ := raw.Peek(len(utf8BOM)); bytes.Equal(b, utf8BOM) {
		raw.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(transform.NewReader(raw, dec))
	cr.ReuseRecord = true // avoid per-row allocations
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}

	r := &Reader{file: f, csv: cr, validate: validate}
	header, err := r.Read()
	if err != nil {
		f.Close()
		if errors.Is(err, io.EOF) {
			return nil, ErrNoHeader
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	r.header = slices.Clone(header)
	return r, nil
}

// Header returns the column names.
func (r *Reader) Header() []string {
	return r.header
}

// Row is the 1-based line of the last record read; the header is row 1.
func (r *Reader) Row() int {
	return r.row
}

// Index finds a column by trimmed name, or -1. An exact match wins over a
// case-insensitive one.
func (r *Reader) Index(name string) int {
	want := strings.TrimSpace(name)
	folded := -1
	for i, col := range r.header {
		col = strings.TrimSpace(col)
		if col == want {
			return i
		}
		if folded == -1 && strings.EqualFold(col, want) {
			folded = i
		}
	}
	return folded
}

// Read returns the next record or io.EOF.
func (r *Reader) Read() ([]string, error) {
	rec, err := r.csv.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	r.row++
	if err != nil {
		return nil, fmt.Errorf("read row %d: %w", r.row, err)
	}
	if r.validate {
		for i, cell := range rec {
			if !utf8.ValidString(cell) {
				return nil, fmt.Errorf("row %d column %d: %w", r.row, i+1, ErrInvalidEncoding)
			}
		}
	}
	return rec, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}
