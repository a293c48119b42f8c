// Package source locates and checks the dataset to standardize.
package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
)

var (
	ErrNotFound = errors.New("input file not found")
	ErrNotText  = errors.New("input is not a delimited text file")
)

// NotFoundError carries the delimited files that do exist where the input
// was expected, to help pick the right one.
type NotFoundError struct {
	Path     string
	Dir      string
	Siblings []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("input file not found: %s", e.Path)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Resolve returns the concrete input path. A plain path must exist; a glob
// pattern resolves to its most recently modified match, ties going to the
// lexically greatest name.
func Resolve(fsys afero.Fs, path string) (string, error) {
	if !isPattern(path) {
		info, err := fsys.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				return "", notFound(fsys, path, filepath.Dir(path))
			}
			return "", fmt.Errorf("stat input: %w", err)
		}
		if info.IsDir() {
			return "", fmt.Errorf("input %s is a directory", path)
		}
		return path, nil
	}

	base, pattern := doublestar.SplitPattern(filepath.ToSlash(path))
	if base == "" {
		base = "."
	}
	base = filepath.FromSlash(base)

	var (
		best     string
		bestInfo fs.FileInfo
	)
	err := afero.Walk(fsys, base, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		ok, err := doublestar.Match(pattern, filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		if ok && newer(info, p, bestInfo, best) {
			best, bestInfo = p, info
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("search %s: %w", path, err)
	}
	if best == "" {
		return "", notFound(fsys, path, base)
	}
	return best, nil
}

func newer(info fs.FileInfo, path string, than fs.FileInfo, thanPath string) bool {
	if than == nil {
		return true
	}
	if !info.ModTime().Equal(than.ModTime()) {
		return info.ModTime().After(than.ModTime())
	}
	return path > thanPath
}

func isPattern(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}

func notFound(fsys afero.Fs, path, dir string) error {
	return &NotFoundError{Path: path, Dir: dir, Siblings: Siblings(fsys, dir)}
}

// Siblings lists the *.csv file names in dir, sorted. A missing dir yields
// nil.
func Siblings(fsys afero.Fs, dir string) []string {
	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ok, _ := doublestar.Match("*.csv", strings.ToLower(e.Name())); ok {
			out = append(out, e.Name())
		}
	}
	return out
}

// Sniff rejects inputs whose leading bytes are not plain text, such as
// spreadsheets or archives saved with a .csv name.
func Sniff(fsys afero.Fs, path string) error {
	f, err := fsys.Open(path)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return fmt.Errorf("detect content type: %w", err)
	}
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return nil
		}
	}
	return fmt.Errorf("%w: %s looks like %s", ErrNotText, path, mt.String())
}
