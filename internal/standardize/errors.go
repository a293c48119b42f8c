package standardize

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrColumnNotFound = errors.New("column not found")
	ErrUnmapped       = errors.New("unmapped department values")
)

// ColumnNotFoundError lists the columns the dataset does have.
type ColumnNotFoundError struct {
	Column    string
	Available []string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("no column named %q found (available: %s)", e.Column, strings.Join(e.Available, ", "))
}

func (e *ColumnNotFoundError) Is(target error) bool {
	return target == ErrColumnNotFound
}

// UnmappedError is returned in strict mode when values remain outside the
// canonical labels.
type UnmappedError struct {
	Values []string
}

func (e *UnmappedError) Error() string {
	return fmt.Sprintf("%d unmapped department value(s): %s", len(e.Values), strings.Join(e.Values, ", "))
}

func (e *UnmappedError) Is(target error) bool {
	return target == ErrUnmapped
}
