// Package department canonicalizes free-text hospital department labels
// into the two categories used by downstream analysis.
package department

import (
	"maps"
	"slices"
	"strings"
)

// Canonical labels.
const (
	OutPatient = "Out-patient"
	InPatient  = "In-patient"
)

// nanText is the text a missing numeric cell turns into once coerced to a
// string upstream. It is read back as null.
const nanText = "nan"

// mapping is the fixed, case-sensitive abbreviation table.
var mapping = map[string]string{
	"Out": OutPatient,
	"out": OutPatient,
	"OUT": OutPatient,
	"Inp": InPatient,
	"inp": InPatient,
	"INP": InPatient,
}

// Value is a nullable department cell.
type Value struct {
	Text  string
	Valid bool
}

// Of returns a non-null Value holding s.
func Of(s string) Value {
	return Value{Text: s, Valid: true}
}

// Null returns the absent Value.
func Null() Value {
	return Value{}
}

// IsNull reports whether v is absent.
func (v Value) IsNull() bool {
	return !v.Valid
}

// String renders v for diagnostics; null renders as "<null>".
func (v Value) String() string {
	if !v.Valid {
		return "<null>"
	}
	return v.Text
}

// Clean strips surrounding whitespace and turns the literal "nan" into null.
// Null stays null.
func Clean(v Value) Value {
	if !v.Valid {
		return v
	}
	s := strings.TrimSpace(v.Text)
	if s == nanText {
		return Null()
	}
	return Of(s)
}

// Normalize cleans v and replaces a known abbreviation with its canonical
// label. Anything not in the table is returned as cleaned.
//
// Normalize is idempotent: canonical labels and unmapped trimmed values are
// fixed points.
func Normalize(v Value) Value {
	v = Clean(v)
	if !v.Valid {
		return v
	}
	if label, ok := Lookup(v.Text); ok {
		return Of(label)
	}
	return v
}

// Lookup returns the canonical label for an exact abbreviation.
func Lookup(s string) (string, bool) {
	label, ok := mapping[s]
	return label, ok
}

// IsCanonical reports whether s is one of the two canonical labels.
func IsCanonical(s string) bool {
	return s == OutPatient || s == InPatient
}

// HasSurroundingSpace reports whether a non-null v carries leading or
// trailing whitespace.
func HasSurroundingSpace(v Value) bool {
	return v.Valid && v.Text != strings.TrimSpace(v.Text)
}

// Mappings returns a copy of the abbreviation table.
func Mappings() map[string]string {
	return maps.Clone(mapping)
}

// Mapping is one case-insensitive group of the table, as shown to users.
type Mapping struct {
	Code  string
	Label string
}

// FoldedMappings groups the table case-insensitively, sorted by code.
func FoldedMappings() []Mapping {
	seen := make(map[string]string, len(mapping))
	for code, label := range mapping {
		seen[strings.ToLower(code)] = label
	}
	out := make([]Mapping, 0, len(seen))
	for _, code := range slices.Sorted(maps.Keys(seen)) {
		out = append(out, Mapping{Code: code, Label: seen[code]})
	}
	return out
}
