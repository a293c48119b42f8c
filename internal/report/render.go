package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"deptnorm/internal/department"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Detail selects how much of a Summary the text format shows.
type Detail int

const (
	// Brief shows the final distribution, the saved file and the totals.
	Brief Detail = iota
	// Full adds the pre-standardization analysis, the mapping table, the
	// validation block and a sample of records.
	Full
)

const missingLabel = "Missing/NaN"

// Write renders s to w.
func Write(w io.Writer, s *Summary, format Format, detail Detail) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	case FormatText, "":
		p := newPrinter(w)
		if detail == Full {
			p.full(s)
		} else {
			p.brief(s)
		}
		return p.err
	default:
		return fmt.Errorf("unsupported report format: %s", format)
	}
}

// WriteColumnNotFound explains a missing department column.
func WriteColumnNotFound(w io.Writer, column string, available []string) error {
	p := newPrinter(w)
	p.line(p.bad.Render(fmt.Sprintf("%s column not found in dataset!", column)))
	p.line("Available columns:")
	for _, col := range available {
		p.linef("   - %s", col)
	}
	return p.err
}

// WriteInputNotFound explains a missing input, listing what is there.
func WriteInputNotFound(w io.Writer, path, dir string, siblings []string) error {
	p := newPrinter(w)
	p.line(p.bad.Render(fmt.Sprintf("Input file not found: %s", path)))
	p.blank()
	p.linef("Available files in %s:", dir)
	if len(siblings) == 0 {
		p.line(p.muted.Render("   (no .csv files)"))
	}
	for _, name := range siblings {
		p.linef("   - %s", name)
	}
	return p.err
}

/* Text printer -------------------------------------------------------- */

type printer struct {
	w   io.Writer
	err error

	title   lipgloss.Style
	heading lipgloss.Style
	good    lipgloss.Style
	warn    lipgloss.Style
	bad     lipgloss.Style
	muted   lipgloss.Style
}

func newPrinter(w io.Writer) *printer {
	r := lipgloss.NewRenderer(w)
	return &printer{
		w:       w,
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")),
		heading: r.NewStyle().Bold(true),
		good:    r.NewStyle().Foreground(lipgloss.Color("#04B575")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("#FFB86C")),
		bad:     r.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		muted:   r.NewStyle().Foreground(lipgloss.Color("#888888")),
	}
}

func (p *printer) line(s string) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintln(p.w, s)
}

func (p *printer) linef(format string, args ...any) {
	p.line(fmt.Sprintf(format, args...))
}

func (p *printer) blank() {
	p.line("")
}

func (p *printer) section(s string) {
	p.blank()
	p.line(p.heading.Render(s))
}

func (p *printer) full(s *Summary) {
	p.line(p.title.Render("DEPARTMENT COLUMN STANDARDIZATION"))
	p.line(strings.Repeat("=", 50))
	p.linef("Dataset: %s", s.InputPath)
	p.linef("   Shape: (%s, %d)", comma(s.Records), s.Columns)

	p.section(fmt.Sprintf("CURRENT %s COLUMN ANALYSIS:", s.Column))
	p.linef("   Records with %s data: %s", s.Column, comma(s.NonNullBefore))
	p.linef("   Records missing %s data: %s", s.Column, comma(s.NullBefore))
	p.linef("   Values with leading/trailing spaces: %s", comma(s.SpacesBefore))

	p.section(fmt.Sprintf("Current %s values (before standardization):", s.Column))
	for _, e := range s.Before {
		if v, ok := e.Label(); ok {
			p.linef("   '%s' (length: %d): %s records (%.1f%%)", v, utf8.RuneCountInString(v), comma(e.Count), e.Percent)
		} else {
			p.linef("   %s: %s records (%.1f%%)", missingLabel, comma(e.Count), e.Percent)
		}
	}

	p.section("CLEANING SPACES:")
	p.linef("   Values with spaces before cleaning: %s", comma(s.SpacesBefore))
	p.linef("   Values with spaces after cleaning: %s", comma(s.SpacesAfter))

	p.section(fmt.Sprintf("%s MAPPING DICTIONARY:", s.Column))
	for _, m := range department.FoldedMappings() {
		p.linef("   '%s' (case variants) -> '%s'", m.Code, m.Label)
	}

	p.section("TRANSFORMATION RESULTS:")
	p.line("Before standardization (after space cleaning):")
	p.counts(s.Cleaned)
	p.blank()
	p.line("After standardization:")
	p.counts(s.After)

	p.section("VALIDATION RESULTS:")
	p.linef("   Total records: %s", comma(s.Records))
	p.linef("   Records with %s data: %s", s.Column, comma(s.NonNullAfter))
	p.linef("   Properly standardized values: %s", comma(s.Standardized))
	if s.NonNullAfter > 0 {
		p.linef("   Standardization success rate: %.2f%%", s.SuccessRate)
		p.unmapped(s.Unmapped)
	} else {
		p.linef("   No %s data to standardize", s.Column)
	}

	p.section(fmt.Sprintf("Sample of standardized data (first %d non-null records):", len(s.Sample)))
	if len(s.Sample) == 0 {
		p.linef("   No records with %s data found for sampling", s.Column)
	}
	for _, row := range s.Sample {
		p.linef("   %-30s | DEPT: %s", row.Label, row.Department)
	}

	p.saved(s)
}

func (p *printer) brief(s *Summary) {
	p.line(p.title.Render("Department Standardization Export"))
	p.line(strings.Repeat("=", 50))
	p.linef("Dataset: %s", s.InputPath)

	p.section(fmt.Sprintf("%s distribution after standardization:", s.Column))
	for _, e := range s.After {
		if v, ok := e.Label(); ok {
			p.linef("   '%s': %s records (%.1f%%)", v, comma(e.Count), e.Percent)
		} else {
			p.linef("   %s: %s records (%.1f%%)", missingLabel, comma(e.Count), e.Percent)
		}
	}

	p.saved(s)

	p.section("FINAL SUMMARY:")
	p.linef("   'Out' -> '%s': %s records", department.OutPatient, comma(s.OutPatient))
	p.linef("   'Inp' -> '%s': %s records", department.InPatient, comma(s.InPatient))
	p.line("   Leading/trailing spaces cleaned")
	if len(s.Unmapped) > 0 {
		p.unmapped(s.Unmapped)
	}
}

func (p *printer) counts(entries []Entry) {
	for _, e := range entries {
		if v, ok := e.Label(); ok {
			p.linef("   '%s': %s records", v, comma(e.Count))
		} else {
			p.linef("   %s: %s records", missingLabel, comma(e.Count))
		}
	}
}

func (p *printer) unmapped(values []string) {
	if len(values) == 0 {
		p.line(p.good.Render("   All values successfully mapped!"))
		return
	}
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("'%s'", v)
	}
	p.line(p.warn.Render(fmt.Sprintf("   Unmapped values found (%d): [%s]", len(values), strings.Join(quoted, ", "))))
}

func (p *printer) saved(s *Summary) {
	if !s.Saved {
		p.blank()
		p.line(p.bad.Render(fmt.Sprintf("Output not written: %s", s.OutputPath)))
		return
	}
	p.section("Standardized dataset saved")
	p.linef("   Location: %s", s.OutputPath)
	p.linef("   File size: %s", humanize.IBytes(uint64(max(s.OutputBytes, 0))))
	p.linef("   Records: %s", comma(s.Records))
	p.linef("   Columns: %d", s.Columns)
}

func comma(n int) string {
	return humanize.Comma(int64(n))
}
