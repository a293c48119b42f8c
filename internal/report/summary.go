// Package report accumulates department statistics over a run and renders
// them for people or machines.
package report

import (
	"cmp"
	"slices"

	"deptnorm/internal/department"
)

const (
	sampleWidth   = 30
	unknownSample = "Unknown"
)

// Entry is one row of a value distribution. A nil Value is the missing
// bucket.
type Entry struct {
	Value   *string `json:"value"   yaml:"value"`
	Count   int     `json:"count"   yaml:"count"`
	Percent float64 `json:"percent" yaml:"percent"`
}

// Label renders the entry value; the missing bucket has no label.
func (e Entry) Label() (string, bool) {
	if e.Value == nil {
		return "", false
	}
	return *e.Value, true
}

type SampleRow struct {
	Label      string `json:"label"      yaml:"label"`
	Department string `json:"department" yaml:"department"`
}

// Summary is the outcome of one standardization run.
type Summary struct {
	RunID        string `json:"run_id"        yaml:"run_id"`
	InputPath    string `json:"input_path"    yaml:"input_path"`
	OutputPath   string `json:"output_path"   yaml:"output_path"`
	Column       string `json:"column"        yaml:"column"`
	Columns      int    `json:"columns"       yaml:"columns"`
	Records      int    `json:"records"       yaml:"records"`
	Saved        bool   `json:"saved"         yaml:"saved"`
	OutputBytes  int64  `json:"output_bytes"  yaml:"output_bytes"`
	SampleColumn string `json:"sample_column" yaml:"sample_column"`

	NonNullBefore int `json:"non_null_before" yaml:"non_null_before"`
	NullBefore    int `json:"null_before"     yaml:"null_before"`
	NonNullAfter  int `json:"non_null_after"  yaml:"non_null_after"`
	SpacesBefore  int `json:"spaces_before"   yaml:"spaces_before"`
	SpacesAfter   int `json:"spaces_after"    yaml:"spaces_after"`

	Before  []Entry `json:"before"  yaml:"before"`
	Cleaned []Entry `json:"cleaned" yaml:"cleaned"`
	After   []Entry `json:"after"   yaml:"after"`

	OutPatient   int      `json:"out_patient"  yaml:"out_patient"`
	InPatient    int      `json:"in_patient"   yaml:"in_patient"`
	Standardized int      `json:"standardized" yaml:"standardized"`
	SuccessRate  float64  `json:"success_rate" yaml:"success_rate"`
	Unmapped     []string `json:"unmapped"     yaml:"unmapped"`

	Sample []SampleRow `json:"sample" yaml:"sample"`
}

/* Distribution -------------------------------------------------------- */

// Distribution counts values, remembering first appearance for stable
// tie-breaking.
type Distribution struct {
	counts map[department.Value]int
	order  []department.Value
}

func NewDistribution() *Distribution {
	return &Distribution{counts: make(map[department.Value]int)}
}

func (d *Distribution) Add(v department.Value) {
	if _, ok := d.counts[v]; !ok {
		d.order = append(d.order, v)
	}
	d.counts[v]++
}

func (d *Distribution) Count(v department.Value) int {
	return d.counts[v]
}

// Entries orders values by count descending, then first appearance.
// Percentages are relative to total.
func (d *Distribution) Entries(total int) []Entry {
	rank := make(map[department.Value]int, len(d.order))
	for i, v := range d.order {
		rank[v] = i
	}
	values := slices.Clone(d.order)
	slices.SortStableFunc(values, func(a, b department.Value) int {
		if c := cmp.Compare(d.counts[b], d.counts[a]); c != 0 {
			return c
		}
		return cmp.Compare(rank[a], rank[b])
	})

	out := make([]Entry, 0, len(values))
	for _, v := range values {
		e := Entry{Count: d.counts[v], Percent: percent(d.counts[v], total)}
		if v.Valid {
			text := v.Text
			e.Value = &text
		}
		out = append(out, e)
	}
	return out
}

/* Collector ----------------------------------------------------------- */

// Observation is one record's department value at each stage, plus the
// sample column cell.
type Observation struct {
	Raw        department.Value
	Cleaned    department.Value
	Normalized department.Value
	Label      department.Value
}

type Collector struct {
	before, cleaned, after *Distribution

	records       int
	nonNullBefore int
	nonNullAfter  int
	spacesBefore  int
	spacesAfter   int
	standardized  int

	unmapped     []string
	unmappedSeen map[string]struct{}

	sampleSize int
	sample     []SampleRow
}

func NewCollector(sampleSize int) *Collector {
	return &Collector{
		before:       NewDistribution(),
		cleaned:      NewDistribution(),
		after:        NewDistribution(),
		unmappedSeen: make(map[string]struct{}),
		sampleSize:   sampleSize,
	}
}

func (c *Collector) Observe(o Observation) {
	c.records++
	c.before.Add(o.Raw)
	c.cleaned.Add(o.Cleaned)
	c.after.Add(o.Normalized)

	if o.Raw.Valid {
		c.nonNullBefore++
	}
	if department.HasSurroundingSpace(o.Raw) {
		c.spacesBefore++
	}
	if department.HasSurroundingSpace(o.Normalized) {
		c.spacesAfter++
	}

	if !o.Normalized.Valid {
		return
	}
	c.nonNullAfter++
	if department.IsCanonical(o.Normalized.Text) {
		c.standardized++
	} else if _, seen := c.unmappedSeen[o.Normalized.Text]; !seen {
		c.unmappedSeen[o.Normalized.Text] = struct{}{}
		c.unmapped = append(c.unmapped, o.Normalized.Text)
	}
	if len(c.sample) < c.sampleSize {
		c.sample = append(c.sample, SampleRow{Label: sampleLabel(o.Label), Department: o.Normalized.Text})
	}
}

// Unmapped returns the distinct non-canonical values seen so far.
func (c *Collector) Unmapped() []string {
	return slices.Clone(c.unmapped)
}

// Summary fills the statistics part of a Summary.
func (c *Collector) Summary() *Summary {
	s := &Summary{
		Records:       c.records,
		NonNullBefore: c.nonNullBefore,
		NullBefore:    c.records - c.nonNullBefore,
		NonNullAfter:  c.nonNullAfter,
		SpacesBefore:  c.spacesBefore,
		SpacesAfter:   c.spacesAfter,
		Before:        c.before.Entries(c.records),
		Cleaned:       c.cleaned.Entries(c.records),
		After:         c.after.Entries(c.records),
		OutPatient:    c.after.Count(department.Of(department.OutPatient)),
		InPatient:     c.after.Count(department.Of(department.InPatient)),
		Standardized:  c.standardized,
		SuccessRate:   percent(c.standardized, c.nonNullAfter),
		Unmapped:      slices.Clone(c.unmapped),
		Sample:        slices.Clone(c.sample),
	}
	if s.Unmapped == nil {
		s.Unmapped = []string{}
	}
	if s.Sample == nil {
		s.Sample = []SampleRow{}
	}
	return s
}

func sampleLabel(v department.Value) string {
	if !v.Valid {
		return unknownSample
	}
	r := []rune(v.Text)
	if len(r) > sampleWidth {
		r = r[:sampleWidth]
	}
	return string(r)
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(total)
}
