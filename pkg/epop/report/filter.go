package report

import (
	"encoding/json"

	mapset "github.com/deckarep/golang-set/v2"
)

// Filter selects summary rows. Zero-valued criteria match everything, so
// an empty filter passes all rows through.
type Filter struct {
	Sections []Section `json:"sections,omitempty"`
	Labels   []string  `json:"labels,omitempty"`
	MinF1    *float64  `json:"min_f1,omitempty"`
}

// NewFilter returns an empty filter.
func NewFilter() *Filter {
	return &Filter{
		Sections: make([]Section, 0),
		Labels:   make([]string, 0),
	}
}

// WithSections restricts the filter to the given sections.
func (f *Filter) WithSections(sections ...Section) *Filter {
	f.Sections = append(f.Sections, sections...)
	return f
}

// WithLabels restricts the filter to the given row labels.
func (f *Filter) WithLabels(labels ...string) *Filter {
	f.Labels = append(f.Labels, labels...)
	return f
}

// WithMinF1 keeps only rows whose F1 is present and at least v.
func (f *Filter) WithMinF1(v float64) *Filter {
	f.MinF1 = &v
	return f
}

// Apply returns the rows the filter keeps, preserving order.
func (f *Filter) Apply(rows []Row) []Row {
	sections := mapset.NewSet[Section](f.Sections...)
	labels := mapset.NewSet[string](f.Labels...)

	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if sections.Cardinality() > 0 && !sections.Contains(row.Section) {
			continue
		}
		if labels.Cardinality() > 0 && !labels.Contains(row.Label) {
			continue
		}
		if f.MinF1 != nil && (row.F1 == nil || *row.F1 < *f.MinF1) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func (f *Filter) String() string {
	bytes, _ := json.MarshalIndent(f, "", "  ")
	return string(bytes)
}
