// Package planner inspects a cleaned dataset and produces a declarative
// DashboardSpec: the fully-determined plan the rendering engine consumes
// without any further inference.
package planner

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Aggregation names a pivot value aggregation.
type Aggregation string

const (
	AggSum   Aggregation = "sum"
	AggCount Aggregation = "count"
	AggAvg   Aggregation = "avg"
	AggMax   Aggregation = "max"
	AggMin   Aggregation = "min"
)

// ChartKind names the visual chart family.
type ChartKind string

const (
	ChartLine   ChartKind = "line"
	ChartColumn ChartKind = "column"
	ChartBar    ChartKind = "bar"
)

// ValueField pairs a source column with its aggregation.
type ValueField struct {
	Column string      `json:"column" yaml:"column"`
	Agg    Aggregation `json:"agg" yaml:"agg"`
}

// PivotDef declares one pivot table the renderer must build.
type PivotDef struct {
	Name        string       `json:"name" yaml:"name"`
	TargetSheet string       `json:"target_sheet" yaml:"target_sheet"`
	RowFields   []string     `json:"row_fields" yaml:"row_fields"`
	ValueFields []ValueField `json:"value_fields" yaml:"value_fields"`
	GroupByDate bool         `json:"group_by_date" yaml:"group_by_date"`
}

// ChartDef declares one chart, bound to a pivot by name and to a
// template slot by placeholder token.
type ChartDef struct {
	PivotRef    string    `json:"pivot_ref" yaml:"pivot_ref"`
	Kind        ChartKind `json:"chart_kind" yaml:"chart_kind"`
	Placeholder string    `json:"placeholder_token" yaml:"placeholder_token"`
	Title       string    `json:"title" yaml:"title"`
}

// Dimensions holds the resolved date and category axes. Either may be
// empty when the dataset has no suitable column.
type Dimensions struct {
	Date     string `json:"date,omitempty" yaml:"date,omitempty"`
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
}

// DashboardSpec is the serializable contract between planner and
// renderer. It is immutable once produced.
type DashboardSpec struct {
	Pattern    string             `json:"pattern" yaml:"pattern"`
	Metric     string             `json:"metric" yaml:"metric"`
	Dimensions Dimensions         `json:"dimensions" yaml:"dimensions"`
	Pivots     []PivotDef         `json:"pivots" yaml:"pivots"`
	Charts     []ChartDef         `json:"charts" yaml:"charts"`
	Slicers    []string           `json:"slicers" yaml:"slicers"`
	KPIs       map[string]float64 `json:"kpis" yaml:"kpis"`
}

// PatternTransactional is the only dashboard pattern currently planned.
const PatternTransactional = "transactional"

// MaxCharts caps the dashboard at an executive-summary chart count.
const MaxCharts = 3

// Validate checks the spec's internal invariants: the chart cap, chart
// pivot references, and placeholder uniqueness.
func (s *DashboardSpec) Validate() error {
	if len(s.Charts) > MaxCharts {
		return fmt.Errorf("spec has %d charts, max %d", len(s.Charts), MaxCharts)
	}
	pivots := make(map[string]struct{}, len(s.Pivots))
	for _, p := range s.Pivots {
		pivots[p.Name] = struct{}{}
	}
	seen := make(map[string]struct{}, len(s.Charts))
	for _, c := range s.Charts {
		if _, ok := pivots[c.PivotRef]; !ok {
			return fmt.Errorf("chart %q references unknown pivot %q", c.Title, c.PivotRef)
		}
		if _, dup := seen[c.Placeholder]; dup {
			return fmt.Errorf("duplicate placeholder token %q", c.Placeholder)
		}
		seen[c.Placeholder] = struct{}{}
	}
	return nil
}

// Pivot looks up a pivot definition by name.
func (s *DashboardSpec) Pivot(name string) (PivotDef, bool) {
	for _, p := range s.Pivots {
		if p.Name == name {
			return p, true
		}
	}
	return PivotDef{}, false
}

// EncodeJSON writes the spec as indented JSON.
func (s *DashboardSpec) EncodeJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// DecodeJSON reads and validates a spec from JSON.
func DecodeJSON(r io.Reader) (*DashboardSpec, error) {
	var s DashboardSpec
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode spec: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// EncodeYAML writes the spec as YAML.
func (s *DashboardSpec) EncodeYAML(w io.Writer) error {
	return yaml.NewEncoder(w).Encode(s)
}

// DecodeYAML reads and validates a spec from YAML.
func DecodeYAML(r io.Reader) (*DashboardSpec, error) {
	var s DashboardSpec
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode spec: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
