package render

import (
	"errors"
	"fmt"
	"sort"

	"github.com/provalabs/prova/internal/planner"
)

// FatalError marks a render failure that aborts the whole render:
// template staging, document open, or the final save. Widget-level
// failures never use it.
type FatalError struct {
	Stage string // "staging", "open", "save"
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("render failed at %s: %v", e.Stage, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// IsFatal reports whether err is (or wraps) a render FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// Renderer is the narrow document-rendering port. One implementation
// drives one open document; widget methods are best-effort and Save is
// the only fatal boundary besides construction.
type Renderer interface {
	CreatePivot(def planner.PivotDef) error
	CreateChart(def planner.ChartDef) error
	SetKPI(label string, value float64) error
	AddSlicer(field string, position int) error
	ClearUnusedPlaceholders(used map[string]struct{}) error
	Save(path string) error
	Close() error
}

// Render drives a Renderer through every widget in the spec with
// independent error containment: one failed pivot, chart, KPI, or slicer
// never prevents the others from being attempted. The document is saved
// to outputPath at the end; a save failure is fatal. The caller owns
// Close.
func Render(r Renderer, spec *planner.DashboardSpec, outputPath string) (*Report, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	rep := &Report{}

	for _, p := range spec.Pivots {
		rep.Record("pivot", p.Name, r.CreatePivot(p))
	}

	used := make(map[string]struct{}, len(spec.Charts))
	for _, c := range spec.Charts {
		err := r.CreateChart(c)
		rep.Record("chart", c.Title, err)
		if err == nil {
			used[c.Placeholder] = struct{}{}
		}
	}

	labels := make([]string, 0, len(spec.KPIs))
	for label := range spec.KPIs {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		rep.Record("kpi", label, r.SetKPI(label, spec.KPIs[label]))
	}

	for i, field := range spec.Slicers {
		rep.Record("slicer", field, r.AddSlicer(field, i))
	}

	rep.Record("placeholder", "cleanup", r.ClearUnusedPlaceholders(used))

	if err := r.Save(outputPath); err != nil {
		return rep, &FatalError{Stage: "save", Err: err}
	}
	return rep, nil
}
