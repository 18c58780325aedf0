package render

import "fmt"

// Outcome records one attempted widget: a pivot, chart, KPI, or slicer.
// A nil Err means the widget was built.
type Outcome struct {
	Component string // "pivot", "chart", "kpi", "slicer", "placeholder"
	Name      string
	Err       error
}

// OK reports whether the attempt succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

func (o Outcome) String() string {
	if o.OK() {
		return fmt.Sprintf("%s %q: ok", o.Component, o.Name)
	}
	return fmt.Sprintf("%s %q: %v", o.Component, o.Name, o.Err)
}

// Report accumulates widget outcomes across one render. Individual
// failures are recorded here instead of aborting the render; only the
// caller decides how loudly to surface them.
type Report struct {
	Outcomes []Outcome
}

// Record appends an outcome for one widget attempt.
func (r *Report) Record(component, name string, err error) {
	r.Outcomes = append(r.Outcomes, Outcome{Component: component, Name: name, Err: err})
}

// Warnings returns the outcomes that failed.
func (r *Report) Warnings() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// Built counts successful outcomes for a component kind.
func (r *Report) Built(component string) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Component == component && o.OK() {
			n++
		}
	}
	return n
}
