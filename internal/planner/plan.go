package planner

import (
	"errors"
	"fmt"

	"github.com/provalabs/prova/internal/dataset"
)

// PlanError reports that no viable dashboard plan exists for a dataset.
type PlanError struct {
	Cause string
}

func (e *PlanError) Error() string { return "plan error: " + e.Cause }

// IsPlanError reports whether err is (or wraps) a PlanError.
func IsPlanError(err error) bool {
	var pe *PlanError
	return errors.As(err, &pe)
}

// Overrides lets a caller pin columns instead of relying on inference.
// An unknown Metric is an error; unknown DateCol and CategoryCol names
// are ignored and inference takes over.
type Overrides struct {
	Metric      string
	DateCol     string
	CategoryCol string
}

// Options carries the planner's heuristic bounds. The defaults are
// carried over from long-standing dashboard practice, not derived; treat
// them as tunables.
type Options struct {
	// MaxCategoryCardinality is the most distinct values a categorical
	// column may have and still serve as the category axis. High-
	// cardinality categoricals make poor pivot rows and clutter charts.
	MaxCategoryCardinality int
	// ColumnChartMaxCategories is the most distinct axis values a
	// clustered-column chart is chosen for; beyond it a horizontal bar
	// degrades more gracefully with long labels.
	ColumnChartMaxCategories int
}

// DefaultOptions returns the standard heuristic bounds.
func DefaultOptions() Options {
	return Options{
		MaxCategoryCardinality:   20,
		ColumnChartMaxCategories: 6,
	}
}

// KPI labels produced by the planner. A template binds KPI cells through
// named ranges carrying these exact labels.
const (
	KPIRecords = "KPI_Records"
	KPITotal   = "KPI_Total"
	KPIAverage = "KPI_Average"
	KPIMin     = "KPI_Min"
	KPIMax     = "KPI_Max"
)

// Plan derives a transactional DashboardSpec from a cleaned dataset.
// Column roles come from dataset.DetectRoles; overrides win when they
// name existing columns. The result is fully self-describing: the
// renderer performs no further inference.
func Plan(ds *dataset.Dataset, ov Overrides, opts Options) (*DashboardSpec, error) {
	if ds.IsEmpty() {
		return nil, &PlanError{Cause: "empty dataset"}
	}
	if opts.MaxCategoryCardinality <= 0 {
		opts.MaxCategoryCardinality = DefaultOptions().MaxCategoryCardinality
	}
	if opts.ColumnChartMaxCategories <= 0 {
		opts.ColumnChartMaxCategories = DefaultOptions().ColumnChartMaxCategories
	}

	roles := dataset.DetectRoles(ds)
	if len(roles.NumericCols) == 0 {
		return nil, &PlanError{Cause: "no numeric columns"}
	}

	metric := ov.Metric
	if metric == "" {
		metric = roles.NumericCols[0]
	}
	if !ds.HasColumn(metric) {
		return nil, &PlanError{Cause: fmt.Sprintf("metric column %q not found", metric)}
	}

	dateCol := resolveColumn(ds, ov.DateCol, roles.DateCols)
	categoryCol := resolveColumn(ds, ov.CategoryCol, categoricalCandidates(ds, roles, opts))

	spec := &DashboardSpec{
		Pattern: PatternTransactional,
		Metric:  metric,
		Dimensions: Dimensions{
			Date:     dateCol,
			Category: categoryCol,
		},
		KPIs: computeKPIs(ds, metric),
	}

	if dateCol != "" {
		spec.Pivots = append(spec.Pivots, PivotDef{
			Name:        "MetricByDate",
			TargetSheet: "Pivot_MetricByDate",
			RowFields:   []string{dateCol},
			ValueFields: []ValueField{{Column: metric, Agg: AggSum}},
			GroupByDate: true,
		})
		spec.Charts = append(spec.Charts, ChartDef{
			PivotRef:    "MetricByDate",
			Kind:        chartKind(ds, dateCol, roles, opts),
			Placeholder: placeholderToken(slotDate),
			Title:       metric + " Trend",
		})
	}
	if categoryCol != "" {
		spec.Pivots = append(spec.Pivots, PivotDef{
			Name:        "MetricByCategory",
			TargetSheet: "Pivot_MetricByCategory",
			RowFields:   []string{categoryCol},
			ValueFields: []ValueField{{Column: metric, Agg: AggSum}},
		})
		spec.Charts = append(spec.Charts, ChartDef{
			PivotRef:    "MetricByCategory",
			Kind:        chartKind(ds, categoryCol, roles, opts),
			Placeholder: placeholderToken(slotCategory),
			Title:       fmt.Sprintf("%s by %s", metric, categoryCol),
		})
	}
	spec.Pivots = append(spec.Pivots, PivotDef{
		Name:        "MetricDistribution",
		TargetSheet: "Pivot_MetricDistribution",
		ValueFields: []ValueField{{Column: metric, Agg: AggCount}},
	})
	spec.Charts = append(spec.Charts, ChartDef{
		PivotRef:    "MetricDistribution",
		Kind:        ChartColumn,
		Placeholder: placeholderToken(slotDistribution),
		Title:       "Record Count",
	})

	spec.Slicers = []string{}
	if categoryCol != "" {
		spec.Slicers = append(spec.Slicers, categoryCol)
	}
	if dateCol != "" {
		spec.Slicers = append(spec.Slicers, dateCol)
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// resolveColumn returns the override when it names an existing column,
// otherwise the first candidate.
func resolveColumn(ds *dataset.Dataset, override string, candidates []string) string {
	if override != "" && ds.HasColumn(override) {
		return override
	}
	if len(candidates) > 0 {
		return candidates[0]
	}
	return ""
}

// categoricalCandidates keeps categorical columns with low-to-moderate
// cardinality: more than one distinct value, at most the configured cap.
func categoricalCandidates(ds *dataset.Dataset, roles dataset.Roles, opts Options) []string {
	var out []string
	for _, name := range roles.CategoricalCols {
		col, ok := ds.Column(name)
		if !ok {
			continue
		}
		if n := col.Unique(); n > 1 && n <= opts.MaxCategoryCardinality {
			out = append(out, name)
		}
	}
	return out
}

// chartKind picks the chart family for an axis column: dates trend as
// lines; small category sets read best as clustered columns; anything
// wider falls back to horizontal bars.
func chartKind(ds *dataset.Dataset, axisCol string, roles dataset.Roles, opts Options) ChartKind {
	for _, d := range roles.DateCols {
		if d == axisCol {
			return ChartLine
		}
	}
	if col, ok := ds.Column(axisCol); ok && col.Unique() <= opts.ColumnChartMaxCategories {
		return ChartColumn
	}
	return ChartBar
}

// Template slots are fixed per chart role. A dashboard without a date
// or category axis leaves that slot's marker unclaimed rather than
// shifting later charts into it, so template layouts stay stable.
const (
	slotDate         = 1
	slotCategory     = 2
	slotDistribution = 3
)

func placeholderToken(slot int) string {
	return fmt.Sprintf("CHART%d_TL", slot)
}

// computeKPIs produces the headline scalars for the metric column. The
// record count covers all rows; the metric aggregates skip missing
// values.
func computeKPIs(ds *dataset.Dataset, metric string) map[string]float64 {
	kpis := map[string]float64{
		KPIRecords: float64(ds.Rows()),
	}
	col, ok := ds.Column(metric)
	if !ok {
		return kpis
	}
	var (
		sum   float64
		count int
		min   float64
		max   float64
	)
	for _, v := range col.Cells {
		if v.Kind != dataset.Number {
			continue
		}
		if count == 0 {
			min, max = v.Num, v.Num
		} else {
			if v.Num < min {
				min = v.Num
			}
			if v.Num > max {
				max = v.Num
			}
		}
		sum += v.Num
		count++
	}
	if count == 0 {
		return kpis
	}
	kpis[KPITotal] = sum
	kpis[KPIAverage] = sum / float64(count)
	kpis[KPIMin] = min
	kpis[KPIMax] = max
	return kpis
}
