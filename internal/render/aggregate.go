package render

import (
	"fmt"
	"math"
	"sort"

	"github.com/provalabs/prova/internal/dataset"
	"github.com/provalabs/prova/internal/planner"
)

// group is one aggregated bucket feeding a chart source block.
type group struct {
	key   string
	value float64
}

// monthKey buckets a date value into its calendar month.
func monthKey(v dataset.Value) string {
	return v.Time.Format("2006-01")
}

// aggregate computes the pivot's summary rows from the in-memory
// dataset: group by the pivot's first row field (monthly buckets when
// date-grouped), then fold the first value field with its aggregation.
// Rows with a missing group key are skipped.
func (e *Engine) aggregate(def planner.PivotDef) ([]group, error) {
	vf := def.ValueFields[0]
	valCol, ok := e.ds.Column(vf.Column)
	if !ok {
		return nil, fmt.Errorf("value column %q not in dataset", vf.Column)
	}

	if len(def.RowFields) == 0 {
		return []group{{key: "Records", value: foldAll(valCol, vf.Agg)}}, nil
	}

	keyCol, ok := e.ds.Column(def.RowFields[0])
	if !ok {
		return nil, fmt.Errorf("row field %q not in dataset", def.RowFields[0])
	}

	type acc struct {
		sum      float64
		count    int
		min, max float64
	}
	buckets := make(map[string]*acc)
	for i := 0; i < e.ds.Rows(); i++ {
		kv := keyCol.Cells[i]
		if kv.IsMissing() {
			continue
		}
		key := kv.Display()
		if def.GroupByDate && kv.Kind == dataset.Time {
			key = monthKey(kv)
		}
		a := buckets[key]
		if a == nil {
			a = &acc{min: math.Inf(1), max: math.Inf(-1)}
			buckets[key] = a
		}
		v := valCol.Cells[i]
		if v.Kind != dataset.Number {
			continue
		}
		a.sum += v.Num
		a.count++
		if v.Num < a.min {
			a.min = v.Num
		}
		if v.Num > a.max {
			a.max = v.Num
		}
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]group, 0, len(keys))
	for _, k := range keys {
		a := buckets[k]
		var val float64
		switch vf.Agg {
		case planner.AggCount:
			val = float64(a.count)
		case planner.AggAvg:
			if a.count > 0 {
				val = a.sum / float64(a.count)
			}
		case planner.AggMin:
			if a.count > 0 {
				val = a.min
			}
		case planner.AggMax:
			if a.count > 0 {
				val = a.max
			}
		default:
			val = a.sum
		}
		out = append(out, group{key: k, value: val})
	}
	return out, nil
}

// foldAll aggregates a whole column, ignoring missing values.
func foldAll(col *dataset.Column, agg planner.Aggregation) float64 {
	var (
		sum      float64
		count    int
		min, max = math.Inf(1), math.Inf(-1)
	)
	for _, v := range col.Cells {
		if v.Kind != dataset.Number {
			continue
		}
		sum += v.Num
		count++
		if v.Num < min {
			min = v.Num
		}
		if v.Num > max {
			max = v.Num
		}
	}
	if count == 0 {
		return 0
	}
	switch agg {
	case planner.AggCount:
		return float64(count)
	case planner.AggAvg:
		return sum / float64(count)
	case planner.AggMin:
		return min
	case planner.AggMax:
		return max
	default:
		return sum
	}
}
