// Package cleaning normalizes a freshly loaded dataset: header cleanup,
// numeric and date coercion of text columns, and missing-value filling.
// Cleaning is deterministic and idempotent; it mutates columns in place
// and performs no I/O.
package cleaning

import (
	"fmt"
	"sort"
	"strings"

	"github.com/provalabs/prova/internal/dataset"
)

// FillStrategy selects how missing numeric values are filled.
type FillStrategy string

const (
	FillMedian FillStrategy = "median"
	FillMean   FillStrategy = "mean"
	FillZero   FillStrategy = "zero"
)

// ParseFillStrategy validates a strategy name, defaulting to median.
func ParseFillStrategy(s string) (FillStrategy, error) {
	switch FillStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", FillMedian:
		return FillMedian, nil
	case FillMean:
		return FillMean, nil
	case FillZero:
		return FillZero, nil
	default:
		return "", fmt.Errorf("unknown fill strategy %q (want median, mean, or zero)", s)
	}
}

// Fraction of non-missing values that must parse for a text column to be
// coerced to numeric. Below this the column is assumed genuinely
// categorical text that merely contains digits.
const numericCoercionThreshold = 0.5

// Clean normalizes the dataset in place and returns it. It drops
// all-missing rows and columns, normalizes headers, trims text cells,
// coerces numeric-looking and date-looking text columns, and fills
// missing numeric values per the given strategy.
func Clean(ds *dataset.Dataset, strategy FillStrategy) (*dataset.Dataset, error) {
	if ds.IsEmpty() {
		return nil, dataset.NewDataError("", dataset.ErrEmptyDataset)
	}
	if strategy == "" {
		strategy = FillMedian
	}

	normalizeHeaders(ds)
	trimTextCells(ds)
	dropAllMissing(ds)
	if ds.IsEmpty() {
		return nil, dataset.NewDataError(ds.Name, dataset.ErrEmptyDataset)
	}

	for _, col := range ds.Columns {
		if !isTextColumn(col) {
			continue
		}
		if coerceNumeric(col) {
			continue
		}
		coerceDates(col)
	}

	for _, col := range ds.Columns {
		fillNumeric(col, strategy)
	}
	return ds, nil
}

func normalizeHeaders(ds *dataset.Dataset) {
	for _, col := range ds.Columns {
		name := strings.ReplaceAll(col.Name, "\n", " ")
		name = strings.ReplaceAll(name, "\r", " ")
		name = strings.ReplaceAll(name, " ", "")
		col.Name = strings.Join(strings.Fields(name), " ")
	}
}

func trimTextCells(ds *dataset.Dataset) {
	for _, col := range ds.Columns {
		for i, v := range col.Cells {
			if v.Kind == dataset.Text {
				col.Cells[i] = dataset.Str(strings.TrimSpace(v.Str))
			}
		}
	}
}

func dropAllMissing(ds *dataset.Dataset) {
	deadCols := make(map[string]struct{})
	for _, col := range ds.Columns {
		if col.CountNonMissing() == 0 {
			deadCols[col.Name] = struct{}{}
		}
	}
	ds.DropColumns(deadCols)

	deadRows := make(map[int]struct{})
	for i := 0; i < ds.Rows(); i++ {
		empty := true
		for _, col := range ds.Columns {
			if !col.Cells[i].IsMissing() {
				empty = false
				break
			}
		}
		if empty {
			deadRows[i] = struct{}{}
		}
	}
	ds.DropRows(deadRows)
}

// isTextColumn reports whether every non-missing cell is text.
func isTextColumn(col *dataset.Column) bool {
	any := false
	for _, v := range col.Cells {
		switch v.Kind {
		case dataset.Text:
			any = true
		case dataset.Number, dataset.Time:
			return false
		}
	}
	return any
}

// coerceNumeric converts a text column to numbers when at least half of
// its non-missing values parse after stripping thousands separators and
// currency symbols. Values that fail to parse become missing.
func coerceNumeric(col *dataset.Column) bool {
	nonMissing := 0
	parsed := 0
	for _, v := range col.Cells {
		if v.IsMissing() {
			continue
		}
		nonMissing++
		if _, ok := parseLooseNumber(v.Str); ok {
			parsed++
		}
	}
	if nonMissing == 0 || float64(parsed) < numericCoercionThreshold*float64(nonMissing) {
		return false
	}
	for i, v := range col.Cells {
		if v.IsMissing() {
			continue
		}
		if x, ok := parseLooseNumber(v.Str); ok {
			col.Cells[i] = dataset.Num(x)
		} else {
			col.Cells[i] = dataset.None()
		}
	}
	return true
}

func fillNumeric(col *dataset.Column, strategy FillStrategy) {
	var nums []float64
	missing := 0
	for _, v := range col.Cells {
		switch v.Kind {
		case dataset.Number:
			nums = append(nums, v.Num)
		case dataset.Missing:
			missing++
		default:
			return // not a numeric column
		}
	}
	if len(nums) == 0 || missing == 0 {
		return
	}
	var fill float64
	switch strategy {
	case FillMean:
		sum := 0.0
		for _, x := range nums {
			sum += x
		}
		fill = sum / float64(len(nums))
	case FillZero:
		fill = 0
	default:
		fill = median(nums)
	}
	for i, v := range col.Cells {
		if v.IsMissing() {
			col.Cells[i] = dataset.Num(fill)
		}
	}
}

func median(vals []float64) float64 {
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	n := len(cp)
	if n%2 == 1 {
		return cp[n/2]
	}
	return (cp[n/2-1] + cp[n/2]) / 2
}
