package cleaning

import (
	"strconv"
	"strings"
	"time"

	"github.com/provalabs/prova/internal/dataset"
)

// Fraction of non-missing values that must parse as dates for a text
// column to be reclassified as a date column.
const dateCoercionThreshold = 0.6

// Explicit layouts tried first; cheap compared to the lenient pass.
var fastDateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"01/02/2006",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
}

// Lenient layouts cover the long tail of human-entered dates.
var lenientDateLayouts = []string{
	"2 Jan 2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2-Jan-2006",
	"02-Jan-06",
	"Jan-2006",
	"2006.01.02",
	"1/2/2006",
	"1/2/06",
	"2006-1-2",
	"20060102",
}

// parseLooseNumber parses numeric text after stripping thousands
// separators, currency symbols, and stray spacing.
func parseLooseNumber(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, false
	}
	for _, sym := range []string{"$", "€", "£", "¥"} {
		raw = strings.ReplaceAll(raw, sym, "")
	}
	raw = strings.ReplaceAll(raw, " ", "")
	raw = strings.ReplaceAll(raw, " ", "")
	raw = strings.ReplaceAll(raw, ",", "")
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// coerceDates converts a text column to dates when enough values parse.
// The fast path tries a handful of explicit layouts; only if that falls
// short is the broader lenient layout set attempted. Either path must
// clear the same threshold. Values that fail to parse become missing.
func coerceDates(col *dataset.Column) bool {
	if tryDateLayouts(col, fastDateLayouts) {
		return true
	}
	return tryDateLayouts(col, append(append([]string{}, fastDateLayouts...), lenientDateLayouts...))
}

func tryDateLayouts(col *dataset.Column, layouts []string) bool {
	nonMissing := 0
	parsed := 0
	for _, v := range col.Cells {
		if v.IsMissing() {
			continue
		}
		nonMissing++
		if _, ok := parseDate(v.Str, layouts); ok {
			parsed++
		}
	}
	if nonMissing == 0 || float64(parsed) < dateCoercionThreshold*float64(nonMissing) {
		return false
	}
	for i, v := range col.Cells {
		if v.IsMissing() {
			continue
		}
		if t, ok := parseDate(v.Str, layouts); ok {
			col.Cells[i] = dataset.Timestamp(t)
		} else {
			col.Cells[i] = dataset.None()
		}
	}
	return true
}

func parseDate(s string, layouts []string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
