// Package dataset provides the in-memory tabular data model shared by the
// cleaning, planning, and rendering stages.
package dataset

import (
	"math"
	"strconv"
	"time"
)

// Kind identifies the logical type of a single cell value.
type Kind uint8

const (
	Missing Kind = iota
	Number
	Time
	Text
)

// Value is one cell. Exactly one of Num, Time, Str is meaningful,
// selected by Kind.
type Value struct {
	Kind Kind
	Num  float64
	Time time.Time
	Str  string
}

// Num returns a numeric value.
func Num(v float64) Value { return Value{Kind: Number, Num: v} }

// Timestamp returns a date value.
func Timestamp(t time.Time) Value { return Value{Kind: Time, Time: t} }

// Str returns a text value. Empty strings are treated as missing.
func Str(s string) Value {
	if s == "" {
		return Value{Kind: Missing}
	}
	return Value{Kind: Text, Str: s}
}

// None returns a missing value.
func None() Value { return Value{Kind: Missing} }

// IsMissing reports whether the cell holds no value.
func (v Value) IsMissing() bool { return v.Kind == Missing }

// Display renders the value as a string suitable for a flat export.
func (v Value) Display() string {
	switch v.Kind {
	case Number:
		if v.Num == math.Trunc(v.Num) && math.Abs(v.Num) < 1e15 {
			return strconv.FormatInt(int64(v.Num), 10)
		}
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case Time:
		return v.Time.Format("2006-01-02")
	case Text:
		return v.Str
	default:
		return ""
	}
}

// Column is a named, ordered series of values.
type Column struct {
	Name  string
	Cells []Value
}

// CountNonMissing returns the number of cells that hold a value.
func (c *Column) CountNonMissing() int {
	n := 0
	for _, v := range c.Cells {
		if !v.IsMissing() {
			n++
		}
	}
	return n
}

// Unique returns the number of distinct non-missing display values.
func (c *Column) Unique() int {
	seen := make(map[string]struct{})
	for _, v := range c.Cells {
		if v.IsMissing() {
			continue
		}
		seen[v.Display()] = struct{}{}
	}
	return len(seen)
}

// Dataset is an ordered, rectangular table of named columns.
type Dataset struct {
	Name    string
	Columns []*Column
}

// New constructs an empty dataset with the given display name.
func New(name string) *Dataset {
	return &Dataset{Name: name}
}

// Rows returns the row count. All columns are kept the same length.
func (d *Dataset) Rows() int {
	if len(d.Columns) == 0 {
		return 0
	}
	return len(d.Columns[0].Cells)
}

// IsEmpty reports whether the dataset has no rows or no columns.
func (d *Dataset) IsEmpty() bool {
	return d == nil || len(d.Columns) == 0 || d.Rows() == 0
}

// Column finds a column by exact name.
func (d *Dataset) Column(name string) (*Column, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// HasColumn reports whether a column with the given name exists.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.Column(name)
	return ok
}

// ColumnNames returns column names in table order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// AddColumn appends a column, padding or truncating cells so the table
// stays rectangular.
func (d *Dataset) AddColumn(name string, cells []Value) *Column {
	rows := d.Rows()
	if len(d.Columns) > 0 {
		switch {
		case len(cells) < rows:
			padded := make([]Value, rows)
			copy(padded, cells)
			cells = padded
		case len(cells) > rows:
			cells = cells[:rows]
		}
	}
	col := &Column{Name: name, Cells: cells}
	d.Columns = append(d.Columns, col)
	return col
}

// Row materializes one row as display strings, in column order.
func (d *Dataset) Row(i int) []string {
	out := make([]string, len(d.Columns))
	for j, c := range d.Columns {
		if i < len(c.Cells) {
			out[j] = c.Cells[i].Display()
		}
	}
	return out
}

// DropRows removes the rows at the given indices from every column.
func (d *Dataset) DropRows(indices map[int]struct{}) {
	if len(indices) == 0 {
		return
	}
	for _, c := range d.Columns {
		kept := c.Cells[:0]
		for i, v := range c.Cells {
			if _, drop := indices[i]; !drop {
				kept = append(kept, v)
			}
		}
		c.Cells = kept
	}
}

// DropColumns removes the named columns, preserving order of the rest.
func (d *Dataset) DropColumns(names map[string]struct{}) {
	if len(names) == 0 {
		return
	}
	kept := d.Columns[:0]
	for _, c := range d.Columns {
		if _, drop := names[c.Name]; !drop {
			kept = append(kept, c)
		}
	}
	d.Columns = kept
}
