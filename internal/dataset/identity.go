package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/google/uuid"
)

const recordIDColumn = "RecordID"

// EnsureRecordID guarantees every row carries a stable identifier in a
// RecordID column. Rows that already have one keep it; missing entries
// are filled with fresh UUIDs.
func EnsureRecordID(d *Dataset) {
	col, ok := d.Column(recordIDColumn)
	if !ok {
		cells := make([]Value, d.Rows())
		for i := range cells {
			cells[i] = Str(uuid.NewString())
		}
		d.AddColumn(recordIDColumn, cells)
		return
	}
	for i, v := range col.Cells {
		if v.IsMissing() {
			col.Cells[i] = Str(uuid.NewString())
		}
	}
}

// RowHash computes a content hash over one row, with columns visited in
// name order so the hash is independent of column layout.
func RowHash(d *Dataset, row int) string {
	names := d.ColumnNames()
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		c, _ := d.Column(name)
		v := None()
		if row < len(c.Cells) {
			v = c.Cells[row]
		}
		if v.IsMissing() {
			parts = append(parts, "<NA>")
		} else {
			parts = append(parts, v.Display())
		}
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
