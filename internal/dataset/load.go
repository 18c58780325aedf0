package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Load reads a tabular file into a Dataset. The parser is selected by
// file extension: delimited text (.csv, .tsv, .txt) or spreadsheet-native
// (.xlsx, .xlsm). The first row supplies column headers. For spreadsheet
// input, sheet selects a worksheet by name; empty means the first sheet.
func Load(path, sheet string) (*Dataset, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	var (
		ds  *Dataset
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".tsv", ".txt":
		ds, err = loadCSV(path)
	case ".xlsx", ".xlsm":
		ds, err = loadXLSX(path, sheet)
	default:
		return nil, NewDataError(path, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext))
	}
	if err != nil {
		return nil, err
	}
	if ds.IsEmpty() {
		return nil, NewDataError(path, ErrEmptyDataset)
	}
	return ds, nil
}

func loadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = sniffDelimiter(path)

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, NewDataError(path, ErrEmptyDataset)
		}
		return nil, NewDataError(path, fmt.Errorf("read header: %w", err))
	}

	ds := New(filepath.Base(path))
	cols := make([][]Value, len(header))
	rows := 0
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, NewDataError(path, fmt.Errorf("read row %d: %w", rows+1, err))
		}
		for j := range cols {
			if j < len(rec) {
				cols[j] = append(cols[j], Str(rec[j]))
			} else {
				cols[j] = append(cols[j], None())
			}
		}
		rows++
	}
	for j, name := range header {
		ds.AddColumn(name, cols[j])
	}
	return ds, nil
}

func loadXLSX(path, sheet string) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, NewDataError(path, fmt.Errorf("open workbook: %w", err))
	}
	defer f.Close()

	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, NewDataError(path, ErrEmptyDataset)
		}
		sheet = list[0]
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, NewDataError(path, fmt.Errorf("sheet %q not found (available: %s)",
			sheet, strings.Join(f.GetSheetList(), ", ")))
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, NewDataError(path, fmt.Errorf("read sheet %q: %w", sheet, err))
	}
	if len(rows) == 0 {
		return nil, NewDataError(path, ErrEmptyDataset)
	}

	header := rows[0]
	ds := New(filepath.Base(path))
	cols := make([][]Value, len(header))
	for _, rec := range rows[1:] {
		for j := range cols {
			if j < len(rec) {
				cols[j] = append(cols[j], Str(rec[j]))
			} else {
				cols[j] = append(cols[j], None())
			}
		}
	}
	for j, name := range header {
		ds.AddColumn(name, cols[j])
	}
	return ds, nil
}

// sniffDelimiter picks the CSV field delimiter from the file extension.
func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

// WriteCSV writes the dataset as a flat delimited table: one header row
// followed by every data row in display form.
func WriteCSV(d *Dataset, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.ColumnNames()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := 0; i < d.Rows(); i++ {
		if err := cw.Write(d.Row(i)); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
