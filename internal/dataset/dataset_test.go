package dataset

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeFixture(t, "orders.csv", "date,region,sales\n2024-01-05,North,100\n2024-01-06,South,\n")

	ds, err := Load(path, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := ds.ColumnNames(); !reflect.DeepEqual(got, []string{"date", "region", "sales"}) {
		t.Fatalf("columns: %v", got)
	}
	if ds.Rows() != 2 {
		t.Fatalf("rows: want 2, got %d", ds.Rows())
	}
	col, _ := ds.Column("sales")
	if col.Cells[0].Kind != Text || col.Cells[0].Str != "100" {
		t.Fatalf("loader must not coerce types: %+v", col.Cells[0])
	}
	if !col.Cells[1].IsMissing() {
		t.Fatalf("empty field should load as missing: %+v", col.Cells[1])
	}
}

func TestLoadTSV(t *testing.T) {
	path := writeFixture(t, "orders.tsv", "a\tb\n1\t2\n")

	ds, err := Load(path, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ds.Rows() != 1 || len(ds.Columns) != 2 {
		t.Fatalf("tsv shape: %d rows, %d cols", ds.Rows(), len(ds.Columns))
	}
}

func TestLoadRaggedRows(t *testing.T) {
	path := writeFixture(t, "ragged.csv", "a,b,c\n1,2\n3,4,5,6\n")

	ds, err := Load(path, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	c, _ := ds.Column("c")
	if !c.Cells[0].IsMissing() {
		t.Fatalf("short row should pad with missing: %+v", c.Cells[0])
	}
	if c.Cells[1].Str != "5" {
		t.Fatalf("long row should truncate to header width: %+v", c.Cells[1])
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.csv"), ""); err == nil {
		t.Fatal("expected error for missing file")
	}

	empty := writeFixture(t, "empty.csv", "")
	if _, err := Load(empty, ""); !errors.Is(err, ErrEmptyDataset) {
		t.Fatalf("empty file: want ErrEmptyDataset, got %v", err)
	}

	headerOnly := writeFixture(t, "header.csv", "a,b\n")
	if _, err := Load(headerOnly, ""); !errors.Is(err, ErrEmptyDataset) {
		t.Fatalf("header-only file: want ErrEmptyDataset, got %v", err)
	}

	weird := writeFixture(t, "data.parquet", "x")
	var de *DataError
	_, err := Load(weird, "")
	if !errors.As(err, &de) || !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("unsupported format: got %v", err)
	}
}

func TestLoadXLSX(t *testing.T) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", "Orders")
	f.NewSheet("Notes")
	f.SetSheetRow("Orders", "A1", &[]interface{}{"region", "sales"})
	f.SetSheetRow("Orders", "A2", &[]interface{}{"North", 100})
	f.SetSheetRow("Orders", "A3", &[]interface{}{"South", 200})
	path := filepath.Join(t.TempDir(), "orders.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save fixture: %v", err)
	}
	f.Close()

	ds, err := Load(path, "")
	if err != nil {
		t.Fatalf("load first sheet: %v", err)
	}
	if ds.Rows() != 2 || !ds.HasColumn("region") {
		t.Fatalf("unexpected shape: %d rows, cols %v", ds.Rows(), ds.ColumnNames())
	}

	if _, err := Load(path, "Orders"); err != nil {
		t.Fatalf("load named sheet: %v", err)
	}

	_, err = Load(path, "Missing")
	if err == nil || !strings.Contains(err.Error(), "available: Orders, Notes") {
		t.Fatalf("missing sheet should list available sheets, got %v", err)
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	ds := New("out")
	ds.AddColumn("when", []Value{Timestamp(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))})
	ds.AddColumn("amount", []Value{Num(1200)})
	ds.AddColumn("note", []Value{None()})

	var buf bytes.Buffer
	if err := WriteCSV(ds, &buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := "when,amount,note\n2024-01-05,1200,\n"
	if buf.String() != want {
		t.Fatalf("csv output:\nwant %q\ngot  %q", want, buf.String())
	}
}

func TestDetectRoles(t *testing.T) {
	ds := New("roles")
	ds.AddColumn("when", []Value{Timestamp(time.Now()), None()})
	ds.AddColumn("amount", []Value{Num(1), Num(2)})
	ds.AddColumn("mixed", []Value{Num(1), Str("x")})
	ds.AddColumn("region", []Value{Str("a"), Str("b")})

	roles := DetectRoles(ds)
	if !reflect.DeepEqual(roles.DateCols, []string{"when"}) {
		t.Fatalf("dates: %v", roles.DateCols)
	}
	if !reflect.DeepEqual(roles.NumericCols, []string{"amount"}) {
		t.Fatalf("numerics: %v", roles.NumericCols)
	}
	if !reflect.DeepEqual(roles.CategoricalCols, []string{"mixed", "region"}) {
		t.Fatalf("categoricals: %v", roles.CategoricalCols)
	}
}

func TestEnsureRecordID(t *testing.T) {
	ds := New("ids")
	ds.AddColumn("v", []Value{Num(1), Num(2)})

	EnsureRecordID(ds)
	col, ok := ds.Column("RecordID")
	if !ok {
		t.Fatal("RecordID column not added")
	}
	if col.Cells[0].IsMissing() || col.Cells[0].Str == col.Cells[1].Str {
		t.Fatalf("ids must be present and distinct: %+v", col.Cells)
	}

	// Existing ids survive, gaps get filled.
	keep := col.Cells[0].Str
	col.Cells[1] = None()
	EnsureRecordID(ds)
	if col.Cells[0].Str != keep {
		t.Fatal("existing id was overwritten")
	}
	if col.Cells[1].IsMissing() {
		t.Fatal("missing id was not filled")
	}
}

func TestRowHashOrderIndependent(t *testing.T) {
	a := New("a")
	a.AddColumn("x", []Value{Num(1)})
	a.AddColumn("y", []Value{Str("hi")})

	b := New("b")
	b.AddColumn("y", []Value{Str("hi")})
	b.AddColumn("x", []Value{Num(1)})

	if RowHash(a, 0) != RowHash(b, 0) {
		t.Fatal("hash must be independent of column order")
	}

	c := New("c")
	c.AddColumn("x", []Value{Num(2)})
	c.AddColumn("y", []Value{Str("hi")})
	if RowHash(a, 0) == RowHash(c, 0) {
		t.Fatal("different rows must hash differently")
	}
}
