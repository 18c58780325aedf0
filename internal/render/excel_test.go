package render

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/provalabs/prova/internal/dataset"
	"github.com/provalabs/prova/internal/planner"
)

// regionDataset is four rows, one per region, with known aggregates:
// total 100, min 10, max 40, all dated within January 2020.
func regionDataset() *dataset.Dataset {
	ds := dataset.New("regions")
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := make([]dataset.Value, 4)
	for i := range dates {
		dates[i] = dataset.Timestamp(start.AddDate(0, 0, i))
	}
	ds.AddColumn("date", dates)
	ds.AddColumn("region", []dataset.Value{
		dataset.Str("North"), dataset.Str("South"), dataset.Str("East"), dataset.Str("West"),
	})
	ds.AddColumn("sales", []dataset.Value{
		dataset.Num(10), dataset.Num(20), dataset.Num(30), dataset.Num(40),
	})
	return ds
}

func newTestEngine(t *testing.T, ds *dataset.Dataset, templatePath string) *Engine {
	t.Helper()
	e, err := NewEngine(ds, DefaultTheme(), templatePath)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestNewEngineDefaultCanvas(t *testing.T) {
	e := newTestEngine(t, regionDataset(), "")

	if e.canvas != "Dashboard" {
		t.Fatalf("canvas: got %q", e.canvas)
	}
	want := map[string]string{"CHART1_TL": "B6", "CHART2_TL": "K6", "CHART3_TL": "B24"}
	for token, cell := range want {
		if got, ok := e.placeholderCell(token); !ok || got != cell {
			t.Fatalf("placeholder %s: want %s, got %s (found=%v)", token, cell, got, ok)
		}
	}
	// Token lookup is case-insensitive.
	if _, ok := e.placeholderCell("chart1_tl"); !ok {
		t.Fatal("lowercase token lookup failed")
	}

	// The dataset landed on the Data sheet.
	v, err := e.file.GetCellValue(dataSheet, "A1")
	if err != nil || v != "date" {
		t.Fatalf("data header: %q %v", v, err)
	}
	v, _ = e.file.GetCellValue(dataSheet, "C3")
	if v != "20" {
		t.Fatalf("data cell: want 20, got %q", v)
	}
}

func TestNewEngineRejectsEmptyDataset(t *testing.T) {
	_, err := NewEngine(dataset.New("empty"), DefaultTheme(), "")
	if !IsFatal(err) {
		t.Fatalf("want fatal staging error, got %v", err)
	}
}

func TestNewEngineTemplateStaging(t *testing.T) {
	dir := t.TempDir()
	tpl := filepath.Join(dir, "template.xlsx")

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", "Dash")
	// Markers are matched case-insensitively wherever the author put them.
	f.SetCellValue("Dash", "C4", "chart1_tl")
	f.SetCellValue("Dash", "C20", "CHART2_TL")
	f.SetCellValue("Dash", "A30", `{"font":"Arial","gridlines":false}`)
	if err := f.SetDefinedName(&excelize.DefinedName{
		Name:     ThemeConfigName,
		RefersTo: "Dash!$A$30",
		Scope:    "Workbook",
	}); err != nil {
		t.Fatalf("defined name: %v", err)
	}
	if err := f.SaveAs(tpl); err != nil {
		t.Fatalf("save template: %v", err)
	}
	f.Close()

	e := newTestEngine(t, regionDataset(), tpl)

	if e.canvas != "Dash" {
		t.Fatalf("canvas: got %q", e.canvas)
	}
	if cell, ok := e.placeholderCell("CHART1_TL"); !ok || cell != "C4" {
		t.Fatalf("CHART1_TL: %q %v", cell, ok)
	}
	if th := e.Theme(); th.Font != "Arial" || th.Gridlines {
		t.Fatalf("template theme not applied: %+v", th)
	}
	// Only the named fields change.
	if e.Theme().LegendPosition != "bottom" {
		t.Fatalf("theme defaults lost: %+v", e.Theme())
	}

	// The template file itself is never written to.
	before, err := os.Stat(tpl)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Save(filepath.Join(dir, "out.xlsx")); err != nil {
		t.Fatalf("save: %v", err)
	}
	after, _ := os.Stat(tpl)
	if before.Size() != after.Size() || !before.ModTime().Equal(after.ModTime()) {
		t.Fatal("template was modified during render")
	}
}

func TestEngineRenderFullSpec(t *testing.T) {
	ds := regionDataset()
	spec, err := planner.Plan(ds, planner.Overrides{}, planner.DefaultOptions())
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	e := newTestEngine(t, ds, "")
	out := filepath.Join(t.TempDir(), "dash.xlsx")
	rep, err := Render(e, spec, out)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if warns := rep.Warnings(); len(warns) != 0 {
		t.Fatalf("warnings: %v", warns)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	for _, sheet := range []string{"Dashboard", dataSheet,
		"Pivot_MetricByDate", "Pivot_MetricByCategory", "Pivot_MetricDistribution"} {
		if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
			t.Fatalf("missing sheet %q in output", sheet)
		}
	}

	// KPI named ranges resolved to the default canvas strip.
	if v, _ := f.GetCellValue("Dashboard", "B3"); v != "4" {
		t.Fatalf("KPI_Records cell: %q", v)
	}
	if v, _ := f.GetCellValue("Dashboard", "C3"); v != "100" {
		t.Fatalf("KPI_Total cell: %q", v)
	}

	// Chart source blocks carry sorted aggregates.
	if v, _ := f.GetCellValue("Pivot_MetricByCategory", "H2"); v != "East" {
		t.Fatalf("first category: %q", v)
	}
	if v, _ := f.GetCellValue("Pivot_MetricByCategory", "I2"); v != "30" {
		t.Fatalf("East total: %q", v)
	}
	if v, _ := f.GetCellValue("Pivot_MetricByDate", "H2"); v != "2020-01" {
		t.Fatalf("month bucket: %q", v)
	}
	if v, _ := f.GetCellValue("Pivot_MetricByDate", "I2"); v != "100" {
		t.Fatalf("month total: %q", v)
	}
	if v, _ := f.GetCellValue("Pivot_MetricDistribution", "I2"); v != "4" {
		t.Fatalf("record count: %q", v)
	}

	// The date-grouped pivot appended a derived month column to the data.
	if v, _ := f.GetCellValue(dataSheet, "D1"); v != "date (Month)" {
		t.Fatalf("month column header: %q", v)
	}

	// Placeholder markers are gone: covered slots were cleared before the
	// charts landed and unused slots were wiped.
	for _, cell := range []string{"B6", "K6", "B24"} {
		if v, _ := f.GetCellValue("Dashboard", cell); v != "" {
			t.Fatalf("marker text leaked at %s: %q", cell, v)
		}
	}

	if _, err := os.Stat(out + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temp save file left behind")
	}
}

func TestEngineAggregate(t *testing.T) {
	e := newTestEngine(t, regionDataset(), "")

	groups, err := e.aggregate(planner.PivotDef{
		RowFields:   []string{"region"},
		ValueFields: []planner.ValueField{{Column: "sales", Agg: planner.AggMax}},
	})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(groups) != 4 || groups[0].key != "East" || groups[0].value != 30 {
		t.Fatalf("groups: %+v", groups)
	}

	// No row fields folds the whole column into a single bucket.
	groups, err = e.aggregate(planner.PivotDef{
		ValueFields: []planner.ValueField{{Column: "sales", Agg: planner.AggAvg}},
	})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(groups) != 1 || groups[0].key != "Records" || groups[0].value != 25 {
		t.Fatalf("fold: %+v", groups)
	}

	if _, err := e.aggregate(planner.PivotDef{
		ValueFields: []planner.ValueField{{Column: "profit", Agg: planner.AggSum}},
	}); err == nil {
		t.Fatal("expected error for unknown value column")
	}
}

func TestEngineCloseIdempotent(t *testing.T) {
	e := newTestEngine(t, regionDataset(), "")
	if err := e.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := e.Save(filepath.Join(t.TempDir(), "late.xlsx")); err == nil {
		t.Fatal("save after close must fail")
	}
}
