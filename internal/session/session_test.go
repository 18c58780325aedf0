package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/provalabs/prova/internal/cleaning"
	"github.com/provalabs/prova/internal/planner"
	"github.com/provalabs/prova/internal/render"
)

const salesCSV = `date,region,sales
2020-01-01,North,10
2020-01-02,South,20
2020-01-03,East,30
2020-01-04,West,40
`

func writeSalesCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.csv")
	if err := os.WriteFile(path, []byte(salesCSV), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestSessionLifecycle(t *testing.T) {
	var notes []string
	s := New(func(msg string) { notes = append(notes, msg) })
	defer s.Close()

	if s.State() != Idle {
		t.Fatalf("initial state: %s", s.State())
	}
	if err := s.Load(writeSalesCSV(t), ""); err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.State() != Loaded {
		t.Fatalf("state after load: %s", s.State())
	}
	if err := s.Clean(cleaning.FillMedian); err != nil {
		t.Fatalf("clean: %v", err)
	}
	if s.State() != Cleaned {
		t.Fatalf("state after clean: %s", s.State())
	}

	out := filepath.Join(t.TempDir(), "dash.xlsx")
	rep, err := s.Render(planner.Overrides{}, planner.DefaultOptions(), render.DefaultTheme(), "", out)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if s.State() != Saved {
		t.Fatalf("state after render: %s", s.State())
	}
	if len(rep.Warnings()) != 0 {
		t.Fatalf("warnings: %v", rep.Warnings())
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if len(notes) == 0 {
		t.Fatal("notifier received nothing")
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if s.State() != Closed {
		t.Fatalf("state after close: %s", s.State())
	}
	if err := s.Close(); err != nil {
		t.Fatalf("double close: %v", err)
	}
}

func TestSessionStateGuards(t *testing.T) {
	s := New(nil)
	defer s.Close()

	if err := s.Clean(cleaning.FillMedian); err == nil || !strings.Contains(err.Error(), "state: idle") {
		t.Fatalf("clean before load: %v", err)
	}
	if _, err := s.Plan(planner.Overrides{}, planner.DefaultOptions()); err == nil {
		t.Fatal("plan before clean must fail")
	}
	if _, err := s.Render(planner.Overrides{}, planner.DefaultOptions(), render.DefaultTheme(), "", "x.xlsx"); err == nil {
		t.Fatal("render before clean must fail")
	}

	if err := s.Load(writeSalesCSV(t), ""); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := s.Plan(planner.Overrides{}, planner.DefaultOptions()); err == nil {
		t.Fatal("plan requires a cleaned dataset")
	}

	// A closed session accepts nothing further.
	s.Close()
	if err := s.Clean(cleaning.FillMedian); err == nil {
		t.Fatal("clean after close must fail")
	}
}

func TestSessionReload(t *testing.T) {
	s := New(nil)
	defer s.Close()

	if err := s.Load(writeSalesCSV(t), ""); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := s.Clean(cleaning.FillMedian); err != nil {
		t.Fatalf("clean: %v", err)
	}

	// Reloading restarts the lifecycle; the cleaned state is gone.
	if err := s.Load(writeSalesCSV(t), ""); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if s.State() != Loaded {
		t.Fatalf("state after reload: %s", s.State())
	}
	if _, err := s.Plan(planner.Overrides{}, planner.DefaultOptions()); err == nil {
		t.Fatal("reload must reset past Cleaned")
	}
}

func TestSafeSaveFallbackCSV(t *testing.T) {
	s := New(nil)
	defer s.Close()

	if err := s.Load(writeSalesCSV(t), ""); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := s.Clean(cleaning.FillMedian); err != nil {
		t.Fatalf("clean: %v", err)
	}

	// No open document: SafeSave degrades straight to the flat export.
	out := filepath.Join(t.TempDir(), "recovered.csv")
	if !s.SafeSave(out) {
		t.Fatal("safe save failed")
	}
	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read fallback: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 5 {
		t.Fatalf("fallback rows: want header+4, got %d:\n%s", len(lines), raw)
	}
	if lines[0] != "date,region,sales" {
		t.Fatalf("fallback header: %q", lines[0])
	}
	if !strings.Contains(lines[1], "North") || !strings.Contains(lines[1], "10") {
		t.Fatalf("fallback row: %q", lines[1])
	}
}

func TestSafeSaveFallbackWorkbook(t *testing.T) {
	s := New(nil)
	defer s.Close()

	if err := s.Load(writeSalesCSV(t), ""); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := s.Clean(cleaning.FillMedian); err != nil {
		t.Fatalf("clean: %v", err)
	}

	out := filepath.Join(t.TempDir(), "recovered.xlsx")
	if !s.SafeSave(out) {
		t.Fatal("safe save failed")
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatalf("fallback workbook unreadable: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Data")
	if err != nil {
		t.Fatalf("read Data sheet: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("fallback rows: want header+4, got %d", len(rows))
	}
	if rows[0][1] != "region" || rows[4][1] != "West" {
		t.Fatalf("fallback content: %v", rows)
	}
	if _, err := os.Stat(out + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temp file left behind by fallback save")
	}
}

func TestSafeSaveReleasesFailedEngine(t *testing.T) {
	s := New(nil)
	defer s.Close()

	if err := s.Load(writeSalesCSV(t), ""); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := s.Clean(cleaning.FillMedian); err != nil {
		t.Fatalf("clean: %v", err)
	}

	// A closed document rejects Save, which is exactly the native-save
	// failure SafeSave must recover from.
	engine, err := render.NewEngine(s.Dataset(), render.DefaultTheme(), "")
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := engine.Close(); err != nil {
		t.Fatalf("close engine: %v", err)
	}
	s.engine = engine

	out := filepath.Join(t.TempDir(), "recovered.csv")
	if !s.SafeSave(out) {
		t.Fatal("safe save must fall back when the native save fails")
	}
	if s.engine != nil {
		t.Fatal("failed engine must be released before the fallback write")
	}

	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read fallback: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 5 || lines[0] != "date,region,sales" {
		t.Fatalf("fallback content:\n%s", raw)
	}
}

func TestSafeSaveNoDataset(t *testing.T) {
	s := New(nil)
	defer s.Close()
	if s.SafeSave(filepath.Join(t.TempDir(), "nothing.csv")) {
		t.Fatal("safe save with no dataset must report failure")
	}
}
