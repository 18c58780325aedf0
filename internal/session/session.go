// Package session owns one dataset and at most one open document across
// the load → clean → render → save → close lifecycle, including the
// fail-safe save protocol that degrades to a flat tabular re-export.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/provalabs/prova/internal/cleaning"
	"github.com/provalabs/prova/internal/dataset"
	"github.com/provalabs/prova/internal/planner"
	"github.com/provalabs/prova/internal/render"
	"github.com/provalabs/prova/internal/utils"
)

// State tracks the session's position in its linear lifecycle.
type State int

const (
	Idle State = iota
	Loaded
	Cleaned
	Rendering
	Saved
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loaded:
		return "loaded"
	case Cleaned:
		return "cleaned"
	case Rendering:
		return "rendering"
	case Saved:
		return "saved"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Notifier receives plain status and warning lines. A nil notifier
// discards them.
type Notifier func(msg string)

// Session drives the dashboard pipeline end to end. It is
// single-threaded: one session, one dataset, at most one open document.
type Session struct {
	ds     *dataset.Dataset
	state  State
	engine *render.Engine
	notify Notifier
}

// New returns an idle session reporting status through notify.
func New(notify Notifier) *Session {
	if notify == nil {
		notify = func(string) {}
	}
	return &Session{notify: notify}
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Dataset returns the session's dataset, nil before Load.
func (s *Session) Dataset() *dataset.Dataset { return s.ds }

// Load reads a tabular file and restarts the lifecycle at Loaded. Any
// open document from a prior render is released first.
func (s *Session) Load(path, sheet string) error {
	s.releaseEngine()
	ds, err := dataset.Load(path, sheet)
	if err != nil {
		return err
	}
	s.ds = ds
	s.state = Loaded
	s.notify(fmt.Sprintf("loaded %d rows, %d columns from %s", ds.Rows(), len(ds.Columns), path))
	return nil
}

// Clean normalizes the loaded dataset in place and advances to Cleaned.
func (s *Session) Clean(strategy cleaning.FillStrategy) error {
	if s.state < Loaded || s.state == Closed {
		return fmt.Errorf("clean requires a loaded session (state: %s)", s.state)
	}
	ds, err := cleaning.Clean(s.ds, strategy)
	if err != nil {
		return err
	}
	s.ds = ds
	s.state = Cleaned
	roles := dataset.DetectRoles(ds)
	s.notify(fmt.Sprintf("cleaned: %d date, %d numeric, %d categorical columns",
		len(roles.DateCols), len(roles.NumericCols), len(roles.CategoricalCols)))
	return nil
}

// Plan derives a DashboardSpec from the cleaned dataset.
func (s *Session) Plan(ov planner.Overrides, opts planner.Options) (*planner.DashboardSpec, error) {
	if s.state < Cleaned || s.state == Closed {
		return nil, fmt.Errorf("plan requires a cleaned session (state: %s)", s.state)
	}
	return planner.Plan(s.ds, ov, opts)
}

// Render plans and renders the dashboard in one pass.
func (s *Session) Render(ov planner.Overrides, opts planner.Options, theme render.Theme, templatePath, outputPath string) (*render.Report, error) {
	spec, err := s.Plan(ov, opts)
	if err != nil {
		return nil, err
	}
	return s.RenderSpec(spec, theme, templatePath, outputPath)
}

// RenderSpec renders a prepared DashboardSpec: open the document, build
// every widget best-effort, then run the fail-safe save protocol. Widget
// warnings are reported through the notifier; only staging, open, and
// save failures are fatal.
func (s *Session) RenderSpec(spec *planner.DashboardSpec, theme render.Theme, templatePath, outputPath string) (*render.Report, error) {
	if s.state < Cleaned || s.state == Closed {
		return nil, fmt.Errorf("render requires a cleaned session (state: %s)", s.state)
	}
	s.state = Rendering

	engine, err := render.NewEngine(s.ds, theme, templatePath)
	if err != nil {
		return nil, err
	}
	s.engine = engine

	report, err := render.Render(engine, spec, outputPath)
	for _, w := range reportWarnings(report) {
		s.notify("warning: " + w)
	}
	if err != nil {
		if !render.IsFatal(err) {
			return report, err
		}
		// Native save failed: fall back to the flat re-export so the
		// data survives even if the built widgets do not.
		s.notify(fmt.Sprintf("native save failed (%v), attempting flat fallback", err))
		if !s.SafeSave(outputPath) {
			return report, err
		}
		s.notify("fallback save succeeded: " + outputPath)
		s.state = Saved
		return report, nil
	}

	s.state = Saved
	s.notify("dashboard written: " + outputPath)
	return report, nil
}

// SafeSave guarantees the in-memory dataset reaches path even when the
// document backend cannot save: it releases the open document first
// (dropping any built widgets), then writes the dataset as a flat
// table. A false return is a fatal operation failure, not a warning.
func (s *Session) SafeSave(path string) bool {
	if s.engine != nil {
		if err := s.engine.Save(path); err == nil {
			return true
		}
		// Release the handle so the fallback writer is not blocked by
		// the failed document.
		s.releaseEngine()
	}
	if s.ds == nil {
		return false
	}
	if err := s.writeFlat(path); err != nil {
		s.notify(fmt.Sprintf("flat fallback failed: %v", err))
		return false
	}
	return true
}

// writeFlat exports the dataset as a bare table at path: delimited text
// for .csv/.tsv/.txt, otherwise a minimal single-sheet workbook.
func (s *Session) writeFlat(path string) error {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv", ".txt":
		var b strings.Builder
		if err := dataset.WriteCSV(s.ds, &b); err != nil {
			return err
		}
		return utils.SafeWriteFile(path, []byte(b.String()))
	default:
		f := excelize.NewFile()
		defer f.Close()
		if err := f.SetSheetName("Sheet1", "Data"); err != nil {
			return err
		}
		header := make([]interface{}, len(s.ds.Columns))
		for i, c := range s.ds.Columns {
			header[i] = c.Name
		}
		if err := f.SetSheetRow("Data", "A1", &header); err != nil {
			return err
		}
		for i := 0; i < s.ds.Rows(); i++ {
			row := make([]interface{}, len(s.ds.Columns))
			for j, v := range s.ds.Row(i) {
				row[j] = v
			}
			cell, _ := excelize.CoordinatesToCellName(1, i+2)
			if err := f.SetSheetRow("Data", cell, &row); err != nil {
				return err
			}
		}
		tmp := path + ".tmp"
		if err := f.SaveAs(tmp); err != nil {
			_ = os.Remove(tmp)
			return err
		}
		if err := os.Rename(tmp, path); err != nil {
			_ = os.Remove(tmp)
			return err
		}
		return nil
	}
}

// Close releases the document handle exactly once. Safe to call on an
// already-closed session.
func (s *Session) Close() error {
	if s.state == Closed {
		return nil
	}
	err := s.releaseEngine()
	s.state = Closed
	return err
}

func (s *Session) releaseEngine() error {
	if s.engine == nil {
		return nil
	}
	err := s.engine.Close()
	s.engine = nil
	return err
}

func reportWarnings(r *render.Report) []string {
	if r == nil {
		return nil
	}
	var out []string
	for _, o := range r.Warnings() {
		out = append(out, o.String())
	}
	return out
}
