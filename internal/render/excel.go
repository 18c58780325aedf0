package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/provalabs/prova/internal/dataset"
	"github.com/provalabs/prova/internal/utils"
)

const (
	dataSheet     = "Data"
	dataTableName = "DataTable"

	// Placeholder scan window on the dashboard canvas. Template authors
	// place CHART<N>_TL markers inside it.
	scanRows = 60
	scanCols = 52

	chartWidth  = 480
	chartHeight = 300

	slicerAnchorCol = 14 // column N
	slicerAnchorRow = 2
	slicerRowStride = 10
)

// pivotInfo remembers where a pivot's chart source block landed so a
// later CreateChart call can bind a series to it.
type pivotInfo struct {
	sheet    string
	catRange string
	valRange string
}

// Engine renders a dashboard by writing the target workbook directly
// in-process. It stages the template to a scratch copy, injects the
// dataset, and then builds widgets on demand through the Renderer port.
type Engine struct {
	file    *excelize.File
	scratch string
	ds      *dataset.Dataset
	theme   Theme

	dataCols  int
	dataRows  int // data rows excluding header
	canvas    string
	bindings  map[string]string // upper-case token -> cell
	pivots    map[string]pivotInfo
	monthCols map[string]string // date column -> derived month column
	styles    map[string]int
	charts    int
	closed    bool
}

// NewEngine stages templatePath to a scratch copy, injects the dataset
// into its source-of-truth sheet, and discovers chart placeholders. An
// empty templatePath synthesizes a default dashboard canvas. Errors here
// are fatal for the render.
func NewEngine(ds *dataset.Dataset, theme Theme, templatePath string) (*Engine, error) {
	if ds.IsEmpty() {
		return nil, &FatalError{Stage: "staging", Err: dataset.ErrEmptyDataset}
	}
	scratch := filepath.Join(os.TempDir(), "prova-"+uuid.NewString()+".xlsx")

	var f *excelize.File
	if templatePath == "" {
		var err error
		f, err = defaultCanvas()
		if err != nil {
			return nil, &FatalError{Stage: "staging", Err: err}
		}
	} else {
		if err := utils.CopyFile(templatePath, scratch); err != nil {
			return nil, &FatalError{Stage: "staging", Err: err}
		}
		var err error
		f, err = excelize.OpenFile(scratch)
		if err != nil {
			_ = os.Remove(scratch)
			return nil, &FatalError{Stage: "open", Err: err}
		}
	}

	e := &Engine{
		file:      f,
		scratch:   scratch,
		ds:        ds,
		theme:     theme,
		pivots:    make(map[string]pivotInfo),
		monthCols: make(map[string]string),
		styles:    make(map[string]int),
	}
	e.applyTemplateTheme()

	if err := e.injectData(); err != nil {
		e.cleanup()
		return nil, &FatalError{Stage: "staging", Err: err}
	}
	e.discoverPlaceholders()
	return e, nil
}

// Theme returns the effective theme after template overrides.
func (e *Engine) Theme() Theme { return e.theme }

// applyTemplateTheme overlays a JSON block addressed by the THEME_CONFIG
// defined name, when the template carries one.
func (e *Engine) applyTemplateTheme() {
	for _, dn := range e.file.GetDefinedName() {
		if !strings.EqualFold(dn.Name, ThemeConfigName) {
			continue
		}
		sheet, cell, err := splitRef(dn.RefersTo)
		if err != nil {
			return
		}
		raw, err := e.file.GetCellValue(sheet, cell)
		if err != nil {
			return
		}
		_ = e.theme.ApplyJSON(raw) // malformed block keeps defaults
		return
	}
}

// injectData writes the dataset as a flat table into the Data sheet,
// replacing any prior contents, and covers it with a worksheet table so
// slicers have something to bind to.
func (e *Engine) injectData() error {
	if idx, _ := e.file.GetSheetIndex(dataSheet); idx >= 0 {
		if err := e.file.DeleteSheet(dataSheet); err != nil {
			return fmt.Errorf("replace %s sheet: %w", dataSheet, err)
		}
	}
	if _, err := e.file.NewSheet(dataSheet); err != nil {
		return fmt.Errorf("create %s sheet: %w", dataSheet, err)
	}

	header := make([]interface{}, len(e.ds.Columns))
	for i, c := range e.ds.Columns {
		header[i] = c.Name
	}
	if err := e.file.SetSheetRow(dataSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := 0; i < e.ds.Rows(); i++ {
		row := make([]interface{}, len(e.ds.Columns))
		for j, c := range e.ds.Columns {
			row[j] = cellValue(c.Cells[i])
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := e.file.SetSheetRow(dataSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	e.dataCols = len(e.ds.Columns)
	e.dataRows = e.ds.Rows()

	end, _ := excelize.CoordinatesToCellName(e.dataCols, e.dataRows+1)
	return e.file.AddTable(dataSheet, &excelize.Table{
		Range:     "A1:" + end,
		Name:      dataTableName,
		StyleName: "TableStyleMedium9",
	})
}

func cellValue(v dataset.Value) interface{} {
	switch v.Kind {
	case dataset.Number:
		return v.Num
	case dataset.Time:
		return v.Time
	case dataset.Text:
		return v.Str
	default:
		return nil
	}
}

// dataRange returns the current source range including derived columns.
func (e *Engine) dataRangeRef() string {
	end, _ := excelize.CoordinatesToCellName(e.dataCols, e.dataRows+1)
	return dataSheet + "!A1:" + end
}

// discoverPlaceholders scans a bounded window of every sheet for cells
// whose text begins with CHART, and binds the first sheet carrying any
// marker as the dashboard canvas. The binding table is computed once;
// chart materialization only does lookups.
func (e *Engine) discoverPlaceholders() {
	e.bindings = make(map[string]string)
	for _, sheet := range e.file.GetSheetList() {
		if sheet == dataSheet {
			continue
		}
		found := e.scanSheet(sheet)
		if len(found) > 0 {
			e.canvas = sheet
			e.bindings = found
			return
		}
	}
	// No markers anywhere: fall back to the first non-data sheet so KPI
	// and slicer placement still has a canvas.
	for _, sheet := range e.file.GetSheetList() {
		if sheet != dataSheet {
			e.canvas = sheet
			return
		}
	}
}

func (e *Engine) scanSheet(sheet string) map[string]string {
	rows, err := e.file.GetRows(sheet)
	if err != nil {
		return nil
	}
	found := make(map[string]string)
	for ri, row := range rows {
		if ri >= scanRows {
			break
		}
		for ci, raw := range row {
			if ci >= scanCols {
				break
			}
			text := strings.ToUpper(strings.TrimSpace(raw))
			if !strings.HasPrefix(text, "CHART") {
				continue
			}
			if _, taken := found[text]; taken {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(ci+1, ri+1)
			found[text] = cell
		}
	}
	return found
}

// placeholderCell resolves a token from the binding table.
func (e *Engine) placeholderCell(token string) (string, bool) {
	cell, ok := e.bindings[strings.ToUpper(strings.TrimSpace(token))]
	return cell, ok
}

// Save writes the finished document to path, overwriting any existing
// file. The write goes through a sibling temp file and an atomic rename
// so a failure never leaves a partial document at the caller's path.
func (e *Engine) Save(path string) error {
	if e.closed {
		return fmt.Errorf("document already closed")
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("mkdir output dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := e.file.SaveAs(tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("save workbook: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

// Close releases the workbook and removes the scratch copy. It is
// idempotent; only the first call does the work.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	return e.cleanup()
}

func (e *Engine) cleanup() error {
	var err error
	if e.file != nil {
		err = e.file.Close()
	}
	if e.scratch != "" {
		_ = os.Remove(e.scratch)
	}
	return err
}

// defaultCanvas builds a minimal dashboard template: a title, a KPI
// strip bound by defined names, and the three standard chart markers.
func defaultCanvas() (*excelize.File, error) {
	f := excelize.NewFile()
	const sheet = "Dashboard"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(sheet, "A1", "ProVA Dashboard"); err != nil {
		return nil, err
	}
	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 16}})
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", "A1", titleStyle); err != nil {
		return nil, err
	}

	kpis := []struct {
		label string
		name  string
		col   string
	}{
		{"Records", "KPI_Records", "B"},
		{"Total", "KPI_Total", "C"},
		{"Average", "KPI_Average", "D"},
		{"Min", "KPI_Min", "E"},
		{"Max", "KPI_Max", "F"},
	}
	for _, k := range kpis {
		if err := f.SetCellValue(sheet, k.col+"2", k.label); err != nil {
			return nil, err
		}
		if err := f.SetDefinedName(&excelize.DefinedName{
			Name:     k.name,
			RefersTo: fmt.Sprintf("%s!$%s$3", sheet, k.col),
			Scope:    "Workbook",
		}); err != nil {
			return nil, err
		}
	}

	markers := map[string]string{
		"B6":  "CHART1_TL",
		"K6":  "CHART2_TL",
		"B24": "CHART3_TL",
	}
	for cell, token := range markers {
		if err := f.SetCellValue(sheet, cell, token); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// splitRef parses a defined-name reference like Dashboard!$B$2 or
// 'My Sheet'!$B$2:$C$3 into a sheet name and its top-left cell.
func splitRef(ref string) (sheet, cell string, err error) {
	ref = strings.TrimSpace(ref)
	bang := strings.LastIndex(ref, "!")
	if bang < 0 {
		return "", "", fmt.Errorf("reference %q has no sheet qualifier", ref)
	}
	sheet = strings.Trim(ref[:bang], "'")
	cell = ref[bang+1:]
	if colon := strings.Index(cell, ":"); colon >= 0 {
		cell = cell[:colon]
	}
	cell = strings.ReplaceAll(cell, "$", "")
	if cell == "" {
		return "", "", fmt.Errorf("reference %q has no cell", ref)
	}
	return sheet, cell, nil
}
