package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/provalabs/prova/internal/dataset"
	"github.com/provalabs/prova/internal/planner"
)

// CreatePivot builds one pivot table on its own sheet from the shared
// data range, plus a summary block the pivot's chart binds to.
func (e *Engine) CreatePivot(def planner.PivotDef) error {
	if len(def.ValueFields) == 0 {
		return fmt.Errorf("pivot %q has no value fields", def.Name)
	}
	sheet := def.TargetSheet
	if sheet == "" {
		sheet = "Pivot_" + def.Name
	}
	if idx, _ := e.file.GetSheetIndex(sheet); idx < 0 {
		if _, err := e.file.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %q: %w", sheet, err)
		}
	}

	rowFields := def.RowFields
	if def.GroupByDate && len(rowFields) > 0 {
		monthCol, err := e.ensureMonthColumn(rowFields[0])
		if err != nil {
			return err
		}
		rowFields = []string{monthCol}
	}

	groups, err := e.aggregate(def)
	if err != nil {
		return err
	}

	opt := &excelize.PivotTableOptions{
		DataRange:           e.dataRangeRef(),
		PivotTableRange:     fmt.Sprintf("%s!A3:E%d", sheet, 6+len(groups)),
		Name:                def.Name,
		RowGrandTotals:      true,
		ShowRowHeaders:      true,
		ShowColHeaders:      true,
		PivotTableStyleName: "PivotStyleLight16",
	}
	for _, rf := range rowFields {
		opt.Rows = append(opt.Rows, excelize.PivotTableField{Data: rf, DefaultSubtotal: true})
	}
	for _, vf := range def.ValueFields {
		opt.Data = append(opt.Data, excelize.PivotTableField{
			Data:     vf.Column,
			Subtotal: subtotalName(vf.Agg),
			Name:     valueLabel(vf),
		})
	}
	if err := e.file.AddPivotTable(opt); err != nil {
		return fmt.Errorf("pivot %q: %w", def.Name, err)
	}

	axisLabel := "Group"
	if len(rowFields) > 0 {
		axisLabel = rowFields[0]
	}
	info, err := e.writeSourceBlock(sheet, axisLabel, valueLabel(def.ValueFields[0]), groups)
	if err != nil {
		return err
	}
	e.pivots[def.Name] = info
	return nil
}

// ensureMonthColumn appends a derived month column next to the data
// table so date-grouped pivots get monthly buckets. Built once per date
// column and reused.
func (e *Engine) ensureMonthColumn(dateCol string) (string, error) {
	if name, ok := e.monthCols[dateCol]; ok {
		return name, nil
	}
	col, ok := e.ds.Column(dateCol)
	if !ok {
		return "", fmt.Errorf("date column %q not in dataset", dateCol)
	}
	name := dateCol + " (Month)"
	target := e.dataCols + 1
	head, _ := excelize.CoordinatesToCellName(target, 1)
	if err := e.file.SetCellValue(dataSheet, head, name); err != nil {
		return "", fmt.Errorf("write month header: %w", err)
	}
	for i, v := range col.Cells {
		if v.Kind != dataset.Time {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(target, i+2)
		if err := e.file.SetCellValue(dataSheet, cell, monthKey(v)); err != nil {
			return "", fmt.Errorf("write month cell: %w", err)
		}
	}
	e.dataCols = target
	e.monthCols[dateCol] = name
	return name, nil
}

// writeSourceBlock lays the aggregated groups beside the pivot area.
// Charts bind to this block so they render populated immediately, while
// the pivot stays interactive.
func (e *Engine) writeSourceBlock(sheet, axisLabel, valLabel string, groups []group) (pivotInfo, error) {
	if err := e.file.SetCellValue(sheet, "H1", axisLabel); err != nil {
		return pivotInfo{}, err
	}
	if err := e.file.SetCellValue(sheet, "I1", valLabel); err != nil {
		return pivotInfo{}, err
	}
	for i, g := range groups {
		row := i + 2
		if err := e.file.SetCellValue(sheet, fmt.Sprintf("H%d", row), g.key); err != nil {
			return pivotInfo{}, err
		}
		if err := e.file.SetCellValue(sheet, fmt.Sprintf("I%d", row), g.value); err != nil {
			return pivotInfo{}, err
		}
	}
	last := len(groups) + 1
	return pivotInfo{
		sheet:    sheet,
		catRange: fmt.Sprintf("%s!$H$2:$H$%d", sheet, last),
		valRange: fmt.Sprintf("%s!$I$2:$I$%d", sheet, last),
	}, nil
}

// CreateChart places one themed chart at its placeholder cell, bound to
// the source block of the pivot it references.
func (e *Engine) CreateChart(def planner.ChartDef) error {
	info, ok := e.pivots[def.PivotRef]
	if !ok {
		return fmt.Errorf("chart %q: pivot %q was not built", def.Title, def.PivotRef)
	}
	cell, ok := e.placeholderCell(def.Placeholder)
	if !ok {
		return fmt.Errorf("chart %q: placeholder %q not found in template", def.Title, def.Placeholder)
	}
	// Remove the marker text before the chart covers it.
	if err := e.file.SetCellValue(e.canvas, cell, nil); err != nil {
		return err
	}

	series := excelize.ChartSeries{
		Name:       def.Title,
		Categories: info.catRange,
		Values:     info.valRange,
		Fill:       excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{e.theme.SeriesColor(e.charts)}},
	}
	if def.Kind == planner.ChartLine {
		series.Line = excelize.ChartLine{Width: e.theme.LineWidth}
	}

	chart := &excelize.Chart{
		Type:   chartType(def.Kind),
		Series: []excelize.ChartSeries{series},
		Title: []excelize.RichTextRun{{
			Text: def.Title,
			Font: &excelize.Font{Family: e.theme.Font, Size: e.theme.FontSize + 2, Bold: true},
		}},
		Legend:    excelize.ChartLegend{Position: e.theme.LegendPosition},
		XAxis:     excelize.ChartAxis{Font: excelize.Font{Family: e.theme.Font, Size: e.theme.FontSize}},
		YAxis:     excelize.ChartAxis{MajorGridLines: e.theme.Gridlines, Font: excelize.Font{Family: e.theme.Font, Size: e.theme.FontSize}},
		PlotArea:  excelize.ChartPlotArea{ShowVal: e.theme.ShowDataLabels},
		Dimension: excelize.ChartDimension{Width: chartWidth, Height: chartHeight},
	}
	if err := e.file.AddChart(e.canvas, cell, chart); err != nil {
		return fmt.Errorf("chart %q: %w", def.Title, err)
	}
	e.charts++
	return nil
}

// SetKPI writes a headline value into the cell a template named range
// points at, styled per theme. A template without a matching named range
// simply skips the KPI; binding is best-effort.
func (e *Engine) SetKPI(label string, value float64) error {
	for _, dn := range e.file.GetDefinedName() {
		if !strings.EqualFold(dn.Name, label) {
			continue
		}
		sheet, cell, err := splitRef(dn.RefersTo)
		if err != nil {
			return fmt.Errorf("kpi %s: %w", label, err)
		}
		if err := e.file.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("kpi %s: %w", label, err)
		}
		style, err := e.kpiStyle(value)
		if err != nil {
			return fmt.Errorf("kpi %s: %w", label, err)
		}
		if err := e.file.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("kpi %s: %w", label, err)
		}
		return nil
	}
	return nil // no named range in the template: skip silently
}

func (e *Engine) kpiStyle(value float64) (int, error) {
	numFmt := 4 // #,##0.00
	if value == math.Trunc(value) {
		numFmt = 3 // #,##0
	}
	color := e.theme.KPIColor(value)
	key := fmt.Sprintf("kpi:%s:%d", color, numFmt)
	if id, ok := e.styles[key]; ok {
		return id, nil
	}
	id, err := e.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:   true,
			Family: e.theme.Font,
			Size:   e.theme.KPIFontSize,
			Color:  color,
		},
		NumFmt: numFmt,
	})
	if err != nil {
		return 0, err
	}
	e.styles[key] = id
	return id, nil
}

// AddSlicer drops an interactive filter for one field onto the canvas,
// bound to the data table. Position indexes the fixed anchor column so
// multiple slicers stack without overlapping.
func (e *Engine) AddSlicer(field string, position int) error {
	if !e.ds.HasColumn(field) {
		return fmt.Errorf("slicer field %q not in dataset", field)
	}
	cell, err := excelize.CoordinatesToCellName(slicerAnchorCol, slicerAnchorRow+position*slicerRowStride)
	if err != nil {
		return err
	}
	if err := e.file.AddSlicer(e.canvas, &excelize.SlicerOptions{
		Name:       field,
		Cell:       cell,
		TableSheet: dataSheet,
		TableName:  dataTableName,
		Caption:    field,
		Width:      e.theme.SlicerWidth,
		Height:     e.theme.SlicerHeight,
	}); err != nil {
		return fmt.Errorf("slicer %q: %w", field, err)
	}
	return nil
}

// ClearUnusedPlaceholders removes marker text from template slots no
// chart claimed, so unused tokens never leak into the output.
func (e *Engine) ClearUnusedPlaceholders(used map[string]struct{}) error {
	for token, cell := range e.bindings {
		if _, taken := used[token]; taken {
			continue
		}
		if err := e.file.SetCellValue(e.canvas, cell, nil); err != nil {
			return err
		}
	}
	return nil
}

func chartType(kind planner.ChartKind) excelize.ChartType {
	switch kind {
	case planner.ChartLine:
		return excelize.Line
	case planner.ChartBar:
		return excelize.Bar
	default:
		return excelize.Col
	}
}

func subtotalName(agg planner.Aggregation) string {
	switch agg {
	case planner.AggCount:
		return "Count"
	case planner.AggAvg:
		return "Average"
	case planner.AggMax:
		return "Max"
	case planner.AggMin:
		return "Min"
	default:
		return "Sum"
	}
}

func valueLabel(vf planner.ValueField) string {
	return fmt.Sprintf("%s of %s", subtotalName(vf.Agg), vf.Column)
}
