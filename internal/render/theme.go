// Package render materializes a DashboardSpec against a spreadsheet
// document: pivot tables, charts bound to template placeholders, styled
// KPI cells, and slicers. The backend is an in-process workbook writer
// hidden behind the Renderer port.
package render

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Theme is the visual configuration applied to every widget in one
// render. It is immutable once a render starts. Hard-coded defaults can
// be overridden by a JSON block embedded in the template (see the
// ThemeConfigName defined name).
type Theme struct {
	Palette        []string `json:"palette" yaml:"palette" mapstructure:"palette"`
	Font           string   `json:"font" yaml:"font" mapstructure:"font"`
	FontSize       float64  `json:"font_size" yaml:"font_size" mapstructure:"font_size"`
	LegendPosition string   `json:"legend_position" yaml:"legend_position" mapstructure:"legend_position"`
	Gridlines      bool     `json:"gridlines" yaml:"gridlines" mapstructure:"gridlines"`
	LineWidth      float64  `json:"line_width" yaml:"line_width" mapstructure:"line_width"`
	ShowDataLabels bool     `json:"show_data_labels" yaml:"show_data_labels" mapstructure:"show_data_labels"`
	KPIFontSize    float64  `json:"kpi_font_size" yaml:"kpi_font_size" mapstructure:"kpi_font_size"`
	KPIPositive    string   `json:"kpi_positive_color" yaml:"kpi_positive_color" mapstructure:"kpi_positive_color"`
	KPINegative    string   `json:"kpi_negative_color" yaml:"kpi_negative_color" mapstructure:"kpi_negative_color"`
	KPINeutral     string   `json:"kpi_neutral_color" yaml:"kpi_neutral_color" mapstructure:"kpi_neutral_color"`
	SlicerWidth    uint     `json:"slicer_width" yaml:"slicer_width" mapstructure:"slicer_width"`
	SlicerHeight   uint     `json:"slicer_height" yaml:"slicer_height" mapstructure:"slicer_height"`
}

// ThemeConfigName is the defined name a template may carry to point at
// a single cell holding a JSON theme override block.
const ThemeConfigName = "THEME_CONFIG"

// DefaultTheme returns the built-in visual defaults.
func DefaultTheme() Theme {
	return Theme{
		Palette: []string{
			"4F46E5", "10B981", "F59E0B", "EF4444", "8B5CF6",
			"06B6D4", "EC4899", "84CC16",
		},
		Font:           "Calibri",
		FontSize:       10,
		LegendPosition: "bottom",
		Gridlines:      true,
		LineWidth:      2.25,
		ShowDataLabels: false,
		KPIFontSize:    14,
		KPIPositive:    "2E7D32",
		KPINegative:    "C62828",
		KPINeutral:     "455A64",
		SlicerWidth:    200,
		SlicerHeight:   160,
	}
}

// ApplyJSON overlays a JSON override block onto the theme. Fields absent
// from the block keep their current values.
func (t *Theme) ApplyJSON(data string) error {
	data = strings.TrimSpace(data)
	if data == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(data), t); err != nil {
		return fmt.Errorf("parse theme config block: %w", err)
	}
	return nil
}

// SeriesColor returns the palette color for a series index, cycling when
// the palette is exhausted. Colors are hex RGB without a leading '#'.
func (t Theme) SeriesColor(i int) string {
	if len(t.Palette) == 0 {
		return "4F46E5"
	}
	c := t.Palette[i%len(t.Palette)]
	return strings.TrimPrefix(c, "#")
}

// KPIColor keys the KPI font color to the sign of the value.
func (t Theme) KPIColor(value float64) string {
	switch {
	case value > 0:
		return strings.TrimPrefix(t.KPIPositive, "#")
	case value < 0:
		return strings.TrimPrefix(t.KPINegative, "#")
	default:
		return strings.TrimPrefix(t.KPINeutral, "#")
	}
}
