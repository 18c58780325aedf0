package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/provalabs/prova/internal/render"
)

// Planner holds the planner's heuristic bounds.
type Planner struct {
	MaxCategoryCardinality   int `mapstructure:"max_category_cardinality" yaml:"max_category_cardinality"`
	ColumnChartMaxCategories int `mapstructure:"column_chart_max_categories" yaml:"column_chart_max_categories"`
}

// Global configuration structure.
type Global struct {
	FillStrategy string       `mapstructure:"fill_strategy" yaml:"fill_strategy"`
	TemplatePath string       `mapstructure:"template_path" yaml:"template_path"`
	OutputDir    string       `mapstructure:"output_dir" yaml:"output_dir"`
	Planner      Planner      `mapstructure:"planner" yaml:"planner"`
	Theme        render.Theme `mapstructure:"theme" yaml:"theme"`
}

// Save writes the given configuration to the cfgFile path. If cfgFile is
// empty, it writes to ~/.prova/config.yaml, creating the directory if
// necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, ".prova")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("PROVA")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("fill_strategy", "median")
	v.SetDefault("template_path", "")
	v.SetDefault("output_dir", "")
	v.SetDefault("planner.max_category_cardinality", 20)
	v.SetDefault("planner.column_chart_max_categories", 6)
	theme := render.DefaultTheme()
	v.SetDefault("theme.palette", theme.Palette)
	v.SetDefault("theme.font", theme.Font)
	v.SetDefault("theme.font_size", theme.FontSize)
	v.SetDefault("theme.legend_position", theme.LegendPosition)
	v.SetDefault("theme.gridlines", theme.Gridlines)
	v.SetDefault("theme.line_width", theme.LineWidth)
	v.SetDefault("theme.show_data_labels", theme.ShowDataLabels)
	v.SetDefault("theme.kpi_font_size", theme.KPIFontSize)
	v.SetDefault("theme.kpi_positive_color", theme.KPIPositive)
	v.SetDefault("theme.kpi_negative_color", theme.KPINegative)
	v.SetDefault("theme.kpi_neutral_color", theme.KPINeutral)
	v.SetDefault("theme.slicer_width", theme.SlicerWidth)
	v.SetDefault("theme.slicer_height", theme.SlicerHeight)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, ".prova")
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
