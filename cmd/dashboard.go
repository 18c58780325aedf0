package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/provalabs/prova/internal/cleaning"
	"github.com/provalabs/prova/internal/dataset"
	"github.com/provalabs/prova/internal/planner"
	"github.com/provalabs/prova/internal/session"
)

var (
	dashOutput    string
	dashTemplate  string
	dashSheet     string
	dashMetric    string
	dashDateCol   string
	dashCatCol    string
	dashFill      string
	dashRecordIDs bool
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard <file>",
	Short: "Build a dashboard workbook from a tabular dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := args[0]

		fill, err := cleaning.ParseFillStrategy(firstNonEmpty(dashFill, cfg.FillStrategy))
		if err != nil {
			return err
		}

		out := dashOutput
		if out == "" {
			base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
			out = filepath.Join(cfg.OutputDir, base+"_dashboard.xlsx")
		}

		sess := session.New(session.Notifier(notify))
		defer sess.Close()

		if err := sess.Load(input, dashSheet); err != nil {
			return err
		}
		if err := sess.Clean(fill); err != nil {
			return err
		}
		if dashRecordIDs {
			dataset.EnsureRecordID(sess.Dataset())
		}

		report, err := sess.Render(
			planner.Overrides{Metric: dashMetric, DateCol: dashDateCol, CategoryCol: dashCatCol},
			plannerOptions(),
			cfg.Theme,
			firstNonEmpty(dashTemplate, cfg.TemplatePath),
			out,
		)
		if err != nil {
			return err
		}

		warned := 0
		if report != nil {
			warned = len(report.Warnings())
		}
		if warned > 0 {
			fmt.Printf("✓ Dashboard written to %s (%d widget warning(s), see above)\n", out, warned)
		} else {
			fmt.Printf("✓ Dashboard written to %s\n", out)
		}
		return nil
	},
}

func plannerOptions() planner.Options {
	opts := planner.DefaultOptions()
	if cfg.Planner.MaxCategoryCardinality > 0 {
		opts.MaxCategoryCardinality = cfg.Planner.MaxCategoryCardinality
	}
	if cfg.Planner.ColumnChartMaxCategories > 0 {
		opts.ColumnChartMaxCategories = cfg.Planner.ColumnChartMaxCategories
	}
	return opts
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	dashboardCmd.Flags().StringVarP(&dashOutput, "output", "o", "", "output workbook path (default <input>_dashboard.xlsx)")
	dashboardCmd.Flags().StringVar(&dashTemplate, "template", "", "template workbook with CHART<N>_TL placeholders")
	dashboardCmd.Flags().StringVar(&dashSheet, "sheet", "", "worksheet to load for spreadsheet input (default first)")
	dashboardCmd.Flags().StringVar(&dashMetric, "metric", "", "metric column (default first numeric)")
	dashboardCmd.Flags().StringVar(&dashDateCol, "date-col", "", "date column (default first detected)")
	dashboardCmd.Flags().StringVar(&dashCatCol, "category-col", "", "category column (default first low-cardinality categorical)")
	dashboardCmd.Flags().StringVar(&dashFill, "fill", "", "missing numeric fill strategy: median, mean, or zero")
	dashboardCmd.Flags().BoolVar(&dashRecordIDs, "record-ids", false, "add a RecordID column with stable row identifiers")
	rootCmd.AddCommand(dashboardCmd)
}
